package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	"lifestyle-planner/internal/config"
)

func TestNew_Level(t *testing.T) {
	log := New(config.LoggerConfig{Level: "warn", Encoding: "json"})
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	log = New(config.LoggerConfig{Level: "nonsense"})
	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
}

func TestGorm_Trace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	g := NewGorm(zap.New(core))
	query := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	g.Trace(ctx, time.Now(), query, gormlogger.ErrRecordNotFound)
	assert.Zero(t, logs.Len())

	g.Trace(ctx, time.Now(), query, errors.New("disk I/O error"))
	assert.Equal(t, 1, logs.FilterMessage("query failed").Len())

	g.Trace(ctx, time.Now().Add(-2*time.Second), query, nil)
	assert.Equal(t, 1, logs.FilterMessage("slow query").Len())

	silent := g.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), query, errors.New("ignored"))
	assert.Equal(t, 2, logs.Len())
}
