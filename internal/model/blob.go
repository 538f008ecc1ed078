package model

import "time"

// Blob is a JSON document stored under a fixed key.
type Blob struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}
