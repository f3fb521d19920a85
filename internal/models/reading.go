package models

import "time"

// Reading represents a single greenhouse sensor observation.
type Reading struct {
	ID         int64     `db:"id" json:"id"`
	DeviceID   string    `db:"device_id" json:"device_id"`
	Sensor     string    `db:"sensor" json:"sensor"`
	Value      float64   `db:"value" json:"value"`
	Unit       string    `db:"unit" json:"unit"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
