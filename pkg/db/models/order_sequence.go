package models

import "time"

// OrderSequence holds the last issued order sequence for a calendar day (YYYYMMDD).
type OrderSequence struct {
	Day       string    `gorm:"column:day;primaryKey"`
	Value     int64     `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
