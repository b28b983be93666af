package models

import "time"

// AppMetadata is a raw key/value row. Typed access goes through the settings
// service.
type AppMetadata struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

func (AppMetadata) TableName() string { return "app_metadata" }
