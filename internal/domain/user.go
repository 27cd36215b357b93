package domain

import "time"

// User represents an authenticated user of the system.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Username     string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"column:password;size:255;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	EditedAt     time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "user"
}
