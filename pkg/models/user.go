package models

import (
	"time"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Login        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"login"`
	PasswordHash string    `gorm:"type:varchar(100);not null" json:"-"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	FullName     string    `gorm:"type:varchar(200)" json:"full_name"`
	Phone        string    `gorm:"type:varchar(20)" json:"phone"`
	Address      string    `gorm:"type:varchar(500)" json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user may manage the catalog.
func (u *User) IsAdmin() bool {
	return u.Login == "admin"
}
