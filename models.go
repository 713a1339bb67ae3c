package main

import "time"

type Category struct {
	ID    uint   `gorm:"primaryKey"`
	Title string `gorm:"size:20;uniqueIndex;not null"`
}

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:150;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

type PhotoPost struct {
	ID         uint   `gorm:"primaryKey"`
	Title      string `gorm:"size:150;not null"`
	Image      string `gorm:"not null"`
	Thumbnail  string `gorm:"not null"`
	CategoryID uint   `gorm:"not null;index"`
	Category   Category
	UserID     uint `gorm:"not null;index"`
	User       User
	PostedAt   time.Time `gorm:"not null;index"`
}

type Session struct {
	Token     string    `gorm:"primaryKey;size:64"`
	UserID    uint      `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

type Setting struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}
