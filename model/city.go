package model

import "time"

// City is a player city with its founding location and current king.
type City struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	King      string    `gorm:"size:64" json:"king"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// CityMember links a player to the single city they belong to.
type CityMember struct {
	PlayerName string    `gorm:"primaryKey;size:64" json:"player_name"`
	CityName   string    `gorm:"index:idx_city_member;size:64;not null" json:"city_name"`
	JoinedAt   time.Time `gorm:"autoCreateTime" json:"joined_at"`
}
