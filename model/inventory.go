package model

import "time"

// Inventory is one item stack in a character's bag.
type Inventory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CharName  string    `gorm:"uniqueIndex:idx_char_item;size:64;not null" json:"char_name"`
	ItemID    string    `gorm:"uniqueIndex:idx_char_item;size:64;not null" json:"item_id"`
	Qty       int       `gorm:"default:1" json:"qty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
