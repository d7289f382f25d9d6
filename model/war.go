package model

import "time"

// War persists one entry of the war ledger. The pair is stored in canonical order.
type War struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName  string    `gorm:"uniqueIndex:idx_war_pair;size:64;not null" json:"first_name"`
	FirstKind  int       `gorm:"uniqueIndex:idx_war_pair;not null" json:"first_kind"`
	SecondName string    `gorm:"uniqueIndex:idx_war_pair;size:64;not null" json:"second_name"`
	SecondKind int       `gorm:"uniqueIndex:idx_war_pair;not null" json:"second_kind"`
	Peace      int       `gorm:"default:0" json:"peace"` // 0=none 1=proposed by first 2=proposed by second
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}
