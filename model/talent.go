package model

// CharTalent records the rank a character holds in one talent.
// Talents are keyed by name so rows survive catalog reordering.
type CharTalent struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CharName string `gorm:"uniqueIndex:idx_char_talent;size:64;not null" json:"char_name"`
	Talent   string `gorm:"uniqueIndex:idx_char_talent;size:64;not null" json:"talent"`
	Rank     int    `gorm:"default:1" json:"rank"`
}

// CharSpell records a spell a character knows outside of talents.
type CharSpell struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CharName string `gorm:"uniqueIndex:idx_char_spell;size:64;not null" json:"char_name"`
	SpellID  string `gorm:"uniqueIndex:idx_char_spell;size:64;not null" json:"spell_id"`
}
