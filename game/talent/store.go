package talent

import (
	"context"
	"fmt"

	"github.com/hellasmmo/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store persists talent ranks and taught spells per character.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a Store.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Save replaces the character's persisted allocation with the class's current one.
func (s *Store) Save(ctx context.Context, charName string, c *Class) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("char_name = ?", charName).Delete(&model.CharTalent{}).Error; err != nil {
			return fmt.Errorf("talent: clear ranks: %w", err)
		}
		if err := tx.Where("char_name = ?", charName).Delete(&model.CharSpell{}).Error; err != nil {
			return fmt.Errorf("talent: clear spells: %w", err)
		}

		var rows []model.CharTalent
		for id, rank := range c.ranks {
			if rank == 0 {
				continue
			}
			rows = append(rows, model.CharTalent{
				CharName: charName,
				Talent:   c.typ.Talents[id].Name,
				Rank:     rank,
			})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("talent: save ranks: %w", err)
			}
		}

		var spells []model.CharSpell
		for _, id := range c.TaughtSpells() {
			spells = append(spells, model.CharSpell{CharName: charName, SpellID: id})
		}
		if len(spells) > 0 {
			if err := tx.Create(&spells).Error; err != nil {
				return fmt.Errorf("talent: save spells: %w", err)
			}
		}
		return nil
	})
}

// Load restores the character's allocation into c. Talents no longer in the class
// are skipped with a warning.
func (s *Store) Load(ctx context.Context, charName string, c *Class) error {
	var rows []model.CharTalent
	if err := s.db.WithContext(ctx).Where("char_name = ?", charName).Find(&rows).Error; err != nil {
		return fmt.Errorf("talent: load ranks: %w", err)
	}
	for _, r := range rows {
		t, ok := c.typ.FindTalent(r.Talent)
		if !ok {
			s.logger.Warn("persisted talent not in class",
				zap.String("char", charName),
				zap.String("class", c.typ.ID),
				zap.String("talent", r.Talent))
			continue
		}
		c.LoadTalentRank(t.ID, r.Rank)
	}

	var spells []model.CharSpell
	if err := s.db.WithContext(ctx).Where("char_name = ?", charName).Find(&spells).Error; err != nil {
		return fmt.Errorf("talent: load spells: %w", err)
	}
	for _, sp := range spells {
		c.spells[sp.SpellID] = struct{}{}
	}
	return nil
}
