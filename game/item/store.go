package item

import (
	"context"
	"fmt"

	"github.com/hellasmmo/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store persists bags per character.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a Store.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Load returns the character's bag. A character with no rows gets an empty bag.
func (s *Store) Load(ctx context.Context, charName string) (*Bag, error) {
	var rows []model.Inventory
	if err := s.db.WithContext(ctx).Where("char_name = ?", charName).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("item: load bag: %w", err)
	}
	b := NewBag()
	for _, r := range rows {
		if r.Qty <= 0 {
			continue
		}
		if r.Qty > MaxStack {
			s.logger.Warn("stored stack over limit",
				zap.String("char", charName),
				zap.String("item", r.ItemID),
				zap.Int("qty", r.Qty))
			r.Qty = MaxStack
		}
		b.stacks[r.ItemID] = r.Qty
	}
	return b, nil
}

// Save replaces the character's stored stacks with the bag's contents.
func (s *Store) Save(ctx context.Context, charName string, b *Bag) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("char_name = ?", charName).Delete(&model.Inventory{}).Error; err != nil {
			return fmt.Errorf("item: clear bag: %w", err)
		}
		var rows []model.Inventory
		for _, st := range b.Stacks() {
			rows = append(rows, model.Inventory{CharName: charName, ItemID: st.ItemID, Qty: st.Qty})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("item: save bag: %w", err)
		}
		return nil
	})
}
