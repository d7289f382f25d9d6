package war

import (
	"context"
	"fmt"

	"github.com/hellasmmo/server/model"
	"gorm.io/gorm"
)

// Store persists the ledger.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save replaces every persisted war with the ledger's current contents.
func (s *Store) Save(ctx context.Context, l *Ledger) error {
	wars := l.All()
	rows := make([]model.War, 0, len(wars))
	for _, w := range wars {
		rows = append(rows, model.War{
			FirstName:  w.First.Name,
			FirstKind:  int(w.First.Kind),
			SecondName: w.Second.Name,
			SecondKind: int(w.Second.Kind),
			Peace:      int(w.Peace),
		})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.War{}).Error; err != nil {
			return fmt.Errorf("war: clear: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("war: save: %w", err)
		}
		return nil
	})
}

// Load replaces the ledger's contents with the persisted wars.
func (s *Store) Load(ctx context.Context, l *Ledger) error {
	var rows []model.War
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return fmt.Errorf("war: load: %w", err)
	}
	wars := make([]War, 0, len(rows))
	for _, r := range rows {
		wars = append(wars, War{
			First:  Belligerent{Name: r.FirstName, Kind: Kind(r.FirstKind)},
			Second: Belligerent{Name: r.SecondName, Kind: Kind(r.SecondKind)},
			Peace:  PeaceState(r.Peace),
		})
	}
	l.Replace(wars)
	return nil
}
