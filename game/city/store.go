package city

import (
	"context"
	"fmt"

	"github.com/hellasmmo/server/game/combat"
	"github.com/hellasmmo/server/model"
	"gorm.io/gorm"
)

// Store persists cities and citizenship.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Save replaces the persisted cities and memberships with the registry contents.
func (s *Store) Save(ctx context.Context, r *Registry) error {
	cities, members := r.Snapshot()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.CityMember{}).Error; err != nil {
			return fmt.Errorf("city: clear members: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&model.City{}).Error; err != nil {
			return fmt.Errorf("city: clear cities: %w", err)
		}
		for _, c := range cities {
			row := model.City{Name: c.Name, X: c.Location.X, Y: c.Location.Y, King: c.King}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("city: save %s: %w", c.Name, err)
			}
		}
		for p, c := range members {
			if err := tx.Create(&model.CityMember{PlayerName: p, CityName: c}).Error; err != nil {
				return fmt.Errorf("city: save member %s: %w", p, err)
			}
		}
		return nil
	})
}

// Load replaces the registry contents with the persisted state.
func (s *Store) Load(ctx context.Context, r *Registry) error {
	var rows []model.City
	if err := s.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return fmt.Errorf("city: load: %w", err)
	}
	var memberRows []model.CityMember
	if err := s.db.WithContext(ctx).Find(&memberRows).Error; err != nil {
		return fmt.Errorf("city: load members: %w", err)
	}
	cities := make([]City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, City{
			Name:     row.Name,
			Location: combat.Point{X: row.X, Y: row.Y},
			King:     row.King,
		})
	}
	members := make(map[string]string, len(memberRows))
	for _, m := range memberRows {
		members[m.PlayerName] = m.CityName
	}
	r.Replace(cities, members)
	return nil
}
