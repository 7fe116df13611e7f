package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/richardiffusion/mrga/domain/station"
	"github.com/richardiffusion/mrga/infrastructure/observability"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GormStore keeps the catalog in the stations table.
type GormStore struct {
	db *gorm.DB
}

var _ station.Catalog = (*GormStore)(nil)

// NewGormStore migrates the stations table and seeds it when empty.
func NewGormStore(ctx context.Context, db *gorm.DB) (*GormStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&station.Station{}); err != nil {
		return nil, fmt.Errorf("failed to migrate stations table: %w", err)
	}

	s := &GormStore{db: db}

	var count int64
	if err := db.WithContext(ctx).Model(&station.Station{}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to count stations: %w", err)
	}
	if count == 0 {
		seed := DefaultStations()
		if err := db.WithContext(ctx).Create(&seed).Error; err != nil {
			return nil, fmt.Errorf("failed to seed stations: %w", err)
		}
		count = int64(len(seed))
		logrus.WithField("stations", len(seed)).Info("Seeded stations table")
	}
	observability.CatalogStations.Set(float64(count))

	return s, nil
}

func (s *GormStore) List(ctx context.Context) ([]station.Station, error) {
	var stations []station.Station
	if err := s.db.WithContext(ctx).Order("id").Find(&stations).Error; err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, nil
}

func (s *GormStore) Get(ctx context.Context, id int) (*station.Station, error) {
	var st station.Station
	if err := s.db.WithContext(ctx).First(&st, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, station.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find station: %w", err)
	}
	return &st, nil
}

// Search filters in memory so tag matching behaves the same as the JSON
// store on every driver.
func (s *GormStore) Search(ctx context.Context, filter station.Filter) ([]station.Station, error) {
	stations, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(stations), nil
}

func (s *GormStore) Create(ctx context.Context, in station.NewStation) (*station.Station, error) {
	var created station.Station
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var highest int
		if err := tx.Model(&station.Station{}).Select("COALESCE(MAX(id), 0)").Scan(&highest).Error; err != nil {
			return fmt.Errorf("failed to read max station id: %w", err)
		}
		created = in.Station(highest + 1)
		if err := tx.Create(&created).Error; err != nil {
			return fmt.Errorf("failed to create station: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.refreshGauge(ctx)
	return &created, nil
}

func (s *GormStore) Update(ctx context.Context, id int, patch station.Patch) (*station.Station, error) {
	var updated station.Station
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return station.ErrNotFound
			}
			return fmt.Errorf("failed to find station: %w", err)
		}
		patch.Apply(&updated)
		updated.ID = id
		if err := tx.Save(&updated).Error; err != nil {
			return fmt.Errorf("failed to update station: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *GormStore) Delete(ctx context.Context, id int) error {
	result := s.db.WithContext(ctx).Delete(&station.Station{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete station: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return station.ErrNotFound
	}
	s.refreshGauge(ctx)
	return nil
}

func (s *GormStore) Genres(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, station.GenreOf)
}

func (s *GormStore) Countries(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, station.CountryOf)
}

func (s *GormStore) Languages(ctx context.Context) ([]string, error) {
	return s.distinct(ctx, station.LanguageOf)
}

func (s *GormStore) distinct(ctx context.Context, field func(station.Station) string) ([]string, error) {
	stations, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return station.Distinct(stations, field), nil
}

// Close is a no-op; the connection belongs to the database manager.
func (s *GormStore) Close() error {
	return nil
}

func (s *GormStore) refreshGauge(ctx context.Context) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&station.Station{}).Count(&count).Error; err != nil {
		logrus.WithError(err).Debug("Failed to count stations")
		return
	}
	observability.CatalogStations.Set(float64(count))
}
