package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"trade-journal-go/internal/models"
)

// GormStore implements TradeStore and PreferenceStore on a gorm connection.
type GormStore struct {
	db *gorm.DB
}

var (
	_ TradeStore      = (*GormStore)(nil)
	_ PreferenceStore = (*GormStore)(nil)
)

// NewGormStore wraps an already-migrated gorm connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) List(ctx context.Context, f TradeFilter) ([]models.Trade, error) {
	var trades []models.Trade
	if err := s.query(ctx, f).Order("trade_date asc, id asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

func (s *GormStore) Get(ctx context.Context, userID, id string) (models.Trade, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, id).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Trade{}, ErrNotFound
	}
	if err != nil {
		return models.Trade{}, fmt.Errorf("failed to get trade: %w", err)
	}
	return trade, nil
}

func (s *GormStore) Insert(ctx context.Context, t *models.Trade) error {
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

func (s *GormStore) Update(ctx context.Context, t *models.Trade) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", t.UserID, t.ID).
		Select("*").Omit("created_at").
		Updates(t)
	if result.Error != nil {
		return fmt.Errorf("failed to update trade: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Delete(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		Delete(&models.Trade{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete trade: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) Count(ctx context.Context, f TradeFilter) (int64, error) {
	var count int64
	if err := s.query(ctx, f).Model(&models.Trade{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

func (s *GormStore) query(ctx context.Context, f TradeFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Where("user_id = ?", f.UserID)
	if f.Instrument != "" {
		q = q.Where("instrument = ?", f.Instrument)
	}
	if f.Session != "" {
		q = q.Where("session = ?", f.Session)
	}
	if f.From != nil {
		q = q.Where("trade_date >= ?", *f.From)
	}
	if f.To != nil {
		q = q.Where("trade_date < ?", *f.To)
	}
	return q
}

func (s *GormStore) GetPreferences(ctx context.Context, userID string) (models.RiskPreferences, error) {
	var prefs models.RiskPreferences
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DefaultRiskPreferences(userID), nil
	}
	if err != nil {
		return models.RiskPreferences{}, fmt.Errorf("failed to get preferences: %w", err)
	}
	return prefs, nil
}

func (s *GormStore) SavePreferences(ctx context.Context, prefs models.RiskPreferences) error {
	if err := s.db.WithContext(ctx).Save(&prefs).Error; err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
