// Package local implements store.Store on a SQLite file via GORM. It is the
// fallback selected at startup when the hosted backend is unreachable, so a
// user can keep recording transactions offline.
package local

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/budget-ledger/internal/domain"
	"github.com/dvloznov/budget-ledger/internal/store"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the SQLite database at dbPath and migrates
// the schema.
func NewStore(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("local.NewStore: opening database: %w", err)
	}
	if err := db.AutoMigrate(&transactionModel{}, &portfolioModel{}, &budgetConfigModel{}, &historyModel{}); err != nil {
		return nil, fmt.Errorf("local.NewStore: migrating schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func (s *Store) InsertTransaction(ctx context.Context, t *domain.Transaction, rec *domain.HistoryRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(toTransactionModel(t)).Error; err != nil {
			return err
		}
		if rec != nil {
			return tx.Create(toHistoryModel(rec)).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("local.InsertTransaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	var m transactionModel
	err := s.db.WithContext(ctx).
		Where("transaction_id = ? AND user_id = ? AND is_deleted = ?", transactionID, userID, false).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return m.toDomain(), nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]*domain.Transaction, error) {
	q := s.db.WithContext(ctx).
		Where("user_id = ? AND is_deleted = ?", userID, false)
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		q = q.Where("date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("date <= ?", f.To)
	}
	q = q.Order("date DESC, created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var models []transactionModel
	if err := q.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("local.ListTransactions: %w", err)
	}
	result := make([]*domain.Transaction, 0, len(models))
	for i := range models {
		result = append(result, models[i].toDomain())
	}
	return result, nil
}

func (s *Store) SumRefunds(ctx context.Context, userID, originalID string) (decimal.Decimal, error) {
	var models []transactionModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND refund_for = ? AND is_deleted = ?",
			userID, string(domain.TypeRefund), originalID, false).
		Find(&models).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("local.SumRefunds: %w", err)
	}
	// Summing in Go keeps decimal precision; SQLite SUM would go through
	// floating point.
	sum := decimal.Zero
	for i := range models {
		sum = sum.Add(models[i].Amount)
	}
	return sum, nil
}

func (s *Store) ApplyRefund(ctx context.Context, refund, original *domain.Transaction, rec *domain.HistoryRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur transactionModel
		if err := tx.Where("transaction_id = ? AND user_id = ? AND is_deleted = ?",
			original.TransactionID, original.UserID, false).First(&cur).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Create(toTransactionModel(refund)).Error; err != nil {
			return err
		}
		if err := tx.Save(toTransactionModel(original)).Error; err != nil {
			return err
		}
		if rec != nil {
			return tx.Create(toHistoryModel(rec)).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("local.ApplyRefund: %w", err)
	}
	return nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction, rec *domain.HistoryRecord) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur transactionModel
		if err := tx.Where("transaction_id = ? AND user_id = ?",
			t.TransactionID, t.UserID).First(&cur).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Save(toTransactionModel(t)).Error; err != nil {
			return err
		}
		if rec != nil {
			return tx.Create(toHistoryModel(rec)).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("local.UpdateTransaction: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, userID, transactionID string) ([]*domain.HistoryRecord, error) {
	var models []historyModel
	err := s.db.WithContext(ctx).
		Where("transaction_id = ? AND user_id = ?", transactionID, userID).
		Order("recorded_at").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("local.ListHistory: %w", err)
	}
	result := make([]*domain.HistoryRecord, 0, len(models))
	for i := range models {
		result = append(result, models[i].toDomain())
	}
	return result, nil
}

func (s *Store) InsertPortfolio(ctx context.Context, p *domain.Portfolio) error {
	if err := s.db.WithContext(ctx).Create(toPortfolioModel(p)).Error; err != nil {
		return fmt.Errorf("local.InsertPortfolio: %w", err)
	}
	return nil
}

func (s *Store) GetPortfolio(ctx context.Context, userID, portfolioID string) (*domain.Portfolio, error) {
	var m portfolioModel
	err := s.db.WithContext(ctx).
		Where("portfolio_id = ? AND user_id = ?", portfolioID, userID).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return m.toDomain(), nil
}

func (s *Store) ListPortfolios(ctx context.Context, userID string) ([]*domain.Portfolio, error) {
	var models []portfolioModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("name").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("local.ListPortfolios: %w", err)
	}
	result := make([]*domain.Portfolio, 0, len(models))
	for i := range models {
		result = append(result, models[i].toDomain())
	}
	return result, nil
}

func (s *Store) UpdatePortfolio(ctx context.Context, p *domain.Portfolio) error {
	var cur portfolioModel
	err := s.db.WithContext(ctx).
		Where("portfolio_id = ? AND user_id = ?", p.PortfolioID, p.UserID).
		First(&cur).Error
	if err != nil {
		return notFound(err)
	}
	if err := s.db.WithContext(ctx).Save(toPortfolioModel(p)).Error; err != nil {
		return fmt.Errorf("local.UpdatePortfolio: %w", err)
	}
	return nil
}

func (s *Store) DeactivatePortfolio(ctx context.Context, userID, portfolioID string) error {
	res := s.db.WithContext(ctx).
		Model(&portfolioModel{}).
		Where("portfolio_id = ? AND user_id = ?", portfolioID, userID).
		Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("local.DeactivatePortfolio: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) UpsertBudgetConfig(ctx context.Context, c *domain.BudgetConfig) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cur budgetConfigModel
		err := tx.Where("user_id = ? AND period = ?", c.UserID, c.Period).First(&cur).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(toBudgetConfigModel(c)).Error
		case err != nil:
			return err
		default:
			m := toBudgetConfigModel(c)
			m.ConfigID = cur.ConfigID
			m.CreatedAt = cur.CreatedAt
			return tx.Save(m).Error
		}
	})
	if err != nil {
		return fmt.Errorf("local.UpsertBudgetConfig: %w", err)
	}
	return nil
}

func (s *Store) GetBudgetConfig(ctx context.Context, userID, period string) (*domain.BudgetConfig, error) {
	var m budgetConfigModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND period = ?", userID, period).
		First(&m).Error
	if err != nil {
		return nil, notFound(err)
	}
	return m.toDomain(), nil
}

// Ensure Store implements the full persistence contract.
var _ store.Store = (*Store)(nil)
