package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/ledger"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// hashLookupChunk bounds the IN list of ExistingHashes
const hashLookupChunk = 500

// GormTransactionRepository implements TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByIDForTenant finds a transaction by ID within a tenant
func (r *GormTransactionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := conn(ctx, r.db).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists transactions of a tenant with the total count
func (r *GormTransactionRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ledger.TransactionFilter) ([]*ledger.Transaction, int64, error) {
	var total int64
	if err := r.filtered(ctx, tenantID, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txModels []models.TransactionModel
	query := applySortAndPage(r.filtered(ctx, tenantID, filter), filter.Filter, TransactionSortFields, "booking_date")
	if err := query.Find(&txModels).Error; err != nil {
		return nil, 0, err
	}
	return toTransactions(txModels), total, nil
}

func (r *GormTransactionRepository) filtered(ctx context.Context, tenantID uuid.UUID, filter ledger.TransactionFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.TransactionModel{}).Where("tenant_id = ?", tenantID)

	if filter.Search != "" {
		pattern := searchPattern(filter.Search)
		query = query.Where("(LOWER(counterparty) LIKE ? OR LOWER(purpose) LIKE ? OR LOWER(notes) LIKE ?)",
			pattern, pattern, pattern)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.BankAccountID != nil {
		query = query.Where("bank_account_id = ?", *filter.BankAccountID)
	}
	if filter.CategoryCode != nil {
		query = query.Where("category_code = ?", *filter.CategoryCode)
	}
	if filter.Sign != nil {
		switch *filter.Sign {
		case ledger.SignIncome:
			query = query.Where("amount > 0")
		case ledger.SignExpense:
			query = query.Where("amount < 0")
		}
	}
	if filter.FromDate != nil {
		query = query.Where("booking_date >= ?", shared.DateOnly(*filter.FromDate))
	}
	if filter.ToDate != nil {
		query = query.Where("booking_date <= ?", shared.DateOnly(*filter.ToDate))
	}
	return query
}

// FindBooked returns booked transactions with a booking date in [from, to]
func (r *GormTransactionRepository) FindBooked(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]*ledger.Transaction, error) {
	var txModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND booking_date >= ? AND booking_date <= ?",
			tenantID, ledger.StatusBooked, shared.DateOnly(from), shared.DateOnly(to)).
		Order("booking_date ASC, created_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toTransactions(txModels), nil
}

// FindUnbooked returns all unbooked transactions of the tenant
func (r *GormTransactionRepository) FindUnbooked(ctx context.Context, tenantID uuid.UUID) ([]*ledger.Transaction, error) {
	var txModels []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, ledger.StatusUnbooked).
		Order("booking_date ASC, created_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, err
	}
	return toTransactions(txModels), nil
}

// ExistingHashes returns which of the given import hashes are already stored
func (r *GormTransactionRepository) ExistingHashes(ctx context.Context, tenantID uuid.UUID, bankAccountID *uuid.UUID, hashes []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for start := 0; start < len(hashes); start += hashLookupChunk {
		end := min(start+hashLookupChunk, len(hashes))
		query := r.db.WithContext(ctx).
			Model(&models.TransactionModel{}).
			Where("tenant_id = ? AND import_hash IN ?", tenantID, hashes[start:end])
		if bankAccountID != nil {
			query = query.Where("bank_account_id = ?", *bankAccountID)
		}
		var found []string
		if err := query.Pluck("import_hash", &found).Error; err != nil {
			return nil, err
		}
		for _, h := range found {
			existing[h] = true
		}
	}
	return existing, nil
}

type directionSums struct {
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// SumByDirection returns income and expense sums in [from, to], ignoring ignored transactions.
// Expenses are returned as a positive amount.
func (r *GormTransactionRepository) SumByDirection(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (decimal.Decimal, decimal.Decimal, error) {
	var sums directionSums
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select(`COALESCE(SUM(CASE WHEN amount > 0 THEN amount ELSE 0 END), 0) AS income,
			COALESCE(SUM(CASE WHEN amount < 0 THEN -amount ELSE 0 END), 0) AS expenses`).
		Where("tenant_id = ? AND status <> ? AND booking_date >= ? AND booking_date <= ?",
			tenantID, ledger.StatusIgnored, shared.DateOnly(from), shared.DateOnly(to)).
		Scan(&sums).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return sums.Income, sums.Expenses, nil
}

type dailyAmount struct {
	BookingDate time.Time
	Amount      decimal.Decimal
}

// MonthlyTotals returns twelve income/expense buckets for year
func (r *GormTransactionRepository) MonthlyTotals(ctx context.Context, tenantID uuid.UUID, year int) ([]ledger.MonthTotal, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var rows []dailyAmount
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Select("booking_date, amount").
		Where("tenant_id = ? AND status <> ? AND booking_date >= ? AND booking_date <= ?",
			tenantID, ledger.StatusIgnored, from, to).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make([]ledger.MonthTotal, 12)
	for i := range totals {
		totals[i] = ledger.MonthTotal{Month: i + 1, Income: decimal.Zero, Expenses: decimal.Zero}
	}
	for _, row := range rows {
		bucket := &totals[row.BookingDate.Month()-1]
		if row.Amount.IsPositive() {
			bucket.Income = bucket.Income.Add(row.Amount)
		} else {
			bucket.Expenses = bucket.Expenses.Add(row.Amount.Abs())
		}
	}
	return totals, nil
}

// CountByStatus counts transactions of the tenant in a status
func (r *GormTransactionRepository) CountByStatus(ctx context.Context, tenantID uuid.UUID, status ledger.Status) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.TransactionModel{}).
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a transaction; a stale copy gets shared.ErrConcurrencyConflict
func (r *GormTransactionRepository) Save(ctx context.Context, t *ledger.Transaction) error {
	model := models.TransactionModelFromDomain(t)
	return saveVersioned(ctx, r.db, model, t)
}

// SaveBatch creates or updates multiple transactions in one database transaction
func (r *GormTransactionRepository) SaveBatch(ctx context.Context, txs []*ledger.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	return NewGormTransactor(r.db).WithinTransaction(ctx, func(ctx context.Context) error {
		for _, t := range txs {
			if err := saveVersioned(ctx, r.db, models.TransactionModelFromDomain(t), t); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteForTenant deletes a transaction within a tenant
func (r *GormTransactionRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&models.TransactionModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func toTransactions(txModels []models.TransactionModel) []*ledger.Transaction {
	txs := make([]*ledger.Transaction, len(txModels))
	for i := range txModels {
		txs[i] = txModels[i].ToDomain()
	}
	return txs
}

// Ensure GormTransactionRepository implements TransactionRepository
var _ ledger.TransactionRepository = (*GormTransactionRepository)(nil)
