package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/kontor/backend/internal/domain/shared"
)

type txKey struct{}

// GormTransactor implements shared.Transactor by carrying the open *gorm.DB
// transaction in the context
type GormTransactor struct {
	db *gorm.DB
}

// NewGormTransactor creates a GormTransactor
func NewGormTransactor(db *gorm.DB) *GormTransactor {
	return &GormTransactor{db: db}
}

// WithinTransaction runs fn in a transaction, or in the enclosing one when
// ctx already carries a transaction
func (t *GormTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx, or db bound to ctx
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

type versionedModel interface {
	SetVersion(version int)
}

// saveVersioned inserts a new aggregate or updates a stored one only when
// its version still equals the version the aggregate was loaded with. The
// aggregate's version is bumped on a successful update; a stale copy gets
// shared.ErrConcurrencyConflict.
func saveVersioned(ctx context.Context, db *gorm.DB, model versionedModel, agg shared.AggregateRoot) error {
	tx := conn(ctx, db)
	version := agg.GetVersion()

	model.SetVersion(version + 1)
	result := tx.Model(model).
		Where("version = ?", version).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		agg.IncrementVersion()
		return nil
	}

	var count int64
	if err := tx.Model(model).Where("id = ?", agg.GetID()).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrConcurrencyConflict
	}
	model.SetVersion(version)
	return tx.Select("*").Create(model).Error
}
