package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/config"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestConfigurePool(t *testing.T) {
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	configurePool(mockDB, &config.DatabaseConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30,
		ConnMaxIdleTime: 5,
	})

	assert.Equal(t, 25, mockDB.Stats().MaxOpenConnections)
}

func TestDatabase_Ping(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing()
		assert.NoError(t, db.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports failures", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))
		assert.Error(t, db.Ping(context.Background()))
	})

	t.Run("honours the deadline", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectPing().WillDelayFor(time.Second)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		assert.Error(t, db.Ping(ctx))
	})
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()
	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNextSequence_Postgres(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	tenantID := uuid.New()

	t.Run("upserts and returns the new value", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO number_sequences .* ON CONFLICT \(tenant_id, name\) DO UPDATE .* RETURNING value`).
			WithArgs(tenantID, "invoice:2024").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(7))

		got, err := nextSequence(context.Background(), db.DB, tenantID, "invoice:2024")
		require.NoError(t, err)
		assert.Equal(t, int64(7), got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wraps errors with the sequence name", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO number_sequences`).
			WillReturnError(errors.New("deadlock detected"))

		_, err := nextSequence(context.Background(), db.DB, tenantID, "customer")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "next customer sequence")
	})
}

func TestGormCompanyRepository_Postgres(t *testing.T) {
	db, mock, mockDB := newMockDatabase(t)
	defer mockDB.Close()
	repo := NewGormCompanyRepository(db.DB)
	ctx := context.Background()

	t.Run("lists company ids oldest first", func(t *testing.T) {
		a, b := uuid.New(), uuid.New()
		mock.ExpectQuery(`SELECT "id" FROM "companies" ORDER BY created_at ASC`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(a.String()).AddRow(b.String()))

		ids, err := repo.FindAllActiveIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a, b}, ids)
	})

	t.Run("maps missing rows to not found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT \* FROM "companies" WHERE referral_code = \$1`).
			WithArgs("NOPE1234", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := repo.FindByReferralCode(ctx, "NOPE1234")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("counts referral codes", func(t *testing.T) {
		mock.ExpectQuery(`SELECT count\(\*\) FROM "companies" WHERE referral_code = \$1`).
			WithArgs("TAKEN123").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsByReferralCode(ctx, "TAKEN123")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
