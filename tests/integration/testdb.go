// Package integration runs repository tests against a real PostgreSQL started
// with testcontainers and migrated with the production migrations.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kontor/backend/internal/infrastructure/migration"
)

// TestDB is a migrated database in its own container
type TestDB struct {
	DB *gorm.DB
	t  *testing.T
}

// NewTestDB starts a PostgreSQL container, applies migrations/ and registers
// cleanup of both the connection and the container. Set TEST_DB_DEBUG to log
// every statement.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("kontor_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	level := logger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = logger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(level)})
	require.NoError(t, err, "connect to test database")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(5)
	t.Cleanup(func() { _ = sqlDB.Close() })

	m, err := migration.New(sqlDB, migrationsDir(t), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, m.Up(), "apply migrations")

	return &TestDB{DB: db, t: t}
}

// migrationsDir walks up from this file to the module's migrations/
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	require.True(t, ok)
	for dir := filepath.Dir(filename); dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
		path := filepath.Join(dir, "migrations")
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path
		}
	}
	t.Fatal("migrations directory not found")
	return ""
}

// CreateTestCompany inserts a company row so that tenant-scoped tables can
// reference it.
func (tdb *TestDB) CreateTestCompany(companyID fmt.Stringer) {
	tdb.t.Helper()

	short := companyID.String()[:8]
	err := tdb.DB.Exec(`
		INSERT INTO companies (id, name, email, referral_code)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, companyID.String(), "Test GmbH "+short, "test-"+short+"@example.com", "T"+short).Error
	require.NoError(tdb.t, err, "create test company")
}
