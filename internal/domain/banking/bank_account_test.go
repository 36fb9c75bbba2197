package banking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validIBAN = "DE89 3704 0044 0532 0130 00"

func TestNewBankAccount(t *testing.T) {
	a, err := NewBankAccount(uuid.New(), "Geschäftskonto", validIBAN, "cobadeffxxx", "Commerzbank", "")
	require.NoError(t, err)
	assert.Equal(t, "DE89370400440532013000", a.IBAN)
	assert.Equal(t, "COBADEFFXXX", a.BIC)
	assert.Equal(t, ProviderCSV, a.Provider)
	assert.Equal(t, StatusActive, a.Status)

	_, err = NewBankAccount(uuid.New(), "Konto", "DE89370400440532013001", "", "", ProviderManual)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_IBAN", de.Code)

	_, err = NewBankAccount(uuid.New(), " ", validIBAN, "", "", ProviderManual)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "INVALID_NAME", de.Code)
}

func TestFinAPIAccount(t *testing.T) {
	a, err := NewFinAPIAccount(uuid.New(), 11, 22, "Giro", validIBAN, "", "Sparkasse")
	require.NoError(t, err)
	require.NoError(t, a.CanSync())

	err = a.Update("Giro", "GB82WEST12345698765432", "", "")
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "IBAN_LOCKED", de.Code)
	require.NoError(t, a.Update("Giro neu", validIBAN, "", ""))

	now := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC), a.SyncFrom(now, 90))

	a.RecordSync(decimal.RequireFromString("1523.17"), now)
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), a.SyncFrom(now, 90))

	a.Disconnect()
	assert.Error(t, a.CanSync())

	require.NoError(t, a.Reconnect(99))
	assert.NoError(t, a.CanSync())
	assert.Equal(t, int64(99), *a.FinAPIConnectionID)
}

func TestArchiveAndBalance(t *testing.T) {
	a, err := NewBankAccount(uuid.New(), "Konto", validIBAN, "", "", ProviderCSV)
	require.NoError(t, err)
	assert.Error(t, a.CanSync())

	a.AdjustBalance(decimal.NewFromInt(100), time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	a.AdjustBalance(decimal.NewFromInt(-30), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "70", a.Balance.String())
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *a.BalanceDate)

	require.NoError(t, a.Archive())
	assert.Error(t, a.Archive())
	assert.Error(t, a.CanImport())
	assert.Error(t, a.Update("x", validIBAN, "", ""))
}
