package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	n, err := NewNotification(uuid.New(), TypeInvoiceOverdue, " Rechnung RE-2024-0001 ist überfällig ", "", "/invoices/1")
	require.NoError(t, err)
	assert.Equal(t, "Rechnung RE-2024-0001 ist überfällig", n.Title)
	assert.False(t, n.Read)

	_, err = NewNotification(uuid.New(), "sms", "x", "", "")
	assert.Error(t, err)
	_, err = NewNotification(uuid.New(), TypeSystem, "", "", "")
	assert.Error(t, err)
}

func TestMarkRead(t *testing.T) {
	n, err := NewNotification(uuid.New(), TypeSystem, "Hallo", "", "")
	require.NoError(t, err)
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n.MarkRead(first)
	n.MarkRead(first.Add(time.Hour))
	assert.True(t, n.Read)
	assert.Equal(t, first, *n.ReadAt)
}

func TestVisibleTo(t *testing.T) {
	n, err := NewNotification(uuid.New(), TypeSystem, "Hallo", "", "")
	require.NoError(t, err)
	user := uuid.New()
	assert.True(t, n.VisibleTo(user))
	other := uuid.New()
	n.UserID = &other
	assert.False(t, n.VisibleTo(user))
}
