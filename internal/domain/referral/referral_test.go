package referral

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := NewCode()
		require.NoError(t, err)
		assert.True(t, ValidCode(code), code)
		assert.False(t, seen[code])
		seen[code] = true
	}
}

func TestValidCode(t *testing.T) {
	assert.False(t, ValidCode(""))
	assert.False(t, ValidCode("abc"))
	assert.False(t, ValidCode("0OIl0OIl"), "base58 excludes 0, O, I and l")
	assert.True(t, ValidCode("3yZe7d"))
}

func TestNewReferral(t *testing.T) {
	referrer, referred := uuid.New(), uuid.New()

	t.Run("valid", func(t *testing.T) {
		r, err := NewReferral(referrer, referred, "3yZe7d")
		require.NoError(t, err)
		assert.Equal(t, referrer, r.TenantID)
		assert.Equal(t, StatusPending, r.Status)
		assert.True(t, r.RewardAmount.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, int64(1000), r.RewardCents())
	})

	t.Run("self referral", func(t *testing.T) {
		_, err := NewReferral(referrer, referrer, "3yZe7d")
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "SELF_REFERRAL", de.Code)
	})
}

func TestReferralLifecycle(t *testing.T) {
	r, err := NewReferral(uuid.New(), uuid.New(), "3yZe7d")
	require.NoError(t, err)

	require.Error(t, r.MarkRewarded(time.Now(), "cbtxn_1"))
	require.NoError(t, r.Convert(time.Now()))
	assert.Len(t, r.GetDomainEvents(), 1)
	require.Error(t, r.Convert(time.Now()))
	require.NoError(t, r.MarkRewarded(time.Now(), "cbtxn_1"))
	assert.Equal(t, StatusRewarded, r.Status)
	assert.Error(t, r.Expire())
}

func TestSummarize(t *testing.T) {
	mk := func(s Status) *Referral {
		return &Referral{Status: s, RewardAmount: DefaultReward}
	}
	stats := Summarize([]*Referral{mk(StatusPending), mk(StatusConverted), mk(StatusRewarded), mk(StatusRewarded), mk(StatusExpired)})
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 3, stats.Converted)
	assert.Equal(t, "20", stats.RewardTotal.String())
}
