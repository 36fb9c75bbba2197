package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kontor/backend/internal/domain/company"
	"github.com/kontor/backend/internal/domain/shared"
	"github.com/kontor/backend/internal/infrastructure/persistence"
)

func TestCompanyRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := NewTestDB(t)
	repo := persistence.NewGormCompanyRepository(testDB.DB)
	ctx := context.Background()

	first, err := company.NewCompany("Muster GmbH", "Info@Muster.de", "MUSTER01")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	second, err := company.NewCompany("Beispiel UG", "kontakt@beispiel.de", "BEISP001")
	require.NoError(t, err)
	second.ReferredByCode = first.ReferralCode
	require.NoError(t, repo.Save(ctx, second))

	t.Run("finds by id with defaults", func(t *testing.T) {
		found, err := repo.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Muster GmbH", found.Name)
		assert.Equal(t, "info@muster.de", found.Email)
		assert.Equal(t, company.ChartSKR03, found.DATEV.Chart)
		assert.Equal(t, company.PlanFree, found.Subscription.Plan)
		assert.Equal(t, 14, found.PaymentTermsDays)
	})

	t.Run("finds by referral code", func(t *testing.T) {
		found, err := repo.FindByReferralCode(ctx, "MUSTER01")
		require.NoError(t, err)
		assert.Equal(t, first.ID, found.ID)

		exists, err := repo.ExistsByReferralCode(ctx, "BEISP001")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByReferralCode(ctx, "UNKNOWN1")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("referral codes are unique", func(t *testing.T) {
		dup, err := company.NewCompany("Kopie GmbH", "kopie@example.de", "MUSTER01")
		require.NoError(t, err)
		assert.Error(t, repo.Save(ctx, dup))
	})

	t.Run("finds by stripe customer after subscription update", func(t *testing.T) {
		first.Subscription.StripeCustomerID = "cus_123"
		first.Subscription.Plan = company.PlanProfessional
		first.Subscription.Status = company.SubscriptionActive
		end := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
		first.Subscription.CurrentPeriodEnd = &end
		require.NoError(t, repo.Save(ctx, first))

		found, err := repo.FindByStripeCustomerID(ctx, "cus_123")
		require.NoError(t, err)
		assert.Equal(t, company.PlanProfessional, found.Subscription.Plan)
		require.NotNil(t, found.Subscription.CurrentPeriodEnd)
		assert.True(t, end.Equal(*found.Subscription.CurrentPeriodEnd))

		_, err = repo.FindByStripeCustomerID(ctx, "cus_missing")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("lists all company ids for the scheduler", func(t *testing.T) {
		ids, err := repo.FindAllActiveIDs(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, ids)
	})
}
