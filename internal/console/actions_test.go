// AngelaMos | 2026
// actions_test.go

package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/coupon"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/offer"
	"github.com/carterperez-dev/reseller-console/internal/order"
	"github.com/carterperez-dev/reseller-console/internal/plan"
)

type recordingConfirmer struct {
	answer  bool
	prompts []string
}

func (c *recordingConfirmer) Confirm(_ context.Context, prompt string) bool {
	c.prompts = append(c.prompts, prompt)
	return c.answer
}

func mountedLoop(t *testing.T) (*Loop, *memStore) {
	t.Helper()
	store := newMemStore()
	l := newTestLoop(t, store, 0)
	require.NoError(t, l.Mount(context.Background()))
	return l, store
}

func TestSetMembershipRefreshes(t *testing.T) {
	l, _ := mountedLoop(t)
	ctx := context.Background()

	res, err := l.SetMembership(ctx, "u1", member.MembershipPremium)
	require.NoError(t, err)
	assert.True(t, res.Applied)

	snap := l.Snapshot()
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, member.MembershipPremium, snap.Users[0].MembershipType)
	assert.Equal(t, 2, snap.Analytics.PremiumUsers)
}

func TestSetMembershipRejectsUnknownType(t *testing.T) {
	l, store := mountedLoop(t)

	res, err := l.SetMembership(context.Background(), "u1", "gold")
	require.ErrorIs(t, err, core.ErrInvalidInput)
	assert.False(t, res.Applied)

	res, err = l.SetMembership(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Zero(t, store.writes.Load())
}

func TestCreateRejectsUnknownEnumValues(t *testing.T) {
	l, store := mountedLoop(t)
	ctx := context.Background()

	_, err := l.CreateOffer(ctx, OfferInput{
		Type: "boat", PlanName: "VPS-2", OriginalPrice: "₹1,000", DiscountPrice: "₹750",
	})
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = l.CreateCoupon(ctx, CouponInput{
		Code: "x", DiscountType: "bogo", DiscountValue: 5, ExpiryDate: "2031-01-01",
	})
	require.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = l.CreatePlan(ctx, PlanInput{Type: "boat", Name: "Boat", Price: "₹1"})
	require.ErrorIs(t, err, core.ErrInvalidInput)

	assert.Zero(t, store.writes.Load())
}

func TestConfirmOrder(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		applied bool
		message string
		writes  int32
	}{
		{"by internal id", "o1", true, MsgOrderConfirmed, 1},
		{"by order id", " ORD-1001 ", true, MsgOrderConfirmed, 1},
		{"unknown", "ORD-404", false, MsgOrderNotFound, 1},
		{"blank", "   ", false, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store := mountedLoop(t)
			before := l.Snapshot().Orders

			res, err := l.ConfirmOrder(context.Background(), tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, res.Applied)
			assert.Equal(t, tt.message, res.Message)
			assert.Equal(t, tt.writes, store.writes.Load())

			after := l.Snapshot().Orders
			if tt.applied {
				assert.Equal(t, order.StatusConfirmed, after[0].Status)
			} else {
				assert.Equal(t, before, after)
			}
		})
	}
}

func TestDeclinedConfirmationLeavesState(t *testing.T) {
	actions := []struct {
		name   string
		prompt string
		run    func(*Loop, Confirmer) (Result, error)
	}{
		{"reset order", PromptResetOrder, func(l *Loop, c Confirmer) (Result, error) {
			return l.ResetOrder(context.Background(), c, "o2")
		}},
		{"delete order", PromptDeleteOrder, func(l *Loop, c Confirmer) (Result, error) {
			return l.DeleteOrder(context.Background(), c, "o1")
		}},
		{"delete offer", PromptDeleteOffer, func(l *Loop, c Confirmer) (Result, error) {
			return l.DeleteOffer(context.Background(), c, "so1")
		}},
		{"delete coupon", PromptDeleteCoupon, func(l *Loop, c Confirmer) (Result, error) {
			return l.DeleteCoupon(context.Background(), c, "c1")
		}},
		{"reset coupon", PromptResetCoupon, func(l *Loop, c Confirmer) (Result, error) {
			return l.ResetCouponUsage(context.Background(), c, "c1")
		}},
		{"delete plan", PromptDeletePlan, func(l *Loop, c Confirmer) (Result, error) {
			return l.DeletePlan(context.Background(), c, "p1")
		}},
	}

	for _, a := range actions {
		t.Run(a.name, func(t *testing.T) {
			l, store := mountedLoop(t)
			before := l.Snapshot()
			confirmer := &recordingConfirmer{answer: false}

			res, err := a.run(l, confirmer)
			require.NoError(t, err)
			assert.False(t, res.Applied)
			assert.Equal(t, []string{a.prompt}, confirmer.prompts)
			assert.Zero(t, store.writes.Load())
			assert.Equal(t, before, l.Snapshot())
		})
	}
}

func TestNilConfirmerDeclines(t *testing.T) {
	l, store := mountedLoop(t)

	res, err := l.DeleteOrder(context.Background(), nil, "o1")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Zero(t, store.writes.Load())
}

func TestAcceptedDeletesAndResets(t *testing.T) {
	l, _ := mountedLoop(t)
	ctx := context.Background()
	yes := &recordingConfirmer{answer: true}

	_, err := l.DeleteOrder(ctx, yes, "o1")
	require.NoError(t, err)
	_, err = l.ResetOrder(ctx, yes, "o2")
	require.NoError(t, err)
	_, err = l.ResetCouponUsage(ctx, yes, "c1")
	require.NoError(t, err)
	_, err = l.DeleteOffer(ctx, yes, "so1")
	require.NoError(t, err)
	_, err = l.DeletePlan(ctx, yes, "p1")
	require.NoError(t, err)

	snap := l.Snapshot()
	require.Len(t, snap.Orders, 1)
	assert.Equal(t, order.StatusPending, snap.Orders[0].Status)
	assert.Zero(t, snap.Coupons[0].UsedCount)
	assert.Empty(t, snap.SpecialOffers)
	assert.Empty(t, snap.Plans)
	assert.Equal(t, uint64(6), snap.Generation)
}

func TestFailedMutationStillRefreshes(t *testing.T) {
	l, _ := mountedLoop(t)

	_, err := l.DeleteOrder(context.Background(), &recordingConfirmer{answer: true}, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, uint64(2), l.Snapshot().Generation)
}

func TestCreateOffer(t *testing.T) {
	l, _ := mountedLoop(t)

	res, err := l.CreateOffer(context.Background(), OfferInput{
		PlanName:      "Stone",
		OriginalPrice: "₹1,000",
		DiscountPrice: "₹750",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	offers := l.Snapshot().SpecialOffers
	require.Len(t, offers, 2)
	created := offers[1]
	assert.Equal(t, 25, created.DiscountPercentage)
	assert.Equal(t, offer.TypeMinecraft, created.Type)
	assert.True(t, created.IsActive)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "₹1,000", created.OriginalPrice)
}

func TestCreateOfferIgnoresBadInput(t *testing.T) {
	inputs := map[string]OfferInput{
		"missing plan":     {OriginalPrice: "₹100", DiscountPrice: "₹50"},
		"missing discount": {PlanName: "Stone", OriginalPrice: "₹100"},
		"zero original":    {PlanName: "Stone", OriginalPrice: "₹0", DiscountPrice: "₹0"},
		"not a price":      {PlanName: "Stone", OriginalPrice: "free", DiscountPrice: "₹10"},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			l, store := mountedLoop(t)

			res, err := l.CreateOffer(context.Background(), in)
			require.NoError(t, err)
			assert.False(t, res.Applied)
			assert.Zero(t, store.writes.Load())
			assert.Equal(t, uint64(1), l.Snapshot().Generation)
		})
	}
}

func TestToggleOfferAndCoupon(t *testing.T) {
	l, _ := mountedLoop(t)
	ctx := context.Background()

	_, err := l.ToggleOffer(ctx, "so1")
	require.NoError(t, err)
	_, err = l.ToggleCoupon(ctx, "c1")
	require.NoError(t, err)

	snap := l.Snapshot()
	assert.False(t, snap.SpecialOffers[0].IsActive)
	assert.False(t, snap.Coupons[0].IsActive)

	_, err = l.ToggleCoupon(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, l.Snapshot().Coupons[0].IsActive)
}

func TestCreateCoupon(t *testing.T) {
	l, _ := mountedLoop(t)

	res, err := l.CreateCoupon(context.Background(), CouponInput{
		Code:          "summer25",
		DiscountValue: 25,
		ExpiryDate:    "2030-06-30T00:00:00Z",
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	coupons := l.Snapshot().Coupons
	require.Len(t, coupons, 2)
	c := coupons[1]
	assert.Equal(t, "SUMMER25", c.Code)
	assert.Equal(t, coupon.DiscountPercentage, c.DiscountType)
	assert.Equal(t, coupon.DefaultUsageLimit, c.UsageLimit)
	assert.Equal(t, "2030-06-30", c.ExpiryDate)
	assert.Zero(t, c.UsedCount)
	assert.True(t, c.IsActive)
}

func TestCreateCouponIgnoresBadInput(t *testing.T) {
	inputs := map[string]CouponInput{
		"no code":    {DiscountValue: 10, ExpiryDate: "2030-01-01"},
		"zero value": {Code: "X", ExpiryDate: "2030-01-01"},
		"no expiry":  {Code: "X", DiscountValue: 10},
		"bad expiry": {Code: "X", DiscountValue: 10, ExpiryDate: "next week"},
		"blank code": {Code: "   ", DiscountValue: 10, ExpiryDate: "2030-01-01"},
	}

	for name, in := range inputs {
		t.Run(name, func(t *testing.T) {
			l, store := mountedLoop(t)

			res, err := l.CreateCoupon(context.Background(), in)
			require.NoError(t, err)
			assert.False(t, res.Applied)
			assert.Zero(t, store.writes.Load())
		})
	}
}

func TestCreateCouponDuplicateCode(t *testing.T) {
	l, _ := mountedLoop(t)

	_, err := l.CreateCoupon(context.Background(), CouponInput{
		Code:          "welcome",
		DiscountValue: 5,
		ExpiryDate:    "2030-01-01",
	})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.Len(t, l.Snapshot().Coupons, 1)
}

func TestCreatePlanDefaults(t *testing.T) {
	l, _ := mountedLoop(t)

	res, err := l.CreatePlan(context.Background(), PlanInput{
		Name:  "Iron",
		Price: "₹299",
		Specs: plan.Specs{"ram": "4GB"},
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	plans := l.Snapshot().Plans
	require.Len(t, plans, 2)
	p := plans[1]
	assert.Equal(t, plan.DefaultType, p.Type)
	assert.Equal(t, plan.DefaultCategory, p.Category)
	assert.True(t, p.IsActive)
	assert.Equal(t, "4GB", p.Specs["ram"])

	res, err = l.CreatePlan(context.Background(), PlanInput{Name: "NoPrice"})
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestUpdatePlanOverlaysFields(t *testing.T) {
	l, _ := mountedLoop(t)
	inactive := false

	res, err := l.UpdatePlan(context.Background(), "p1", PlanInput{
		Price:    "₹149",
		IsActive: &inactive,
	})
	require.NoError(t, err)
	assert.True(t, res.Applied)

	p := l.Snapshot().Plans[0]
	assert.Equal(t, "Dirt", p.Name)
	assert.Equal(t, "₹149", p.Price)
	assert.False(t, p.IsActive)
	assert.Equal(t, "2GB", p.Specs["ram"])

	_, err = l.UpdatePlan(context.Background(), "missing", PlanInput{Name: "x"})
	assert.ErrorIs(t, err, core.ErrNotFound)
}
