// AngelaMos | 2026
// actions.go

package console

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/reseller-console/internal/core"
	"github.com/carterperez-dev/reseller-console/internal/coupon"
	"github.com/carterperez-dev/reseller-console/internal/member"
	"github.com/carterperez-dev/reseller-console/internal/offer"
	"github.com/carterperez-dev/reseller-console/internal/plan"
)

const (
	PromptResetOrder   = "Are you sure you want to reset this order to pending status?"
	PromptDeleteOrder  = "Are you sure you want to delete this order? This action cannot be undone."
	PromptDeleteOffer  = "Are you sure you want to delete this special offer?"
	PromptDeleteCoupon = "Are you sure you want to delete this coupon?"
	PromptResetCoupon  = "Are you sure you want to reset the usage count for this coupon?"
	PromptDeletePlan   = "Are you sure you want to delete this plan?"
)

const (
	MsgOrderConfirmed = "Order confirmed successfully!"
	MsgOrderNotFound  = "Order not found!"
)

// Confirmer answers a yes/no question before a destructive action. It may
// block until the operator answers.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Result reports whether an action reached the backing store. Applied is
// false for declined confirmations and for input that was ignored.
type Result struct {
	Applied bool   `json:"applied"`
	Message string `json:"message,omitempty"`
}

type OfferInput struct {
	Type          string `json:"type"          validate:"omitempty,oneof=minecraft vps domain"`
	PlanName      string `json:"planName"`
	OriginalPrice string `json:"originalPrice"`
	DiscountPrice string `json:"discountPrice"`
}

type CouponInput struct {
	Code          string  `json:"code"`
	DiscountType  string  `json:"discountType"  validate:"omitempty,oneof=percentage fixed"`
	DiscountValue float64 `json:"discountValue" validate:"gte=0"`
	UsageLimit    int     `json:"usageLimit"    validate:"gte=0"`
	ExpiryDate    string  `json:"expiryDate"`
}

type PlanInput struct {
	Type     string     `json:"type"     validate:"omitempty,oneof=minecraft vps domain"`
	Category string     `json:"category" validate:"omitempty,max=50"`
	Name     string     `json:"name"     validate:"max=200"`
	Price    string     `json:"price"    validate:"max=50"`
	Specs    plan.Specs `json:"specs"`
	IsActive *bool      `json:"isActive"`
}

func (l *Loop) SetMembership(
	ctx context.Context,
	userID, membershipType string,
) (Result, error) {
	if userID == "" || membershipType == "" {
		return Result{}, nil
	}
	if !member.ValidMembership(membershipType) {
		return Result{}, unknownValue("membership type", membershipType)
	}
	return l.mutate(ctx, "set_membership", func(ctx context.Context) error {
		return l.store.SetUserMembership(ctx, userID, membershipType)
	})
}

// ConfirmOrder accepts either the internal id or the human order id.
func (l *Loop) ConfirmOrder(ctx context.Context, ref string) (Result, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Result{}, nil
	}

	var found bool
	res, err := l.mutate(ctx, "confirm_order", func(ctx context.Context) error {
		var err error
		found, err = l.store.ConfirmOrder(ctx, ref)
		return err
	})
	if err != nil {
		return res, err
	}
	if !found {
		return Result{Message: MsgOrderNotFound}, nil
	}
	return Result{Applied: true, Message: MsgOrderConfirmed}, nil
}

func (l *Loop) ResetOrder(ctx context.Context, c Confirmer, id string) (Result, error) {
	return l.destructive(ctx, c, PromptResetOrder, "reset_order", func(ctx context.Context) error {
		return l.store.ResetOrder(ctx, id)
	})
}

func (l *Loop) DeleteOrder(ctx context.Context, c Confirmer, id string) (Result, error) {
	return l.destructive(ctx, c, PromptDeleteOrder, "delete_order", func(ctx context.Context) error {
		return l.store.DeleteOrder(ctx, id)
	})
}

// CreateOffer derives the discount percentage from the two display
// prices. Offers with a missing field or an unusable original price are
// ignored.
func (l *Loop) CreateOffer(ctx context.Context, in OfferInput) (Result, error) {
	if in.PlanName == "" || in.OriginalPrice == "" || in.DiscountPrice == "" {
		return Result{}, nil
	}
	if in.Type != "" && !offer.ValidType(in.Type) {
		return Result{}, unknownValue("offer type", in.Type)
	}

	pct, err := offer.DiscountPercentage(in.OriginalPrice, in.DiscountPrice)
	if err != nil {
		l.logger.Debug("offer ignored",
			"plan_name", in.PlanName,
			"error", err,
		)
		return Result{}, nil
	}

	o := &offer.SpecialOffer{
		ID:                 uuid.NewString(),
		Type:               in.Type,
		PlanName:           in.PlanName,
		OriginalPrice:      in.OriginalPrice,
		DiscountPrice:      in.DiscountPrice,
		DiscountPercentage: pct,
		IsActive:           true,
	}
	if o.Type == "" {
		o.Type = offer.TypeMinecraft
	}

	return l.mutate(ctx, "create_offer", func(ctx context.Context) error {
		return l.store.CreateOffer(ctx, o)
	})
}

func (l *Loop) ToggleOffer(ctx context.Context, id string) (Result, error) {
	return l.mutate(ctx, "toggle_offer", func(ctx context.Context) error {
		return l.store.ToggleOffer(ctx, id)
	})
}

func (l *Loop) DeleteOffer(ctx context.Context, c Confirmer, id string) (Result, error) {
	return l.destructive(ctx, c, PromptDeleteOffer, "delete_offer", func(ctx context.Context) error {
		return l.store.DeleteOffer(ctx, id)
	})
}

func (l *Loop) CreateCoupon(ctx context.Context, in CouponInput) (Result, error) {
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if code == "" || in.DiscountValue == 0 || in.ExpiryDate == "" {
		return Result{}, nil
	}
	if in.DiscountType != "" && !coupon.ValidDiscountType(in.DiscountType) {
		return Result{}, unknownValue("discount type", in.DiscountType)
	}

	expiry, ok := coupon.NormalizeExpiry(in.ExpiryDate)
	if !ok {
		l.logger.Debug("coupon ignored, bad expiry",
			"code", code,
			"expiry_date", in.ExpiryDate,
		)
		return Result{}, nil
	}

	c := &coupon.Coupon{
		ID:            uuid.NewString(),
		Code:          code,
		DiscountType:  in.DiscountType,
		DiscountValue: in.DiscountValue,
		UsageLimit:    in.UsageLimit,
		ExpiryDate:    expiry,
		IsActive:      true,
	}
	if c.DiscountType == "" {
		c.DiscountType = coupon.DiscountPercentage
	}
	if c.UsageLimit == 0 {
		c.UsageLimit = coupon.DefaultUsageLimit
	}

	return l.mutate(ctx, "create_coupon", func(ctx context.Context) error {
		return l.store.CreateCoupon(ctx, c)
	})
}

func (l *Loop) ToggleCoupon(ctx context.Context, id string) (Result, error) {
	return l.mutate(ctx, "toggle_coupon", func(ctx context.Context) error {
		return l.store.ToggleCoupon(ctx, id)
	})
}

func (l *Loop) ResetCouponUsage(ctx context.Context, c Confirmer, id string) (Result, error) {
	return l.destructive(ctx, c, PromptResetCoupon, "reset_coupon", func(ctx context.Context) error {
		return l.store.ResetCouponUsage(ctx, id)
	})
}

func (l *Loop) DeleteCoupon(ctx context.Context, c Confirmer, id string) (Result, error) {
	return l.destructive(ctx, c, PromptDeleteCoupon, "delete_coupon", func(ctx context.Context) error {
		return l.store.DeleteCoupon(ctx, id)
	})
}

func (l *Loop) CreatePlan(ctx context.Context, in PlanInput) (Result, error) {
	if in.Name == "" || in.Price == "" {
		return Result{}, nil
	}
	if in.Type != "" && !plan.ValidType(in.Type) {
		return Result{}, unknownValue("plan type", in.Type)
	}

	p := &plan.Plan{
		ID:       uuid.NewString(),
		Type:     in.Type,
		Category: in.Category,
		Name:     in.Name,
		Price:    in.Price,
		Specs:    in.Specs,
		IsActive: true,
	}
	if p.Type == "" {
		p.Type = plan.DefaultType
	}
	if p.Category == "" {
		p.Category = plan.DefaultCategory
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	return l.mutate(ctx, "create_plan", func(ctx context.Context) error {
		return l.store.CreatePlan(ctx, p)
	})
}

// UpdatePlan overlays the non-empty fields of in onto the plan as last
// loaded. A plan missing from the snapshot is reported as not found.
func (l *Loop) UpdatePlan(ctx context.Context, id string, in PlanInput) (Result, error) {
	current, ok := l.findPlan(id)
	if !ok {
		return Result{}, core.ErrNotFound
	}

	p := current
	if in.Type != "" {
		if !plan.ValidType(in.Type) {
			return Result{}, unknownValue("plan type", in.Type)
		}
		p.Type = in.Type
	}
	if in.Category != "" {
		p.Category = in.Category
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	if in.Price != "" {
		p.Price = in.Price
	}
	if in.Specs != nil {
		p.Specs = in.Specs
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	return l.mutate(ctx, "update_plan", func(ctx context.Context) error {
		return l.store.UpdatePlan(ctx, &p)
	})
}

func (l *Loop) DeletePlan(ctx context.Context, c Confirmer, id string) (Result, error) {
	return l.destructive(ctx, c, PromptDeletePlan, "delete_plan", func(ctx context.Context) error {
		return l.store.DeletePlan(ctx, id)
	})
}

// unknownValue rejects a value outside its enumeration. A missing value is
// a no-op instead.
func unknownValue(field, value string) error {
	return fmt.Errorf("%w: unknown %s %q", core.ErrInvalidInput, field, value)
}

func (l *Loop) findPlan(id string) (plan.Plan, bool) {
	for _, p := range l.Snapshot().Plans {
		if p.ID == id {
			return p, true
		}
	}
	return plan.Plan{}, false
}

func (l *Loop) destructive(
	ctx context.Context,
	c Confirmer,
	prompt, name string,
	fn func(context.Context) error,
) (Result, error) {
	if c == nil || !c.Confirm(ctx, prompt) {
		l.logger.Debug("action declined", "action", name)
		return Result{}, nil
	}
	return l.mutate(ctx, name, fn)
}

// mutate runs one store call and then refreshes, whether or not the call
// succeeded.
func (l *Loop) mutate(
	ctx context.Context,
	name string,
	fn func(context.Context) error,
) (Result, error) {
	ctx, span := core.StartSpan(ctx, "console.action",
		attribute.String("console.action", name),
	)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		core.SetSpanError(ctx, err)
		l.logger.Warn("console action failed",
			"action", name,
			"error", err,
		)
	}

	//nolint:errcheck // logged inside Refresh
	_ = l.Refresh(ctx)

	if err != nil {
		return Result{}, err
	}
	return Result{Applied: true}, nil
}
