// Package enrollment drives the front-desk registration workflow: a
// linear three-step form and the two-step remote transaction that creates
// a member and their first payment.
package enrollment

import (
	"fmt"
	"math"

	"gymdesk/internal/store"
)

// Step is a position in the registration form.
type Step int

const (
	StepIdentity Step = iota
	StepTier
	StepSettlement
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepIdentity:
		return "identity"
	case StepTier:
		return "tier"
	case StepSettlement:
		return "settlement"
	case StepSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Tier is a membership category with its base monthly price in minor
// currency units.
type Tier struct {
	Name        string `json:"name"`
	BasePrice   int64  `json:"base_price"`
	Description string `json:"description"`
}

// Term is a commitment window with its discount percentage.
type Term struct {
	Name        string `json:"name"`
	DiscountPct int64  `json:"discount_pct"`
}

// Tiers is the fixed tier catalog.
var Tiers = []Tier{
	{Name: store.CategoryStudent, BasePrice: 20000, Description: "ALU / CMU restricted"},
	{Name: store.CategoryHotelResident, BasePrice: 10000, Description: "Hotel guest privileges"},
	{Name: store.CategoryNormal, BasePrice: 30000, Description: "Comprehensive gym access"},
	{Name: store.CategoryGroup, BasePrice: 20000, Description: "Corporate / linked tier"},
}

// Terms is the fixed term catalog. Weekly and Monthly carry a zero
// discount; the Weekly price comes from the divide-by-three rule in Quote,
// not from the discount.
var Terms = []Term{
	{Name: store.DurationWeekly, DiscountPct: 0},
	{Name: store.DurationMonthly, DiscountPct: 0},
	{Name: store.DurationThreeMonths, DiscountPct: 10},
	{Name: store.DurationAnnual, DiscountPct: 20},
}

func tierByName(name string) (Tier, bool) {
	for _, t := range Tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

func termByName(name string) (Term, bool) {
	for _, t := range Terms {
		if t.Name == name {
			return t, true
		}
	}
	return Term{}, false
}

// Quote derives the membership price for a tier and term pair:
//
//	Weekly   round(base / 3)
//	Monthly  base
//	3 Months base * 3 * (1 - discount/100)
//	Annual   base * 12 * (1 - discount/100)
func Quote(category, duration string) (int64, error) {
	tier, ok := tierByName(category)
	if !ok {
		return 0, fmt.Errorf("unknown membership category %q", category)
	}
	term, ok := termByName(duration)
	if !ok {
		return 0, fmt.Errorf("unknown membership duration %q", duration)
	}

	switch term.Name {
	case store.DurationWeekly:
		return int64(math.Round(float64(tier.BasePrice) / 3)), nil
	case store.DurationMonthly:
		return tier.BasePrice, nil
	case store.DurationThreeMonths:
		return tier.BasePrice * 3 * (100 - term.DiscountPct) / 100, nil
	case store.DurationAnnual:
		return tier.BasePrice * 12 * (100 - term.DiscountPct) / 100, nil
	}
	return 0, fmt.Errorf("unknown membership duration %q", duration)
}

// Form is the registration state machine. The zero value is not usable;
// start with NewForm.
type Form struct {
	Step          Step   `json:"step"`
	FullName      string `json:"full_name"`
	Phone         string `json:"phone"`
	Category      string `json:"category"`
	Duration      string `json:"duration"`
	PaymentMethod string `json:"payment_method"`
}

// NewForm starts a form at the identity step with the default selections.
func NewForm() Form {
	return Form{
		Step:          StepIdentity,
		Category:      store.CategoryNormal,
		Duration:      store.DurationMonthly,
		PaymentMethod: store.MethodCash,
	}
}

// Next advances one step. The identity step requires both a name and a
// phone number; the settlement step only advances through Submit.
func (f *Form) Next() error {
	switch f.Step {
	case StepIdentity:
		if f.FullName == "" || f.Phone == "" {
			return fmt.Errorf("full name and phone are required")
		}
		f.Step = StepTier
	case StepTier:
		if _, ok := tierByName(f.Category); !ok {
			return fmt.Errorf("unknown membership category %q", f.Category)
		}
		if _, ok := termByName(f.Duration); !ok {
			return fmt.Errorf("unknown membership duration %q", f.Duration)
		}
		f.Step = StepSettlement
	case StepSettlement:
		return fmt.Errorf("settlement completes through submission")
	case StepSubmitted:
		return fmt.Errorf("form already submitted")
	}
	return nil
}

// Back steps back one step, never past the identity step and never out of
// a submitted form.
func (f *Form) Back() {
	if f.Step > StepIdentity && f.Step < StepSubmitted {
		f.Step--
	}
}
