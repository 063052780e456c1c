package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prisme-studio/prisme/backend/internal/model/quote"
)

var (
	ErrUnknownPackage  = errors.New("unknown package option")
	ErrRushUnavailable = errors.New("rush is unavailable in NORMAL capacity weeks unless explicitly enabled")
)

// Surcharge tables by capacity level, in percent. The uplift never exceeds MaxUpliftPct.
var (
	capacitySurchargePct = map[quote.CapacityLevel]int64{
		quote.CapacityNormal:     0,
		quote.CapacityBusy:       10,
		quote.CapacityAtCapacity: 20,
	}
	rushSurchargePct = map[quote.CapacityLevel]int64{
		quote.CapacityNormal:     0,
		quote.CapacityBusy:       30,
		quote.CapacityAtCapacity: 50,
	}
)

const (
	MaxUpliftPct      = 50
	QuoteValidityDays = 7
)

var quoteAssumptions = []string{
	"Includes one primary stakeholder and two revision rounds.",
	"Project kickoff starts after deposit and scheduling confirmation.",
	"Third-party costs are billed separately when applicable.",
}

var quoteExclusions = []string{
	"Legal/compliance review is excluded unless explicitly added.",
	"Copywriting and brand strategy are excluded by default.",
	"Post-launch retainer is not included in this quote.",
}

// Options tunes policy knobs that sit outside the structured selection itself.
type Options struct {
	// AllowRushInNormal permits RUSH requests during NORMAL capacity weeks.
	AllowRushInNormal bool
}

// Engine converts a structured selection into a fixed quote. Pure computation:
// no side effects, deterministic given inputs and the injected clock.
type Engine struct {
	catalog quote.Catalog
	now     func() time.Time
}

// NewEngine builds a pricing engine over the supplied catalog.
func NewEngine(catalog quote.Catalog) *Engine {
	return &Engine{catalog: catalog, now: time.Now}
}

// Calculate prices the selection. Unknown add-on ids are dropped with a warning;
// an unknown package or an unavailable rush request fails outright.
func (e *Engine) Calculate(input quote.Input, opts Options) (quote.Breakdown, []string, error) {
	pkg, ok := e.catalog.FindPackage(input.PackageID)
	if !ok {
		return quote.Breakdown{}, nil, fmt.Errorf("%w: %s", ErrUnknownPackage, input.PackageID)
	}

	warnings := []string{}

	upliftPct := capacitySurchargePct[input.CapacityLevel]
	adjustmentID := "capacity-adjustment"
	adjustmentLabel := fmt.Sprintf("Capacity adjustment (%s)", input.CapacityLevel)

	if input.TimelineMode == quote.TimelineRush {
		if input.CapacityLevel == quote.CapacityNormal && !opts.AllowRushInNormal {
			return quote.Breakdown{}, nil, ErrRushUnavailable
		}
		upliftPct = rushSurchargePct[input.CapacityLevel]
		adjustmentID = "rush-adjustment"
		adjustmentLabel = fmt.Sprintf("Rush premium (%s)", input.CapacityLevel)
	}

	clampedPct := upliftPct
	if clampedPct > MaxUpliftPct {
		clampedPct = MaxUpliftPct
		warnings = append(warnings, fmt.Sprintf("Uplift capped at %d%%", MaxUpliftPct))
	}

	lineItems := []quote.LineItem{
		{
			ID:          "base-package",
			Label:       pkg.Name + " base package",
			AmountCents: pkg.BasePriceCents,
			Kind:        quote.KindBase,
		},
		{
			ID:          adjustmentID,
			Label:       adjustmentLabel,
			AmountCents: roundHalfAway(float64(pkg.BasePriceCents) * float64(clampedPct) / 100),
			Kind:        quote.KindAdjustment,
		},
	}

	for _, addOnID := range input.AddOnIDs {
		addOn, ok := e.catalog.FindAddOn(addOnID)
		if !ok {
			warnings = append(warnings, "Unknown add-on skipped: "+addOnID)
			continue
		}
		lineItems = append(lineItems, quote.LineItem{
			ID:          "addon-" + addOn.ID,
			Label:       addOn.Name,
			AmountCents: addOn.PriceCents,
			Kind:        quote.KindAddOn,
		})
	}

	var totalCents int64
	for _, item := range lineItems {
		totalCents += item.AmountCents
	}

	breakdown := quote.Breakdown{
		PackageID:     pkg.ID,
		PackageName:   pkg.Name,
		CapacityLevel: input.CapacityLevel,
		TimelineMode:  input.TimelineMode,
		LineItems:     lineItems,
		SubtotalCents: totalCents,
		TotalCents:    totalCents,
		ValidThrough:  e.now().UTC().Add(QuoteValidityDays * 24 * time.Hour).Format(time.RFC3339),
		Assumptions:   append([]string(nil), quoteAssumptions...),
		Exclusions:    append([]string(nil), quoteExclusions...),
	}

	return breakdown, warnings, nil
}

// roundHalfAway rounds half away from zero, matching the adjustment semantics.
func roundHalfAway(v float64) int64 {
	return int64(math.Round(v))
}
