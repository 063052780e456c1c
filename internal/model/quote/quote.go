package quote

// CapacityLevel is the operator-declared business load tier driving surcharge tables.
type CapacityLevel string

const (
	CapacityNormal     CapacityLevel = "NORMAL"
	CapacityBusy       CapacityLevel = "BUSY"
	CapacityAtCapacity CapacityLevel = "AT_CAPACITY"
)

// ParseCapacityLevel maps raw input to a known capacity level, falling back when unknown.
func ParseCapacityLevel(value string, fallback CapacityLevel) CapacityLevel {
	switch CapacityLevel(value) {
	case CapacityNormal, CapacityBusy, CapacityAtCapacity:
		return CapacityLevel(value)
	default:
		return fallback
	}
}

// TimelineMode selects standard or expedited delivery.
type TimelineMode string

const (
	TimelineStandard TimelineMode = "STANDARD"
	TimelineRush     TimelineMode = "RUSH"
)

// ValidTimelineMode reports whether value is a recognized timeline mode.
func ValidTimelineMode(value string) bool {
	return value == string(TimelineStandard) || value == string(TimelineRush)
}

// LineItemKind classifies a quote line item.
type LineItemKind string

const (
	KindBase       LineItemKind = "BASE"
	KindAdjustment LineItemKind = "ADJUSTMENT"
	KindAddOn      LineItemKind = "ADD_ON"
)

// Input carries the structured selection handed to the pricing engine.
type Input struct {
	PackageID     string        `json:"packageId"`
	AddOnIDs      []string      `json:"addOnIds"`
	TimelineMode  TimelineMode  `json:"timelineMode"`
	CapacityLevel CapacityLevel `json:"capacityLevel"`
}

// LineItem is a single priced entry inside a quote breakdown.
type LineItem struct {
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	AmountCents int64        `json:"amountCents"`
	Kind        LineItemKind `json:"kind"`
}

// Breakdown is the fixed-fee quote returned to the client. Constructed fresh per
// calculation and never mutated after return.
type Breakdown struct {
	PackageID     string        `json:"packageId"`
	PackageName   string        `json:"packageName"`
	CapacityLevel CapacityLevel `json:"capacityLevel"`
	TimelineMode  TimelineMode  `json:"timelineMode"`
	LineItems     []LineItem    `json:"lineItems"`
	SubtotalCents int64         `json:"subtotalCents"`
	TotalCents    int64         `json:"totalCents"`
	ValidThrough  string        `json:"validThroughIso"`
	Assumptions   []string      `json:"assumptions"`
	Exclusions    []string      `json:"exclusions"`
}
