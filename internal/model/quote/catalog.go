package quote

// PackageOption is a static catalog entry for a fixed-fee service package.
type PackageOption struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Teaser              string `json:"teaser"`
	Description         string `json:"description"`
	BasePriceCents      int64  `json:"basePriceCents"`
	TypicalTimelineDays int    `json:"typicalTimelineDays"`
}

// AddOnOption is a static catalog entry for an optional add-on.
type AddOnOption struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"priceCents"`
}

// Catalog exposes package and add-on retrieval for pricing and handlers.
type Catalog interface {
	Packages() []PackageOption
	AddOns() []AddOnOption
	FindPackage(id string) (PackageOption, bool)
	FindAddOn(id string) (AddOnOption, bool)
}

// MemoryCatalog implements Catalog with in-memory slices, defined at process start.
type MemoryCatalog struct {
	packages []PackageOption
	addOns   []AddOnOption
}

// NewMemoryCatalog returns a MemoryCatalog preloaded with the supplied options.
func NewMemoryCatalog(packages []PackageOption, addOns []AddOnOption) *MemoryCatalog {
	return &MemoryCatalog{
		packages: append([]PackageOption(nil), packages...),
		addOns:   append([]AddOnOption(nil), addOns...),
	}
}

// Packages returns the predefined package list.
func (c *MemoryCatalog) Packages() []PackageOption {
	return append([]PackageOption(nil), c.packages...)
}

// AddOns returns the predefined add-on list.
func (c *MemoryCatalog) AddOns() []AddOnOption {
	return append([]AddOnOption(nil), c.addOns...)
}

// FindPackage looks up a package by identifier.
func (c *MemoryCatalog) FindPackage(id string) (PackageOption, bool) {
	for _, item := range c.packages {
		if item.ID == id {
			return item, true
		}
	}
	return PackageOption{}, false
}

// FindAddOn looks up an add-on by identifier.
func (c *MemoryCatalog) FindAddOn(id string) (AddOnOption, bool) {
	for _, item := range c.addOns {
		if item.ID == id {
			return item, true
		}
	}
	return AddOnOption{}, false
}

// SeedPackages provides the launch package lineup.
func SeedPackages() []PackageOption {
	return []PackageOption{
		{
			ID:                  "AI_CONCIERGE_SITE",
			Name:                "AI Concierge Site",
			Teaser:              "High-conversion service entry point",
			Description:         "Conversation-first landing, invite-gated consult flow, and instant fixed-fee quote output.",
			BasePriceCents:      680000,
			TypicalTimelineDays: 21,
		},
		{
			ID:                  "AUTOMATION_SPRINT",
			Name:                "Automation Sprint",
			Teaser:              "Workflow and integrations shipped fast",
			Description:         "Automate lead routing, CRM sync, and ops workflows with practical guardrails and observability.",
			BasePriceCents:      820000,
			TypicalTimelineDays: 28,
		},
		{
			ID:                  "MVP_LAUNCHPAD",
			Name:                "MVP Launchpad",
			Teaser:              "AI-enabled MVP with production rails",
			Description:         "End-to-end MVP build with launch-ready core features, analytics, and handoff playbook.",
			BasePriceCents:      1280000,
			TypicalTimelineDays: 42,
		},
	}
}

// SeedAddOns provides the launch add-on lineup.
func SeedAddOns() []AddOnOption {
	return []AddOnOption{
		{
			ID:          "CRM_INTEGRATION",
			Name:        "CRM Integration",
			Description: "Bi-directional CRM sync, lead enrichment fields, and pipeline mapping.",
			PriceCents:  140000,
		},
		{
			ID:          "ANALYTICS_INSTRUMENTATION",
			Name:        "Analytics Instrumentation",
			Description: "Event taxonomy, conversion tracking, and dashboard-ready event payloads.",
			PriceCents:  90000,
		},
		{
			ID:          "KNOWLEDGE_BASE",
			Name:        "Knowledge Base Bootstrap",
			Description: "Assistant grounding docs and response policy scaffold for consistent messaging.",
			PriceCents:  70000,
		},
		{
			ID:          "EXTRA_WORKFLOW",
			Name:        "Extra Workflow",
			Description: "One additional automation flow beyond the primary consult funnel.",
			PriceCents:  160000,
		},
		{
			ID:          "WHITE_LABEL_ASSETS",
			Name:        "White-label Assets",
			Description: "Brand-tailored UI tokens, launch deck, and reusable asset pack.",
			PriceCents:  60000,
		},
	}
}
