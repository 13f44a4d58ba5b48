package plans

// Plan is the internal metadata mapped to a Stripe price id.
type Plan struct {
	Name string
	Tier string // "basic" | "premium" | "elite"
}

// Catalog is an immutable lookup from Stripe price id to plan metadata. It is
// constructed once at startup and handed to every component that resolves
// prices, so the subscription flow and the webhook reconciler can be tested
// with injected catalogs.
type Catalog struct {
	byPrice map[string]Plan
}

func NewCatalog(entries map[string]Plan) *Catalog {
	byPrice := make(map[string]Plan, len(entries))
	for priceID, plan := range entries {
		if priceID == "" {
			continue
		}
		byPrice[priceID] = plan
	}
	return &Catalog{byPrice: byPrice}
}

// Lookup resolves a price id. A miss is a recoverable condition for callers:
// Stripe can carry prices that are not mapped locally yet.
func (c *Catalog) Lookup(priceID string) (Plan, bool) {
	p, ok := c.byPrice[priceID]
	return p, ok
}

// AccessLevel maps a plan tier to the integer access level cached on the
// user snapshot. Unknown tiers get level 0 (no gated access).
func AccessLevel(tier string) int {
	switch tier {
	case "basic":
		return 1
	case "premium":
		return 2
	case "elite":
		return 3
	default:
		return 0
	}
}
