package domain

// EnginePolicy is the single configurable policy set of the engine.
// Attribution ambiguity is resolved here, by configuration, never by
// forking the replay logic.
type EnginePolicy struct {
	// SplitPrice is the nominal per-outcome price of a split or merge on
	// a binary condition. The paired set is worth exactly one unit of the
	// denominating currency, so each side carries half.
	SplitPrice float64

	// AttributionOrder is the priority order of phantom-inventory
	// attribution rules.
	AttributionOrder []AttributionRule

	// MinRiskSample is the minimum number of closed positions required
	// before risk metrics are reported.
	MinRiskSample int

	// LowConfidenceMaxShare and UnmappedMaxShare bound the proportions a
	// high-confidence wallet result may carry. Twice the bound drops the
	// result to the low tier.
	LowConfidenceMaxShare float64
	UnmappedMaxShare      float64
}

// DefaultEnginePolicy returns the policy used unless overridden by config.
func DefaultEnginePolicy() EnginePolicy {
	return EnginePolicy{
		SplitPrice: 0.5,
		AttributionOrder: []AttributionRule{
			AttributionCorrelatedMint,
			AttributionConditionDeficit,
		},
		MinRiskSample:         5,
		LowConfidenceMaxShare: 0.10,
		UnmappedMaxShare:      0.10,
	}
}
