package domain

// Regime is the weekly trading mode derived from the reference series.
type Regime string

// Regime constants.
const (
	RegimeSafe      Regime = "Safe"
	RegimeOffensive Regime = "Offensive"
)

// TierMode selects how the sizing tier is counted.
type TierMode string

// Tier mode constants.
const (
	// TierModeSequential counts positions open at the start of the day.
	TierModeSequential TierMode = "sequential"
	// TierModeRealTier counts positions open after the day's exits.
	TierModeRealTier TierMode = "realTier"
)

// ExitKind tells which rule closed a position.
type ExitKind string

// Exit kind constants.
const (
	ExitKindTarget ExitKind = "TARGET" // close reached target sell price
	ExitKindForced ExitKind = "FORCED" // holding-day limit reached, sold at close
)
