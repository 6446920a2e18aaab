package models

// FilterPolicy is a named bundle of accept/reject thresholds evaluated by the
// filter engine. The three presets below are complete, independent sets; there
// is no inheritance between them.
type FilterPolicy struct {
	Name                   string
	MinLiquidity           float64 // USD
	MinVolume5m            float64 // USD
	MinHolders             int
	MaxAgeMinutes          float64
	MinLiquidityRatio      float64 // percent, liquidity/marketCap*100
	MinBuySellRatio        float64
	ExcludeRuggedDeployers bool // not enforced yet, deployer history unavailable
}

// DefaultPolicy is the balanced preset used by autopost.
func DefaultPolicy() FilterPolicy {
	return FilterPolicy{
		Name:                   "default",
		MinLiquidity:           8_000,
		MinVolume5m:            2_000,
		MinHolders:             50,
		MaxAgeMinutes:          120,
		MinLiquidityRatio:      8,
		MinBuySellRatio:        0.3,
		ExcludeRuggedDeployers: true,
	}
}

// AggressivePolicy keeps the default liquidity floor but narrows the age
// window to catch tokens minutes after graduation.
func AggressivePolicy() FilterPolicy {
	return FilterPolicy{
		Name:                   "aggressive",
		MinLiquidity:           8_000,
		MinVolume5m:            1_000,
		MinHolders:             25,
		MaxAgeMinutes:          30,
		MinLiquidityRatio:      8,
		MinBuySellRatio:        0.3,
		ExcludeRuggedDeployers: true,
	}
}

// ConservativePolicy raises every floor for lower-risk calls.
func ConservativePolicy() FilterPolicy {
	return FilterPolicy{
		Name:                   "conservative",
		MinLiquidity:           20_000,
		MinVolume5m:            5_000,
		MinHolders:             100,
		MaxAgeMinutes:          240,
		MinLiquidityRatio:      12,
		MinBuySellRatio:        0.5,
		ExcludeRuggedDeployers: true,
	}
}

// PolicyByName resolves a preset by its name, falling back to the default.
func PolicyByName(name string) FilterPolicy {
	switch name {
	case "aggressive":
		return AggressivePolicy()
	case "conservative":
		return ConservativePolicy()
	default:
		return DefaultPolicy()
	}
}
