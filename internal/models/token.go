package models

import "time"

// TokenMetrics is the normalized per-token snapshot the filter and scorer
// consume. It is rebuilt on every scan pass and never persisted.
type TokenMetrics struct {
	Mint            string
	Symbol          string
	Name            string
	Price           float64
	PriceChange24h  float64
	Volume24h       float64
	VolumeChange    float64
	Liquidity       float64
	LiquidityChange float64

	// Enrichment fields. 0 means unknown: the enrichment call failed soft or
	// was skipped, and downstream consumers must not treat it as a measured
	// zero (see filter/scorer holder rules).
	Holders                int
	TopHolderConcentration float64 // percent of supply held by top 10

	TokenAgeHours float64

	// On-chain security flags, false/zero until enriched.
	MintAuthority   bool
	FreezeAuthority bool
	LPLocked        bool
	LPAgeHours      float64
	DeployerAddress string
	DeployerRugs    int
}

// Graduation describes a token that migrated from the bonding curve to a DEX.
type Graduation struct {
	Mint               string    `json:"mint"`
	Symbol             string    `json:"symbol"`
	Name               string    `json:"name"`
	GraduatedAt        time.Time `json:"graduatedAt"`
	RaydiumPairAddress string    `json:"raydiumPairAddress"`
	InitialLiquidity   float64   `json:"initialLiquidity"`
	InitialMarketCap   float64   `json:"initialMarketCap"`
	ImageURL           string    `json:"imageUrl,omitempty"`
}

// GraduationCandidate is the unit the watcher emits: one scored, filtered
// token per scan. Immutable once produced.
type GraduationCandidate struct {
	Graduation     Graduation   `json:"graduation"`
	Pair           Pair         `json:"pair"`
	Metrics        TokenMetrics `json:"metrics"`
	Score          float64      `json:"score"`
	PassesFilter   bool         `json:"passesFilter"`
	FilterFailures []string     `json:"filterFailures"`

	// Warnings is populated instead of FilterFailures by the unfiltered scan
	// mode; advisory only.
	Warnings []string `json:"warnings,omitempty"`
}
