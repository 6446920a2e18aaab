package constants

import "time"

// Redis keys
const (
	RedisKeyRecipientIndex  = "recipients:index"
	RedisKeyRecipientPrefix = "recipients:"
	RedisKeyCallLogPrefix   = "calls:"
)

// Chain/DEX identifiers on DexScreener
const (
	ChainSolana = "solana"
	DexRaydium  = "raydium"
)

// Cache TTL defaults. Overridable via config; these mirror the observed
// upstream rate-limit sweet spots.
const (
	ListingsCacheTTL = 30 * time.Second
	HolderCacheTTL   = 60 * time.Second
)

// Limits
const (
	MaxTrackedCallLogs = 200 // per recipient, oldest trimmed first
	SchedulerSeenCap   = 500 // cross-recipient seen-mint bound
	TopHolderSampleN   = 10  // concentration = share held by top N accounts
)

// Dispatch pacing
const (
	DelayBetweenSends = 1500 * time.Millisecond // between sequential sends to one chat
)

// Known addresses
const (
	// Authority that signs pump.fun -> Raydium migration transactions.
	PumpFunMigrationAuthority = "39azUYFWPz3VHgKCf3VChUwbpURdCHRxjWVowf5jUJjg"
	WrappedSolMint            = "So11111111111111111111111111111111111111112"
)
