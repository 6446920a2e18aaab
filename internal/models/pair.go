package models

// Pair is one DexScreener trading pair as returned by the public API.
// The shape is owned by DexScreener; we only read it.
type Pair struct {
	ChainID       string      `json:"chainId"`
	DexID         string      `json:"dexId"`
	URL           string      `json:"url"`
	PairAddress   string      `json:"pairAddress"`
	BaseToken     Token       `json:"baseToken"`
	QuoteToken    Token       `json:"quoteToken"`
	PriceNative   string      `json:"priceNative"`
	PriceUsd      string      `json:"priceUsd"`
	Txns          PairTxns    `json:"txns"`
	Volume        PairWindow  `json:"volume"`
	PriceChange   PairWindow  `json:"priceChange"`
	Liquidity     *Liquidity  `json:"liquidity"`
	FDV           float64     `json:"fdv"`
	MarketCap     float64     `json:"marketCap"`
	PairCreatedAt int64       `json:"pairCreatedAt"` // epoch millis
	Info          *PairInfo   `json:"info,omitempty"`
}

// Token identifies one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// PairTxns holds buy/sell transaction counts per window.
type PairTxns struct {
	M5  TxnCounts `json:"m5"`
	H1  TxnCounts `json:"h1"`
	H6  TxnCounts `json:"h6"`
	H24 TxnCounts `json:"h24"`
}

type TxnCounts struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// PairWindow carries a float metric bucketed by time window. DexScreener uses
// the same window layout for volume (USD) and price change (percent).
type PairWindow struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// Liquidity is nullable in the API, hence consumed through a pointer.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

type PairInfo struct {
	ImageURL string       `json:"imageUrl"`
	Websites []PairLink   `json:"websites"`
	Socials  []PairSocial `json:"socials"`
}

type PairLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type PairSocial struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// LiquidityUSD returns the USD liquidity or 0 when the field is null.
func (p *Pair) LiquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.USD
}

// HasSocials reports whether the pair carries any social or website link.
func (p *Pair) HasSocials() bool {
	return p.Info != nil && (len(p.Info.Socials) > 0 || len(p.Info.Websites) > 0)
}

// ImageURL returns the token image URL when present.
func (p *Pair) ImageURL() string {
	if p.Info == nil {
		return ""
	}
	return p.Info.ImageURL
}
