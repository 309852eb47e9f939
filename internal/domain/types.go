// Package domain holds the core data types shared across chain, price,
// agent and hub packages (spec §3).
package domain

import "time"

// Source identifies where a PriceSample's data came from.
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

// PriceChange holds percentage price movement over three windows.
type PriceChange struct {
	M5  float64
	H1  float64
	H24 float64
}

// PriceSample is an immutable snapshot of a token's market data (spec §3).
type PriceSample struct {
	Price        float64
	PriceUsd     float64
	PriceNative  float64
	TimestampMs  int64
	Volume24h    float64
	PriceChange  PriceChange
	LiquidityUsd float64
	MarketCap    float64
	Buys24h      int
	Sells24h     int
	Buys1h       int
	Sells1h      int
	Source       Source
	TokenSymbol  string
	TokenName    string
	TokenAddress string
}

// TransferEvent is a decoded ERC20 Transfer log entry (spec §3).
type TransferEvent struct {
	From        string
	To          string
	Value       string // base-units integer, decimal string (preserves exactness)
	BlockNumber uint64
	TxHash      string
}

// WhaleProfile classifies a tallied wallet's historical behavior.
type WhaleProfile string

const (
	ProfileNew         WhaleProfile = "NEW"
	ProfileAccumulator WhaleProfile = "ACCUMULATOR"
	ProfileDistributor WhaleProfile = "DISTRIBUTOR"
	ProfileTrader      WhaleProfile = "TRADER"
	ProfileMixed       WhaleProfile = "MIXED"
)

// WhaleTally is the running per-address ledger the whale agent maintains.
type WhaleTally struct {
	Address   string
	TotalIn   float64
	TotalOut  float64
	TxCount   int
	FirstSeen time.Time
	LastSeen  time.Time
	Profile   WhaleProfile
}

// NetFlow returns TotalIn - TotalOut.
func (w *WhaleTally) NetFlow() float64 { return w.TotalIn - w.TotalOut }

// Direction is a prediction or consensus directional label.
type Direction string

const (
	DirectionUp       Direction = "UP"
	DirectionDown     Direction = "DOWN"
	DirectionSideways Direction = "SIDEWAYS"
)

// PendingPrediction is a not-yet-verified prediction (spec §3).
type PendingPrediction struct {
	Direction      Direction
	Confidence     float64
	ReferencePrice float64
	TargetTimeMs   int64
	HorizonMinutes int
	Verified       bool
	Correct        bool
	// ChainIndex is the on-chain prediction index returned implicitly by
	// posting order (this agent's wallet posts predictions serially, so the
	// Nth postPrediction call is index N-1); -1 when never posted on-chain.
	ChainIndex int64
}

// SignalType is the trade recommendation a signal carries.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// Category classifies which analytical pipeline produced a signal.
type Category string

const (
	CategoryTechnical  Category = "technical"
	CategoryPrediction Category = "prediction"
	CategoryMarket     Category = "market"
	CategoryWhale      Category = "whale"
	CategoryLiquidity  Category = "liquidity"
	CategorySentiment  Category = "sentiment"
	CategoryOnchain    Category = "onchain"
	CategoryGas        Category = "gas"
)

// Signal is the immutable unit of agent output (spec §3).
type Signal struct {
	AgentName  string                 `json:"agentName"`
	Type       SignalType             `json:"type"`
	Confidence float64                `json:"confidence"`
	Price      float64                `json:"price"`
	Reason     string                 `json:"reason,omitempty"`
	Category   Category               `json:"category"`
	ReceivedAt int64                  `json:"receivedAt"`
	Extra      map[string]interface{} `json:"extra,omitempty"`
}

// Sign maps a SignalType to {-1,0,+1} per the consensus algorithm (spec §4.7.1).
func (t SignalType) Sign() float64 {
	switch t {
	case SignalBuy:
		return 1
	case SignalSell:
		return -1
	default:
		return 0
	}
}
