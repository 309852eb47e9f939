// Package hub implements the central aggregation service the agent fleet
// reports into (spec §4.7): a REST ingress, a websocket fan-out, a
// per-agent-weighted consensus engine, and a cron-driven self-analysis loop
// for one focal token at a time.
package hub

import (
	"sync"
	"time"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
	"github.com/yeddevall/duckmon-agents-ai/internal/ring"
)

// Ring capacities (spec §8 property #6: "signals <=100, whaleAlerts <=50,
// etc." — the "etc." is read here as "every other event ring is similarly
// capped", so mev/launch/gas rings get their own caps in the same spirit).
const (
	signalsCap  = 100
	whaleCap    = 50
	mevCap      = 50
	launchCap   = 50
	gasCap      = 50
	tokenSeriesCap = 200

	// heartbeatStaleAfter marks an agent as not alive once its last
	// heartbeat is older than this (spec §4.7 GET /api/state).
	heartbeatStaleAfter = 120 * time.Second

	// freshSignalWindow is the consensus freshness cutoff (spec §4.7.1).
	freshSignalWindow = 20 * time.Minute
)

// AgentHeartbeat is the most recent status report an agent process sent.
type AgentHeartbeat struct {
	Name          string                 `json:"name"`
	Status        string                 `json:"status,omitempty"`
	Uptime        float64                `json:"uptime,omitempty"`
	Stats         map[string]interface{} `json:"stats,omitempty"`
	LastHeartbeat int64                  `json:"lastHeartbeat"`
}

// TokenSample is one point of the focal token's own self-analysis series.
type TokenSample struct {
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"timestamp"`
}

// State is the hub's entire in-memory model. All fields are guarded by mu;
// every accessor in this file takes the lock itself so callers never need to.
type State struct {
	mu sync.RWMutex

	startedAt time.Time

	signals     *ring.Events[domain.Signal]
	whaleAlerts *ring.Events[WhaleAlert]
	mevOpps     *ring.Events[MevOpportunity]
	launches    *ring.Events[TokenLaunch]
	gasUpdates  *ring.Events[GasUpdate]

	// agentSignals holds each agent's single latest signal, overwritten on
	// every ingress (spec §9: the map is updated before the ring append so a
	// concurrent consensus read can never see the ring without the map, only
	// the reverse).
	agentSignals map[string]domain.Signal

	heartbeats map[string]AgentHeartbeat

	currentToken string
	tokenSeries  map[string]*ring.History[TokenSample]

	analysisResults map[string]AnalysisResult

	totalSignals int64
	totalAlerts  int64
	totalLaunches int64
	totalMev     int64
}

// WhaleAlert is the hub-side shape of a POST /api/whale/alert body.
type WhaleAlert struct {
	TokenAddress string                 `json:"tokenAddress"`
	Address      string                 `json:"address"`
	Amount       float64                `json:"amount"`
	Direction    string                 `json:"direction"`
	Profile      string                 `json:"profile,omitempty"`
	ReceivedAt   int64                  `json:"receivedAt"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// MevOpportunity is the hub-side shape of a POST /api/mev/opportunity body.
type MevOpportunity struct {
	Type        string                 `json:"type"`
	TokenAddress string                `json:"tokenAddress,omitempty"`
	EstProfit   float64                `json:"estProfit,omitempty"`
	ReceivedAt  int64                  `json:"receivedAt"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
}

// TokenLaunch is the hub-side shape of a POST /api/token/launch body.
type TokenLaunch struct {
	TokenAddress string                 `json:"tokenAddress"`
	Name         string                 `json:"name,omitempty"`
	Symbol       string                 `json:"symbol,omitempty"`
	ReceivedAt   int64                  `json:"receivedAt"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// GasUpdate is the hub-side shape of a POST /api/gas/update body.
type GasUpdate struct {
	GasGwei        float64                `json:"gasGwei"`
	Recommendation string                 `json:"recommendation,omitempty"`
	ReceivedAt     int64                  `json:"receivedAt"`
	Extra          map[string]interface{} `json:"extra,omitempty"`
}

// NewState builds an empty hub state.
func NewState() *State {
	return &State{
		startedAt:       time.Now(),
		signals:         ring.NewEvents[domain.Signal](signalsCap),
		whaleAlerts:     ring.NewEvents[WhaleAlert](whaleCap),
		mevOpps:         ring.NewEvents[MevOpportunity](mevCap),
		launches:        ring.NewEvents[TokenLaunch](launchCap),
		gasUpdates:      ring.NewEvents[GasUpdate](gasCap),
		agentSignals:    make(map[string]domain.Signal),
		heartbeats:      make(map[string]AgentHeartbeat),
		tokenSeries:     make(map[string]*ring.History[TokenSample]),
		analysisResults: make(map[string]AnalysisResult),
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }

// AddSignal records a new agent signal: the per-agent latest-signal map is
// overwritten first, then the ring is appended; the caller (handleSignal)
// broadcasts only after AddSignal returns — that ordering is load-bearing,
// see spec §9.
func (st *State) AddSignal(sig domain.Signal) {
	st.mu.Lock()
	st.agentSignals[sig.AgentName] = sig
	st.signals.Push(sig)
	st.totalSignals++
	st.mu.Unlock()
}

func (st *State) AddWhaleAlert(a WhaleAlert) {
	st.mu.Lock()
	st.whaleAlerts.Push(a)
	st.totalAlerts++
	st.mu.Unlock()
}

func (st *State) AddMevOpportunity(m MevOpportunity) {
	st.mu.Lock()
	st.mevOpps.Push(m)
	st.totalMev++
	st.mu.Unlock()
}

func (st *State) AddTokenLaunch(l TokenLaunch) {
	st.mu.Lock()
	st.launches.Push(l)
	st.totalLaunches++
	st.mu.Unlock()
}

func (st *State) AddGasUpdate(g GasUpdate) {
	st.mu.Lock()
	st.gasUpdates.Push(g)
	st.mu.Unlock()
}

func (st *State) SetHeartbeat(hb AgentHeartbeat) {
	st.mu.Lock()
	hb.LastHeartbeat = nowMs()
	st.heartbeats[hb.Name] = hb
	st.mu.Unlock()
}

// AgentSummary is one entry of GET /api/state's agents array.
type AgentSummary struct {
	Name          string                 `json:"name"`
	Status        string                 `json:"status,omitempty"`
	Uptime        float64                `json:"uptime,omitempty"`
	Stats         map[string]interface{} `json:"stats,omitempty"`
	LastHeartbeat int64                  `json:"lastHeartbeat"`
	IsAlive       bool                   `json:"isAlive"`
	LastSignal    *domain.Signal         `json:"lastSignal,omitempty"`
}

// Snapshot is the full GET /api/state response shape.
type Snapshot struct {
	Uptime        float64        `json:"uptime"`
	Agents        []AgentSummary `json:"agents"`
	Confluence    *Consensus     `json:"confluence,omitempty"`
	TotalSignals  int64          `json:"totalSignals"`
	TotalAlerts   int64          `json:"totalAlerts"`
	TotalLaunches int64          `json:"totalLaunches"`
	TotalMev      int64          `json:"totalMev"`
	RecentSignals []domain.Signal `json:"recentSignals"`
	RecentAlerts  []WhaleAlert    `json:"recentAlerts"`
	CurrentToken  string          `json:"currentToken,omitempty"`
}

func (st *State) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	agents := make([]AgentSummary, 0, len(st.heartbeats))
	now := nowMs()
	for name, hb := range st.heartbeats {
		sum := AgentSummary{
			Name:          name,
			Status:        hb.Status,
			Uptime:        hb.Uptime,
			Stats:         hb.Stats,
			LastHeartbeat: hb.LastHeartbeat,
			IsAlive:       now-hb.LastHeartbeat < heartbeatStaleAfter.Milliseconds(),
		}
		if sig, ok := st.agentSignals[name]; ok {
			s := sig
			sum.LastSignal = &s
		}
		agents = append(agents, sum)
	}

	var confluence *Consensus
	if c := st.computeConsensusLocked(); c != nil {
		confluence = c
	}

	return Snapshot{
		Uptime:        time.Since(st.startedAt).Seconds(),
		Agents:        agents,
		Confluence:    confluence,
		TotalSignals:  st.totalSignals,
		TotalAlerts:   st.totalAlerts,
		TotalLaunches: st.totalLaunches,
		TotalMev:      st.totalMev,
		RecentSignals: st.signals.Top(20),
		RecentAlerts:  st.whaleAlerts.Top(10),
		CurrentToken:  st.currentToken,
	}
}

// HealthInfo is the GET /health response shape.
type HealthInfo struct {
	Status           string  `json:"status"`
	Uptime           float64 `json:"uptime"`
	Agents           int     `json:"agents"`
	Connections      int     `json:"connections"`
	CurrentToken     string  `json:"currentToken,omitempty"`
	ConfluenceAgents int     `json:"confluenceAgents"`
}

func (st *State) Health(connections int) HealthInfo {
	st.mu.RLock()
	defer st.mu.RUnlock()
	confluenceAgents := 0
	now := nowMs()
	for _, sig := range st.agentSignals {
		if now-sig.ReceivedAt <= freshSignalWindow.Milliseconds() {
			confluenceAgents++
		}
	}
	return HealthInfo{
		Status:           "ok",
		Uptime:           time.Since(st.startedAt).Seconds(),
		Agents:           len(st.heartbeats),
		Connections:      connections,
		CurrentToken:     st.currentToken,
		ConfluenceAgents: confluenceAgents,
	}
}

// StateEventPayload is what the initial websocket "state" event carries.
type StateEventPayload struct {
	Signals      []domain.Signal `json:"signals"`
	WhaleAlerts  []WhaleAlert    `json:"whaleAlerts"`
	MevOpportunities []MevOpportunity `json:"mevOpportunities"`
	TokenLaunches    []TokenLaunch    `json:"tokenLaunches"`
	GasUpdates       []GasUpdate      `json:"gasUpdates"`
	CurrentToken     string           `json:"currentToken,omitempty"`
	AnalysisResult   *AnalysisResult  `json:"analysisResult,omitempty"`
}

// InitialState builds the one-shot "state" event a freshly-connected
// subscriber receives: up to 20 signals, up to 10 of every other category.
func (st *State) InitialState() StateEventPayload {
	st.mu.RLock()
	defer st.mu.RUnlock()
	payload := StateEventPayload{
		Signals:          st.signals.Top(20),
		WhaleAlerts:      st.whaleAlerts.Top(10),
		MevOpportunities: st.mevOpps.Top(10),
		TokenLaunches:    st.launches.Top(10),
		GasUpdates:       st.gasUpdates.Top(10),
		CurrentToken:     st.currentToken,
	}
	if st.currentToken != "" {
		if r, ok := st.analysisResults[st.currentToken]; ok {
			payload.AnalysisResult = &r
		}
	}
	return payload
}

// SetCurrentToken switches the focal token and returns its sample history
// ring, creating one if this token has never been analyzed before.
func (st *State) SetCurrentToken(addr string) *ring.History[TokenSample] {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.currentToken = addr
	h, ok := st.tokenSeries[addr]
	if !ok {
		h = ring.NewHistory[TokenSample](tokenSeriesCap)
		st.tokenSeries[addr] = h
	}
	return h
}

func (st *State) AppendTokenSample(addr string, sample TokenSample) {
	st.mu.Lock()
	h, ok := st.tokenSeries[addr]
	if !ok {
		h = ring.NewHistory[TokenSample](tokenSeriesCap)
		st.tokenSeries[addr] = h
	}
	h.Append(sample)
	st.mu.Unlock()
}

func (st *State) TokenSeries(addr string) []TokenSample {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if h, ok := st.tokenSeries[addr]; ok {
		return append([]TokenSample(nil), h.Slice()...)
	}
	return nil
}

func (st *State) SetAnalysisResult(addr string, r AnalysisResult) {
	st.mu.Lock()
	st.analysisResults[addr] = r
	st.mu.Unlock()
}

func (st *State) AnalysisResult(addr string) (AnalysisResult, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	r, ok := st.analysisResults[addr]
	return r, ok
}

// Consensus computes the current weighted confluence (exported lock wrapper
// around computeConsensusLocked).
func (st *State) Consensus() *Consensus {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.computeConsensusLocked()
}
