package hub

import (
	"encoding/json"
	"net/http"

	"github.com/yeddevall/duckmon-agents-ai/internal/domain"
)

// decodeBody is a small json.NewDecoder wrapper shared by every ingress
// handler; malformed JSON is reported the same way as a missing field.
func decodeBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

type signalPayload struct {
	AgentName  string                 `json:"agentName"`
	Type       domain.SignalType      `json:"type"`
	Confidence float64                `json:"confidence"`
	Price      float64                `json:"price"`
	Reason     string                 `json:"reason"`
	Category   domain.Category        `json:"category"`
	Extra      map[string]interface{} `json:"extra"`
}

// handleSignal implements POST /api/signal (spec §6). agentName is required;
// an invalid payload returns 400 and never mutates state.
func (s *Server) handleSignal(w http.ResponseWriter, r *http.Request) {
	var p signalPayload
	if err := decodeBody(r, &p); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if p.AgentName == "" {
		writeBadRequest(w, "agentName is required")
		return
	}
	sig := domain.Signal{
		AgentName:  p.AgentName,
		Type:       p.Type,
		Confidence: p.Confidence,
		Price:      p.Price,
		Reason:     p.Reason,
		Category:   p.Category,
		ReceivedAt: nowMs(),
		Extra:      p.Extra,
	}
	s.state.AddSignal(sig)
	s.hub.Broadcast("signal", sig)
	writeOK(w)
}

type whaleAlertPayload struct {
	TokenAddress string                 `json:"tokenAddress"`
	Address      string                 `json:"address"`
	Amount       float64                `json:"amount"`
	Direction    string                 `json:"direction"`
	Profile      string                 `json:"profile"`
	Extra        map[string]interface{} `json:"extra"`
}

func (s *Server) handleWhaleAlert(w http.ResponseWriter, r *http.Request) {
	var p whaleAlertPayload
	if err := decodeBody(r, &p); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if p.Address == "" {
		writeBadRequest(w, "address is required")
		return
	}
	alert := WhaleAlert{
		TokenAddress: p.TokenAddress,
		Address:      p.Address,
		Amount:       p.Amount,
		Direction:    p.Direction,
		Profile:      p.Profile,
		ReceivedAt:   nowMs(),
		Extra:        p.Extra,
	}
	s.state.AddWhaleAlert(alert)
	s.hub.Broadcast("whale:alert", alert)
	writeOK(w)
}

type mevPayload struct {
	Type         string                 `json:"type"`
	TokenAddress string                 `json:"tokenAddress"`
	EstProfit    float64                `json:"estProfit"`
	Extra        map[string]interface{} `json:"extra"`
}

func (s *Server) handleMevOpportunity(w http.ResponseWriter, r *http.Request) {
	var p mevPayload
	if err := decodeBody(r, &p); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if p.Type == "" {
		writeBadRequest(w, "type is required")
		return
	}
	m := MevOpportunity{
		Type:         p.Type,
		TokenAddress: p.TokenAddress,
		EstProfit:    p.EstProfit,
		ReceivedAt:   nowMs(),
		Extra:        p.Extra,
	}
	s.state.AddMevOpportunity(m)
	s.hub.Broadcast("mev:opportunity", m)
	writeOK(w)
}

type tokenLaunchPayload struct {
	TokenAddress string                 `json:"tokenAddress"`
	Name         string                 `json:"name"`
	Symbol       string                 `json:"symbol"`
	Extra        map[string]interface{} `json:"extra"`
}

func (s *Server) handleTokenLaunch(w http.ResponseWriter, r *http.Request) {
	var p tokenLaunchPayload
	if err := decodeBody(r, &p); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if p.TokenAddress == "" {
		writeBadRequest(w, "tokenAddress is required")
		return
	}
	l := TokenLaunch{
		TokenAddress: p.TokenAddress,
		Name:         p.Name,
		Symbol:       p.Symbol,
		ReceivedAt:   nowMs(),
		Extra:        p.Extra,
	}
	s.state.AddTokenLaunch(l)
	s.hub.Broadcast("token:launch", l)
	writeOK(w)
}

type gasPayload struct {
	GasGwei        float64                `json:"gasGwei"`
	Recommendation string                 `json:"recommendation"`
	Extra          map[string]interface{} `json:"extra"`
}

func (s *Server) handleGasUpdate(w http.ResponseWriter, r *http.Request) {
	var p gasPayload
	if err := decodeBody(r, &p); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	g := GasUpdate{
		GasGwei:        p.GasGwei,
		Recommendation: p.Recommendation,
		ReceivedAt:     nowMs(),
		Extra:          p.Extra,
	}
	s.state.AddGasUpdate(g)
	s.hub.Broadcast("gas:update", g)
	writeOK(w)
}

type heartbeatPayload struct {
	AgentName string                 `json:"agentName"`
	Status    string                 `json:"status"`
	Uptime    float64                `json:"uptime"`
	Stats     map[string]interface{} `json:"stats"`
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var p heartbeatPayload
	if err := decodeBody(r, &p); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if p.AgentName == "" {
		writeBadRequest(w, "agentName is required")
		return
	}
	hb := AgentHeartbeat{
		Name:   p.AgentName,
		Status: p.Status,
		Uptime: p.Uptime,
		Stats:  p.Stats,
	}
	s.state.SetHeartbeat(hb)
	s.hub.Broadcast("agent:heartbeat", hb)
	writeOK(w)
}
