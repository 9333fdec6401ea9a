package server

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/example/resource-island/internal/config"
	"github.com/example/resource-island/internal/game"
)

// Message is the inbound wire envelope: a type for routing plus the raw
// payload decoded per type.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Investment action kinds.
const (
	InvestExplore  = "explore"
	InvestExchange = "exchange"
	InvestBuild    = "build"
	InvestOre      = "ore"
	InvestPick     = "pick"
	InvestMine     = "mine"
	InvestBank     = "bank"
	InvestEnd      = "end"
)

// Bid action kinds.
const (
	BidPlace   = "place_bid"
	BidTake    = "take_item"
	BidEndTake = "end_take"
)

// InvestmentAction is the parsed shape of an investment frame. Only the
// fields relevant to the action kind are meaningful.
type InvestmentAction struct {
	Kind     string
	Building game.Building
	Amount   int
}

// BidAction is the parsed shape of a bid frame.
type BidAction struct {
	Kind   string
	Amount int
	Index  int
}

type investmentPayload struct {
	Action   string `json:"action"`
	Building string `json:"building,omitempty"`
	Amount   int    `json:"amount,omitempty"`
}

type bidPayload struct {
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
	Index  int    `json:"index,omitempty"`
}

func parseInvestment(payload json.RawMessage) (InvestmentAction, error) {
	var p investmentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return InvestmentAction{}, fmt.Errorf("bad investment payload: %w", err)
	}
	act := InvestmentAction{Kind: p.Action, Amount: p.Amount}
	switch p.Action {
	case InvestBuild:
		building, err := game.BuildingFromLabel(p.Building)
		if err != nil {
			return InvestmentAction{}, err
		}
		act.Building = building
	case InvestBank:
		if p.Amount < 0 {
			return InvestmentAction{}, fmt.Errorf("bank amount %d is negative", p.Amount)
		}
	case InvestExplore, InvestExchange, InvestOre, InvestPick, InvestMine, InvestEnd:
	default:
		return InvestmentAction{}, fmt.Errorf("unknown investment action %q", p.Action)
	}
	return act, nil
}

func parseBid(payload json.RawMessage) (BidAction, error) {
	var p bidPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return BidAction{}, fmt.Errorf("bad bid payload: %w", err)
	}
	act := BidAction{Kind: p.Action, Amount: p.Amount, Index: p.Index}
	switch p.Action {
	case BidPlace:
		if p.Amount < 0 {
			return BidAction{}, fmt.Errorf("bid amount %d is negative", p.Amount)
		}
	case BidTake:
		if p.Index < 0 {
			return BidAction{}, fmt.Errorf("bid index %d is negative", p.Index)
		}
	case BidEndTake:
	default:
		return BidAction{}, fmt.Errorf("unknown bid action %q", p.Action)
	}
	return act, nil
}

// ActionHandler receives structurally valid player actions. Resolution of
// their effects lives behind this hook.
type ActionHandler interface {
	HandleInvestment(player string, action InvestmentAction)
	HandleBid(player string, action BidAction)
}

// dispatch parses the envelope and hands the action to the handler. An error
// means the frame was malformed and the connection should be torn down.
func dispatch(h ActionHandler, player string, msg Message) error {
	switch msg.Type {
	case "investment":
		act, err := parseInvestment(msg.Payload)
		if err != nil {
			return err
		}
		h.HandleInvestment(player, act)
		return nil
	case "bid":
		act, err := parseBid(msg.Payload)
		if err != nil {
			return err
		}
		h.HandleBid(player, act)
		return nil
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// LogHandler is the default ActionHandler: it records the action and its
// configured cost without applying any effect.
type LogHandler struct {
	Investment config.InvestmentConfig
	Log        *slog.Logger
}

func (h *LogHandler) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

func (h *LogHandler) HandleInvestment(player string, action InvestmentAction) {
	if !h.Investment.Enable {
		h.logger().Debug("investment actions disabled", "player", player, "action", action.Kind)
		return
	}
	h.logger().Info("investment action received",
		"player", player, "action", action.Kind, "cost", h.investmentCost(action.Kind))
}

func (h *LogHandler) HandleBid(player string, action BidAction) {
	h.logger().Info("bid action received", "player", player, "action", action.Kind)
}

func (h *LogHandler) investmentCost(kind string) int {
	costs := h.Investment.NeedsAP
	switch kind {
	case InvestExplore:
		return costs.Explore
	case InvestExchange:
		return costs.Exchange
	case InvestBuild:
		return costs.Build
	case InvestOre:
		return costs.Open
	case InvestBank:
		return costs.Bank
	case InvestMine:
		return costs.Mine
	case InvestPick:
		return costs.Pick
	}
	return 0
}
