package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Lane identifies one of the two balance fields carried by a player record.
type Lane string

const (
	// LaneBank holds durable, low-risk funds.
	LaneBank Lane = "bank"
	// LaneCash holds at-risk funds that game events may take away.
	LaneCash Lane = "cash"
)

// ParseLane parses a lane name.
func ParseLane(s string) (Lane, error) {
	switch Lane(s) {
	case LaneBank:
		return LaneBank, nil
	case LaneCash:
		return LaneCash, nil
	default:
		return "", ErrUnknownLane
	}
}

// PlayerRecord is the per-player ledger state. Exactly one authoritative
// in-memory instance exists while the player is attached to a live session;
// otherwise the record lives only in durable storage.
type PlayerRecord struct {
	ID          string
	Name        string
	BankBalance decimal.Decimal
	CashBalance decimal.Decimal

	// Attributes carries fields written by other subsystems. The ledger
	// round-trips them untouched and never interprets them.
	Attributes map[string]json.RawMessage
}

// NewPlayerRecord creates a record with the given starting bank balance and
// zero cash.
func NewPlayerRecord(id, name string, startingBank decimal.Decimal) *PlayerRecord {
	return &PlayerRecord{
		ID:          id,
		Name:        name,
		BankBalance: startingBank,
		CashBalance: decimal.Zero,
	}
}

// Balance returns the balance of the given lane.
func (r *PlayerRecord) Balance(lane Lane) decimal.Decimal {
	if lane == LaneCash {
		return r.CashBalance
	}
	return r.BankBalance
}

// SetBalance sets the balance of the given lane. Negative values are clamped
// to zero rather than rejected.
func (r *PlayerRecord) SetBalance(lane Lane, value decimal.Decimal) {
	if value.IsNegative() {
		value = decimal.Zero
	}
	if lane == LaneCash {
		r.CashBalance = value
		return
	}
	r.BankBalance = value
}

// ValidateDelta checks whether applying delta to the lane would drive the
// balance negative.
func (r *PlayerRecord) ValidateDelta(lane Lane, delta decimal.Decimal) error {
	if r.Balance(lane).Add(delta).IsNegative() {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDelta returns the new balance after applying delta to the lane.
func (r *PlayerRecord) ApplyDelta(lane Lane, delta decimal.Decimal) decimal.Decimal {
	return r.Balance(lane).Add(delta)
}

// Clone returns a deep copy of the record, safe to hand out for display.
func (r *PlayerRecord) Clone() *PlayerRecord {
	cp := *r
	if r.Attributes != nil {
		cp.Attributes = make(map[string]json.RawMessage, len(r.Attributes))
		for k, v := range r.Attributes {
			raw := make(json.RawMessage, len(v))
			copy(raw, v)
			cp.Attributes[k] = raw
		}
	}
	return &cp
}
