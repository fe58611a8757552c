package engine

import (
	"strings"
	"time"
)

// RedeemResult describes what a redemption granted
type RedeemResult struct {
	Code       string       `json:"code"`
	Effect     CodeEffect   `json:"effect"`
	Points     int64        `json:"points,omitempty"`
	Boost      *ActiveBoost `json:"boost,omitempty"`
	Privileged bool         `json:"privileged,omitempty"`
	Message    string       `json:"message"`
}

// NormalizeCode trims and upper-cases a code or alias
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CodeRegistry redeems codes against the ledger, boosts and the used-code set
type CodeRegistry struct {
	state  *State
	codes  map[string]CodeSpec
	ledger *Ledger
	boosts *BoostManager
}

// NewCodeRegistry indexes codes by their normalized form
func NewCodeRegistry(state *State, codes []CodeSpec, ledger *Ledger, boosts *BoostManager) *CodeRegistry {
	index := make(map[string]CodeSpec, len(codes))
	for _, c := range codes {
		index[NormalizeCode(c.Code)] = c
	}
	return &CodeRegistry{state: state, codes: index, ledger: ledger, boosts: boosts}
}

// Redeem applies code. Reusable codes are never recorded as used.
func (r *CodeRegistry) Redeem(code string, now time.Time) (RedeemResult, error) {
	key := NormalizeCode(code)
	spec, ok := r.codes[key]
	if !ok {
		return RedeemResult{}, ErrInvalidCode
	}
	if !spec.Reusable && r.state.UsedCodes[key] {
		return RedeemResult{}, ErrAlreadyUsed
	}

	result := RedeemResult{Code: key, Effect: spec.Effect, Message: spec.Message}
	switch spec.Effect {
	case CodePrivilege:
		r.state.Privileged = true
		result.Privileged = true
	case CodeGrantBoost:
		boost := r.boosts.Grant(spec.Boost, spec.BoostDuration.Std(), now)
		result.Boost = &boost
	}
	if spec.Points > 0 {
		if err := r.ledger.Credit(spec.Points); err != nil {
			return RedeemResult{}, err
		}
		result.Points = spec.Points
	}

	if !spec.Reusable {
		if r.state.UsedCodes == nil {
			r.state.UsedCodes = make(map[string]bool)
		}
		r.state.UsedCodes[key] = true
	}
	return result, nil
}
