package engine

import "time"

// Effects is the aggregate of every distinct active boost kind at one instant
type Effects struct {
	PassiveIncome     int64       `json:"passive_income"`
	ClickMultiplier   float64     `json:"click_multiplier"`
	DepositMultiplier float64     `json:"deposit_multiplier"`
	Criticals         []BoostSpec `json:"criticals,omitempty"`
	Shielded          bool        `json:"shielded"`
}

// BoostManager owns the list of active timed effects
type BoostManager struct {
	state  *State
	table  []BoostSpec
	ledger *Ledger
	quests *QuestTracker
}

// NewBoostManager binds a boost manager to state
func NewBoostManager(state *State, table []BoostSpec, ledger *Ledger, quests *QuestTracker) *BoostManager {
	return &BoostManager{state: state, table: table, ledger: ledger, quests: quests}
}

// Deploy buys a boost from the table and activates it until now+duration
func (m *BoostManager) Deploy(kind BoostKind, now time.Time) (ActiveBoost, error) {
	spec, ok := m.spec(kind)
	if !ok {
		return ActiveBoost{}, ErrUnknownBoost
	}
	if spec.Cost > 0 {
		if err := m.ledger.Debit(spec.Cost); err != nil {
			return ActiveBoost{}, err
		}
	}

	boost := m.Grant(kind, spec.Duration.Std(), now)
	m.quests.Advance(QuestLab, 1)
	return boost, nil
}

// Grant activates a boost without charging for it
func (m *BoostManager) Grant(kind BoostKind, d time.Duration, now time.Time) ActiveBoost {
	boost := ActiveBoost{Kind: kind, ExpiresAt: now.Add(d)}
	m.state.Boosts = append(m.state.Boosts, boost)
	return boost
}

// IsActive reports whether any entry of kind expires after now
func (m *BoostManager) IsActive(kind BoostKind, now time.Time) bool {
	for _, b := range m.state.Boosts {
		if b.Kind == kind && b.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}

// SweepExpired drops every entry whose expiry is not after now and returns how many were removed
func (m *BoostManager) SweepExpired(now time.Time) int {
	kept := m.state.Boosts[:0]
	removed := 0
	for _, b := range m.state.Boosts {
		if b.ExpiresAt.After(now) {
			kept = append(kept, b)
		} else {
			removed++
		}
	}
	m.state.Boosts = kept
	return removed
}

// Effects aggregates active kinds in table order. Duplicate entries of a kind count once.
func (m *BoostManager) Effects(now time.Time) Effects {
	fx := Effects{ClickMultiplier: 1, DepositMultiplier: 1}
	for _, spec := range m.table {
		if !m.IsActive(spec.Kind, now) {
			continue
		}
		switch spec.Effect {
		case EffectPassiveIncome:
			fx.PassiveIncome += spec.Rate
		case EffectClickMultiplier:
			fx.ClickMultiplier *= spec.Multiplier
		case EffectDepositMultiplier:
			fx.DepositMultiplier *= spec.Multiplier
		case EffectCritical:
			fx.Criticals = append(fx.Criticals, spec)
		case EffectShield:
			fx.Shielded = true
		}
	}
	return fx
}

// ConsumeShield removes every active shield entry and reports whether one existed
func (m *BoostManager) ConsumeShield(now time.Time) bool {
	kept := m.state.Boosts[:0]
	consumed := false
	for _, b := range m.state.Boosts {
		if spec, ok := m.spec(b.Kind); ok && spec.Effect == EffectShield && b.ExpiresAt.After(now) {
			consumed = true
			continue
		}
		kept = append(kept, b)
	}
	m.state.Boosts = kept
	return consumed
}

// Clear removes every active boost
func (m *BoostManager) Clear() {
	m.state.Boosts = nil
}

// Active returns a copy of the unexpired entries
func (m *BoostManager) Active(now time.Time) []ActiveBoost {
	active := make([]ActiveBoost, 0, len(m.state.Boosts))
	for _, b := range m.state.Boosts {
		if b.ExpiresAt.After(now) {
			active = append(active, b)
		}
	}
	return active
}

func (m *BoostManager) spec(kind BoostKind) (BoostSpec, bool) {
	for _, spec := range m.table {
		if spec.Kind == kind {
			return spec, true
		}
	}
	return BoostSpec{}, false
}
