package engine

import "time"

// WagerOutcome is how a wager resolved
type WagerOutcome string

const (
	OutcomeJackpot  WagerOutcome = "jackpot"
	OutcomeSuccess  WagerOutcome = "success"
	OutcomeShielded WagerOutcome = "shielded"
	OutcomeLoss     WagerOutcome = "loss"
)

// WagerPhase is the presentation phase of the latest wager
type WagerPhase string

const (
	WagerIdle      WagerPhase = "idle"
	WagerResolving WagerPhase = "resolving"
	WagerRevealed  WagerPhase = "revealed"
)

// WagerResult is a settled wager. The balance has already changed; RevealAt
// only controls when the outcome is shown.
type WagerResult struct {
	Amount   int64        `json:"amount"`
	Outcome  WagerOutcome `json:"outcome"`
	Payout   int64        `json:"payout"`
	Roll     float64      `json:"roll"`
	PlacedAt time.Time    `json:"placed_at"`
	RevealAt time.Time    `json:"reveal_at"`
}

// Net returns payout minus stake
func (r WagerResult) Net() int64 { return r.Payout - r.Amount }

// WagerStatus is the two-phase view of the latest wager
type WagerStatus struct {
	Phase  WagerPhase   `json:"phase"`
	Result *WagerResult `json:"result,omitempty"`
}

// WagerEngine resolves gambles against the ledger
type WagerEngine struct {
	config WagerConfig
	ledger *Ledger
	boosts *BoostManager
	rand   Rand
}

// NewWagerEngine creates a wager engine
func NewWagerEngine(config WagerConfig, ledger *Ledger, boosts *BoostManager, rand Rand) *WagerEngine {
	return &WagerEngine{config: config, ledger: ledger, boosts: boosts, rand: rand}
}

// Place debits amount, draws once and credits the payout
func (w *WagerEngine) Place(amount int64, now time.Time) (WagerResult, error) {
	if amount <= 0 {
		return WagerResult{}, ErrInvalidAmount
	}
	if err := w.ledger.Debit(amount); err != nil {
		return WagerResult{}, err
	}

	roll := w.rand.Float64()
	result := WagerResult{
		Amount:   amount,
		Roll:     roll,
		PlacedAt: now,
		RevealAt: now.Add(w.config.RevealDelay.Std()),
	}

	switch {
	case roll < w.config.JackpotChance:
		result.Outcome = OutcomeJackpot
		result.Payout = mulSaturating(amount, w.config.JackpotMultiplier)
	case roll < w.config.JackpotChance+w.config.SuccessChance:
		result.Outcome = OutcomeSuccess
		result.Payout = mulSaturating(amount, w.config.SuccessMultiplier)
	case w.boosts.ConsumeShield(now):
		result.Outcome = OutcomeShielded
		result.Payout = amount
	default:
		result.Outcome = OutcomeLoss
	}

	if result.Payout > 0 {
		if err := w.ledger.Credit(result.Payout); err != nil {
			return WagerResult{}, err
		}
	}
	return result, nil
}

// Status reports the phase of result at now
func (w *WagerEngine) Status(result *WagerResult, now time.Time) WagerStatus {
	if result == nil {
		return WagerStatus{Phase: WagerIdle}
	}
	if now.Before(result.RevealAt) {
		return WagerStatus{Phase: WagerResolving}
	}
	if now.Before(result.RevealAt.Add(w.config.SettleDelay.Std())) {
		r := *result
		return WagerStatus{Phase: WagerRevealed, Result: &r}
	}
	return WagerStatus{Phase: WagerIdle}
}
