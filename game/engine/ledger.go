package engine

import "math"

// Ledger moves currency in and out of the player's spendable and vaulted balances.
// Every operation is all-or-nothing.
type Ledger struct {
	player *Player
}

// NewLedger binds a ledger to player
func NewLedger(player *Player) *Ledger {
	return &Ledger{player: player}
}

// Spendable returns the balance available for purchases
func (l *Ledger) Spendable() int64 { return l.player.Points }

// Vaulted returns the protected balance
func (l *Ledger) Vaulted() int64 { return l.player.Vault }

// Credit adds amount to the spendable balance
func (l *Ledger) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	l.player.Points = addSaturating(l.player.Points, amount)
	return nil
}

// Debit removes amount from the spendable balance
func (l *Ledger) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > l.player.Points {
		return ErrInsufficientFunds
	}
	l.player.Points -= amount
	return nil
}

// MoveToVault shifts amount from spendable to vault
func (l *Ledger) MoveToVault(amount int64) error {
	if err := l.Debit(amount); err != nil {
		return err
	}
	l.player.Vault = addSaturating(l.player.Vault, amount)
	return nil
}

// MoveFromVault shifts amount from vault back to spendable
func (l *Ledger) MoveFromVault(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if amount > l.player.Vault {
		return ErrInsufficientFunds
	}
	l.player.Vault -= amount
	l.player.Points = addSaturating(l.player.Points, amount)
	return nil
}

func addSaturating(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// mulSaturating multiplies non-negative values, clamping at MaxInt64
func mulSaturating(a, b int64) int64 {
	if a <= 0 || b <= 0 {
		return 0
	}
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	return a * b
}
