package engine

import "time"

// InjectPoints credits amount directly. Requires privileged mode.
func (e *Engine) InjectPoints(amount int64) error {
	return e.admin(func(time.Time) error { return e.ledger.Credit(amount) })
}

// BanAlias adds an alias to the ban list. Requires privileged mode.
func (e *Engine) BanAlias(alias string) error {
	return e.admin(func(time.Time) error {
		key := NormalizeCode(alias)
		if key == "" {
			return ErrInvalidName
		}
		e.state.BanList[key] = true
		e.logger.Info("alias banned", "player_id", e.identity.ID, "alias", key)
		return nil
	})
}

// UnbanAlias removes an alias from the ban list. Requires privileged mode.
func (e *Engine) UnbanAlias(alias string) error {
	return e.admin(func(time.Time) error {
		key := NormalizeCode(alias)
		if key == "" {
			return ErrInvalidName
		}
		delete(e.state.BanList, key)
		return nil
	})
}

// BanList returns the banned aliases
func (e *Engine) BanList() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	aliases := make([]string, 0, len(e.state.BanList))
	for alias := range e.state.BanList {
		aliases = append(aliases, alias)
	}
	return aliases
}

// SetMaxTier raises the spendable balance to the top tier threshold. Requires privileged mode.
func (e *Engine) SetMaxTier() error {
	return e.admin(func(time.Time) error {
		top := e.config.Tiers[len(e.config.Tiers)-1].MinPoints
		if e.state.Player.Points < top {
			e.state.Player.Points = top
		}
		return nil
	})
}

// ResetQuests zeroes every quest. Requires privileged mode.
func (e *Engine) ResetQuests() error {
	return e.admin(func(time.Time) error {
		e.quests.ResetAll()
		return nil
	})
}

// Wipe replaces the world with a fresh one for the same identity. Privileged
// mode does not survive the wipe.
func (e *Engine) Wipe() error {
	return e.admin(func(time.Time) error {
		e.state = NewState(e.config, e.identity)
		e.bind()
		e.mockBoard = nil
		e.logger.Warn("world wiped", "player_id", e.identity.ID)
		return nil
	})
}

func (e *Engine) admin(fn func(now time.Time) error) error {
	return e.mutate(false, func(now time.Time) error {
		if !e.state.Privileged {
			return ErrNotPrivileged
		}
		return fn(now)
	})
}
