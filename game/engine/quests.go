package engine

// QuestTracker advances quest counters and pays out each reward at most once
type QuestTracker struct {
	state *State
}

// NewQuestTracker binds a tracker to state
func NewQuestTracker(state *State) *QuestTracker {
	return &QuestTracker{state: state}
}

// Advance adds amount to every unclaimed quest of kind, clamped at its target
func (q *QuestTracker) Advance(kind QuestKind, amount int64) {
	if amount <= 0 {
		return
	}
	for i := range q.state.Quests {
		quest := &q.state.Quests[i]
		if quest.Kind != kind || quest.Claimed {
			continue
		}
		quest.Current = min(quest.Target, addSaturating(quest.Current, amount))
	}
}

// Claim marks a completed quest claimed and credits its reward
func (q *QuestTracker) Claim(id string, ledger *Ledger) (Quest, error) {
	for i := range q.state.Quests {
		quest := &q.state.Quests[i]
		if quest.ID != id {
			continue
		}
		if quest.Claimed || quest.Current < quest.Target {
			return *quest, ErrNotEligible
		}
		if quest.Reward > 0 {
			if err := ledger.Credit(quest.Reward); err != nil {
				return *quest, err
			}
		}
		quest.Claimed = true
		return *quest, nil
	}
	return Quest{}, ErrQuestNotFound
}

// ResetAll zeroes progress and claim flags of every quest
func (q *QuestTracker) ResetAll() {
	for i := range q.state.Quests {
		q.state.Quests[i].Current = 0
		q.state.Quests[i].Claimed = false
	}
}

// List returns a copy of the quests
func (q *QuestTracker) List() []Quest {
	return append([]Quest(nil), q.state.Quests...)
}
