package engine

// ResolveTier returns the tier with the greatest MinPoints not above points.
// Points below every threshold resolve to the lowest tier.
func ResolveTier(tiers []RankTier, points int64) RankTier {
	if len(tiers) == 0 {
		return RankTier{}
	}
	for i := len(tiers) - 1; i >= 0; i-- {
		if points >= tiers[i].MinPoints {
			return tiers[i]
		}
	}
	return tiers[0]
}

// NextTier returns the tier after the one points resolves to and the
// percentage (0..100) of the way there. The top tier has no next tier and
// reports 100.
func NextTier(tiers []RankTier, points int64) (*RankTier, float64) {
	idx := tierIndex(tiers, points)
	if idx < 0 || idx+1 >= len(tiers) {
		return nil, 100
	}

	current, next := tiers[idx], tiers[idx+1]
	span := next.MinPoints - current.MinPoints
	progress := float64(points-current.MinPoints) / float64(span) * 100
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	return &next, progress
}

func tierIndex(tiers []RankTier, points int64) int {
	if len(tiers) == 0 {
		return -1
	}
	for i := len(tiers) - 1; i >= 0; i-- {
		if points >= tiers[i].MinPoints {
			return i
		}
	}
	return 0
}
