package detect

import "github.com/forPelevin/matchcut/internal/types"

type rule struct {
	label types.EventLabel
	fires func(fc frameContext, cfg Config) bool
}

func defaultRules() []rule {
	return []rule{
		{label: types.LabelGoalChance, fires: proximityRule},
		{label: types.LabelPenaltySequence, fires: penaltyRule},
	}
}

// proximityRule: any goalkeeper with at least one player closer than ProximityPx.
func proximityRule(fc frameContext, cfg Config) bool {
	for _, g := range fc.goalkeepers {
		for _, p := range fc.players {
			if centerDistance(g, p) < cfg.ProximityPx {
				return true
			}
		}
	}
	return false
}

// penaltyRule: ball and goalkeeper visible, a single player, and a ball
// moving faster than SpeedThreshold over SpeedLag frames.
func penaltyRule(fc frameContext, cfg Config) bool {
	if fc.ball == nil || len(fc.goalkeepers) == 0 {
		return false
	}
	if len(fc.players) != 1 {
		return false
	}
	return fc.hasSpeed && fc.speed > cfg.SpeedThreshold
}
