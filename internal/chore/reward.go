package chore

import "github.com/mhutchens/chorebank/internal/model"

// ResolveReward computes the amount to grant when approving an assignment of
// t. For fixed rewards the explicit value is ignored. For range rewards an
// explicit value is mandatory and must fall within [min, max].
func ResolveReward(t *model.ChoreTemplate, explicit *int) (int, error) {
	switch t.RewardKind {
	case model.RewardFixed:
		return t.RewardAmount, nil
	case model.RewardRange:
		if explicit == nil {
			return 0, validationf("a reward value is required for range rewards")
		}
		if *explicit < t.RewardMin || *explicit > t.RewardMax {
			return 0, validationf("reward value must be between %d and %d", t.RewardMin, t.RewardMax)
		}
		return *explicit, nil
	default:
		return 0, validationf("unknown reward kind %q", t.RewardKind)
	}
}
