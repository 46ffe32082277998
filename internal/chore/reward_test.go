package chore

import (
	"errors"
	"testing"

	"github.com/mhutchens/chorebank/internal/model"
)

func TestResolveRewardFixed(t *testing.T) {
	tmpl := &model.ChoreTemplate{RewardKind: model.RewardFixed, RewardAmount: 10}

	amount, err := ResolveReward(tmpl, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if amount != 10 {
		t.Errorf("amount = %d, want 10", amount)
	}

	// An explicit value on a fixed reward is ignored, not an error.
	explicit := 99
	amount, err = ResolveReward(tmpl, &explicit)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if amount != 10 {
		t.Errorf("amount = %d, want fixed 10 regardless of explicit value", amount)
	}
}

func TestResolveRewardRange(t *testing.T) {
	tmpl := &model.ChoreTemplate{RewardKind: model.RewardRange, RewardMin: 5, RewardMax: 15}

	if _, err := ResolveReward(tmpl, nil); err == nil {
		t.Fatal("range reward without explicit value should fail")
	}

	var verr *ValidationError
	low := 4
	if _, err := ResolveReward(tmpl, &low); !errors.As(err, &verr) {
		t.Fatalf("below minimum: got %v, want ValidationError", err)
	}
	high := 16
	if _, err := ResolveReward(tmpl, &high); !errors.As(err, &verr) {
		t.Fatalf("above maximum: got %v, want ValidationError", err)
	}

	for _, v := range []int{5, 10, 15} {
		v := v
		amount, err := ResolveReward(tmpl, &v)
		if err != nil {
			t.Fatalf("resolve %d: %v", v, err)
		}
		if amount != v {
			t.Errorf("amount = %d, want %d", amount, v)
		}
	}
}
