package intake

import (
	"errors"
	"testing"
)

func TestValidateGoal(t *testing.T) {
	for token, want := range map[string]Goal{"1": GoalLoseFat, "2": GoalGainMuscle, "3": GoalMaintain} {
		got, err := ValidateGoal(token)
		if err != nil || got != want {
			t.Fatalf("ValidateGoal(%q) = %v, %v; want %v", token, got, err, want)
		}
	}
	for _, bad := range []string{"", " ", " 3 ", "2\n", "\t1", "0", "4", "9", "1.0", "01", "one", "Lose Fat", "1 2"} {
		if _, err := ValidateGoal(bad); !errors.Is(err, ErrInvalidGoal) {
			t.Fatalf("ValidateGoal(%q) err = %v, want ErrInvalidGoal", bad, err)
		}
	}
}

func TestValidateWeightAndHeight(t *testing.T) {
	valid := map[string]float64{
		"60":     60,
		"60.5":   60.5,
		" 72 ":   72,
		"+80":    80,
		".5":     0.5,
		"180.":   180,
		"0080.0": 80,
	}
	invalid := []string{
		"", "   ", "abc", "60abc", "abc60", "6 0", "0", "0.0", "-5", "-0.1",
		"1e2", "0x10", "Inf", "NaN", "60,5", "--1", ".", "+",
	}

	for in, want := range valid {
		w, err := ValidateWeight(in)
		if err != nil || w != want {
			t.Fatalf("ValidateWeight(%q) = %v, %v; want %v", in, w, err, want)
		}
		h, err := ValidateHeight(in)
		if err != nil || h != want {
			t.Fatalf("ValidateHeight(%q) = %v, %v; want %v", in, h, err, want)
		}
	}
	for _, in := range invalid {
		if _, err := ValidateWeight(in); !errors.Is(err, ErrInvalidWeight) {
			t.Fatalf("ValidateWeight(%q) err = %v", in, err)
		}
		if _, err := ValidateHeight(in); !errors.Is(err, ErrInvalidHeight) {
			t.Fatalf("ValidateHeight(%q) err = %v", in, err)
		}
	}
}

func TestValidateFrequency(t *testing.T) {
	valid := map[string]float64{"0": 0, "3": 3, "3.0": 3, " 7 ": 7, "+2": 2, "2.5": 2.5, ".5": 0.5}
	for in, want := range valid {
		got, err := ValidateFrequency(in)
		if err != nil || got != want {
			t.Fatalf("ValidateFrequency(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", " ", "-1", "3x", "three", "1e1", "-0.5"} {
		if _, err := ValidateFrequency(in); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("ValidateFrequency(%q) err = %v", in, err)
		}
	}
}

func TestGoalDescriptions(t *testing.T) {
	cases := []struct {
		g     Goal
		token string
		desc  string
	}{
		{GoalLoseFat, "1", "lose fat"},
		{GoalGainMuscle, "2", "gain muscle"},
		{GoalMaintain, "3", "maintain weight"},
	}
	for _, c := range cases {
		if c.g.Token() != c.token || c.g.Description() != c.desc {
			t.Fatalf("goal %d: token=%q desc=%q", c.g, c.g.Token(), c.g.Description())
		}
		parsed, err := ParseGoal(c.token)
		if err != nil || parsed != c.g {
			t.Fatalf("ParseGoal(%q) = %v, %v", c.token, parsed, err)
		}
	}
	if Goal(0).Token() != "" {
		t.Fatalf("zero goal should have no token")
	}
}
