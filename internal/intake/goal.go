package intake

import (
	"errors"
	"fmt"
)

// Goal is the user's fitness objective. On the wire it is one of the
// tokens "1", "2" or "3".
type Goal int

const (
	GoalLoseFat Goal = iota + 1
	GoalGainMuscle
	GoalMaintain
)

var ErrUnknownGoal = errors.New("unknown goal")

// ParseGoal maps a wire token to a Goal. Only the exact tokens are accepted.
func ParseGoal(token string) (Goal, error) {
	switch token {
	case "1":
		return GoalLoseFat, nil
	case "2":
		return GoalGainMuscle, nil
	case "3":
		return GoalMaintain, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownGoal, token)
	}
}

// Token returns the wire token of the goal, or "" for an invalid value.
func (g Goal) Token() string {
	switch g {
	case GoalLoseFat:
		return "1"
	case GoalGainMuscle:
		return "2"
	case GoalMaintain:
		return "3"
	default:
		return ""
	}
}

// Description is the phrase used inside the completion prompt.
func (g Goal) Description() string {
	switch g {
	case GoalLoseFat:
		return "lose fat"
	case GoalGainMuscle:
		return "gain muscle"
	case GoalMaintain:
		return "maintain weight"
	default:
		return "unknown"
	}
}

func (g Goal) String() string { return g.Description() }
