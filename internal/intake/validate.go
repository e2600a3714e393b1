package intake

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrInvalidGoal      = errors.New("invalid goal")
	ErrInvalidWeight    = errors.New("invalid weight")
	ErrInvalidHeight    = errors.New("invalid height")
	ErrInvalidFrequency = errors.New("invalid exercise frequency")
)

// Plain decimals only: no exponent, hex, inf/nan or comma separators.
var decimalRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// parseDecimal parses the whole of s as a decimal number. Surrounding
// whitespace is ignored, anything else that is not part of the number fails.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !decimalRe.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// ValidateGoal accepts only the exact tokens "1", "2" or "3".
func ValidateGoal(text string) (Goal, error) {
	g, err := ParseGoal(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidGoal, text)
	}
	return g, nil
}

func ValidateWeight(text string) (float64, error) {
	v, ok := parseDecimal(text)
	if !ok || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWeight, text)
	}
	return v, nil
}

func ValidateHeight(text string) (float64, error) {
	v, ok := parseDecimal(text)
	if !ok || v <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeight, text)
	}
	return v, nil
}

// ValidateFrequency accepts any non-negative number of sessions per week,
// fractions included.
func ValidateFrequency(text string) (float64, error) {
	v, ok := parseDecimal(text)
	if !ok || v < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrequency, text)
	}
	return v, nil
}
