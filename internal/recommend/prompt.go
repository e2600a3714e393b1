// Package recommend turns a completed intake profile into a recommendation:
// it prompts the LLM, formats the reply and records it in the profile store.
package recommend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rufetisr/FitnessTelegramBot/internal/intake"
)

const Footer = "Thank you for using HealthMentor Bot!\nType /start to restart."

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BuildPrompt renders the single user prompt sent to the completion service.
func BuildPrompt(p intake.Profile) string {
	return fmt.Sprintf("I am a %s kg, %s cm tall individual. I exercise %s times per week. "+
		"My goal is to %s. Provide a concise and practical fitness and nutrition recommendation "+
		"to help me achieve my goal. Focus only on necessary actions and avoid unnecessary details.",
		formatNumber(p.Weight), formatNumber(p.Height), formatNumber(p.ExerciseFrequency), p.Goal.Description())
}

// CleanText removes bold markers, which Telegram would otherwise show verbatim.
func CleanText(s string) string {
	return strings.ReplaceAll(s, "**", "")
}

// FormatReply echoes the answers, then the recommendation and the footer.
func FormatReply(p intake.Profile, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your goal: %s,\n", p.Goal.Description())
	fmt.Fprintf(&b, "Your weight: %s kg,\n", formatNumber(p.Weight))
	fmt.Fprintf(&b, "Your height: %s cm,\n", formatNumber(p.Height))
	fmt.Fprintf(&b, "Your exercise frequency: %s times per week,\n", formatNumber(p.ExerciseFrequency))
	b.WriteString("Here's your recommendation:\n")
	b.WriteString(strings.TrimSpace(text))
	b.WriteString("\n\n")
	b.WriteString(Footer)
	return b.String()
}
