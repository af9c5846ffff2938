package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"branch-tracker/internal/errors"
)

var agePattern = regexp.MustCompile(`^(\d+)(m|h|d|w|mo|y)$`)

// parseAge parses shorthand ages like "30m", "2h", "1d", "2w", "3mo", "1y"
func parseAge(shorthand string) (time.Duration, error) {
	matches := agePattern.FindStringSubmatch(shorthand)
	if matches == nil {
		return 0, errors.NewInvalidInputError("age", shorthand, "expected a number followed by m, h, d, w, mo or y")
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil || value == 0 {
		return 0, errors.NewInvalidInputError("age", shorthand, "must be a positive number")
	}

	day := 24 * time.Hour
	switch matches[2] {
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * day, nil
	case "w":
		return time.Duration(value) * 7 * day, nil
	case "mo":
		return time.Duration(value) * 30 * day, nil
	default:
		return time.Duration(value) * 365 * day, nil
	}
}

// formatDuration renders a duration as "1h 5m" or "42s"
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
