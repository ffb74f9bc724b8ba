package helper

import (
	"fmt"
	"strings"
)

// method to convert from seconds to minutes:seconds display
func SecondsToMinutesAndSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	minutes := int(seconds / 60)
	seconds = seconds - float64(minutes*60)
	return fmt.Sprintf("%02d:%02d", minutes, int(seconds))
}

// OnOff renders a toggle for the settings table.
func OnOff(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}

// JoinCarNumbers renders a car number list for the status table.
func JoinCarNumbers(numbers []string) string {
	if len(numbers) == 0 {
		return "-"
	}
	return strings.Join(numbers, ", ")
}
