package commands

import (
	"fmt"
	"strings"
)

// progressLine renders an interim status for a multi-step command, e.g.
// "▮▮▯▯ Reading the current balance".
func progressLine(step int, label string) string {
	if step < 0 {
		step = 0
	}
	if step > progressWidth {
		step = progressWidth
	}
	return fmt.Sprintf("%s%s %s",
		strings.Repeat("▮", step),
		strings.Repeat("▯", progressWidth-step),
		label)
}
