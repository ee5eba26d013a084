// Package typing implements the typing session state machine, keystroke
// classification and live metrics.
package typing

import (
	"math"
	"time"
)

// CharsPerWord is the standard word length used for WPM.
const CharsPerWord = 5

// Metrics is a WPM/accuracy pair, both rounded to whole numbers.
type Metrics struct {
	WPM      int
	Accuracy int
}

// Idle is the safe default reported before a session has started.
var Idle = Metrics{WPM: 0, Accuracy: 100}

// Compute derives WPM and accuracy from counters and elapsed time.
func Compute(correct, total int, elapsed time.Duration) Metrics {
	return Metrics{
		WPM:      WPM(correct, elapsed),
		Accuracy: Accuracy(correct, total),
	}
}

// WPM returns round(correct / 5 / minutes), or 0 when no time has elapsed.
func WPM(correct int, elapsed time.Duration) int {
	minutes := float64(elapsed) / float64(time.Minute)
	if minutes <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / CharsPerWord / minutes))
}

// Accuracy returns round(correct / total * 100), or 100 with no keystrokes.
func Accuracy(correct, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
