package utils

import (
	"fmt"
	"time"
)

// Date layouts used across report rendering.
const (
	DateOnly = "2006-01-02"
	DateTime = "2006-01-02 15:04"
)

// Currency formats an amount with a currency symbol.
// USD (or empty) uses "$"; other currencies prefix with the code.
func Currency(amount float64, currency string) string {
	symbol := "$"
	if currency != "" && currency != "USD" {
		symbol = currency + " "
	}
	return fmt.Sprintf("%s%.2f", symbol, amount)
}

// TimeOrDash formats a time value using the given layout, or returns "—" if zero.
func TimeOrDash(t time.Time, layout string) string {
	if t.IsZero() {
		return "—"
	}
	return t.Format(layout)
}
