// Package datefilter restricts transaction sequences to an inclusive date
// window.
package datefilter

import (
	"swisscluster/camt-import/internal/models"
)

// Filter returns the transactions whose date falls inside the window,
// bounds included, preserving order. A zero bound leaves that side
// unbounded; an unbounded window returns the input unchanged. Filter never
// rejects: validating the window is the caller's job.
func Filter(transactions []models.NormalizedTransaction, window models.DateRange) []models.NormalizedTransaction {
	if !window.Bounded() {
		return transactions
	}

	filtered := make([]models.NormalizedTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if window.Contains(tx.Date) {
			filtered = append(filtered, tx)
		}
	}
	return filtered
}
