package services

import (
	"fmt"
	"strings"
)

const (
	PayoutPending    = "PENDING"
	PayoutProcessing = "PROCESSING"
	PayoutCompleted  = "COMPLETED"
	PayoutFailed     = "FAILED"
	PayoutCancelled  = "CANCELLED"
)

var payoutMessages = map[string]string{
	PayoutPending:    "Your payout request of %s is pending review.",
	PayoutProcessing: "Your payout of %s is being processed.",
	PayoutCompleted:  "Your payout of %s has been completed.",
	PayoutFailed:     "Your payout of %s has failed. Please contact support.",
	PayoutCancelled:  "Your payout request of %s was cancelled.",
}

// FormatPayoutAmount renders an amount in dollars with two decimals.
func FormatPayoutAmount(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// PayoutMessage returns the reader-facing text for a payout status change.
func PayoutMessage(status string, amount float64) string {
	formatted := FormatPayoutAmount(amount)
	if tmpl, ok := payoutMessages[strings.ToUpper(status)]; ok {
		return fmt.Sprintf(tmpl, formatted)
	}
	return fmt.Sprintf("Your payout of %s status changed to %s.", formatted, status)
}
