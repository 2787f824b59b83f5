package services_test

import (
	"testing"

	"github.com/lorrc/reviewhub-realtime/internal/core/services"
	"github.com/stretchr/testify/assert"
)

func TestPayoutMessage(t *testing.T) {
	tests := []struct {
		status string
		amount float64
		want   string
	}{
		{"PENDING", 12.5, "Your payout request of $12.50 is pending review."},
		{"PROCESSING", 12.5, "Your payout of $12.50 is being processed."},
		{"COMPLETED", 42, "Your payout of $42.00 has been completed."},
		{"FAILED", 3, "Your payout of $3.00 has failed. Please contact support."},
		{"CANCELLED", 100, "Your payout request of $100.00 was cancelled."},
		{"completed", 1, "Your payout of $1.00 has been completed."},
		{"ON_HOLD", 7.25, "Your payout of $7.25 status changed to ON_HOLD."},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, services.PayoutMessage(tt.status, tt.amount))
		})
	}
}
