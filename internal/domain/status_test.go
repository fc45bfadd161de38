package domain_test

import (
	"testing"
	"time"

	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func ptrTime(t time.Time) *time.Time { return &t }
func ptrBool(b bool) *bool           { return &b }
func ptrFloat(f float64) *float64    { return &f }

func TestStatusProjection(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		ts   domain.TrackState
		want domain.TrackStatus
	}{
		{"empty track is new", domain.TrackState{}, domain.TrackStatusNew},
		{"agent contacted", domain.TrackState{AgentContactedAt: ptrTime(now)}, domain.TrackStatusAgentContacted},
		{"feasible", domain.TrackState{Feasible: ptrBool(true), FeasibleAt: ptrTime(now)}, domain.TrackStatusFeasible},
		{"not feasible", domain.TrackState{Feasible: ptrBool(false), FeasibleAt: ptrTime(now)}, domain.TrackStatusNotFeasible},
		{"quoted", domain.TrackState{Feasible: ptrBool(true), QuotedAmount: ptrFloat(5000)}, domain.TrackStatusQuoted},
		{"approval requested", domain.TrackState{QuotedAmount: ptrFloat(5000), QuoteSentAt: ptrTime(now)}, domain.TrackStatusApprovalRequested},
		{"approved", domain.TrackState{QuoteSentAt: ptrTime(now), QuoteApprovedAt: ptrTime(now)}, domain.TrackStatusApproved},
		{"declined wins over approval fields", domain.TrackState{QuoteSentAt: ptrTime(now), QuoteApprovedAt: ptrTime(now), DeclinedAt: ptrTime(now)}, domain.TrackStatusDeclined},
		{"invoiced wins over declined", domain.TrackState{DeclinedAt: ptrTime(now), InvoiceSentAt: ptrTime(now)}, domain.TrackStatusInvoiced},
		{"payment wins over invoiced", domain.TrackState{InvoiceSentAt: ptrTime(now), PaymentReceivedAt: ptrTime(now)}, domain.TrackStatusPaymentReceived},
		{"completed wins over everything", domain.TrackState{InvoiceSentAt: ptrTime(now), PaymentReceivedAt: ptrTime(now), CompletedAt: ptrTime(now)}, domain.TrackStatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ts.Status())
		})
	}
}

func TestIsApprovedAcceptsAnySignal(t *testing.T) {
	now := time.Now()

	assert.False(t, (&domain.TrackState{}).IsApproved())
	assert.True(t, (&domain.TrackState{Approved: ptrBool(true)}).IsApproved())
	assert.True(t, (&domain.TrackState{ProceedConfirmedAt: ptrTime(now)}).IsApproved())
	assert.True(t, (&domain.TrackState{QuoteApprovedAt: ptrTime(now)}).IsApproved())
	assert.False(t, (&domain.TrackState{Approved: ptrBool(false)}).IsApproved())
}

func TestTerminal(t *testing.T) {
	now := time.Now()

	assert.False(t, (&domain.TrackState{}).Terminal())
	assert.True(t, (&domain.TrackState{CompletedAt: ptrTime(now)}).Terminal())
	assert.True(t, (&domain.TrackState{Feasible: ptrBool(false)}).Terminal())
	assert.False(t, (&domain.TrackState{Feasible: ptrBool(true)}).Terminal())
}

func TestSuffixIsStableAndUppercase(t *testing.T) {
	lead := &domain.Lead{}
	lead.ID = [16]byte{0xab, 0xcd, 0x12, 0x34}

	assert.Equal(t, "ABCD", lead.Suffix())
	assert.Equal(t, lead.Suffix(), lead.Suffix())
}
