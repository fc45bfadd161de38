package domain

// TrackStatus is a display status derived from a track's timestamp
// fields. It is never stored; the timestamps are the source of truth.
type TrackStatus string

const (
	TrackStatusNew               TrackStatus = "new"
	TrackStatusAgentContacted    TrackStatus = "agent_contacted"
	TrackStatusNotFeasible       TrackStatus = "not_feasible"
	TrackStatusFeasible          TrackStatus = "feasible"
	TrackStatusQuoted            TrackStatus = "quoted"
	TrackStatusApprovalRequested TrackStatus = "approval_requested"
	TrackStatusApproved          TrackStatus = "approved"
	TrackStatusDeclined          TrackStatus = "declined"
	TrackStatusInvoiced          TrackStatus = "invoiced"
	TrackStatusPaymentReceived   TrackStatus = "payment_received"
	TrackStatusCompleted         TrackStatus = "completed"
)

// IsApproved reports whether the customer has approved the quote for
// this track. Several historically-introduced fields carry the same
// fact (explicit approval flag, proceed confirmation, quote approval
// timestamp); any one of them counts. This equivalent-OR is intentional
// legacy compatibility and must stay the single source of the predicate.
func (ts *TrackState) IsApproved() bool {
	if ts.Approved != nil && *ts.Approved {
		return true
	}
	if ts.ProceedConfirmedAt != nil {
		return true
	}
	if ts.QuoteApprovedAt != nil {
		return true
	}
	return false
}

// Status projects the track's field state onto a single display status.
// Later milestones win over earlier ones so a completed track reads
// "completed" even though every prior timestamp is also set.
func (ts *TrackState) Status() TrackStatus {
	switch {
	case ts.CompletedAt != nil:
		return TrackStatusCompleted
	case ts.PaymentReceivedAt != nil:
		return TrackStatusPaymentReceived
	case ts.InvoiceSentAt != nil:
		return TrackStatusInvoiced
	case ts.DeclinedAt != nil:
		return TrackStatusDeclined
	case ts.QuoteSentAt != nil && ts.IsApproved():
		return TrackStatusApproved
	case ts.QuoteSentAt != nil:
		return TrackStatusApprovalRequested
	case ts.QuotedAmount != nil:
		return TrackStatusQuoted
	case ts.Feasible != nil && !*ts.Feasible:
		return TrackStatusNotFeasible
	case ts.Feasible != nil:
		return TrackStatusFeasible
	case ts.AgentContactedAt != nil:
		return TrackStatusAgentContacted
	default:
		return TrackStatusNew
	}
}

// Terminal reports whether the track can make no further forward
// progress without an explicit operator reopen.
func (ts *TrackState) Terminal() bool {
	if ts.CompletedAt != nil {
		return true
	}
	return ts.Feasible != nil && !*ts.Feasible
}
