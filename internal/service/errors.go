package service

import "errors"

// Common service errors
var (
	// ErrLeadNotFound is returned when a lead does not exist
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidTrack is returned for an unknown track identifier
	ErrInvalidTrack = errors.New("invalid track")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrAgentNotContacted is returned when a feasibility verdict is
	// recorded before the agent handoff was acknowledged
	ErrAgentNotContacted = errors.New("agent has not been marked as contacted")

	// ErrNotFeasible is returned when a track ruled not feasible is
	// asked to progress
	ErrNotFeasible = errors.New("track was ruled not feasible")

	// ErrInvalidAmount is returned for a non-finite or non-positive
	// quoted amount
	ErrInvalidAmount = errors.New("amount must be a positive number")

	// ErrQuoteAmountMissing is returned when a quote send or invoice
	// send is attempted with no quoted amount on the track
	ErrQuoteAmountMissing = errors.New("no quoted amount set for this track")

	// ErrQuoteNotSent is returned when a decision is recorded before any
	// quote went out
	ErrQuoteNotSent = errors.New("quote has not been sent for this track")

	// ErrNotApproved is returned when an invoice send is attempted
	// without customer approval on record
	ErrNotApproved = errors.New("quote has not been approved")

	// ErrTrackDeclined is returned when a declined track is asked to
	// progress without being reopened first
	ErrTrackDeclined = errors.New("track has been declined")

	// ErrInvalidPaymentLink is returned when no usable https payment
	// link can be resolved for an invoice
	ErrInvalidPaymentLink = errors.New("a valid https payment link is required")

	// ErrAlreadyInvoiced is returned when a quote re-send is attempted
	// while an unpaid invoice is outstanding
	ErrAlreadyInvoiced = errors.New("an invoice has already been sent for this track")

	// ErrInvoiceNotSent is returned when payment is recorded with no
	// invoice on the track
	ErrInvoiceNotSent = errors.New("no invoice has been sent for this track")

	// ErrPaymentAlreadyReceived is returned when a mutation would alter
	// a track frozen by payment
	ErrPaymentAlreadyReceived = errors.New("payment has already been received for this track")

	// ErrPaymentNotReceived is returned when completion is recorded
	// before payment
	ErrPaymentNotReceived = errors.New("payment has not been received for this track")

	// ErrInvoiceNotFound is returned when a requested invoice revision
	// does not exist
	ErrInvoiceNotFound = errors.New("invoice revision not found")

	// ErrNotificationNotFound is returned when a notification does not exist
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrEmailDelivery wraps SMTP failures on mandatory sends; the
	// transition is aborted when this is returned
	ErrEmailDelivery = errors.New("email delivery failed")
)
