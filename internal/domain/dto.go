package domain

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// CreateLeadRequest creates a new lead at inquiry intake
type CreateLeadRequest struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Email       string    `json:"email" validate:"required,email,max=255"`
	Phone       string    `json:"phone" validate:"max=50"`
	CompanyName string    `json:"companyName" validate:"max=200"`
	Nationality string    `json:"nationality" validate:"max=100"`
	SetupType   SetupType `json:"setupType" validate:"omitempty,oneof=mainland freezone offshore bank_only"`
	Source      string    `json:"source" validate:"max=100"`
	Notes       string    `json:"notes"`
}

// UpdateLeadRequest is a partial update: only fields present in the JSON
// body are applied. An explicit null clears a clearable field.
type UpdateLeadRequest struct {
	Name        Optional[string]    `json:"name"`
	Email       Optional[string]    `json:"email"`
	Phone       Optional[string]    `json:"phone"`
	CompanyName Optional[string]    `json:"companyName"`
	Nationality Optional[string]    `json:"nationality"`
	SetupType   Optional[SetupType] `json:"setupType"`
	Source      Optional[string]    `json:"source"`
	Notes       Optional[string]    `json:"notes"`
}

// FeasibilityRequest records the agent's feasibility verdict for a track
type FeasibilityRequest struct {
	Feasible *bool  `json:"feasible" validate:"required"`
	Remarks  string `json:"remarks" validate:"max=500"`
}

// QuoteAmountRequest sets or clears the quoted amount (AED) for a track.
// Explicit null clears the amount.
type QuoteAmountRequest struct {
	Amount Optional[float64] `json:"amount"`
}

// DecisionRequest records the customer's approve/decline decision,
// either entered by an operator or posted via a customer token link.
type DecisionRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Reason   string `json:"reason" validate:"max=500"`
}

// SendInvoiceRequest issues a new invoice revision. When PaymentLink is
// empty the track's last-used link is reused.
type SendInvoiceRequest struct {
	PaymentLink string `json:"paymentLink" validate:"omitempty,max=1000"`
}

// ReopenRequest clears a track's decline fields. ClearPayment
// additionally clears the invoice-sent, payment and completion stamps,
// unfreezing the track for a fresh quote cycle.
type ReopenRequest struct {
	ClearPayment bool `json:"clearPayment"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// SLAReport carries elapsed/overdue metrics derived from a track's
// timestamps. Pointer fields are nil when the metric is not applicable
// at the track's current stage.
type SLAReport struct {
	ResponseElapsedHours   *float64 `json:"responseElapsedHours,omitempty"`
	ResponseOverdue        *bool    `json:"responseOverdue,omitempty"`
	CompletionElapsedHours *float64 `json:"completionElapsedHours,omitempty"`
	CompletionOverdue      *bool    `json:"completionOverdue,omitempty"`
	// Closed-case metrics, reported once the track is completed.
	ResponseHours   *float64 `json:"responseHours,omitempty"`
	CompletionHours *float64 `json:"completionHours,omitempty"`
}

// TrackDTO is the API projection of one track's state
type TrackDTO struct {
	Status             TrackStatus `json:"status"`
	SentToAgentAt      *time.Time  `json:"sentToAgentAt,omitempty"`
	AgentContactedAt   *time.Time  `json:"agentContactedAt,omitempty"`
	Feasible           *bool       `json:"feasible,omitempty"`
	FeasibleAt         *time.Time  `json:"feasibleAt,omitempty"`
	QuotedAmount       *float64    `json:"quotedAmount,omitempty"`
	QuoteSentAt        *time.Time  `json:"quoteSentAt,omitempty"`
	QuoteViewedAt      *time.Time  `json:"quoteViewedAt,omitempty"`
	Approved           *bool       `json:"approved,omitempty"`
	QuoteApprovedAt    *time.Time  `json:"quoteApprovedAt,omitempty"`
	ProceedConfirmedAt *time.Time  `json:"proceedConfirmedAt,omitempty"`
	DeclinedAt         *time.Time  `json:"declinedAt,omitempty"`
	DeclineReason      string      `json:"declineReason,omitempty"`
	InvoiceNumber      string      `json:"invoiceNumber,omitempty"`
	InvoiceVersion     int         `json:"invoiceVersion,omitempty"`
	InvoiceAmount      *float64    `json:"invoiceAmount,omitempty"`
	PaymentLink        string      `json:"paymentLink,omitempty"`
	InvoiceSentAt      *time.Time  `json:"invoiceSentAt,omitempty"`
	PaymentReceivedAt  *time.Time  `json:"paymentReceivedAt,omitempty"`
	CompletedAt        *time.Time  `json:"completedAt,omitempty"`
	SLA                *SLAReport  `json:"sla,omitempty"`
}

// LeadDTO is the API projection of a lead aggregate
type LeadDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	CompanyName string    `json:"companyName,omitempty"`
	Nationality string    `json:"nationality,omitempty"`
	SetupType   SetupType `json:"setupType"`
	Source      string    `json:"source,omitempty"`
	Notes       string    `json:"notes,omitempty"`
	Company     TrackDTO  `json:"company"`
	Bank        TrackDTO  `json:"bank"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// InvoiceRevisionDTO is the API projection of one ledger entry
type InvoiceRevisionDTO struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	Track       Track      `json:"track"`
	Version     int        `json:"version"`
	Number      string     `json:"number"`
	Amount      float64    `json:"amount"`
	PaymentLink string     `json:"paymentLink"`
	SentAt      time.Time  `json:"sentAt"`
	ViewedAt    *time.Time `json:"viewedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ActivityDTO is the API projection of one audit entry
type ActivityDTO struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"leadId"`
	Action    ActionCode `json:"action"`
	Message   string     `json:"message,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// NotificationDTO is the API projection of an operator notification
type NotificationDTO struct {
	ID        uuid.UUID   `json:"id"`
	Event     NotifyEvent `json:"event"`
	LeadID    uuid.UUID   `json:"leadId"`
	Track     Track       `json:"track"`
	Title     string      `json:"title"`
	Message   string      `json:"message,omitempty"`
	ReadAt    *time.Time  `json:"readAt,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// QuoteViewDTO is the customer-facing quote page payload, reached via a
// token link. Deliberately narrow: no internal notes, no other track.
type QuoteViewDTO struct {
	LeadName     string     `json:"leadName"`
	Track        Track      `json:"track"`
	SetupType    SetupType  `json:"setupType"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	QuoteSentAt  *time.Time `json:"quoteSentAt,omitempty"`
	Approved     *bool      `json:"approved,omitempty"`
	DeclinedAt   *time.Time `json:"declinedAt,omitempty"`
	DecisionOpen bool       `json:"decisionOpen"`
}

// InvoiceViewDTO is the customer-facing invoice payload
type InvoiceViewDTO struct {
	Number      string    `json:"number"`
	Version     int       `json:"version"`
	Track       Track     `json:"track"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	PaymentLink string    `json:"paymentLink"`
	Content     string    `json:"content,omitempty"`
	SentAt      time.Time `json:"sentAt"`
	Paid        bool      `json:"paid"`
}

// SendInvoiceResult reports the outcome of a sendInvoice operation.
// Warning is set when the email went out but bookkeeping failed; the
// operation still counts as success.
type SendInvoiceResult struct {
	Lead     *LeadDTO            `json:"lead"`
	Revision *InvoiceRevisionDTO `json:"revision,omitempty"`
	Warning  string              `json:"warning,omitempty"`
}

// PaginatedResponse wraps list results with pagination metadata
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}
