package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:(gen_random_uuid())"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database default did not
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Track identifies one of the two independent deal pipelines on a lead.
type Track string

const (
	TrackCompany Track = "company"
	TrackBank    Track = "bank"
)

// IsValid checks if the Track is a valid enum value
func (t Track) IsValid() bool {
	return t == TrackCompany || t == TrackBank
}

// Prefix returns the uppercase discriminator used in invoice numbers.
func (t Track) Prefix() string {
	return strings.ToUpper(string(t))
}

// Tracks lists both pipelines in display order.
var Tracks = []Track{TrackCompany, TrackBank}

// SetupType represents the kind of business setup the lead inquired about
type SetupType string

const (
	SetupTypeMainland SetupType = "mainland"
	SetupTypeFreezone SetupType = "freezone"
	SetupTypeOffshore SetupType = "offshore"
	SetupTypeBankOnly SetupType = "bank_only"
)

// IsValid checks if the SetupType is a valid enum value
func (s SetupType) IsValid() bool {
	switch s {
	case SetupTypeMainland, SetupTypeFreezone, SetupTypeOffshore, SetupTypeBankOnly:
		return true
	}
	return false
}

// TrackState holds the full per-track progression of a lead. Company and
// bank tracks are two embedded instances of this struct rather than one
// combined status enum, so each advances independently.
//
// Milestone timestamps record the FIRST occurrence only; transitions that
// re-fire are idempotent no-ops. Once PaymentReceivedAt is set the invoice
// snapshot is frozen until an operator reopens the track.
type TrackState struct {
	SentToAgentAt      *time.Time `json:"sentToAgentAt,omitempty"`
	AgentContactedAt   *time.Time `json:"agentContactedAt,omitempty"`
	Feasible           *bool      `json:"feasible,omitempty"`
	FeasibleAt         *time.Time `json:"feasibleAt,omitempty"`
	QuotedAmount       *float64   `json:"quotedAmount,omitempty"`
	QuoteSentAt        *time.Time `json:"quoteSentAt,omitempty"`
	QuoteViewedAt      *time.Time `json:"quoteViewedAt,omitempty"`
	Approved           *bool      `json:"approved,omitempty"`
	QuoteApprovedAt    *time.Time `json:"quoteApprovedAt,omitempty"`
	ProceedConfirmedAt *time.Time `json:"proceedConfirmedAt,omitempty"`
	DeclinedAt         *time.Time `json:"declinedAt,omitempty"`
	DeclineReason      string     `gorm:"type:varchar(500)" json:"declineReason,omitempty"`

	// Current-invoice snapshot. The authoritative history lives in the
	// invoice_revisions ledger; this is the mutable "latest" pointer.
	InvoiceNumber     string     `gorm:"type:varchar(50)" json:"invoiceNumber,omitempty"`
	InvoiceVersion    int        `json:"invoiceVersion,omitempty"`
	InvoiceAmount     *float64   `json:"invoiceAmount,omitempty"`
	PaymentLink       string     `gorm:"type:varchar(1000)" json:"paymentLink,omitempty"`
	InvoiceContent    string     `gorm:"type:text" json:"-"`
	InvoiceSentAt     *time.Time `json:"invoiceSentAt,omitempty"`
	PaymentReceivedAt *time.Time `json:"paymentReceivedAt,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
}

// Lead is the aggregate root: one customer inquiry carrying two
// independently progressing tracks (company formation, bank account).
type Lead struct {
	BaseModel
	Name        string    `gorm:"type:varchar(200);not null;index"`
	Email       string    `gorm:"type:varchar(255);not null;index"`
	Phone       string    `gorm:"type:varchar(50)"`
	CompanyName string    `gorm:"type:varchar(200);column:company_name"`
	Nationality string    `gorm:"type:varchar(100)"`
	SetupType   SetupType `gorm:"type:varchar(50);not null;default:'mainland';index"`
	Source      string    `gorm:"type:varchar(100)"`
	Notes       string    `gorm:"type:text"`

	CompanyTrack TrackState `gorm:"embedded;embeddedPrefix:company_"`
	BankTrack    TrackState `gorm:"embedded;embeddedPrefix:bank_"`

	Revisions  []InvoiceRevision `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE"`
	Activities []ActivityRecord  `gorm:"foreignKey:LeadID;constraint:OnDelete:CASCADE"`
}

// TrackState returns a pointer to the state record for the given track.
// Mutations through the pointer are applied to the lead itself.
func (l *Lead) TrackState(t Track) *TrackState {
	if t == TrackBank {
		return &l.BankTrack
	}
	return &l.CompanyTrack
}

// Suffix returns the 4-character lead discriminator embedded in invoice
// numbers, derived from the lead ID. Uppercase hex, stable for the life
// of the lead.
func (l *Lead) Suffix() string {
	id := strings.ReplaceAll(l.ID.String(), "-", "")
	if len(id) < 4 {
		return strings.ToUpper(id)
	}
	return strings.ToUpper(id[:4])
}

// InvoiceRevision is one immutable entry in the append-only invoice
// ledger. (LeadID, Track, Version) is unique; versions start at 1 and
// increase without gaps per track.
type InvoiceRevision struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:(gen_random_uuid())"`
	LeadID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_revision_key,priority:1;column:lead_id"`
	Track       Track      `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoice_revision_key,priority:2"`
	Version     int        `gorm:"not null;uniqueIndex:idx_invoice_revision_key,priority:3"`
	Number      string     `gorm:"type:varchar(50);not null"`
	Amount      float64    `gorm:"not null"`
	PaymentLink string     `gorm:"type:varchar(1000);not null;column:payment_link"`
	Content     string     `gorm:"type:text"`
	SentAt      time.Time  `gorm:"not null;column:sent_at"`
	ViewedAt    *time.Time `gorm:"column:viewed_at"`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the database default did not
func (r *InvoiceRevision) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// ActionCode is the stable vocabulary of activity ledger entries.
// Downstream consumers key off these strings; do not rename.
type ActionCode string

const (
	ActionAgentContacted ActionCode = "agent_contacted"
	ActionFeasibilitySet ActionCode = "feasibility_set"
	ActionQuoteSet       ActionCode = "quote_set"
	ActionQuoteSent      ActionCode = "quote_sent"
	ActionQuoteViewed    ActionCode = "quote_viewed"
	ActionEmailSent      ActionCode = "email_sent"
	ActionApproved       ActionCode = "approved"
	ActionDeclined       ActionCode = "declined"
	ActionInvoiceSent    ActionCode = "invoice_sent"
	ActionInvoiceViewed  ActionCode = "invoice_viewed"
	ActionCompanyDone    ActionCode = "company_completed"
	ActionBankDone       ActionCode = "bank_completed"
	ActionClosed         ActionCode = "closed"
	ActionReopened       ActionCode = "reopened"
	ActionLeadUpdated    ActionCode = "lead_updated"
)

// ActivityRecord is one append-only audit entry. Never mutated or
// deleted individually; removed only by lead cascade delete.
type ActivityRecord struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:(gen_random_uuid())"`
	LeadID    uuid.UUID  `gorm:"type:uuid;not null;index;column:lead_id"`
	Action    ActionCode `gorm:"type:varchar(50);not null;index"`
	Message   string     `gorm:"type:text"`
	CreatedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// BeforeCreate assigns an ID when the database default did not
func (a *ActivityRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NotifyEvent identifies the milestone transitions that fan out to
// operators. Each fires at most once per qualifying transition.
type NotifyEvent string

const (
	EventInvoiceFirstViewed NotifyEvent = "invoice_first_viewed"
	EventPaymentReceived    NotifyEvent = "payment_received"
	EventTrackCompleted     NotifyEvent = "track_completed"
	EventResponseOverdue    NotifyEvent = "response_overdue"
	EventCompletionOverdue  NotifyEvent = "completion_overdue"
)

// Notification is a persisted operator notification. Delivery by email
// is best effort; the row is the durable record.
type Notification struct {
	BaseModel
	Event      NotifyEvent    `gorm:"type:varchar(50);not null;index"`
	LeadID     uuid.UUID      `gorm:"type:uuid;not null;index;column:lead_id"`
	Track      Track          `gorm:"type:varchar(20);not null"`
	Title      string         `gorm:"type:varchar(200);not null"`
	Message    string         `gorm:"type:text"`
	Recipients pq.StringArray `gorm:"type:text[]"`
	ReadAt     *time.Time     `gorm:"column:read_at"`
}
