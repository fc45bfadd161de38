package service_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/gulfsetup/crm-api/internal/config"
	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/email"
	"github.com/gulfsetup/crm-api/internal/repository"
	"github.com/gulfsetup/crm-api/internal/service"
	"github.com/gulfsetup/crm-api/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type sentMail struct {
	channel email.Channel
	to      []string
	subject string
}

// stubMailer records sends and can simulate SMTP failure
type stubMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *stubMailer) Send(channel email.Channel, to []string, subject, htmlBody string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp connection refused")
	}
	m.sent = append(m.sent, sentMail{channel: channel, to: to, subject: subject})
	return nil
}

func (m *stubMailer) count(channel email.Channel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if s.channel == channel {
			n++
		}
	}
	return n
}

type testEnv struct {
	db               *gorm.DB
	mailer           *stubMailer
	notifier         *service.Notifier
	leadSvc          *service.LeadService
	invoiceSvc       *service.InvoiceService
	tokens           *token.Service
	invoiceRepo      *repository.InvoiceRepository
	notificationRepo *repository.NotificationRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Lead{},
		&domain.InvoiceRevision{},
		&domain.ActivityRecord{},
		&domain.Notification{},
	))

	log := zap.NewNop()
	mailer := &stubMailer{}

	leadRepo := repository.NewLeadRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	activitySvc := service.NewActivityService(activityRepo, log)
	notifier := service.NewNotifier(notificationRepo, mailer, &config.NotifyConfig{QueueSize: 64}, log)
	t.Cleanup(notifier.Close)

	slaSvc := service.NewSLAService(&config.SLAConfig{ResponseHours: 24, CompletionHours: 336})
	invoiceSvc := service.NewInvoiceService(leadRepo, invoiceRepo, activitySvc, notifier, log)

	tokens, err := token.NewService("test-signing-secret", 21*24*time.Hour)
	require.NoError(t, err)

	leadSvc := service.NewLeadService(
		leadRepo, invoiceSvc, activitySvc, notifier, slaSvc,
		tokens, mailer, "https://crm.example.test", log,
	)

	return &testEnv{
		db:               db,
		mailer:           mailer,
		notifier:         notifier,
		leadSvc:          leadSvc,
		invoiceSvc:       invoiceSvc,
		tokens:           tokens,
		invoiceRepo:      invoiceRepo,
		notificationRepo: notificationRepo,
	}
}

// drainNotifier flushes the async notification queue so persisted rows
// can be asserted deterministically.
func (e *testEnv) drainNotifier() {
	e.notifier.Close()
}

func (e *testEnv) notificationCount(t *testing.T, event domain.NotifyEvent) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&domain.Notification{}).Where("event = ?", event).Count(&count).Error)
	return count
}

func (e *testEnv) createLead(t *testing.T) *domain.LeadDTO {
	t.Helper()
	lead, err := e.leadSvc.Create(context.Background(), &domain.CreateLeadRequest{
		Name:      "Amira Hassan",
		Email:     "amira@example.com",
		SetupType: domain.SetupTypeFreezone,
	})
	require.NoError(t, err)
	return lead
}

// advanceToApproved walks one track from intake through customer
// approval using the public service operations.
func (e *testEnv) advanceToApproved(t *testing.T, lead *domain.LeadDTO, track domain.Track, amount float64) {
	t.Helper()
	ctx := context.Background()
	feasible := true
	approved := true

	_, err := e.leadSvc.MarkAgentContacted(ctx, lead.ID, track)
	require.NoError(t, err)
	_, err = e.leadSvc.SetFeasibility(ctx, lead.ID, track, &domain.FeasibilityRequest{Feasible: &feasible})
	require.NoError(t, err)
	_, err = e.leadSvc.SetQuoteAmount(ctx, lead.ID, track, &domain.QuoteAmountRequest{Amount: domain.NewOptional(amount)})
	require.NoError(t, err)
	_, err = e.leadSvc.SendQuote(ctx, lead.ID, track)
	require.NoError(t, err)
	_, err = e.leadSvc.RecordDecision(ctx, lead.ID, track, &domain.DecisionRequest{Approved: &approved})
	require.NoError(t, err)
}

func TestCreateLead(t *testing.T) {
	env := newTestEnv(t)

	lead := env.createLead(t)

	assert.Equal(t, "Amira Hassan", lead.Name)
	assert.Equal(t, domain.TrackStatusNew, lead.Company.Status)
	assert.Equal(t, domain.TrackStatusNew, lead.Bank.Status)
	assert.NotNil(t, lead.Company.SentToAgentAt)
	assert.NotNil(t, lead.Bank.SentToAgentAt)
}

func TestMarkAgentContactedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)

	first, err := env.leadSvc.MarkAgentContacted(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	require.NotNil(t, first.Company.AgentContactedAt)

	second, err := env.leadSvc.MarkAgentContacted(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	assert.Equal(t, first.Company.AgentContactedAt.Unix(), second.Company.AgentContactedAt.Unix())
}

func TestSetFeasibilityRequiresAgentContact(t *testing.T) {
	env := newTestEnv(t)
	lead := env.createLead(t)

	feasible := true
	_, err := env.leadSvc.SetFeasibility(context.Background(), lead.ID, domain.TrackCompany,
		&domain.FeasibilityRequest{Feasible: &feasible})
	assert.ErrorIs(t, err, service.ErrAgentNotContacted)
}

func TestSetQuoteAmountValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)

	_, err := env.leadSvc.MarkAgentContacted(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)

	// No feasibility verdict yet
	_, err = env.leadSvc.SetQuoteAmount(ctx, lead.ID, domain.TrackCompany,
		&domain.QuoteAmountRequest{Amount: domain.NewOptional(15000.0)})
	assert.ErrorIs(t, err, service.ErrNotFeasible)

	feasible := true
	_, err = env.leadSvc.SetFeasibility(ctx, lead.ID, domain.TrackCompany,
		&domain.FeasibilityRequest{Feasible: &feasible})
	require.NoError(t, err)

	for _, bad := range []float64{0, -500} {
		_, err = env.leadSvc.SetQuoteAmount(ctx, lead.ID, domain.TrackCompany,
			&domain.QuoteAmountRequest{Amount: domain.NewOptional(bad)})
		assert.ErrorIs(t, err, service.ErrInvalidAmount, "amount %v", bad)
	}

	updated, err := env.leadSvc.SetQuoteAmount(ctx, lead.ID, domain.TrackCompany,
		&domain.QuoteAmountRequest{Amount: domain.NewOptional(15000.0)})
	require.NoError(t, err)
	require.NotNil(t, updated.Company.QuotedAmount)
	assert.Equal(t, 15000.0, *updated.Company.QuotedAmount)

	// Explicit null clears
	cleared, err := env.leadSvc.SetQuoteAmount(ctx, lead.ID, domain.TrackCompany,
		&domain.QuoteAmountRequest{Amount: domain.NullOptional[float64]()})
	require.NoError(t, err)
	assert.Nil(t, cleared.Company.QuotedAmount)
}

func TestSendQuoteRequiresAmount(t *testing.T) {
	env := newTestEnv(t)
	lead := env.createLead(t)

	_, err := env.leadSvc.SendQuote(context.Background(), lead.ID, domain.TrackCompany)
	assert.ErrorIs(t, err, service.ErrQuoteAmountMissing)
	assert.Zero(t, env.mailer.count(email.ChannelQuote))
}

func TestSendQuoteClearsPriorDecision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 12000)

	// Re-send after approval: decision fields must reset
	resent, err := env.leadSvc.SendQuote(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	assert.Nil(t, resent.Company.Approved)
	assert.Nil(t, resent.Company.QuoteApprovedAt)
	assert.Nil(t, resent.Company.DeclinedAt)
	assert.Nil(t, resent.Company.QuoteViewedAt)
	assert.Equal(t, domain.TrackStatusApprovalRequested, resent.Company.Status)
	assert.Equal(t, 2, env.mailer.count(email.ChannelQuote))
}

func TestSendQuoteDeliveryFailureLeavesStateUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)

	feasible := true
	_, err := env.leadSvc.MarkAgentContacted(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	_, err = env.leadSvc.SetFeasibility(ctx, lead.ID, domain.TrackCompany, &domain.FeasibilityRequest{Feasible: &feasible})
	require.NoError(t, err)
	_, err = env.leadSvc.SetQuoteAmount(ctx, lead.ID, domain.TrackCompany,
		&domain.QuoteAmountRequest{Amount: domain.NewOptional(9000.0)})
	require.NoError(t, err)

	env.mailer.fail = true
	_, err = env.leadSvc.SendQuote(ctx, lead.ID, domain.TrackCompany)
	assert.ErrorIs(t, err, service.ErrEmailDelivery)

	current, err := env.leadSvc.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, current.Company.QuoteSentAt)
}

func TestRecordDecisionRequiresSentQuote(t *testing.T) {
	env := newTestEnv(t)
	lead := env.createLead(t)

	approved := true
	_, err := env.leadSvc.RecordDecision(context.Background(), lead.ID, domain.TrackCompany,
		&domain.DecisionRequest{Approved: &approved})
	assert.ErrorIs(t, err, service.ErrQuoteNotSent)
}

func TestRecordDecisionCanBeOverwritten(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 8000)

	declined := false
	updated, err := env.leadSvc.RecordDecision(ctx, lead.ID, domain.TrackCompany,
		&domain.DecisionRequest{Approved: &declined, Reason: "too expensive"})
	require.NoError(t, err)
	assert.Equal(t, domain.TrackStatusDeclined, updated.Company.Status)
	assert.NotNil(t, updated.Company.DeclinedAt)
	assert.Nil(t, updated.Company.QuoteApprovedAt)

	approved := true
	again, err := env.leadSvc.RecordDecision(ctx, lead.ID, domain.TrackCompany,
		&domain.DecisionRequest{Approved: &approved})
	require.NoError(t, err)
	assert.Equal(t, domain.TrackStatusApproved, again.Company.Status)
	assert.Nil(t, again.Company.DeclinedAt)
}

func TestSendInvoiceHappyPathAndVersioning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	result, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/abc"})
	require.NoError(t, err)
	require.NotNil(t, result.Revision)
	assert.Empty(t, result.Warning)

	numberPattern := regexp.MustCompile(`^COMPANY-\d{8}-[0-9A-F]{4}-R1$`)
	assert.Regexp(t, numberPattern, result.Revision.Number)
	assert.Equal(t, 1, result.Revision.Version)
	assert.Equal(t, 15000.0, result.Revision.Amount)
	assert.NotNil(t, result.Lead.Company.InvoiceSentAt)
	assert.Equal(t, result.Revision.Number, result.Lead.Company.InvoiceNumber)

	// Second send before payment yields version 2
	second, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany, &domain.SendInvoiceRequest{})
	require.NoError(t, err)
	require.NotNil(t, second.Revision)
	assert.Equal(t, 2, second.Revision.Version)
	assert.Regexp(t, regexp.MustCompile(`-R2$`), second.Revision.Number)

	revisions, err := env.invoiceSvc.ListByLead(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	require.Len(t, revisions, 2)
	assert.Equal(t, 1, revisions[0].Version)
	assert.Equal(t, 2, revisions[1].Version)
}

func TestSendInvoiceRejectsInsecureLink(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	_, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "http://insecure.example"})
	assert.ErrorIs(t, err, service.ErrInvalidPaymentLink)

	current, err := env.leadSvc.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.Nil(t, current.Company.InvoiceSentAt)
	assert.Zero(t, env.mailer.count(email.ChannelInvoice))
}

func TestSendInvoiceRequiresApproval(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)

	feasible := true
	_, err := env.leadSvc.MarkAgentContacted(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	_, err = env.leadSvc.SetFeasibility(ctx, lead.ID, domain.TrackCompany, &domain.FeasibilityRequest{Feasible: &feasible})
	require.NoError(t, err)
	_, err = env.leadSvc.SetQuoteAmount(ctx, lead.ID, domain.TrackCompany,
		&domain.QuoteAmountRequest{Amount: domain.NewOptional(5000.0)})
	require.NoError(t, err)

	_, err = env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/x"})
	assert.ErrorIs(t, err, service.ErrNotApproved)
}

func TestSendInvoiceRejectedAfterPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	_, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/abc"})
	require.NoError(t, err)
	_, err = env.leadSvc.MarkPaymentReceived(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)

	_, err = env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany, &domain.SendInvoiceRequest{})
	assert.ErrorIs(t, err, service.ErrPaymentAlreadyReceived)

	revisions, err := env.invoiceSvc.ListByLead(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	assert.Len(t, revisions, 1)
}

func TestMarkPaymentReceivedRequiresInvoice(t *testing.T) {
	env := newTestEnv(t)
	lead := env.createLead(t)

	_, err := env.leadSvc.MarkPaymentReceived(context.Background(), lead.ID, domain.TrackCompany)
	assert.ErrorIs(t, err, service.ErrInvoiceNotSent)
}

func TestMarkPaymentReceivedNotifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	_, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/abc"})
	require.NoError(t, err)

	_, err = env.leadSvc.MarkPaymentReceived(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	_, err = env.leadSvc.MarkPaymentReceived(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)

	env.drainNotifier()
	assert.EqualValues(t, 1, env.notificationCount(t, domain.EventPaymentReceived))
}

func TestMarkCompletedRequiresPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	_, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/abc"})
	require.NoError(t, err)

	_, err = env.leadSvc.MarkCompleted(ctx, lead.ID, domain.TrackCompany)
	assert.ErrorIs(t, err, service.ErrPaymentNotReceived)

	_, err = env.leadSvc.MarkPaymentReceived(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	completed, err := env.leadSvc.MarkCompleted(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	assert.Equal(t, domain.TrackStatusCompleted, completed.Company.Status)

	env.drainNotifier()
	assert.EqualValues(t, 1, env.notificationCount(t, domain.EventTrackCompleted))
}

func TestTracksAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackBank, 7000)

	notFeasible := false
	_, err := env.leadSvc.MarkAgentContacted(ctx, lead.ID, domain.TrackCompany)
	require.NoError(t, err)
	updated, err := env.leadSvc.SetFeasibility(ctx, lead.ID, domain.TrackCompany,
		&domain.FeasibilityRequest{Feasible: &notFeasible})
	require.NoError(t, err)

	assert.Equal(t, domain.TrackStatusNotFeasible, updated.Company.Status)
	assert.Equal(t, domain.TrackStatusApproved, updated.Bank.Status)
	require.NotNil(t, updated.Bank.QuotedAmount)
	assert.Equal(t, 7000.0, *updated.Bank.QuotedAmount)
}

func TestReopenClearsDeclineAndUnfreezes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	declined := false
	_, err := env.leadSvc.RecordDecision(ctx, lead.ID, domain.TrackCompany,
		&domain.DecisionRequest{Approved: &declined, Reason: "changed mind"})
	require.NoError(t, err)

	reopened, err := env.leadSvc.Reopen(ctx, lead.ID, domain.TrackCompany, &domain.ReopenRequest{})
	require.NoError(t, err)
	assert.Nil(t, reopened.Company.DeclinedAt)
	assert.Empty(t, reopened.Company.DeclineReason)
}

func TestViewQuoteByToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	tok, err := env.tokens.Issue(lead.ID, domain.TrackCompany, 0)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(tok)
	require.NoError(t, err)

	quote, err := env.leadSvc.ViewQuoteByToken(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, 15000.0, quote.Amount)
	assert.Equal(t, "AED", quote.Currency)
	assert.True(t, quote.DecisionOpen)

	current, err := env.leadSvc.GetByID(ctx, lead.ID)
	require.NoError(t, err)
	assert.NotNil(t, current.Company.QuoteViewedAt)
}

func TestPartialUpdateSemantics(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)

	_, err := env.leadSvc.Update(ctx, lead.ID, &domain.UpdateLeadRequest{
		Phone: domain.NewOptional("+971501234567"),
		Notes: domain.NewOptional("met at expo"),
	})
	require.NoError(t, err)

	// Omitted fields stay, explicit null clears
	updated, err := env.leadSvc.Update(ctx, lead.ID, &domain.UpdateLeadRequest{
		Notes: domain.NullOptional[string](),
	})
	require.NoError(t, err)
	assert.Equal(t, "+971501234567", updated.Phone)
	assert.Empty(t, updated.Notes)
	assert.Equal(t, "Amira Hassan", updated.Name)
}

func TestDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	_, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/abc"})
	require.NoError(t, err)

	require.NoError(t, env.leadSvc.Delete(ctx, lead.ID))

	_, err = env.leadSvc.GetByID(ctx, lead.ID)
	assert.ErrorIs(t, err, service.ErrLeadNotFound)

	var revCount, actCount int64
	require.NoError(t, env.db.Model(&domain.InvoiceRevision{}).Where("lead_id = ?", lead.ID).Count(&revCount).Error)
	require.NoError(t, env.db.Model(&domain.ActivityRecord{}).Where("lead_id = ?", lead.ID).Count(&actCount).Error)
	assert.Zero(t, revCount)
	assert.Zero(t, actCount)
}

func TestInvoiceNumberFormatExample(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackBank, 4200)

	result, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackBank,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/xyz"})
	require.NoError(t, err)
	require.NotNil(t, result.Revision)

	expectedPrefix := fmt.Sprintf("BANK-%s-", time.Now().UTC().Format("20060102"))
	assert.Contains(t, result.Revision.Number, expectedPrefix)
}
