package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextVersion(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()

	// Fresh track
	assert.Equal(t, 1, env.invoiceSvc.NextVersion(&domain.TrackState{}))

	// Unpaid sent invoice outstanding
	assert.Equal(t, 3, env.invoiceSvc.NextVersion(&domain.TrackState{
		InvoiceSentAt:  &now,
		InvoiceVersion: 2,
	}))

	// Payment received resets the cycle
	assert.Equal(t, 1, env.invoiceSvc.NextVersion(&domain.TrackState{
		InvoiceSentAt:     &now,
		InvoiceVersion:    2,
		PaymentReceivedAt: &now,
	}))
}

func TestFormatNumber(t *testing.T) {
	env := newTestEnv(t)

	lead := &domain.Lead{}
	lead.ID = [16]byte{0xde, 0xad, 0xbe, 0xef}
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, "COMPANY-20260315-DEAD-R1",
		env.invoiceSvc.FormatNumber(lead, domain.TrackCompany, 1, at))
	assert.Equal(t, "BANK-20260315-DEAD-R4",
		env.invoiceSvc.FormatNumber(lead, domain.TrackBank, 4, at))
}

func TestViewInvoiceByTokenFirstViewNotifiesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	result, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/abc"})
	require.NoError(t, err)
	require.NotNil(t, result.Revision)

	tok, err := env.tokens.Issue(lead.ID, domain.TrackCompany, result.Revision.Version)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(tok)
	require.NoError(t, err)

	view, err := env.invoiceSvc.ViewByToken(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, result.Revision.Number, view.Number)
	assert.Equal(t, 15000.0, view.Amount)
	assert.Equal(t, "AED", view.Currency)
	assert.Equal(t, "https://pay.example/abc", view.PaymentLink)
	assert.False(t, view.Paid)

	// Second view is side-effect free
	_, err = env.invoiceSvc.ViewByToken(ctx, claims)
	require.NoError(t, err)

	env.drainNotifier()
	assert.EqualValues(t, 1, env.notificationCount(t, domain.EventInvoiceFirstViewed))

	rev, err := env.invoiceSvc.GetRevision(ctx, lead.ID, domain.TrackCompany, result.Revision.Version)
	require.NoError(t, err)
	assert.NotNil(t, rev.ViewedAt)
}

func TestViewInvoiceByTokenVersionZeroResolvesLatest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)
	env.advanceToApproved(t, lead, domain.TrackCompany, 15000)

	_, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany,
		&domain.SendInvoiceRequest{PaymentLink: "https://pay.example/abc"})
	require.NoError(t, err)
	second, err := env.leadSvc.SendInvoice(ctx, lead.ID, domain.TrackCompany, &domain.SendInvoiceRequest{})
	require.NoError(t, err)

	tok, err := env.tokens.Issue(lead.ID, domain.TrackCompany, 0)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(tok)
	require.NoError(t, err)

	view, err := env.invoiceSvc.ViewByToken(ctx, claims)
	require.NoError(t, err)
	assert.Equal(t, second.Revision.Version, view.Version)
	assert.Equal(t, second.Revision.Number, view.Number)
}

func TestViewInvoiceByTokenUnknownRevision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lead := env.createLead(t)

	tok, err := env.tokens.Issue(lead.ID, domain.TrackCompany, 0)
	require.NoError(t, err)
	claims, err := env.tokens.Verify(tok)
	require.NoError(t, err)

	_, err = env.invoiceSvc.ViewByToken(ctx, claims)
	assert.ErrorIs(t, err, service.ErrInvoiceNotFound)
}
