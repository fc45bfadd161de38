package token_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/gulfsetup/crm-api/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc, err := token.NewService("round-trip-secret", 21*24*time.Hour)
	require.NoError(t, err)

	leadID := uuid.New()
	signed, err := svc.Issue(leadID, domain.TrackCompany, 0)
	require.NoError(t, err)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, leadID, claims.LeadID)
	assert.Equal(t, domain.TrackCompany, claims.Track)
	assert.Zero(t, claims.Version)
	assert.WithinDuration(t, time.Now().Add(21*24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestTokenIsTrackBound(t *testing.T) {
	svc, err := token.NewService("track-secret", time.Hour)
	require.NoError(t, err)

	signed, err := svc.Issue(uuid.New(), domain.TrackBank, 0)
	require.NoError(t, err)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, domain.TrackBank, claims.Track)
	assert.NotEqual(t, domain.TrackCompany, claims.Track)
}

func TestTokenCarriesVersionPin(t *testing.T) {
	svc, err := token.NewService("version-secret", time.Hour)
	require.NoError(t, err)

	signed, err := svc.Issue(uuid.New(), domain.TrackCompany, 3)
	require.NoError(t, err)

	claims, err := svc.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, 3, claims.Version)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	svc, err := token.NewService("expiry-secret", -time.Minute)
	require.NoError(t, err)

	signed, err := svc.Issue(uuid.New(), domain.TrackCompany, 0)
	require.NoError(t, err)

	_, err = svc.Verify(signed)
	assert.ErrorIs(t, err, token.ErrExpiredToken)
}

func TestGarbageTokenIsRejected(t *testing.T) {
	svc, err := token.NewService("garbage-secret", time.Hour)
	require.NoError(t, err)

	for _, bad := range []string{"", "not-a-token", "aaa.bbb.ccc"} {
		_, err := svc.Verify(bad)
		assert.ErrorIs(t, err, token.ErrInvalidToken, "token %q", bad)
	}
}

func TestWrongSecretIsRejected(t *testing.T) {
	issuer, err := token.NewService("secret-one", time.Hour)
	require.NoError(t, err)
	verifier, err := token.NewService("secret-two", time.Hour)
	require.NoError(t, err)

	signed, err := issuer.Issue(uuid.New(), domain.TrackCompany, 0)
	require.NoError(t, err)

	_, err = verifier.Verify(signed)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestEmptySecretIsRefused(t *testing.T) {
	_, err := token.NewService("", time.Hour)
	assert.Error(t, err)
}

func TestInvalidTrackIsRefused(t *testing.T) {
	svc, err := token.NewService("secret", time.Hour)
	require.NoError(t, err)

	_, err = svc.Issue(uuid.New(), domain.Track("warehouse"), 0)
	assert.ErrorIs(t, err, token.ErrInvalidToken)
}
