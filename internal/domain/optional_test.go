package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/gulfsetup/crm-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalDistinguishesOmittedNullAndValue(t *testing.T) {
	type payload struct {
		Notes domain.Optional[string] `json:"notes"`
	}

	var omitted payload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &omitted))
	assert.False(t, omitted.Notes.Set)

	var null payload
	require.NoError(t, json.Unmarshal([]byte(`{"notes":null}`), &null))
	assert.True(t, null.Notes.Set)
	assert.Nil(t, null.Notes.Value)

	var set payload
	require.NoError(t, json.Unmarshal([]byte(`{"notes":"follow up monday"}`), &set))
	assert.True(t, set.Notes.Set)
	require.NotNil(t, set.Notes.Value)
	assert.Equal(t, "follow up monday", *set.Notes.Value)
}

func TestOptionalNumericValues(t *testing.T) {
	type payload struct {
		Amount domain.Optional[float64] `json:"amount"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":15000.50}`), &p))
	require.NotNil(t, p.Amount.Value)
	assert.Equal(t, 15000.50, *p.Amount.Value)

	assert.Error(t, json.Unmarshal([]byte(`{"amount":"abc"}`), &payload{}))
}

func TestOptionalMarshalRoundTrip(t *testing.T) {
	out, err := json.Marshal(domain.NewOptional("hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `"hello"`, string(out))

	out, err = json.Marshal(domain.NullOptional[string]())
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(out))
}
