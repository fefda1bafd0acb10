package ramp

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openramp/ramp-go/storage"
)

func TestRecoverFromRedirectRoundTrip(t *testing.T) {
	st := storage.NewMemoryStore()
	c := newCheckoutReadyCoordinator(t, WithStore(st))
	_, err := c.Confirm()
	require.NoError(t, err)

	// A new coordinator backed by the same store models the fresh page load
	// after the hosted checkout redirects back.
	c2 := New(WithStore(st))
	summary, ok := c2.RecoverFromRedirect(url.Values{"success": {"true"}})
	require.True(t, ok)
	require.NotNil(t, summary)
	assert.Equal(t, testWallet, summary.DeliveryTargetAddress)
	assert.True(t, decimal.NewFromFloat(12.5).Equal(summary.PurchaseAmount))
	assert.Equal(t, "ETH", summary.PurchaseCurrency)
	require.NotNil(t, c2.Succeeded())
	assert.Equal(t, summary, c2.Succeeded())
}

func TestRecoverFromRedirectNoMarker(t *testing.T) {
	st := storage.NewMemoryStore()
	c := newCheckoutReadyCoordinator(t, WithStore(st))
	_, err := c.Confirm()
	require.NoError(t, err)

	c2 := New(WithStore(st))
	summary, ok := c2.RecoverFromRedirect(url.Values{"tab": {"ramp"}})
	assert.False(t, ok)
	assert.Nil(t, summary)
	assert.Nil(t, c2.Succeeded(), "recovery without the marker must not touch state")
}

func TestRecoverFromRedirectNoRecord(t *testing.T) {
	c := New()
	summary, ok := c.RecoverFromRedirect(url.Values{"success": {"true"}})
	assert.False(t, ok)
	assert.Nil(t, summary)
	assert.Nil(t, c.Succeeded())
}

func TestRecoverFromRedirectCorruptRecord(t *testing.T) {
	st := storage.NewMemoryStore()
	require.NoError(t, st.Set("ramp_tx_success_summary", []byte("{not json")))

	c := New(WithStore(st))
	summary, ok := c.RecoverFromRedirect(url.Values{"success": {"true"}})
	assert.False(t, ok)
	assert.Nil(t, summary)
}
