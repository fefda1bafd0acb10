package ramp

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWallet = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

// fakeGateway implements Gateway for testing with canned responses,
// per-endpoint call counting, and hooks that run while a fetch is in flight.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int

	config         *Config
	configErr      error
	buyOptions     *BuyOptions
	buyOptionsErr  error
	sellOptions    *SellOptions
	sellOptionsErr error
	buyQuote       *BuyQuote
	sellQuote      *SellQuote
	quoteErr       error
	token          string
	tokenErr       error

	beforeTokenReturn func()
	beforeQuoteReturn func()
}

func (g *fakeGateway) count(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[name]++
}

func (g *fakeGateway) callCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGateway) GetConfig(ctx context.Context) (*Config, error) {
	g.count("config")
	return g.config, g.configErr
}

func (g *fakeGateway) GetBuyOptions(ctx context.Context, country, subdivision string) (*BuyOptions, error) {
	g.count("buyOptions")
	return g.buyOptions, g.buyOptionsErr
}

func (g *fakeGateway) GetSellOptions(ctx context.Context, country, subdivision string) (*SellOptions, error) {
	g.count("sellOptions")
	return g.sellOptions, g.sellOptionsErr
}

func (g *fakeGateway) GetBuyQuote(ctx context.Context, req BuyQuoteRequest) (*BuyQuote, error) {
	g.count("buyQuote")
	if g.beforeQuoteReturn != nil {
		g.beforeQuoteReturn()
	}
	return g.buyQuote, g.quoteErr
}

func (g *fakeGateway) GetSellQuote(ctx context.Context, req SellQuoteRequest) (*SellQuote, error) {
	g.count("sellQuote")
	if g.beforeQuoteReturn != nil {
		g.beforeQuoteReturn()
	}
	return g.sellQuote, g.quoteErr
}

func (g *fakeGateway) GetSecureToken(ctx context.Context, req SecureTokenRequest) (string, error) {
	g.count("token")
	if g.beforeTokenReturn != nil {
		g.beforeTokenReturn()
	}
	return g.token, g.tokenErr
}

func testConfig() *Config {
	return &Config{Countries: []Country{
		{ID: "US", Subdivisions: []string{"CA", "NY"}, PaymentMethods: []PaymentMethod{{ID: "CARD"}}},
		{ID: "DE", Subdivisions: nil},
		{ID: "CA", Subdivisions: []string{"ON", "QC"}},
	}}
}

func testBuyOptions() *BuyOptions {
	return &BuyOptions{
		PurchaseCurrencies: []PurchaseCurrency{
			{ID: "eth", Symbol: "ETH", Networks: []Network{
				{Name: "ethereum", ChainID: "1"},
				{Name: "base", ChainID: "8453"},
			}},
			{ID: "usdc", Symbol: "USDC", Networks: []Network{
				{Name: "ethereum", ChainID: "1"},
				{Name: "base", ChainID: "8453"},
			}},
			{ID: "sol", Symbol: "SOL", Networks: []Network{
				{Name: "solana", ChainID: "101"},
			}},
		},
		PaymentCurrencies: []PaymentCurrency{
			{ID: "EUR", Limits: []Limit{{ID: "SEPA", Min: "1", Max: "5000"}}},
			{ID: "USD", Limits: []Limit{
				{ID: "CARD", Min: "10", Max: "7500"},
				{ID: "ACH_BANK_ACCOUNT", Min: "2", Max: "25000"},
			}},
		},
	}
}

func testSellOptions() *SellOptions {
	return &SellOptions{
		SellCurrencies: []SellCurrency{
			{ID: "btc", Symbol: "BTC", Networks: []Network{
				{Name: "bitcoin", ChainID: "0"},
			}},
			{ID: "usdc", Symbol: "USDC", Networks: []Network{
				{Name: "ethereum", ChainID: "1"},
				{Name: "base", ChainID: "8453"},
			}},
		},
		CashoutCurrencies: []PaymentCurrency{
			{ID: "USD", Limits: []Limit{
				{ID: "FIAT_WALLET", Min: "0", Max: "100000"},
				{ID: "ACH_BANK_ACCOUNT", Min: "2", Max: "25000"},
			}},
			{ID: "GBP", Limits: []Limit{{ID: "FIAT_WALLET", Min: "0", Max: "80000"}}},
		},
	}
}

// newLoadedCoordinator returns a coordinator with config and both option
// sets loaded and defaults derived.
func newLoadedCoordinator(t *testing.T, gw *fakeGateway) *Coordinator {
	t.Helper()
	if gw.config == nil {
		gw.config = testConfig()
	}
	if gw.buyOptions == nil {
		gw.buyOptions = testBuyOptions()
	}
	if gw.sellOptions == nil {
		gw.sellOptions = testSellOptions()
	}
	c := New(WithGateway(gw))
	require.NoError(t, c.LoadConfig(context.Background()))
	require.NoError(t, c.LoadOptions(context.Background()))
	return c
}

func TestNewDefaults(t *testing.T) {
	c := New()
	assert.Equal(t, ModeOnramp, c.Mode())
	assert.Equal(t, "0", c.Amount())
	assert.Equal(t, 1, c.Step())
	assert.False(t, c.Authenticated())
	assert.Nil(t, c.Country())
	assert.Empty(t, c.SecureToken())
}

func TestUninitializedCoordinatorPanics(t *testing.T) {
	var c Coordinator
	assert.Panics(t, func() { c.Mode() })
	assert.Panics(t, func() { _ = c.SetAmount("1") })

	var nilC *Coordinator
	assert.Panics(t, func() { nilC.CheckoutURL() })
}

func TestSetCountryClearsForeignSubdivision(t *testing.T) {
	c := newLoadedCoordinator(t, &fakeGateway{})

	// Defaults put us in US/CA.
	require.Equal(t, "US", c.Country().ID)
	require.Equal(t, "CA", c.Subdivision())

	require.NoError(t, c.SetCountry("DE"))
	assert.Equal(t, "DE", c.Country().ID)
	assert.Empty(t, c.Subdivision(), "subdivision must not outlive its country")
}

func TestSetCountryRejectsUnknown(t *testing.T) {
	c := newLoadedCoordinator(t, &fakeGateway{})
	err := c.SetCountry("ZZ")
	var rampErr *RampError
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeInvalidSelection, rampErr.Code)
	assert.Equal(t, "US", c.Country().ID, "rejected selection must not be stored")
}

func TestSetSubdivisionMembership(t *testing.T) {
	c := newLoadedCoordinator(t, &fakeGateway{})

	require.NoError(t, c.SetSubdivision("NY"))
	assert.Equal(t, "NY", c.Subdivision())

	err := c.SetSubdivision("TX")
	var rampErr *RampError
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeInvalidSelection, rampErr.Code)
	assert.Equal(t, "NY", c.Subdivision())
}

func TestPurchaseSelectionInvariants(t *testing.T) {
	c := newLoadedCoordinator(t, &fakeGateway{})

	t.Run("network must belong to currency", func(t *testing.T) {
		require.NoError(t, c.SetPurchaseCurrency("eth"))
		require.NoError(t, c.SetPurchaseNetwork("base"))

		err := c.SetPurchaseNetwork("solana")
		var rampErr *RampError
		require.ErrorAs(t, err, &rampErr)
		assert.Equal(t, ErrCodeInvalidSelection, rampErr.Code)
		assert.Equal(t, "base", c.PurchaseNetwork().Name)
	})

	t.Run("currency change clears foreign network", func(t *testing.T) {
		require.NoError(t, c.SetPurchaseCurrency("eth"))
		require.NoError(t, c.SetPurchaseNetwork("base"))
		require.NoError(t, c.SetPurchaseCurrency("sol"))
		assert.Nil(t, c.PurchaseNetwork(), "base is not a SOL network")
	})

	t.Run("payment method must belong to payment currency", func(t *testing.T) {
		require.NoError(t, c.SetPaymentCurrency("USD"))
		require.NoError(t, c.SetPaymentMethod("ACH_BANK_ACCOUNT"))

		err := c.SetPaymentMethod("SEPA")
		var rampErr *RampError
		require.ErrorAs(t, err, &rampErr)
		assert.Equal(t, ErrCodeInvalidSelection, rampErr.Code)

		require.NoError(t, c.SetPaymentCurrency("EUR"))
		assert.Nil(t, c.PaymentMethod(), "ACH does not exist for EUR")
	})
}

func TestSellSelectionInvariants(t *testing.T) {
	c := newLoadedCoordinator(t, &fakeGateway{})
	require.NoError(t, c.SetMode(ModeOfframp))

	require.NoError(t, c.SetSellCurrency("usdc"))
	require.NoError(t, c.SetSellNetwork("base"))

	err := c.SetSellNetwork("bitcoin")
	var rampErr *RampError
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeInvalidSelection, rampErr.Code)

	require.NoError(t, c.SetSellCurrency("btc"))
	assert.Nil(t, c.SellNetwork(), "base is not a BTC network")

	require.NoError(t, c.SetCashoutCurrency("GBP"))
	err = c.SetCashoutMethod("ACH_BANK_ACCOUNT")
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeInvalidSelection, rampErr.Code)
}

func TestModeSwitchPreservesLegState(t *testing.T) {
	c := newLoadedCoordinator(t, &fakeGateway{})

	require.NoError(t, c.SetMode(ModeOfframp))
	require.NoError(t, c.SetSellCurrency("btc"))
	require.NoError(t, c.SetSellNetwork("bitcoin"))
	require.NoError(t, c.SetCashoutCurrency("GBP"))
	require.NoError(t, c.SetCashoutMethod("FIAT_WALLET"))

	require.NoError(t, c.SetMode(ModeOnramp))
	require.NoError(t, c.SetPurchaseCurrency("eth"))

	require.NoError(t, c.SetMode(ModeOfframp))
	assert.Equal(t, "btc", c.SellCurrency().ID)
	assert.Equal(t, "bitcoin", c.SellNetwork().Name)
	assert.Equal(t, "GBP", c.CashoutCurrency().ID)
	assert.Equal(t, "FIAT_WALLET", c.CashoutMethod().ID)

	require.NoError(t, c.SetMode(ModeOnramp))
	assert.Equal(t, "eth", c.PurchaseCurrency().ID)
}

func TestSetModeRejectsUnknown(t *testing.T) {
	c := New()
	err := c.SetMode(Mode("sideways"))
	var rampErr *RampError
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeInvalidSelection, rampErr.Code)
}

func TestSetAmountValidation(t *testing.T) {
	c := New()
	require.NoError(t, c.SetAmount("12.5"))
	assert.Equal(t, "12.5", c.Amount())

	require.NoError(t, c.SetAmount(""))
	assert.Equal(t, "0", c.Amount(), "empty amount resets to zero")

	err := c.SetAmount("12,5")
	var rampErr *RampError
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeInvalidSelection, rampErr.Code)
	assert.Equal(t, "0", c.Amount())
}

func TestSetWalletValidation(t *testing.T) {
	c := New()
	require.NoError(t, c.SetWallet(testWallet))
	assert.Equal(t, testWallet, c.Wallet())

	err := c.SetWallet("0xABC")
	var rampErr *RampError
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeInvalidAddress, rampErr.Code)

	require.NoError(t, c.SetWallet(""), "clearing the wallet is allowed")
}

func TestAuthenticationGatesStep(t *testing.T) {
	c := New()
	assert.Equal(t, 1, c.Step())
	c.SetAuthenticated(true)
	assert.Equal(t, 2, c.Step())
	c.SetAuthenticated(false)
	assert.Equal(t, 1, c.Step())
}

func TestTransactionSnapshotFollowsActiveLeg(t *testing.T) {
	c := newLoadedCoordinator(t, &fakeGateway{})
	require.NoError(t, c.SetAmount("25"))
	require.NoError(t, c.SetWallet(testWallet))

	tx := c.Transaction()
	assert.Equal(t, "25", tx.Amount)
	assert.Equal(t, testWallet, tx.Wallet)
	assert.Equal(t, "US", tx.Country)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, "CARD", tx.PaymentMethod)

	require.NoError(t, c.SetMode(ModeOfframp))
	tx = c.Transaction()
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, "FIAT_WALLET", tx.PaymentMethod, "offramp snapshot uses the cashout method")
}

func TestGatewayErrorsAreTyped(t *testing.T) {
	gw := &fakeGateway{configErr: errors.New("boom")}
	c := New(WithGateway(gw))
	err := c.LoadConfig(context.Background())
	var rampErr *RampError
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeFetchFailed, rampErr.Code)
	assert.Nil(t, c.Countries(), "failed fetch must leave state unset")
}
