package ramp

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/openramp/ramp-go/storage"
)

// Coordinator owns all transaction selection state for the ramp widget: the
// active mode, the region, both legs' currency/network/method selections,
// fetched option sets, quotes, and the secure session token.
//
// There is no ambient shared instance. Construct one with New and hand it to
// every consumer explicitly; using a zero-value Coordinator is a programmer
// error and panics.
//
// All methods are safe for concurrent use. Mutators only assign state and
// perform directly dependent invalidation - they never touch the network.
// Fetching is driven separately through LoadConfig, LoadOptions,
// RefreshQuote and RefreshSecureToken.
type Coordinator struct {
	mu          sync.Mutex
	initialized bool

	gateway      Gateway
	store        Store
	log          logrus.FieldLogger
	checkoutBase string
	redirectURL  string

	mode          Mode
	authenticated bool

	config      *Config
	buyOptions  *BuyOptions
	buyKey      string // region key buyOptions were fetched for
	sellOptions *SellOptions
	sellKey     string

	sel selections

	amount        string
	wallet        string
	partnerUserID string

	secureToken string
	tokenGen    uint64
	quoteGen    uint64
	buyQuote    *BuyQuote
	sellQuote   *SellQuote

	succeeded *SuccessSummary

	flights map[string]chan struct{}
	loading Loading
}

// Loading reports which fetches are currently in flight.
type Loading struct {
	Config      bool
	BuyOptions  bool
	SellOptions bool
	Quote       bool
	SecureToken bool
}

// Option configures the coordinator
type Option func(*Coordinator)

// WithGateway sets the remote data gateway.
func WithGateway(g Gateway) Option {
	return func(c *Coordinator) { c.gateway = g }
}

// WithStore sets the durable client storage backend.
// Defaults to an in-memory store.
func WithStore(s Store) Option {
	return func(c *Coordinator) { c.store = s }
}

// WithLogger sets the diagnostic logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithCheckoutBaseURL overrides the hosted checkout origin.
func WithCheckoutBaseURL(base string) Option {
	return func(c *Coordinator) { c.checkoutBase = base }
}

// WithRedirectURL sets the application origin the hosted checkout redirects
// back to after a completed transaction.
func WithRedirectURL(u string) Option {
	return func(c *Coordinator) { c.redirectURL = u }
}

// WithPartnerUserID pins the partner user identifier instead of deriving a
// persisted one via EnsurePartnerUserID.
func WithPartnerUserID(id string) Option {
	return func(c *Coordinator) { c.partnerUserID = id }
}

// New creates a ramp transaction coordinator in onramp mode with a pending
// amount of "0" and no selections made.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		initialized:  true,
		store:        storage.NewMemoryStore(),
		log:          logrus.StandardLogger(),
		checkoutBase: DefaultCheckoutBaseURL,
		redirectURL:  DefaultRedirectURL,
		mode:         ModeOnramp,
		amount:       "0",
		flights:      make(map[string]chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ensure guards against use of a coordinator that did not go through New.
func (c *Coordinator) ensure() {
	if c == nil || !c.initialized {
		panic("ramp: Coordinator used before initialization; construct it with ramp.New")
	}
}

// ============================================================================
// Mode
// ============================================================================

// Mode returns the active transaction direction.
func (c *Coordinator) Mode() Mode {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// IsOnrampActive reports whether the purchase leg is active.
func (c *Coordinator) IsOnrampActive() bool { return c.Mode() == ModeOnramp }

// IsOfframpActive reports whether the sell leg is active.
func (c *Coordinator) IsOfframpActive() bool { return c.Mode() == ModeOfframp }

// SetMode switches the active direction. Both legs retain their selections;
// switching back restores the prior leg untouched. Default derivation runs
// for the newly active leg if its fields are unset.
func (c *Coordinator) SetMode(m Mode) error {
	c.ensure()
	if !m.Valid() {
		return NewRampError(ErrCodeInvalidSelection, "unknown mode "+string(m), nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mode == m {
		return nil
	}
	c.mode = m
	c.quoteGen++
	c.reconcileLocked()
	return nil
}

// ============================================================================
// Region
// ============================================================================

// Countries returns the configured country list, or nil before LoadConfig.
func (c *Coordinator) Countries() []Country {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.config == nil {
		return nil
	}
	return c.config.Countries
}

// Country returns the selected country, or nil.
func (c *Coordinator) Country() *Country {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.country
}

// Subdivision returns the selected subdivision, or "".
func (c *Coordinator) Subdivision() string {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.subdivision
}

// SetCountry selects a country by id. The country must be present in the
// loaded configuration. A subdivision that does not belong to the new
// country is cleared.
func (c *Coordinator) SetCountry(id string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	ctry := c.config.CountryByID(id)
	if ctry == nil {
		return NewRampError(ErrCodeInvalidSelection, "country "+id+" is not in the configured set", nil)
	}
	c.sel.country = ctry
	if c.sel.subdivision != "" && !ctry.HasSubdivision(c.sel.subdivision) {
		c.sel.subdivision = ""
	}
	return nil
}

// SetSubdivision selects a subdivision of the selected country.
func (c *Coordinator) SetSubdivision(subdivision string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.country == nil {
		return NewRampError(ErrCodeInvalidSelection, "no country selected", nil)
	}
	if !c.sel.country.HasSubdivision(subdivision) {
		return NewRampError(ErrCodeInvalidSelection,
			"subdivision "+subdivision+" does not belong to country "+c.sel.country.ID, nil)
	}
	c.sel.subdivision = subdivision
	return nil
}

// ============================================================================
// Purchase leg
// ============================================================================

// PurchaseCurrency returns the selected purchase currency, or nil.
func (c *Coordinator) PurchaseCurrency() *PurchaseCurrency {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.purchaseCurrency
}

// PurchaseNetwork returns the selected delivery network, or nil.
func (c *Coordinator) PurchaseNetwork() *Network {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.purchaseNetwork
}

// PaymentCurrency returns the selected onramp fiat currency, or nil.
func (c *Coordinator) PaymentCurrency() *PaymentCurrency {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.paymentCurrency
}

// PaymentMethod returns the selected onramp payment method entry, or nil.
func (c *Coordinator) PaymentMethod() *Limit {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.paymentMethod
}

// SetPurchaseCurrency selects a purchase currency by id from the loaded buy
// options. A network selection not offered by the new currency is cleared,
// and the secure token is invalidated.
func (c *Coordinator) SetPurchaseCurrency(id string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.buyOptions.PurchaseCurrencyByID(id)
	if cur == nil {
		return NewRampError(ErrCodeInvalidSelection, "purchase currency "+id+" is not available", nil)
	}
	if c.sel.purchaseCurrency == cur {
		return nil
	}
	c.sel.purchaseCurrency = cur
	if c.sel.purchaseNetwork != nil && cur.NetworkByName(c.sel.purchaseNetwork.Name) == nil {
		c.sel.purchaseNetwork = nil
	}
	c.invalidateTokenLocked()
	c.quoteGen++
	return nil
}

// SetPurchaseNetwork selects a delivery network of the selected purchase
// currency by name. Invalidates the secure token.
func (c *Coordinator) SetPurchaseNetwork(name string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.purchaseCurrency == nil {
		return NewRampError(ErrCodeInvalidSelection, "no purchase currency selected", nil)
	}
	n := c.sel.purchaseCurrency.NetworkByName(name)
	if n == nil {
		return NewRampError(ErrCodeInvalidSelection,
			"network "+name+" is not offered for "+c.sel.purchaseCurrency.Symbol, nil)
	}
	if c.sel.purchaseNetwork == n {
		return nil
	}
	c.sel.purchaseNetwork = n
	c.invalidateTokenLocked()
	c.quoteGen++
	return nil
}

// SetPaymentCurrency selects the onramp fiat currency by id. A payment
// method not offered by the new currency is cleared.
func (c *Coordinator) SetPaymentCurrency(id string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.buyOptions.PaymentCurrencyByID(id)
	if cur == nil {
		return NewRampError(ErrCodeInvalidSelection, "payment currency "+id+" is not available", nil)
	}
	c.sel.paymentCurrency = cur
	if c.sel.paymentMethod != nil && cur.LimitByID(c.sel.paymentMethod.ID) == nil {
		c.sel.paymentMethod = nil
	}
	c.quoteGen++
	return nil
}

// SetPaymentMethod selects an onramp payment method from the selected
// payment currency's limit list.
func (c *Coordinator) SetPaymentMethod(id string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.paymentCurrency == nil {
		return NewRampError(ErrCodeInvalidSelection, "no payment currency selected", nil)
	}
	limit := c.sel.paymentCurrency.LimitByID(id)
	if limit == nil {
		return NewRampError(ErrCodeInvalidSelection,
			"payment method "+id+" is not offered for "+c.sel.paymentCurrency.ID, nil)
	}
	c.sel.paymentMethod = limit
	c.quoteGen++
	return nil
}

// ============================================================================
// Sell leg
// ============================================================================

// SellCurrency returns the selected sell currency, or nil.
func (c *Coordinator) SellCurrency() *SellCurrency {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.sellCurrency
}

// SellNetwork returns the selected sell-side network, or nil.
func (c *Coordinator) SellNetwork() *Network {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.sellNetwork
}

// CashoutCurrency returns the selected cashout fiat currency, or nil.
func (c *Coordinator) CashoutCurrency() *PaymentCurrency {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.cashoutCurrency
}

// CashoutMethod returns the selected cashout method entry, or nil.
func (c *Coordinator) CashoutMethod() *Limit {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sel.cashoutMethod
}

// SetSellCurrency selects a sell currency by id from the loaded sell options.
func (c *Coordinator) SetSellCurrency(id string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.sellOptions.SellCurrencyByID(id)
	if cur == nil {
		return NewRampError(ErrCodeInvalidSelection, "sell currency "+id+" is not available", nil)
	}
	c.sel.sellCurrency = cur
	if c.sel.sellNetwork != nil && cur.NetworkByName(c.sel.sellNetwork.Name) == nil {
		c.sel.sellNetwork = nil
	}
	c.quoteGen++
	return nil
}

// SetSellNetwork selects a network of the selected sell currency by name.
func (c *Coordinator) SetSellNetwork(name string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.sellCurrency == nil {
		return NewRampError(ErrCodeInvalidSelection, "no sell currency selected", nil)
	}
	n := c.sel.sellCurrency.NetworkByName(name)
	if n == nil {
		return NewRampError(ErrCodeInvalidSelection,
			"network "+name+" is not offered for "+c.sel.sellCurrency.Symbol, nil)
	}
	c.sel.sellNetwork = n
	c.quoteGen++
	return nil
}

// SetCashoutCurrency selects the cashout fiat currency by id.
func (c *Coordinator) SetCashoutCurrency(id string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	cur := c.sellOptions.CashoutCurrencyByID(id)
	if cur == nil {
		return NewRampError(ErrCodeInvalidSelection, "cashout currency "+id+" is not available", nil)
	}
	c.sel.cashoutCurrency = cur
	if c.sel.cashoutMethod != nil && cur.LimitByID(c.sel.cashoutMethod.ID) == nil {
		c.sel.cashoutMethod = nil
	}
	c.quoteGen++
	return nil
}

// SetCashoutMethod selects a cashout method from the selected cashout
// currency's limit list.
func (c *Coordinator) SetCashoutMethod(id string) error {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sel.cashoutCurrency == nil {
		return NewRampError(ErrCodeInvalidSelection, "no cashout currency selected", nil)
	}
	limit := c.sel.cashoutCurrency.LimitByID(id)
	if limit == nil {
		return NewRampError(ErrCodeInvalidSelection,
			"cashout method "+id+" is not offered for "+c.sel.cashoutCurrency.ID, nil)
	}
	c.sel.cashoutMethod = limit
	c.quoteGen++
	return nil
}

// ============================================================================
// Amount, wallet, authentication
// ============================================================================

// Amount returns the pending fiat amount as a decimal string.
func (c *Coordinator) Amount() string {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.amount
}

// SetAmount sets the pending amount. The value must parse as a decimal;
// an empty value resets it to "0".
func (c *Coordinator) SetAmount(amount string) error {
	c.ensure()
	if amount == "" {
		amount = "0"
	}
	if _, err := decimal.NewFromString(amount); err != nil {
		return NewRampError(ErrCodeInvalidSelection, "amount "+amount+" is not a decimal value", nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.amount = amount
	c.quoteGen++
	return nil
}

// Wallet returns the destination wallet address, or "".
func (c *Coordinator) Wallet() string {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wallet
}

// SetWallet sets the destination wallet address. A non-empty address must be
// a valid hex address. Changing the address invalidates the secure token.
func (c *Coordinator) SetWallet(address string) error {
	c.ensure()
	if address != "" && !common.IsHexAddress(address) {
		return NewRampError(ErrCodeInvalidAddress, "not a valid wallet address: "+address, nil)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wallet == address {
		return nil
	}
	c.wallet = address
	c.invalidateTokenLocked()
	return nil
}

// Authenticated reports the wallet-connection gate.
func (c *Coordinator) Authenticated() bool {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// SetAuthenticated flips the authentication gate. The form step advances
// when it becomes true and reverts when it becomes false.
func (c *Coordinator) SetAuthenticated(authenticated bool) {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authenticated = authenticated
}

// Step returns the current form step: 1 before authentication, 2 after.
func (c *Coordinator) Step() int {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.authenticated {
		return 2
	}
	return 1
}

// ============================================================================
// Derived reads
// ============================================================================

// SecureToken returns the current single-use session token, or "".
func (c *Coordinator) SecureToken() string {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.secureToken
}

// BuyQuote returns the latest buy quote, or nil.
func (c *Coordinator) BuyQuote() *BuyQuote {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buyQuote
}

// SellQuote returns the latest sell quote, or nil.
func (c *Coordinator) SellQuote() *SellQuote {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sellQuote
}

// BuyOptions returns the loaded purchase-side option set, or nil.
func (c *Coordinator) BuyOptions() *BuyOptions {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buyOptions
}

// SellOptions returns the loaded sell-side option set, or nil.
func (c *Coordinator) SellOptions() *SellOptions {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sellOptions
}

// Loading reports which fetches are in flight.
func (c *Coordinator) Loading() Loading {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Succeeded returns the terminal success record set by RecoverFromRedirect,
// or nil while no completed transaction has been recovered.
func (c *Coordinator) Succeeded() *SuccessSummary {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.succeeded
}

// Transaction returns a snapshot of the pending transaction for the active
// leg.
func (c *Coordinator) Transaction() Transaction {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := Transaction{
		Amount:      c.amount,
		Wallet:      c.wallet,
		Subdivision: c.sel.subdivision,
	}
	if c.sel.country != nil {
		tx.Country = c.sel.country.ID
	}
	if fiat := c.activeFiatLocked(); fiat != nil {
		tx.Currency = fiat.ID
	}
	if m := c.activeMethodLocked(); m != nil {
		tx.PaymentMethod = m.ID
	}
	return tx
}

// activeFiatLocked returns the active leg's fiat currency selection.
func (c *Coordinator) activeFiatLocked() *PaymentCurrency {
	if c.mode == ModeOfframp {
		return c.sel.cashoutCurrency
	}
	return c.sel.paymentCurrency
}

// activeMethodLocked returns the active leg's payment method selection.
func (c *Coordinator) activeMethodLocked() *Limit {
	if c.mode == ModeOfframp {
		return c.sel.cashoutMethod
	}
	return c.sel.paymentMethod
}

// invalidateTokenLocked drops the secure token and supersedes any in-flight
// token fetch. Must be called with the lock held.
func (c *Coordinator) invalidateTokenLocked() {
	c.secureToken = ""
	c.tokenGen++
}

// reconcileLocked runs the default-derivation pass and invalidates state
// derived from selections that changed. Must be called with the lock held.
func (c *Coordinator) reconcileLocked() {
	before := c.sel
	c.sel = reconcile(c.mode, c.config, c.buyOptions, c.sellOptions, c.sel)
	if c.sel == before {
		return
	}
	c.quoteGen++
	if purchaseTriad(before) != purchaseTriad(c.sel) {
		c.invalidateTokenLocked()
	}
}

// purchaseTriad captures the values the secure token is correlated with
// (the wallet is tracked separately by SetWallet).
func purchaseTriad(sel selections) [2]string {
	var t [2]string
	if sel.purchaseNetwork != nil {
		t[0] = sel.purchaseNetwork.Name
	}
	if sel.purchaseCurrency != nil {
		t[1] = sel.purchaseCurrency.Symbol
	}
	return t
}
