package ramp

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Mode selects which transaction direction is active.
type Mode string

const (
	// ModeOnramp is the fiat-to-crypto purchase flow.
	ModeOnramp Mode = "onramp"
	// ModeOfframp is the crypto-to-fiat sell flow.
	ModeOfframp Mode = "offramp"
)

// Valid reports whether the mode is one of the two supported directions.
func (m Mode) Valid() bool {
	return m == ModeOnramp || m == ModeOfframp
}

// Country is a region supported by the hosted checkout, as reported by the
// provider configuration endpoint.
type Country struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	Subdivisions   []string        `json:"subdivisions"`
	PaymentMethods []PaymentMethod `json:"paymentMethods,omitempty"`
}

// HasSubdivision reports whether the country lists the given subdivision.
func (c Country) HasSubdivision(subdivision string) bool {
	for _, s := range c.Subdivisions {
		if s == subdivision {
			return true
		}
	}
	return false
}

// PaymentMethod identifies a payment rail (e.g. CARD, ACH_BANK_ACCOUNT).
type PaymentMethod struct {
	ID string `json:"id"`
}

// Config is the provider configuration: the set of supported countries and
// the payment methods available in each.
type Config struct {
	Countries []Country `json:"countries"`
}

// CountryByID returns the country with the given id, or nil.
func (c *Config) CountryByID(id string) *Country {
	if c == nil {
		return nil
	}
	for i := range c.Countries {
		if c.Countries[i].ID == id {
			return &c.Countries[i]
		}
	}
	return nil
}

// Network is a blockchain a currency can be delivered on.
type Network struct {
	Name            string `json:"name"`
	DisplayName     string `json:"displayName,omitempty"`
	ChainID         string `json:"chainId"`
	ContractAddress string `json:"contractAddress,omitempty"`
}

// PurchaseCurrency is a crypto asset that can be bought, together with the
// networks it can be delivered on.
type PurchaseCurrency struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Symbol   string    `json:"symbol"`
	IconURL  string    `json:"iconUrl,omitempty"`
	Networks []Network `json:"networks"`
}

// NetworkByName returns the currency's network with the given name, or nil.
func (p *PurchaseCurrency) NetworkByName(name string) *Network {
	if p == nil {
		return nil
	}
	for i := range p.Networks {
		if p.Networks[i].Name == name {
			return &p.Networks[i]
		}
	}
	return nil
}

// Limit is a payment-method entry of a fiat currency: the method id plus the
// minimum and maximum transactable amounts for that rail.
type Limit struct {
	ID  string `json:"id"`
	Min string `json:"min"`
	Max string `json:"max"`
}

// PaymentCurrency is a fiat currency usable to pay (onramp) or cash out
// (offramp), with per-payment-method limits.
type PaymentCurrency struct {
	ID     string  `json:"id"`
	Limits []Limit `json:"limits"`
}

// LimitByID returns the currency's limit entry with the given method id, or nil.
func (p *PaymentCurrency) LimitByID(id string) *Limit {
	if p == nil {
		return nil
	}
	for i := range p.Limits {
		if p.Limits[i].ID == id {
			return &p.Limits[i]
		}
	}
	return nil
}

// BuyOptions is the purchase-side option set for a region: which crypto
// assets can be bought and which fiat currencies can pay for them.
type BuyOptions struct {
	PaymentCurrencies  []PaymentCurrency  `json:"paymentCurrencies"`
	PurchaseCurrencies []PurchaseCurrency `json:"purchaseCurrencies"`
}

// PurchaseCurrencyByID returns the purchasable currency with the given id, or nil.
func (o *BuyOptions) PurchaseCurrencyByID(id string) *PurchaseCurrency {
	if o == nil {
		return nil
	}
	for i := range o.PurchaseCurrencies {
		if o.PurchaseCurrencies[i].ID == id {
			return &o.PurchaseCurrencies[i]
		}
	}
	return nil
}

// PaymentCurrencyByID returns the payment currency with the given id, or nil.
func (o *BuyOptions) PaymentCurrencyByID(id string) *PaymentCurrency {
	if o == nil {
		return nil
	}
	for i := range o.PaymentCurrencies {
		if o.PaymentCurrencies[i].ID == id {
			return &o.PaymentCurrencies[i]
		}
	}
	return nil
}

// SellCurrency is a crypto asset that can be sold, with its delivery networks.
type SellCurrency struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Symbol   string    `json:"symbol"`
	Networks []Network `json:"networks"`
}

// NetworkByName returns the currency's network with the given name, or nil.
func (s *SellCurrency) NetworkByName(name string) *Network {
	if s == nil {
		return nil
	}
	for i := range s.Networks {
		if s.Networks[i].Name == name {
			return &s.Networks[i]
		}
	}
	return nil
}

// SellOptions is the sell-side option set for a region.
type SellOptions struct {
	SellCurrencies    []SellCurrency    `json:"sell_currencies"`
	CashoutCurrencies []PaymentCurrency `json:"cashout_currencies"`
}

// SellCurrencyByID returns the sellable currency with the given id, or nil.
func (o *SellOptions) SellCurrencyByID(id string) *SellCurrency {
	if o == nil {
		return nil
	}
	for i := range o.SellCurrencies {
		if o.SellCurrencies[i].ID == id {
			return &o.SellCurrencies[i]
		}
	}
	return nil
}

// CashoutCurrencyByID returns the cashout currency with the given id, or nil.
func (o *SellOptions) CashoutCurrencyByID(id string) *PaymentCurrency {
	if o == nil {
		return nil
	}
	for i := range o.CashoutCurrencies {
		if o.CashoutCurrencies[i].ID == id {
			return &o.CashoutCurrencies[i]
		}
	}
	return nil
}

// Amount is a monetary value paired with the currency it is denominated in.
// Values travel as decimal strings to avoid float drift on the wire.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// Decimal parses the amount value. Unparseable values yield zero.
func (a Amount) Decimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(a.Value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// BuyQuote is the priced breakdown of a pending purchase.
type BuyQuote struct {
	QuoteID         string `json:"quoteId"`
	PaymentSubtotal Amount `json:"paymentSubtotal"`
	PaymentTotal    Amount `json:"paymentTotal"`
	PurchaseAmount  Amount `json:"purchaseAmount"`
	ProviderFee     Amount `json:"providerFee"`
	NetworkFee      Amount `json:"networkFee"`
}

// ExchangePrice returns the effective fiat price per unit of the purchased
// asset, or zero when the quote has no purchase amount.
func (q *BuyQuote) ExchangePrice() decimal.Decimal {
	if q == nil {
		return decimal.Zero
	}
	purchased := q.PurchaseAmount.Decimal()
	if purchased.IsZero() {
		return decimal.Zero
	}
	return q.PaymentSubtotal.Decimal().Div(purchased)
}

// SellQuote is the priced breakdown of a pending sale.
type SellQuote struct {
	QuoteID         string `json:"quote_id"`
	CashoutSubtotal Amount `json:"cashout_subtotal"`
	CashoutTotal    Amount `json:"cashout_total"`
	SellAmount      Amount `json:"sell_amount"`
	ProviderFee     Amount `json:"provider_fee"`
}

// ExchangePrice returns the effective fiat price per unit of the sold
// asset, or zero when the quote has no sell amount.
func (q *SellQuote) ExchangePrice() decimal.Decimal {
	if q == nil {
		return decimal.Zero
	}
	sold := q.SellAmount.Decimal()
	if sold.IsZero() {
		return decimal.Zero
	}
	return q.CashoutSubtotal.Decimal().Div(sold)
}

// BuyQuoteRequest carries the inputs a buy quote is priced against.
type BuyQuoteRequest struct {
	Country          string `json:"country"`
	Subdivision      string `json:"subdivision,omitempty"`
	PurchaseCurrency string `json:"purchaseCurrency"`
	PurchaseNetwork  string `json:"purchaseNetwork"`
	PaymentAmount    string `json:"paymentAmount"`
	PaymentCurrency  string `json:"paymentCurrency"`
	PaymentMethod    string `json:"paymentMethod"`
}

// SellQuoteRequest carries the inputs a sell quote is priced against.
type SellQuoteRequest struct {
	Country         string `json:"country"`
	Subdivision     string `json:"subdivision,omitempty"`
	SellCurrency    string `json:"sell_currency"`
	SellNetwork     string `json:"sell_network"`
	SellAmount      string `json:"sell_amount"`
	CashoutCurrency string `json:"cashout_currency"`
	PaymentMethod   string `json:"payment_method"`
}

// SecureTokenRequest carries the inputs for minting a single-use checkout
// session token.
type SecureTokenRequest struct {
	Address       string   `json:"address"`
	Blockchains   []string `json:"blockchains"`
	PartnerUserID string   `json:"partnerUserId,omitempty"`
}

// Transaction is a read-only snapshot of the pending transaction fields for
// the active leg.
type Transaction struct {
	Amount        string
	Wallet        string
	Currency      string
	PaymentMethod string
	Country       string
	Subdivision   string
}

// SuccessSummary is the record persisted before the checkout redirect and
// read back when the hosted flow returns with a success marker.
type SuccessSummary struct {
	DeliveryTargetAddress string          `json:"deliveryTargetAddress"`
	PurchaseAmount        decimal.Decimal `json:"purchaseAmount"`
	PurchaseCurrency      string          `json:"purchaseCurrency"`
}
