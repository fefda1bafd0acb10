package ramp

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// DefaultCheckoutBaseURL is the hosted checkout origin.
	DefaultCheckoutBaseURL = "https://pay.coinbase.com"
	// DefaultRedirectURL is the application origin the checkout returns to.
	DefaultRedirectURL = "http://localhost:3000"

	// SuccessQueryParam is the marker appended to the redirect URL and
	// checked by RecoverFromRedirect on return.
	SuccessQueryParam = "success"

	summaryStorageKey = "ramp_tx_success_summary"
)

// CheckoutURL builds the outbound hosted-checkout URL from the current
// state. It is a pure read: the action segment is buy or sell per the
// active mode, the session token and redirect URL are always present,
// optional parameters are included only when their selection exists, the
// fiat amount is formatted to exactly two decimal places, and a quote id
// parameter is always appended (empty when no quote is available). Every
// dynamic value is percent-encoded.
func (c *Coordinator) CheckoutURL() string {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkoutURLLocked()
}

func (c *Coordinator) checkoutURLLocked() string {
	action := "buy"
	quoteID := ""
	if c.mode == ModeOfframp {
		action = "sell"
		if c.sellQuote != nil {
			quoteID = c.sellQuote.QuoteID
		}
	} else if c.buyQuote != nil {
		quoteID = c.buyQuote.QuoteID
	}

	q := url.Values{}
	q.Set("sessionToken", c.secureToken)
	q.Set("redirectUrl", c.successRedirectLocked())

	if n := c.sel.purchaseNetwork; n != nil && n.Name != "" {
		q.Set("defaultNetwork", n.Name)
	}
	if cur := c.sel.purchaseCurrency; cur != nil && cur.Symbol != "" {
		q.Set("defaultAsset", cur.Symbol)
	}
	if m := c.activeMethodLocked(); m != nil && m.ID != "" {
		q.Set("defaultPaymentMethod", m.ID)
	}
	if fiat := c.activeFiatLocked(); fiat != nil && fiat.ID != "" {
		q.Set("fiatCurrency", fiat.ID)
	}
	if c.amount != "" {
		if amt, err := decimal.NewFromString(c.amount); err == nil {
			q.Set("presetFiatAmount", amt.StringFixed(2))
		}
	}
	q.Set("quoteId", quoteID)

	return strings.TrimRight(c.checkoutBase, "/") + "/" + action + "/one-click?" + q.Encode()
}

// successRedirectLocked returns the configured redirect URL with the success
// marker appended.
func (c *Coordinator) successRedirectLocked() string {
	u, err := url.Parse(c.redirectURL)
	if err != nil {
		return c.redirectURL
	}
	q := u.Query()
	q.Set(SuccessQueryParam, "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// ReadyToConfirm reports whether the transaction can be confirmed: a secure
// session token correlated with the current triad is held.
func (c *Coordinator) ReadyToConfirm() bool {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.secureToken != ""
}

// AmountTooLow reports whether the pending amount is below the selected
// payment method's minimum. With no method selected it is true regardless
// of amount, which conservatively blocks premature confirmation.
func (c *Coordinator) AmountTooLow() bool {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.amountTooLowLocked()
}

func (c *Coordinator) amountTooLowLocked() bool {
	m := c.activeMethodLocked()
	if m == nil {
		return true
	}
	amount, err := decimal.NewFromString(c.amount)
	if err != nil {
		return true
	}
	min, err := decimal.NewFromString(m.Min)
	if err != nil {
		return true
	}
	return amount.LessThan(min)
}

// Confirm finalizes the transaction: it persists the success summary for
// post-redirect recovery and returns the checkout URL the caller should
// navigate to. Confirmation is onramp-only - sell mode is preview only and
// returns ErrCodeSellPreviewOnly. A missing secure token or an amount below
// the method minimum also refuse confirmation.
func (c *Coordinator) Confirm() (string, error) {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode == ModeOfframp {
		return "", NewRampError(ErrCodeSellPreviewOnly, "sell transactions are preview only", nil)
	}
	if c.secureToken == "" {
		return "", NewRampError(ErrCodeNotReady, "secure session token not available", nil)
	}
	if c.amountTooLowLocked() {
		return "", NewRampError(ErrCodeAmountTooLow, "amount is below the payment method minimum", nil)
	}

	if c.amount != "" && c.wallet != "" && c.sel.purchaseCurrency != nil && c.sel.purchaseCurrency.Symbol != "" {
		amount, err := decimal.NewFromString(c.amount)
		if err == nil {
			summary := SuccessSummary{
				DeliveryTargetAddress: c.wallet,
				PurchaseAmount:        amount,
				PurchaseCurrency:      c.sel.purchaseCurrency.Symbol,
			}
			if data, err := json.Marshal(summary); err == nil {
				if err := c.store.Set(summaryStorageKey, data); err != nil {
					c.log.WithError(err).Error("ramp: persisting success summary failed")
				}
			}
		}
	}

	return c.checkoutURLLocked(), nil
}
