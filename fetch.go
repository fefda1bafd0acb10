package ramp

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// regionKey identifies the (country, subdivision) input an option set was
// fetched for. Caching is keyed on it rather than on "is the value nil" so
// that rapid duplicate triggers cannot race into duplicate fetches and a
// region change naturally invalidates the cache.
func regionKey(country, subdivision string) string {
	return country + "|" + subdivision
}

// LoadConfig fetches the provider configuration once. Subsequent calls
// return immediately; concurrent calls coalesce onto the in-flight fetch.
// On failure the configuration stays unset and the error is returned after
// being logged; a later call retries.
func (c *Coordinator) LoadConfig(ctx context.Context) error {
	c.ensure()
	c.mu.Lock()
	if c.gateway == nil {
		c.mu.Unlock()
		return NewRampError(ErrCodeFetchFailed, "no gateway configured", nil)
	}
	if c.config != nil {
		c.mu.Unlock()
		return nil
	}
	if done, ok := c.flights["config"]; ok {
		c.mu.Unlock()
		return waitFlight(ctx, done)
	}
	done := make(chan struct{})
	c.flights["config"] = done
	c.loading.Config = true
	gw, log := c.gateway, c.log
	c.mu.Unlock()

	cfg, err := gw.GetConfig(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flights, "config")
	c.loading.Config = false
	close(done)
	if err != nil {
		log.WithError(err).Error("ramp: config fetch failed")
		return NewRampError(ErrCodeFetchFailed, fmt.Sprintf("config fetch: %v", err), nil)
	}
	c.config = cfg
	c.reconcileLocked()
	return nil
}

// LoadOptions fetches the buy-side and sell-side option sets for the
// selected region. Each set is fetched at most once per (country,
// subdivision) key; duplicate triggers coalesce onto the in-flight fetch
// and a region change invalidates the cache. Either side may fail
// independently: whatever arrived is stored and reconciled, and the
// failures are returned joined.
func (c *Coordinator) LoadOptions(ctx context.Context) error {
	c.ensure()
	c.mu.Lock()
	if c.gateway == nil {
		c.mu.Unlock()
		return NewRampError(ErrCodeFetchFailed, "no gateway configured", nil)
	}
	if c.sel.country == nil {
		c.mu.Unlock()
		return NewRampError(ErrCodeNotReady, "no country selected", nil)
	}
	country, subdivision := c.sel.country.ID, c.sel.subdivision
	c.mu.Unlock()

	return errors.Join(
		c.loadBuyOptions(ctx, country, subdivision),
		c.loadSellOptions(ctx, country, subdivision),
	)
}

func (c *Coordinator) loadBuyOptions(ctx context.Context, country, subdivision string) error {
	key := regionKey(country, subdivision)

	c.mu.Lock()
	if c.buyOptions != nil && c.buyKey == key {
		c.mu.Unlock()
		return nil
	}
	flightKey := "buy-options:" + key
	if done, ok := c.flights[flightKey]; ok {
		c.mu.Unlock()
		return waitFlight(ctx, done)
	}
	done := make(chan struct{})
	c.flights[flightKey] = done
	c.loading.BuyOptions = true
	gw, log := c.gateway, c.log
	c.mu.Unlock()

	opts, err := gw.GetBuyOptions(ctx, country, subdivision)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flights, flightKey)
	c.loading.BuyOptions = false
	close(done)
	if err != nil {
		log.WithError(err).WithField("country", country).Error("ramp: buy options fetch failed")
		return NewRampError(ErrCodeFetchFailed, fmt.Sprintf("buy options fetch: %v", err), nil)
	}
	c.buyOptions = opts
	c.buyKey = key
	c.reconcileLocked()
	return nil
}

func (c *Coordinator) loadSellOptions(ctx context.Context, country, subdivision string) error {
	key := regionKey(country, subdivision)

	c.mu.Lock()
	if c.sellOptions != nil && c.sellKey == key {
		c.mu.Unlock()
		return nil
	}
	flightKey := "sell-options:" + key
	if done, ok := c.flights[flightKey]; ok {
		c.mu.Unlock()
		return waitFlight(ctx, done)
	}
	done := make(chan struct{})
	c.flights[flightKey] = done
	c.loading.SellOptions = true
	gw, log := c.gateway, c.log
	c.mu.Unlock()

	opts, err := gw.GetSellOptions(ctx, country, subdivision)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.flights, flightKey)
	c.loading.SellOptions = false
	close(done)
	if err != nil {
		log.WithError(err).WithField("country", country).Error("ramp: sell options fetch failed")
		return NewRampError(ErrCodeFetchFailed, fmt.Sprintf("sell options fetch: %v", err), nil)
	}
	c.sellOptions = opts
	c.sellKey = key
	c.reconcileLocked()
	return nil
}

// waitFlight blocks until an in-flight fetch completes or the context is
// cancelled. The waiter does not observe the fetch's error; it re-reads
// state afterwards like any other caller.
func waitFlight(ctx context.Context, done chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshSecureToken fetches a single-use session token for the current
// (wallet, purchase network, purchase currency) triad. It is a no-op until
// the triad is complete. Responses are applied latest-request-wins: a
// response that raced with a triad change is discarded silently.
func (c *Coordinator) RefreshSecureToken(ctx context.Context) error {
	c.ensure()
	c.mu.Lock()
	if c.gateway == nil ||
		c.wallet == "" ||
		c.sel.purchaseNetwork == nil || c.sel.purchaseNetwork.Name == "" ||
		c.sel.purchaseCurrency == nil || c.sel.purchaseCurrency.Symbol == "" {
		c.mu.Unlock()
		return nil
	}
	gen := c.tokenGen
	req := SecureTokenRequest{
		Address:       c.wallet,
		Blockchains:   []string{c.sel.purchaseNetwork.Name},
		PartnerUserID: c.partnerUserID,
	}
	c.loading.SecureToken = true
	gw, log := c.gateway, c.log
	c.mu.Unlock()

	token, err := gw.GetSecureToken(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.SecureToken = false
	if gen != c.tokenGen {
		log.WithField("address", req.Address).Debug("ramp: discarding stale secure token response")
		return nil
	}
	if err != nil {
		log.WithError(err).Error("ramp: secure token fetch failed")
		return NewRampError(ErrCodeFetchFailed, fmt.Sprintf("secure token fetch: %v", err), nil)
	}
	c.secureToken = token
	return nil
}

// RefreshQuote prices the active leg against the current inputs. It is a
// no-op until the leg's currency, network, fiat currency, payment method
// and a positive amount are all present. Latest-request-wins: only the
// response correlated with the newest inputs is stored.
func (c *Coordinator) RefreshQuote(ctx context.Context) error {
	c.ensure()
	c.mu.Lock()
	if c.gateway == nil {
		c.mu.Unlock()
		return nil
	}
	mode := c.mode
	gen := c.quoteGen

	amount, err := decimal.NewFromString(c.amount)
	if err != nil || !amount.IsPositive() {
		c.mu.Unlock()
		return nil
	}

	var buyReq BuyQuoteRequest
	var sellReq SellQuoteRequest
	if mode == ModeOfframp {
		if c.sel.sellCurrency == nil || c.sel.sellNetwork == nil ||
			c.sel.cashoutCurrency == nil || c.sel.cashoutMethod == nil {
			c.mu.Unlock()
			return nil
		}
		sellReq = SellQuoteRequest{
			SellCurrency:    c.sel.sellCurrency.ID,
			SellNetwork:     c.sel.sellNetwork.Name,
			SellAmount:      c.amount,
			CashoutCurrency: c.sel.cashoutCurrency.ID,
			PaymentMethod:   c.sel.cashoutMethod.ID,
		}
		if c.sel.country != nil {
			sellReq.Country = c.sel.country.ID
			sellReq.Subdivision = c.sel.subdivision
		}
	} else {
		if c.sel.purchaseCurrency == nil || c.sel.purchaseNetwork == nil ||
			c.sel.paymentCurrency == nil || c.sel.paymentMethod == nil {
			c.mu.Unlock()
			return nil
		}
		buyReq = BuyQuoteRequest{
			PurchaseCurrency: c.sel.purchaseCurrency.ID,
			PurchaseNetwork:  c.sel.purchaseNetwork.Name,
			PaymentAmount:    c.amount,
			PaymentCurrency:  c.sel.paymentCurrency.ID,
			PaymentMethod:    c.sel.paymentMethod.ID,
		}
		if c.sel.country != nil {
			buyReq.Country = c.sel.country.ID
			buyReq.Subdivision = c.sel.subdivision
		}
	}
	c.loading.Quote = true
	gw, log := c.gateway, c.log
	c.mu.Unlock()

	var buyQuote *BuyQuote
	var sellQuote *SellQuote
	var fetchErr error
	if mode == ModeOfframp {
		sellQuote, fetchErr = gw.GetSellQuote(ctx, sellReq)
	} else {
		buyQuote, fetchErr = gw.GetBuyQuote(ctx, buyReq)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading.Quote = false
	if gen != c.quoteGen {
		log.Debug("ramp: discarding stale quote response")
		return nil
	}
	if fetchErr != nil {
		log.WithError(fetchErr).Error("ramp: quote fetch failed")
		return NewRampError(ErrCodeFetchFailed, fmt.Sprintf("quote fetch: %v", fetchErr), nil)
	}
	if mode == ModeOfframp {
		c.sellQuote = sellQuote
	} else {
		c.buyQuote = buyQuote
	}
	return nil
}
