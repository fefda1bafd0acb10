package ramp

import "context"

// Gateway is the remote data boundary: provider configuration, per-region
// option sets, quotes, and single-use checkout session tokens.
//
// Every call may fail with a transport or validation error. The coordinator
// treats failure as "leave state unset, log, continue" - a failed fetch is
// retried only when a later user action re-satisfies its trigger condition.
type Gateway interface {
	// GetConfig returns the supported countries and their payment methods.
	GetConfig(ctx context.Context) (*Config, error)

	// GetBuyOptions returns the purchase-side option set for a region.
	// Subdivision may be empty for countries without subdivisions.
	GetBuyOptions(ctx context.Context, country, subdivision string) (*BuyOptions, error)

	// GetSellOptions returns the sell-side option set for a region.
	GetSellOptions(ctx context.Context, country, subdivision string) (*SellOptions, error)

	// GetBuyQuote prices a pending purchase.
	GetBuyQuote(ctx context.Context, req BuyQuoteRequest) (*BuyQuote, error)

	// GetSellQuote prices a pending sale.
	GetSellQuote(ctx context.Context, req SellQuoteRequest) (*SellQuote, error)

	// GetSecureToken mints a single-use session token authorizing a hosted
	// checkout redirect for the given destination address.
	GetSecureToken(ctx context.Context, req SecureTokenRequest) (string, error)
}

// Store is durable string-keyed storage for the small set of records that
// must survive the checkout redirect round-trip.
//
// Get returns (nil, nil) for an absent key; absence is not an error.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}
