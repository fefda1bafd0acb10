package ramp

import "strings"

// Default selection policy. Applied in order, first match wins; a value the
// user already set is never overwritten.
const (
	// DefaultCountryID is preferred when the configured country list has it.
	DefaultCountryID = "US"
	// DefaultSubdivisionID is applied when the selected country lists it;
	// otherwise the subdivision is left unset for the user to pick.
	DefaultSubdivisionID = "CA"
	// DefaultAssetSymbol is preferred among purchasable and sellable currencies.
	DefaultAssetSymbol = "USDC"
	// DefaultChainID is the chain whose network is preferred for delivery.
	DefaultChainID = "8453"
	// DefaultFiatID is preferred among payment and cashout currencies.
	DefaultFiatID = "USD"
)

// selections is every user-selectable field the coordinator owns. Both legs
// are kept independently so switching mode restores prior choices.
type selections struct {
	country     *Country
	subdivision string

	purchaseCurrency *PurchaseCurrency
	purchaseNetwork  *Network
	paymentCurrency  *PaymentCurrency
	paymentMethod    *Limit

	sellCurrency    *SellCurrency
	sellNetwork     *Network
	cashoutCurrency *PaymentCurrency
	cashoutMethod   *Limit
}

// reconcile is the single derivation pass run after every option-set arrival
// and every mode switch. It is a pure function: given the active mode, the
// loaded option sets and the current selections it returns the updated
// selections, first dropping values no longer present in the option sets,
// then filling unset fields per the default policy for the active leg.
// Running it again on unchanged inputs is a no-op.
func reconcile(mode Mode, cfg *Config, buy *BuyOptions, sell *SellOptions, cur selections) selections {
	next := clampToOptions(cfg, buy, sell, cur)
	next = deriveRegion(cfg, next)

	switch mode {
	case ModeOfframp:
		next = deriveSellLeg(sell, next)
	default:
		next = derivePurchaseLeg(buy, next)
	}
	return next
}

// clampToOptions drops selections that are not members of the loaded option
// sets and re-anchors surviving ones to the current set's records. Option
// sets that have not loaded yet leave their selections untouched.
func clampToOptions(cfg *Config, buy *BuyOptions, sell *SellOptions, cur selections) selections {
	next := cur

	if cfg != nil && next.country != nil {
		next.country = cfg.CountryByID(next.country.ID)
	}
	if next.country == nil || (next.subdivision != "" && !next.country.HasSubdivision(next.subdivision)) {
		next.subdivision = ""
	}

	if buy != nil {
		if next.purchaseCurrency != nil {
			next.purchaseCurrency = buy.PurchaseCurrencyByID(next.purchaseCurrency.ID)
		}
		if next.purchaseNetwork != nil {
			next.purchaseNetwork = next.purchaseCurrency.NetworkByName(next.purchaseNetwork.Name)
		}
		if next.paymentCurrency != nil {
			next.paymentCurrency = buy.PaymentCurrencyByID(next.paymentCurrency.ID)
		}
		if next.paymentMethod != nil {
			next.paymentMethod = next.paymentCurrency.LimitByID(next.paymentMethod.ID)
		}
	}

	if sell != nil {
		if next.sellCurrency != nil {
			next.sellCurrency = sell.SellCurrencyByID(next.sellCurrency.ID)
		}
		if next.sellNetwork != nil {
			next.sellNetwork = next.sellCurrency.NetworkByName(next.sellNetwork.Name)
		}
		if next.cashoutCurrency != nil {
			next.cashoutCurrency = sell.CashoutCurrencyByID(next.cashoutCurrency.ID)
		}
		if next.cashoutMethod != nil {
			next.cashoutMethod = next.cashoutCurrency.LimitByID(next.cashoutMethod.ID)
		}
	}

	return next
}

// deriveRegion fills the country and subdivision defaults.
func deriveRegion(cfg *Config, cur selections) selections {
	next := cur
	if cfg == nil || len(cfg.Countries) == 0 {
		return next
	}

	if next.country == nil {
		if us := cfg.CountryByID(DefaultCountryID); us != nil {
			next.country = us
		} else {
			next.country = &cfg.Countries[0]
		}
	}

	if next.subdivision == "" && next.country.HasSubdivision(DefaultSubdivisionID) {
		next.subdivision = DefaultSubdivisionID
	}

	return next
}

// derivePurchaseLeg fills purchase-side defaults once buy options are loaded.
func derivePurchaseLeg(buy *BuyOptions, cur selections) selections {
	next := cur
	if buy == nil {
		return next
	}

	if next.purchaseCurrency == nil && len(buy.PurchaseCurrencies) > 0 {
		next.purchaseCurrency = &buy.PurchaseCurrencies[0]
		for i := range buy.PurchaseCurrencies {
			if strings.EqualFold(buy.PurchaseCurrencies[i].Symbol, DefaultAssetSymbol) {
				next.purchaseCurrency = &buy.PurchaseCurrencies[i]
				break
			}
		}
	}

	if next.purchaseNetwork == nil && next.purchaseCurrency != nil && len(next.purchaseCurrency.Networks) > 0 {
		next.purchaseNetwork = defaultNetwork(next.purchaseCurrency.Networks)
	}

	if next.paymentCurrency == nil && len(buy.PaymentCurrencies) > 0 {
		next.paymentCurrency = defaultFiat(buy.PaymentCurrencies)
	}

	if next.paymentMethod == nil && next.paymentCurrency != nil && len(next.paymentCurrency.Limits) > 0 {
		next.paymentMethod = &next.paymentCurrency.Limits[0]
	}

	return next
}

// deriveSellLeg fills sell-side defaults once sell options are loaded.
// When no network matches the default chain the first network of the sell
// currency is used, mirroring the purchase-side rule.
func deriveSellLeg(sell *SellOptions, cur selections) selections {
	next := cur
	if sell == nil {
		return next
	}

	if next.sellCurrency == nil && len(sell.SellCurrencies) > 0 {
		next.sellCurrency = &sell.SellCurrencies[0]
		for i := range sell.SellCurrencies {
			if strings.EqualFold(sell.SellCurrencies[i].Symbol, DefaultAssetSymbol) {
				next.sellCurrency = &sell.SellCurrencies[i]
				break
			}
		}
	}

	if next.sellNetwork == nil && next.sellCurrency != nil && len(next.sellCurrency.Networks) > 0 {
		next.sellNetwork = defaultNetwork(next.sellCurrency.Networks)
	}

	if next.cashoutCurrency == nil && len(sell.CashoutCurrencies) > 0 {
		next.cashoutCurrency = defaultFiat(sell.CashoutCurrencies)
	}

	if next.cashoutMethod == nil && next.cashoutCurrency != nil && len(next.cashoutCurrency.Limits) > 0 {
		next.cashoutMethod = &next.cashoutCurrency.Limits[0]
	}

	return next
}

// defaultNetwork prefers the default-chain network, else the first one.
func defaultNetwork(networks []Network) *Network {
	for i := range networks {
		if networks[i].ChainID == DefaultChainID {
			return &networks[i]
		}
	}
	return &networks[0]
}

// defaultFiat prefers the default fiat currency by id, else the first one.
func defaultFiat(currencies []PaymentCurrency) *PaymentCurrency {
	for i := range currencies {
		if strings.EqualFold(currencies[i].ID, DefaultFiatID) {
			return &currencies[i]
		}
	}
	return &currencies[0]
}
