package gateway

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	ramp "github.com/openramp/ramp-go"
)

// The sell-side endpoints are not covered by the provider's typed SDK
// surface, so their responses are validated against a schema before
// decoding rather than trusted to unmarshal cleanly.

const sellOptionsSchema = `{
	"type": "object",
	"required": ["sell_currencies", "cashout_currencies"],
	"properties": {
		"sell_currencies": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id", "symbol"],
				"properties": {
					"id": {"type": "string"},
					"name": {"type": "string"},
					"symbol": {"type": "string"},
					"networks": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["name"],
							"properties": {
								"name": {"type": "string"},
								"display_name": {"type": "string"},
								"chain_id": {"type": "string"},
								"contract_address": {"type": "string"}
							}
						}
					}
				}
			}
		},
		"cashout_currencies": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["id"],
				"properties": {
					"id": {"type": "string"},
					"limits": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["id"],
							"properties": {
								"id": {"type": "string"},
								"min": {"type": "string"},
								"max": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

const sellQuoteSchema = `{
	"type": "object",
	"required": ["quote_id"],
	"properties": {
		"quote_id": {"type": "string"},
		"cashout_subtotal": {"$ref": "#/definitions/amount"},
		"cashout_total": {"$ref": "#/definitions/amount"},
		"sell_amount": {"$ref": "#/definitions/amount"},
		"provider_fee": {"$ref": "#/definitions/amount"}
	},
	"definitions": {
		"amount": {
			"type": "object",
			"required": ["value", "currency"],
			"properties": {
				"value": {"type": "string"},
				"currency": {"type": "string"}
			}
		}
	}
}`

// validateAgainst checks a response body against a schema and flattens any
// violations into a single error.
func validateAgainst(schema string, body []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(body),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}
	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, fmt.Sprintf("%s: %s", desc.Context().String(), desc.Description()))
	}
	return fmt.Errorf("does not match schema: %s", strings.Join(violations, "; "))
}

func validateSellOptions(body []byte) error {
	return validateAgainst(sellOptionsSchema, body)
}

func validateSellQuote(body []byte) error {
	return validateAgainst(sellQuoteSchema, body)
}

// Wire shapes for the sell-side endpoints, which use snake_case network
// fields unlike the buy side.

type sellNetworkWire struct {
	Name            string `json:"name"`
	DisplayName     string `json:"display_name"`
	ChainID         string `json:"chain_id"`
	ContractAddress string `json:"contract_address"`
}

type sellCurrencyWire struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Symbol   string            `json:"symbol"`
	Networks []sellNetworkWire `json:"networks"`
}

type sellOptionsWire struct {
	SellCurrencies    []sellCurrencyWire     `json:"sell_currencies"`
	CashoutCurrencies []ramp.PaymentCurrency `json:"cashout_currencies"`
}

func (w sellOptionsWire) toDomain() *ramp.SellOptions {
	out := &ramp.SellOptions{
		CashoutCurrencies: w.CashoutCurrencies,
	}
	for _, cur := range w.SellCurrencies {
		networks := make([]ramp.Network, 0, len(cur.Networks))
		for _, n := range cur.Networks {
			networks = append(networks, ramp.Network{
				Name:            n.Name,
				DisplayName:     n.DisplayName,
				ChainID:         n.ChainID,
				ContractAddress: n.ContractAddress,
			})
		}
		out.SellCurrencies = append(out.SellCurrencies, ramp.SellCurrency{
			ID:       cur.ID,
			Name:     cur.Name,
			Symbol:   cur.Symbol,
			Networks: networks,
		})
	}
	return out
}
