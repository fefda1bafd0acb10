// Package ramp implements the client-side state coordinator behind a
// fiat-to-crypto on-ramp/off-ramp widget.
//
// The Coordinator owns every selection a checkout form needs to keep
// consistent - mode, region, currencies, delivery networks, payment
// methods, the pending amount and wallet - derives policy defaults once
// option sets arrive, orchestrates quote and secure-token fetches with
// latest-request-wins semantics, and produces the outbound hosted-checkout
// URL. Remote data and durable storage are consumed through the Gateway
// and Store interfaces; see the gateway and storage subpackages for the
// stock implementations.
package ramp
