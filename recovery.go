package ramp

import (
	"encoding/json"
	"net/url"
)

// RecoverFromRedirect is the one-shot recovery path run against the query
// parameters of the incoming request after the hosted checkout redirects
// back. When the success marker is present and a persisted summary exists,
// the coordinator transitions into the terminal succeeded state and the
// summary is returned. Anything else - no marker, no record, unreadable
// record - leaves state untouched.
func (c *Coordinator) RecoverFromRedirect(query url.Values) (*SuccessSummary, bool) {
	c.ensure()
	if query.Get(SuccessQueryParam) == "" {
		return nil, false
	}

	c.mu.Lock()
	store, log := c.store, c.log
	c.mu.Unlock()

	data, err := store.Get(summaryStorageKey)
	if err != nil {
		log.WithError(err).Error("ramp: reading success summary failed")
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var summary SuccessSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		log.WithError(err).Error("ramp: decoding success summary failed")
		return nil, false
	}

	c.mu.Lock()
	c.succeeded = &summary
	c.mu.Unlock()
	return &summary, true
}
