package ramp

import "github.com/google/uuid"

const partnerUserIDKey = "ramp_partner_user_id"

// PartnerUserID returns the partner user identifier, or "" before
// EnsurePartnerUserID has run (and no WithPartnerUserID override was given).
func (c *Coordinator) PartnerUserID() string {
	c.ensure()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.partnerUserID
}

// EnsurePartnerUserID returns the stable per-installation partner user
// identifier, creating and persisting one on first use. An identifier is
// never regenerated once present, neither in memory nor in the store.
func (c *Coordinator) EnsurePartnerUserID() (string, error) {
	c.ensure()
	c.mu.Lock()
	if c.partnerUserID != "" {
		id := c.partnerUserID
		c.mu.Unlock()
		return id, nil
	}
	store := c.store
	c.mu.Unlock()

	data, err := store.Get(partnerUserIDKey)
	if err != nil {
		return "", NewRampError(ErrCodeStorageFailed, "reading partner user id: "+err.Error(), nil)
	}
	if len(data) > 0 {
		id := string(data)
		c.mu.Lock()
		c.partnerUserID = id
		c.mu.Unlock()
		return id, nil
	}

	id := uuid.NewString()
	if err := store.Set(partnerUserIDKey, []byte(id)); err != nil {
		return "", NewRampError(ErrCodeStorageFailed, "persisting partner user id: "+err.Error(), nil)
	}
	c.mu.Lock()
	c.partnerUserID = id
	c.mu.Unlock()
	return id, nil
}
