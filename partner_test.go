package ramp

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openramp/ramp-go/storage"
)

type failingStore struct{}

func (failingStore) Get(key string) ([]byte, error)     { return nil, errors.New("disk gone") }
func (failingStore) Set(key string, value []byte) error { return errors.New("disk gone") }

func TestEnsurePartnerUserIDStable(t *testing.T) {
	st := storage.NewMemoryStore()
	c := New(WithStore(st))

	first, err := c.EnsurePartnerUserID()
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err, "generated id must be a uuid")

	second, err := c.EnsurePartnerUserID()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A fresh coordinator over the same store reads the persisted id back
	// instead of minting a new one.
	c2 := New(WithStore(st))
	assert.Empty(t, c2.PartnerUserID())
	recovered, err := c2.EnsurePartnerUserID()
	require.NoError(t, err)
	assert.Equal(t, first, recovered)
}

func TestEnsurePartnerUserIDPinned(t *testing.T) {
	c := New(WithPartnerUserID("partner-7"), WithStore(failingStore{}))
	id, err := c.EnsurePartnerUserID()
	require.NoError(t, err, "a pinned id must not touch the store")
	assert.Equal(t, "partner-7", id)
}

func TestEnsurePartnerUserIDStorageFailure(t *testing.T) {
	c := New(WithStore(failingStore{}))
	_, err := c.EnsurePartnerUserID()
	var rampErr *RampError
	require.ErrorAs(t, err, &rampErr)
	assert.Equal(t, ErrCodeStorageFailed, rampErr.Code)
}
