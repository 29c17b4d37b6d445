package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShortLinkIsActiveAt(t *testing.T) {
	now := time.Date(2025, 7, 27, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Millisecond)
	future := now.Add(time.Hour)

	assert.True(t, (&ShortLink{}).IsActiveAt(now))
	assert.True(t, (&ShortLink{ExpiresAt: &now}).IsActiveAt(now))
	assert.True(t, (&ShortLink{ExpiresAt: &future}).IsActiveAt(now))
	assert.False(t, (&ShortLink{ExpiresAt: &past}).IsActiveAt(now))
}

func TestShortLinkIsOwnedBy(t *testing.T) {
	owner := int64(2)

	assert.True(t, (&ShortLink{OwnerID: &owner}).IsOwnedBy(2))
	assert.False(t, (&ShortLink{OwnerID: &owner}).IsOwnedBy(9))
	assert.False(t, (&ShortLink{}).IsOwnedBy(2))
}
