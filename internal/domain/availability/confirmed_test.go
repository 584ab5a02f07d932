package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfirmedKeys_MarkAndContains(t *testing.T) {
	c := NewConfirmedKeys()

	c.MarkConfirmed("k1")
	assert.True(t, c.Contains("k1"))
	assert.False(t, c.Contains("k2"))

	c.MarkConfirmed("")
	assert.False(t, c.Contains(""), "empty keys are never tracked")
	assert.Equal(t, 1, c.Len())
}

func TestConfirmedKeys_EvictionIsRefreshBased(t *testing.T) {
	c := NewConfirmedKeys()
	c.MarkConfirmed("k1")

	// A refresh that started before the confirmation does not carry the
	// key's effect yet.
	evicted := c.EvictRefreshedBefore(time.Now().Add(-time.Second), nil)
	assert.Equal(t, 0, evicted)
	assert.True(t, c.Contains("k1"))

	// A refresh started after confirmation releases the key.
	evicted = c.EvictRefreshedBefore(time.Now().Add(time.Millisecond), nil)
	assert.Equal(t, 1, evicted)
	assert.False(t, c.Contains("k1"))
}

func TestConfirmedKeys_EvictionSparesVisibleKeys(t *testing.T) {
	c := NewConfirmedKeys()
	c.MarkConfirmed("k1")
	c.MarkConfirmed("k2")

	evicted := c.EvictRefreshedBefore(
		time.Now().Add(time.Millisecond),
		map[string]struct{}{"k1": {}},
	)

	assert.Equal(t, 1, evicted)
	assert.True(t, c.Contains("k1"), "key still visible in a pending source must keep guarding")
	assert.False(t, c.Contains("k2"))
}

func TestConfirmedKeys_SnapshotIsCopy(t *testing.T) {
	c := NewConfirmedKeys()
	c.MarkConfirmed("k1")

	snap := c.Snapshot()
	delete(snap, "k1")
	assert.True(t, c.Contains("k1"))
}
