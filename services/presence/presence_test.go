package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_AddRemove(t *testing.T) {
	t.Run("add is idempotent", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Add("Steve")
		tracker.Add("Steve")
		assert.Equal(t, 1, tracker.Count())
	})

	t.Run("remove deletes and never goes negative", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Add("Steve")
		tracker.Remove("Steve")
		assert.Equal(t, 0, tracker.Count())

		tracker.Remove("Steve")
		assert.Equal(t, 0, tracker.Count())
	})

	t.Run("empty names are ignored", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Add("")
		assert.Equal(t, 0, tracker.Count())
	})
}

func TestTracker_Rebuild(t *testing.T) {
	t.Run("replaces existing set", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Add("Old")
		tracker.Rebuild([]string{"Steve", "alex"})

		assert.Equal(t, 2, tracker.Count())
		assert.Equal(t, []string{"alex", "Steve"}, tracker.Sorted())
	})

	t.Run("clear empties the set", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Rebuild([]string{"a", "b"})
		tracker.Clear()
		assert.Equal(t, 0, tracker.Count())
	})
}

func TestTracker_Sorted(t *testing.T) {
	t.Run("sorts case-insensitively", func(t *testing.T) {
		tracker := NewTracker()
		tracker.Add("zeb")
		tracker.Add("Alice")
		tracker.Add("bob")

		assert.Equal(t, []string{"Alice", "bob", "zeb"}, tracker.Sorted())
	})
}
