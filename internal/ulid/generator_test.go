package ulid

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidID(t *testing.T) {
	validULID := GenerateID()

	tests := []struct {
		id       string
		expected bool
	}{
		{validULID, true},
		{strings.ToLower(validULID), false},
		{"0", false},
		{"invalidulid", false},
		{"01B4E6BXY0PRJ5G420D25MWQY!", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidID(tt.id))
		})
	}
}

func TestGenerator(t *testing.T) {
	t.Run("uniqueness", func(t *testing.T) {
		var (
			mu  sync.Mutex
			wg  sync.WaitGroup
			ids = make(map[string]struct{})
		)
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := GenerateID()
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Len(t, ids, 100)
	})

	t.Run("clock", func(t *testing.T) {
		at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		g := Generator{Now: func() time.Time { return at }}

		first, second := g.New(), g.New()
		assert.Less(t, first, second, "ids are monotonic")

		created, err := Time(first)
		require.NoError(t, err)
		assert.True(t, at.Equal(created))
	})

	t.Run("invalid time", func(t *testing.T) {
		_, err := Time("nope")
		assert.Error(t, err)
	})
}
