// AngelaMos | 2026
// entity_test.go

package order

import (
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderID(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	id := NewOrderID(now)
	require.True(t, strings.HasPrefix(id, "ORD-"))
	assert.Len(t, id, 30)

	parsed, err := ulid.Parse(strings.TrimPrefix(id, "ORD-"))
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), ulid.Time(parsed.Time()).UnixMilli())
}

func TestNewOrderIDSortsByTime(t *testing.T) {
	earlier := NewOrderID(time.Now().Add(-time.Minute))
	later := NewOrderID(time.Now())

	assert.Less(t, earlier, later)
}
