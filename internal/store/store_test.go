package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobias/adscout/internal/types"
)

// A nil store is the "no persistence configured" mode; every method must be a
// no-op rather than a panic.
func TestNilStoreIsNoOp(t *testing.T) {
	var s *Store
	ctx := context.Background()

	page, err := s.GetPage(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Nil(t, page)

	assert.NoError(t, s.PutPage(ctx, &CachedPage{URL: "https://example.com"}))
	assert.NoError(t, s.SaveReport(ctx, uuid.New(), &types.DiscoveryReport{}))

	report, err := s.GetReport(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, report)

	s.Close()
}

func TestSetPageTTL(t *testing.T) {
	s := &Store{pageTTL: DefaultPageTTL}
	assert.Equal(t, 24*time.Hour, s.pageTTL)

	s.SetPageTTL(time.Hour)
	assert.Equal(t, time.Hour, s.pageTTL)

	// Non-positive values keep the previous TTL.
	s.SetPageTTL(0)
	assert.Equal(t, time.Hour, s.pageTTL)
}

func TestConnect_BadURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url")
	assert.Error(t, err)
}
