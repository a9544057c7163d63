package feedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anonto42/concordance/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(texts ...string) *FeedPage {
	p := &FeedPage{Number: 1, NumPages: 1, PerPage: 10, Total: int64(len(texts))}
	for _, t := range texts {
		p.Items = append(p.Items, models.Post{Text: t})
	}
	return p
}

func TestGetOrBuildServesCachedPageVerbatim(t *testing.T) {
	c := New(time.Minute)
	ctx := context.Background()
	builds := 0
	build := func(context.Context) (*FeedPage, error) {
		builds++
		if builds == 1 {
			return page("first"), nil
		}
		return page("second"), nil
	}

	got, err := c.GetOrBuild(ctx, "", build)
	require.NoError(t, err)
	again, err := c.GetOrBuild(ctx, "", build)
	require.NoError(t, err)

	assert.Equal(t, 1, builds)
	assert.Same(t, got, again)
	assert.Equal(t, "first", again.Items[0].Text)
}

func TestPagesAreKeyedByRawValue(t *testing.T) {
	c := New(time.Minute)
	c.Set("", page("index"))
	c.Set("2", page("two"))

	p, ok := c.Get("2")
	require.True(t, ok)
	assert.Equal(t, "two", p.Items[0].Text)

	_, ok = c.Get("3")
	assert.False(t, ok)
	assert.Equal(t, "index-page-2", Key("2"))
}

func TestFlushDropsEverything(t *testing.T) {
	c := New(time.Minute)
	c.Set("", page("a"))
	c.Set("2", page("b"))
	require.Equal(t, 2, c.Len())

	c.Flush()

	assert.Equal(t, 0, c.Len())
	_, ok := c.Get("")
	assert.False(t, ok)
}

func TestEntriesExpire(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Set("", page("short-lived"))

	assert.Eventually(t, func() bool {
		_, ok := c.Get("")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestBuildErrorIsNotCached(t *testing.T) {
	c := New(time.Minute)
	_, err := c.GetOrBuild(context.Background(), "", func(context.Context) (*FeedPage, error) {
		return nil, errors.New("db down")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
