package directory_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-portal/helios-dirsync/internal/directory"
)

// pagesOf serves items in pages of size using the page index as cursor.
func pagesOf(items []string, size int) directory.PageFunc[string] {
	return func(_ context.Context, cursor string, _ int) (directory.Page[string], error) {
		start := 0
		if cursor != "" {
			start, _ = strconv.Atoi(cursor)
		}

		end := min(start+size, len(items))
		page := directory.Page[string]{Items: items[start:end]}

		if end < len(items) {
			page.NextCursor = strconv.Itoa(end)
		}

		return page, nil
	}
}

func TestDrain(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e", "f", "g"}

	tests := []struct {
		name      string
		size      int
		wantPages int
	}{
		{name: "single page", size: 10, wantPages: 1},
		{name: "exact pages", size: 7, wantPages: 1},
		{name: "three pages", size: 3, wantPages: 3},
		{name: "one per page", size: 1, wantPages: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string

			pages, err := directory.Drain(context.Background(), pagesOf(items, tt.size), directory.DrainOptions{},
				func(batch []string) error {
					got = append(got, batch...)
					return nil
				})

			require.NoError(t, err)
			assert.Equal(t, tt.wantPages, pages)
			assert.Equal(t, items, got)
		})
	}
}

func TestDrainEmpty(t *testing.T) {
	calls := 0

	pages, err := directory.Drain(context.Background(), pagesOf(nil, 5), directory.DrainOptions{},
		func(batch []string) error {
			calls++
			assert.Empty(t, batch)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.Equal(t, 1, calls)
}

func TestDrainPassesPageSize(t *testing.T) {
	var sizes []int

	fetch := func(_ context.Context, cursor string, pageSize int) (directory.Page[int], error) {
		sizes = append(sizes, pageSize)
		if cursor == "" {
			return directory.Page[int]{Items: []int{1}, NextCursor: "next"}, nil
		}

		return directory.Page[int]{Items: []int{2}}, nil
	}

	_, err := directory.Drain(context.Background(), fetch, directory.DrainOptions{PageSize: 42},
		func([]int) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, []int{42, 42}, sizes)
}

func TestDrainFetchError(t *testing.T) {
	boom := errors.New("rate limited") //nolint:goerr113

	fetch := func(_ context.Context, cursor string, _ int) (directory.Page[int], error) {
		if cursor == "2" {
			return directory.Page[int]{}, boom
		}

		return directory.Page[int]{Items: []int{1}, NextCursor: "2"}, nil
	}

	pages, err := directory.Drain(context.Background(), fetch, directory.DrainOptions{},
		func([]int) error { return nil })

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, pages)
}

func TestDrainVisitError(t *testing.T) {
	stop := errors.New("store failed") //nolint:goerr113

	_, err := directory.Drain(context.Background(), pagesOf([]string{"a", "b"}, 1), directory.DrainOptions{},
		func([]string) error { return stop })

	require.ErrorIs(t, err, stop)
}

func TestDrainCursorLoop(t *testing.T) {
	fetch := func(_ context.Context, _ string, _ int) (directory.Page[int], error) {
		return directory.Page[int]{Items: []int{1}, NextCursor: "same"}, nil
	}

	pages, err := directory.Drain(context.Background(), fetch, directory.DrainOptions{},
		func([]int) error { return nil })

	require.ErrorIs(t, err, directory.ErrCursorLoop)
	assert.Equal(t, 2, pages)
}

func TestDrainLimiterHonoursContext(t *testing.T) {
	limiter := directory.NewLimiter(0.001, 1)
	require.NotNil(t, limiter)
	require.True(t, limiter.Allow(), "consume the only token")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := directory.Drain(ctx, pagesOf([]string{"a"}, 1), directory.DrainOptions{Limiter: limiter},
		func([]string) error { return nil })
	require.Error(t, err)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, directory.NewLimiter(0, 5))
	assert.Nil(t, directory.NewLimiter(-1, 5))

	l := directory.NewLimiter(10, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
