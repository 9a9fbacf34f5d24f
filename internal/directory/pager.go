package directory

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// DrainOptions tunes a pagination walk.
type DrainOptions struct {
	// PageSize is the hint sent with every request.
	PageSize int
	// Limiter paces requests when set; Drain waits on it before each page.
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter allowing rps requests per second with the given burst,
// or nil when rps is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}

	if burst < 1 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Drain fetches pages sequentially until the cursor is exhausted and hands each
// page to visit. It stops at the first fetch or visit error. Pages are never
// fetched concurrently.
func Drain[T any](ctx context.Context, fetch PageFunc[T], opts DrainOptions, visit func([]T) error) (int, error) {
	var (
		cursor string
		pages  int
		seen   = make(map[string]struct{})
	)

	for {
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return pages, fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		page, err := fetch(ctx, cursor, opts.PageSize)
		if err != nil {
			return pages, fmt.Errorf("fetching page %d: %w", pages+1, err)
		}

		pages++

		if err = visit(page.Items); err != nil {
			return pages, err
		}

		if page.NextCursor == "" {
			return pages, nil
		}

		if _, dup := seen[page.NextCursor]; dup {
			return pages, fmt.Errorf("%w after page %d", ErrCursorLoop, pages)
		}

		seen[page.NextCursor] = struct{}{}
		cursor = page.NextCursor
	}
}
