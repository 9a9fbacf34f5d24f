// Package directorytest provides an in-memory directory.Client for tests.
package directorytest

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/helios-portal/helios-dirsync/internal/directory"
)

// ErrInjected is the default failure returned by a Fake when a kind is set to fail.
var ErrInjected = errors.New("injected directory failure")

// Kind names one listing of the fake.
type Kind string

const (
	// Users is the user listing.
	Users Kind = "users"
	// Groups is the group listing.
	Groups Kind = "groups"
	// OrgUnits is the org unit listing.
	OrgUnits Kind = "orgunits"
)

// Fake serves fixed snapshots page by page. Cursors are item offsets.
type Fake struct {
	mu sync.Mutex

	users    []directory.User
	groups   []directory.Group
	orgUnits []directory.OrgUnit

	// failAfter maps a kind to the number of pages served before it fails.
	failAfter map[Kind]int
	failErr   error
	calls     map[Kind]int
	closed    bool
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		failAfter: make(map[Kind]int),
		calls:     make(map[Kind]int),
		failErr:   ErrInjected,
	}
}

// SetUsers replaces the user snapshot.
func (f *Fake) SetUsers(users ...directory.User) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.users = append([]directory.User(nil), users...)

	return f
}

// SetGroups replaces the group snapshot.
func (f *Fake) SetGroups(groups ...directory.Group) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.groups = append([]directory.Group(nil), groups...)

	return f
}

// SetOrgUnits replaces the org unit snapshot.
func (f *Fake) SetOrgUnits(units ...directory.OrgUnit) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.orgUnits = append([]directory.OrgUnit(nil), units...)

	return f
}

// FailAfter makes listing kind fail once pages pages have been served.
// FailAfter(k, 0) fails the first request.
func (f *Fake) FailAfter(kind Kind, pages int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failAfter[kind] = pages

	return f
}

// FailWith sets the error returned by injected failures.
func (f *Fake) FailWith(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failErr = err

	return f
}

// Heal clears every injected failure.
func (f *Fake) Heal() *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failAfter = make(map[Kind]int)

	return f
}

// Calls reports how many requests kind has received.
func (f *Fake) Calls(kind Kind) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[kind]
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// Close implements io.Closer.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	return nil
}

// Connector returns a directory.Connector that always hands out f.
func (f *Fake) Connector() directory.Connector {
	return func(context.Context, string, directory.Credentials) (directory.Client, error) {
		return f, nil
	}
}

// ListUsers implements directory.Client.
func (f *Fake) ListUsers(ctx context.Context, cursor string, pageSize int) (directory.Page[directory.User], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return page(ctx, f, Users, f.users, cursor, pageSize)
}

// ListGroups implements directory.Client.
func (f *Fake) ListGroups(ctx context.Context, cursor string, pageSize int) (directory.Page[directory.Group], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return page(ctx, f, Groups, f.groups, cursor, pageSize)
}

// ListOrgUnits implements directory.Client.
func (f *Fake) ListOrgUnits(
	ctx context.Context, cursor string, pageSize int,
) (directory.Page[directory.OrgUnit], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return page(ctx, f, OrgUnits, f.orgUnits, cursor, pageSize)
}

// page must be called with f.mu held.
func page[T any](ctx context.Context, f *Fake, kind Kind, items []T, cursor string, size int) (directory.Page[T], error) {
	if err := ctx.Err(); err != nil {
		return directory.Page[T]{}, err
	}

	served := f.calls[kind]
	f.calls[kind]++

	if limit, ok := f.failAfter[kind]; ok && served >= limit {
		return directory.Page[T]{}, f.failErr
	}

	start := 0

	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 || n > len(items) {
			return directory.Page[T]{}, directory.ErrInvalidCursor
		}

		start = n
	}

	if size <= 0 {
		size = len(items)
	}

	end := min(start+size, len(items))
	out := directory.Page[T]{Items: append([]T(nil), items[start:end]...)}

	if end < len(items) {
		out.NextCursor = strconv.Itoa(end)
	}

	return out, nil
}
