package directory

import (
	"context"
	"encoding/json"
	"io"
	"time"
)

// Provider names a directory implementation.
type Provider string

const (
	// ProviderGoogle selects the Google Workspace Admin SDK adapter.
	ProviderGoogle Provider = "google"
	// ProviderLDAP selects the LDAP / Active Directory adapter.
	ProviderLDAP Provider = "ldap"
)

// User is one directory user as delivered by an adapter.
type User struct {
	ExternalID       string
	PrimaryEmail     string
	GivenName        string
	FamilyName       string
	FullName         string
	IsAdmin          bool
	IsDelegatedAdmin bool
	Suspended        bool
	OrgUnitPath      string
	Department       string
	Title            string
	LastLoginAt      *time.Time
	CreatedAt        *time.Time
	Raw              json.RawMessage
}

// Group is one directory group.
type Group struct {
	ExternalID  string
	Email       string
	Name        string
	Description string
	// HasMembers reports whether the group has at least one direct member.
	HasMembers bool
	Raw        json.RawMessage
}

// OrgUnit is one organizational unit.
type OrgUnit struct {
	ExternalID       string
	Name             string
	Path             string
	ParentExternalID string
	Description      string
	Raw              json.RawMessage
}

// Page is one slice of a listing plus the cursor of the next one.
// An empty NextCursor marks the end of the stream.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// PageFunc fetches the page starting at cursor.
type PageFunc[T any] func(ctx context.Context, cursor string, pageSize int) (Page[T], error)

// Client is the paginated upstream directory.
type Client interface {
	ListUsers(ctx context.Context, cursor string, pageSize int) (Page[User], error)
	ListGroups(ctx context.Context, cursor string, pageSize int) (Page[Group], error)
	ListOrgUnits(ctx context.Context, cursor string, pageSize int) (Page[OrgUnit], error)
}

// Connector builds a Client for one run.
type Connector func(ctx context.Context, domain string, creds Credentials) (Client, error)

// Close releases the client when it holds resources.
func Close(c Client) error {
	if closer, ok := c.(io.Closer); ok {
		return closer.Close() //nolint:wrapcheck
	}

	return nil
}
