package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/option"
)

const (
	defaultCustomer = "my_customer"
	// googleMaxPageSize is the largest page the Admin SDK accepts for users.
	googleMaxPageSize = 500
	// googleMaxGroupPageSize is the largest page the Admin SDK accepts for groups.
	googleMaxGroupPageSize = 200
)

// GoogleClient lists a Google Workspace directory through the Admin SDK.
type GoogleClient struct {
	svc      *admin.Service
	domain   string
	customer string
}

// NewGoogleClient builds a client impersonating creds.AdminSubject with read-only directory scopes.
func NewGoogleClient(ctx context.Context, domain string, creds GoogleCredentials) (*GoogleClient, error) {
	params := google.CredentialsParams{
		Scopes: []string{
			admin.AdminDirectoryUserReadonlyScope,
			admin.AdminDirectoryGroupReadonlyScope,
			admin.AdminDirectoryOrgunitReadonlyScope,
		},
		Subject: creds.AdminSubject,
	}

	cred, err := google.CredentialsFromJSONWithParams(ctx, []byte(creds.ServiceAccountJSON), params)
	if err != nil {
		return nil, fmt.Errorf("parsing service account: %w", err)
	}

	svc, err := admin.NewService(ctx, option.WithCredentials(cred))
	if err != nil {
		return nil, fmt.Errorf("creating directory service: %w", err)
	}

	return newGoogleClient(svc, domain, creds.Customer), nil
}

func newGoogleClient(svc *admin.Service, domain, customer string) *GoogleClient {
	if customer == "" {
		customer = defaultCustomer
	}

	return &GoogleClient{svc: svc, domain: domain, customer: customer}
}

// ListUsers implements Client.
func (c *GoogleClient) ListUsers(ctx context.Context, cursor string, pageSize int) (Page[User], error) {
	call := c.svc.Users.List().
		Customer(c.customer).
		MaxResults(int64(clampPageSize(pageSize, googleMaxPageSize))).
		Projection("full").
		OrderBy("email").
		Context(ctx)

	if c.domain != "" {
		call = call.Domain(c.domain)
	}

	if cursor != "" {
		call = call.PageToken(cursor)
	}

	res, err := call.Do()
	if err != nil {
		return Page[User]{}, fmt.Errorf("listing google users: %w", err)
	}

	page := Page[User]{Items: make([]User, 0, len(res.Users)), NextCursor: res.NextPageToken}

	for _, u := range res.Users {
		if u == nil {
			continue
		}

		page.Items = append(page.Items, googleUser(u))
	}

	return page, nil
}

// ListGroups implements Client.
func (c *GoogleClient) ListGroups(ctx context.Context, cursor string, pageSize int) (Page[Group], error) {
	call := c.svc.Groups.List().
		Customer(c.customer).
		MaxResults(int64(clampPageSize(pageSize, googleMaxGroupPageSize))).
		Context(ctx)

	if c.domain != "" {
		call = call.Domain(c.domain)
	}

	if cursor != "" {
		call = call.PageToken(cursor)
	}

	res, err := call.Do()
	if err != nil {
		return Page[Group]{}, fmt.Errorf("listing google groups: %w", err)
	}

	page := Page[Group]{Items: make([]Group, 0, len(res.Groups)), NextCursor: res.NextPageToken}

	for _, g := range res.Groups {
		if g == nil {
			continue
		}

		page.Items = append(page.Items, googleGroup(g))
	}

	return page, nil
}

// ListOrgUnits implements Client. The Admin SDK returns every unit in one response,
// so the result is always a single page.
func (c *GoogleClient) ListOrgUnits(ctx context.Context, _ string, _ int) (Page[OrgUnit], error) {
	res, err := c.svc.Orgunits.List(c.customer).Type("all").Context(ctx).Do()
	if err != nil {
		return Page[OrgUnit]{}, fmt.Errorf("listing google org units: %w", err)
	}

	page := Page[OrgUnit]{Items: make([]OrgUnit, 0, len(res.OrganizationUnits))}

	for _, ou := range res.OrganizationUnits {
		if ou == nil {
			continue
		}

		page.Items = append(page.Items, googleOrgUnit(ou))
	}

	return page, nil
}

func googleUser(u *admin.User) User {
	out := User{
		ExternalID:       u.Id,
		PrimaryEmail:     u.PrimaryEmail,
		IsAdmin:          u.IsAdmin,
		IsDelegatedAdmin: u.IsDelegatedAdmin,
		Suspended:        u.Suspended,
		OrgUnitPath:      u.OrgUnitPath,
		LastLoginAt:      parseGoogleTime(u.LastLoginTime),
		CreatedAt:        parseGoogleTime(u.CreationTime),
		Raw:              rawJSON(u),
	}

	if u.Name != nil {
		out.GivenName = u.Name.GivenName
		out.FamilyName = u.Name.FamilyName
		out.FullName = u.Name.FullName
	}

	if out.FullName == "" {
		out.FullName = strings.TrimSpace(out.GivenName + " " + out.FamilyName)
	}

	out.Department, out.Title = primaryOrganization(u.Organizations)

	return out
}

func googleGroup(g *admin.Group) Group {
	return Group{
		ExternalID:  g.Id,
		Email:       g.Email,
		Name:        g.Name,
		Description: g.Description,
		HasMembers:  g.DirectMembersCount > 0,
		Raw:         rawJSON(g),
	}
}

func googleOrgUnit(ou *admin.OrgUnit) OrgUnit {
	return OrgUnit{
		ExternalID:       ou.OrgUnitId,
		Name:             ou.Name,
		Path:             ou.OrgUnitPath,
		ParentExternalID: ou.ParentOrgUnitId,
		Description:      ou.Description,
		Raw:              rawJSON(ou),
	}
}

// primaryOrganization extracts department and title from the untyped organizations
// field, preferring the entry flagged primary.
func primaryOrganization(orgs any) (string, string) {
	if orgs == nil {
		return "", ""
	}

	b, err := json.Marshal(orgs)
	if err != nil {
		return "", ""
	}

	var list []struct {
		Department string `json:"department"`
		Title      string `json:"title"`
		Primary    bool   `json:"primary"`
	}

	if err = json.Unmarshal(b, &list); err != nil || len(list) == 0 {
		return "", ""
	}

	for _, o := range list {
		if o.Primary {
			return o.Department, o.Title
		}
	}

	return list[0].Department, list[0].Title
}

func parseGoogleTime(s string) *time.Time {
	if s == "" {
		return nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil || t.IsZero() || t.Unix() <= 0 {
		// never-logged-in users carry the epoch
		return nil
	}

	t = t.UTC()

	return &t
}

func clampPageSize(size, maximum int) int {
	if size <= 0 || size > maximum {
		return maximum
	}

	return size
}

func rawJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	return b
}
