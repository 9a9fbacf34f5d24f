package directory

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
)

const (
	defaultLDAPTimeout       = 10
	defaultLDAPPageSize      = 200
	defaultLDAPUserFilter    = "(|(objectClass=inetOrgPerson)(objectClass=user))"
	defaultLDAPGroupFilter   = "(|(objectClass=groupOfNames)(objectClass=groupOfUniqueNames)(objectClass=group))"
	defaultLDAPOrgUnitFilter = "(objectClass=organizationalUnit)"

	// adAccountDisable is the ACCOUNTDISABLE flag of userAccountControl.
	adAccountDisable = 0x2
)

var (
	ldapUserAttributes = []string{
		"entryUUID", "objectGUID", "uid", "sAMAccountName", "mail", "givenName", "sn", "cn",
		"displayName", "nsAccountLock", "userAccountControl", "departmentNumber", "department",
		"title", "createTimestamp", "whenCreated",
	}
	ldapGroupAttributes   = []string{"entryUUID", "objectGUID", "cn", "mail", "description", "member", "uniqueMember"}
	ldapOrgUnitAttributes = []string{"ou", "description"}
)

// LDAPClient lists an LDAP or Active Directory tree using simple paged results.
// Paging cookies are bound to the connection, so one client serves exactly one run.
type LDAPClient struct {
	conn   *ldap.Conn
	creds  LDAPCredentials
	domain string
}

// NewLDAPClient dials creds.URL, upgrades with StartTLS when asked and binds.
func NewLDAPClient(domain string, creds LDAPCredentials) (*LDAPClient, error) {
	if creds.Timeout <= 0 {
		creds.Timeout = defaultLDAPTimeout
	}

	if creds.UserFilter == "" {
		creds.UserFilter = defaultLDAPUserFilter
	}

	if creds.GroupFilter == "" {
		creds.GroupFilter = defaultLDAPGroupFilter
	}

	if creds.OrgUnitFilter == "" {
		creds.OrgUnitFilter = defaultLDAPOrgUnitFilter
	}

	u, err := url.Parse(creds.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing ldap url: %w", err)
	}

	var tlsConfig *tls.Config
	if u.Scheme == "ldaps" || creds.StartTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: creds.SkipVerify, //nolint:gosec // operator choice
			ServerName:         u.Hostname(),
		}
	}

	timeout := time.Duration(creds.Timeout) * time.Second

	conn, err := ldap.DialURL(creds.URL,
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	c := &LDAPClient{conn: conn, creds: creds, domain: strings.ToLower(domain)}

	if u.Scheme != "ldaps" && creds.StartTLS {
		if err = conn.StartTLS(tlsConfig); err != nil {
			c.closeQuietly()

			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	conn.SetTimeout(timeout)

	if creds.BindDN != "" {
		if err = conn.Bind(creds.BindDN, creds.BindPassword); err != nil {
			c.closeQuietly()

			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	return c, nil
}

// Close ends the connection.
func (c *LDAPClient) Close() error {
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("closing ldap connection: %w", err)
	}

	return nil
}

func (c *LDAPClient) closeQuietly() {
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close LDAP connection")
	}
}

// ListUsers implements Client.
func (c *LDAPClient) ListUsers(ctx context.Context, cursor string, pageSize int) (Page[User], error) {
	entries, next, err := c.search(ctx, c.creds.UserFilter, ldapUserAttributes, cursor, pageSize)
	if err != nil {
		return Page[User]{}, fmt.Errorf("searching ldap users: %w", err)
	}

	page := Page[User]{Items: make([]User, 0, len(entries)), NextCursor: next}
	for _, e := range entries {
		page.Items = append(page.Items, ldapUser(e))
	}

	return page, nil
}

// ListGroups implements Client.
func (c *LDAPClient) ListGroups(ctx context.Context, cursor string, pageSize int) (Page[Group], error) {
	entries, next, err := c.search(ctx, c.creds.GroupFilter, ldapGroupAttributes, cursor, pageSize)
	if err != nil {
		return Page[Group]{}, fmt.Errorf("searching ldap groups: %w", err)
	}

	page := Page[Group]{Items: make([]Group, 0, len(entries)), NextCursor: next}
	for _, e := range entries {
		page.Items = append(page.Items, ldapGroup(e, c.domain))
	}

	return page, nil
}

// ListOrgUnits implements Client.
func (c *LDAPClient) ListOrgUnits(ctx context.Context, cursor string, pageSize int) (Page[OrgUnit], error) {
	entries, next, err := c.search(ctx, c.creds.OrgUnitFilter, ldapOrgUnitAttributes, cursor, pageSize)
	if err != nil {
		return Page[OrgUnit]{}, fmt.Errorf("searching ldap org units: %w", err)
	}

	page := Page[OrgUnit]{Items: make([]OrgUnit, 0, len(entries)), NextCursor: next}
	for _, e := range entries {
		page.Items = append(page.Items, ldapOrgUnit(e))
	}

	return page, nil
}

// search runs one paged search step and returns the entries plus the encoded cookie
// of the next step.
func (c *LDAPClient) search(
	ctx context.Context, filter string, attributes []string, cursor string, pageSize int,
) ([]*ldap.Entry, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err //nolint:wrapcheck
	}

	if pageSize <= 0 {
		pageSize = defaultLDAPPageSize
	}

	paging := ldap.NewControlPaging(uint32(pageSize)) //nolint:gosec // bounded by config validation

	if cursor != "" {
		cookie, err := base64.RawURLEncoding.DecodeString(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidCursor, err)
		}

		paging.SetCookie(cookie)
	}

	req := ldap.NewSearchRequest(
		c.creds.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		c.creds.Timeout,
		false,
		filter,
		attributes,
		[]ldap.Control{paging},
	)

	res, err := c.conn.Search(req)
	if err != nil {
		return nil, "", err //nolint:wrapcheck
	}

	return res.Entries, nextCursor(res.Controls), nil
}

func nextCursor(controls []ldap.Control) string {
	ctrl, ok := ldap.FindControl(controls, ldap.ControlTypePaging).(*ldap.ControlPaging)
	if !ok || len(ctrl.Cookie) == 0 {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(ctrl.Cookie)
}

func ldapUser(e *ldap.Entry) User {
	u := User{
		ExternalID:   entryID(e),
		PrimaryEmail: e.GetAttributeValue("mail"),
		GivenName:    e.GetAttributeValue("givenName"),
		FamilyName:   e.GetAttributeValue("sn"),
		FullName:     firstOf(e, "displayName", "cn"),
		Suspended:    ldapSuspended(e),
		OrgUnitPath:  dnPath(e.DN, true),
		Department:   firstOf(e, "department", "departmentNumber"),
		Title:        e.GetAttributeValue("title"),
		CreatedAt:    parseGeneralizedTime(firstOf(e, "createTimestamp", "whenCreated")),
		Raw:          entryJSON(e),
	}

	if u.FullName == "" {
		u.FullName = strings.TrimSpace(u.GivenName + " " + u.FamilyName)
	}

	return u
}

func ldapGroup(e *ldap.Entry, domain string) Group {
	g := Group{
		ExternalID:  entryID(e),
		Email:       e.GetAttributeValue("mail"),
		Name:        e.GetAttributeValue("cn"),
		Description: e.GetAttributeValue("description"),
		HasMembers:  len(e.GetAttributeValues("member"))+len(e.GetAttributeValues("uniqueMember")) > 0,
		Raw:         entryJSON(e),
	}

	// groups without a mail attribute get an address under the organization's domain
	if g.Email == "" && g.Name != "" && domain != "" {
		g.Email = strings.ReplaceAll(strings.ToLower(g.Name), " ", "-") + "@" + domain
	}

	return g
}

// ldapOrgUnit identifies units by their normalized DN so the parent reference can be
// derived without a second lookup.
func ldapOrgUnit(e *ldap.Entry) OrgUnit {
	ou := OrgUnit{
		ExternalID:  normalizeDN(e.DN),
		Name:        e.GetAttributeValue("ou"),
		Path:        dnPath(e.DN, false),
		Description: e.GetAttributeValue("description"),
		Raw:         entryJSON(e),
	}

	if parent, isOU := parentDN(e.DN); isOU {
		ou.ParentExternalID = parent
	}

	return ou
}

func entryID(e *ldap.Entry) string {
	if id := e.GetAttributeValue("entryUUID"); id != "" {
		return id
	}

	if guid := e.GetRawAttributeValue("objectGUID"); len(guid) > 0 {
		return hex.EncodeToString(guid)
	}

	return normalizeDN(e.DN)
}

func ldapSuspended(e *ldap.Entry) bool {
	if strings.EqualFold(e.GetAttributeValue("nsAccountLock"), "true") {
		return true
	}

	uac, err := strconv.ParseInt(e.GetAttributeValue("userAccountControl"), 10, 64)

	return err == nil && uac&adAccountDisable != 0
}

func firstOf(e *ldap.Entry, attributes ...string) string {
	for _, a := range attributes {
		if v := e.GetAttributeValue(a); v != "" {
			return v
		}
	}

	return ""
}

// dnPath turns the OU components of dn into a slash path, root first.
// With skipLeaf the first RDN (the entry itself) is ignored.
func dnPath(dn string, skipLeaf bool) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return "/"
	}

	rdns := parsed.RDNs
	if skipLeaf && len(rdns) > 0 {
		rdns = rdns[1:]
	}

	var parts []string

	for i := len(rdns) - 1; i >= 0; i-- {
		for _, attr := range rdns[i].Attributes {
			if strings.EqualFold(attr.Type, "ou") {
				parts = append(parts, attr.Value)
			}
		}
	}

	return "/" + strings.Join(parts, "/")
}

// parentDN returns the normalized DN of dn's parent and whether the parent is an OU.
func parentDN(dn string) (string, bool) {
	parsed, err := ldap.ParseDN(dn)
	if err != nil || len(parsed.RDNs) < 2 {
		return "", false
	}

	parent := parsed.RDNs[1:]

	return joinRDNs(parent), rdnIsOrgUnit(parent[0])
}

func rdnIsOrgUnit(rdn *ldap.RelativeDN) bool {
	for _, attr := range rdn.Attributes {
		if strings.EqualFold(attr.Type, "ou") {
			return true
		}
	}

	return false
}

func normalizeDN(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(dn))
	}

	return joinRDNs(parsed.RDNs)
}

func joinRDNs(rdns []*ldap.RelativeDN) string {
	parts := make([]string, 0, len(rdns))

	for _, rdn := range rdns {
		attrs := make([]string, 0, len(rdn.Attributes))
		for _, a := range rdn.Attributes {
			attrs = append(attrs, strings.ToLower(a.Type)+"="+strings.ToLower(a.Value))
		}

		parts = append(parts, strings.Join(attrs, "+"))
	}

	return strings.Join(parts, ",")
}

func parseGeneralizedTime(s string) *time.Time {
	if s == "" {
		return nil
	}

	for _, layout := range []string{"20060102150405Z0700", "20060102150405.0Z0700", "20060102150405Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()

			return &t
		}
	}

	return nil
}

func entryJSON(e *ldap.Entry) json.RawMessage {
	attrs := make(map[string][]string, len(e.Attributes)+1)
	attrs["dn"] = []string{e.DN}

	for _, a := range e.Attributes {
		if strings.EqualFold(a.Name, "objectGUID") {
			attrs[a.Name] = []string{hex.EncodeToString(e.GetRawAttributeValue(a.Name))}

			continue
		}

		attrs[a.Name] = a.Values
	}

	return rawJSON(attrs)
}
