package directory

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLDAPUser(t *testing.T) {
	e := ldap.NewEntry("uid=alice,ou=Eng,ou=People,dc=example,dc=com", map[string][]string{
		"entryUUID":       {"7f1c"},
		"mail":            {"Alice@Example.com"},
		"givenName":       {"Alice"},
		"sn":              {"Doe"},
		"nsAccountLock":   {"TRUE"},
		"title":           {"Engineer"},
		"createTimestamp": {"20240501100000Z"},
	})

	u := ldapUser(e)
	assert.Equal(t, "7f1c", u.ExternalID)
	assert.Equal(t, "Alice@Example.com", u.PrimaryEmail)
	assert.Equal(t, "Alice Doe", u.FullName)
	assert.True(t, u.Suspended)
	assert.Equal(t, "/People/Eng", u.OrgUnitPath)
	assert.Equal(t, "Engineer", u.Title)
	require.NotNil(t, u.CreatedAt)
	assert.Equal(t, 2024, u.CreatedAt.Year())
	assert.Contains(t, string(u.Raw), `"dn":["uid=alice,ou=Eng,ou=People,dc=example,dc=com"]`)
}

func TestLDAPSuspended(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string][]string
		want  bool
	}{
		{name: "no flags", attrs: map[string][]string{}, want: false},
		{name: "ns lock", attrs: map[string][]string{"nsAccountLock": {"true"}}, want: true},
		{name: "ns unlocked", attrs: map[string][]string{"nsAccountLock": {"false"}}, want: false},
		{name: "ad disabled", attrs: map[string][]string{"userAccountControl": {"514"}}, want: true},
		{name: "ad enabled", attrs: map[string][]string{"userAccountControl": {"512"}}, want: false},
		{name: "ad garbage", attrs: map[string][]string{"userAccountControl": {"x"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ldapSuspended(ldap.NewEntry("cn=x,dc=example,dc=com", tt.attrs)))
		})
	}
}

func TestLDAPEntryIDFallsBack(t *testing.T) {
	guid := ldap.NewEntry("CN=Bob,DC=Example,DC=com", map[string][]string{"objectGUID": {"\x01\x02"}})
	assert.Equal(t, "0102", entryID(guid))

	bare := ldap.NewEntry("CN=Bob,DC=Example,DC=com", nil)
	assert.Equal(t, "cn=bob,dc=example,dc=com", entryID(bare))
}

func TestLDAPGroup(t *testing.T) {
	withMembers := ldap.NewEntry("cn=Platform Team,ou=Groups,dc=example,dc=com", map[string][]string{
		"entryUUID": {"g-1"},
		"cn":        {"Platform Team"},
		"member":    {"uid=alice,dc=example,dc=com"},
	})

	g := ldapGroup(withMembers, "example.com")
	assert.Equal(t, "g-1", g.ExternalID)
	assert.Equal(t, "platform-team@example.com", g.Email)
	assert.True(t, g.HasMembers)

	empty := ldap.NewEntry("cn=empty,ou=Groups,dc=example,dc=com", map[string][]string{
		"cn":   {"empty"},
		"mail": {"empty@lists.example.com"},
	})

	g = ldapGroup(empty, "example.com")
	assert.Equal(t, "empty@lists.example.com", g.Email)
	assert.False(t, g.HasMembers)
}

func TestLDAPOrgUnit(t *testing.T) {
	child := ldapOrgUnit(ldap.NewEntry("ou=Eng,ou=People,dc=example,dc=com", map[string][]string{"ou": {"Eng"}}))
	assert.Equal(t, "ou=eng,ou=people,dc=example,dc=com", child.ExternalID)
	assert.Equal(t, "Eng", child.Name)
	assert.Equal(t, "/People/Eng", child.Path)
	assert.Equal(t, "ou=people,dc=example,dc=com", child.ParentExternalID)

	top := ldapOrgUnit(ldap.NewEntry("ou=People,dc=example,dc=com", map[string][]string{"ou": {"People"}}))
	assert.Equal(t, "/People", top.Path)
	assert.Empty(t, top.ParentExternalID)
}

func TestNextCursor(t *testing.T) {
	assert.Empty(t, nextCursor(nil))

	done := ldap.NewControlPaging(10)
	assert.Empty(t, nextCursor([]ldap.Control{done}))

	more := ldap.NewControlPaging(10)
	more.SetCookie([]byte{0xff, 0x00, 0x10})
	assert.Equal(t, "_wAQ", nextCursor([]ldap.Control{more}))
}

func TestParseGeneralizedTime(t *testing.T) {
	assert.Nil(t, parseGeneralizedTime(""))
	assert.Nil(t, parseGeneralizedTime("yesterday"))

	ts := parseGeneralizedTime("20230102030405.0Z")
	require.NotNil(t, ts)
	assert.Equal(t, 3, ts.Hour())
}

func TestNewLDAPClientBadURL(t *testing.T) {
	_, err := NewLDAPClient("example.com", LDAPCredentials{URL: "ldap://127.0.0.1:1", BaseDN: "dc=example", Timeout: 1})
	require.Error(t, err)
}
