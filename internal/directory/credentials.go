package directory

import (
	"context"
	"fmt"
)

// Credentials is the capability needed to enumerate one organization's directory.
// The reconciliation code treats it as opaque and only hands it to a Connector.
type Credentials struct {
	Provider Provider           `json:"provider"         validate:"required,oneof=google ldap"`
	Google   *GoogleCredentials `json:"google,omitempty" validate:"required_if=Provider google,omitempty"`
	LDAP     *LDAPCredentials   `json:"ldap,omitempty"   validate:"required_if=Provider ldap,omitempty"`
}

// GoogleCredentials holds a service account with domain-wide delegation.
type GoogleCredentials struct {
	// AdminSubject is the Workspace administrator impersonated by the service account.
	AdminSubject string `json:"adminSubject" validate:"required,email"`
	// ServiceAccountJSON is the key file of the service account.
	ServiceAccountJSON string `json:"serviceAccountJson" validate:"required,json"`
	// Customer is the Workspace customer id, "my_customer" when empty.
	Customer string `json:"customer,omitempty"`
}

// LDAPCredentials holds the bind and search settings of an LDAP directory.
type LDAPCredentials struct {
	URL           string `json:"url"                     validate:"required,url"`
	BindDN        string `json:"bindDn"`
	BindPassword  string `json:"bindPassword"`
	BaseDN        string `json:"baseDn"                  validate:"required"`
	UserFilter    string `json:"userFilter,omitempty"`
	GroupFilter   string `json:"groupFilter,omitempty"`
	OrgUnitFilter string `json:"orgUnitFilter,omitempty"`
	StartTLS      bool   `json:"startTls,omitempty"`
	SkipVerify    bool   `json:"skipVerify,omitempty"`
	Timeout       int    `json:"timeout,omitempty"` // seconds
}

// Redacted returns a copy without secret material.
func (c Credentials) Redacted() Credentials {
	out := Credentials{Provider: c.Provider}

	if c.Google != nil {
		g := *c.Google
		if g.ServiceAccountJSON != "" {
			g.ServiceAccountJSON = redactedValue
		}

		out.Google = &g
	}

	if c.LDAP != nil {
		l := *c.LDAP
		if l.BindPassword != "" {
			l.BindPassword = redactedValue
		}

		out.LDAP = &l
	}

	return out
}

const redactedValue = "***"

// IsRedacted reports whether c still carries a redaction placeholder instead of a secret.
func (c Credentials) IsRedacted() bool {
	return (c.Google != nil && c.Google.ServiceAccountJSON == redactedValue) ||
		(c.LDAP != nil && c.LDAP.BindPassword == redactedValue)
}

// Unredact returns c with redaction placeholders replaced by the secrets of stored.
// Secrets are only taken over for the same provider.
func (c Credentials) Unredact(stored Credentials) Credentials {
	out := c

	if c.Google != nil && c.Google.ServiceAccountJSON == redactedValue && stored.Google != nil {
		g := *c.Google
		g.ServiceAccountJSON = stored.Google.ServiceAccountJSON
		out.Google = &g
	}

	if c.LDAP != nil && c.LDAP.BindPassword == redactedValue && stored.LDAP != nil {
		l := *c.LDAP
		l.BindPassword = stored.LDAP.BindPassword
		out.LDAP = &l
	}

	return out
}

// Connect is the default Connector; it picks the adapter from creds.Provider.
func Connect(ctx context.Context, domain string, creds Credentials) (Client, error) {
	switch creds.Provider {
	case ProviderGoogle:
		if creds.Google == nil {
			return nil, fmt.Errorf("%w: google", ErrMissingCredentials)
		}

		return NewGoogleClient(ctx, domain, *creds.Google)
	case ProviderLDAP:
		if creds.LDAP == nil {
			return nil, fmt.Errorf("%w: ldap", ErrMissingCredentials)
		}

		return NewLDAPClient(domain, *creds.LDAP)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, creds.Provider)
	}
}
