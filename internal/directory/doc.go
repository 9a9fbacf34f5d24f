// Package directory defines the contract of an upstream identity directory
// and ships the adapters that implement it.
//
// A Client lists users, groups and organizational units page by page. Each
// call takes an opaque cursor (empty on the first call) and a page-size hint
// and returns typed records plus the next cursor; an empty next cursor ends
// the stream. Drain walks a listing to exhaustion, one page at a time,
// optionally pacing requests with a rate limiter.
//
// Clients are built per run from Credentials through a Connector, so no
// directory handle outlives the run that created it:
//
//	client, err := directory.Connect(ctx, "example.com", creds)
//	if err != nil {
//	    return err
//	}
//	defer directory.Close(client)
//
// Two adapters are provided: GoogleClient talks to the Google Workspace Admin
// SDK with a delegated service account, LDAPClient enumerates an LDAP or
// Active Directory tree with RFC 2696 paged searches.
package directory
