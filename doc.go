// Package main provides the entry point of helios-dirsync.
// It mirrors users, groups and organizational units of an organization's external
// directory (Google Workspace or LDAP) into local tables, one transaction per run,
// and propagates upstream suspensions to the portal's identity records.
// The start command runs the scheduler together with a small fiber based api,
// the sync command performs a single run from the command line.
package main
