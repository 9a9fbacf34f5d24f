package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helios-portal/helios-dirsync/internal/daemon"
	"github.com/helios-portal/helios-dirsync/internal/db/controller/credentials"
	"github.com/helios-portal/helios-dirsync/internal/directory"
)

// ErrServiceAccountFile is returned when the google key file can not be read.
var ErrServiceAccountFile = errors.New("can not read service account file")

func init() { //nolint: gochecknoinits
	for _, c := range []*cobra.Command{directorySetCmd, directoryShowCmd, directoryListCmd} {
		c.PreRunE = loadConfig
	}

	directorySetCmd.Flags().StringVar(&dirFlags.org, "org", "", "Organization id (required)")
	directoryShowCmd.Flags().StringVar(&dirFlags.org, "org", "", "Organization id (required)")
	_ = directorySetCmd.MarkFlagRequired("org")
	_ = directoryShowCmd.MarkFlagRequired("org")

	f := directorySetCmd.Flags()
	f.StringVar(&dirFlags.domain, "domain", "", "Primary domain of the directory")
	f.StringVar(&dirFlags.provider, "provider", "", "Directory provider: google or ldap (required)")
	f.BoolVar(&dirFlags.disabled, "disabled", false, "Exclude the organization from scheduled runs")
	f.StringVar(&dirFlags.adminSubject, "google-admin", "", "Workspace administrator impersonated by the service account")
	f.StringVar(&dirFlags.serviceAccount, "google-key-file", "", "Service account key file")
	f.StringVar(&dirFlags.customer, "google-customer", "", "Workspace customer id")
	f.StringVar(&dirFlags.ldap.URL, "ldap-url", "", "LDAP url, ldap:// or ldaps://")
	f.StringVar(&dirFlags.ldap.BindDN, "ldap-bind-dn", "", "LDAP bind dn")
	f.StringVar(&dirFlags.ldap.BindPassword, "ldap-bind-password", "", "LDAP bind password")
	f.StringVar(&dirFlags.ldap.BaseDN, "ldap-base-dn", "", "LDAP search base")
	f.StringVar(&dirFlags.ldap.UserFilter, "ldap-user-filter", "", "LDAP user filter")
	f.StringVar(&dirFlags.ldap.GroupFilter, "ldap-group-filter", "", "LDAP group filter")
	f.StringVar(&dirFlags.ldap.OrgUnitFilter, "ldap-orgunit-filter", "", "LDAP organizational unit filter")
	f.BoolVar(&dirFlags.ldap.StartTLS, "ldap-starttls", false, "Upgrade the LDAP connection with StartTLS")
	f.BoolVar(&dirFlags.ldap.SkipVerify, "ldap-skip-verify", false, "Skip TLS certificate verification")
	f.IntVar(&dirFlags.ldap.Timeout, "ldap-timeout", 0, "LDAP request timeout in seconds")
	_ = directorySetCmd.MarkFlagRequired("provider")

	directoryCmd.AddCommand(directorySetCmd, directoryShowCmd, directoryListCmd)
	rootCmd.AddCommand(directoryCmd)
}

type directoryFlags struct {
	org            string
	domain         string
	provider       string
	disabled       bool
	adminSubject   string
	serviceAccount string
	customer       string
	ldap           directory.LDAPCredentials
}

var (
	dirFlags directoryFlags

	directoryCmd = &cobra.Command{
		Use:   "directory",
		Short: "Manage the directory settings of organizations",
	}

	directorySetCmd = &cobra.Command{
		Use:   "set",
		Short: "Validate and store the directory settings of an organization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := dirFlags.settings()
			if err != nil {
				return err
			}

			db, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			if err = credentials.Save(db, dirFlags.org, settings); err != nil {
				return err
			}

			return printJSON(cmd, redactedSettings(*settings))
		},
	}

	directoryShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the directory settings of an organization with secrets redacted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			settings, err := credentials.Load(db, dirFlags.org)
			if err != nil {
				return err
			}

			return printJSON(cmd, redactedSettings(*settings))
		},
	}

	directoryListCmd = &cobra.Command{
		Use:   "list",
		Short: "List organizations with directory settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := daemon.OpenDB(&cfg)
			if err != nil {
				return err
			}

			entries, err := credentials.List(db)

			for i := range entries {
				entries[i].Settings = redactedSettings(entries[i].Settings)
			}

			if errPrint := printJSON(cmd, entries); errPrint != nil {
				return errPrint
			}

			return err
		},
	}
)

func (f *directoryFlags) settings() (*credentials.Settings, error) {
	s := &credentials.Settings{
		Domain:   f.domain,
		Disabled: f.disabled,
		Credentials: directory.Credentials{
			Provider: directory.Provider(f.provider),
		},
	}

	switch s.Credentials.Provider {
	case directory.ProviderGoogle:
		g := &directory.GoogleCredentials{
			AdminSubject: f.adminSubject,
			Customer:     f.customer,
		}

		if f.serviceAccount != "" {
			b, err := os.ReadFile(f.serviceAccount)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrServiceAccountFile, err)
			}

			g.ServiceAccountJSON = string(b)
		}

		s.Credentials.Google = g
	case directory.ProviderLDAP:
		l := f.ldap
		s.Credentials.LDAP = &l
	}

	return s, nil
}

func redactedSettings(s credentials.Settings) credentials.Settings {
	s.Credentials = s.Credentials.Redacted()

	return s
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
