package credentials

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/controller/setting"
	"github.com/helios-portal/helios-dirsync/internal/db/models"
	"github.com/helios-portal/helios-dirsync/internal/directory"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Setting{}), "failed to migrate test database")

	return db
}

func googleSettings() *Settings {
	return &Settings{
		Domain: "acme.example",
		Credentials: directory.Credentials{
			Provider: directory.ProviderGoogle,
			Google: &directory.GoogleCredentials{
				AdminSubject:       "admin@acme.example",
				ServiceAccountJSON: `{"type":"service_account"}`,
			},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, "acme", googleSettings()))

	got, err := Load(db, "acme")
	require.NoError(t, err)
	assert.Equal(t, googleSettings(), got)

	updated := googleSettings()
	updated.Disabled = true
	require.NoError(t, Save(db, "acme", updated))

	got, err = Load(db, "acme")
	require.NoError(t, err)
	assert.True(t, got.Disabled)
}

func TestSaveValidation(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name    string
		org     string
		mutate  func(*Settings)
		wantErr error
	}{
		{name: "empty organization", org: "", mutate: func(*Settings) {}, wantErr: ErrOrganizationEmpty},
		{name: "slash in organization", org: "a/b", mutate: func(*Settings) {}, wantErr: ErrInvalidOrganization},
		{name: "bad domain", org: "acme", mutate: func(s *Settings) { s.Domain = "not a domain" }},
		{name: "unknown provider", org: "acme", mutate: func(s *Settings) { s.Credentials.Provider = "okta" }},
		{name: "missing google block", org: "acme", mutate: func(s *Settings) { s.Credentials.Google = nil }},
		{name: "bad service account", org: "acme", mutate: func(s *Settings) { s.Credentials.Google.ServiceAccountJSON = "{" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := googleSettings()
			tt.mutate(s)

			err := Save(db, tt.org, s)
			require.Error(t, err)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}

	_, err := Load(db, "acme")
	require.ErrorIs(t, err, ErrNotFound, "nothing invalid may be stored")
}

func TestList(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, "globex", googleSettings()))
	require.NoError(t, Save(db, "acme", googleSettings()))

	// unrelated and undecodable settings
	_, err := setting.Set(db, "site/title", []byte("x"))
	require.NoError(t, err)
	_, err = setting.Set(db, "directory/broken", []byte("{"))
	require.NoError(t, err)

	entries, err := List(db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory/broken")
	require.Len(t, entries, 2)
	assert.Equal(t, "acme", entries[0].OrganizationID)
	assert.Equal(t, "globex", entries[1].OrganizationID)
}

func TestDelete(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, "acme", googleSettings()))
	require.NoError(t, Delete(db, "acme"))
	require.ErrorIs(t, Delete(db, "acme"), ErrNotFound)

	_, err := Load(db, "acme")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveKeepsRedactedSecret(t *testing.T) {
	db := setupTestDB(t)

	require.NoError(t, Save(db, "acme", googleSettings()))

	echoed := googleSettings()
	echoed.Credentials = echoed.Credentials.Redacted()
	echoed.Domain = "corp.acme.example"
	require.NoError(t, Save(db, "acme", echoed))

	got, err := Load(db, "acme")
	require.NoError(t, err)
	assert.Equal(t, "corp.acme.example", got.Domain)
	assert.Equal(t, googleSettings().Credentials.Google.ServiceAccountJSON, got.Credentials.Google.ServiceAccountJSON)

	fresh := googleSettings()
	fresh.Credentials = fresh.Credentials.Redacted()
	require.ErrorIs(t, Save(db, "other", fresh), ErrRedactedSecret)
}
