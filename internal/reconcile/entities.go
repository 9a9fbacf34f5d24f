package reconcile

import (
	"strings"
	"time"

	"github.com/helios-portal/helios-dirsync/internal/db/models"
	"github.com/helios-portal/helios-dirsync/internal/directory"
)

// UserEntity mirrors directory users into synced_users.
func UserEntity() Entity[directory.User, models.SyncedUser] {
	return Entity[directory.User, models.SyncedUser]{
		Kind:     KindUser,
		Key:      func(u directory.User) string { return normalizeID(u.ExternalID) },
		Validate: validateUser,
		ToModel:  userModel,
	}
}

// GroupEntity mirrors directory groups into synced_groups.
func GroupEntity() Entity[directory.Group, models.SyncedGroup] {
	return Entity[directory.Group, models.SyncedGroup]{
		Kind:     KindGroup,
		Key:      func(g directory.Group) string { return normalizeID(g.ExternalID) },
		Validate: validateGroup,
		ToModel:  groupModel,
	}
}

// OrgUnitEntity mirrors directory organizational units into synced_org_units.
func OrgUnitEntity() Entity[directory.OrgUnit, models.SyncedOrgUnit] {
	return Entity[directory.OrgUnit, models.SyncedOrgUnit]{
		Kind:     KindOrgUnit,
		Key:      func(ou directory.OrgUnit) string { return normalizeID(ou.ExternalID) },
		Validate: validateOrgUnit,
		ToModel:  orgUnitModel,
	}
}

func validateUser(u directory.User) error {
	switch {
	case normalizeID(u.ExternalID) == "":
		return ErrMissingExternalID
	case normalizeEmail(u.PrimaryEmail) == "":
		return ErrMissingEmail
	}

	return nil
}

func validateGroup(g directory.Group) error {
	switch {
	case normalizeID(g.ExternalID) == "":
		return ErrMissingExternalID
	case normalizeEmail(g.Email) == "":
		return ErrMissingEmail
	}

	return nil
}

func validateOrgUnit(ou directory.OrgUnit) error {
	switch {
	case normalizeID(ou.ExternalID) == "":
		return ErrMissingExternalID
	case strings.TrimSpace(ou.Name) == "":
		return ErrMissingName
	}

	return nil
}

func userModel(organizationID string, u directory.User, now time.Time) (models.SyncedUser, string) {
	given := strings.TrimSpace(u.GivenName)
	family := strings.TrimSpace(u.FamilyName)

	full := strings.TrimSpace(u.FullName)
	if full == "" {
		full = strings.TrimSpace(given + " " + family)
	}

	row := models.SyncedUser{
		OrganizationID:    organizationID,
		ExternalID:        normalizeID(u.ExternalID),
		Email:             normalizeEmail(u.PrimaryEmail),
		GivenName:         given,
		FamilyName:        family,
		FullName:          full,
		IsAdmin:           u.IsAdmin,
		IsDelegatedAdmin:  u.IsDelegatedAdmin,
		Suspended:         u.Suspended,
		OrgUnitPath:       u.OrgUnitPath,
		Department:        u.Department,
		Title:             u.Title,
		LastLoginAt:       utc(u.LastLoginAt),
		CreatedUpstreamAt: utc(u.CreatedAt),
		Raw:               u.Raw,
	}

	row.ContentHash = contentHash(row)
	row.LastSyncedAt = now

	return row, row.ContentHash
}

func groupModel(organizationID string, g directory.Group, now time.Time) (models.SyncedGroup, string) {
	row := models.SyncedGroup{
		OrganizationID: organizationID,
		ExternalID:     normalizeID(g.ExternalID),
		Email:          normalizeEmail(g.Email),
		Name:           strings.TrimSpace(g.Name),
		Description:    g.Description,
		Raw:            g.Raw,
	}

	if g.HasMembers {
		row.MemberCount = 1
	}

	row.ContentHash = contentHash(row)
	row.LastSyncedAt = now

	return row, row.ContentHash
}

func orgUnitModel(organizationID string, ou directory.OrgUnit, now time.Time) (models.SyncedOrgUnit, string) {
	row := models.SyncedOrgUnit{
		OrganizationID: organizationID,
		ExternalID:     normalizeID(ou.ExternalID),
		Name:           strings.TrimSpace(ou.Name),
		OrgUnitPath:    ou.Path,
		Description:    ou.Description,
		Raw:            ou.Raw,
	}

	// the parent may be mirrored later in the same run, so it is kept as given
	if parent := normalizeID(ou.ParentExternalID); parent != "" {
		row.ParentExternalID = &parent
	}

	row.ContentHash = contentHash(row)
	row.LastSyncedAt = now

	return row, row.ContentHash
}

func normalizeID(id string) string {
	return strings.TrimSpace(id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func utc(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}

	u := t.UTC()

	return &u
}
