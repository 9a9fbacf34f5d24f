// Package directory serves the directory settings of an organization.
package directory

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/config"
	"github.com/helios-portal/helios-dirsync/internal/db/controller/credentials"
	"github.com/helios-portal/helios-dirsync/internal/web/handler"
)

const (
	// Path is the directory settings route below the api group.
	Path = handler.OrganizationPath + "/directory"
)

// Service is the directory settings handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	db  *gorm.DB
}

// Handler is the directory settings handler.
var Handler = Service{}

// Init registers the routes on router.
func (s *Service) Init(router fiber.Router, cfg *config.Config, db *gorm.DB) {
	if router == nil || cfg == nil || db == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db

	router.Get(Path, s.Get)
	router.Put(Path, s.Put)
	router.Delete(Path, s.Delete)
}

// Get returns the settings with secrets redacted.
func (s *Service) Get(c fiber.Ctx) error {
	settings, err := credentials.Load(s.db.WithContext(c.Context()), c.Params(handler.OrganizationParam))
	if err != nil {
		return settingsError(err)
	}

	return c.JSON(redacted(settings))
}

// Put validates and stores the settings of the body.
func (s *Service) Put(c fiber.Ctx) error {
	org := c.Params(handler.OrganizationParam)

	settings := &credentials.Settings{}
	if err := c.Bind().JSON(settings); err != nil {
		log.Debug().Err(err).Str("organization_id", org).Msg("failed to parse directory settings")

		return fiber.NewError(fiber.StatusBadRequest, "invalid json body")
	}

	if err := credentials.Save(s.db.WithContext(c.Context()), org, settings); err != nil {
		if verrs := handler.ValidationErrors(err); verrs != nil {
			return c.Status(fiber.StatusBadRequest).JSON(handler.GlobalErrorHandlerResp{
				Message: "invalid directory settings",
				Errors:  verrs,
			})
		}

		return settingsError(err)
	}

	log.Info().Str("organization_id", org).Str("provider", string(settings.Credentials.Provider)).Msg("directory settings saved")

	return c.JSON(redacted(settings))
}

// Delete removes the settings.
func (s *Service) Delete(c fiber.Ctx) error {
	org := c.Params(handler.OrganizationParam)

	if err := credentials.Delete(s.db.WithContext(c.Context()), org); err != nil {
		return settingsError(err)
	}

	log.Info().Str("organization_id", org).Msg("directory settings deleted")

	return c.SendStatus(fiber.StatusNoContent)
}

func redacted(s *credentials.Settings) credentials.Settings {
	out := *s
	out.Credentials = s.Credentials.Redacted()

	return out
}

func settingsError(err error) error {
	switch {
	case errors.Is(err, credentials.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, credentials.ErrOrganizationEmpty), errors.Is(err, credentials.ErrInvalidOrganization),
		errors.Is(err, credentials.ErrRedactedSecret):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return err
}
