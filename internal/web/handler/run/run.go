// Package run triggers sync runs and serves their history.
package run

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/config"
	"github.com/helios-portal/helios-dirsync/internal/db/controller/credentials"
	"github.com/helios-portal/helios-dirsync/internal/db/controller/syncrun"
	"github.com/helios-portal/helios-dirsync/internal/lease"
	"github.com/helios-portal/helios-dirsync/internal/reconcile"
	"github.com/helios-portal/helios-dirsync/internal/web/handler"
)

const (
	// SyncPath triggers a run.
	SyncPath = handler.OrganizationPath + "/sync"

	// RunsPath lists recent runs.
	RunsPath = handler.OrganizationPath + "/runs"

	maxRunsLimit = 100
)

// Trigger runs one organization under its lease.
type Trigger interface {
	RunOrganization(ctx context.Context, organizationID string) (reconcile.SyncResult, error)
}

// Service is the sync run handler service.
type Service struct {
	cfg     *config.Config
	db      *gorm.DB
	trigger Trigger
}

// Handler is the sync run handler.
var Handler = Service{}

// Init registers the routes on router.
func (s *Service) Init(router fiber.Router, cfg *config.Config, db *gorm.DB, trigger Trigger) {
	if router == nil || cfg == nil || db == nil || trigger == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.db = db
	s.trigger = trigger

	router.Post(SyncPath, s.Sync)
	router.Get(RunsPath, s.Runs)
}

// Sync runs the organization and answers with the SyncResult: 200 when the run
// committed, 502 when it rolled back.
func (s *Service) Sync(c fiber.Ctx) error {
	org := c.Params(handler.OrganizationParam)

	res, err := s.trigger.RunOrganization(c.Context(), org)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, "no directory settings for organization")
		case errors.Is(err, lease.ErrHeld):
			return fiber.NewError(fiber.StatusConflict, "a sync of this organization is already running")
		case errors.Is(err, credentials.ErrOrganizationEmpty), errors.Is(err, credentials.ErrInvalidOrganization):
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return err
	}

	if !res.Success {
		return c.Status(fiber.StatusBadGateway).JSON(res)
	}

	return c.JSON(res)
}

// Runs lists the latest runs, newest first. The optional limit query parameter
// defaults to the configured run history.
func (s *Service) Runs(c fiber.Ctx) error {
	limit := s.cfg.Sync.RunHistory

	if q := c.Query("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}

		limit = min(n, maxRunsLimit)
	}

	runs, err := syncrun.Latest(s.db.WithContext(c.Context()), c.Params(handler.OrganizationParam), limit)
	if err != nil {
		if errors.Is(err, syncrun.ErrOrganizationEmpty) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		return err
	}

	return c.JSON(runs)
}
