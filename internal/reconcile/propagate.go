package reconcile

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/store"
)

// Propagation counts identity records changed by one propagation.
type Propagation struct {
	Suspended   int64 `json:"suspended"`
	Reactivated int64 `json:"reactivated"`
}

// Updated is the total number of identity records changed.
func (p Propagation) Updated() int64 {
	return p.Suspended + p.Reactivated
}

// Propagator pushes the suspended flag of mirrored users onto linked identity records.
type Propagator struct {
	log zerolog.Logger
}

// NewPropagator returns a Propagator logging to log.
func NewPropagator(log zerolog.Logger) *Propagator {
	return &Propagator{log: log}
}

// Propagate runs both status updates for organizationID in a nested transaction of db.
// On failure the nested transaction is rolled back and zero counts are returned with
// the error; an enclosing transaction stays usable.
func (p *Propagator) Propagate(ctx context.Context, db *gorm.DB, organizationID string) (Propagation, error) {
	var out Propagation

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids, err := store.NewIdentities(tx)
		if err != nil {
			return err
		}

		if out.Suspended, err = ids.SuspendWhereUpstreamSuspended(ctx, organizationID); err != nil {
			return err
		}

		out.Reactivated, err = ids.ReactivateWhereUpstreamActive(ctx, organizationID)

		return err
	})
	if err != nil {
		p.log.Warn().Err(err).Str("organization_id", organizationID).Msg("status propagation failed")

		return Propagation{}, err
	}

	if out.Updated() > 0 {
		p.log.Info().
			Str("organization_id", organizationID).
			Int64("suspended", out.Suspended).
			Int64("reactivated", out.Reactivated).
			Msg("propagated directory status")
	}

	return out, nil
}
