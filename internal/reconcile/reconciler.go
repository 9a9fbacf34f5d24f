package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/helios-portal/helios-dirsync/internal/db/models"
	"github.com/helios-portal/helios-dirsync/internal/directory"
	"github.com/helios-portal/helios-dirsync/internal/store"
)

// Kind names an entity kind in logs, metrics and results.
type Kind string

const (
	// KindUser is the user mirror.
	KindUser Kind = "user"
	// KindGroup is the group mirror.
	KindGroup Kind = "group"
	// KindOrgUnit is the org unit mirror.
	KindOrgUnit Kind = "orgunit"
)

// Counts summarizes one reconciliation of one entity kind.
type Counts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
	// Total is the number of valid upstream records seen.
	Total int `json:"total"`
	// Skipped counts records dropped for failing validation or repeating an id.
	Skipped int `json:"skipped"`
}

// Entity adapts one entity kind to the generic Reconciler.
type Entity[R any, M models.Mirror] struct {
	Kind Kind
	// Key returns the external id of an upstream record.
	Key func(R) string
	// Validate rejects records that cannot be mirrored.
	Validate func(R) error
	// ToModel converts a valid record into its mirror row and returns the row's content hash,
	// which is also stored on the row.
	ToModel func(organizationID string, rec R, now time.Time) (M, string)
}

// Options tunes every reconciler of a run.
type Options struct {
	PageSize int
	Limiter  *rate.Limiter
	// MaxRemovalPercent refuses to remove more than this share of existing rows; 0 disables the check.
	MaxRemovalPercent float64
}

// Reconciler diffs one paginated upstream snapshot against one mirror table.
type Reconciler[R any, M models.Mirror] struct {
	entity Entity[R, M]
	opts   Options
	now    func() time.Time
	log    zerolog.Logger
}

// NewReconciler returns a Reconciler for entity.
func NewReconciler[R any, M models.Mirror](entity Entity[R, M], opts Options, log zerolog.Logger) *Reconciler[R, M] {
	return &Reconciler[R, M]{
		entity: entity,
		opts:   opts,
		now:    time.Now,
		log:    log.With().Str("kind", string(entity.Kind)).Logger(),
	}
}

// Reconcile drains fetch to exhaustion, writes new and changed rows, then removes
// the rows of organizationID that upstream no longer returned. Rows whose content
// hash is unchanged are not written. Any error leaves tx for the caller to roll back.
func (r *Reconciler[R, M]) Reconcile(
	ctx context.Context, tx *gorm.DB, organizationID string, fetch directory.PageFunc[R],
) (Counts, error) {
	var counts Counts

	mirror, err := store.NewMirror[M](tx)
	if err != nil {
		return counts, err
	}

	existing, err := mirror.Fingerprints(ctx, organizationID)
	if err != nil {
		return counts, err
	}

	log := r.log.With().Str("organization_id", organizationID).Logger()
	now := r.now().UTC()
	seen := make(map[string]struct{}, len(existing))
	// ids of records that failed validation; their rows are kept but not rewritten
	retained := make(map[string]struct{})

	pages, err := directory.Drain(ctx, fetch, directory.DrainOptions{PageSize: r.opts.PageSize, Limiter: r.opts.Limiter},
		func(items []R) error {
			batch := make([]M, 0, len(items))

			for _, rec := range items {
				key := r.entity.Key(rec)

				if errValidate := r.entity.Validate(rec); errValidate != nil {
					counts.Skipped++
					log.Warn().Err(errValidate).Str("external_id", key).Msg("skipping upstream record")

					if key != "" {
						retained[key] = struct{}{}
					}

					continue
				}

				if _, dup := seen[key]; dup {
					counts.Skipped++
					log.Warn().Str("external_id", key).Msg("skipping repeated upstream record")

					continue
				}

				seen[key] = struct{}{}
				counts.Total++

				row, hash := r.entity.ToModel(organizationID, rec, now)
				old, found := existing[key]

				switch {
				case !found:
					counts.Created++
				case old != hash:
					counts.Updated++
				default:
					continue
				}

				batch = append(batch, row)
			}

			return mirror.Upsert(ctx, batch)
		})
	if err != nil {
		return counts, err
	}

	stale := make([]string, 0)

	for key := range existing {
		_, ok := seen[key]
		_, kept := retained[key]

		if !ok && !kept {
			stale = append(stale, key)
		}
	}

	slices.Sort(stale)

	if err = r.checkRemovals(len(stale), len(existing)); err != nil {
		return counts, err
	}

	removed, err := mirror.Delete(ctx, organizationID, stale)
	if err != nil {
		return counts, err
	}

	counts.Removed = int(removed)

	if err = mirror.Touch(ctx, organizationID, now); err != nil {
		return counts, err
	}

	log.Debug().
		Int("pages", pages).
		Int("created", counts.Created).
		Int("updated", counts.Updated).
		Int("removed", counts.Removed).
		Int("total", counts.Total).
		Int("skipped", counts.Skipped).
		Msg("reconciled")

	return counts, nil
}

func (r *Reconciler[R, M]) checkRemovals(stale, existing int) error {
	if r.opts.MaxRemovalPercent <= 0 || existing == 0 || stale == 0 {
		return nil
	}

	share := float64(stale) * 100 / float64(existing)
	if share > r.opts.MaxRemovalPercent {
		return fmt.Errorf("%w: %s would lose %d of %d rows (%.1f%% > %.1f%%)",
			ErrRemovalThresholdExceeded, r.entity.Kind, stale, existing, share, r.opts.MaxRemovalPercent)
	}

	return nil
}

// contentHash fingerprints v, which must not carry bookkeeping fields that change
// on every run.
func contentHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(b)

	return hex.EncodeToString(sum[:])
}
