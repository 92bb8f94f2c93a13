package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/l1jgo/ecsworld/internal/core/ecs"
)

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

var componentColumns = []string{"snapshot_id", "entity", "type_name", "slot", "active", "data"}

// Save writes the snapshot header and all of its rows in one transaction.
func (r *SnapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO world_snapshots (id, world_id, frame, entities, components, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.ID, snap.WorldID, int64(snap.Frame), snap.Entities, len(snap.Components), snap.CreatedAt,
	); err != nil {
		return fmt.Errorf("snapshot insert: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"snapshot_components"}, componentColumns,
		pgx.CopyFromSlice(len(snap.Components), func(i int) ([]any, error) {
			c := snap.Components[i]
			return []any{snap.ID, int64(c.Entity), c.TypeName, c.Slot, c.Active, c.Data}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("snapshot copy components: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("snapshot commit: %w", err)
	}
	r.db.log.Debug("snapshot saved",
		zap.Stringer("snapshot", snap.ID),
		zap.Uint64("frame", snap.Frame),
		zap.Int64("components", n),
	)
	return nil
}

// Latest returns the newest snapshot header of worldID without its rows, or
// nil if the world was never saved.
func (r *SnapshotRepo) Latest(ctx context.Context, worldID uuid.UUID) (*Snapshot, error) {
	var (
		s     Snapshot
		frame int64
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, world_id, frame, entities, created_at
		 FROM world_snapshots
		 WHERE world_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`, worldID,
	).Scan(&s.ID, &s.WorldID, &frame, &s.Entities, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest snapshot: %w", err)
	}
	s.Frame = uint64(frame)
	return &s, nil
}

// Load returns the rows of a snapshot ordered by type name and slot.
func (r *SnapshotRepo) Load(ctx context.Context, snapshotID uuid.UUID) ([]ComponentRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity, type_name, slot, active, data
		 FROM snapshot_components
		 WHERE snapshot_id = $1
		 ORDER BY type_name, slot`, snapshotID,
	)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	defer rows.Close()

	var result []ComponentRow
	for rows.Next() {
		var (
			c      ComponentRow
			entity int64
		)
		if err := rows.Scan(&entity, &c.TypeName, &c.Slot, &c.Active, &c.Data); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		c.Entity = ecs.Entity(entity)
		result = append(result, c)
	}
	return result, rows.Err()
}

// Prune deletes all but the newest keep snapshots of worldID.
func (r *SnapshotRepo) Prune(ctx context.Context, worldID uuid.UUID, keep int) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM world_snapshots
		 WHERE world_id = $1 AND id NOT IN (
		     SELECT id FROM world_snapshots
		     WHERE world_id = $1
		     ORDER BY created_at DESC
		     LIMIT $2)`, worldID, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
