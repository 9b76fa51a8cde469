package legacy

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of entries written per insert.
const DefaultBatchSize = 100

// BatchWriter stores converted entries.
type BatchWriter interface {
	AddBlocks(ctx context.Context, entries []*types.BlocklistEntry) error
}

// Result summarizes a migration run.
type Result struct {
	Migrated int
	Skipped  int // Blocks that had already expired
	Batches  int
	Duration time.Duration
}

// Migrator moves legacy blocks into the blocklist.
//
// A run is not atomic: batches written before a failure stay written and the
// legacy lists are only cleared after every batch succeeded. Existing entries
// are not checked for duplicates, so a rerun after a partial failure can
// insert some blocks twice.
type Migrator struct {
	writer    BatchWriter
	logger    *zap.Logger
	batchSize int
	now       func() time.Time
}

// NewMigrator creates a migrator writing to the given store.
func NewMigrator(writer BatchWriter, logger *zap.Logger) *Migrator {
	return &Migrator{
		writer:    writer,
		logger:    logger.Named("legacy_migrator"),
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
}

// Run converts every legacy block from the source, writes them in batches
// and clears the source. Users are processed before roles.
func (m *Migrator) Run(ctx context.Context, source Source) (*Result, error) {
	start := m.now()

	snapshot, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Preparing to migrate blocklist",
		zap.Int("entries", snapshot.Len()),
		zap.Int("users", len(snapshot.Users)),
		zap.Int("roles", len(snapshot.Roles)))

	run := &migrationRun{
		migrator: m,
		now:      start.UTC(),
		batch:    make([]*types.BlocklistEntry, 0, m.batchSize),
		result:   &Result{},
	}

	if err := run.process(ctx, snapshot.Users, enum.BlockTypeUser); err != nil {
		return nil, err
	}

	m.logger.Info("Processed blocked users")

	if err := run.process(ctx, snapshot.Roles, enum.BlockTypeRole); err != nil {
		return nil, err
	}

	m.logger.Info("Processed blocked roles")

	if err := run.flush(ctx); err != nil {
		return nil, err
	}

	if err := source.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear legacy blocklist: %w", err)
	}

	run.result.Duration = m.now().Sub(start)

	m.logger.Info("Blocklist migration complete",
		zap.Int("migrated", run.result.Migrated),
		zap.Int("skipped", run.result.Skipped),
		zap.Int("batches", run.result.Batches),
		zap.Duration("duration", run.result.Duration))

	return run.result, nil
}

// migrationRun holds the state of a single Run call.
type migrationRun struct {
	migrator *Migrator
	now      time.Time
	batch    []*types.BlocklistEntry
	result   *Result
}

// process converts one legacy list in ID order, flushing whenever the batch fills up.
func (r *migrationRun) process(ctx context.Context, list map[string]Value, blockType enum.BlockType) error {
	keys := make([]string, 0, len(list))
	for key := range list {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	for _, key := range keys {
		value := list[key]

		entry, err := convert(key, value, blockType, r.now)
		if err != nil {
			return err
		}

		if entry.IsExpired(r.now) {
			r.migrator.logger.Debug("Skipping expired block entry",
				zap.String("id", key),
				zap.String("kind", value.Kind.String()))

			r.result.Skipped++

			continue
		}

		r.batch = append(r.batch, entry)

		if len(r.batch) >= r.migrator.batchSize {
			if err := r.flush(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

// flush writes the accumulated batch. An empty batch is not written.
func (r *migrationRun) flush(ctx context.Context) error {
	if len(r.batch) == 0 {
		return nil
	}

	if err := r.migrator.writer.AddBlocks(ctx, r.batch); err != nil {
		return fmt.Errorf("failed to write migrated blocks: %w", err)
	}

	r.result.Migrated += len(r.batch)
	r.result.Batches++

	r.batch = make([]*types.BlocklistEntry, 0, r.migrator.batchSize)

	return nil
}
