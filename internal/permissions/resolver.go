// Package permissions maps Discord members to modmail permission levels.
package permissions

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/modmail-dev/modmail/internal/setup/config"
)

// grants lists the users and roles holding each level.
type grants struct {
	owners map[uint64]struct{}
	levels map[enum.PermissionLevel]map[uint64]struct{}
}

// Resolver determines permission levels from the configured grants.
// Members without a grant are regular users.
type Resolver struct {
	guildID uint64
	grants  atomic.Pointer[grants]
}

// NewResolver creates a resolver for the given guild.
// Granting a level to the guild ID grants it to every member.
func NewResolver(guildID uint64, cfg config.Permissions) (*Resolver, error) {
	r := &Resolver{guildID: guildID}
	if err := r.Update(cfg); err != nil {
		return nil, err
	}

	return r, nil
}

// Update replaces the grants.
func (r *Resolver) Update(cfg config.Permissions) error {
	g := &grants{
		owners: make(map[uint64]struct{}, len(cfg.Owners)),
		levels: make(map[enum.PermissionLevel]map[uint64]struct{}, len(cfg.Levels)),
	}

	for _, id := range cfg.Owners {
		g.owners[id] = struct{}{}
	}

	for name, ids := range cfg.Levels {
		level, err := enum.PermissionLevelString(name)
		if err != nil || level == enum.PermissionLevelInvalid {
			return fmt.Errorf("%w: %q", ErrUnknownLevel, name)
		}

		set := make(map[uint64]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}

		g.levels[level] = set
	}

	r.grants.Store(g)

	return nil
}

// Resolve returns the highest level granted to the member or any of their roles.
func (r *Resolver) Resolve(_ context.Context, member types.Member) enum.PermissionLevel {
	g := r.grants.Load()

	if _, ok := g.owners[member.ID]; ok {
		return enum.PermissionLevelOwner
	}

	for _, level := range enum.PermissionLevels {
		set, ok := g.levels[level]
		if !ok {
			continue
		}

		if _, ok := set[member.ID]; ok {
			return level
		}

		if _, ok := set[r.guildID]; ok && r.guildID != 0 {
			return level
		}

		if slices.ContainsFunc(member.RoleIDs, func(id uint64) bool {
			_, ok := set[id]
			return ok
		}) {
			return level
		}
	}

	return enum.PermissionLevelRegular
}

// HasLevel checks if the member holds at least the given level.
func (r *Resolver) HasLevel(ctx context.Context, member types.Member, level enum.PermissionLevel) bool {
	return r.Resolve(ctx, member) >= level
}
