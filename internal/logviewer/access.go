package logviewer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// ErrInvalidWhitelistEntry is returned for whitelist values that are neither ids nor "everyone".
var ErrInvalidWhitelistEntry = errors.New("invalid whitelist entry")

// RoleFetcher returns the role ids a user holds in the configured guild.
type RoleFetcher interface {
	MemberRoles(ctx context.Context, userID uint64) ([]uint64, error)
}

// MemberRoleFetcher looks up guild member roles through the Discord REST API.
type MemberRoleFetcher struct {
	members rest.Members
	guildID snowflake.ID
}

// NewMemberRoleFetcher creates a role fetcher for one guild.
func NewMemberRoleFetcher(members rest.Members, guildID uint64) *MemberRoleFetcher {
	return &MemberRoleFetcher{
		members: members,
		guildID: snowflake.ID(guildID),
	}
}

// MemberRoles implements RoleFetcher.
func (f *MemberRoleFetcher) MemberRoles(ctx context.Context, userID uint64) ([]uint64, error) {
	member, err := f.members.GetMember(f.guildID, snowflake.ID(userID), rest.WithCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get guild member: %w", err)
	}

	roles := make([]uint64, 0, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		roles = append(roles, uint64(id))
	}

	return roles, nil
}

// Whitelist decides who may view logs once logged in.
type Whitelist struct {
	everyone bool
	ids      map[uint64]struct{}
}

// ParseWhitelist builds a whitelist from user ids, role ids and the keyword "everyone".
func ParseWhitelist(entries []string) (*Whitelist, error) {
	w := &Whitelist{ids: make(map[uint64]struct{}, len(entries))}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.EqualFold(entry, "everyone") {
			w.everyone = true
			continue
		}

		id, err := strconv.ParseUint(entry, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWhitelistEntry, entry)
		}

		w.ids[id] = struct{}{}
	}

	return w, nil
}

// AllowsEveryone reports whether any logged in user is allowed.
func (w *Whitelist) AllowsEveryone() bool {
	return w.everyone
}

// Allows reports whether the user or one of their roles is whitelisted.
func (w *Whitelist) Allows(userID uint64, roleIDs []uint64) bool {
	if w.everyone {
		return true
	}

	if _, ok := w.ids[userID]; ok {
		return true
	}

	for _, roleID := range roleIDs {
		if _, ok := w.ids[roleID]; ok {
			return true
		}
	}

	return false
}
