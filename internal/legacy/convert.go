package legacy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
)

// textPattern matches "by <name#discriminator>" with an optional Discord timestamp and a trailing character.
var textPattern = regexp.MustCompile(`^by ([\p{L}\p{N}_]*#\d{1,4})(?: until <t:(\d*):f>)?.`)

// isoLayouts are the timestamp forms written by older releases. Values without an offset are UTC.
var isoLayouts = []string{ //nolint:gochecknoglobals // -
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// convert turns one stored block into an entry. Expired blocks are converted too;
// the caller decides whether to keep them.
func convert(key string, value Value, blockType enum.BlockType, now time.Time) (*types.BlocklistEntry, error) {
	id, err := strconv.ParseUint(key, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid id %q", ErrMalformedLegacyEntry, key)
	}

	switch value.Kind {
	case KindDict:
		return convertDict(id, value.Dict, blockType)
	case KindText:
		return convertText(id, value.Text, blockType, now)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownValueKind, value.Kind)
	}
}

// convertDict maps the structured encoding field by field.
func convertDict(id uint64, dict *DictEntry, blockType enum.BlockType) (*types.BlocklistEntry, error) {
	if dict == nil {
		return nil, fmt.Errorf("%w: empty entry for %d", ErrMalformedLegacyEntry, id)
	}

	blockedAt, err := parseISO(dict.BlockedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: blocked_at for %d: %w", ErrMalformedLegacyEntry, id, err)
	}

	entry := &types.BlocklistEntry{
		ID:             id,
		Reason:         dict.Reason,
		Timestamp:      blockedAt,
		BlockingUserID: uint64(dict.BlockedBy),
		Type:           blockType,
	}

	if dict.Until != nil {
		until, err := parseISO(*dict.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: until for %d: %w", ErrMalformedLegacyEntry, id, err)
		}

		entry.ExpiresAt = &until
	}

	return entry, nil
}

// convertText parses the sentence encoding. The blocker's name cannot be
// mapped back to an ID, so the entry records no blocking user.
func convertText(id uint64, text string, blockType enum.BlockType, now time.Time) (*types.BlocklistEntry, error) {
	match := textPattern.FindStringSubmatch(text)
	if match == nil {
		return nil, fmt.Errorf("%w: %d: %q", ErrMalformedLegacyEntry, id, text)
	}

	reason := fmt.Sprintf("migrated from old format `%s`", text)
	entry := &types.BlocklistEntry{
		ID:        id,
		Reason:    &reason,
		Timestamp: now.UTC(),
		Type:      blockType,
	}

	// Group 2 only participates when the "until" clause is present
	if strings.Contains(match[0], " until <t:") {
		epoch, err := strconv.ParseInt(match[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %d: invalid timestamp %q", ErrMalformedLegacyEntry, id, match[2])
		}

		until := time.Unix(epoch, 0).UTC()
		entry.ExpiresAt = &until
	}

	return entry, nil
}

// parseISO parses an ISO-8601 timestamp into UTC.
func parseISO(s string) (time.Time, error) {
	s = strings.TrimSpace(s)

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
