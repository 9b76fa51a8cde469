// Package legacy converts blocklists stored in the bot config by older
// releases into blocklist entries.
package legacy

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
)

var (
	// ErrMalformedLegacyEntry is returned when a stored block cannot be understood.
	ErrMalformedLegacyEntry = errors.New("malformed legacy blocklist entry")
	// ErrUnknownValueKind is returned when a stored block is neither an object nor a string.
	ErrUnknownValueKind = errors.New("unknown legacy blocklist value kind")
)

// Kind identifies which historical encoding a stored block uses.
type Kind int

const (
	// KindText is the oldest encoding: a sentence such as "by name#1234 until <t:1700000000:f>.".
	KindText Kind = iota + 1
	// KindDict is the structured encoding with explicit fields.
	KindDict
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindDict:
		return "dict"
	default:
		return "unknown"
	}
}

// Value is one stored block, decoded from its raw JSON form.
type Value struct {
	Kind Kind
	Text string
	Dict *DictEntry
}

// DictEntry is the structured legacy encoding.
type DictEntry struct {
	BlockedBy SnowflakeString `json:"blocked_by"`
	Until     *string         `json:"until,omitempty"`
	Reason    *string         `json:"reason,omitempty"`
	BlockedAt string          `json:"blocked_at"`
}

// UnmarshalJSON decodes either encoding, choosing by the JSON value type.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrUnknownValueKind
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := sonic.Unmarshal(trimmed, &text); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedLegacyEntry, err)
		}

		*v = Value{Kind: KindText, Text: text}
	case '{':
		var dict DictEntry
		if err := sonic.Unmarshal(trimmed, &dict); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedLegacyEntry, err)
		}

		*v = Value{Kind: KindDict, Dict: &dict}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownValueKind, trimmed)
	}

	return nil
}

// SnowflakeString is a Discord ID stored either as a JSON string or a number.
type SnowflakeString uint64

// UnmarshalJSON accepts "123" and 123.
func (s *SnowflakeString) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid snowflake %q: %w", raw, err)
	}

	*s = SnowflakeString(id)

	return nil
}
