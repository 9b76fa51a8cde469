// Package utils formats blocklist and audit data for Discord messages.
package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
)

// FormatTimestamp renders a Discord timestamp tag in the given style (e.g. "R" or "f").
func FormatTimestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

// FormatMention renders a mention for a blocked user or role.
func FormatMention(id uint64, blockType enum.BlockType) string {
	if blockType == enum.BlockTypeRole {
		return fmt.Sprintf("<@&%d>", id)
	}

	return fmt.Sprintf("<@%d>", id)
}

// FormatBlock describes a single blocklist entry on one line.
func FormatBlock(entry *types.BlocklistEntry) string {
	var b strings.Builder

	b.WriteString(FormatMention(entry.ID, entry.Type))
	fmt.Fprintf(&b, " (`%d`, %s)", entry.ID, entry.Type)

	if entry.ExpiresAt != nil {
		b.WriteString(" until " + FormatTimestamp(*entry.ExpiresAt, "f"))
	} else {
		b.WriteString(" indefinitely")
	}

	b.WriteString(": " + entry.ReasonOrDefault())

	return b.String()
}

// FormatBlockList renders entries one per line, cutting the list to fit within limit characters.
func FormatBlockList(entries []*types.BlocklistEntry, limit int) string {
	if len(entries) == 0 {
		return "No one is blocked."
	}

	var b strings.Builder

	for i, entry := range entries {
		line := FormatBlock(entry) + "\n"
		footer := fmt.Sprintf("…and %d more", len(entries)-i)

		if b.Len()+len(line)+len(footer) > limit {
			b.WriteString(footer)
			break
		}

		b.WriteString(line)
	}

	return strings.TrimRight(b.String(), "\n")
}

// FormatAuditEvent describes an audit event in a few lines.
func FormatAuditEvent(event *types.AuditEvent) string {
	return fmt.Sprintf(
		"**#%d** `%s` %s\nBy <@%d> (%s, %s via %s)\n%s",
		event.ID,
		event.Action,
		FormatTimestamp(event.Timestamp, "f"),
		event.Actor.UserID,
		event.Actor.Username,
		event.Actor.Role,
		event.Actor.Source,
		event.Description,
	)
}
