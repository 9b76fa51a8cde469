package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

// LogAuthor is a participant in a modmail thread.
type LogAuthor struct {
	ID            string `bun:"id" json:"id"`
	Name          string `bun:"name" json:"name"`
	Discriminator string `bun:"discriminator" json:"discriminator"`
	AvatarURL     string `bun:"avatar_url" json:"avatar_url"`
	Mod           bool   `bun:"mod" json:"mod"`
}

// DisplayName returns the name with its legacy discriminator when present.
func (a LogAuthor) DisplayName() string {
	if a.Discriminator == "" || a.Discriminator == "0" {
		return a.Name
	}

	return a.Name + "#" + a.Discriminator
}

// LogAttachment is a file attached to a thread message.
type LogAttachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	IsImage  bool   `json:"is_image"`
	Size     int    `json:"size"`
}

// LogMessage is one message in a thread transcript.
type LogMessage struct {
	ID          string          `json:"message_id"`
	Author      LogAuthor       `json:"author"`
	Content     string          `json:"content"`
	Type        string          `json:"type"`
	Timestamp   time.Time       `json:"timestamp"`
	Attachments []LogAttachment `json:"attachments"`
	Edited      bool            `json:"edited"`
}

// IsInternal reports whether the message was only visible to staff.
func (m LogMessage) IsInternal() bool {
	return m.Type == "internal" || m.Type == "note" || m.Type == "system"
}

// ThreadLog is the stored transcript of a modmail thread.
type ThreadLog struct {
	bun.BaseModel `bun:"table:thread_logs"`

	Key          string       `bun:"key,pk"`
	BotID        string       `bun:"bot_id,notnull"`
	Open         bool         `bun:"open,notnull"`
	CreatedAt    time.Time    `bun:"created_at,notnull"`
	ClosedAt     *time.Time   `bun:"closed_at,nullzero"`
	ChannelID    string       `bun:"channel_id"`
	GuildID      string       `bun:"guild_id"`
	Title        string       `bun:"title"`
	Recipient    LogAuthor    `bun:"embed:recipient_"`
	Creator      LogAuthor    `bun:"embed:creator_"`
	Closer       LogAuthor    `bun:"embed:closer_"`
	CloseMessage string       `bun:"close_message,type:text"`
	Messages     []LogMessage `bun:"messages"`
}

// LastMessage returns the most recent message, if any.
func (l *ThreadLog) LastMessage() (LogMessage, bool) {
	if len(l.Messages) == 0 {
		return LogMessage{}, false
	}

	return l.Messages[len(l.Messages)-1], true
}

// PlainText renders the transcript as plain text, skipping staff-only messages.
func (l *ThreadLog) PlainText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Thread with %s (%s)\n", l.Recipient.DisplayName(), l.Recipient.ID)
	fmt.Fprintf(&b, "Created at %s", l.CreatedAt.UTC().Format(time.DateTime))

	if l.ClosedAt != nil {
		fmt.Fprintf(&b, ", closed at %s by %s", l.ClosedAt.UTC().Format(time.DateTime), l.Closer.DisplayName())
	}

	b.WriteString("\n\n")

	for _, message := range l.Messages {
		if message.IsInternal() {
			continue
		}

		role := "user"
		if message.Author.Mod {
			role = "mod"
		}

		fmt.Fprintf(&b, "[%s] %s (%s): %s\n",
			message.Timestamp.UTC().Format(time.DateTime),
			message.Author.DisplayName(),
			role,
			message.Content,
		)

		for _, attachment := range message.Attachments {
			fmt.Fprintf(&b, "Attachment: %s\n", attachment.URL)
		}
	}

	return b.String()
}

// ThreadLogFilter narrows a thread log listing.
type ThreadLogFilter struct {
	BotID  string
	Open   *bool
	Search string
}
