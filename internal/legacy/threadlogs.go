package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/modmail-dev/modmail/internal/database/types"
	"go.uber.org/zap"
)

// ErrMalformedThreadLog is returned when an exported log document cannot be converted.
var ErrMalformedThreadLog = errors.New("malformed thread log")

// ThreadLogWriter stores imported transcripts.
type ThreadLogWriter interface {
	Insert(ctx context.Context, log *types.ThreadLog) error
}

// logDocument is a thread log as exported from older releases.
// Timestamps are kept as strings because those releases wrote them without an offset.
type logDocument struct {
	Key          string           `json:"key"`
	BotID        string           `json:"bot_id"`
	Open         bool             `json:"open"`
	CreatedAt    string           `json:"created_at"`
	ClosedAt     *string          `json:"closed_at"`
	ChannelID    string           `json:"channel_id"`
	GuildID      string           `json:"guild_id"`
	Title        *string          `json:"title"`
	Recipient    types.LogAuthor  `json:"recipient"`
	Creator      types.LogAuthor  `json:"creator"`
	Closer       *types.LogAuthor `json:"closer"`
	CloseMessage *string          `json:"close_message"`
	Messages     []messageDoc     `json:"messages"`
}

type messageDoc struct {
	ID          string                `json:"message_id"`
	Author      types.LogAuthor       `json:"author"`
	Content     string                `json:"content"`
	Type        string                `json:"type"`
	Timestamp   string                `json:"timestamp"`
	Attachments []types.LogAttachment `json:"attachments"`
	Edited      bool                  `json:"edited"`
}

// ImportThreadLogs reads a JSON array of exported thread logs and stores each one.
// Returns the number of logs imported. Import stops at the first malformed document.
func ImportThreadLogs(ctx context.Context, r io.Reader, writer ThreadLogWriter, logger *zap.Logger) (int, error) {
	var documents []json.RawMessage
	if err := sonic.ConfigDefault.NewDecoder(r).Decode(&documents); err != nil {
		return 0, fmt.Errorf("failed to decode thread log export: %w", err)
	}

	imported := 0

	for i, raw := range documents {
		var doc logDocument
		if err := sonic.Unmarshal(raw, &doc); err != nil {
			return imported, fmt.Errorf("%w: document %d: %w", ErrMalformedThreadLog, i, err)
		}

		log, err := doc.toThreadLog()
		if err != nil {
			return imported, err
		}

		if err := writer.Insert(ctx, log); err != nil {
			return imported, fmt.Errorf("failed to import thread log %s: %w", doc.Key, err)
		}

		imported++
	}

	logger.Info("Imported thread logs", zap.Int("count", imported))

	return imported, nil
}

func (d *logDocument) toThreadLog() (*types.ThreadLog, error) {
	if d.Key == "" {
		return nil, fmt.Errorf("%w: missing key", ErrMalformedThreadLog)
	}

	createdAt, err := parseISO(d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: created_at: %w", ErrMalformedThreadLog, d.Key, err)
	}

	log := &types.ThreadLog{
		Key:          d.Key,
		BotID:        d.BotID,
		Open:         d.Open,
		CreatedAt:    createdAt,
		ChannelID:    d.ChannelID,
		GuildID:      d.GuildID,
		Title:        deref(d.Title),
		Recipient:    d.Recipient,
		Creator:      d.Creator,
		CloseMessage: deref(d.CloseMessage),
		Messages:     make([]types.LogMessage, 0, len(d.Messages)),
	}

	if d.Closer != nil {
		log.Closer = *d.Closer
	}

	if d.ClosedAt != nil && *d.ClosedAt != "" {
		closedAt, err := parseISO(*d.ClosedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: closed_at: %w", ErrMalformedThreadLog, d.Key, err)
		}

		log.ClosedAt = &closedAt
	}

	for _, m := range d.Messages {
		var timestamp time.Time
		if m.Timestamp != "" {
			timestamp, err = parseISO(m.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: message %s: %w", ErrMalformedThreadLog, d.Key, m.ID, err)
			}
		}

		log.Messages = append(log.Messages, types.LogMessage{
			ID:          m.ID,
			Author:      m.Author,
			Content:     m.Content,
			Type:        m.Type,
			Timestamp:   timestamp,
			Attachments: m.Attachments,
			Edited:      m.Edited,
		})
	}

	return log, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
