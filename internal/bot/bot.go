// Package bot connects the blocklist and audit log to Discord slash commands and direct messages.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/modmail-dev/modmail/internal/bot/constants"
	"github.com/modmail-dev/modmail/internal/database/types"
	"github.com/modmail-dev/modmail/internal/database/types/enum"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

// DefaultRequestTimeout bounds the work done for a single event.
const DefaultRequestTimeout = 10 * time.Second

// Bot handles Discord interactions for the moderation commands and screens direct messages.
type Bot struct {
	client   bot.Client
	guildID  snowflake.ID
	commands *Commands
	gate     *Gate
	timeout  time.Duration
	wg       conc.WaitGroup
	logger   *zap.Logger
}

// New configures the Discord client. The gateway is opened by Start.
func New(
	token string, guildID uint64, commands *Commands, gate *Gate, timeout time.Duration, logger *zap.Logger,
) (*Bot, error) {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	b := &Bot{
		guildID:  snowflake.ID(guildID),
		commands: commands,
		gate:     gate,
		timeout:  timeout,
		logger:   logger.Named("bot"),
	}

	client, err := disgo.New(token,
		bot.WithGatewayConfigOpts(
			gateway.WithIntents(
				gateway.IntentGuilds,
				gateway.IntentDirectMessages,
			),
		),
		bot.WithEventListeners(&events.ListenerAdapter{
			OnApplicationCommandInteraction: b.handleApplicationCommandInteraction,
			OnDMMessageCreate:               b.handleDirectMessage,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord client: %w", err)
	}

	b.client = client

	return b, nil
}

// Members exposes the REST member endpoints for guild role lookups.
func (b *Bot) Members() rest.Members {
	return b.client.Rest()
}

// Start registers the guild commands, opens the gateway and blocks until the context is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info("Registering commands", zap.Uint64("guild_id", uint64(b.guildID)))

	_, err := b.client.Rest().SetGuildCommands(b.client.ApplicationID(), b.guildID, commandDefinitions(), rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	b.logger.Info("Starting bot")

	if err := b.client.OpenGateway(ctx); err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}

	<-ctx.Done()
	b.Close()

	return nil
}

// Close shuts down the gateway and waits for in-flight handlers.
func (b *Bot) Close() {
	b.logger.Info("Closing bot")

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	b.client.Close(ctx)

	if recovered := b.wg.WaitAndRecover(); recovered != nil {
		b.logger.Error("Handler panicked", zap.String("panic", recovered.String()))
	}
}

func commandDefinitions() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        constants.BlockCommandName,
			Description: "Block a user or role from contacting staff",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionMentionable{
					Name:        constants.TargetOptionName,
					Description: "User or role to block",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        constants.DurationOptionName,
					Description: "How long to block for, e.g. 2d12h. Leave empty to block indefinitely",
				},
				discord.ApplicationCommandOptionString{
					Name:        constants.ReasonOptionName,
					Description: "Why the block was issued",
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.UnblockCommandName,
			Description: "Remove every block on a user or role",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        constants.IDOptionName,
					Description: "User or role ID",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        constants.BlockedCommandName,
			Description: "List active blocks",
		},
		discord.SlashCommandCreate{
			Name:        constants.AuditCommandName,
			Description: "Show an audit log event or the latest events",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        constants.IDOptionName,
					Description: "Audit event ID. Leave empty for the latest events",
				},
			},
		},
	}
}

// handleApplicationCommandInteraction defers the response and runs the command on its own goroutine.
func (b *Bot) handleApplicationCommandInteraction(event *events.ApplicationCommandInteractionCreate) {
	b.wg.Go(func() {
		if err := event.DeferCreateMessage(true); err != nil {
			b.logger.Error("Failed to defer create message", zap.Error(err))
			return
		}

		data := event.SlashCommandInteractionData()
		start := time.Now()

		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in application command interaction handler", zap.Any("panic", r))
				b.respond(event, "Internal error. Please report this to an administrator.")
			}

			b.logger.Debug("Application command interaction handled",
				zap.String("command", data.CommandName()),
				zap.Duration("duration", time.Since(start)))
		}()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		reply, err := b.dispatch(ctx, event, data)
		if err != nil {
			b.logger.Debug("Command failed",
				zap.String("command", data.CommandName()),
				zap.Error(err))

			reply = ReplyForError(err)
		}

		b.respond(event, reply)
	})
}

// dispatch runs the command named in the interaction.
func (b *Bot) dispatch(
	ctx context.Context, event *events.ApplicationCommandInteractionCreate, data discord.SlashCommandInteractionData,
) (string, error) {
	if event.Member() == nil {
		return "", fmt.Errorf("%w: use this command in the server", ErrInvalidInput)
	}

	actor := toMember(event.User(), &event.Member().Member)

	switch data.CommandName() {
	case constants.BlockCommandName:
		targetID, blockType, err := mentionTarget(data)
		if err != nil {
			return "", err
		}

		duration, _ := data.OptString(constants.DurationOptionName)
		reason, _ := data.OptString(constants.ReasonOptionName)

		return b.commands.Block(ctx, actor, targetID, blockType, duration, reason)

	case constants.UnblockCommandName:
		targetID, err := strconv.ParseUint(data.String(constants.IDOptionName), 10, 64)
		if err != nil {
			return "", fmt.Errorf("%w: id must be a number", ErrInvalidInput)
		}

		return b.commands.Unblock(ctx, actor, targetID)

	case constants.BlockedCommandName:
		return b.commands.Blocked(ctx, actor)

	case constants.AuditCommandName:
		id, _ := data.OptInt(constants.IDOptionName)
		return b.commands.Audit(ctx, actor, int64(id))
	}

	return "", fmt.Errorf("%w: unknown command %q", ErrInvalidInput, data.CommandName())
}

// respond replaces the deferred response with the reply without pinging anyone.
func (b *Bot) respond(event *events.ApplicationCommandInteractionCreate, content string) {
	_, err := event.Client().Rest().UpdateInteractionResponse(
		event.ApplicationID(),
		event.Token(),
		discord.NewMessageUpdateBuilder().
			SetContent(content).
			SetAllowedMentions(&discord.AllowedMentions{}).
			Build(),
	)
	if err != nil {
		b.logger.Error("Failed to update interaction response", zap.Error(err))
	}
}

// handleDirectMessage replies to blocked members. Messages from allowed members are left to the relay.
func (b *Bot) handleDirectMessage(event *events.DMMessageCreate) {
	if event.Message.Author.Bot {
		return
	}

	b.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("Panic in direct message handler", zap.Any("panic", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		author := event.Message.Author

		var guildMember *discord.Member
		if m, err := b.client.Rest().GetMember(b.guildID, author.ID, rest.WithCtx(ctx)); err == nil {
			guildMember = m
		} else {
			b.logger.Debug("Direct message author is not a guild member",
				zap.Uint64("user_id", uint64(author.ID)),
				zap.Error(err))
		}

		allowed, reply, err := b.gate.Check(ctx, toMember(author, guildMember))
		if err != nil {
			b.logger.Error("Failed to screen direct message", zap.Error(err))
			return
		}

		if allowed {
			return
		}

		_, err = b.client.Rest().CreateMessage(event.ChannelID, discord.NewMessageCreateBuilder().
			SetContent(reply).
			Build(), rest.WithCtx(ctx))
		if err != nil {
			b.logger.Error("Failed to send block notice", zap.Error(err))
		}
	})
}

// mentionTarget resolves the mentionable option to an id and block type.
func mentionTarget(data discord.SlashCommandInteractionData) (uint64, enum.BlockType, error) {
	if role, ok := data.OptRole(constants.TargetOptionName); ok {
		return uint64(role.ID), enum.BlockTypeRole, nil
	}

	if user, ok := data.OptUser(constants.TargetOptionName); ok {
		return uint64(user.ID), enum.BlockTypeUser, nil
	}

	return 0, 0, fmt.Errorf("%w: target must be a user or role", ErrInvalidInput)
}

// toMember converts a Discord user and optional guild member into the blocklist's member view.
func toMember(user discord.User, member *discord.Member) types.Member {
	m := types.Member{
		ID:        uint64(user.ID),
		Username:  user.Username,
		CreatedAt: user.ID.Time(),
	}

	if member == nil {
		return m
	}

	m.RoleIDs = make([]uint64, 0, len(member.RoleIDs))
	for _, id := range member.RoleIDs {
		m.RoleIDs = append(m.RoleIDs, uint64(id))
	}

	m.JoinedAt = joinTime(member.JoinedAt)

	return m
}

// joinTime returns nil for the zero time the API sends when the join date is unknown.
func joinTime(joined time.Time) *time.Time {
	if joined.IsZero() {
		return nil
	}

	return &joined
}
