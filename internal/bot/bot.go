package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"guildwarden/internal/config"
	"guildwarden/internal/engine"
	"guildwarden/internal/modcache"
	"guildwarden/internal/raffle"
	"guildwarden/internal/spam"
	"guildwarden/internal/storage"
	"guildwarden/internal/xp"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg     config.Config
	logger  *zap.Logger
	store   *storage.Store
	cache   *modcache.Cache
	engine  *engine.Engine
	xp      *xp.Service
	drawer  *raffle.Drawer
	session *discordgo.Session
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, cache *modcache.Cache) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildVoiceStates

	b := &Bot{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		cache:   cache,
		xp:      xp.NewService(store, rand.NewSource(time.Now().UnixNano())),
		drawer:  raffle.NewDrawer(rand.NewSource(time.Now().UnixNano())),
		session: session,
	}
	b.engine = engine.New(store, cache, spam.NewTracker(), b, logger)

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onVoiceStateUpdate)
	b.session.AddHandler(b.onReactionAdd)
	b.session.AddHandler(b.onReactionRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	// The activity counter ticks for every human guild message, blocked
	// or not.
	b.countEvent(ctx, msg.GuildID, storage.EventMessageTotal)

	var roleIDs []string
	if msg.Member != nil {
		roleIDs = msg.Member.Roles
	}

	result := b.engine.Evaluate(ctx, engine.Message{
		GuildID:       msg.GuildID,
		ChannelID:     msg.ChannelID,
		MessageID:     msg.ID,
		AuthorID:      msg.Author.ID,
		AuthorBot:     msg.Author.Bot,
		AuthorRoleIDs: roleIDs,
		Content:       msg.Content,
		Timestamp:     messageTime(msg),
	})

	b.applyEffects(ctx, msg, result)

	if result.Verdict == engine.VerdictAllow || result.Verdict == engine.VerdictWarn {
		b.awardXP(ctx, msg)
	}
}

// applyEffects executes the engine's side-effect requests one by one.
// Each is best effort; a failed delete still lets the timeout, log and
// counter go through.
func (b *Bot) applyEffects(ctx context.Context, msg *discordgo.MessageCreate, result engine.Result) {
	effects := result.Effects

	if effects.CounterKey != "" {
		b.countEvent(ctx, msg.GuildID, effects.CounterKey)
	}

	if effects.DeleteMessage {
		if err := b.session.ChannelMessageDelete(msg.ChannelID, msg.ID); err != nil {
			b.logger.Warn("message delete failed",
				zap.String("guild_id", msg.GuildID),
				zap.String("message_id", msg.ID),
				zap.Error(err))
		}
	}

	if effects.TimeoutMinutes > 0 {
		until := time.Now().Add(time.Duration(effects.TimeoutMinutes) * time.Minute)
		if err := b.session.GuildMemberTimeout(msg.GuildID, msg.Author.ID, &until); err != nil {
			b.logger.Warn("member timeout failed",
				zap.String("guild_id", msg.GuildID),
				zap.String("user_id", msg.Author.ID),
				zap.Error(err))
		}
	}

	if effects.ReplyText != "" {
		reply := &discordgo.MessageSend{
			Content:   effects.ReplyText,
			Reference: msg.Reference(),
		}
		if _, err := b.session.ChannelMessageSendComplex(msg.ChannelID, reply); err != nil {
			b.logger.Warn("warn reply failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
		}
	}

	if effects.NoticeText != "" {
		b.sendTransientNotice(msg.ChannelID, effects.NoticeText)
	}

	if effects.LogText != "" {
		b.sendSecurityLog(ctx, msg.GuildID, result.Verdict.String(), effects.LogText)
	}

	if effects.NotifyText != "" {
		b.notifyOwner(effects.NotifyText)
	}
}

// sendTransientNotice posts a short channel notice and removes it after
// the configured delay so blocked-message noise does not pile up.
func (b *Bot) sendTransientNotice(channelID, text string) {
	notice, err := b.session.ChannelMessageSend(channelID, text)
	if err != nil || notice == nil {
		return
	}
	delay := time.Duration(b.cfg.Notifications.TransientSecs) * time.Second
	time.AfterFunc(delay, func() {
		_ = b.session.ChannelMessageDelete(channelID, notice.ID)
	})
}

func (b *Bot) sendSecurityLog(ctx context.Context, guildID, title, text string) {
	settings, err := b.store.GetSecuritySettings(ctx, guildID)
	if err != nil || settings.LogChannelID == "" {
		return
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: text,
		Color:       b.cfg.Notifications.EmbedColors.Warning,
		Timestamp:   time.Now().Format(time.RFC3339),
	}
	if _, err := b.session.ChannelMessageSendEmbed(settings.LogChannelID, embed); err != nil {
		b.logger.Warn("security log send failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (b *Bot) notifyOwner(text string) {
	if !b.cfg.Notifications.OwnerDMEnabled || b.cfg.OwnerID == "" {
		return
	}
	channel, err := b.session.UserChannelCreate(b.cfg.OwnerID)
	if err != nil {
		b.logger.Warn("owner dm channel failed", zap.Error(err))
		return
	}
	if _, err := b.session.ChannelMessageSend(channel.ID, text); err != nil {
		b.logger.Warn("owner dm failed", zap.Error(err))
	}
}

func (b *Bot) awardXP(ctx context.Context, msg *discordgo.MessageCreate) {
	award, err := b.xp.AwardMessage(ctx, msg.GuildID, msg.Author.ID, time.Now())
	if err != nil {
		b.logger.Warn("xp award failed",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.Author.ID),
			zap.Error(err))
		return
	}
	if !award.LeveledUp {
		return
	}
	text := fmt.Sprintf("<@%s> reached level %d!", msg.Author.ID, award.Level)
	if _, err := b.session.ChannelMessageSend(msg.ChannelID, text); err != nil {
		b.logger.Warn("level up announce failed", zap.String("guild_id", msg.GuildID), zap.Error(err))
	}
}

func (b *Bot) countEvent(ctx context.Context, guildID, key string) {
	if err := b.store.IncrementEvent(ctx, guildID, key, 1); err != nil {
		b.logger.Warn("event count failed",
			zap.String("guild_id", guildID),
			zap.String("key", key),
			zap.Error(err))
	}
}

// ResolveInviteGuild satisfies the engine's invite lookup using the
// live gateway session.
func (b *Bot) ResolveInviteGuild(ctx context.Context, code string) (string, error) {
	_ = ctx
	invite, err := b.session.Invite(code)
	if err != nil {
		return "", err
	}
	if invite == nil || invite.Guild == nil {
		return "", errors.New("invite carries no guild")
	}
	return invite.Guild.ID, nil
}

func messageTime(msg *discordgo.MessageCreate) time.Time {
	if !msg.Timestamp.IsZero() {
		return msg.Timestamp
	}
	return time.Now()
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}
