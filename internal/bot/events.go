package bot

import (
	"context"
	"strings"

	"guildwarden/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID == "" || event.User == nil {
		return
	}
	ctx := context.Background()
	b.countEvent(ctx, event.GuildID, storage.EventMemberJoin)

	b.sendWelcome(ctx, session, event)
	b.assignAutoRole(ctx, event.GuildID, event.User.ID)
}

func (b *Bot) onGuildMemberRemove(session *discordgo.Session, event *discordgo.GuildMemberRemove) {
	_ = session
	if event.GuildID == "" {
		return
	}
	b.countEvent(context.Background(), event.GuildID, storage.EventMemberLeave)
}

func (b *Bot) sendWelcome(ctx context.Context, session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	message, err := b.store.GetWelcomeMessage(ctx, event.GuildID)
	if err != nil || message == "" {
		return
	}
	guild, err := session.State.Guild(event.GuildID)
	if err != nil || guild == nil || guild.SystemChannelID == "" {
		return
	}

	message = strings.ReplaceAll(message, "{user}", "<@"+event.User.ID+">")
	message = strings.ReplaceAll(message, "{server}", guild.Name)
	if _, err := session.ChannelMessageSend(guild.SystemChannelID, message); err != nil {
		b.logger.Warn("welcome send failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

func (b *Bot) assignAutoRole(ctx context.Context, guildID, userID string) {
	roleID, err := b.store.GetAutoRole(ctx, guildID)
	if err != nil || roleID == "" {
		return
	}
	if err := b.session.GuildMemberRoleAdd(guildID, userID, roleID); err != nil {
		b.logger.Warn("auto role failed",
			zap.String("guild_id", guildID),
			zap.String("role_id", roleID),
			zap.Error(err))
	}
}

// onVoiceStateUpdate watches the configured auto channel; joining it
// puts the member on the waitlist.
func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	if event.GuildID == "" || event.UserID == "" || event.ChannelID == "" {
		return
	}
	if event.BeforeUpdate != nil && event.BeforeUpdate.ChannelID == event.ChannelID {
		return
	}

	ctx := context.Background()
	autoChannel, err := b.store.GetAutoChannel(ctx, event.GuildID)
	if err != nil || autoChannel == "" || autoChannel != event.ChannelID {
		return
	}

	name := event.UserID
	if member, err := session.State.Member(event.GuildID, event.UserID); err == nil && member != nil && member.User != nil {
		name = member.User.Username
	}

	added, err := b.store.AddWaitlist(ctx, event.GuildID, event.UserID, name)
	if err != nil {
		b.logger.Warn("waitlist add failed", zap.String("guild_id", event.GuildID), zap.Error(err))
		return
	}
	if added {
		b.countEvent(ctx, event.GuildID, storage.EventAutoAddWaitlist)
	}
}

func (b *Bot) onReactionAdd(session *discordgo.Session, event *discordgo.MessageReactionAdd) {
	b.handleReaction(session, event.GuildID, event.ChannelID, event.MessageID, event.UserID, 1)
}

func (b *Bot) onReactionRemove(session *discordgo.Session, event *discordgo.MessageReactionRemove) {
	b.handleReaction(session, event.GuildID, event.ChannelID, event.MessageID, event.UserID, -1)
}

// handleReaction credits the message author's guild-wide tally and the
// reactor's per-message tally. Self-reactions and bot targets count for
// neither.
func (b *Bot) handleReaction(session *discordgo.Session, guildID, channelID, messageID, reactorID string, delta int) {
	if guildID == "" || reactorID == "" {
		return
	}
	if session.State.User != nil && reactorID == session.State.User.ID {
		return
	}

	ctx := context.Background()
	message, err := b.messageForReaction(session, channelID, messageID)
	if err != nil || message == nil || message.Author == nil {
		return
	}
	if message.Author.Bot || message.Author.ID == reactorID {
		return
	}

	if err := b.store.IncrementReaction(ctx, guildID, message.Author.ID, delta); err != nil {
		b.logger.Warn("reaction count failed", zap.String("guild_id", guildID), zap.Error(err))
	}
	if err := b.store.IncrementMessageReaction(ctx, guildID, channelID, messageID, reactorID, delta); err != nil {
		b.logger.Warn("message reaction count failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (b *Bot) messageForReaction(session *discordgo.Session, channelID, messageID string) (*discordgo.Message, error) {
	if message, err := session.State.Message(channelID, messageID); err == nil && message != nil {
		return message, nil
	}
	return session.ChannelMessage(channelID, messageID)
}
