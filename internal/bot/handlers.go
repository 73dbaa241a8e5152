package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"guildwarden/internal/raffle"
	"guildwarden/internal/storage"
	"guildwarden/internal/xp"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()

	if data.Name != "ping" && interaction.GuildID == "" {
		b.respondEmbed(session, interaction, b.errorEmbed("This command only works inside a server."), true)
		return
	}

	switch data.Name {
	case "ping":
		b.handlePing(session, interaction)
	case "rank":
		b.handleRank(ctx, session, interaction, data.Options)
	case "leaderboard":
		b.handleLeaderboard(ctx, session, interaction, data.Options)
	case "stats":
		b.handleStats(ctx, session, interaction, data.Options)
	case "reactions":
		b.handleReactions(ctx, session, interaction, data.Options)
	case "banned":
		b.handleBanned(ctx, session, interaction, data.Options)
	case "moderation":
		b.handleModeration(ctx, session, interaction, data.Options)
	case "bypass":
		b.handleBypass(ctx, session, interaction, data.Options)
	case "security":
		b.handleSecurity(ctx, session, interaction, data.Options)
	case "timeouts":
		b.handleTimeouts(ctx, session, interaction, data.Options)
	case "whitelist":
		b.handleWhitelist(ctx, session, interaction, data.Options)
	case "waitlist":
		b.handleWaitlist(ctx, session, interaction, data.Options)
	case "autochannel":
		b.handleAutoChannel(ctx, session, interaction, data.Options)
	case "autorole":
		b.handleAutoRole(ctx, session, interaction, data.Options)
	case "welcome":
		b.handleWelcome(ctx, session, interaction, data.Options)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown command."), true)
	}
}

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(options []*discordgo.ApplicationCommandInteractionDataOption) commandOptions {
	m := make(commandOptions, len(options))
	for _, opt := range options {
		m[opt.Name] = opt
	}
	return m
}

func (b *Bot) errorEmbed(description string) *discordgo.MessageEmbed {
	return b.commandEmbed("Error", description, b.cfg.Notifications.EmbedColors.Error, nil)
}

func (b *Bot) actionColor() int  { return b.cfg.Notifications.EmbedColors.Action }
func (b *Bot) warningColor() int { return b.cfg.Notifications.EmbedColors.Warning }

func (b *Bot) invokerID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

// reloadModeration refreshes the guild's filter snapshot after a
// mutation so the next message sees the change.
func (b *Bot) reloadModeration(ctx context.Context, guildID string) {
	if _, err := b.cache.Reload(ctx, guildID); err != nil {
		b.logger.Warn("moderation reload failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (b *Bot) handlePing(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	latency := session.HeartbeatLatency().Round(time.Millisecond)
	b.respondEmbed(session, interaction, b.commandEmbed("Pong", fmt.Sprintf("Gateway latency: %s", latency), b.actionColor(), nil), true)
}

func (b *Bot) handleRank(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	userID := b.invokerID(interaction)
	if opt, ok := optionMap(options)["user"]; ok {
		if user := opt.UserValue(session); user != nil {
			userID = user.ID
		}
	}
	if userID == "" {
		b.respondEmbed(session, interaction, b.errorEmbed("Could not resolve the user."), true)
		return
	}

	rank, err := b.xp.Rank(ctx, interaction.GuildID, userID)
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Rank lookup failed."), true)
		return
	}
	level, inLevel, toNext := xp.LevelFromTotal(rank.UserTotal)

	fields := []*discordgo.MessageEmbedField{
		{Name: "User", Value: "<@" + userID + ">", Inline: true},
		{Name: "Level", Value: fmt.Sprintf("%d", level), Inline: true},
		{Name: "Rank", Value: fmt.Sprintf("#%d of %d", rank.Position, rank.TotalUsers), Inline: true},
		{Name: "Progress", Value: fmt.Sprintf("%d / %d XP", inLevel, toNext), Inline: true},
		{Name: "Total XP", Value: fmt.Sprintf("%d", rank.UserTotal), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Rank", "Experience standing", b.actionColor(), fields), false)
}

func (b *Bot) handleLeaderboard(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	count := 10
	if opt, ok := optionMap(options)["count"]; ok {
		count = int(opt.IntValue())
	}
	if count < 1 {
		count = 1
	}
	if count > 25 {
		count = 25
	}

	entries, err := b.store.TopXP(ctx, interaction.GuildID, count)
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Leaderboard lookup failed."), true)
		return
	}
	if len(entries) == 0 {
		b.respondEmbed(session, interaction, b.commandEmbed("Leaderboard", "No experience recorded yet.", b.warningColor(), nil), true)
		return
	}

	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		level, _, _ := xp.LevelFromTotal(entry.XP)
		lines = append(lines, fmt.Sprintf("#%d <@%s> level %d (%d XP)", i+1, entry.UserID, level, entry.XP))
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Leaderboard", strings.Join(lines, "\n"), b.actionColor(), nil), false)
}

func (b *Bot) handleStats(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	period := "day"
	if opt, ok := optionMap(options)["period"]; ok {
		period = opt.StringValue()
	}

	var counts map[string]int
	var err error
	switch period {
	case "week":
		counts, err = b.store.SumEventsSince(ctx, interaction.GuildID, 7)
	case "total":
		counts, err = b.store.TotalEvents(ctx, interaction.GuildID)
	default:
		counts, err = b.store.SumEventsSince(ctx, interaction.GuildID, 1)
	}
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Stats lookup failed."), true)
		return
	}

	fields := make([]*discordgo.MessageEmbedField, 0, len(storage.EventKeys))
	for _, key := range storage.EventKeys {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   key,
			Value:  fmt.Sprintf("%d", counts[key]),
			Inline: true,
		})
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Activity", "Counters for period: "+period, b.actionColor(), fields), true)
}

func (b *Bot) handleReactions(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}

	switch action {
	case "rank":
		days := 0
		if opt, ok := opts["days"]; ok {
			days = int(opt.IntValue())
		}
		entries, err := b.store.ReactionRank(ctx, interaction.GuildID, days)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Reaction rank lookup failed."), true)
			return
		}
		if len(entries) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Reactions", "No reactions recorded yet.", b.warningColor(), nil), true)
			return
		}
		if len(entries) > 10 {
			entries = entries[:10]
		}
		lines := make([]string, 0, len(entries))
		for i, entry := range entries {
			lines = append(lines, fmt.Sprintf("#%d <@%s> %d reactions", i+1, entry.UserID, entry.Count))
		}
		title := "Reactions (all time)"
		if days > 0 {
			title = fmt.Sprintf("Reactions (last %d days)", days)
		}
		b.respondEmbed(session, interaction, b.commandEmbed(title, strings.Join(lines, "\n"), b.actionColor(), nil), false)
	case "raffle":
		messageID := ""
		if opt, ok := opts["message"]; ok {
			messageID = opt.StringValue()
		}
		if messageID == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A message ID is required for a raffle."), true)
			return
		}
		winners := 1
		if opt, ok := opts["winners"]; ok {
			winners = int(opt.IntValue())
		}

		entries, err := b.store.MessageReactionRank(ctx, interaction.GuildID, messageID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Raffle lookup failed."), true)
			return
		}
		entrants := make([]raffle.Entrant, 0, len(entries))
		for _, entry := range entries {
			entrants = append(entrants, raffle.Entrant{UserID: entry.UserID, Weight: entry.Count})
		}
		picked := b.drawer.Draw(entrants, winners)
		if len(picked) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Raffle", "Nobody reacted to that message.", b.warningColor(), nil), true)
			return
		}
		lines := make([]string, 0, len(picked))
		for _, id := range picked {
			lines = append(lines, "<@"+id+">")
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Raffle", "Winner(s): "+strings.Join(lines, ", "), b.actionColor(), nil), false)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown reactions action."), true)
	}
}

func (b *Bot) handleBanned(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	word := ""
	if opt, ok := opts["word"]; ok {
		word = strings.TrimSpace(opt.StringValue())
	}
	newWord := ""
	if opt, ok := opts["new_word"]; ok {
		newWord = strings.TrimSpace(opt.StringValue())
	}
	guildID := interaction.GuildID

	switch action {
	case "add":
		if word == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A word is required."), true)
			return
		}
		added, err := b.store.AddBannedWord(ctx, guildID, word, b.invokerID(interaction))
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Adding the word failed."), true)
			return
		}
		if !added {
			b.respondEmbed(session, interaction, b.commandEmbed("Banned words", "That word is already on the list.", b.warningColor(), nil), true)
			return
		}
		b.reloadModeration(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Banned words", fmt.Sprintf("Added `%s`.", word), b.actionColor(), nil), true)
	case "rename":
		if word == "" || newWord == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("Both word and new_word are required."), true)
			return
		}
		renamed, err := b.store.RenameBannedWord(ctx, guildID, word, newWord)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Renaming the word failed."), true)
			return
		}
		if !renamed {
			b.respondEmbed(session, interaction, b.commandEmbed("Banned words", "That word is not on the list.", b.warningColor(), nil), true)
			return
		}
		b.reloadModeration(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Banned words", fmt.Sprintf("Renamed `%s` to `%s`.", word, newWord), b.actionColor(), nil), true)
	case "remove":
		if word == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A word is required."), true)
			return
		}
		removed, err := b.store.DeleteBannedWord(ctx, guildID, word)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Removing the word failed."), true)
			return
		}
		if !removed {
			b.respondEmbed(session, interaction, b.commandEmbed("Banned words", "That word is not on the list.", b.warningColor(), nil), true)
			return
		}
		b.reloadModeration(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Banned words", fmt.Sprintf("Removed `%s`.", word), b.actionColor(), nil), true)
	case "clear":
		removed, err := b.store.ClearBannedWords(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Clearing the list failed."), true)
			return
		}
		b.reloadModeration(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Banned words", fmt.Sprintf("Removed %d words.", removed), b.actionColor(), nil), true)
	case "list":
		words, err := b.store.ListBannedWords(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Listing the words failed."), true)
			return
		}
		if len(words) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Banned words", "The list is empty.", b.warningColor(), nil), true)
			return
		}
		lines := make([]string, 0, len(words))
		for _, w := range words {
			lines = append(lines, "`"+w.Word+"`")
		}
		value := strings.Join(lines, ", ")
		if len(value) > 3800 {
			value = value[:3800] + " ..."
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Banned words", fmt.Sprintf("%d words:\n%s", len(words), value), b.actionColor(), nil), true)
	case "import":
		if word == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A comma-separated word list is required."), true)
			return
		}
		parts := strings.Split(word, ",")
		words := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				words = append(words, trimmed)
			}
		}
		added, err := b.store.ImportBannedWords(ctx, guildID, words, b.invokerID(interaction))
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Importing the words failed."), true)
			return
		}
		b.reloadModeration(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Banned words", fmt.Sprintf("Imported %d of %d words.", added, len(words)), b.actionColor(), nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown banned words action."), true)
	}
}

func (b *Bot) handleModeration(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	guildID := interaction.GuildID

	switch action {
	case "status":
		setting, err := b.store.GetModerationSetting(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Status lookup failed."), true)
			return
		}
		count, err := b.store.CountBannedWords(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Status lookup failed."), true)
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Enabled", Value: fmt.Sprintf("%t", setting.Enabled), Inline: true},
			{Name: "Mode", Value: setting.Action.String(), Inline: true},
			{Name: "Words", Value: fmt.Sprintf("%d", count), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Word filter", "Current configuration", b.actionColor(), fields), true)
	case "enable", "disable":
		enabled := action == "enable"
		if err := b.store.SetModerationEnabled(ctx, guildID, enabled); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Updating the filter failed."), true)
			return
		}
		b.reloadModeration(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Word filter", fmt.Sprintf("Filter enabled: %t.", enabled), b.actionColor(), nil), true)
	case "mode":
		value := ""
		if opt, ok := opts["mode"]; ok {
			value = opt.StringValue()
		}
		mode, ok := storage.ParseModerationAction(value)
		if !ok {
			b.respondEmbed(session, interaction, b.errorEmbed("Mode must be warn or delete."), true)
			return
		}
		if err := b.store.SetModerationAction(ctx, guildID, mode); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Updating the mode failed."), true)
			return
		}
		b.reloadModeration(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Word filter", "Mode set to "+mode.String()+".", b.actionColor(), nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown moderation action."), true)
	}
}

func (b *Bot) handleBypass(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	roleID := ""
	if opt, ok := opts["role"]; ok {
		if role := opt.RoleValue(session, interaction.GuildID); role != nil {
			roleID = role.ID
		}
	}
	guildID := interaction.GuildID

	switch action {
	case "add", "remove":
		if roleID == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A role is required."), true)
			return
		}
		var changed bool
		var err error
		if action == "add" {
			changed, err = b.store.AddBypassRole(ctx, guildID, roleID)
		} else {
			changed, err = b.store.RemoveBypassRole(ctx, guildID, roleID)
		}
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Updating bypass roles failed."), true)
			return
		}
		if !changed {
			b.respondEmbed(session, interaction, b.commandEmbed("Bypass roles", "Nothing to change.", b.warningColor(), nil), true)
			return
		}
		b.reloadModeration(ctx, guildID)
		b.respondEmbed(session, interaction, b.commandEmbed("Bypass roles", fmt.Sprintf("Updated <@&%s>.", roleID), b.actionColor(), nil), true)
	case "list":
		roles, err := b.store.ListBypassRoleIDs(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Listing bypass roles failed."), true)
			return
		}
		if len(roles) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Bypass roles", "No bypass roles configured.", b.warningColor(), nil), true)
			return
		}
		lines := make([]string, 0, len(roles))
		for _, id := range roles {
			lines = append(lines, "<@&"+id+">")
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Bypass roles", strings.Join(lines, "\n"), b.actionColor(), nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown bypass action."), true)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (b *Bot) handleSecurity(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	guildID := interaction.GuildID

	if action == "status" {
		settings, err := b.store.GetSecuritySettings(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Status lookup failed."), true)
			return
		}
		logValue := "not set"
		if settings.LogChannelID != "" {
			logValue = "<#" + settings.LogChannelID + ">"
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Mass mentions", Value: onOff(settings.BlockEveryone), Inline: true},
			{Name: "Invite links", Value: onOff(settings.BlockInvites), Inline: true},
			{Name: "Spam", Value: onOff(settings.BlockSpam), Inline: true},
			{Name: "Spam window", Value: fmt.Sprintf("%ds", settings.SpamWindowSec), Inline: true},
			{Name: "Spam threshold", Value: fmt.Sprintf("%d", settings.SpamThreshold), Inline: true},
			{Name: "Log channel", Value: logValue, Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Security", "Current configuration", b.actionColor(), fields), true)
		return
	}
	if action != "set" {
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown security action."), true)
		return
	}

	var update storage.SecurityUpdate
	if opt, ok := opts["everyone"]; ok {
		v := opt.BoolValue()
		update.BlockEveryone = &v
	}
	if opt, ok := opts["invites"]; ok {
		v := opt.BoolValue()
		update.BlockInvites = &v
	}
	if opt, ok := opts["spam"]; ok {
		v := opt.BoolValue()
		update.BlockSpam = &v
	}
	if opt, ok := opts["window"]; ok {
		v := int(opt.IntValue())
		update.SpamWindowSec = &v
	}
	if opt, ok := opts["threshold"]; ok {
		v := int(opt.IntValue())
		update.SpamThreshold = &v
	}
	if opt, ok := opts["logs"]; ok {
		if channel := opt.ChannelValue(session); channel != nil {
			update.LogChannelID = &channel.ID
		}
	}

	settings, err := b.store.UpdateSecuritySettings(ctx, guildID, update)
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Updating security settings failed."), true)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Mass mentions", Value: onOff(settings.BlockEveryone), Inline: true},
		{Name: "Invite links", Value: onOff(settings.BlockInvites), Inline: true},
		{Name: "Spam", Value: onOff(settings.BlockSpam), Inline: true},
		{Name: "Spam window", Value: fmt.Sprintf("%ds", settings.SpamWindowSec), Inline: true},
		{Name: "Spam threshold", Value: fmt.Sprintf("%d", settings.SpamThreshold), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Security", "Settings updated", b.actionColor(), fields), true)
}

func (b *Bot) handleTimeouts(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	guildID := interaction.GuildID

	if action == "view" {
		timeouts, err := b.store.GetSecurityTimeouts(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Timeout lookup failed."), true)
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Mass mention", Value: fmt.Sprintf("%d min", timeouts.EveryoneMin), Inline: true},
			{Name: "Invite link", Value: fmt.Sprintf("%d min", timeouts.InviteMin), Inline: true},
			{Name: "Spam", Value: fmt.Sprintf("%d min", timeouts.SpamMin), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Timeouts", "Current durations", b.actionColor(), fields), true)
		return
	}
	if action != "set" {
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown timeouts action."), true)
		return
	}

	var update storage.TimeoutUpdate
	if opt, ok := opts["everyone"]; ok {
		v := int(opt.IntValue())
		update.EveryoneMin = &v
	}
	if opt, ok := opts["invite"]; ok {
		v := int(opt.IntValue())
		update.InviteMin = &v
	}
	if opt, ok := opts["spam"]; ok {
		v := int(opt.IntValue())
		update.SpamMin = &v
	}

	timeouts, err := b.store.UpdateSecurityTimeouts(ctx, guildID, update)
	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Updating timeouts failed."), true)
		return
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: "Mass mention", Value: fmt.Sprintf("%d min", timeouts.EveryoneMin), Inline: true},
		{Name: "Invite link", Value: fmt.Sprintf("%d min", timeouts.InviteMin), Inline: true},
		{Name: "Spam", Value: fmt.Sprintf("%d min", timeouts.SpamMin), Inline: true},
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Timeouts", "Durations updated", b.actionColor(), fields), true)
}

func (b *Bot) handleWhitelist(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	guildID := interaction.GuildID

	if action == "list" {
		users, roles, channels, err := b.store.WhitelistLists(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Listing the whitelist failed."), true)
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Users", Value: mentionLines(users, "<@", ">"), Inline: false},
			{Name: "Roles", Value: mentionLines(roles, "<@&", ">"), Inline: false},
			{Name: "Channels", Value: mentionLines(channels, "<#", ">"), Inline: false},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", "Blocking exemptions", b.actionColor(), fields), true)
		return
	}
	if action != "add" && action != "remove" {
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown whitelist action."), true)
		return
	}

	var changed bool
	var err error
	var target string
	switch {
	case hasOptionValue(opts, "user"):
		user := opts["user"].UserValue(session)
		target = "<@" + user.ID + ">"
		if action == "add" {
			changed, err = b.store.AddWhitelistUser(ctx, guildID, user.ID)
		} else {
			changed, err = b.store.RemoveWhitelistUser(ctx, guildID, user.ID)
		}
	case hasOptionValue(opts, "role"):
		role := opts["role"].RoleValue(session, guildID)
		target = "<@&" + role.ID + ">"
		if action == "add" {
			changed, err = b.store.AddWhitelistRole(ctx, guildID, role.ID)
		} else {
			changed, err = b.store.RemoveWhitelistRole(ctx, guildID, role.ID)
		}
	case hasOptionValue(opts, "channel"):
		channel := opts["channel"].ChannelValue(session)
		target = "<#" + channel.ID + ">"
		if action == "add" {
			changed, err = b.store.AddWhitelistChannel(ctx, guildID, channel.ID)
		} else {
			changed, err = b.store.RemoveWhitelistChannel(ctx, guildID, channel.ID)
		}
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("A user, role, or channel is required."), true)
		return
	}

	if err != nil {
		b.respondEmbed(session, interaction, b.errorEmbed("Updating the whitelist failed."), true)
		return
	}
	if !changed {
		b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", "Nothing to change.", b.warningColor(), nil), true)
		return
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Whitelist", "Updated "+target+".", b.actionColor(), nil), true)
}

func hasOptionValue(opts commandOptions, name string) bool {
	opt, ok := opts[name]
	return ok && opt != nil
}

func mentionLines(ids []string, prefix, suffix string) string {
	if len(ids) == 0 {
		return "none"
	}
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		lines = append(lines, prefix+id+suffix)
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) handleWaitlist(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	guildID := interaction.GuildID

	switch action {
	case "list":
		entries, err := b.store.ListWaitlist(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Listing the waitlist failed."), true)
			return
		}
		if len(entries) == 0 {
			b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", "The waitlist is empty.", b.warningColor(), nil), true)
			return
		}
		lines := make([]string, 0, len(entries))
		for i, entry := range entries {
			lines = append(lines, fmt.Sprintf("%d. <@%s>", i+1, entry.UserID))
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", strings.Join(lines, "\n"), b.actionColor(), nil), true)
	case "add":
		user := (*discordgo.User)(nil)
		if opt, ok := opts["user"]; ok {
			user = opt.UserValue(session)
		}
		if user == nil {
			b.respondEmbed(session, interaction, b.errorEmbed("A user is required."), true)
			return
		}
		added, err := b.store.AddWaitlist(ctx, guildID, user.ID, user.Username)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Adding to the waitlist failed."), true)
			return
		}
		if !added {
			b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", "That member is already waiting.", b.warningColor(), nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", fmt.Sprintf("Added <@%s>.", user.ID), b.actionColor(), nil), true)
	case "remove":
		user := (*discordgo.User)(nil)
		if opt, ok := opts["user"]; ok {
			user = opt.UserValue(session)
		}
		if user == nil {
			b.respondEmbed(session, interaction, b.errorEmbed("A user is required."), true)
			return
		}
		removed, err := b.store.RemoveWaitlist(ctx, guildID, user.ID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Removing from the waitlist failed."), true)
			return
		}
		if !removed {
			b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", "That member is not waiting.", b.warningColor(), nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", fmt.Sprintf("Removed <@%s>.", user.ID), b.actionColor(), nil), true)
	case "clear":
		removed, err := b.store.ClearWaitlist(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Clearing the waitlist failed."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", fmt.Sprintf("Removed %d entries.", removed), b.actionColor(), nil), true)
	case "next":
		entry, ok, err := b.store.PopWaitlist(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Advancing the waitlist failed."), true)
			return
		}
		if !ok {
			b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", "The waitlist is empty.", b.warningColor(), nil), true)
			return
		}
		moveChannel, err := b.store.GetMoveChannel(ctx, guildID)
		if err == nil && moveChannel != "" {
			if err := session.GuildMemberMove(guildID, entry.UserID, &moveChannel); err != nil {
				b.logger.Warn("waitlist move failed",
					zap.String("guild_id", guildID),
					zap.String("user_id", entry.UserID),
					zap.Error(err))
				b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", fmt.Sprintf("<@%s> is next, but could not be moved.", entry.UserID), b.warningColor(), nil), true)
				return
			}
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Waitlist", fmt.Sprintf("<@%s> is up next.", entry.UserID), b.actionColor(), nil), false)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown waitlist action."), true)
	}
}

func (b *Bot) handleAutoChannel(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	guildID := interaction.GuildID

	if len(opts) == 0 {
		auto, err := b.store.GetAutoChannel(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Lookup failed."), true)
			return
		}
		move, err := b.store.GetMoveChannel(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Lookup failed."), true)
			return
		}
		fields := []*discordgo.MessageEmbedField{
			{Name: "Auto channel", Value: channelMention(auto), Inline: true},
			{Name: "Move channel", Value: channelMention(move), Inline: true},
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Auto channel", "Current configuration", b.actionColor(), fields), true)
		return
	}

	if opt, ok := opts["clear"]; ok && opt.BoolValue() {
		if err := b.store.SetAutoChannel(ctx, guildID, ""); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Clearing the auto channel failed."), true)
			return
		}
		if err := b.store.SetMoveChannel(ctx, guildID, ""); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Clearing the move channel failed."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Auto channel", "Configuration cleared.", b.actionColor(), nil), true)
		return
	}

	if opt, ok := opts["channel"]; ok {
		if channel := opt.ChannelValue(session); channel != nil {
			if err := b.store.SetAutoChannel(ctx, guildID, channel.ID); err != nil {
				b.respondEmbed(session, interaction, b.errorEmbed("Setting the auto channel failed."), true)
				return
			}
		}
	}
	if opt, ok := opts["move_channel"]; ok {
		if channel := opt.ChannelValue(session); channel != nil {
			if err := b.store.SetMoveChannel(ctx, guildID, channel.ID); err != nil {
				b.respondEmbed(session, interaction, b.errorEmbed("Setting the move channel failed."), true)
				return
			}
		}
	}
	b.respondEmbed(session, interaction, b.commandEmbed("Auto channel", "Configuration updated.", b.actionColor(), nil), true)
}

func channelMention(id string) string {
	if id == "" {
		return "not set"
	}
	return "<#" + id + ">"
}

func (b *Bot) handleAutoRole(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	guildID := interaction.GuildID

	switch action {
	case "show":
		roleID, err := b.store.GetAutoRole(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Lookup failed."), true)
			return
		}
		value := "not set"
		if roleID != "" {
			value = "<@&" + roleID + ">"
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Auto role", "Current role: "+value, b.actionColor(), nil), true)
	case "set":
		roleID := ""
		if opt, ok := opts["role"]; ok {
			if role := opt.RoleValue(session, guildID); role != nil {
				roleID = role.ID
			}
		}
		if roleID == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A role is required."), true)
			return
		}
		if err := b.store.SetAutoRole(ctx, guildID, roleID); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Setting the auto role failed."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Auto role", fmt.Sprintf("New members now receive <@&%s>.", roleID), b.actionColor(), nil), true)
	case "clear":
		cleared, err := b.store.ClearAutoRole(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Clearing the auto role failed."), true)
			return
		}
		if !cleared {
			b.respondEmbed(session, interaction, b.commandEmbed("Auto role", "No auto role was configured.", b.warningColor(), nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Auto role", "Auto role cleared.", b.actionColor(), nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown autorole action."), true)
	}
}

func (b *Bot) handleWelcome(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	opts := optionMap(options)
	action := ""
	if opt, ok := opts["action"]; ok {
		action = opt.StringValue()
	}
	guildID := interaction.GuildID

	switch action {
	case "show":
		message, err := b.store.GetWelcomeMessage(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Lookup failed."), true)
			return
		}
		if message == "" {
			b.respondEmbed(session, interaction, b.commandEmbed("Welcome", "No welcome message configured.", b.warningColor(), nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Welcome", message, b.actionColor(), nil), true)
	case "set":
		message := ""
		if opt, ok := opts["message"]; ok {
			message = strings.TrimSpace(opt.StringValue())
		}
		if message == "" {
			b.respondEmbed(session, interaction, b.errorEmbed("A message is required."), true)
			return
		}
		if err := b.store.SetWelcomeMessage(ctx, guildID, message); err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Setting the welcome message failed."), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Welcome", "Welcome message saved.", b.actionColor(), nil), true)
	case "clear":
		cleared, err := b.store.ClearWelcomeMessage(ctx, guildID)
		if err != nil {
			b.respondEmbed(session, interaction, b.errorEmbed("Clearing the welcome message failed."), true)
			return
		}
		if !cleared {
			b.respondEmbed(session, interaction, b.commandEmbed("Welcome", "No welcome message was configured.", b.warningColor(), nil), true)
			return
		}
		b.respondEmbed(session, interaction, b.commandEmbed("Welcome", "Welcome message cleared.", b.actionColor(), nil), true)
	default:
		b.respondEmbed(session, interaction, b.errorEmbed("Unknown welcome action."), true)
	}
}
