package web

import (
	"context"

	"guildwarden/internal/storage"
	"guildwarden/internal/wordmatch"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (s *Server) reloadModeration(ctx context.Context, guildID string) {
	if _, err := s.cache.Reload(ctx, guildID); err != nil {
		s.logger.Warn("moderation reload failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

func (s *Server) handleGetModeration(c *fiber.Ctx) error {
	guildID := c.Params("guild")
	setting, err := s.store.GetModerationSetting(c.Context(), guildID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
	}
	count, err := s.store.CountBannedWords(c.Context(), guildID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
	}
	return c.JSON(fiber.Map{
		"enabled": setting.Enabled,
		"action":  setting.Action.String(),
		"words":   count,
	})
}

func (s *Server) handlePutModeration(c *fiber.Ctx) error {
	guildID := c.Params("guild")
	var body struct {
		Enabled *bool   `json:"enabled"`
		Action  *string `json:"action"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	if body.Enabled != nil {
		if err := s.store.SetModerationEnabled(c.Context(), guildID, *body.Enabled); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "update failed")
		}
	}
	if body.Action != nil {
		action, ok := storage.ParseModerationAction(*body.Action)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "action must be warn or delete")
		}
		if err := s.store.SetModerationAction(c.Context(), guildID, action); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "update failed")
		}
	}
	s.reloadModeration(c.Context(), guildID)
	return s.handleGetModeration(c)
}

func (s *Server) handleListWords(c *fiber.Ctx) error {
	guildID := c.Params("guild")
	words, err := s.store.ListBannedWords(c.Context(), guildID)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
	}
	out := make([]fiber.Map, 0, len(words))
	for _, w := range words {
		out = append(out, fiber.Map{
			"word":       w.Word,
			"added_by":   w.AddedBy,
			"created_at": w.CreatedAt,
		})
	}
	return c.JSON(out)
}

func (s *Server) handleAddWord(c *fiber.Ctx) error {
	guildID := c.Params("guild")
	var body struct {
		Word string `json:"word"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	word := wordmatch.Normalize(body.Word)
	if word == "" {
		return fiber.NewError(fiber.StatusBadRequest, "word is required")
	}

	added, err := s.store.AddBannedWord(c.Context(), guildID, word, "admin-api")
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "update failed")
	}
	if !added {
		return fiber.NewError(fiber.StatusConflict, "word already listed")
	}
	s.reloadModeration(c.Context(), guildID)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"word": word})
}

func (s *Server) handleDeleteWord(c *fiber.Ctx) error {
	guildID := c.Params("guild")
	word := c.Params("word")

	removed, err := s.store.DeleteBannedWord(c.Context(), guildID, word)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "update failed")
	}
	if !removed {
		return fiber.NewError(fiber.StatusNotFound, "word not listed")
	}
	s.reloadModeration(c.Context(), guildID)
	return c.SendStatus(fiber.StatusNoContent)
}

func securityJSON(settings storage.SecuritySettings) fiber.Map {
	return fiber.Map{
		"block_everyone": settings.BlockEveryone,
		"block_invites":  settings.BlockInvites,
		"block_spam":     settings.BlockSpam,
		"spam_window":    settings.SpamWindowSec,
		"spam_threshold": settings.SpamThreshold,
		"log_channel":    settings.LogChannelID,
	}
}

func (s *Server) handleGetSecurity(c *fiber.Ctx) error {
	settings, err := s.store.GetSecuritySettings(c.Context(), c.Params("guild"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
	}
	return c.JSON(securityJSON(settings))
}

func (s *Server) handlePutSecurity(c *fiber.Ctx) error {
	var body struct {
		BlockEveryone *bool   `json:"block_everyone"`
		BlockInvites  *bool   `json:"block_invites"`
		BlockSpam     *bool   `json:"block_spam"`
		SpamWindow    *int    `json:"spam_window"`
		SpamThreshold *int    `json:"spam_threshold"`
		LogChannel    *string `json:"log_channel"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	settings, err := s.store.UpdateSecuritySettings(c.Context(), c.Params("guild"), storage.SecurityUpdate{
		BlockEveryone: body.BlockEveryone,
		BlockInvites:  body.BlockInvites,
		BlockSpam:     body.BlockSpam,
		SpamWindowSec: body.SpamWindow,
		SpamThreshold: body.SpamThreshold,
		LogChannelID:  body.LogChannel,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "update failed")
	}
	return c.JSON(securityJSON(settings))
}

func timeoutsJSON(timeouts storage.SecurityTimeouts) fiber.Map {
	return fiber.Map{
		"everyone_min": timeouts.EveryoneMin,
		"invite_min":   timeouts.InviteMin,
		"spam_min":     timeouts.SpamMin,
	}
}

func (s *Server) handleGetTimeouts(c *fiber.Ctx) error {
	timeouts, err := s.store.GetSecurityTimeouts(c.Context(), c.Params("guild"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
	}
	return c.JSON(timeoutsJSON(timeouts))
}

func (s *Server) handlePutTimeouts(c *fiber.Ctx) error {
	var body struct {
		EveryoneMin *int `json:"everyone_min"`
		InviteMin   *int `json:"invite_min"`
		SpamMin     *int `json:"spam_min"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	timeouts, err := s.store.UpdateSecurityTimeouts(c.Context(), c.Params("guild"), storage.TimeoutUpdate{
		EveryoneMin: body.EveryoneMin,
		InviteMin:   body.InviteMin,
		SpamMin:     body.SpamMin,
	})
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "update failed")
	}
	return c.JSON(timeoutsJSON(timeouts))
}

func (s *Server) handleGetWhitelist(c *fiber.Ctx) error {
	users, roles, channels, err := s.store.WhitelistLists(c.Context(), c.Params("guild"))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
	}
	return c.JSON(fiber.Map{
		"users":    users,
		"roles":    roles,
		"channels": channels,
	})
}

func (s *Server) handleAddWhitelist(c *fiber.Ctx) error {
	guildID := c.Params("guild")
	var body struct {
		ID string `json:"id"`
	}
	if err := c.BodyParser(&body); err != nil || body.ID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "id is required")
	}

	var added bool
	var err error
	switch c.Params("kind") {
	case "users":
		added, err = s.store.AddWhitelistUser(c.Context(), guildID, body.ID)
	case "roles":
		added, err = s.store.AddWhitelistRole(c.Context(), guildID, body.ID)
	case "channels":
		added, err = s.store.AddWhitelistChannel(c.Context(), guildID, body.ID)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "kind must be users, roles, or channels")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "update failed")
	}
	if !added {
		return fiber.NewError(fiber.StatusConflict, "already whitelisted")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": body.ID})
}

func (s *Server) handleDeleteWhitelist(c *fiber.Ctx) error {
	guildID := c.Params("guild")
	id := c.Params("id")

	var removed bool
	var err error
	switch c.Params("kind") {
	case "users":
		removed, err = s.store.RemoveWhitelistUser(c.Context(), guildID, id)
	case "roles":
		removed, err = s.store.RemoveWhitelistRole(c.Context(), guildID, id)
	case "channels":
		removed, err = s.store.RemoveWhitelistChannel(c.Context(), guildID, id)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "kind must be users, roles, or channels")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "update failed")
	}
	if !removed {
		return fiber.NewError(fiber.StatusNotFound, "not whitelisted")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleGetStats(c *fiber.Ctx) error {
	guildID := c.Params("guild")
	period := c.Query("period", "day")

	var counts map[string]int
	var err error
	switch period {
	case "week":
		counts, err = s.store.SumEventsSince(c.Context(), guildID, 7)
	case "total":
		counts, err = s.store.TotalEvents(c.Context(), guildID)
	case "day":
		counts, err = s.store.SumEventsSince(c.Context(), guildID, 1)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "period must be day, week, or total")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "lookup failed")
	}

	out := make(fiber.Map, len(storage.EventKeys))
	for _, key := range storage.EventKeys {
		out[key] = counts[key]
	}
	return c.JSON(fiber.Map{"period": period, "counts": out})
}
