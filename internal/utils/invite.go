package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
	inviteRegex = regexp.MustCompile(`(?i)(?:https?://)?(?:discord\.gg|discord(?:app)?\.com/invite)/([A-Za-z0-9-]+)`)
)

var inviteHosts = map[string]bool{
	"discord.gg":      true,
	"discord.com":     true,
	"discordapp.com":  true,
	"www.discord.com": true,
}

// ContainsBroadcastMention reports whether the raw text carries an
// @everyone or @here token. Checked on the raw content, not the
// normalized one, since Discord resolves mentions on the raw text.
func ContainsBroadcastMention(content string) bool {
	return strings.Contains(content, "@everyone") || strings.Contains(content, "@here")
}

// ExtractInviteCode finds the first Discord invite code in the text.
// Full URLs are parsed and their hosts punycoded via IDNA first, so an
// IDN lookalike host still resolves to the code it would on Discord.
// Bare discord.gg/xyz forms are matched directly.
func ExtractInviteCode(content string) (string, bool) {
	for _, raw := range urlRegex.FindAllString(content, -1) {
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := strings.ToLower(parsed.Hostname())
		if ascii, err := idna.ToASCII(host); err == nil {
			host = ascii
		}
		if !inviteHosts[host] {
			continue
		}
		if code, ok := codeFromPath(host, parsed.Path); ok {
			return code, true
		}
	}

	if m := inviteRegex.FindStringSubmatch(content); m != nil {
		return m[1], true
	}
	return "", false
}

func codeFromPath(host, path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if host == "discord.gg" {
		if len(parts) >= 1 && parts[0] != "" {
			return parts[0], true
		}
		return "", false
	}
	if len(parts) >= 2 && strings.EqualFold(parts[0], "invite") && parts[1] != "" {
		return parts[1], true
	}
	return "", false
}
