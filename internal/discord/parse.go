package discord

import (
	"regexp"
	"strings"
)

// invitePrefixes are stripped, longest first, after the scheme and "www." are removed.
var invitePrefixes = []string{
	"discordapp.com/invite/",
	"discord.com/invite/",
	"discord.gg/",
}

var inviteCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]{2,64}$`)

// webhookPattern matches https://discord.com/api[/vN]/webhooks/{id}/{token}
// including the ptb/canary and legacy discordapp.com hosts.
var webhookPattern = regexp.MustCompile(
	`^https://(?:(?:ptb|canary)\.)?discord(?:app)?\.com/api(?:/v\d+)?/webhooks/(\d{5,25})/([A-Za-z0-9_-]{20,100})/?(?:\?.*)?$`,
)

// ExtractInviteCode returns the invite code from a bare code or an invite URL,
// or "" if nothing usable is found.
//
//	https://discord.gg/abc123?event=1 -> abc123
//	discord.com/invite/abc123/        -> abc123
//	abc123                            -> abc123
func ExtractInviteCode(invite string) string {
	s := strings.TrimSpace(invite)

	for _, scheme := range []string{"https://", "http://"} {
		if hasPrefixFold(s, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	if hasPrefixFold(s, "www.") {
		s = s[4:]
	}
	for _, prefix := range invitePrefixes {
		if hasPrefixFold(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}

	if i := strings.IndexAny(s, "?#/"); i >= 0 {
		s = s[:i]
	}

	if !inviteCodePattern.MatchString(s) {
		return ""
	}
	return s
}

// ParseWebhookURL extracts the webhook id and token. ok is false for anything
// that is not a platform webhook URL.
func ParseWebhookURL(raw string) (id, token string, ok bool) {
	m := webhookPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// IsWebhookURL reports whether raw has the shape of a platform webhook URL.
func IsWebhookURL(raw string) bool {
	_, _, ok := ParseWebhookURL(raw)
	return ok
}

// hasPrefixFold is a case-insensitive HasPrefix that compares the leading
// len(prefix) bytes of s, so the match and the slice after it agree.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
