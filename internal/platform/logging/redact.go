package logging

import (
	"log/slog"
	"regexp"

	"github.com/m-mizutani/masq"
)

// SessionIDKey is the attribute that carries a browser session ID. Its value
// is a bearer credential, so only a prefix is logged.
const SessionIDKey = "session_id"

const (
	redacted = "[REDACTED]"

	// sessionIDVisible is how much of a session ID stays readable so the
	// lines of one browser can still be grouped.
	sessionIDVisible = 8
)

var (
	jwtPattern    = regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`)
	bearerPattern = regexp.MustCompile(`(?i)^(bearer|basic)\s+.+$`)
)

// DefaultRedactOptions hide credentials and shorten session IDs. The gateway
// identity headers (user ID, roles, scopes) stay readable.
func DefaultRedactOptions() []masq.Option {
	return []masq.Option{
		masq.WithFieldName(SessionIDKey, masq.RedactString(shortenSessionID)),

		masq.WithFieldName("password"),
		masq.WithFieldName("token"),
		masq.WithFieldName("apiKey"),
		masq.WithFieldName("api_key"),
		masq.WithFieldName("authorization"),
		masq.WithFieldName("auth"),
		masq.WithFieldName("cookie"),
		masq.WithFieldName("set_cookie"),
		masq.WithFieldName("session"),
		masq.WithFieldPrefix("secret"),
		masq.WithFieldPrefix("private"),
		masq.WithFieldPrefix("access_token"),

		masq.WithRegex(jwtPattern),
		masq.WithRegex(bearerPattern),
	}
}

// SessionCookieRedactOptions mask the value of the named cookie wherever it
// shows up in a logged string, such as a raw Cookie header, and leave the
// other cookies in that string readable.
func SessionCookieRedactOptions(name string) []masq.Option {
	if name == "" {
		return nil
	}

	pair := regexp.MustCompile(`(^|[;,\s])` + regexp.QuoteMeta(name) + `=[^;,\s]*`)

	return []masq.Option{
		masq.WithFieldName(name),
		masq.WithRegex(pair, masq.RedactString(func(s string) string {
			return pair.ReplaceAllString(s, "${1}"+name+"="+redacted)
		})),
	}
}

// NewReplaceAttr builds a slog ReplaceAttr from DefaultRedactOptions plus
// opts.
func NewReplaceAttr(opts ...masq.Option) func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(append(DefaultRedactOptions(), opts...)...)
}

func shortenSessionID(id string) string {
	if len(id) <= sessionIDVisible {
		return redacted
	}

	return id[:sessionIDVisible] + "****"
}
