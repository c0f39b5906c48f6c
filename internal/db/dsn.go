package db

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	kvPairRegex   = regexp.MustCompile(`(?i)\b(host|user|password|dbname|port|sslmode)=`)
	kvPassword    = regexp.MustCompile(`(?i)(password=)(\S+)`)
	sqliteMemPath = ":memory:"
)

// NormalizeDSN accepts either a URL style DSN (postgres://...) or a key=value list.
// It trims quotes and whitespace and defaults sslmode to disable for key=value input.
func NormalizeDSN(raw string) string {
	s := strings.Trim(strings.TrimSpace(raw), "\"'")
	if s == "" || isURL(s) || !kvPairRegex.MatchString(s) {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// ToURLDSN converts a key=value DSN to postgres:// form, as golang-migrate
// only understands URLs. Incomplete input is returned unchanged.
func ToURLDSN(kvDSN string) string {
	if kvDSN == "" || isURL(kvDSN) {
		return kvDSN
	}
	parts := map[string]string{}
	for _, field := range strings.Fields(kvDSN) {
		if k, v, ok := strings.Cut(field, "="); ok {
			parts[strings.ToLower(k)] = v
		}
	}
	host, user, dbname := parts["host"], parts["user"], parts["dbname"]
	if host == "" || user == "" || dbname == "" {
		return kvDSN
	}

	u := &url.URL{Scheme: "postgres", Host: host, Path: "/" + dbname}
	if port := parts["port"]; port != "" {
		u.Host = host + ":" + port
	}
	if pass := parts["password"]; pass != "" {
		u.User = url.UserPassword(user, pass)
	} else {
		u.User = url.User(user)
	}
	if sslmode, ok := parts["sslmode"]; ok {
		u.RawQuery = url.Values{"sslmode": {sslmode}}.Encode()
	}
	return u.String()
}

// MaskDSN hides the password of either DSN form for logging.
func MaskDSN(dsn string) string {
	if isURL(dsn) {
		u, err := url.Parse(dsn)
		if err != nil {
			return "***"
		}
		return u.Redacted()
	}
	return kvPassword.ReplaceAllString(dsn, "${1}***")
}

// SQLiteDSN builds a mattn/go-sqlite3 DSN with foreign keys enforced.
func SQLiteDSN(path string) string {
	if path == "" {
		path = sqliteMemPath
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

func isURL(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}
