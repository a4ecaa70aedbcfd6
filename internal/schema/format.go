package schema

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	hostnamePattern = regexp.MustCompile(`^(?i)[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$`)
)

// MatchFormat reports whether s satisfies the named string format. known is
// false for formats this package does not check; callers accept those.
func MatchFormat(format, s string) (ok, known bool) {
	switch format {
	case "email":
		return emailPattern.MatchString(s), true
	case "uuid":
		if len(s) != 36 {
			return false, true
		}
		_, err := uuid.Parse(s)
		return err == nil, true
	case "date-time":
		_, err := time.Parse(time.RFC3339, s)
		return err == nil, true
	case "date":
		_, err := time.Parse(time.DateOnly, s)
		return err == nil, true
	case "uri":
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && (u.Host != "" || u.Opaque != ""), true
	case "hostname":
		return len(s) <= 253 && hostnamePattern.MatchString(s), true
	case "ipv4":
		addr, err := netip.ParseAddr(s)
		return err == nil && addr.Is4(), true
	case "ipv6":
		addr, err := netip.ParseAddr(s)
		return err == nil && addr.Is6(), true
	}
	return true, false
}

// detectOrder lists the formats DetectFormat tries. hostname is left out: too
// many plain words would qualify.
var detectOrder = []string{"uuid", "date-time", "date", "email", "ipv4", "ipv6", "uri"}

// DetectFormat guesses the format of a sample string, or returns "". Any
// format it returns is satisfied by MatchFormat for the same string.
func DetectFormat(s string) string {
	for _, f := range detectOrder {
		if f == "uri" && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			continue
		}
		if ok, _ := MatchFormat(f, s); ok {
			return f
		}
	}
	return ""
}
