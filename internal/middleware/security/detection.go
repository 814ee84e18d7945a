package security

import (
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync/atomic"

	applog "matchday/internal/log"
)

// rule flags a request and names why.
type rule struct {
	reason string
	match  func(r *http.Request) bool
}

var probeFragments = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", "etc/passwd", "cmd.exe",
	"<script", "javascript:", "eval(", "union select",
}

var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan", "zgrab",
}

var rules = []rule{
	{"probe", func(r *http.Request) bool {
		query, err := url.QueryUnescape(r.URL.RawQuery)
		if err != nil {
			query = r.URL.RawQuery
		}
		return containsAny(strings.ToLower(r.URL.Path+"?"+query), probeFragments)
	}},
	{"scanner", func(r *http.Request) bool {
		return containsAny(strings.ToLower(r.UserAgent()), scannerAgents)
	}},
	{"method", func(r *http.Request) bool {
		switch r.Method {
		case "TRACE", "TRACK", "DEBUG", "CONNECT":
			return true
		}
		return false
	}},
	{"long_url", func(r *http.Request) bool {
		return len(r.URL.String()) > 2048
	}},
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
}

type DetectionMetrics struct {
	BlockedRequests int64
}

// Detector turns away scanner traffic before it reaches the API and
// resolves client addresses behind trusted proxies.
type Detector struct {
	trusted []netip.Prefix
	blocked atomic.Int64
	logger  *applog.Logger
}

// NewDetector trusts loopback and private ranges plus any extra prefixes.
func NewDetector(logger *applog.Logger, extra ...netip.Prefix) *Detector {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Detector{
		trusted: append(append([]netip.Prefix(nil), privateRanges...), extra...),
		logger:  logger.WithComponent(applog.ComponentSecurity),
	}
}

// Inspect returns the first rule r trips, or "" for clean requests.
func (d *Detector) Inspect(r *http.Request) string {
	for _, rl := range rules {
		if rl.match(r) {
			return rl.reason
		}
	}
	return ""
}

// Middleware answers flagged requests with a bare 404.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := d.Inspect(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}
		d.blocked.Add(1)
		d.logger.WarnContext(r.Context(), "Suspicious request blocked",
			"reason", reason,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, d.ExtractClientIP(r),
			applog.FieldUserAgent, r.UserAgent())
		http.NotFound(w, r)
	})
}

// ExtractClientIP returns the peer address, or the forwarded client when
// the peer is a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer, err := netip.ParseAddr(host)
	if err != nil || !d.trusts(peer.Unmap()) {
		return host
	}

	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
		return addr.String()
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	return host
}

func (d *Detector) trusts(addr netip.Addr) bool {
	for _, p := range d.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{BlockedRequests: d.blocked.Load()}
}
