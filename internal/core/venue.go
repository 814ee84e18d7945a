package core

import (
	"net/url"
	"strings"
)

// DefaultImageProxy resizes venue pictures and serves them with CORS headers.
const DefaultImageProxy = "https://images.weserv.nl/"

// FixImageURL repairs the doubled protocol typo ("hhttps:") found in venue
// image links entered by hand.
func FixImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "hhttps:") {
		return raw[1:]
	}
	return raw
}

// ProxiedImageURL returns the venue thumbnail routed through proxyBase, or an
// empty string when the venue has no picture.
func (v *Venue) ProxiedImageURL(proxyBase string) string {
	if v == nil {
		return ""
	}
	fixed := FixImageURL(v.ImageURL)
	if fixed == "" {
		return ""
	}
	if proxyBase == "" {
		proxyBase = DefaultImageProxy
	}
	q := url.Values{}
	q.Set("url", fixed)
	q.Set("w", "120")
	q.Set("h", "90")
	q.Set("fit", "cover")
	return strings.TrimRight(proxyBase, "?") + "?" + q.Encode()
}
