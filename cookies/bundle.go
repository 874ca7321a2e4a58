// Package cookies holds harvested X/Twitter session cookies and decides
// whether they are enough to talk to the bridge.
package cookies

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// EssentialNames are the cookies the bridge's auth middleware requires.
//   - auth_token: primary session token
//   - ct0: CSRF token sent with state-changing requests
//   - twid: binds the user to the session
//   - guest_id: gates some endpoints even for logged-in users
//   - att: extra token validated alongside the session cookies
var EssentialNames = []string{"auth_token", "ct0", "twid", "guest_id", "att"}

// Cookie is one harvested browser cookie, in the harvester's JSON shape.
type Cookie struct {
	Name         string  `json:"name"`
	Value        string  `json:"value"`
	Domain       string  `json:"domain,omitempty"`
	Path         string  `json:"path,omitempty"`
	Expires      float64 `json:"expires,omitempty"`
	HTTPOnly     bool    `json:"httpOnly"`
	Secure       bool    `json:"secure"`
	SameSite     string  `json:"sameSite,omitempty"`
	Priority     string  `json:"priority,omitempty"`
	SourcePort   int     `json:"sourcePort,omitempty"`
	SourceScheme string  `json:"sourceScheme,omitempty"`
	CookieString string  `json:"cookieString,omitempty"`
}

// Bundle is the credential set produced by the cookie harvester.
type Bundle struct {
	Cookies      []Cookie          `json:"cookies"`
	CookieHeader string            `json:"cookieHeader"`
	Essentials   map[string]string `json:"essentials"`
}

// NewBundle assembles a bundle from raw cookies. The first cookie seen for a
// name wins; the header lists each name once, in input order.
func NewBundle(raw []Cookie) Bundle {
	b := Bundle{
		Cookies:    make([]Cookie, 0, len(raw)),
		Essentials: make(map[string]string),
	}
	seen := make(map[string]string, len(raw))
	var parts []string
	for _, c := range raw {
		if c.Name == "" {
			continue
		}
		c.CookieString = FormatCookieString(c)
		b.Cookies = append(b.Cookies, c)
		if _, ok := seen[c.Name]; ok {
			continue
		}
		seen[c.Name] = c.Value
		parts = append(parts, c.Name+"="+c.Value)
	}
	b.CookieHeader = strings.Join(parts, "; ")
	for _, name := range EssentialNames {
		if v, ok := seen[name]; ok {
			b.Essentials[name] = v
		}
	}
	return b
}

// FormatCookieString renders c in Set-Cookie style.
func FormatCookieString(c Cookie) string {
	parts := []string{c.Name + "=" + c.Value}
	if c.Domain != "" {
		parts = append(parts, "Domain="+c.Domain)
	}
	if c.Path != "" {
		parts = append(parts, "Path="+c.Path)
	}
	if c.Expires > 0 {
		exp := time.Unix(int64(c.Expires), 0).UTC()
		parts = append(parts, "Expires="+exp.Format("Mon, 02 Jan 2006 15:04:05 GMT"))
	}
	if c.SameSite != "" {
		parts = append(parts, "SameSite="+c.SameSite)
	}
	if c.Secure {
		parts = append(parts, "Secure")
	}
	if c.HTTPOnly {
		parts = append(parts, "HttpOnly")
	}
	return strings.Join(parts, "; ")
}

// Missing returns the essential names that are absent or empty, in
// EssentialNames order.
func (b Bundle) Missing() []string {
	var missing []string
	for _, name := range EssentialNames {
		if b.Essentials[name] == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Inconsistent returns the essential names whose value in CookieHeader
// differs from Essentials, in EssentialNames order. A hand-edited or stale
// cookie file can carry a header the bridge will authenticate differently
// from the body.
func (b Bundle) Inconsistent() []string {
	var names []string
	for _, name := range EssentialNames {
		v, ok := b.Essentials[name]
		if !ok {
			continue
		}
		if HeaderValue(b.CookieHeader, name) != v {
			names = append(names, name)
		}
	}
	return names
}

// clone returns a deep copy so the store never aliases caller memory.
func (b Bundle) clone() Bundle {
	return Bundle{
		Cookies:      slices.Clone(b.Cookies),
		CookieHeader: b.CookieHeader,
		Essentials:   maps.Clone(b.Essentials),
	}
}
