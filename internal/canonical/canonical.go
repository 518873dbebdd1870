// Package canonical turns mentioned URLs into the canonical form used as the
// identity key for caching and deduplication.
package canonical

import (
	"net/url"
	"strings"
)

// DefaultGlobalParams are advertising and analytics parameters that never
// affect page content.
var DefaultGlobalParams = []string{
	"utm_source",
	"utm_medium",
	"utm_campaign",
	"utm_term",
	"utm_content",
	"utm_name",
	"fbclid",
	"gclid",
	"gclsrc",
	"dclid",
	"msclkid",
	"mc_cid",
	"mc_eid",
	"igshid",
	"_hsenc",
	"_hsmi",
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// JunkRule removes query parameters. A rule with no Domains applies to every
// URL; otherwise it applies when the URL's host is one of Domains or a
// subdomain of one. RemoveHash additionally drops the fragment.
type JunkRule struct {
	Domains    []string `json:"domain,omitempty"     mapstructure:"domain"`
	Params     []string `json:"params,omitempty"     mapstructure:"params"`
	RemoveHash bool     `json:"removeHash,omitempty" mapstructure:"removeHash"`
}

// Global reports whether the rule applies regardless of host.
func (r JunkRule) Global() bool {
	return len(r.Domains) == 0
}

func (r JunkRule) matchesHost(host string) bool {
	for _, d := range r.Domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Canonicalizer applies a fixed set of junk-parameter rules. It is safe for
// concurrent use.
type Canonicalizer struct {
	global      map[string]struct{}
	domainRules []JunkRule
}

// New builds a Canonicalizer from rules. Parameter names are matched
// case-sensitively, as servers treat them.
func New(rules []JunkRule) *Canonicalizer {
	c := &Canonicalizer{global: make(map[string]struct{})}
	for _, r := range rules {
		if r.Global() {
			for _, p := range r.Params {
				c.global[p] = struct{}{}
			}
			continue
		}
		c.domainRules = append(c.domainRules, r)
	}
	return c
}

// NewDefault builds a Canonicalizer with DefaultGlobalParams only.
func NewDefault() *Canonicalizer {
	return New([]JunkRule{{Params: DefaultGlobalParams}})
}

// Canonicalize strips junk parameters (and fragments where a rule asks for
// it), lowercases scheme and host and drops default ports. It never fails:
// input that does not parse as an absolute URL is returned trimmed.
func (c *Canonicalizer) Canonicalize(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return trimmed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = normalizeHost(u)
	host := u.Hostname()

	drop := make(map[string]struct{}, len(c.global))
	for p := range c.global {
		drop[p] = struct{}{}
	}
	removeHash := false
	for _, r := range c.domainRules {
		if !r.matchesHost(host) {
			continue
		}
		for _, p := range r.Params {
			drop[p] = struct{}{}
		}
		removeHash = removeHash || r.RemoveHash
	}

	u.RawQuery = cleanQuery(u.RawQuery, drop)
	if u.RawQuery == "" {
		u.ForceQuery = false
	}
	if removeHash {
		u.Fragment = ""
		u.RawFragment = ""
	}

	return u.String()
}

// Host returns the lowercased hostname of rawURL, or "" when it has none.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func normalizeHost(u *url.URL) string {
	hostname := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" || defaultPorts[u.Scheme] == port {
		return bracketIPv6(hostname)
	}
	return bracketIPv6(hostname) + ":" + port
}

func bracketIPv6(hostname string) string {
	if strings.Contains(hostname, ":") {
		return "[" + hostname + "]"
	}
	return hostname
}

// cleanQuery filters raw query pairs in place so untouched parameters keep
// their original order and encoding.
func cleanQuery(rawQuery string, drop map[string]struct{}) string {
	if rawQuery == "" {
		return ""
	}

	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		if _, junk := drop[key]; junk {
			continue
		}
		kept = append(kept, pair)
	}

	return strings.Join(kept, "&")
}
