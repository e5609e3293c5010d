package cache

import (
	"strconv"
	"strings"
	"time"
)

// CacheControl is the parsed form of a subgraph response's Cache-Control
// header, grounded on the max-age/age/private/no-store semantics spec
// §4.4/§6 name.
type CacheControl struct {
	MaxAge  time.Duration
	Age     time.Duration
	Private bool
	NoStore bool
	set     bool
}

// ParseCacheControl parses a raw Cache-Control header value (Age is taken
// from a separate "Age" response header, since it's a distinct header in
// HTTP, not a Cache-Control directive).
func ParseCacheControl(header string, ageHeader string) CacheControl {
	cc := CacheControl{set: true}
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, val, _ := strings.Cut(part, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		val = strings.Trim(strings.TrimSpace(val), `"`)
		switch name {
		case "max-age":
			if secs, err := strconv.Atoi(val); err == nil {
				cc.MaxAge = time.Duration(secs) * time.Second
			}
		case "private":
			cc.Private = true
		case "no-store":
			cc.NoStore = true
		}
	}
	if ageHeader != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(ageHeader)); err == nil {
			cc.Age = time.Duration(secs) * time.Second
		}
	}
	return cc
}

// EffectiveTTL returns how long the response may still be cached, bounded
// below by zero and above by defaultTTL when the subgraph provided no
// max-age at all. A private or no-store response is never cacheable.
func (cc CacheControl) EffectiveTTL(defaultTTL time.Duration) time.Duration {
	if cc.NoStore || cc.Private {
		return 0
	}
	if !cc.set || cc.MaxAge == 0 {
		return defaultTTL
	}
	remaining := cc.MaxAge - cc.Age
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Cacheable reports whether a response governed by cc may be stored at
// all.
func (cc CacheControl) Cacheable() bool {
	return !cc.NoStore && !cc.Private
}
