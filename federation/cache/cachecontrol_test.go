package cache_test

import (
	"testing"
	"time"

	"github.com/n9te9/federation-core/federation/cache"
)

func TestParseCacheControl_MaxAge(t *testing.T) {
	cc := cache.ParseCacheControl("max-age=60", "10")
	if cc.MaxAge != 60*time.Second {
		t.Errorf("expected max-age 60s, got %s", cc.MaxAge)
	}
	if cc.Age != 10*time.Second {
		t.Errorf("expected age 10s, got %s", cc.Age)
	}
	if ttl := cc.EffectiveTTL(time.Second); ttl != 50*time.Second {
		t.Errorf("expected effective ttl 50s, got %s", ttl)
	}
}

func TestParseCacheControl_NoStore(t *testing.T) {
	cc := cache.ParseCacheControl("no-store", "")
	if cc.Cacheable() {
		t.Error("expected no-store response to be uncacheable")
	}
	if ttl := cc.EffectiveTTL(time.Minute); ttl != 0 {
		t.Errorf("expected 0 ttl for no-store, got %s", ttl)
	}
}

func TestParseCacheControl_Private(t *testing.T) {
	cc := cache.ParseCacheControl("private, max-age=30", "")
	if cc.Cacheable() {
		t.Error("expected private response to be uncacheable")
	}
}

func TestParseCacheControl_DefaultsWhenAbsent(t *testing.T) {
	cc := cache.ParseCacheControl("", "")
	if ttl := cc.EffectiveTTL(5 * time.Second); ttl != 5*time.Second {
		t.Errorf("expected default ttl when no max-age present, got %s", ttl)
	}
}
