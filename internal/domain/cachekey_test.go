package domain

import (
	"strings"
	"testing"
)

func TestCacheKeyRoundTrip(t *testing.T) {
	key := ResourcesKey("draft", "nn", "urn:topic:1")
	if key.String() != "draft|resources|urn:topic:1|nn" {
		t.Fatalf("unexpected key %s", key)
	}
	parsed, ok := ParseCacheKey(key.String())
	if !ok || parsed != key {
		t.Fatalf("expected %+v got %+v", key, parsed)
	}
	if _, ok := ParseCacheKey("draft|resources"); ok {
		t.Fatalf("expected malformed key to fail")
	}
}

func TestCacheKeyPrefixCoversEveryLanguage(t *testing.T) {
	all := ChildrenKey(DefaultVersion, "", "urn:subject:1")
	for _, language := range []string{"nb", "nn", "en"} {
		key := ChildrenKey(DefaultVersion, language, "urn:subject:1")
		if !strings.HasPrefix(key.String(), all.Prefix()) {
			t.Fatalf("expected %s to start with %s", key, all.Prefix())
		}
		if !strings.HasPrefix(key.String(), DefaultVersion.KeyPrefix()) {
			t.Fatalf("expected %s to start with its version prefix", key)
		}
	}
	if strings.HasPrefix(ChildrenKey(DefaultVersion, "nb", "urn:subject:10").String(), all.Prefix()) {
		t.Fatalf("prefix must not match a longer id")
	}
}
