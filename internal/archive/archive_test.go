package archive

import (
	"strings"
	"testing"
)

func TestObjectKey(t *testing.T) {
	key := objectKey("scrapes", "https://venue.test/events?page=2", "abcd1234", "txt")
	if !strings.HasPrefix(key, "scrapes/venue.test/") {
		t.Errorf("key = %q, want scrapes/venue.test/ prefix", key)
	}
	if !strings.HasSuffix(key, "-abcd1234.txt") {
		t.Errorf("key = %q, want shortid + extension suffix", key)
	}
}

func TestObjectKey_BadURL(t *testing.T) {
	key := objectKey("screenshots", "::not a url::", "abcd1234", "png")
	if !strings.HasPrefix(key, "screenshots/unknown/") {
		t.Errorf("key = %q, want unknown host segment", key)
	}
}

func TestNew_RequiresEndpointAndBucket(t *testing.T) {
	if _, err := New(Config{Bucket: "b"}); err == nil {
		t.Error("missing endpoint should error")
	}
	if _, err := New(Config{Endpoint: "localhost:9000"}); err == nil {
		t.Error("missing bucket should error")
	}
}
