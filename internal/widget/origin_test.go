package widget

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		host string
		ok   bool
	}{
		{"https://example.com", "example.com", true},
		{"https://www.example.com/pricing?x=1", "example.com", true},
		{"http://EXAMPLE.com:8080", "example.com", true},
		{"https://www.www.example.com", "www.example.com", true},
		{"https://shop.example.com", "shop.example.com", true},
		{"example.com", "", false},
		{"", "", false},
		{"https://", "", false},
		{"http://[::1", "", false},
		{"https://www.", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			host, ok := NormalizeHost(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.host, host)
		})
	}
}

func TestIsAuthorized_HostnameOnlyAndWWWInsensitive(t *testing.T) {
	t.Parallel()

	allowed := []string{"https://example.com"}

	for _, claimed := range []string{
		"https://example.com",
		"https://www.example.com",
		"http://example.com",
		"https://example.com:8443/blog",
	} {
		assert.True(t, IsAuthorized(allowed, claimed), claimed)
	}

	for _, claimed := range []string{
		"https://evil-example.com",
		"https://sub.example.com",
		"https://example.com.evil.io",
		"example.com",
		"not a url",
	} {
		assert.False(t, IsAuthorized(allowed, claimed), claimed)
	}
}

func TestIsAuthorized_EmptyAllowListFailsClosed(t *testing.T) {
	t.Parallel()

	assert.False(t, IsAuthorized(nil, "https://example.com"))
	assert.False(t, IsAuthorized([]string{}, "https://example.com"))
}

func TestIsAuthorized_MalformedEntriesNeverMatch(t *testing.T) {
	t.Parallel()

	allowed := []string{"example.com", "http://[::1", "https://www.acme.io"}
	assert.False(t, IsAuthorized(allowed, "https://example.com"))
	assert.True(t, IsAuthorized(allowed, "https://acme.io"))
}
