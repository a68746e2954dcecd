package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsColor(t *testing.T) {
	t.Parallel()

	for _, c := range []string{"#fff", "#3B82F6", "#3b82f680", "#abcd", "white", "rebeccapurple"} {
		assert.True(t, IsColor(c), c)
	}
	for _, c := range []string{"", "#12", "#ggg", "rgb(0,0,0)", "red;background:url(x)", "3B82F6"} {
		assert.False(t, IsColor(c), c)
	}
}

func TestCanonicalOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://Example.com/path?q=1", "https://example.com", true},
		{"HTTP://www.example.com:8080", "http://www.example.com:8080", true},
		{"  https://shop.example.com  ", "https://shop.example.com", true},
		{"example.com", "", false},
		{"ftp://example.com", "", false},
		{"https://", "", false},
		{"://bad", "", false},
	}

	for _, tt := range tests {
		got, err := CanonicalOrigin(tt.in)
		if !tt.ok {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
