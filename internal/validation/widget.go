package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	hexColorRegex   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	namedColorRegex = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
)

// IsColor accepts hex colors (#rgb, #rgba, #rrggbb, #rrggbbaa) and CSS color keywords.
// Functional notations are rejected so the value is always safe inside an inline style.
func IsColor(s string) bool {
	return hexColorRegex.MatchString(s) || namedColorRegex.MatchString(s)
}

// ErrInvalidOrigin is returned for anything that is not an absolute http(s) URL with a host.
var ErrInvalidOrigin = errors.New("must be a full http(s) URL such as https://example.com")

// ParseOrigin parses raw as an absolute http(s) URL.
func ParseOrigin(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, ErrInvalidOrigin
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrInvalidOrigin
	}
	if u.Hostname() == "" {
		return nil, ErrInvalidOrigin
	}
	return u, nil
}

// CanonicalOrigin reduces raw to lowercase scheme://host[:port], dropping path, query and fragment.
func CanonicalOrigin(raw string) (string, error) {
	u, err := ParseOrigin(raw)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), nil
}
