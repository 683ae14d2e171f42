package validation

import (
	"net/url"
	"strings"
)

// ValidRedirectURI acepta URIs absolutas http(s) con host y sin fragmento.
func ValidRedirectURI(raw string) bool {
	if strings.TrimSpace(raw) != raw || raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != "" && u.Fragment == ""
}
