// Package util contiene helpers para no volcar datos personales o secretos en los logs.
package util

import "strings"

// MaskEmail deja la primera letra del usuario y del dominio: "bob@example.com" → "b…@e….com".
// Sin "@" se trata como un valor opaco.
func MaskEmail(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	user, domain, ok := strings.Cut(s, "@")
	if !ok || user == "" {
		switch {
		case s == "":
			return ""
		case len(s) <= 3:
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}

	host, tld, _ := strings.Cut(domain, ".")
	out := keepFirst(user) + "@" + keepFirst(host)
	if tld != "" {
		out += "." + tld
	}
	return out
}

func keepFirst(s string) string {
	if len(s) <= 1 {
		return s
	}
	return s[:1] + "…"
}

// MaskSecret deja ver solo los primeros 4 caracteres de un token o code.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "…"
}
