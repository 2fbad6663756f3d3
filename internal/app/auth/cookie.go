package auth

import (
	"strings"

	"github.com/dkeye/castlink/internal/domain"
)

const (
	jwtCookie   = "__Host-jwt"
	nonceCookie = "__Host-nonce"
)

// ExtractValue scans a "scheme: k1=v1; k2=v2;" attribute string and returns
// the value of key. A value only counts when it is terminated by ';'.
// Anything it cannot make sense of yields "".
func ExtractValue(text, key string) string {
	pos := 0
	if i := strings.IndexByte(text, ':'); i >= 0 {
		pos = i + 1
	}

	for pos < len(text) {
		for pos < len(text) && text[pos] == ' ' {
			pos++
		}
		eq := strings.IndexByte(text[pos:], '=')
		if eq < 0 {
			return ""
		}
		curr := text[pos : pos+eq]
		pos += eq + 1

		semi := strings.IndexByte(text[pos:], ';')
		if semi < 0 {
			return ""
		}
		if curr == key {
			return text[pos : pos+semi]
		}
		pos += semi + 1
	}
	return ""
}

// TokenFromHeaders pulls the jwt and nonce cookies out of raw response
// header lines. The first non-empty value of each wins.
func TokenFromHeaders(headers []string) domain.Token {
	var t domain.Token
	for _, h := range headers {
		if t.Token == "" {
			t.Token = ExtractValue(h, jwtCookie)
		}
		if t.Nonce == "" {
			t.Nonce = ExtractValue(h, nonceCookie)
		}
	}
	return t
}

// authHeaders are sent with every call made after login.
func authHeaders(t domain.Token) []string {
	return []string{
		"X-Double-Submit: " + t.Nonce,
		"cookie: " + nonceCookie + "=" + t.Nonce + "; " + jwtCookie + "=" + t.Token,
	}
}
