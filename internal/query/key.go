package query

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// Key identifies a cached query. The first parts name the resource family,
// the rest are the parameters that affect the result.
type Key []string

// K builds a key from arbitrary parts formatted with %v.
func K(parts ...any) Key {
	k := make(Key, len(parts))
	for i, p := range parts {
		k[i] = fmt.Sprint(p)
	}
	return k
}

// Params renders filter values deterministically (sorted by name, empty
// values dropped) so that equal filters produce equal keys.
func Params(v url.Values) string {
	clean := url.Values{}
	for name, vals := range v {
		for _, val := range vals {
			if val != "" {
				clean.Add(name, val)
			}
		}
	}
	return clean.Encode()
}

// String encodes the key as escaped segments each followed by "/". The
// trailing separator makes prefix matching segment-aligned: "tenant" does
// not match "tenants".
func (k Key) String() string {
	var b strings.Builder
	for _, p := range k {
		b.WriteString(url.PathEscape(p))
		b.WriteByte('/')
	}
	return b.String()
}

// HasPrefix reports whether k starts with every part of prefix.
func (k Key) HasPrefix(prefix Key) bool {
	return strings.HasPrefix(k.String(), prefix.String())
}

// Scope derives the cache partition for a credential. Raw tokens never end
// up in cache keys.
func Scope(token string) string {
	if token == "" {
		return "anonymous"
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:12])
}

// scopedKey joins scope and encoded key. Scope is hex and never contains '|'.
func scopedKey(scope string, k Key) string {
	return scope + "|" + k.String()
}

// splitScoped returns the encoded key part of a scoped key.
func splitScoped(s string) (scope, key string) {
	scope, key, _ = strings.Cut(s, "|")
	return scope, key
}
