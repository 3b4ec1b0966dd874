// Package keys derives the canonical room key for a private conversation.
// Both participants must compute the same key regardless of who initiates,
// so the two identities are sorted lexicographically before joining.
package keys

import "strings"

const separator = "_"

// Direct returns the private room key for the conversation between a and b.
// Direct(a, b) == Direct(b, a).
func Direct(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + separator + b
}

// Peer extracts the other participant from a private room key, given one
// participant's identity. Returns "" when key is not a private key involving
// identity, which makes it safe to call on public room names. Matching by
// prefix/suffix keeps identities that themselves contain the separator
// (guest names) working on either side of the key.
func Peer(key, identity string) string {
	if identity == "" || !strings.Contains(key, separator) {
		return ""
	}
	if rest, ok := strings.CutPrefix(key, identity+separator); ok && rest != "" {
		return rest
	}
	if rest, ok := strings.CutSuffix(key, separator+identity); ok && rest != "" {
		return rest
	}
	return ""
}
