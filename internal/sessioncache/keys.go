package sessioncache

import "strings"

// Key shapes are part of the cache contract:
//
//	<session>:forward:<type>:<real>  -> token       (dedup lookup)
//	<session>:reverse:<token>        -> ciphertext  (depseudonymization)
//	<session>:meta:count             -> binding counter
//
// The session id prefixes every key so DeletePattern(session + ":")
// tears the whole session down atomically from the caller's view.

// ForwardKey builds the forward-binding key for a detected value.
// Name-class values must be canonicalized (lowercased) by the caller
// before building the key; id-class values are used verbatim.
func ForwardKey(sessionID, entityType, realValue string) string {
	var b strings.Builder
	b.Grow(len(sessionID) + len(entityType) + len(realValue) + 10)
	b.WriteString(sessionID)
	b.WriteString(":forward:")
	b.WriteString(entityType)
	b.WriteString(":")
	b.WriteString(realValue)
	return b.String()
}

// ReverseKey builds the reverse-binding key for a token.
func ReverseKey(sessionID, token string) string {
	return sessionID + ":reverse:" + token
}

// CountKey builds the per-session binding counter key.
func CountKey(sessionID string) string {
	return sessionID + ":meta:count"
}

// SessionPrefix returns the pattern prefix covering every key of a
// session.
func SessionPrefix(sessionID string) string {
	return sessionID + ":"
}
