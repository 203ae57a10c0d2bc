package security

import "strconv"

// Authorizer gates inbound channel messages by sender allow-list.
type Authorizer struct {
	allowedIDs map[string]bool
}

// NewAuthorizer creates an authorizer from numeric sender IDs, the form
// Telegram uses. An empty list allows everyone.
func NewAuthorizer(allowedIDs []int64) *Authorizer {
	m := make(map[string]bool, len(allowedIDs))
	for _, id := range allowedIDs {
		m[strconv.FormatInt(id, 10)] = true
	}
	return &Authorizer{allowedIDs: m}
}

// IsAllowed reports whether the sender may talk to the backend.
func (a *Authorizer) IsAllowed(senderID string) bool {
	if len(a.allowedIDs) == 0 {
		return true // no allowlist = allow all
	}
	return a.allowedIDs[senderID]
}
