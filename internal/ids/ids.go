// Package ids generates the namespaced identifiers used for stored records.
package ids

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Prefixes for each record type. Built-in agents use plain slugs, so a
// prefixed id can never collide with one.
const (
	CustomAgentPrefix  = "custom-"
	ConversationPrefix = "conv-"
	MessagePrefix      = "msg-"
)

// NewUUIDv7 generates a time-ordered UUID v7.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewCustomAgentID returns a fresh custom agent id.
func NewCustomAgentID() string {
	return CustomAgentPrefix + strings.ToLower(ulid.Make().String())
}

// NewConversationID returns a fresh conversation id.
func NewConversationID() string {
	return ConversationPrefix + strings.ToLower(ulid.Make().String())
}

// NewMessageID returns a fresh message id. ULIDs sort by creation time,
// which keeps messages written in the same millisecond in insertion order
// when used as a tiebreaker.
func NewMessageID() string {
	return MessagePrefix + strings.ToLower(ulid.Make().String())
}

// IsCustomAgentID reports whether id was minted by NewCustomAgentID.
func IsCustomAgentID(id string) bool {
	return strings.HasPrefix(id, CustomAgentPrefix)
}
