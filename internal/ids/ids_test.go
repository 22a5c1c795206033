package ids

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(NewConversationID(), ConversationPrefix))
	assert.True(t, strings.HasPrefix(NewMessageID(), MessagePrefix))
	assert.True(t, IsCustomAgentID(NewCustomAgentID()))
	assert.False(t, IsCustomAgentID("creative"))
}

func TestMessageIDsSortByCreation(t *testing.T) {
	prev := NewMessageID()
	for i := 0; i < 100; i++ {
		next := NewMessageID()
		assert.Less(t, prev, next)
		prev = next
	}
}
