package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEphemeral(t *testing.T) {
	turns := Ephemeral("User: hello\nAI: hi there\n\n  what's the weather?  \nassistant: sunny\nHuman: thanks")

	want := []Turn{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi there"},
		{Role: RoleUser, Content: "what's the weather?"},
		{Role: RoleAssistant, Content: "sunny"},
		{Role: RoleUser, Content: "thanks"},
	}
	assert.Len(t, turns, len(want))
	for i := range want {
		assert.Equal(t, want[i], strip(turns[i]))
	}
}

func TestEphemeralBlank(t *testing.T) {
	assert.Empty(t, Ephemeral("\n \n"))
}

func TestLastUser(t *testing.T) {
	turns := Ephemeral("first\nassistant: reply\nsecond\nassistant: again")
	assert.Equal(t, "second", LastUser(turns))
	assert.Equal(t, "", LastUser(nil))
}

func TestEphemeralMultibytePrefix(t *testing.T) {
	// "Aİ" lowercases to "ai" with a different byte length
	turns := Ephemeral("Aİ: hello there\nai: short")
	if assert.Len(t, turns, 2) {
		assert.Equal(t, Turn{Role: RoleUser, Content: "Aİ: hello there"}, strip(turns[0]))
		assert.Equal(t, Turn{Role: RoleAssistant, Content: "short"}, strip(turns[1]))
	}
}
