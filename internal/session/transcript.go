package session

import (
	"strings"
	"time"
)

var rolePrefixes = []struct {
	prefix string
	role   string
}{
	{"user:", RoleUser},
	{"human:", RoleUser},
	{"assistant:", RoleAssistant},
	{"ai:", RoleAssistant},
}

// Ephemeral turns a client-supplied multi-line transcript into a history
// that is never stored. Each non-blank line is one turn. A "user:", "human:",
// "assistant:" or "ai:" prefix selects the role; other lines are user turns.
func Ephemeral(transcript string) []Turn {
	now := time.Now()
	var turns []Turn

	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		role := RoleUser
		for _, p := range rolePrefixes {
			n := len(p.prefix)
			if len(line) >= n && strings.EqualFold(line[:n], p.prefix) {
				role = p.role
				line = strings.TrimSpace(line[n:])
				break
			}
		}

		turns = append(turns, Turn{Role: role, Content: line, Timestamp: now})
	}

	return turns
}

// LastUser returns the content of the most recent user turn.
func LastUser(turns []Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == RoleUser {
			return turns[i].Content
		}
	}
	return ""
}
