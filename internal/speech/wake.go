package speech

import "strings"

// StripWakeWord keeps what was said after the last wake word and drops one
// leading ", ".
func StripWakeWord(text, wake string) string {
	if wake != "" {
		if i := strings.LastIndex(text, wake); i >= 0 {
			text = text[i+len(wake):]
		}
	}
	return strings.TrimPrefix(text, ", ")
}
