package agent

import (
	"strings"
	"unicode"
)

// Label is the supervisor's routing decision
type Label int

const (
	LabelUnknown Label = iota
	LabelWeather
	LabelSearch
	LabelChat
)

var labelNames = map[Label]string{
	LabelUnknown: "unknown",
	LabelWeather: "weather",
	LabelSearch:  "search",
	LabelChat:    "chat",
}

// worker names the supervisor answers with
var workerNames = map[Label]string{
	LabelWeather: "meteorologist",
	LabelSearch:  "researcher",
	LabelChat:    "chatter",
}

func (l Label) String() string {
	if s, ok := labelNames[l]; ok {
		return s
	}
	return labelNames[LabelUnknown]
}

// Worker returns the worker name of the label, or "" for unknown.
func (l Label) Worker() string {
	return workerNames[l]
}

var vocabulary = func() map[string]Label {
	m := make(map[string]Label)
	for l, w := range workerNames {
		m[w] = l
		m[labelNames[l]] = l
	}
	return m
}()

// ParseLabel maps free-form supervisor output to a label. The first word that
// is a worker or label name wins; anything else is LabelUnknown.
func ParseLabel(s string) Label {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if l, ok := vocabulary[w]; ok {
			return l
		}
	}
	return LabelUnknown
}
