package nodes

import "strings"

var (
	continuationWords = []string{"yes", "continue", "go on", "proceed", "next", "sure", "ok", "okay"}
	affirmativeWords  = []string{"yes", "confirm", "save", "correct"}
	negativeWords     = []string{"no", "cancel", "wrong", "incorrect"}
)

// containsAny is a case-insensitive substring match against words.
func containsAny(utterance string, words []string) bool {
	u := strings.ToLower(utterance)
	for _, w := range words {
		if strings.Contains(u, w) {
			return true
		}
	}
	return false
}

// IsContinuation reports whether the utterance asks to carry on with a flow.
func IsContinuation(utterance string) bool {
	return containsAny(utterance, continuationWords)
}

// Confirmation is the deterministic reading of a reply to the save prompt.
type Confirmation int

const (
	ConfirmAmbiguous Confirmation = iota
	ConfirmYes
	ConfirmNo
)

// ClassifyConfirmation checks affirmative words before negative ones, so
// "incorrect" reads as a yes through "correct".
func ClassifyConfirmation(utterance string) Confirmation {
	switch {
	case containsAny(utterance, affirmativeWords):
		return ConfirmYes
	case containsAny(utterance, negativeWords):
		return ConfirmNo
	}
	return ConfirmAmbiguous
}
