package model

import "strings"

// NotUnderstoodSentinel is the fixed reply the intent model is instructed to
// produce when it cannot extract a shopping intent from the utterance.
const NotUnderstoodSentinel = "I didn't understand, please try again."

// Intent is the interpreted shopping request for one utterance: an ordered
// list of free-text item descriptors. The sentinel and clarifying-question
// forms are detected via Unclear and Question rather than separate types,
// matching the single-array wire contract with the intent model.
type Intent struct {
	Items []string `json:"items"`
}

// Empty reports whether no items were extracted.
func (i Intent) Empty() bool {
	return len(i.Items) == 0
}

// Joined returns the items joined the way they are spoken back to the user.
func (i Intent) Joined() string {
	return strings.Join(i.Items, ", ")
}

// Unclear reports whether the intent is the not-understood sentinel, in
// either its bare form or its single-element-array form.
func (i Intent) Unclear() bool {
	joined := i.Joined()
	return joined == NotUnderstoodSentinel || joined == "["+NotUnderstoodSentinel+"]"
}

// Question returns the clarifying question and true when the final item ends
// with a question mark. The coordinator routes such intents to speech
// feedback instead of product discovery.
func (i Intent) Question() (string, bool) {
	if len(i.Items) == 0 {
		return "", false
	}
	last := i.Items[len(i.Items)-1]
	if strings.HasSuffix(strings.TrimSpace(last), "?") {
		return i.Joined(), true
	}
	return "", false
}

// BudgetRange optionally bounds discovery to a fiat price window.
type BudgetRange struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// CandidateSet holds marketplace item identifiers suggested by the ranking
// model. Identifiers are unvalidated at this stage: they may reference
// unavailable or mismatched items, and are discarded after resolution.
type CandidateSet []string
