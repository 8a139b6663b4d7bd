package attribution

import "regexp"

// delegationRe matches the name-initiated imperative: a capitalized token,
// an optional comma, then a modal verb addressed at "you". It knowingly
// fires on any capitalized first word ("Tomorrow, can you..."); tightening
// that requires a person-name lexicon this module does not carry.
var delegationRe = regexp.MustCompile(`^\s*([A-Z][\w'’.-]*),?\s+(can|could|will|would)\s+you\b`)

// LooksLikeDelegation reports whether mention-free text reads as one person
// asking a named other to do something.
func LooksLikeDelegation(text string) bool {
	return delegationRe.MatchString(text)
}
