package safety

import (
	"fmt"
	"regexp"

	"ugcfactory/internal/domain"
)

// bannedPatterns rejects absolute-effect and medical claim language that
// must never appear in generated ad copy.
var bannedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`治る`),
	regexp.MustCompile(`完治`),
	regexp.MustCompile(`医師`),
	regexp.MustCompile(`薬`),
	regexp.MustCompile(`処方`),
	regexp.MustCompile(`副作用`),
	regexp.MustCompile(`100%.*効く`),
	regexp.MustCompile(`必ず`),
	regexp.MustCompile(`絶対`),
}

// ValidateScript returns a compliance error when the text matches any banned
// pattern. Scripts are checked before any asset is persisted.
func ValidateScript(text string) error {
	for _, pat := range bannedPatterns {
		if pat.MatchString(text) {
			return domain.Compliance(fmt.Sprintf("banned pattern matched: %s", pat.String()))
		}
	}
	return nil
}
