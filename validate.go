package challengeq

import (
	"regexp"
	"strings"
)

var pathParamPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidateLocale normalizes and validates a locale string. A blank locale
// falls back to defaultLocale; a locale matching the denylist pattern is
// rejected. A nil denylist disables the pattern check.
func ValidateLocale(locale, defaultLocale string, denylist *regexp.Regexp) (string, error) {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return defaultLocale, nil
	}
	if denylist != nil && denylist.MatchString(locale) {
		return "", NewClientError(CodeInvalidLocale, "invalid locale value %q", locale)
	}
	return locale, nil
}

// ValidatePathParams rejects identifiers that are empty or carry anything
// beyond ASCII letters and digits. Set and question identifiers become path
// segments in registry-backed catalogs, so traversal characters must never
// reach a store.
func ValidatePathParams(params ...string) error {
	for _, p := range params {
		if !pathParamPattern.MatchString(p) {
			return NewClientError(CodeInvalidPathParam, "invalid path parameter %q", p)
		}
	}
	return nil
}

// SetDirFromURI extracts the question-set directory name from a set URI. A
// URI under the claim dialect yields the segment after the dialect prefix;
// anything else yields the last path segment. A bare name passes through
// unchanged.
func SetDirFromURI(setURI, dialect string) string {
	if dialect != "" {
		if rest, ok := strings.CutPrefix(setURI, dialect+"/"); ok {
			return rest
		}
	}
	if i := strings.LastIndex(setURI, "/"); i >= 0 {
		return setURI[i+1:]
	}
	return setURI
}
