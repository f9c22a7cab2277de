// Package match locates GitHub repository references in URLs and
// free-form discussion text.
package match

import (
	"regexp"
	"sort"
	"strings"
)

var (
	repoPattern = regexp.MustCompile(`github\.com/([a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+)`)
	trailingExt = regexp.MustCompile(`\.(git|md|html?)$`)
)

// ExtractRepo returns the owner/name referenced by a GitHub URL in
// canonical lower-case form. ok is false when the text contains no
// repository reference.
func ExtractRepo(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	m := repoPattern.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return "", false
	}
	name := trailingExt.ReplaceAllString(m[1], "")
	return name, true
}

// MatchTracked returns the first tracked repository referenced in free
// text. A repository matches when the text contains its full owner/name
// or just its bare name after the final slash. Names are checked in
// sorted order so the result is deterministic; the heuristic tolerates
// false positives on short names.
func MatchTracked(text string, trackedNames []string) (string, bool) {
	if text == "" || len(trackedNames) == 0 {
		return "", false
	}
	lowered := strings.ToLower(text)

	sorted := make([]string, len(trackedNames))
	copy(sorted, trackedNames)
	sort.Strings(sorted)

	for _, name := range sorted {
		bare := name
		if i := strings.LastIndex(name, "/"); i >= 0 {
			bare = name[i+1:]
		}
		if strings.Contains(lowered, name) || strings.Contains(lowered, bare) {
			return name, true
		}
	}
	return "", false
}
