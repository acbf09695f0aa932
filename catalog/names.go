package catalog

import (
	"fmt"
	"math"
	"strings"
)

type courseFamily struct {
	slug   string
	abbrev string
}

// Known course families. Several slugs are suffixes of others ("intermediate-conversational-" inside
// "upper-intermediate-conversational-"), so familyPrefix picks the longest matching slug rather than the first.
var courseFamilies = []courseFamily{
	{"upper-intermediate-conversational-", "UIC-"},
	{"intermediate-conversational-", "IC-"},
	{"beginner-conversational-", "BC-"},
	{"advanced-conversational-", "AC-"},
	{"chinese-character-", "CC-"},
	{"pinyin-", "PY-"},
}

const (
	unitToken   = "unit"
	lessonToken = "lesson"
)

// indexFold is a case-insensitive strings.Index for ASCII tokens. It works on the bytes of s directly so the result
// is always a valid offset into s, whatever else s contains.
func indexFold(s string, token string) int {
	for i := 0; i+len(token) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(token)], token) {
			return i
		}
	}
	return -1
}

func hasPrefixFold(s string, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func familyPrefix(name string) string {
	lower := strings.ToLower(name)
	var best courseFamily
	for _, f := range courseFamilies {
		if strings.HasPrefix(lower, f.slug) && len(f.slug) > len(best.slug) {
			best = f
		}
	}
	return best.abbrev
}

// ShortUnitName returns longName from the first case-insensitive "unit" onwards, e.g.
// "beginner-conversational-unit-31-Talking-About-When" gives "unit-31-Talking-About-When". Names without "unit"
// are returned unchanged.
func ShortUnitName(longName string) string {
	if i := indexFold(longName, unitToken); i >= 0 {
		return longName[i:]
	}
	return longName
}

// DesiredFileName derives a short file name from a long lesson slug, e.g.
// "beginner-conversational-unit-36-lesson-3-Transportation-Part-2" with ".mp4" gives
// "BC-U36-L3-Transportation-Part-2.mp4". Slugs with no "unit" token are used verbatim. Only an empty slug gives "".
func DesiredFileName(longLessonName string, extension string) string {
	if longLessonName == "" {
		return ""
	}
	i := indexFold(longLessonName, unitToken)
	if i < 0 {
		return longLessonName + extension
	}

	segments := strings.Split(longLessonName[i:], "-")
	segment := func(n int) string {
		if n < len(segments) {
			return segments[n]
		}
		return ""
	}

	// segment 0 always starts with the unit token, by construction
	unit := "U" + segment(0)[len(unitToken):] + segment(1)
	lesson := segment(2)
	if hasPrefixFold(lesson, lessonToken) {
		lesson = "L" + lesson[len(lessonToken):]
	}
	lesson += segment(3)

	var b strings.Builder
	b.WriteString(familyPrefix(longLessonName))
	b.WriteString(unit)
	b.WriteString("-")
	b.WriteString(lesson)
	if len(segments) > 4 {
		if description := strings.Join(segments[4:], "-"); description != "" {
			b.WriteString("-")
			b.WriteString(description)
		}
	}
	b.WriteString(extension)
	return b.String()
}

// HumanDuration renders a media length like "2 minutes 5 seconds". Zero (or negative) gives "".
func HumanDuration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return ""
	}
	minutes := int(seconds / 60)
	extra := int(math.Mod(seconds, 60))

	var parts []string
	switch {
	case minutes == 1:
		parts = append(parts, "1 minute")
	case minutes > 1:
		parts = append(parts, fmt.Sprintf("%d minutes", minutes))
	}
	switch {
	case extra == 1:
		parts = append(parts, "1 second")
	case extra > 1:
		parts = append(parts, fmt.Sprintf("%d seconds", extra))
	}
	return strings.Join(parts, " ")
}
