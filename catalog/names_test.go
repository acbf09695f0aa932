package catalog

import (
	"strings"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestDesiredFileName(t *testing.T) {
	assert := assert_.New(t)

	cases := []struct {
		name, ext, expected string
	}{
		{"beginner-conversational-unit-36-lesson-3-Transportation-Part-2", ".mp4", "BC-U36-L3-Transportation-Part-2.mp4"},
		{"upper-intermediate-conversational-unit-3-lesson-1", ".mp4", "UIC-U3-L1.mp4"},
		{"intermediate-conversational-unit-3-lesson-1-Shopping", ".mp3", "IC-U3-L1-Shopping.mp3"},
		{"advanced-conversational-unit-12-lesson-4-News", ".pdf", "AC-U12-L4-News.pdf"},
		{"chinese-character-unit-1-lesson-2-Radicals", ".mp4", "CC-U1-L2-Radicals.mp4"},
		{"pinyin-unit-2-lesson-5-Tones", ".mp4", "PY-U2-L5-Tones.mp4"},
		{"beginner-conversational-unit-60-lesson-2-Directions", ".mp4", "BC-U60-L2-Directions.mp4"},
		{"Beginner-Conversational-Unit-7-Lesson-1-Hello", ".mp4", "BC-U7-L1-Hello.mp4"},
		{"something-else-unit-7-lesson-1-Hello", ".mp4", "U7-L1-Hello.mp4"},
		{"how-say-if-in-chinese", ".pdf", "how-say-if-in-chinese.pdf"},
		{"Mandarin-Chinese-pronunciation-lesson/pinyin-chart-table", ".mp4", "Mandarin-Chinese-pronunciation-lesson/pinyin-chart-table.mp4"},
	}
	for _, c := range cases {
		assert.Equal(c.expected, DesiredFileName(c.name, c.ext), c.name)
	}

	assert.Equal("", DesiredFileName("", ".mp4"))
}

func TestDesiredFileNameMalformed(t *testing.T) {
	assert := assert_.New(t)

	for _, name := range []string{
		"unit",
		"unit-",
		"x-unit-3",
		"x-unit-3-lesson",
		"x-unit-3-lesson-",
		"x-unit-3-lesson-1-",
		"x-unit-3-notalesson-1-thing",
		"---unit---",
		"ünïcödé-ÜNIT-3-lesson-1",
		"unitunitunit",
	} {
		assert.NotPanics(func() { DesiredFileName(name, ".mp4") }, name)
		assert.NotEqual("", DesiredFileName(name, ".mp4"), name)
	}

	assert.Equal("U3-L1.mp4", DesiredFileName("x-unit-3-lesson-1-", ".mp4"))
	assert.Equal("U3-notalesson1-thing.mp4", DesiredFileName("x-unit-3-notalesson-1-thing", ".mp4"))
	assert.Equal("U-.mp4", DesiredFileName("unit", ".mp4"))
}

func TestDesiredFileNameStable(t *testing.T) {
	assert := assert_.New(t)

	for _, name := range []string{
		"beginner-conversational-unit-36-lesson-3-Transportation-Part-2",
		"upper-intermediate-conversational-unit-3-lesson-1",
		"intermediate-conversational-unit-10-lesson-2-At-The-Bank",
	} {
		first := DesiredFileName(name, ".mp4")
		assert.Equal(first, DesiredFileName(name, ".mp4"))

		// The output has no "unit" token left, so deriving again from its stem gives it back unchanged.
		stem := strings.TrimSuffix(first, ".mp4")
		assert.Equal(first, DesiredFileName(stem, ".mp4"))

		assert.NotContains(first, "UNIT")
		assert.NotContains(first, "LESSON")
	}
}

func TestDesiredFileNameDistinct(t *testing.T) {
	assert := assert_.New(t)

	names := []string{
		"beginner-conversational-unit-1-lesson-1",
		"beginner-conversational-unit-1-lesson-1-Greetings",
		"beginner-conversational-unit-1-lesson-1-Greetings-Part-2",
		"beginner-conversational-unit-1-lesson-1-greetings",
		"beginner-conversational-unit-1-lesson-2-Greetings",
		"beginner-conversational-unit-11-lesson-1-Greetings",
		"intermediate-conversational-unit-1-lesson-1-Greetings",
		"upper-intermediate-conversational-unit-1-lesson-1-Greetings",
	}
	seen := make(map[string]string)
	for _, name := range names {
		desired := DesiredFileName(name, ".mp4")
		if other, ok := seen[desired]; ok {
			t.Errorf("%q and %q both map to %q", name, other, desired)
		}
		seen[desired] = name
	}
	assert.Len(seen, len(names))
}

func TestShortUnitName(t *testing.T) {
	assert := assert_.New(t)

	assert.Equal("unit-31-Talking-About-When", ShortUnitName("beginner-conversational-unit-31-Talking-About-When"))
	assert.Equal("Unit-2-Food", ShortUnitName("pinyin-Unit-2-Food"))
	assert.Equal("numbers-and-dates", ShortUnitName("numbers-and-dates"))
	assert.Equal("", ShortUnitName(""))
}

func TestHumanDuration(t *testing.T) {
	assert := assert_.New(t)

	assert.Equal("", HumanDuration(0))
	assert.Equal("", HumanDuration(-3))
	assert.Equal("1 second", HumanDuration(1))
	assert.Equal("45 seconds", HumanDuration(45.9))
	assert.Equal("1 minute", HumanDuration(60))
	assert.Equal("1 minute 1 second", HumanDuration(61))
	assert.Equal("2 minutes 5 seconds", HumanDuration(125.2))
	assert.Equal("61 minutes 40 seconds", HumanDuration(3700))
}
