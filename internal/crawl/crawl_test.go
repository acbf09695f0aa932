package crawl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/lesson-archiver/browser"
	"github.com/alanbriolat/lesson-archiver/browser/browsertest"
	"github.com/alanbriolat/lesson-archiver/catalog"
)

const site = "https://yoyochinese.com"

const levelNav = `
<p data-navigate="/courses/beginner-conversational-chinese">Level 1</p>
<p data-navigate="/courses/beginner-conversational-chinese/2">Level 2</p>`

const header = `<header><a href="/chinese-learning-tools/Mandarin-Chinese-pronunciation-lesson/pinyin-chart-table">Pinyin Chart</a></header>`

func fixturePages() map[string]string {
	return map[string]string{
		site + "/auth/login": `<html><body>
<input class="email-input"><input class="password-input" type="password">
<button><span data-navigate="/dashboard">Login with Email</span></button>
</body></html>`,
		site + "/dashboard": `<html><body><nav><span data-navigate="/courses">Courses</span></nav></body></html>`,
		site + "/courses": `<html><body><div class="courses">
<a href="/courses/beginner-conversational-chinese"><img src="/public/1.png"><h2>Beginner Conversational</h2></a>
<a href="/courses/chinese-characters"><img src="/public/2.png"><h2>Chinese Characters</h2></a>
<a href="/courses/upper-intermediate-conversational-chinese"><h2>Upper Intermediate Conversational</h2></a>
</div></body></html>`,

		site + "/courses/beginner-conversational-chinese": `<html><body>` + header + levelNav + `
<a class="icon-link" href="/unit/beginner-conversational-unit-1-Greetings">Greetings</a>
</body></html>`,
		site + "/courses/beginner-conversational-chinese/2": `<html><body>` + header + levelNav + `
<a class="icon-link" href="/unit/beginner-conversational-unit-2-Family">Family</a>
</body></html>`,
		site + "/unit/beginner-conversational-unit-1-Greetings": `<html><body>` + header + `
<a href="/lesson/beginner-conversational-unit-1-lesson-1-Hello/dialogue">Lesson 1</a>
<a href="/lesson/beginner-conversational-unit-1-lesson-1-Hello/quiz">Quiz</a>
<a href="/lesson/beginner-conversational-unit-1-lesson-2-Goodbye">Lesson 2</a>
</body></html>`,
		site + "/lesson/beginner-conversational-unit-1-lesson-1-Hello/dialogue": `<html><body>
<iframe class="wistia-embed" src="https://fast.wistia.net/embed/iframe/abc123"></iframe>
<div class="tabs"><div>Notes</div><div>Audio</div></div>
<a href="https://cdn.example.com/notes/hello.pdf">Download Lecture Notes</a>
<a href="https://cdn.example.com/audio/hello.mp3">Download Audio</a>
</body></html>`,
		site + "/lesson/beginner-conversational-unit-1-lesson-2-Goodbye": `<html><body><p>Reading only.</p></body></html>`,
		"https://fast.wistia.net/embed/iframe/abc123?videoFoam=true": `<html><head><script>
  W.iframeInit({"assets":[{"type":"original","slug":"original","url":"https://embed-ssl.wistia.com/deliveries/abc123.bin","size":1}]}, {});
</script></head></html>`,
		site + "/unit/beginner-conversational-unit-2-Family": `<html><body>
<a href="/lesson/beginner-conversational-unit-2-lesson-1-Mother">Lesson 1</a>
</body></html>`,
		site + "/lesson/beginner-conversational-unit-2-lesson-1-Mother": `<html><body>
<div>Audio</div><a href="/files/mother.mp3">Download Audio</a>
</body></html>`,

		site + "/courses/chinese-characters": `<html><body>
<a class="icon-link" href="/unit/chinese-character-unit-1-Radicals">Radicals</a>
</body></html>`,
		site + "/unit/chinese-character-unit-1-Radicals": `<html><body>
<a href="/lesson/chinese-character-unit-1-lesson-1-Water">Water</a>
</body></html>`,
		site + "/lesson/chinese-character-unit-1-lesson-1-Water": `<html><body>
<iframe class="wistia-embed" src="https://fast.wistia.net/embed/iframe/zzz?autoplay=1"></iframe>
<div>Notes</div>
</body></html>`,
		"https://fast.wistia.net/embed/iframe/zzz?autoplay=1&videoFoam=true": `<html><body>player unavailable</body></html>`,
	}
}

var crawlTime = time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC)

func newTestSession(t *testing.T, d *browsertest.Driver) *Session {
	opts := DefaultOptions()
	opts.SettleDelay = 0
	opts.ProbeTimeout = time.Millisecond
	opts.WaitTimeout = time.Millisecond
	opts.OutputRoot = t.TempDir()
	opts.CreateFolders = true
	s := NewSession(d, opts)
	s.now = func() time.Time { return crawlTime }
	return s
}

func TestRun(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	d := browsertest.New(fixturePages())
	s := newTestSession(t, d)
	cat := catalog.New(catalog.DefaultSite)

	names, err := ParseCourseNames("beginner conversational, Chinese Characters ,Nonexistent Course")
	require.NoError(err)
	written, err := s.Run(context.Background(), cat, Credentials{Username: "user@example.com", Password: "secret"}, names)
	require.NoError(err)

	assert.Equal("user@example.com", d.Typed["input.email-input"])
	assert.Equal("secret", d.Typed["input.password-input"])
	assert.Equal([2]int{1080, 1024}, d.Viewport)
	assert.Len(cat.Courses, 3)
	assert.False(d.Visited(site + "/courses/upper-intermediate-conversational-chinese"))

	root := s.opts.OutputRoot
	require.Equal([]string{
		filepath.Join(root, "beginner-conversational-chinese", "beginner-conversational-chinese-2024-03-01T10-20-30.json"),
		filepath.Join(root, "chinese-characters", "chinese-characters-2024-03-01T10-20-30.json"),
	}, written)
	for _, dir := range []string{"videos", "mp3s", "pdfs"} {
		assert.FileExists(filepath.Join(root, "beginner-conversational-chinese", dir, "README.md"))
	}

	course, err := catalog.LoadCourse(written[0])
	require.NoError(err)
	assert.Equal("Beginner Conversational", course.HumanFriendlyName)
	require.Len(course.Levels, 2)
	assert.Equal("Level1", course.Levels[0].Name)
	assert.Equal(site+"/courses/beginner-conversational-chinese/2", course.Levels[1].URL)

	unit := course.Levels[0].Units[0]
	assert.Equal("unit-1-Greetings", unit.ShortName)
	require.Len(unit.Lessons, 2, "quiz link is the same lesson, pinyin chart is not a lesson")

	hello := unit.Lessons[0]
	assert.Equal("beginner-conversational-unit-1-lesson-1-Hello", hello.Name)
	assert.Equal("https://fast.wistia.net/embed/iframe/abc123?videoFoam=true", hello.VideoURL)
	assert.Equal("https://embed-ssl.wistia.com/deliveries/abc123.bin", hello.VideoBinURL)
	assert.Equal("https://cdn.example.com/notes/hello.pdf", hello.PDFURL)
	assert.Equal("BC-U1-L1-Hello.pdf", hello.DesiredPDFName)
	assert.Equal("https://cdn.example.com/audio/hello.mp3", hello.MP3URL)
	assert.Equal("BC-U1-L1-Hello.mp3", hello.DesiredMP3Name)
	assert.Equal("BC-U1-L1-Hello.mp4", hello.DesiredMP4Name)
	assert.False(hello.VideoDownloaded)

	goodbye := unit.Lessons[1]
	assert.Equal(&catalog.Lesson{
		Name:           "beginner-conversational-unit-1-lesson-2-Goodbye",
		URL:            site + "/lesson/beginner-conversational-unit-1-lesson-2-Goodbye",
		DesiredMP4Name: "BC-U1-L2-Goodbye.mp4",
	}, goodbye)

	mother := course.Levels[1].Units[0].Lessons[0]
	assert.Equal(site+"/files/mother.mp3", mother.MP3URL)
	assert.Empty(mother.VideoURL)
	assert.Empty(mother.PDFURL)

	characters, err := catalog.LoadCourse(written[1])
	require.NoError(err)
	require.Len(characters.Levels, 1)
	assert.Equal("Level1", characters.Levels[0].Name)
	assert.Equal(site+"/courses/chinese-characters", characters.Levels[0].URL)
	water := characters.Levels[0].Units[0].Lessons[0]
	assert.Equal("https://fast.wistia.net/embed/iframe/zzz?autoplay=1&videoFoam=true", water.VideoURL)
	assert.Empty(water.VideoBinURL, "player page without a video file")
	assert.Empty(water.PDFURL, "notes tab without a download link")
	assert.Equal("CC-U1-L1-Water.mp4", water.DesiredMP4Name)
}

func TestRunBlankCourseName(t *testing.T) {
	assert := assert_.New(t)
	d := browsertest.New(fixturePages())
	s := newTestSession(t, d)

	_, err := s.Run(context.Background(), catalog.New(catalog.DefaultSite), Credentials{}, []string{"Beginner Conversational", " "})
	assert.ErrorIs(err, ErrBlankCourseName)
	_, err = s.Run(context.Background(), catalog.New(catalog.DefaultSite), Credentials{}, nil)
	assert.ErrorIs(err, ErrNoCourseNames)
	assert.Empty(d.Navigations)
}

func TestRunMissingRequiredElement(t *testing.T) {
	assert := assert_.New(t)
	pages := fixturePages()
	pages[site+"/unit/beginner-conversational-unit-2-Family"] = `<html><body><p>Under construction</p></body></html>`
	d := browsertest.New(pages)
	s := newTestSession(t, d)

	written, err := s.Run(context.Background(), catalog.New(catalog.DefaultSite), Credentials{}, []string{"Beginner Conversational"})
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.Empty(written)
	entries, _ := os.ReadDir(filepath.Join(s.opts.OutputRoot, "beginner-conversational-chinese"))
	for _, entry := range entries {
		assert.True(entry.IsDir(), "no course file for a failed crawl")
	}
}

func TestRunCancelled(t *testing.T) {
	assert := assert_.New(t)
	d := browsertest.New(fixturePages())
	s := newTestSession(t, d)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx, catalog.New(catalog.DefaultSite), Credentials{}, []string{"Beginner Conversational"})
	assert.ErrorIs(err, context.Canceled)
}

func TestCrawlLessonsIdempotent(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	d := browsertest.New(fixturePages())
	s := newTestSession(t, d)
	cat := catalog.New(catalog.DefaultSite)
	course := cat.AddCourse(site+"/courses/beginner-conversational-chinese", "Beginner Conversational")
	ctx := context.Background()

	require.NoError(s.CrawlLevels(ctx, cat, course))
	require.NoError(s.CrawlLevels(ctx, cat, course))
	assert.Len(course.Levels, 2)
	level := course.Levels[0]
	require.NoError(s.CrawlUnits(ctx, cat, level))
	require.NoError(s.CrawlUnits(ctx, cat, level))
	require.Len(level.Units, 1)
	require.NoError(s.CrawlLessons(ctx, cat, level.Units[0]))
	require.NoError(s.CrawlLessons(ctx, cat, level.Units[0]))
	assert.Len(level.Units[0].Lessons, 2)
}

func TestParseCourseNames(t *testing.T) {
	assert := assert_.New(t)

	names, err := ParseCourseNames(" Beginner Conversational,Chinese Characters ")
	assert.NoError(err)
	assert.Equal([]string{"Beginner Conversational", "Chinese Characters"}, names)

	_, err = ParseCourseNames("Beginner Conversational,,Chinese Characters")
	assert.ErrorIs(err, ErrBlankCourseName)
	_, err = ParseCourseNames("Beginner Conversational, ")
	assert.ErrorIs(err, ErrBlankCourseName)
	_, err = ParseCourseNames("   ")
	assert.ErrorIs(err, ErrNoCourseNames)
}

func TestSelectCourses(t *testing.T) {
	assert := assert_.New(t)
	s := newTestSession(t, browsertest.New(nil))
	cat := catalog.New(catalog.DefaultSite)
	cat.AddCourse(site+"/courses/beginner-conversational-chinese", "Beginner Conversational")
	cat.AddCourse(site+"/courses/chinese-characters", "Chinese Characters")

	selected := s.SelectCourses(cat, []string{"Chinese Characters", "Missing", "Beginner Conversational", "Chinese Characters"})
	if assert.Len(selected, 2) {
		assert.Equal("Chinese Characters", selected[0].HumanFriendlyName)
		assert.Equal("Beginner Conversational", selected[1].HumanFriendlyName)
	}
}

func TestCrawlLevelsLabelAfterMarkup(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	nav := `<p data-navigate="/courses/pinyin-course"><span class="dot"></span>Level 1</p>
<p data-navigate="/courses/pinyin-course/2"><span class="dot"></span>Level 2</p>`
	d := browsertest.New(map[string]string{
		site + "/courses/pinyin-course":   `<html><body>` + nav + `</body></html>`,
		site + "/courses/pinyin-course/2": `<html><body>` + nav + `</body></html>`,
	})
	s := newTestSession(t, d)
	cat := catalog.New(catalog.DefaultSite)
	course := cat.AddCourse(site+"/courses/pinyin-course", "Pinyin")

	require.NoError(s.CrawlLevels(context.Background(), cat, course))
	if assert.Len(course.Levels, 2) {
		assert.Equal(site+"/courses/pinyin-course/2", course.Levels[1].URL)
	}
}

// failingProperties reads no element properties at all.
type failingProperties struct {
	*browsertest.Driver
}

func (failingProperties) Property(ctx context.Context, el browser.Element, name string) (string, error) {
	return "", errors.New("node detached")
}

func TestDiscoverMediaUnreadableLinks(t *testing.T) {
	assert := assert_.New(t)
	d := browsertest.New(fixturePages())
	s := newTestSession(t, d)
	s.driver = failingProperties{d}
	lesson := &catalog.Lesson{
		Name: "beginner-conversational-unit-1-lesson-1-Hello",
		URL:  site + "/lesson/beginner-conversational-unit-1-lesson-1-Hello/dialogue",
	}

	assert.NoError(s.DiscoverMedia(context.Background(), lesson))
	assert.Empty(lesson.VideoURL)
	assert.Empty(lesson.PDFURL)
	assert.Empty(lesson.DesiredPDFName)
	assert.Empty(lesson.MP3URL)
	assert.Empty(lesson.DesiredMP3Name)
}
