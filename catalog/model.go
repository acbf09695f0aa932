// Package catalog holds the course → level → unit → lesson tree built by a crawl and consumed by downloads, along
// with the naming rules for the files each lesson produces.
package catalog

import (
	"strconv"
	"strings"

	"github.com/alanbriolat/lesson-archiver/generic"
	"github.com/alanbriolat/lesson-archiver/util"
)

// Site describes the URL shapes the catalog derives its keys from.
type Site struct {
	BaseURL         string
	CourseURLPrefix string
	UnitURLPrefix   string
	LessonURLPrefix string
	// ToolURLPrefix and ToolLessonURL describe a learning-tool page that is linked like a lesson from every unit.
	ToolURLPrefix string
	ToolLessonURL string
}

var DefaultSite = Site{
	BaseURL:         "https://yoyochinese.com",
	CourseURLPrefix: "https://yoyochinese.com/courses/",
	UnitURLPrefix:   "https://yoyochinese.com/unit/",
	LessonURLPrefix: "https://yoyochinese.com/lesson/",
	ToolURLPrefix:   "https://yoyochinese.com/chinese-learning-tools/",
	ToolLessonURL:   "https://yoyochinese.com/chinese-learning-tools/Mandarin-Chinese-pronunciation-lesson/pinyin-chart-table",
}

type Course struct {
	Name              string   `json:"name"`
	HumanFriendlyName string   `json:"humanFriendlyName"`
	URL               string   `json:"url"`
	DownloadSubDir    string   `json:"downloadSubDir"`
	Levels            []*Level `json:"levels"`
}

type Level struct {
	Name  string  `json:"name"`
	URL   string  `json:"url"`
	Units []*Unit `json:"units"`
}

type Unit struct {
	Name      string    `json:"name"`
	ShortName string    `json:"shortName"`
	URL       string    `json:"url"`
	Lessons   []*Lesson `json:"lessons"`
}

// Lesson is a single lesson page and the media found on it. The fields after DesiredMP4Name are download state,
// only ever written by the download engine; a missing field means "not downloaded yet".
type Lesson struct {
	Name           string `json:"name"`
	URL            string `json:"url"`
	VideoURL       string `json:"videoUrl,omitempty"`
	VideoBinURL    string `json:"videoBinUrl,omitempty"`
	PDFURL         string `json:"pdfUrl,omitempty"`
	DesiredPDFName string `json:"desiredPDFName,omitempty"`
	MP3URL         string `json:"mp3Url,omitempty"`
	DesiredMP3Name string `json:"desiredMP3Name,omitempty"`
	DesiredMP4Name string `json:"desiredMP4Name"`

	VideoDownloaded                   bool    `json:"videoDownloaded,omitempty"`
	VideoLengthInSeconds              float64 `json:"videoLengthInSeconds,omitempty"`
	VideoLengthHumanFriendly          string  `json:"videoLengthHumanFriendly,omitempty"`
	DownloadDurationInMilliseconds    int64   `json:"downloadDurationInMilliseconds,omitempty"`
	PDFDownloaded                     bool    `json:"pdfDownloaded,omitempty"`
	MP3Downloaded                     bool    `json:"mp3Downloaded,omitempty"`
	MP3LengthInSeconds                float64 `json:"mp3LengthInSeconds,omitempty"`
	MP3LengthHumanFriendly            string  `json:"mp3LengthHumanFriendly,omitempty"`
	MP3DownloadDurationInMilliseconds int64   `json:"mp3DownloadDurationInMilliseconds,omitempty"`
}

// Catalog is the in-memory result of a crawl: courses in discovery order.
type Catalog struct {
	Site    Site
	Courses []*Course
}

func New(site Site) *Catalog {
	return &Catalog{Site: site}
}

// CourseName derives a course key from its URL.
func (c *Catalog) CourseName(courseURL string) string {
	return strings.TrimPrefix(courseURL, c.Site.CourseURLPrefix)
}

// LevelName derives "Level<N>" from the numeric last path segment of a level URL, defaulting N to 1.
func (c *Catalog) LevelName(levelURL string) string {
	rest := strings.TrimPrefix(levelURL, c.Site.CourseURLPrefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	n := leadingInt(util.LastPathSegment(rest))
	if n < 0 {
		n = 1
	}
	return "Level" + strconv.Itoa(n)
}

func (c *Catalog) UnitName(unitURL string) string {
	return strings.TrimPrefix(unitURL, c.Site.UnitURLPrefix)
}

// LessonName derives a lesson key from the first path segment after the lesson prefix, e.g.
// ".../lesson/beginner-conversational-unit-60-lesson-2-Directions/dialogue" gives
// "beginner-conversational-unit-60-lesson-2-Directions". The learning-tool page is named by its path under the tool
// prefix instead.
func (c *Catalog) LessonName(lessonURL string) string {
	if c.Site.ToolLessonURL != "" && lessonURL == c.Site.ToolLessonURL {
		return strings.TrimPrefix(lessonURL, c.Site.ToolURLPrefix)
	}
	name := strings.TrimPrefix(lessonURL, c.Site.LessonURLPrefix)
	return strings.SplitN(name, "/", 2)[0]
}

// leadingInt parses the leading decimal digits of s, or returns -1 if there are none.
func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return -1
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return -1
	}
	return n
}

// AddCourse registers a course by URL, or returns the already-registered course with the same name unchanged.
func (c *Catalog) AddCourse(courseURL string, humanFriendlyName string) *Course {
	name := c.CourseName(courseURL)
	if existing, ok := c.FindCourse(name).Get(); ok {
		return existing
	}
	course := &Course{
		Name:              name,
		HumanFriendlyName: strings.TrimSpace(humanFriendlyName),
		URL:               courseURL,
		DownloadSubDir:    name,
		Levels:            []*Level{},
	}
	c.Courses = append(c.Courses, course)
	return course
}

func (c *Catalog) FindCourse(name string) generic.Option[*Course] {
	for _, course := range c.Courses {
		if course.Name == name {
			return generic.Some(course)
		}
	}
	return generic.None[*Course]()
}

// FindCourseByHumanName matches the label shown on the course card, ignoring case and surrounding space.
func (c *Catalog) FindCourseByHumanName(label string) generic.Option[*Course] {
	label = strings.TrimSpace(label)
	for _, course := range c.Courses {
		if strings.EqualFold(course.HumanFriendlyName, label) {
			return generic.Some(course)
		}
	}
	return generic.None[*Course]()
}

// AddLevel registers a level of course by URL, or returns the existing level with the same computed name.
func (c *Catalog) AddLevel(course *Course, levelURL string) *Level {
	name := c.LevelName(levelURL)
	if existing, ok := course.FindLevel(name).Get(); ok {
		return existing
	}
	level := &Level{Name: name, URL: levelURL, Units: []*Unit{}}
	course.Levels = append(course.Levels, level)
	return level
}

// AddUnit registers a unit of level by URL, or returns the existing unit with the same name.
func (c *Catalog) AddUnit(level *Level, unitURL string) *Unit {
	name := c.UnitName(unitURL)
	if existing, ok := level.FindUnit(name).Get(); ok {
		return existing
	}
	unit := &Unit{
		Name:      name,
		ShortName: ShortUnitName(name),
		URL:       unitURL,
		Lessons:   []*Lesson{},
	}
	level.Units = append(level.Units, unit)
	return unit
}

// AddLesson registers a lesson of unit by URL, or returns the existing lesson with the same name.
func (c *Catalog) AddLesson(unit *Unit, lessonURL string) *Lesson {
	name := c.LessonName(lessonURL)
	if existing, ok := unit.FindLesson(name).Get(); ok {
		return existing
	}
	lesson := &Lesson{
		Name:           name,
		URL:            lessonURL,
		DesiredMP4Name: DesiredFileName(name, ".mp4"),
	}
	unit.Lessons = append(unit.Lessons, lesson)
	return lesson
}

func (c *Course) FindLevel(name string) generic.Option[*Level] {
	for _, level := range c.Levels {
		if level.Name == name {
			return generic.Some(level)
		}
	}
	return generic.None[*Level]()
}

func (l *Level) FindUnit(name string) generic.Option[*Unit] {
	for _, unit := range l.Units {
		if unit.Name == name {
			return generic.Some(unit)
		}
	}
	return generic.None[*Unit]()
}

func (u *Unit) FindLesson(name string) generic.Option[*Lesson] {
	for _, lesson := range u.Lessons {
		if lesson.Name == name {
			return generic.Some(lesson)
		}
	}
	return generic.None[*Lesson]()
}

// EachLesson visits every lesson of the course in discovery order.
func (c *Course) EachLesson(f func(level *Level, unit *Unit, lesson *Lesson)) {
	for _, level := range c.Levels {
		for _, unit := range level.Units {
			for _, lesson := range unit.Lessons {
				f(level, unit, lesson)
			}
		}
	}
}

// Totals counts lessons with a media URL of each kind, and how many of those are marked downloaded.
type Totals struct {
	Videos, MP3s, PDFs                               int
	VideosDownloaded, MP3sDownloaded, PDFsDownloaded int
}

func (c *Course) Totals() Totals {
	var t Totals
	c.EachLesson(func(_ *Level, _ *Unit, lesson *Lesson) {
		if lesson.HasVideo() {
			t.Videos++
			if lesson.VideoDownloaded {
				t.VideosDownloaded++
			}
		}
		if lesson.HasMP3() {
			t.MP3s++
			if lesson.MP3Downloaded {
				t.MP3sDownloaded++
			}
		}
		if lesson.HasPDF() {
			t.PDFs++
			if lesson.PDFDownloaded {
				t.PDFsDownloaded++
			}
		}
	})
	return t
}
