package crawl

import (
	"time"

	"github.com/alanbriolat/lesson-archiver/browser"
)

// Selectors locate the parts of the site the crawler interacts with. Several controls have no stable class name and
// are found by their visible text instead.
type Selectors struct {
	Username    browser.Locator
	Password    browser.Locator
	LoginButton browser.Locator
	CoursesNav  browser.Locator
	// CourseCard is a CSS selector for course links, applied to the course list markup. CourseLabel is applied within
	// each card.
	CourseCard     string
	CourseLabel    string
	LevelIndicator browser.Locator
	UnitLink       browser.Locator
	LessonLink     browser.Locator
	VideoEmbed     browser.Locator
	NotesTab       browser.Locator
	NotesLink      browser.Locator
	AudioTab       browser.Locator
	AudioLink      browser.Locator
}

func DefaultSelectors() Selectors {
	return Selectors{
		Username:       browser.ByCSS("input.email-input"),
		Password:       browser.ByCSS("input.password-input"),
		LoginButton:    browser.ByXPath(`//span[text()="Login with Email"]`),
		CoursesNav:     browser.ByXPath(`//span[text()="Courses"]`),
		CourseCard:     `a[href^="/courses/"]`,
		CourseLabel:    "h2",
		LevelIndicator: browser.ByXPath(`//p[text()[contains(., "Level")]]`),
		UnitLink:       browser.ByCSS("a.icon-link"),
		LessonLink:     browser.ByXPath(`//a[contains(@href,"lesson")]`),
		VideoEmbed:     browser.ByCSS("iframe.wistia-embed"),
		NotesTab:       browser.ByXPath(`//*[text()="Notes"]`),
		NotesLink:      browser.ByXPath(`//a[contains(., "Download Lecture Notes")]`),
		AudioTab:       browser.ByXPath(`//*[text()="Audio"]`),
		AudioLink:      browser.ByXPath(`//a[contains(., "Download Audio")]`),
	}
}

type Options struct {
	LoginURL  string
	Selectors Selectors
	// SettleDelay is paid after every navigation and click, before reading the page, to let client-side rendering
	// catch up.
	SettleDelay time.Duration
	// ProbeTimeout bounds waits for elements that may legitimately be absent.
	ProbeTimeout time.Duration
	// WaitTimeout bounds waits for elements that must be present.
	WaitTimeout time.Duration
	// VideoHint is appended to the query of each video player URL.
	VideoHint string
	// OutputRoot is where each course's directory and catalog file are written.
	OutputRoot     string
	CreateFolders  bool
	ViewportWidth  int
	ViewportHeight int
}

func DefaultOptions() Options {
	return Options{
		LoginURL:       "https://yoyochinese.com/auth/login",
		Selectors:      DefaultSelectors(),
		SettleDelay:    1500 * time.Millisecond,
		ProbeTimeout:   3 * time.Second,
		WaitTimeout:    30 * time.Second,
		VideoHint:      "videoFoam=true",
		OutputRoot:     ".",
		ViewportWidth:  1080,
		ViewportHeight: 1024,
	}
}
