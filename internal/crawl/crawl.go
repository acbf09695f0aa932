// Package crawl walks the course site in a browser and records what it finds in a catalog.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/alanbriolat/lesson-archiver/browser"
	"github.com/alanbriolat/lesson-archiver/catalog"
	"github.com/alanbriolat/lesson-archiver/download"
	"github.com/alanbriolat/lesson-archiver/embed"
	"github.com/alanbriolat/lesson-archiver/generic"
	"github.com/alanbriolat/lesson-archiver/util"
)

var (
	ErrBlankCourseName = errors.New("blank course name")
	ErrNoCourseNames   = errors.New("no course names given")
)

type Credentials struct {
	Username string
	Password string
}

// ParseCourseNames splits a comma-separated list of course names, as shown on the course cards. Any blank entry is an
// error, since it almost certainly means the list is mistyped.
func ParseCourseNames(csv string) ([]string, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, ErrNoCourseNames
	}
	var names []string
	for i, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w at position %d in %q", ErrBlankCourseName, i+1, csv)
		}
		names = append(names, name)
	}
	return names, nil
}

// Session is a logged-in (or about to be) browser session on the course site.
type Session struct {
	driver   browser.Driver
	opts     Options
	log      *zap.SugaredLogger
	resolver *embed.Resolver
	now      func() time.Time
}

func NewSession(driver browser.Driver, opts Options) *Session {
	return &Session{
		driver:   driver,
		opts:     opts,
		log:      zap.S().Named("crawl"),
		resolver: embed.NewResolver(),
		now:      time.Now,
	}
}

// WithResolver replaces the resolver used to find direct video URLs.
func (s *Session) WithResolver(r *embed.Resolver) *Session {
	s.resolver = r
	return s
}

func (s *Session) settle(ctx context.Context) error {
	if s.opts.SettleDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.opts.SettleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Session) navigate(ctx context.Context, url string) error {
	s.log.Debugf("navigating to %v", url)
	if err := s.driver.Navigate(ctx, url); err != nil {
		return fmt.Errorf("failed to navigate to %v: %w", url, err)
	}
	return s.settle(ctx)
}

// require waits for an element that has to be there. Not finding it means the site has changed under us.
func (s *Session) require(ctx context.Context, loc browser.Locator) error {
	if err := s.driver.WaitFor(ctx, loc, s.opts.WaitTimeout); err != nil {
		current, _ := s.driver.CurrentURL(ctx)
		return fmt.Errorf("required element %v missing on %v: %w", loc, current, err)
	}
	return nil
}

func (s *Session) clickFirst(ctx context.Context, loc browser.Locator) error {
	clicked, err := browser.ClickFirst(ctx, s.driver, loc)
	if err != nil {
		return err
	}
	if !clicked {
		s.log.Debugf("nothing to click for %v", loc)
		return nil
	}
	return s.settle(ctx)
}

// Login signs in with the given credentials. Credentials are not checked here; a failed login shows up as missing
// content later on.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	sel := s.opts.Selectors
	s.log.Infof("logging in as %q", creds.Username)
	if err := s.navigate(ctx, s.opts.LoginURL); err != nil {
		return err
	}
	for _, field := range []struct {
		loc  browser.Locator
		text string
	}{
		{sel.Username, creds.Username},
		{sel.Password, creds.Password},
	} {
		if err := s.require(ctx, field.loc); err != nil {
			return err
		}
		if err := s.driver.Type(ctx, field.loc, field.text); err != nil {
			return fmt.Errorf("failed to type into %v: %w", field.loc, err)
		}
	}
	if err := s.settle(ctx); err != nil {
		return err
	}
	if err := s.require(ctx, sel.LoginButton); err != nil {
		return err
	}
	return s.clickFirst(ctx, sel.LoginButton)
}

// DiscoverCourses opens the course list and adds every course card to cat.
func (s *Session) DiscoverCourses(ctx context.Context, cat *catalog.Catalog) error {
	sel := s.opts.Selectors
	if err := s.require(ctx, sel.CoursesNav); err != nil {
		return err
	}
	if err := s.clickFirst(ctx, sel.CoursesNav); err != nil {
		return err
	}
	if err := s.require(ctx, browser.ByCSS(sel.CourseCard)); err != nil {
		return err
	}
	source, err := s.driver.PageSource(ctx)
	if err != nil {
		return err
	}
	current, err := s.driver.CurrentURL(ctx)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("failed to parse course list: %w", err)
	}
	doc.Find(sel.CourseCard).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Attr("href")
		if !ok {
			return
		}
		label := strings.TrimSpace(card.Find(sel.CourseLabel).First().Text())
		course := cat.AddCourse(util.ResolveReference(current, href), label)
		s.log.Debugf("found course %q (%v)", course.HumanFriendlyName, course.URL)
	})
	s.log.Infof("found %d courses", len(cat.Courses))
	return nil
}

// SelectCourses looks up courses by the names shown on their cards, each course at most once. Unknown names are
// logged and skipped.
func (s *Session) SelectCourses(cat *catalog.Catalog, names []string) []*catalog.Course {
	var selected []*catalog.Course
	seen := generic.NewSet[string]()
	for _, name := range names {
		course, ok := cat.FindCourseByHumanName(name).Get()
		if !ok {
			s.log.Warnf("no course named %q, skipping", name)
			continue
		}
		if seen.Add(course.Name) {
			selected = append(selected, course)
		}
	}
	return selected
}

// CrawlLevels adds the levels of course. Courses without levels get a single Level1 at the course URL.
func (s *Session) CrawlLevels(ctx context.Context, cat *catalog.Catalog, course *catalog.Course) error {
	sel := s.opts.Selectors
	if err := s.navigate(ctx, course.URL); err != nil {
		return err
	}
	if browser.FindOptional(ctx, s.driver, sel.LevelIndicator, s.opts.ProbeTimeout).IsNone() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.log.Infof("course %v has no levels", course.Name)
		cat.AddLevel(course, course.URL)
		return nil
	}
	indicators, err := s.driver.QueryAll(ctx, sel.LevelIndicator)
	if err != nil {
		return err
	}
	for i := range indicators {
		// Clicking re-renders the page, so earlier handles can't be trusted.
		current, err := s.driver.QueryAll(ctx, sel.LevelIndicator)
		if err != nil {
			return err
		}
		if i >= len(current) {
			break
		}
		if err := s.driver.Click(ctx, current[i]); err != nil {
			return fmt.Errorf("failed to select level %d: %w", i+1, err)
		}
		if err := s.settle(ctx); err != nil {
			return err
		}
		levelURL, err := s.driver.CurrentURL(ctx)
		if err != nil {
			return err
		}
		level := cat.AddLevel(course, levelURL)
		s.log.Debugf("found level %v (%v)", level.Name, level.URL)
	}
	return nil
}

// CrawlUnits adds every unit linked from the level page.
func (s *Session) CrawlUnits(ctx context.Context, cat *catalog.Catalog, level *catalog.Level) error {
	sel := s.opts.Selectors
	if err := s.navigate(ctx, level.URL); err != nil {
		return err
	}
	if err := s.require(ctx, sel.UnitLink); err != nil {
		return err
	}
	hrefs, err := browser.Properties(ctx, s.driver, sel.UnitLink, "href")
	if err != nil {
		return err
	}
	for _, href := range hrefs {
		if href == "" {
			continue
		}
		cat.AddUnit(level, href)
	}
	s.log.Infof("%v: %d units", level.Name, len(level.Units))
	return nil
}

// CrawlLessons adds every lesson linked from the unit page, apart from the learning tool linked from the site header.
func (s *Session) CrawlLessons(ctx context.Context, cat *catalog.Catalog, unit *catalog.Unit) error {
	sel := s.opts.Selectors
	if err := s.navigate(ctx, unit.URL); err != nil {
		return err
	}
	if err := s.require(ctx, sel.LessonLink); err != nil {
		return err
	}
	hrefs, err := browser.Properties(ctx, s.driver, sel.LessonLink, "href")
	if err != nil {
		return err
	}
	for _, href := range hrefs {
		if href == "" || href == cat.Site.ToolLessonURL {
			continue
		}
		cat.AddLesson(unit, href)
	}
	s.log.Infof("%v: %d lessons", unit.ShortName, len(unit.Lessons))
	return nil
}

// probeLink clicks a tab if it exists, and then reads the target of a link that appears under it.
func (s *Session) probeLink(ctx context.Context, tab browser.Locator, link browser.Locator) (string, bool, error) {
	found, ok := browser.FindOptional(ctx, s.driver, tab, s.opts.ProbeTimeout).Get()
	if !ok {
		return "", false, ctx.Err()
	}
	if err := s.driver.Click(ctx, found); err != nil {
		return "", false, err
	}
	if err := s.settle(ctx); err != nil {
		return "", false, err
	}
	anchor, ok := browser.FindOptional(ctx, s.driver, link, s.opts.ProbeTimeout).Get()
	if !ok {
		return "", false, ctx.Err()
	}
	href, err := s.driver.Property(ctx, anchor, "href")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", false, ctxErr
		}
		s.log.Warnf("failed to read link target: %v", err)
		return "", false, nil
	}
	return href, href != "", nil
}

// DiscoverMedia records which of video, notes and audio the lesson page offers. Lessons often lack some of them.
func (s *Session) DiscoverMedia(ctx context.Context, lesson *catalog.Lesson) error {
	sel := s.opts.Selectors
	log := s.log.With(zap.String("lesson", lesson.Name))
	if err := s.navigate(ctx, lesson.URL); err != nil {
		return err
	}

	if frame, ok := browser.FindOptional(ctx, s.driver, sel.VideoEmbed, s.opts.ProbeTimeout).Get(); ok {
		src, err := s.driver.Property(ctx, frame, "src")
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			log.Warnf("failed to read video embed source: %v", err)
		} else if src != "" {
			lesson.VideoURL = util.AppendQuery(src, s.opts.VideoHint)
		}
	} else if err := ctx.Err(); err != nil {
		return err
	} else {
		log.Info("lesson has no video")
	}

	pdfURL, ok, err := s.probeLink(ctx, sel.NotesTab, sel.NotesLink)
	if err != nil {
		return err
	}
	if ok {
		lesson.PDFURL = pdfURL
		lesson.DesiredPDFName = catalog.DesiredFileName(lesson.Name, ".pdf")
	} else {
		log.Info("lesson has no notes")
	}

	mp3URL, ok, err := s.probeLink(ctx, sel.AudioTab, sel.AudioLink)
	if err != nil {
		return err
	}
	if ok {
		lesson.MP3URL = mp3URL
		lesson.DesiredMP3Name = catalog.DesiredFileName(lesson.Name, ".mp3")
	} else {
		log.Info("lesson has no audio")
	}
	return nil
}

// ResolveVideos opens the player page of every lesson in unit that has one, and digs the direct video URL out of it.
func (s *Session) ResolveVideos(ctx context.Context, unit *catalog.Unit) error {
	for _, lesson := range unit.Lessons {
		if lesson.VideoURL == "" {
			continue
		}
		if err := s.navigate(ctx, lesson.VideoURL); err != nil {
			return err
		}
		source, err := s.driver.PageSource(ctx)
		if err != nil {
			return err
		}
		if binURL, ok := s.resolver.Resolve(source); ok {
			lesson.VideoBinURL = binURL
		} else {
			s.log.Warnf("no video file found for %v", lesson.Name)
		}
	}
	return nil
}

// CrawlCourse fills in the levels, units, lessons and media of course.
func (s *Session) CrawlCourse(ctx context.Context, cat *catalog.Catalog, course *catalog.Course) error {
	s.log.Infof("crawling course %q", course.HumanFriendlyName)
	if err := s.CrawlLevels(ctx, cat, course); err != nil {
		return err
	}
	for _, level := range course.Levels {
		if err := s.CrawlUnits(ctx, cat, level); err != nil {
			return err
		}
		for _, unit := range level.Units {
			if err := s.CrawlLessons(ctx, cat, unit); err != nil {
				return err
			}
			for _, lesson := range unit.Lessons {
				if err := s.DiscoverMedia(ctx, lesson); err != nil {
					return err
				}
			}
			if err := s.ResolveVideos(ctx, unit); err != nil {
				return err
			}
		}
	}
	totals := course.Totals()
	s.log.Infof("course %q: %d videos, %d mp3s, %d pdfs", course.HumanFriendlyName, totals.Videos, totals.MP3s, totals.PDFs)
	return nil
}

// WriteCourse saves course under its download directory, with the crawl time in the file name, and returns the path.
func (s *Session) WriteCourse(course *catalog.Course) (string, error) {
	layout := download.NewLayout(course, download.WithRoot(s.opts.OutputRoot))
	if s.opts.CreateFolders {
		if err := layout.CreateSkeleton(); err != nil {
			return "", fmt.Errorf("failed to create folders for %v: %w", course.Name, err)
		}
	}
	path := filepath.Join(layout.CourseDir(), catalog.CourseFileName(course, s.now()))
	if err := catalog.WriteCourseFile(path, course); err != nil {
		return "", err
	}
	s.log.Infof("wrote %v", path)
	return path, nil
}

// Run logs in, finds the named courses and crawls each one, saving it as soon as it is done. It returns the paths of
// the course files written.
func (s *Session) Run(ctx context.Context, cat *catalog.Catalog, creds Credentials, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, ErrNoCourseNames
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, ErrBlankCourseName
		}
	}
	started := s.now()
	if s.opts.ViewportWidth > 0 && s.opts.ViewportHeight > 0 {
		if err := s.driver.SetViewport(ctx, s.opts.ViewportWidth, s.opts.ViewportHeight); err != nil {
			return nil, err
		}
	}
	if err := s.Login(ctx, creds); err != nil {
		return nil, err
	}
	if err := s.DiscoverCourses(ctx, cat); err != nil {
		return nil, err
	}
	var written []string
	for _, course := range s.SelectCourses(cat, names) {
		if err := s.CrawlCourse(ctx, cat, course); err != nil {
			return written, fmt.Errorf("failed to crawl %q: %w", course.HumanFriendlyName, err)
		}
		path, err := s.WriteCourse(course)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	s.log.Infof("crawled %d courses in %v", len(written), s.now().Sub(started).Round(time.Second))
	return written, nil
}
