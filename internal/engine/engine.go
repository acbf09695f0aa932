// Package engine downloads the media of a crawled course and keeps the course file in step with what is on disk.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/r3labs/diff/v3"
	"go.uber.org/zap"

	"github.com/alanbriolat/lesson-archiver/catalog"
	"github.com/alanbriolat/lesson-archiver/download"
	"github.com/alanbriolat/lesson-archiver/generic"
	"github.com/alanbriolat/lesson-archiver/internal/journal"
	"github.com/alanbriolat/lesson-archiver/internal/media"
)

var (
	ErrMissingFile = errors.New("file missing after download")
	ErrNoFileName  = errors.New("no file name")
)

type Options struct {
	CleanupVideos bool
	CleanupMP3s   bool
	CleanupPDFs   bool

	DownloadVideos bool
	DownloadMP3s   bool
	DownloadPDFs   bool

	// MaxVideos stops video downloads once this many have succeeded in one run. None means no limit.
	MaxVideos generic.Option[int]
	// Root is the directory holding the course's download directory.
	Root string
}

func (o Options) Cleanup(kind catalog.MediaKind) bool {
	switch kind {
	case catalog.Video:
		return o.CleanupVideos
	case catalog.MP3:
		return o.CleanupMP3s
	case catalog.PDF:
		return o.CleanupPDFs
	default:
		return false
	}
}

func (o Options) Download(kind catalog.MediaKind) bool {
	switch kind {
	case catalog.Video:
		return o.DownloadVideos
	case catalog.MP3:
		return o.DownloadMP3s
	case catalog.PDF:
		return o.DownloadPDFs
	default:
		return false
	}
}

func (o Options) AnyCleanup() bool {
	return o.CleanupVideos || o.CleanupMP3s || o.CleanupPDFs
}

func (o Options) AnyDownload() bool {
	return o.DownloadVideos || o.DownloadMP3s || o.DownloadPDFs
}

// Deps are the engine's collaborators. Anything left nil gets a default: HTTP fetching, ffprobe for videos, frame
// counting for MP3s and no journal. Store is required.
type Deps struct {
	Store       catalog.Store
	Fetcher     Fetcher
	VideoProber media.Prober
	MP3Prober   media.Prober
	Journal     journal.Journal
}

// Counts is the number of files of each kind that reached a given state.
type Counts map[catalog.MediaKind]int

// Report summarises one run.
type Report struct {
	Downloaded Counts
	Failed     Counts
	Cleaned    Counts
	Elapsed    time.Duration
}

type Engine struct {
	course  *catalog.Course
	opts    Options
	deps    Deps
	layout  *download.Layout
	runID   string
	log     *zap.SugaredLogger
	now     func() time.Time
	report  Report
	totals  catalog.Totals
	handler map[catalog.MediaKind]kindHandler
}

func New(course *catalog.Course, opts Options, deps Deps) *Engine {
	if deps.Fetcher == nil {
		deps.Fetcher = &HTTPFetcher{}
	}
	if deps.VideoProber == nil {
		deps.VideoProber = media.FFProbe{Timeout: time.Minute}
	}
	if deps.MP3Prober == nil {
		deps.MP3Prober = media.MP3Frames{}
	}
	if deps.Journal == nil {
		deps.Journal = journal.NilJournal{}
	}
	root := opts.Root
	if root == "" {
		root = "."
	}
	e := &Engine{
		course: course,
		opts:   opts,
		deps:   deps,
		layout: download.NewLayout(course, download.WithRoot(root)),
		runID:  journal.NewRunID(),
		log:    zap.S().Named("engine").With(zap.String("course", course.Name)),
		now:    time.Now,
		report: Report{Downloaded: Counts{}, Failed: Counts{}, Cleaned: Counts{}},
	}
	e.handler = map[catalog.MediaKind]kindHandler{
		catalog.Video: videoHandler(deps.VideoProber),
		catalog.MP3:   mp3Handler(deps.MP3Prober),
		catalog.PDF:   pdfHandler(),
	}
	return e
}

func (e *Engine) Layout() *download.Layout {
	return e.layout
}

func (e *Engine) persist() error {
	if err := e.deps.Store.Save(e.course); err != nil {
		return fmt.Errorf("failed to save course %v: %w", e.course.Name, err)
	}
	return nil
}

func (e *Engine) record(lesson *catalog.Lesson, kind catalog.MediaKind, outcome journal.Outcome, n int64, elapsed time.Duration, cause error) {
	attempt := journal.Attempt{
		RunID:   e.runID,
		Course:  e.course.Name,
		Lesson:  lesson.Name,
		Kind:    kind,
		Outcome: outcome,
		Bytes:   n,
		Elapsed: elapsed,
		At:      e.now(),
	}
	if cause != nil {
		attempt.Error = cause.Error()
	}
	if err := e.deps.Journal.Record(attempt); err != nil {
		e.log.Warnf("failed to record attempt: %v", err)
	}
}

func (e *Engine) logChanges(lesson *catalog.Lesson, before catalog.Lesson) {
	changes, err := diff.Diff(before, *lesson)
	if err != nil {
		e.log.Errorf("failed to diff old and new lesson state: %v", err)
		return
	}
	for _, change := range changes {
		e.log.Debugf("%v: %v: %#v -> %#v", lesson.Name, change.Path, change.From, change.To)
	}
}

// Run performs cleanup and then downloads, as enabled by the options, and returns what happened.
func (e *Engine) Run(ctx context.Context) (Report, error) {
	started := e.now()
	if e.opts.AnyCleanup() {
		if err := e.Cleanup(ctx); err != nil {
			return e.finish(started), err
		}
	} else {
		e.log.Info("no cleanup requested")
	}

	e.totals = e.course.Totals()
	e.log.Infof("lesson files available: %d videos, %d mp3s, %d pdfs", e.totals.Videos, e.totals.MP3s, e.totals.PDFs)

	if !e.opts.AnyDownload() {
		e.log.Info("no downloads requested")
		return e.finish(started), nil
	}
	if limit, ok := e.opts.MaxVideos.Get(); ok {
		e.log.Infof("limit of %d video downloads this run", limit)
	}
	err := e.Download(ctx)
	return e.finish(started), err
}

func (e *Engine) finish(started time.Time) Report {
	e.report.Elapsed = e.now().Sub(started)
	r := e.report
	e.log.Infof("finished in %v: downloaded %d videos, %d mp3s, %d pdfs (%d failed)",
		r.Elapsed.Round(time.Millisecond),
		r.Downloaded[catalog.Video], r.Downloaded[catalog.MP3], r.Downloaded[catalog.PDF],
		r.Failed[catalog.Video]+r.Failed[catalog.MP3]+r.Failed[catalog.PDF])
	return r
}

// Cleanup marks every lesson as not downloaded for each kind enabled in the options, and deletes the files.
func (e *Engine) Cleanup(ctx context.Context) error {
	e.log.Info("cleaning up")
	var err error
	e.course.EachLesson(func(_ *catalog.Level, _ *catalog.Unit, lesson *catalog.Lesson) {
		if err != nil {
			return
		}
		if err = ctx.Err(); err != nil {
			return
		}
		for _, kind := range catalog.MediaKinds {
			if !e.opts.Cleanup(kind) {
				continue
			}
			wasDownloaded := lesson.Downloaded(kind)
			lesson.ClearState(kind)
			for _, name := range e.handler[kind].files(lesson) {
				download.DeleteIfExists(e.layout.Path(kind, name))
			}
			if wasDownloaded {
				e.report.Cleaned[kind]++
				e.record(lesson, kind, journal.Cleaned, 0, 0, nil)
			}
			if err = e.persist(); err != nil {
				return
			}
		}
	})
	return err
}

// Download fetches every missing file of each enabled kind, lesson by lesson, saving the course after each one.
func (e *Engine) Download(ctx context.Context) error {
	if e.totals == (catalog.Totals{}) {
		e.totals = e.course.Totals()
	}
	for _, level := range e.course.Levels {
		e.log.Infof("%v", level.Name)
		for _, unit := range level.Units {
			e.log.Infof("  %v", unit.ShortName)
			for _, lesson := range unit.Lessons {
				e.log.Infof("    %v", lesson.Name)
				for _, kind := range catalog.MediaKinds {
					if !e.opts.Download(kind) {
						continue
					}
					if err := e.fetch(ctx, lesson, kind); err != nil {
						return err
					}
				}
				e.logProgress()
			}
		}
	}
	return nil
}

func (e *Engine) logProgress() {
	downloaded := e.course.Totals()
	e.log.Infof("downloaded so far: videos %d/%d, mp3s %d/%d, pdfs %d/%d",
		downloaded.VideosDownloaded, e.totals.Videos,
		downloaded.MP3sDownloaded, e.totals.MP3s,
		downloaded.PDFsDownloaded, e.totals.PDFs)
}

// fetch downloads one file. Failures of the file itself are logged, recorded and leave the lesson marked as not
// downloaded; only cancellation and failure to save the course are returned.
func (e *Engine) fetch(ctx context.Context, lesson *catalog.Lesson, kind catalog.MediaKind) error {
	h := e.handler[kind]
	log := e.log.With(zap.String("lesson", lesson.Name), zap.String("kind", string(kind)))
	url := h.url(lesson)
	if url == "" {
		log.Debug("no file available")
		return nil
	}
	if lesson.Downloaded(kind) {
		log.Debug("skipping, already downloaded")
		return nil
	}
	if limit, ok := e.opts.MaxVideos.Get(); ok && kind == catalog.Video && e.report.Downloaded[catalog.Video] >= limit {
		log.Infof("skipping, limit of %d videos reached", limit)
		return nil
	}
	if failures, err := e.deps.Journal.Failures(e.course.Name, lesson.Name, kind); err == nil && failures > 0 {
		log.Warnf("retrying after %d failed attempts", failures)
	}

	before := *lesson
	defer e.logChanges(lesson, before)

	fail := func(outcome journal.Outcome, n int64, elapsed time.Duration, cause error) error {
		log.Errorf("download failed: %v", cause)
		e.report.Failed[kind]++
		e.record(lesson, kind, outcome, n, elapsed, cause)
		return e.persist()
	}
	reset := func() {
		lesson.ClearState(kind)
		for _, name := range h.files(lesson) {
			download.DeleteIfExists(e.layout.Path(kind, name))
		}
	}

	remote, err := h.remoteName(lesson)
	if err != nil {
		reset()
		return fail(journal.Failed, 0, 0, err)
	}
	final := h.finalName(lesson)
	if final == "" {
		reset()
		return fail(journal.Failed, 0, 0, ErrNoFileName)
	}

	dir := e.layout.Dir(kind)
	started := e.now()
	log.Infof("downloading %v", url)
	n, err := e.deps.Fetcher.Fetch(ctx, url, dir, remote)
	elapsed := e.now().Sub(started)
	if err != nil {
		reset()
		if ctxErr := ctx.Err(); ctxErr != nil {
			if perr := e.persist(); perr != nil {
				return perr
			}
			return ctxErr
		}
		return fail(journal.Failed, n, elapsed, err)
	}
	remotePath := filepath.Join(dir, remote)
	if !download.Exists(remotePath) {
		reset()
		return fail(journal.Failed, n, elapsed, ErrMissingFile)
	}
	finalPath := filepath.Join(dir, final)
	if remote != final {
		if err := os.Rename(remotePath, finalPath); err != nil {
			reset()
			return fail(journal.Failed, n, elapsed, fmt.Errorf("failed to rename %v to %v: %w", remote, final, err))
		}
		log.Debugf("renamed %v to %v", remote, final)
	}

	if h.prober == nil {
		h.succeed(lesson, 0, elapsed)
	} else if seconds, err := h.prober.Duration(ctx, finalPath); err != nil {
		// The file is kept for inspection, but without a length it doesn't count as downloaded.
		lesson.ClearState(kind)
		h.setElapsed(lesson, elapsed)
		return fail(journal.ProbeFailed, n, elapsed, fmt.Errorf("failed to read length of %v: %w", final, err))
	} else {
		h.succeed(lesson, seconds, elapsed)
	}

	log.Infof("downloaded %v (%d bytes) in %v", final, n, elapsed.Round(time.Millisecond))
	e.report.Downloaded[kind]++
	e.record(lesson, kind, journal.Downloaded, n, elapsed, nil)
	return e.persist()
}
