// Package config holds the settings of each command, as read from flags and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/alanbriolat/lesson-archiver/generic"
	"github.com/alanbriolat/lesson-archiver/internal/crawl"
	"github.com/alanbriolat/lesson-archiver/internal/engine"
)

var (
	ErrNoCourseFile      = errors.New("no course file specified")
	ErrCourseFileMissing = errors.New("course file does not exist")
	ErrInvalidMaxVideos  = errors.New("maximum videos to download is not a non-negative integer")
	ErrEmptyOutputRoot   = errors.New("output directory is empty")
	ErrInvalidDuration   = errors.New("duration must not be negative")
)

type CrawlConfig struct {
	Username      string
	Password      string
	Courses       string
	CreateFolders bool
	OutputRoot    string
	SettleDelay   time.Duration
	ProbeTimeout  time.Duration
	Headless      bool
}

func DefaultCrawlConfig() CrawlConfig {
	defaults := crawl.DefaultOptions()
	return CrawlConfig{
		OutputRoot:   defaults.OutputRoot,
		SettleDelay:  defaults.SettleDelay,
		ProbeTimeout: defaults.ProbeTimeout,
	}
}

// Validate reports every problem with the configuration at once.
func (c *CrawlConfig) Validate() error {
	var result *multierror.Error
	if _, err := crawl.ParseCourseNames(c.Courses); err != nil {
		result = multierror.Append(result, err)
	}
	if strings.TrimSpace(c.OutputRoot) == "" {
		result = multierror.Append(result, ErrEmptyOutputRoot)
	}
	if c.SettleDelay < 0 {
		result = multierror.Append(result, fmt.Errorf("settle delay: %w", ErrInvalidDuration))
	}
	if c.ProbeTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("probe timeout: %w", ErrInvalidDuration))
	}
	return result.ErrorOrNil()
}

// CourseNames returns the parsed course list; only meaningful after Validate succeeded.
func (c *CrawlConfig) CourseNames() []string {
	names, _ := crawl.ParseCourseNames(c.Courses)
	return names
}

func (c *CrawlConfig) Credentials() crawl.Credentials {
	return crawl.Credentials{Username: c.Username, Password: c.Password}
}

func (c *CrawlConfig) Options() crawl.Options {
	opts := crawl.DefaultOptions()
	opts.OutputRoot = c.OutputRoot
	opts.CreateFolders = c.CreateFolders
	opts.SettleDelay = c.SettleDelay
	opts.ProbeTimeout = c.ProbeTimeout
	return opts
}

type DownloadConfig struct {
	CourseFile string
	Root       string
	// MaxVideos is kept as text, since an empty value means "no limit".
	MaxVideos   string
	JournalPath string

	CleanupVideos bool
	CleanupMP3s   bool
	CleanupPDFs   bool

	DownloadVideos bool
	DownloadMP3s   bool
	DownloadPDFs   bool
}

func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		Root:        ".",
		JournalPath: "lesson-archiver.db",
	}
}

// ParseMaxVideos parses a video download limit. An empty value means no limit, while "0" allows no videos at all.
func ParseMaxVideos(s string) (generic.Option[int], error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return generic.None[int](), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return generic.None[int](), fmt.Errorf("%w: %q", ErrInvalidMaxVideos, s)
	}
	return generic.Some(n), nil
}

func (c *DownloadConfig) Validate() error {
	var result *multierror.Error
	if strings.TrimSpace(c.CourseFile) == "" {
		result = multierror.Append(result, ErrNoCourseFile)
	} else if info, err := os.Stat(c.CourseFile); err != nil || info.IsDir() {
		result = multierror.Append(result, fmt.Errorf("%w: %v", ErrCourseFileMissing, c.CourseFile))
	}
	if strings.TrimSpace(c.Root) == "" {
		result = multierror.Append(result, ErrEmptyOutputRoot)
	}
	if _, err := ParseMaxVideos(c.MaxVideos); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (c *DownloadConfig) Options() (engine.Options, error) {
	maxVideos, err := ParseMaxVideos(c.MaxVideos)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		CleanupVideos:  c.CleanupVideos,
		CleanupMP3s:    c.CleanupMP3s,
		CleanupPDFs:    c.CleanupPDFs,
		DownloadVideos: c.DownloadVideos,
		DownloadMP3s:   c.DownloadMP3s,
		DownloadPDFs:   c.DownloadPDFs,
		MaxVideos:      maxVideos,
		Root:           c.Root,
	}, nil
}
