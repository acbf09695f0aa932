package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	lesson_archiver "github.com/alanbriolat/lesson-archiver"
	"github.com/alanbriolat/lesson-archiver/async"
	"github.com/alanbriolat/lesson-archiver/browser"
	"github.com/alanbriolat/lesson-archiver/catalog"
	"github.com/alanbriolat/lesson-archiver/internal/config"
	"github.com/alanbriolat/lesson-archiver/internal/crawl"
	"github.com/alanbriolat/lesson-archiver/internal/engine"
	"github.com/alanbriolat/lesson-archiver/internal/journal"
	"github.com/alanbriolat/lesson-archiver/internal/media"
)

func main() {
	// Settings usually live in a .env file next to the catalog; it's fine for there to be none.
	_ = godotenv.Load()

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	logConfig := zap.NewDevelopmentConfig()
	logConfig.Level = level
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := logConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = lesson_archiver.WithLogger(ctx, logger.Sugar())

	app := &cli.App{
		Name:  "lesson-archiver",
		Usage: "crawl a course catalog and download its lesson media",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "minimum `LEVEL` to log (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			return level.UnmarshalText([]byte(c.String("log-level")))
		},
		Commands: []*cli.Command{
			crawlCommand(),
			downloadCommand(),
			cleanupCommand(),
		},
		HideHelpCommand: true,
	}

	err = async.Await(ctx, async.Run(func() error { return app.RunContext(ctx, os.Args) }), stop)
	if err != nil {
		logger.Fatal(err.Error())
	}
}

func crawlCommand() *cli.Command {
	defaults := config.DefaultCrawlConfig()
	return &cli.Command{
		Name:  "crawl",
		Usage: "log in, crawl the selected courses and save one catalog file per course",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", EnvVars: []string{"USER_NAME"}, Usage: "login `EMAIL`"},
			&cli.StringFlag{Name: "password", EnvVars: []string{"USER_PASSWORD"}, Usage: "login `PASSWORD`"},
			&cli.StringFlag{Name: "courses", EnvVars: []string{"COURSES_TO_CRAWL"}, Usage: "comma-separated course `NAMES`, as shown on the course list"},
			&cli.BoolFlag{Name: "create-folders", EnvVars: []string{"CREATE_FOLDER_STRUCTURE"}, Usage: "create the download folders of each course"},
			&cli.StringFlag{Name: "output", Value: defaults.OutputRoot, EnvVars: []string{"DOWNLOAD_ROOT"}, Usage: "save course folders under `DIR`"},
			&cli.DurationFlag{Name: "settle-delay", Value: defaults.SettleDelay, EnvVars: []string{"SETTLE_DELAY"}, Usage: "pause after each page change"},
			&cli.DurationFlag{Name: "probe-timeout", Value: defaults.ProbeTimeout, EnvVars: []string{"PROBE_TIMEOUT"}, Usage: "how long to look for optional page elements"},
			&cli.BoolFlag{Name: "headless", EnvVars: []string{"HEADLESS"}, Usage: "run Chrome without a window"},
		},
		Action: func(c *cli.Context) error {
			cfg := config.CrawlConfig{
				Username:      c.String("username"),
				Password:      c.String("password"),
				Courses:       c.String("courses"),
				CreateFolders: c.Bool("create-folders"),
				OutputRoot:    c.String("output"),
				SettleDelay:   c.Duration("settle-delay"),
				ProbeTimeout:  c.Duration("probe-timeout"),
				Headless:      c.Bool("headless"),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runCrawl(c.Context, cfg)
		},
	}
}

func runCrawl(ctx context.Context, cfg config.CrawlConfig) error {
	logger := lesson_archiver.Logger(ctx)
	chrome, err := browser.NewChrome(ctx, browser.ChromeOptions{Headless: cfg.Headless})
	if err != nil {
		return err
	}
	defer chrome.Close()

	session := crawl.NewSession(chrome, cfg.Options())
	written, err := session.Run(ctx, catalog.New(catalog.DefaultSite), cfg.Credentials(), cfg.CourseNames())
	for _, path := range written {
		logger.Infof("course saved to %v", path)
	}
	return err
}

func downloadFlags(defaults config.DownloadConfig, withDownloads bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "course", EnvVars: []string{"COURSE_TO_PROCESS"}, Usage: "course catalog `FILE` written by crawl"},
		&cli.StringFlag{Name: "output", Value: defaults.Root, EnvVars: []string{"DOWNLOAD_ROOT"}, Usage: "course folders are under `DIR`"},
		&cli.StringFlag{Name: "journal", Value: defaults.JournalPath, EnvVars: []string{"JOURNAL_PATH"}, Usage: "attempt history database `FILE` (empty to disable)"},
		&cli.BoolFlag{Name: "cleanup-videos", EnvVars: []string{"PERFORM_VIDEOS_CLEANUP"}, Usage: "forget and delete downloaded videos first"},
		&cli.BoolFlag{Name: "cleanup-mp3s", EnvVars: []string{"PERFORM_MP3S_CLEANUP"}, Usage: "forget and delete downloaded mp3s first"},
		&cli.BoolFlag{Name: "cleanup-pdfs", EnvVars: []string{"PERFORM_PDFS_CLEANUP"}, Usage: "forget and delete downloaded pdfs first"},
	}
	if withDownloads {
		flags = append(flags,
			&cli.BoolFlag{Name: "videos", EnvVars: []string{"PERFORM_VIDEOS_DOWNLOAD"}, Usage: "download videos"},
			&cli.BoolFlag{Name: "mp3s", EnvVars: []string{"PERFORM_MP3S_DOWNLOAD"}, Usage: "download mp3s"},
			&cli.BoolFlag{Name: "pdfs", EnvVars: []string{"PERFORM_PDFS_DOWNLOAD"}, Usage: "download pdfs"},
			&cli.StringFlag{Name: "max-videos", EnvVars: []string{"MAX_VIDEOS_TO_DOWNLOAD"}, Usage: "stop after `N` videos (empty for no limit, 0 for none)"},
		)
	}
	return flags
}

func downloadConfig(c *cli.Context) config.DownloadConfig {
	return config.DownloadConfig{
		CourseFile:     c.String("course"),
		Root:           c.String("output"),
		JournalPath:    c.String("journal"),
		MaxVideos:      c.String("max-videos"),
		CleanupVideos:  c.Bool("cleanup-videos"),
		CleanupMP3s:    c.Bool("cleanup-mp3s"),
		CleanupPDFs:    c.Bool("cleanup-pdfs"),
		DownloadVideos: c.Bool("videos"),
		DownloadMP3s:   c.Bool("mp3s"),
		DownloadPDFs:   c.Bool("pdfs"),
	}
}

func downloadCommand() *cli.Command {
	return &cli.Command{
		Name:  "download",
		Usage: "download the media of a crawled course, optionally cleaning up first",
		Flags: downloadFlags(config.DefaultDownloadConfig(), true),
		Action: func(c *cli.Context) error {
			return runEngine(c.Context, downloadConfig(c))
		},
	}
}

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "mark media of a crawled course as not downloaded and delete the files",
		Flags: downloadFlags(config.DefaultDownloadConfig(), false),
		Action: func(c *cli.Context) error {
			cfg := downloadConfig(c)
			if !cfg.CleanupVideos && !cfg.CleanupMP3s && !cfg.CleanupPDFs {
				return fmt.Errorf("nothing to clean up: use --cleanup-videos, --cleanup-mp3s or --cleanup-pdfs")
			}
			return runEngine(c.Context, cfg)
		},
	}
}

func runEngine(ctx context.Context, cfg config.DownloadConfig) error {
	logger := lesson_archiver.Logger(ctx)
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	course, err := catalog.LoadCourse(cfg.CourseFile)
	if err != nil {
		return err
	}
	logger.Infof("processing %q from %v", course.HumanFriendlyName, cfg.CourseFile)

	var j journal.Journal = journal.NilJournal{}
	if cfg.JournalPath != "" {
		if j, err = journal.Open(cfg.JournalPath); err != nil {
			return err
		}
	}
	defer j.Close()

	e := engine.New(course, opts, engine.Deps{
		Store:       &catalog.FileStore{Path: cfg.CourseFile},
		Fetcher:     &engine.HTTPFetcher{Progress: os.Stderr},
		VideoProber: media.FFProbe{Timeout: time.Minute},
		MP3Prober:   media.MP3Frames{},
		Journal:     j,
	})
	report, err := e.Run(ctx)
	logger.Infof("elapsed %v", report.Elapsed.Round(time.Second))
	return err
}
