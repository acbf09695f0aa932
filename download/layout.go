// Package download decides where a course's files live on disk.
package download

import (
	"errors"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/alanbriolat/lesson-archiver/catalog"
)

const readmeName = "README.md"

type layoutConfig struct {
	root   string
	readme string
}

type LayoutOption func(*layoutConfig)

// WithRoot sets the directory every course directory is created under. Defaults to the working directory.
func WithRoot(dir string) LayoutOption {
	return func(c *layoutConfig) {
		c.root = dir
	}
}

// WithReadme sets the placeholder text CreateSkeleton writes into each media directory.
func WithReadme(text string) LayoutOption {
	return func(c *layoutConfig) {
		c.readme = text
	}
}

// Layout is the directory tree of one course:
//
//	<root>/<downloadSubDir>/videos
//	<root>/<downloadSubDir>/mp3s
//	<root>/<downloadSubDir>/pdfs
type Layout struct {
	config layoutConfig
	subDir string
}

func NewLayout(course *catalog.Course, opts ...LayoutOption) *Layout {
	config := layoutConfig{
		root:   ".",
		readme: "Downloaded files for this course are saved here.\n",
	}
	for _, opt := range opts {
		opt(&config)
	}
	subDir := course.DownloadSubDir
	if subDir == "" {
		subDir = course.Name
	}
	return &Layout{config: config, subDir: subDir}
}

func (l *Layout) Root() string {
	return l.config.root
}

func (l *Layout) CourseDir() string {
	return filepath.Join(l.config.root, l.subDir)
}

func (l *Layout) Dir(kind catalog.MediaKind) string {
	return filepath.Join(l.CourseDir(), kind.Dir())
}

func (l *Layout) Path(kind catalog.MediaKind, name string) string {
	return filepath.Join(l.Dir(kind), name)
}

// CreateSkeleton creates the course directory and its media directories, each with a placeholder README.md so the
// empty tree survives being copied around. Existing files are left alone.
func (l *Layout) CreateSkeleton() error {
	for _, kind := range catalog.MediaKinds {
		dir := l.Dir(kind)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		readme := filepath.Join(dir, readmeName)
		if _, err := os.Stat(readme); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.WriteFile(readme, []byte(l.config.readme), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// DeleteIfExists removes a file if it is there. It never fails: a missing file is the desired outcome, and any other
// problem is only logged.
func DeleteIfExists(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		zap.S().Named("download").Debugw("deleted file", "path", path)
	case errors.Is(err, os.ErrNotExist):
	default:
		zap.S().Named("download").Warnw("failed to delete file", "path", path, "error", err)
	}
}

// Exists reports whether path is an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
