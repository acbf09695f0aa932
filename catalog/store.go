package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrInvalidCourseFile = errors.New("invalid course file")
)

// Store persists a course after every change to it.
type Store interface {
	Save(course *Course) error
}

// FileStore rewrites a single course file in place.
type FileStore struct {
	Path string
}

func (s *FileStore) Save(course *Course) error {
	return WriteCourseFile(s.Path, course)
}

const courseFileTimeLayout = "2006-01-02T15-04-05"

// CourseFileName is the name a crawl saves a course under, e.g. "beginner-conversational-chinese-2024-03-01T10-20-30.json".
func CourseFileName(course *Course, t time.Time) string {
	return fmt.Sprintf("%s-%s.json", course.Name, t.Format(courseFileTimeLayout))
}

// MarshalCourse renders a course as pretty-printed JSON. URLs are written as-is, without "&" escaping.
func MarshalCourse(course *Course) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(course); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCourseFile replaces path with the current state of course. The file is written next to path first and then
// renamed over it, so an interrupted write never leaves a truncated catalog behind.
func WriteCourseFile(path string, course *Course) error {
	data, err := MarshalCourse(course)
	if err != nil {
		return fmt.Errorf("failed to encode course %q: %w", course.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadCourse reads a course file written by WriteCourseFile, or by any older version of it.
func LoadCourse(path string) (*Course, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var course Course
	if err := json.Unmarshal(data, &course); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCourseFile, path, err)
	}
	if course.Name == "" {
		return nil, fmt.Errorf("%w: %s: course has no name", ErrInvalidCourseFile, path)
	}
	return &course, nil
}
