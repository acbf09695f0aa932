// Package media measures the play length of downloaded files, which doubles as a check that they are intact.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tcolgate/mp3"
	"gopkg.in/vansante/go-ffprobe.v2"
)

var (
	ErrNoDuration = errors.New("no duration found")
	ErrNoFrames   = errors.New("no mp3 frames found")
)

// Prober returns the play length of a local media file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// ProberFunc adapts a function to Prober.
type ProberFunc func(ctx context.Context, path string) (float64, error)

func (f ProberFunc) Duration(ctx context.Context, path string) (float64, error) {
	return f(ctx, path)
}

// FFProbe reads the container duration with the ffprobe binary, which must be on $PATH (or set via
// ffprobe.SetFFProbeBinPath).
type FFProbe struct {
	Timeout time.Duration
}

func (p FFProbe) Duration(ctx context.Context, path string) (float64, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	data, err := ffprobe.ProbeURL(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	if data.Format == nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, ErrNoDuration)
	}
	seconds := data.Format.Duration().Seconds()
	if seconds <= 0 {
		return 0, fmt.Errorf("ffprobe %s: %w", path, ErrNoDuration)
	}
	return seconds, nil
}

// MP3Frames adds up the duration of every MPEG audio frame in the file. A file that stops part way through a frame
// is reported as an error.
type MP3Frames struct{}

func (MP3Frames) Duration(ctx context.Context, path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	src := &countingReader{r: f}
	decoder := mp3.NewDecoder(src)
	var frame mp3.Frame
	var skipped int
	var total time.Duration
	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		offset := src.n
		if err := decoder.Decode(&frame, &skipped); err != nil {
			// The decoder gives a bare io.EOF when the body of a frame is missing entirely.
			if err == io.EOF && src.n == offset {
				break
			}
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, fmt.Errorf("decoding %s after %d frames: %w", path, frames, err)
		}
		total += frame.Duration()
		frames++
	}
	if frames == 0 {
		return 0, fmt.Errorf("%s: %w", path, ErrNoFrames)
	}
	return total.Seconds(), nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
