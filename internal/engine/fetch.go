package engine

import (
	"context"
	"io"
	"net/http"

	"github.com/schollz/progressbar/v3"

	lesson_archiver "github.com/alanbriolat/lesson-archiver"
)

// Fetcher streams a URL into dir/filename and returns the number of bytes written.
type Fetcher interface {
	Fetch(ctx context.Context, url string, dir string, filename string) (int64, error)
}

// HTTPFetcher fetches with a plain GET, optionally drawing a progress bar.
type HTTPFetcher struct {
	Client *http.Client
	// Progress receives a progress bar for each transfer; nil disables it.
	Progress io.Writer
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, dir string, filename string) (int64, error) {
	builder := lesson_archiver.NewDownloadBuilder().
		WithContext(ctx).
		WithTargetDir(dir)
	if f.Client != nil {
		builder.WithHTTPClient(f.Client)
	}
	var bar *progressbar.ProgressBar
	if f.Progress != nil {
		bar = progressbar.NewOptions64(-1,
			progressbar.OptionSetDescription(filename),
			progressbar.OptionSetWriter(f.Progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionShowCount(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true),
		)
		defer bar.Finish()
		builder.WithProgressCallback(func(downloaded int64, expected int64) {
			if expected > 0 && bar.GetMax64() != expected {
				bar.ChangeMax64(expected)
			}
			_ = bar.Set64(downloaded)
		})
	}
	download, err := builder.Build()
	if err != nil {
		return 0, err
	}
	defer download.Cancel()
	return download.SaveURL(filename, url)
}
