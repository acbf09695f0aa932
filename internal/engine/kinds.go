package engine

import (
	"strings"
	"time"

	"github.com/alanbriolat/lesson-archiver/catalog"
	"github.com/alanbriolat/lesson-archiver/internal/media"
)

// kindHandler describes how one kind of file is fetched and recorded.
type kindHandler struct {
	url func(l *catalog.Lesson) string
	// remoteName is the file the download is streamed to, and finalName what it is renamed to afterwards.
	remoteName func(l *catalog.Lesson) (string, error)
	finalName  func(l *catalog.Lesson) string
	// files lists every name a file of this kind may be on disk under, for cleanup.
	files      func(l *catalog.Lesson) []string
	prober     media.Prober
	succeed    func(l *catalog.Lesson, seconds float64, elapsed time.Duration)
	setElapsed func(l *catalog.Lesson, elapsed time.Duration)
}

func nonEmpty(names ...string) []string {
	var result []string
	for _, name := range names {
		if strings.TrimSpace(name) != "" {
			result = append(result, name)
		}
	}
	return result
}

func videoHandler(prober media.Prober) kindHandler {
	return kindHandler{
		url: func(l *catalog.Lesson) string {
			return strings.TrimSpace(l.VideoBinURL)
		},
		remoteName: func(l *catalog.Lesson) (string, error) {
			return l.BinFileName()
		},
		finalName: func(l *catalog.Lesson) string {
			return l.DesiredMP4Name
		},
		files: func(l *catalog.Lesson) []string {
			bin, _ := l.BinFileName()
			return nonEmpty(bin, l.DesiredMP4Name)
		},
		prober: prober,
		succeed: func(l *catalog.Lesson, seconds float64, elapsed time.Duration) {
			l.VideoDownloaded = true
			l.VideoLengthInSeconds = seconds
			l.VideoLengthHumanFriendly = catalog.HumanDuration(seconds)
			l.DownloadDurationInMilliseconds = elapsed.Milliseconds()
		},
		setElapsed: func(l *catalog.Lesson, elapsed time.Duration) {
			l.DownloadDurationInMilliseconds = elapsed.Milliseconds()
		},
	}
}

func mp3Handler(prober media.Prober) kindHandler {
	return kindHandler{
		url: func(l *catalog.Lesson) string {
			return strings.TrimSpace(l.MP3URL)
		},
		remoteName: func(l *catalog.Lesson) (string, error) {
			if l.DesiredMP3Name == "" {
				return "", ErrNoFileName
			}
			return l.DesiredMP3Name, nil
		},
		finalName: func(l *catalog.Lesson) string {
			return l.DesiredMP3Name
		},
		files: func(l *catalog.Lesson) []string {
			return nonEmpty(l.DesiredMP3Name)
		},
		prober: prober,
		succeed: func(l *catalog.Lesson, seconds float64, elapsed time.Duration) {
			l.MP3Downloaded = true
			l.MP3LengthInSeconds = seconds
			l.MP3LengthHumanFriendly = catalog.HumanDuration(seconds)
			l.MP3DownloadDurationInMilliseconds = elapsed.Milliseconds()
		},
		setElapsed: func(l *catalog.Lesson, elapsed time.Duration) {
			l.MP3DownloadDurationInMilliseconds = elapsed.Milliseconds()
		},
	}
}

func pdfHandler() kindHandler {
	return kindHandler{
		url: func(l *catalog.Lesson) string {
			return strings.TrimSpace(l.PDFURL)
		},
		remoteName: func(l *catalog.Lesson) (string, error) {
			if l.DesiredPDFName == "" {
				return "", ErrNoFileName
			}
			return l.DesiredPDFName, nil
		},
		finalName: func(l *catalog.Lesson) string {
			return l.DesiredPDFName
		},
		files: func(l *catalog.Lesson) []string {
			return nonEmpty(l.DesiredPDFName)
		},
		succeed: func(l *catalog.Lesson, _ float64, _ time.Duration) {
			l.PDFDownloaded = true
		},
		setElapsed: func(*catalog.Lesson, time.Duration) {},
	}
}
