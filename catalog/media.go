package catalog

import (
	"strings"

	"github.com/alanbriolat/lesson-archiver/util"
)

// MediaKind is one of the three kinds of file a lesson can provide.
type MediaKind string

const (
	Video MediaKind = "video"
	MP3   MediaKind = "mp3"
	PDF   MediaKind = "pdf"
)

var MediaKinds = []MediaKind{Video, MP3, PDF}

// Dir is the per-course subdirectory files of this kind are stored in.
func (k MediaKind) Dir() string {
	switch k {
	case Video:
		return "videos"
	case MP3:
		return "mp3s"
	case PDF:
		return "pdfs"
	default:
		return string(k)
	}
}

func (l *Lesson) HasVideo() bool {
	return strings.TrimSpace(l.VideoBinURL) != ""
}

func (l *Lesson) HasMP3() bool {
	return strings.TrimSpace(l.MP3URL) != ""
}

func (l *Lesson) HasPDF() bool {
	return strings.TrimSpace(l.PDFURL) != ""
}

// BinFileName is the name the video is first saved under, taken from the last path segment of VideoBinURL.
func (l *Lesson) BinFileName() (string, error) {
	return util.FilenameFromURLString(l.VideoBinURL)
}

func (l *Lesson) ClearVideoState() {
	l.VideoDownloaded = false
	l.VideoLengthInSeconds = 0
	l.VideoLengthHumanFriendly = ""
	l.DownloadDurationInMilliseconds = 0
}

func (l *Lesson) ClearMP3State() {
	l.MP3Downloaded = false
	l.MP3LengthInSeconds = 0
	l.MP3LengthHumanFriendly = ""
	l.MP3DownloadDurationInMilliseconds = 0
}

func (l *Lesson) ClearPDFState() {
	l.PDFDownloaded = false
}

// ClearState resets the download state of one kind of media.
func (l *Lesson) ClearState(kind MediaKind) {
	switch kind {
	case Video:
		l.ClearVideoState()
	case MP3:
		l.ClearMP3State()
	case PDF:
		l.ClearPDFState()
	}
}

// Downloaded reports the downloaded flag for one kind of media.
func (l *Lesson) Downloaded(kind MediaKind) bool {
	switch kind {
	case Video:
		return l.VideoDownloaded
	case MP3:
		return l.MP3Downloaded
	case PDF:
		return l.PDFDownloaded
	default:
		return false
	}
}
