package download

import (
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/lesson-archiver/catalog"
)

func TestLayoutPaths(t *testing.T) {
	assert := assert_.New(t)

	course := &catalog.Course{Name: "beginner-conversational-chinese", DownloadSubDir: "beginner-conversational-chinese"}
	l := NewLayout(course, WithRoot("/data"))
	assert.Equal("/data/beginner-conversational-chinese", l.CourseDir())
	assert.Equal("/data/beginner-conversational-chinese/videos", l.Dir(catalog.Video))
	assert.Equal("/data/beginner-conversational-chinese/mp3s/BC-U1-L1.mp3", l.Path(catalog.MP3, "BC-U1-L1.mp3"))
	assert.Equal("/data/beginner-conversational-chinese/pdfs/BC-U1-L1.pdf", l.Path(catalog.PDF, "BC-U1-L1.pdf"))

	l = NewLayout(&catalog.Course{Name: "chinese-characters"})
	assert.Equal("chinese-characters/videos", l.Dir(catalog.Video))
}

func TestCreateSkeleton(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	root := t.TempDir()
	l := NewLayout(&catalog.Course{Name: "c", DownloadSubDir: "c"}, WithRoot(root), WithReadme("placeholder\n"))

	require.NoError(l.CreateSkeleton())
	for _, dir := range []string{"videos", "mp3s", "pdfs"} {
		data, err := os.ReadFile(filepath.Join(root, "c", dir, "README.md"))
		assert.NoError(err)
		assert.Equal("placeholder\n", string(data))
	}

	// Running again keeps whatever is already there.
	custom := filepath.Join(root, "c", "videos", "README.md")
	require.NoError(os.WriteFile(custom, []byte("mine"), 0o644))
	require.NoError(l.CreateSkeleton())
	data, err := os.ReadFile(custom)
	assert.NoError(err)
	assert.Equal("mine", string(data))
}

func TestDeleteIfExists(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "file.bin")
	assert.NoError(os.WriteFile(path, []byte("x"), 0o644))
	assert.True(Exists(path))

	DeleteIfExists(path)
	assert.False(Exists(path))
	assert.NotPanics(func() { DeleteIfExists(path) })
	assert.NotPanics(func() { DeleteIfExists(filepath.Join(dir, "missing", "deeper")) })
	assert.False(Exists(dir), "directories are not files")
}
