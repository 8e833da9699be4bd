package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "photo.JPG", want: "photo.JPG"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `..\..\windows\win.ini`, want: "win.ini"},
		{in: "canción de año.mp4", want: "cancion_de_ano.mp4"},
		{in: ".hidden", want: "hidden"},
		{in: "a<b>c|d.png", want: "abcd.png"},
		{in: "..", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "日本.", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := SanitizeFilename(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSave_StaysInsideRootAndIsUnique(t *testing.T) {
	t.Parallel()

	fs, err := New(t.TempDir())
	require.NoError(t, err)

	rel1, err := fs.Save(strings.NewReader("x"), "media", "../../etc/passwd", "alice")
	require.NoError(t, err)
	rel2, err := fs.Save(strings.NewReader("y"), "media", "../../etc/passwd", "alice")
	require.NoError(t, err)
	assert.NotEqual(t, rel1, rel2)
	assert.True(t, strings.HasPrefix(rel1, "media/passwd_alice_"))

	full, err := fs.Resolve(rel1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(full, fs.Root()+string(filepath.Separator)))

	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))

	matches, err := filepath.Glob(filepath.Join(fs.Root(), "media", "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestResolve_RejectsEscapes(t *testing.T) {
	t.Parallel()

	fs, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Resolve("../outside.txt")
	assert.ErrorIs(t, err, ErrOutsideRoot)
	_, err = fs.Resolve("")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestDelete_IgnoresMissing(t *testing.T) {
	t.Parallel()

	fs, err := New(t.TempDir())
	require.NoError(t, err)

	rel, err := fs.Save(strings.NewReader("z"), "", "a.txt", "bob")
	require.NoError(t, err)
	require.NoError(t, fs.Delete(rel))
	require.NoError(t, fs.Delete(rel))
}
