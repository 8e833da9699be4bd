package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/community_shop/internal/filestore"
	"github.com/Skotchmaster/community_shop/internal/models"
)

func newMedia(t *testing.T) *MediaService {
	t.Helper()
	fs, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	return &MediaService{Repo: newTestRepo(t), Files: fs}
}

func TestMediaUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		kind     string
		wantErr  error
	}{
		{name: "image", filename: "cat.JPG", kind: models.MediaImage},
		{name: "video", filename: "clip.webm", kind: models.MediaVideo},
		{name: "traversal", filename: "../../../etc/cron.d/job.png", kind: models.MediaImage},
		{name: "empty", filename: "", wantErr: ErrEmptyUpload},
		{name: "dots only", filename: "..", wantErr: ErrInvalidFilename},
		{name: "html page", filename: "pwn.html", wantErr: ErrInvalidFilename},
		{name: "svg", filename: "logo.svg", wantErr: ErrInvalidFilename},
		{name: "double extension", filename: "cat.png.html", wantErr: ErrInvalidFilename},
		{name: "unknown extension", filename: "notes.txt", wantErr: ErrInvalidFilename},
		{name: "no extension", filename: "README", wantErr: ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newMedia(t)
			m, err := svc.Upload(context.Background(), "ana", Upload{Filename: tt.filename, Reader: strings.NewReader("data")})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, m.Kind)
			assert.True(t, strings.HasPrefix(m.StoragePath, "media/"))

			full, err := svc.Files.Resolve(m.StoragePath)
			require.NoError(t, err)
			rel, err := filepath.Rel(svc.Files.Root(), full)
			require.NoError(t, err)
			assert.False(t, strings.HasPrefix(rel, ".."))

			data, err := os.ReadFile(full)
			require.NoError(t, err)
			assert.Equal(t, "data", string(data))
		})
	}
}

func TestIsMediaFile(t *testing.T) {
	t.Parallel()

	assert.True(t, IsMediaFile("a.PNG"))
	assert.True(t, IsMediaFile("media/clip_ana_1_x.mov"))
	assert.False(t, IsMediaFile("x.html"))
	assert.False(t, IsMediaFile("x.htm"))
	assert.False(t, IsMediaFile("x"))
}

func TestMediaUpload_RejectedFileIsNotStored(t *testing.T) {
	svc := newMedia(t)

	_, err := svc.Upload(context.Background(), "ana", Upload{Filename: "pwn.html", Reader: strings.NewReader("<script>")})
	require.ErrorIs(t, err, ErrInvalidFilename)

	entries, err := os.ReadDir(svc.Files.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMediaListAndDelete(t *testing.T) {
	svc := newMedia(t)
	ctx := context.Background()

	a, err := svc.Upload(ctx, "ana", Upload{Filename: "a.png", Reader: strings.NewReader("a")})
	require.NoError(t, err)
	b, err := svc.Upload(ctx, "bob", Upload{Filename: "b.mp4", Reader: strings.NewReader("b")})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	full, err := svc.Files.Resolve(a.StoragePath)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, svc.Delete(ctx, a.ID), ErrNotFound)

	// a record whose file is already gone still deletes
	bFull, err := svc.Files.Resolve(b.StoragePath)
	require.NoError(t, err)
	require.NoError(t, os.Remove(bFull))
	require.NoError(t, svc.Delete(ctx, b.ID))
}
