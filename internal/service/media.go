package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Skotchmaster/community_shop/internal/events"
	"github.com/Skotchmaster/community_shop/internal/filestore"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/repo"
	"github.com/Skotchmaster/community_shop/pkg/logging"
)

type MediaService struct {
	Repo   *repo.GormRepo
	Files  *filestore.FileStore
	Events events.Publisher
}

var videoExts = map[string]bool{".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true}

// mediaKind classifies by extension; ok is false for anything that is neither an image nor a video.
func mediaKind(name string) (kind string, ok bool) {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case imageExts[ext]:
		return models.MediaImage, true
	case videoExts[ext]:
		return models.MediaVideo, true
	}
	return "", false
}

// IsMediaFile reports whether name carries an image or video extension.
func IsMediaFile(name string) bool {
	_, ok := mediaKind(name)
	return ok
}

func (s *MediaService) Upload(ctx context.Context, username string, up Upload) (*models.MediaAsset, error) {
	l := logging.FromContext(ctx).With("svc", "media.upload", "username", username)

	if up.Filename == "" || up.Reader == nil {
		return nil, ErrEmptyUpload
	}
	clean, err := filestore.SanitizeFilename(up.Filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilename, up.Filename)
	}
	kind, ok := mediaKind(clean)
	if !ok {
		return nil, fmt.Errorf("%w: only images (jpg, png, gif, webp) and videos (mp4, mov, avi, mkv, webm) are accepted", ErrInvalidFilename)
	}

	path, err := s.Files.Save(up.Reader, "media", clean, username)
	if err != nil {
		return nil, err
	}

	m := &models.MediaAsset{
		Kind:         kind,
		OriginalName: clean,
		StoragePath:  path,
		Username:     username,
	}
	if err := s.Repo.CreateMedia(ctx, m); err != nil {
		if derr := s.Files.Delete(path); derr != nil {
			l.Warn("media_cleanup_failed", "path", path, "error", derr)
		}
		return nil, err
	}

	l.Info("media_uploaded", "media_id", m.ID, "kind", kind, "path", path)
	publish(ctx, s.Events, events.TopicUsers, username, "media_uploaded", map[string]any{
		"media_id": m.ID,
		"kind":     kind,
		"username": username,
	})
	return m, nil
}

func (s *MediaService) List(ctx context.Context) ([]models.MediaAsset, error) {
	return s.Repo.ListMedia(ctx)
}

func (s *MediaService) Delete(ctx context.Context, id uint) error {
	m, err := s.Repo.GetMedia(ctx, id)
	if err != nil {
		return notFound(err, "media")
	}
	if err := s.Files.Delete(m.StoragePath); err != nil {
		logging.FromContext(ctx).Warn("media_file_delete_failed", "media_id", id, "path", m.StoragePath, "error", err)
	}
	if err := s.Repo.DeleteMedia(ctx, id); err != nil {
		return err
	}
	publish(ctx, s.Events, events.TopicUsers, strconv.FormatUint(uint64(id), 10), "media_deleted", map[string]any{"media_id": id})
	return nil
}
