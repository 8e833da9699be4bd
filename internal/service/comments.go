package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/community_shop/internal/events"
	"github.com/Skotchmaster/community_shop/internal/models"
	"github.com/Skotchmaster/community_shop/internal/repo"
)

const maxCommentLen = 2000

type CommentService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CommentService) Post(ctx context.Context, username, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, validationf("comment cannot be empty")
	}
	if utf8.RuneCountInString(body) > maxCommentLen {
		return nil, validationf("comment is longer than %d characters", maxCommentLen)
	}

	c := &models.Comment{Username: username, Body: body}
	if err := s.Repo.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	publish(ctx, s.Events, events.TopicUsers, username, "comment_posted", map[string]any{
		"comment_id": c.ID,
		"username":   username,
	})
	return c, nil
}

func (s *CommentService) List(ctx context.Context) ([]models.Comment, error) {
	return s.Repo.ListComments(ctx)
}

func (s *CommentService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteComment(ctx, id); err != nil {
		return notFound(err, "comment")
	}
	return nil
}
