package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/models"
	"github.com/noah-isme/studyrooms-api/internal/repository"
)

// MaxCommentDepth bounds how deep a reply chain may nest below its post or doubt.
const MaxCommentDepth = 8

// CommentService exposes comment tree use-cases.
type CommentService interface {
	ListByParent(ctx context.Context, userID, parentID string, query dto.ListQuery) (Paged[dto.CommentResponse], error)
	Create(ctx context.Context, userID string, req dto.CreateCommentRequest) (dto.CommentResponse, error)
	Update(ctx context.Context, userID, commentID string, req dto.UpdateCommentRequest) (dto.CommentResponse, error)
	Delete(ctx context.Context, userID, commentID string) error
	Like(ctx context.Context, userID, commentID string) (dto.CommentResponse, error)
	Unlike(ctx context.Context, userID, commentID string) (dto.CommentResponse, error)
	MarkSolution(ctx context.Context, userID, commentID string) (dto.CommentResponse, error)
	UnmarkSolution(ctx context.Context, userID, commentID string) (dto.CommentResponse, error)
}

type commentService struct {
	repos     ContentRepositories
	guard     roomGuard
	directory userDirectory
	events    emitter
	validator *validator.Validate
	clean     sanitizer
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewCommentService constructs the comment service.
func NewCommentService(repos ContentRepositories, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) CommentService {
	logger = logger.With().Str("component", "comment_service").Logger()
	return &commentService{
		repos:     repos,
		guard:     roomGuard{rooms: repos.Rooms},
		directory: userDirectory{users: repos.Users},
		events:    newEmitter(events, logger),
		validator: validate,
		clean:     newSanitizer(),
		logger:    logger,
		tracer:    otel.Tracer("github.com/noah-isme/studyrooms-api/internal/service/comment"),
		now:       time.Now,
	}
}

// parentRef is a resolved reply target.
type parentRef struct {
	ID        string
	Type      models.ParentType
	RoomID    string
	RootID    string
	RootType  models.ParentType
	RootTitle string
	Depth     int
}

func (s *commentService) resolveParent(ctx context.Context, parentID string) (parentRef, error) {
	if post, err := s.repos.Posts.GetByID(ctx, parentID); err == nil {
		return parentRef{ID: post.ID, Type: models.ParentPost, RoomID: post.RoomID, RootID: post.ID, RootType: models.ParentPost, RootTitle: post.Title}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return parentRef{}, err
	}

	if doubt, err := s.repos.Doubts.GetByID(ctx, parentID); err == nil {
		return parentRef{ID: doubt.ID, Type: models.ParentDoubt, RoomID: doubt.RoomID, RootID: doubt.ID, RootType: models.ParentDoubt, RootTitle: doubt.Title}, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return parentRef{}, err
	}

	comment, err := s.repos.Comments.GetByID(ctx, parentID)
	if err != nil {
		return parentRef{}, notFound(err, ErrParentNotFound)
	}
	return parentRef{
		ID:       comment.ID,
		Type:     models.ParentComment,
		RoomID:   comment.RoomID,
		RootID:   comment.RootID,
		RootType: comment.RootType,
		Depth:    comment.Depth + 1,
	}, nil
}

func (s *commentService) rootTitle(ctx context.Context, parent parentRef) string {
	if parent.RootTitle != "" {
		return parent.RootTitle
	}
	switch parent.RootType {
	case models.ParentPost:
		if post, err := s.repos.Posts.GetByID(ctx, parent.RootID); err == nil {
			return post.Title
		}
	case models.ParentDoubt:
		if doubt, err := s.repos.Doubts.GetByID(ctx, parent.RootID); err == nil {
			return doubt.Title
		}
	}
	return ""
}

func (s *commentService) ListByParent(ctx context.Context, userID, parentID string, query dto.ListQuery) (Paged[dto.CommentResponse], error) {
	parent, err := s.resolveParent(ctx, parentID)
	if err != nil {
		return Paged[dto.CommentResponse]{}, err
	}
	if _, err := s.guard.viewable(ctx, userID, parent.RoomID); err != nil {
		return Paged[dto.CommentResponse]{}, err
	}

	page := NewPagination(query.Page, query.Limit)
	comments, total, err := s.repos.Comments.ListByParent(ctx, parent.ID, page.repoPage())
	if err != nil {
		return Paged[dto.CommentResponse]{}, err
	}

	items, err := s.responses(ctx, comments)
	if err != nil {
		return Paged[dto.CommentResponse]{}, err
	}
	return Paged[dto.CommentResponse]{Items: items, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

func (s *commentService) Create(ctx context.Context, userID string, req dto.CreateCommentRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CommentResponse{}, asValidationError(err)
	}
	content := s.clean.Body(req.Content)
	if content == "" {
		return dto.CommentResponse{}, fieldError("content", "content is empty after removing markup")
	}

	parent, err := s.resolveParent(ctx, req.ParentID)
	if err != nil {
		return dto.CommentResponse{}, err
	}
	if parent.Depth > MaxCommentDepth {
		return dto.CommentResponse{}, fieldError("parentId", fmt.Sprintf("replies cannot be nested more than %d levels deep", MaxCommentDepth))
	}

	room, err := s.guard.member(ctx, userID, parent.RoomID)
	if err != nil {
		return dto.CommentResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "comment.create", trace.WithAttributes(
		attribute.String("comment.parent_id", parent.ID),
		attribute.String("comment.parent_type", string(parent.Type)),
		attribute.Int("comment.depth", parent.Depth),
	))
	defer span.End()

	comment := models.Comment{
		RoomID:     room.ID,
		ParentID:   parent.ID,
		ParentType: parent.Type,
		RootID:     parent.RootID,
		RootType:   parent.RootType,
		Depth:      parent.Depth,
		AuthorID:   userID,
		Content:    content,
	}
	if err := s.repos.Comments.Create(ctx, &comment); err != nil {
		span.RecordError(err)
		return dto.CommentResponse{}, err
	}

	response, err := s.response(ctx, comment)
	if err != nil {
		return dto.CommentResponse{}, err
	}

	s.events.emit(ctx, dto.RealtimeEvent{
		Type:      dto.EventNewComment,
		RoomID:    room.ID,
		RoomName:  room.Name,
		PostID:    parent.RootID,
		PostTitle: s.rootTitle(ctx, parent),
		ParentID:  parent.ID,
		UserID:    userID,
		UserName:  response.Author.Name,
	})
	s.logger.Info().Str("comment_id", comment.ID).Str("parent_id", parent.ID).Msg("comment created")
	return response, nil
}

func (s *commentService) Update(ctx context.Context, userID, commentID string, req dto.UpdateCommentRequest) (dto.CommentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CommentResponse{}, asValidationError(err)
	}

	comment, err := s.authored(ctx, userID, commentID)
	if err != nil {
		return dto.CommentResponse{}, err
	}
	if comment.Content = s.clean.Body(req.Content); comment.Content == "" {
		return dto.CommentResponse{}, fieldError("content", "content is empty after removing markup")
	}
	comment.UpdatedAt = s.now().UTC()

	if err := s.repos.Comments.Update(ctx, &comment); err != nil {
		return dto.CommentResponse{}, err
	}
	return s.response(ctx, comment)
}

func (s *commentService) Delete(ctx context.Context, userID, commentID string) error {
	if _, err := s.authored(ctx, userID, commentID); err != nil {
		return err
	}
	if err := s.repos.Comments.Delete(ctx, commentID); err != nil {
		return notFound(err, ErrCommentNotFound)
	}
	s.logger.Info().Str("comment_id", commentID).Str("user_id", userID).Msg("comment deleted")
	return nil
}

func (s *commentService) Like(ctx context.Context, userID, commentID string) (dto.CommentResponse, error) {
	comment, err := s.visible(ctx, userID, commentID)
	if err != nil {
		return dto.CommentResponse{}, err
	}
	reaction := models.Reaction{TargetType: models.TargetComment, TargetID: comment.ID, UserID: userID, RoomID: comment.RoomID}
	if err := s.repos.Reactions.Add(ctx, reaction); err != nil {
		return dto.CommentResponse{}, err
	}
	return s.response(ctx, comment)
}

func (s *commentService) Unlike(ctx context.Context, userID, commentID string) (dto.CommentResponse, error) {
	comment, err := s.visible(ctx, userID, commentID)
	if err != nil {
		return dto.CommentResponse{}, err
	}
	if err := s.repos.Reactions.Remove(ctx, models.TargetComment, comment.ID, userID); err != nil {
		return dto.CommentResponse{}, err
	}
	return s.response(ctx, comment)
}

// MarkSolution accepts a direct answer to a doubt; any previous solution is unmarked.
func (s *commentService) MarkSolution(ctx context.Context, userID, commentID string) (dto.CommentResponse, error) {
	comment, err := s.answer(ctx, userID, commentID)
	if err != nil {
		return dto.CommentResponse{}, err
	}

	if err := s.repos.Comments.MarkSolution(ctx, comment.ID, comment.ParentID); err != nil {
		return dto.CommentResponse{}, notFound(err, ErrCommentNotFound)
	}
	comment.IsSolution = true

	s.logger.Info().Str("comment_id", comment.ID).Str("doubt_id", comment.ParentID).Msg("solution marked")
	return s.response(ctx, comment)
}

func (s *commentService) UnmarkSolution(ctx context.Context, userID, commentID string) (dto.CommentResponse, error) {
	comment, err := s.answer(ctx, userID, commentID)
	if err != nil {
		return dto.CommentResponse{}, err
	}

	if comment.IsSolution {
		comment.IsSolution = false
		comment.UpdatedAt = s.now().UTC()
		if err := s.repos.Comments.Update(ctx, &comment); err != nil {
			return dto.CommentResponse{}, err
		}
	}
	return s.response(ctx, comment)
}

// answer loads a comment that sits directly under a doubt authored by userID.
func (s *commentService) answer(ctx context.Context, userID, commentID string) (models.Comment, error) {
	comment, err := s.visible(ctx, userID, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	if comment.ParentType != models.ParentDoubt {
		return models.Comment{}, fieldError("commentId", "only direct answers to a doubt can be marked as the solution")
	}

	doubt, err := s.repos.Doubts.GetByID(ctx, comment.ParentID)
	if err != nil {
		return models.Comment{}, notFound(err, ErrDoubtNotFound)
	}
	if doubt.AuthorID != userID {
		return models.Comment{}, ErrNotDoubtAuthor
	}
	return comment, nil
}

func (s *commentService) load(ctx context.Context, commentID string) (models.Comment, error) {
	comment, err := s.repos.Comments.GetByID(ctx, commentID)
	if err != nil {
		return models.Comment{}, notFound(err, ErrCommentNotFound)
	}
	return comment, nil
}

func (s *commentService) visible(ctx context.Context, userID, commentID string) (models.Comment, error) {
	comment, err := s.load(ctx, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	if _, err := s.guard.viewable(ctx, userID, comment.RoomID); err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

func (s *commentService) authored(ctx context.Context, userID, commentID string) (models.Comment, error) {
	comment, err := s.load(ctx, commentID)
	if err != nil {
		return models.Comment{}, err
	}
	if comment.AuthorID != userID {
		return models.Comment{}, ErrNotAuthor
	}
	return comment, nil
}

func (s *commentService) response(ctx context.Context, comment models.Comment) (dto.CommentResponse, error) {
	items, err := s.responses(ctx, []models.Comment{comment})
	if err != nil {
		return dto.CommentResponse{}, err
	}
	return items[0], nil
}

func (s *commentService) responses(ctx context.Context, comments []models.Comment) ([]dto.CommentResponse, error) {
	ids := make([]string, 0, len(comments))
	authorIDs := make([]string, 0, len(comments))
	for _, comment := range comments {
		ids = append(ids, comment.ID)
		authorIDs = append(authorIDs, comment.AuthorID)
	}

	authors, err := s.directory.summaries(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	likes, err := s.repos.Reactions.LikedBy(ctx, models.TargetComment, ids)
	if err != nil {
		return nil, err
	}
	replies, err := s.repos.Comments.CountByParents(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, dto.NewCommentResponse(comment, authors[comment.AuthorID], likes[comment.ID], replies[comment.ID]))
	}
	return out, nil
}
