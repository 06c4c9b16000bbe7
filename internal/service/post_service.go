package service

import (
	"context"
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

// PostService exposes post use-cases.
type PostService interface {
	List(ctx context.Context, userID, roomID string, query dto.ListQuery) (Paged[dto.PostResponse], error)
	Get(ctx context.Context, userID, postID string) (dto.PostResponse, error)
	Create(ctx context.Context, userID, roomID string, req dto.CreatePostRequest) (dto.PostResponse, error)
	Update(ctx context.Context, userID, postID string, req dto.UpdatePostRequest) (dto.PostResponse, error)
	Delete(ctx context.Context, userID, postID string) error
	Like(ctx context.Context, userID, postID string) (dto.PostResponse, error)
	Unlike(ctx context.Context, userID, postID string) (dto.PostResponse, error)
	SetPinned(ctx context.Context, userID, postID string, pinned bool) (dto.PostResponse, error)
}

// ContentRepositories groups the stores the content services read and write.
type ContentRepositories struct {
	Rooms     repository.RoomRepository
	Users     repository.UserRepository
	Posts     repository.PostRepository
	Doubts    repository.DoubtRepository
	Comments  repository.CommentRepository
	Reactions repository.ReactionRepository
}

type postService struct {
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

// NewPostService constructs the post service.
func NewPostService(repos ContentRepositories, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) PostService {
	logger = logger.With().Str("component", "post_service").Logger()
	return &postService{
		repos:     repos,
		guard:     roomGuard{rooms: repos.Rooms},
		directory: userDirectory{users: repos.Users},
		events:    newEmitter(events, logger),
		validator: validate,
		clean:     newSanitizer(),
		logger:    logger,
		tracer:    otel.Tracer("github.com/noah-isme/studyrooms-api/internal/service/post"),
		now:       time.Now,
	}
}

func (s *postService) List(ctx context.Context, userID, roomID string, query dto.ListQuery) (Paged[dto.PostResponse], error) {
	if _, err := s.guard.viewable(ctx, userID, roomID); err != nil {
		return Paged[dto.PostResponse]{}, err
	}

	postType := models.PostType(query.Type)
	switch postType {
	case "", models.PostTypeNote, models.PostTypeTopic, models.PostTypeAnnouncement:
	default:
		return Paged[dto.PostResponse]{}, fieldError("type", "type must be one of: note, topic, announcement")
	}

	page := NewPagination(query.Page, query.Limit)
	posts, total, err := s.repos.Posts.ListByRoom(ctx, repository.PostFilter{
		RoomID: roomID,
		Type:   postType,
		Query:  query.Query,
		Page:   page.repoPage(),
	})
	if err != nil {
		return Paged[dto.PostResponse]{}, err
	}

	items, err := s.responses(ctx, posts)
	if err != nil {
		return Paged[dto.PostResponse]{}, err
	}
	return Paged[dto.PostResponse]{Items: items, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

func (s *postService) Get(ctx context.Context, userID, postID string) (dto.PostResponse, error) {
	post, _, err := s.visible(ctx, userID, postID)
	if err != nil {
		return dto.PostResponse{}, err
	}
	return s.response(ctx, post)
}

func (s *postService) Create(ctx context.Context, userID, roomID string, req dto.CreatePostRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PostResponse{}, asValidationError(err)
	}

	title := s.clean.Plain(req.Title)
	content := s.clean.Body(req.Content)
	if title == "" {
		return dto.PostResponse{}, fieldError("title", "title is empty after removing markup")
	}
	if content == "" {
		return dto.PostResponse{}, fieldError("content", "content is empty after removing markup")
	}

	room, err := s.guard.member(ctx, userID, roomID)
	if err != nil {
		return dto.PostResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "post.create", trace.WithAttributes(
		attribute.String("post.room_id", roomID),
		attribute.String("post.author_id", userID),
	))
	defer span.End()

	postType := models.PostType(req.Type)
	if postType == "" {
		postType = models.PostTypeNote
	}

	post := models.Post{
		RoomID:      room.ID,
		AuthorID:    userID,
		Title:       title,
		Content:     content,
		Type:        postType,
		Tags:        s.clean.Tags(req.Tags),
		Attachments: attachmentsFromPayload(req.Attachments, s.clean),
	}
	if err := s.repos.Posts.Create(ctx, &post); err != nil {
		span.RecordError(err)
		return dto.PostResponse{}, err
	}

	response, err := s.response(ctx, post)
	if err != nil {
		return dto.PostResponse{}, err
	}

	s.events.emit(ctx, dto.RealtimeEvent{
		Type:     dto.EventNewPost,
		RoomID:   room.ID,
		RoomName: room.Name,
		Title:    post.Title,
		PostID:   post.ID,
		UserID:   userID,
		UserName: response.Author.Name,
	})
	s.logger.Info().Str("post_id", post.ID).Str("room_id", room.ID).Msg("post created")
	return response, nil
}

func (s *postService) Update(ctx context.Context, userID, postID string, req dto.UpdatePostRequest) (dto.PostResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PostResponse{}, asValidationError(err)
	}

	post, err := s.authored(ctx, userID, postID)
	if err != nil {
		return dto.PostResponse{}, err
	}

	if req.Title != nil {
		if post.Title = s.clean.Plain(*req.Title); post.Title == "" {
			return dto.PostResponse{}, fieldError("title", "title is empty after removing markup")
		}
	}
	if req.Content != nil {
		if post.Content = s.clean.Body(*req.Content); post.Content == "" {
			return dto.PostResponse{}, fieldError("content", "content is empty after removing markup")
		}
	}
	if req.Type != nil {
		post.Type = models.PostType(*req.Type)
	}
	if req.Tags != nil {
		post.Tags = s.clean.Tags(*req.Tags)
	}
	if req.Attachments != nil {
		post.Attachments = attachmentsFromPayload(*req.Attachments, s.clean)
	}
	post.UpdatedAt = s.now().UTC()

	if err := s.repos.Posts.Update(ctx, &post); err != nil {
		return dto.PostResponse{}, err
	}
	return s.response(ctx, post)
}

func (s *postService) Delete(ctx context.Context, userID, postID string) error {
	if _, err := s.authored(ctx, userID, postID); err != nil {
		return err
	}
	if err := s.repos.Posts.Delete(ctx, postID); err != nil {
		return notFound(err, ErrPostNotFound)
	}
	s.logger.Info().Str("post_id", postID).Str("user_id", userID).Msg("post deleted")
	return nil
}

func (s *postService) Like(ctx context.Context, userID, postID string) (dto.PostResponse, error) {
	post, _, err := s.visible(ctx, userID, postID)
	if err != nil {
		return dto.PostResponse{}, err
	}
	reaction := models.Reaction{TargetType: models.TargetPost, TargetID: post.ID, UserID: userID, RoomID: post.RoomID}
	if err := s.repos.Reactions.Add(ctx, reaction); err != nil {
		return dto.PostResponse{}, err
	}
	return s.response(ctx, post)
}

func (s *postService) Unlike(ctx context.Context, userID, postID string) (dto.PostResponse, error) {
	post, _, err := s.visible(ctx, userID, postID)
	if err != nil {
		return dto.PostResponse{}, err
	}
	if err := s.repos.Reactions.Remove(ctx, models.TargetPost, post.ID, userID); err != nil {
		return dto.PostResponse{}, err
	}
	return s.response(ctx, post)
}

func (s *postService) SetPinned(ctx context.Context, userID, postID string, pinned bool) (dto.PostResponse, error) {
	post, room, err := s.visible(ctx, userID, postID)
	if err != nil {
		return dto.PostResponse{}, err
	}
	if post.AuthorID != userID && room.OwnerID != userID {
		return dto.PostResponse{}, ErrNotModerator
	}

	if post.IsPinned != pinned {
		post.IsPinned = pinned
		post.UpdatedAt = s.now().UTC()
		if err := s.repos.Posts.Update(ctx, &post); err != nil {
			return dto.PostResponse{}, err
		}
	}
	return s.response(ctx, post)
}

func (s *postService) load(ctx context.Context, postID string) (models.Post, error) {
	post, err := s.repos.Posts.GetByID(ctx, postID)
	if err != nil {
		return models.Post{}, notFound(err, ErrPostNotFound)
	}
	return post, nil
}

func (s *postService) visible(ctx context.Context, userID, postID string) (models.Post, models.Room, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return models.Post{}, models.Room{}, err
	}
	room, err := s.guard.viewable(ctx, userID, post.RoomID)
	if err != nil {
		return models.Post{}, models.Room{}, err
	}
	return post, room, nil
}

func (s *postService) authored(ctx context.Context, userID, postID string) (models.Post, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return models.Post{}, err
	}
	if post.AuthorID != userID {
		return models.Post{}, ErrNotAuthor
	}
	return post, nil
}

func (s *postService) response(ctx context.Context, post models.Post) (dto.PostResponse, error) {
	items, err := s.responses(ctx, []models.Post{post})
	if err != nil {
		return dto.PostResponse{}, err
	}
	return items[0], nil
}

func (s *postService) responses(ctx context.Context, posts []models.Post) ([]dto.PostResponse, error) {
	ids := make([]string, 0, len(posts))
	authorIDs := make([]string, 0, len(posts))
	for _, post := range posts {
		ids = append(ids, post.ID)
		authorIDs = append(authorIDs, post.AuthorID)
	}

	authors, err := s.directory.summaries(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	likes, err := s.repos.Reactions.LikedBy(ctx, models.TargetPost, ids)
	if err != nil {
		return nil, err
	}
	comments, err := s.repos.Comments.CountByRoots(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.PostResponse, 0, len(posts))
	for _, post := range posts {
		out = append(out, dto.NewPostResponse(post, authors[post.AuthorID], likes[post.ID], comments[post.ID]))
	}
	return out, nil
}
