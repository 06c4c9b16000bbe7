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

// DoubtService exposes doubt use-cases.
type DoubtService interface {
	List(ctx context.Context, userID, roomID string, query dto.ListQuery) (Paged[dto.DoubtResponse], error)
	Get(ctx context.Context, userID, doubtID string) (dto.DoubtResponse, error)
	Create(ctx context.Context, userID, roomID string, req dto.CreateDoubtRequest) (dto.DoubtResponse, error)
	Update(ctx context.Context, userID, doubtID string, req dto.UpdateDoubtRequest) (dto.DoubtResponse, error)
	Delete(ctx context.Context, userID, doubtID string) error
	Like(ctx context.Context, userID, doubtID string) (dto.DoubtResponse, error)
	Unlike(ctx context.Context, userID, doubtID string) (dto.DoubtResponse, error)
	SetUrgent(ctx context.Context, userID, doubtID string, urgent bool) (dto.DoubtResponse, error)
	SetClosed(ctx context.Context, userID, doubtID string, closed bool) (dto.DoubtResponse, error)
}

type doubtService struct {
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

// NewDoubtService constructs the doubt service.
func NewDoubtService(repos ContentRepositories, events EventPublisher, validate *validator.Validate, logger zerolog.Logger) DoubtService {
	logger = logger.With().Str("component", "doubt_service").Logger()
	return &doubtService{
		repos:     repos,
		guard:     roomGuard{rooms: repos.Rooms},
		directory: userDirectory{users: repos.Users},
		events:    newEmitter(events, logger),
		validator: validate,
		clean:     newSanitizer(),
		logger:    logger,
		tracer:    otel.Tracer("github.com/noah-isme/studyrooms-api/internal/service/doubt"),
		now:       time.Now,
	}
}

func (s *doubtService) List(ctx context.Context, userID, roomID string, query dto.ListQuery) (Paged[dto.DoubtResponse], error) {
	if _, err := s.guard.viewable(ctx, userID, roomID); err != nil {
		return Paged[dto.DoubtResponse]{}, err
	}

	status := repository.DoubtStatus(query.Status)
	switch status {
	case "", repository.DoubtStatusAll, repository.DoubtStatusOpen, repository.DoubtStatusClosed, repository.DoubtStatusUrgent:
	default:
		return Paged[dto.DoubtResponse]{}, fieldError("status", "status must be one of: all, open, closed, urgent")
	}

	page := NewPagination(query.Page, query.Limit)
	doubts, total, err := s.repos.Doubts.ListByRoom(ctx, repository.DoubtFilter{
		RoomID: roomID,
		Status: status,
		Query:  query.Query,
		Page:   page.repoPage(),
	})
	if err != nil {
		return Paged[dto.DoubtResponse]{}, err
	}

	items, err := s.responses(ctx, doubts)
	if err != nil {
		return Paged[dto.DoubtResponse]{}, err
	}
	return Paged[dto.DoubtResponse]{Items: items, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

func (s *doubtService) Get(ctx context.Context, userID, doubtID string) (dto.DoubtResponse, error) {
	doubt, _, err := s.visible(ctx, userID, doubtID)
	if err != nil {
		return dto.DoubtResponse{}, err
	}
	return s.response(ctx, doubt)
}

func (s *doubtService) Create(ctx context.Context, userID, roomID string, req dto.CreateDoubtRequest) (dto.DoubtResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DoubtResponse{}, asValidationError(err)
	}

	title := s.clean.Plain(req.Title)
	description := s.clean.Body(req.Description)
	if title == "" {
		return dto.DoubtResponse{}, fieldError("title", "title is empty after removing markup")
	}
	if description == "" {
		return dto.DoubtResponse{}, fieldError("description", "description is empty after removing markup")
	}

	room, err := s.guard.member(ctx, userID, roomID)
	if err != nil {
		return dto.DoubtResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "doubt.create", trace.WithAttributes(
		attribute.String("doubt.room_id", roomID),
		attribute.String("doubt.author_id", userID),
		attribute.Bool("doubt.urgent", req.IsUrgent),
	))
	defer span.End()

	doubt := models.Doubt{
		RoomID:      room.ID,
		AuthorID:    userID,
		Title:       title,
		Description: description,
		Tags:        s.clean.Tags(req.Tags),
		IsUrgent:    req.IsUrgent,
	}
	if err := s.repos.Doubts.Create(ctx, &doubt); err != nil {
		span.RecordError(err)
		return dto.DoubtResponse{}, err
	}

	response, err := s.response(ctx, doubt)
	if err != nil {
		return dto.DoubtResponse{}, err
	}

	s.events.emit(ctx, dto.RealtimeEvent{
		Type:     dto.EventNewDoubt,
		RoomID:   room.ID,
		RoomName: room.Name,
		Title:    doubt.Title,
		PostID:   doubt.ID,
		UserID:   userID,
		UserName: response.Author.Name,
		IsUrgent: doubt.IsUrgent,
	})
	s.logger.Info().Str("doubt_id", doubt.ID).Str("room_id", room.ID).Msg("doubt created")
	return response, nil
}

func (s *doubtService) Update(ctx context.Context, userID, doubtID string, req dto.UpdateDoubtRequest) (dto.DoubtResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DoubtResponse{}, asValidationError(err)
	}

	doubt, err := s.load(ctx, doubtID)
	if err != nil {
		return dto.DoubtResponse{}, err
	}
	if doubt.AuthorID != userID {
		return dto.DoubtResponse{}, ErrNotAuthor
	}

	if req.Title != nil {
		if doubt.Title = s.clean.Plain(*req.Title); doubt.Title == "" {
			return dto.DoubtResponse{}, fieldError("title", "title is empty after removing markup")
		}
	}
	if req.Description != nil {
		if doubt.Description = s.clean.Body(*req.Description); doubt.Description == "" {
			return dto.DoubtResponse{}, fieldError("description", "description is empty after removing markup")
		}
	}
	if req.Tags != nil {
		doubt.Tags = s.clean.Tags(*req.Tags)
	}
	doubt.UpdatedAt = s.now().UTC()

	if err := s.repos.Doubts.Update(ctx, &doubt); err != nil {
		return dto.DoubtResponse{}, err
	}
	return s.response(ctx, doubt)
}

func (s *doubtService) Delete(ctx context.Context, userID, doubtID string) error {
	doubt, err := s.load(ctx, doubtID)
	if err != nil {
		return err
	}
	if doubt.AuthorID != userID {
		return ErrNotAuthor
	}
	if err := s.repos.Doubts.Delete(ctx, doubtID); err != nil {
		return notFound(err, ErrDoubtNotFound)
	}
	s.logger.Info().Str("doubt_id", doubtID).Str("user_id", userID).Msg("doubt deleted")
	return nil
}

func (s *doubtService) Like(ctx context.Context, userID, doubtID string) (dto.DoubtResponse, error) {
	doubt, _, err := s.visible(ctx, userID, doubtID)
	if err != nil {
		return dto.DoubtResponse{}, err
	}
	reaction := models.Reaction{TargetType: models.TargetDoubt, TargetID: doubt.ID, UserID: userID, RoomID: doubt.RoomID}
	if err := s.repos.Reactions.Add(ctx, reaction); err != nil {
		return dto.DoubtResponse{}, err
	}
	return s.response(ctx, doubt)
}

func (s *doubtService) Unlike(ctx context.Context, userID, doubtID string) (dto.DoubtResponse, error) {
	doubt, _, err := s.visible(ctx, userID, doubtID)
	if err != nil {
		return dto.DoubtResponse{}, err
	}
	if err := s.repos.Reactions.Remove(ctx, models.TargetDoubt, doubt.ID, userID); err != nil {
		return dto.DoubtResponse{}, err
	}
	return s.response(ctx, doubt)
}

func (s *doubtService) SetUrgent(ctx context.Context, userID, doubtID string, urgent bool) (dto.DoubtResponse, error) {
	return s.moderate(ctx, userID, doubtID, func(doubt *models.Doubt) bool {
		changed := doubt.IsUrgent != urgent
		doubt.IsUrgent = urgent
		return changed
	})
}

func (s *doubtService) SetClosed(ctx context.Context, userID, doubtID string, closed bool) (dto.DoubtResponse, error) {
	return s.moderate(ctx, userID, doubtID, func(doubt *models.Doubt) bool {
		changed := doubt.IsClosed != closed
		doubt.IsClosed = closed
		return changed
	})
}

// moderate applies a flag change allowed to the author and the room owner.
func (s *doubtService) moderate(ctx context.Context, userID, doubtID string, apply func(*models.Doubt) bool) (dto.DoubtResponse, error) {
	doubt, room, err := s.visible(ctx, userID, doubtID)
	if err != nil {
		return dto.DoubtResponse{}, err
	}
	if doubt.AuthorID != userID && room.OwnerID != userID {
		return dto.DoubtResponse{}, ErrNotModerator
	}

	if apply(&doubt) {
		doubt.UpdatedAt = s.now().UTC()
		if err := s.repos.Doubts.Update(ctx, &doubt); err != nil {
			return dto.DoubtResponse{}, err
		}
		s.logger.Info().
			Str("doubt_id", doubt.ID).
			Bool("closed", doubt.IsClosed).
			Bool("urgent", doubt.IsUrgent).
			Msg("doubt flags changed")
	}
	return s.response(ctx, doubt)
}

func (s *doubtService) load(ctx context.Context, doubtID string) (models.Doubt, error) {
	doubt, err := s.repos.Doubts.GetByID(ctx, doubtID)
	if err != nil {
		return models.Doubt{}, notFound(err, ErrDoubtNotFound)
	}
	return doubt, nil
}

func (s *doubtService) visible(ctx context.Context, userID, doubtID string) (models.Doubt, models.Room, error) {
	doubt, err := s.load(ctx, doubtID)
	if err != nil {
		return models.Doubt{}, models.Room{}, err
	}
	room, err := s.guard.viewable(ctx, userID, doubt.RoomID)
	if err != nil {
		return models.Doubt{}, models.Room{}, err
	}
	return doubt, room, nil
}

func (s *doubtService) response(ctx context.Context, doubt models.Doubt) (dto.DoubtResponse, error) {
	items, err := s.responses(ctx, []models.Doubt{doubt})
	if err != nil {
		return dto.DoubtResponse{}, err
	}
	return items[0], nil
}

func (s *doubtService) responses(ctx context.Context, doubts []models.Doubt) ([]dto.DoubtResponse, error) {
	ids := make([]string, 0, len(doubts))
	authorIDs := make([]string, 0, len(doubts))
	for _, doubt := range doubts {
		ids = append(ids, doubt.ID)
		authorIDs = append(authorIDs, doubt.AuthorID)
	}

	authors, err := s.directory.summaries(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	likes, err := s.repos.Reactions.LikedBy(ctx, models.TargetDoubt, ids)
	if err != nil {
		return nil, err
	}
	comments, err := s.repos.Comments.CountByRoots(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]dto.DoubtResponse, 0, len(doubts))
	for _, doubt := range doubts {
		out = append(out, dto.NewDoubtResponse(doubt, authors[doubt.AuthorID], likes[doubt.ID], comments[doubt.ID]))
	}
	return out, nil
}
