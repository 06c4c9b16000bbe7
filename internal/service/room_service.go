package service

import (
	"context"
	"errors"
	"strings"
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

// RoomAccessChecker decides whether a user may observe a room.
type RoomAccessChecker interface {
	CanView(ctx context.Context, userID, roomID string) (models.Room, error)
}

// RoomService exposes room and membership use-cases.
type RoomService interface {
	RoomAccessChecker
	List(ctx context.Context, userID string, query dto.RoomListQuery) (Paged[dto.RoomResponse], error)
	Create(ctx context.Context, userID string, req dto.CreateRoomRequest) (dto.RoomResponse, error)
	Get(ctx context.Context, userID, roomID string) (dto.RoomResponse, error)
	Update(ctx context.Context, userID, roomID string, req dto.UpdateRoomRequest) (dto.RoomResponse, error)
	Delete(ctx context.Context, userID, roomID string) error
	JoinByCode(ctx context.Context, userID string, req dto.JoinRoomRequest) (dto.RoomResponse, error)
	JoinPublic(ctx context.Context, userID, roomID string) (dto.RoomResponse, error)
	Leave(ctx context.Context, userID, roomID string) error
	Members(ctx context.Context, userID, roomID string) ([]dto.UserSummary, error)
}

type roomService struct {
	rooms     repository.RoomRepository
	directory userDirectory
	validator *validator.Validate
	clean     sanitizer
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewRoomService constructs the room service.
func NewRoomService(rooms repository.RoomRepository, users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) RoomService {
	return &roomService{
		rooms:     rooms,
		directory: userDirectory{users: users},
		validator: validate,
		clean:     newSanitizer(),
		logger:    logger.With().Str("component", "room_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/studyrooms-api/internal/service/room"),
	}
}

// roomGuard centralises the membership checks shared by the content services.
type roomGuard struct {
	rooms repository.RoomRepository
}

func (g roomGuard) load(ctx context.Context, roomID string) (models.Room, error) {
	room, err := g.rooms.GetByID(ctx, roomID)
	if err != nil {
		return models.Room{}, notFound(err, ErrRoomNotFound)
	}
	return room, nil
}

// viewable returns the room when it is public or the user belongs to it.
func (g roomGuard) viewable(ctx context.Context, userID, roomID string) (models.Room, error) {
	room, err := g.load(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if !room.IsPrivate {
		return room, nil
	}
	isMember, err := g.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return models.Room{}, err
	}
	if !isMember {
		return models.Room{}, ErrRoomNotVisible
	}
	return room, nil
}

// member returns the room when the user belongs to it.
func (g roomGuard) member(ctx context.Context, userID, roomID string) (models.Room, error) {
	room, err := g.load(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	isMember, err := g.rooms.IsMember(ctx, roomID, userID)
	if err != nil {
		return models.Room{}, err
	}
	if !isMember {
		if room.IsPrivate {
			return models.Room{}, ErrRoomNotVisible
		}
		return models.Room{}, ErrNotRoomMember
	}
	return room, nil
}

func (s *roomService) guard() roomGuard {
	return roomGuard{rooms: s.rooms}
}

func (s *roomService) CanView(ctx context.Context, userID, roomID string) (models.Room, error) {
	return s.guard().viewable(ctx, userID, roomID)
}

func (s *roomService) List(ctx context.Context, userID string, query dto.RoomListQuery) (Paged[dto.RoomResponse], error) {
	page := NewPagination(query.Page, query.Limit)
	rooms, total, err := s.rooms.ListVisible(ctx, userID, repository.RoomFilter{
		Query: query.Query,
		Page:  page.repoPage(),
	})
	if err != nil {
		return Paged[dto.RoomResponse]{}, err
	}

	items, err := s.responses(ctx, userID, rooms)
	if err != nil {
		return Paged[dto.RoomResponse]{}, err
	}
	return Paged[dto.RoomResponse]{Items: items, Page: page.Page, Limit: page.Limit, Total: total}, nil
}

func (s *roomService) Create(ctx context.Context, userID string, req dto.CreateRoomRequest) (dto.RoomResponse, error) {
	req.Name = s.clean.Plain(req.Name)
	req.Description = s.clean.Plain(req.Description)
	req.InviteCode = normalizeInviteCode(req.InviteCode)
	if err := s.validator.Struct(req); err != nil {
		return dto.RoomResponse{}, asValidationError(err)
	}
	if req.IsPrivate && req.InviteCode == "" {
		return dto.RoomResponse{}, fieldError("inviteCode", "inviteCode is required for private rooms")
	}

	ctx, span := s.tracer.Start(ctx, "room.create", trace.WithAttributes(
		attribute.String("room.owner_id", userID),
		attribute.Bool("room.private", req.IsPrivate),
	))
	defer span.End()

	room := models.Room{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
		IsPrivate:   req.IsPrivate,
		Tags:        s.clean.Tags(req.Tags),
	}
	if req.IsPrivate {
		code := req.InviteCode
		room.InviteCode = &code
	}

	if err := s.rooms.Create(ctx, &room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.RoomResponse{}, ErrInviteCodeTaken
		}
		span.RecordError(err)
		return dto.RoomResponse{}, err
	}

	s.logger.Info().Str("room_id", room.ID).Str("owner_id", userID).Bool("private", room.IsPrivate).Msg("room created")
	return s.response(ctx, userID, room)
}

func (s *roomService) Get(ctx context.Context, userID, roomID string) (dto.RoomResponse, error) {
	room, err := s.guard().viewable(ctx, userID, roomID)
	if err != nil {
		return dto.RoomResponse{}, err
	}
	return s.response(ctx, userID, room)
}

func (s *roomService) Update(ctx context.Context, userID, roomID string, req dto.UpdateRoomRequest) (dto.RoomResponse, error) {
	if req.Name != nil {
		name := s.clean.Plain(*req.Name)
		req.Name = &name
	}
	if req.InviteCode != nil {
		code := normalizeInviteCode(*req.InviteCode)
		req.InviteCode = &code
	}
	if err := s.validator.Struct(req); err != nil {
		return dto.RoomResponse{}, asValidationError(err)
	}

	room, err := s.owned(ctx, userID, roomID)
	if err != nil {
		return dto.RoomResponse{}, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return dto.RoomResponse{}, fieldError("name", "name is required")
		}
		room.Name = *req.Name
	}
	if req.Description != nil {
		room.Description = s.clean.Plain(*req.Description)
	}
	if req.Tags != nil {
		room.Tags = s.clean.Tags(*req.Tags)
	}
	if req.IsPrivate != nil {
		room.IsPrivate = *req.IsPrivate
	}

	switch {
	case !room.IsPrivate:
		room.InviteCode = nil
	case req.InviteCode != nil && *req.InviteCode != "":
		code := *req.InviteCode
		room.InviteCode = &code
	case room.InviteCode == nil || *room.InviteCode == "":
		return dto.RoomResponse{}, fieldError("inviteCode", "inviteCode is required for private rooms")
	}
	room.UpdatedAt = time.Now().UTC()

	if err := s.rooms.Update(ctx, &room); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return dto.RoomResponse{}, ErrInviteCodeTaken
		}
		return dto.RoomResponse{}, err
	}

	return s.response(ctx, userID, room)
}

func (s *roomService) Delete(ctx context.Context, userID, roomID string) error {
	if _, err := s.owned(ctx, userID, roomID); err != nil {
		return err
	}

	ctx, span := s.tracer.Start(ctx, "room.delete", trace.WithAttributes(attribute.String("room.id", roomID)))
	defer span.End()

	if err := s.rooms.Delete(ctx, roomID); err != nil {
		span.RecordError(err)
		return notFound(err, ErrRoomNotFound)
	}

	s.logger.Info().Str("room_id", roomID).Str("owner_id", userID).Msg("room deleted")
	return nil
}

func (s *roomService) JoinByCode(ctx context.Context, userID string, req dto.JoinRoomRequest) (dto.RoomResponse, error) {
	req.InviteCode = normalizeInviteCode(req.InviteCode)
	if err := s.validator.Struct(req); err != nil {
		return dto.RoomResponse{}, asValidationError(err)
	}

	room, err := s.rooms.GetByInviteCode(ctx, req.InviteCode)
	if err != nil {
		return dto.RoomResponse{}, notFound(err, ErrInvalidInvite)
	}
	return s.join(ctx, userID, room)
}

func (s *roomService) JoinPublic(ctx context.Context, userID, roomID string) (dto.RoomResponse, error) {
	room, err := s.guard().load(ctx, roomID)
	if err != nil {
		return dto.RoomResponse{}, err
	}
	if room.IsPrivate {
		isMember, err := s.rooms.IsMember(ctx, roomID, userID)
		if err != nil {
			return dto.RoomResponse{}, err
		}
		if !isMember {
			return dto.RoomResponse{}, ErrInviteRequired
		}
	}
	return s.join(ctx, userID, room)
}

func (s *roomService) join(ctx context.Context, userID string, room models.Room) (dto.RoomResponse, error) {
	added, err := s.rooms.AddMember(ctx, room.ID, userID)
	if err != nil {
		return dto.RoomResponse{}, err
	}
	if added {
		s.logger.Info().Str("room_id", room.ID).Str("user_id", userID).Msg("member joined room")
	}
	return s.response(ctx, userID, room)
}

func (s *roomService) Leave(ctx context.Context, userID, roomID string) error {
	room, err := s.guard().member(ctx, userID, roomID)
	if err != nil {
		return err
	}
	if room.OwnerID == userID {
		return ErrOwnerCannotLeave
	}
	if err := s.rooms.RemoveMember(ctx, roomID, userID); err != nil {
		return err
	}
	s.logger.Info().Str("room_id", roomID).Str("user_id", userID).Msg("member left room")
	return nil
}

func (s *roomService) Members(ctx context.Context, userID, roomID string) ([]dto.UserSummary, error) {
	if _, err := s.guard().viewable(ctx, userID, roomID); err != nil {
		return nil, err
	}
	users, err := s.rooms.ListMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserSummary, 0, len(users))
	for _, user := range users {
		out = append(out, dto.NewUserSummary(user))
	}
	return out, nil
}

func (s *roomService) owned(ctx context.Context, userID, roomID string) (models.Room, error) {
	room, err := s.guard().load(ctx, roomID)
	if err != nil {
		return models.Room{}, err
	}
	if room.OwnerID != userID {
		return models.Room{}, ErrNotRoomOwner
	}
	return room, nil
}

func (s *roomService) response(ctx context.Context, viewerID string, room models.Room) (dto.RoomResponse, error) {
	items, err := s.responses(ctx, viewerID, []models.Room{room})
	if err != nil {
		return dto.RoomResponse{}, err
	}
	return items[0], nil
}

func (s *roomService) responses(ctx context.Context, viewerID string, rooms []models.Room) ([]dto.RoomResponse, error) {
	ownerIDs := make([]string, 0, len(rooms))
	for _, room := range rooms {
		ownerIDs = append(ownerIDs, room.OwnerID)
	}
	owners, err := s.directory.summaries(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	out := make([]dto.RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		memberIDs, err := s.rooms.MemberIDs(ctx, room.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.NewRoomResponse(room, owners[room.OwnerID], memberIDs, viewerID))
	}
	return out, nil
}

func normalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
