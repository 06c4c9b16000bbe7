package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/handler"
	"github.com/noah-isme/studyrooms-api/internal/service"
)

type postServiceStub struct {
	service.PostService
	liked    []string
	pinned   *bool
	lastRoom string
	lastList dto.ListQuery
}

func (s *postServiceStub) List(_ context.Context, _ string, roomID string, query dto.ListQuery) (service.Paged[dto.PostResponse], error) {
	s.lastRoom = roomID
	s.lastList = query
	return service.Paged[dto.PostResponse]{Page: 1, Limit: 20}, nil
}

func (s *postServiceStub) Like(_ context.Context, userID, postID string) (dto.PostResponse, error) {
	s.liked = append(s.liked, userID)
	return dto.PostResponse{ID: postID, LikedBy: s.liked, Likes: len(s.liked)}, nil
}

func (s *postServiceStub) SetPinned(_ context.Context, _ string, postID string, pinned bool) (dto.PostResponse, error) {
	s.pinned = &pinned
	return dto.PostResponse{ID: postID, IsPinned: pinned}, nil
}

type doubtServiceStub struct {
	service.DoubtService
	closed *bool
	urgent *bool
	err    error
}

func (s *doubtServiceStub) SetClosed(_ context.Context, _ string, doubtID string, closed bool) (dto.DoubtResponse, error) {
	if s.err != nil {
		return dto.DoubtResponse{}, s.err
	}
	s.closed = &closed
	return dto.DoubtResponse{ID: doubtID, IsClosed: closed}, nil
}

func (s *doubtServiceStub) SetUrgent(_ context.Context, _ string, doubtID string, urgent bool) (dto.DoubtResponse, error) {
	s.urgent = &urgent
	return dto.DoubtResponse{ID: doubtID, IsUrgent: urgent}, nil
}

type commentServiceStub struct {
	service.CommentService
	created    dto.CreateCommentRequest
	lastParent string
	err        error
}

func (s *commentServiceStub) Create(_ context.Context, userID string, req dto.CreateCommentRequest) (dto.CommentResponse, error) {
	s.created = req
	if s.err != nil {
		return dto.CommentResponse{}, s.err
	}
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return dto.CommentResponse{
		ID:         "comment-1",
		RoomID:     "room-1",
		ParentID:   req.ParentID,
		ParentType: "doubt",
		RootID:     req.ParentID,
		RootType:   "doubt",
		AuthorID:   userID,
		Author:     dto.UserSummary{ID: userID, Name: "Ada"},
		Content:    req.Content,
		LikedBy:    []string{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *commentServiceStub) ListByParent(_ context.Context, _ string, parentID string, _ dto.ListQuery) (service.Paged[dto.CommentResponse], error) {
	s.lastParent = parentID
	return service.Paged[dto.CommentResponse]{Page: 1, Limit: 20}, nil
}

func TestPostHandlerRoomRoutesReadFilters(t *testing.T) {
	svc := &postServiceStub{}
	h := handler.NewPostHandler(svc, testLogger())
	app := newTestApp("/rooms", h.RegisterRoomRoutes)

	resp, body := perform(t, app, jsonRequest(t, http.MethodGet, "/rooms/room-1/posts/search?q=matrix&type=note", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "room-1", svc.lastRoom)
	require.Equal(t, "matrix", svc.lastList.Query)
	require.Equal(t, "note", svc.lastList.Type)

	var envelope struct {
		Data []interface{} `json:"data"`
	}
	decodeBody(t, body, &envelope)
	require.NotNil(t, envelope.Data)
	require.Empty(t, envelope.Data)
}

func TestPostHandlerLikeAndPin(t *testing.T) {
	svc := &postServiceStub{}
	h := handler.NewPostHandler(svc, testLogger())
	app := newTestApp("/posts", h.Register)

	resp, body := perform(t, app, jsonRequest(t, http.MethodPost, "/posts/post-1/like", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var envelope struct {
		Data dto.PostResponse `json:"data"`
	}
	decodeBody(t, body, &envelope)
	require.Equal(t, []string{testUserID}, envelope.Data.LikedBy)
	require.Equal(t, 1, envelope.Data.Likes)

	resp, _ = perform(t, app, jsonRequest(t, http.MethodDelete, "/posts/post-1/pin", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.pinned)
	require.False(t, *svc.pinned)
}

func TestDoubtHandlerStatusToggles(t *testing.T) {
	svc := &doubtServiceStub{}
	h := handler.NewDoubtHandler(svc, testLogger())
	app := newTestApp("/doubts", h.Register)

	resp, _ := perform(t, app, jsonRequest(t, http.MethodPost, "/doubts/doubt-1/close", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, *svc.closed)

	resp, _ = perform(t, app, jsonRequest(t, http.MethodPost, "/doubts/doubt-1/reopen", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.False(t, *svc.closed)

	resp, _ = perform(t, app, jsonRequest(t, http.MethodPost, "/doubts/doubt-1/urgent", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, *svc.urgent)
}

func TestDoubtHandlerCloseRequiresModerator(t *testing.T) {
	h := handler.NewDoubtHandler(&doubtServiceStub{err: service.ErrNotModerator}, testLogger())
	app := newTestApp("/doubts", h.Register)

	resp, body := perform(t, app, jsonRequest(t, http.MethodPost, "/doubts/doubt-1/close", nil))
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	requireSchema(t, "envelope_error.schema.json", body)
}

func TestCommentHandlerCreate(t *testing.T) {
	svc := &commentServiceStub{}
	h := handler.NewCommentHandler(svc, testLogger())
	app := newTestApp("/comments", h.Register)

	resp, body := perform(t, app, jsonRequest(t, http.MethodPost, "/comments", map[string]string{
		"parentId": "doubt-1",
		"content":  "Try splitting the middle term.",
	}))
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	requireSchema(t, "comment.schema.json", body)
	require.Equal(t, "doubt-1", svc.created.ParentID)
}

func TestCommentHandlerDepthLimitIsValidationError(t *testing.T) {
	svc := &commentServiceStub{err: &service.ValidationError{Fields: map[string]string{"parentId": "replies cannot be nested deeper than 8 levels"}}}
	h := handler.NewCommentHandler(svc, testLogger())
	app := newTestApp("/comments", h.Register)

	resp, body := perform(t, app, jsonRequest(t, http.MethodPost, "/comments", map[string]string{
		"parentId": "comment-9",
		"content":  "one level too deep",
	}))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	requireSchema(t, "envelope_error.schema.json", body)
}

func TestCommentHandlerListByParent(t *testing.T) {
	svc := &commentServiceStub{}
	h := handler.NewCommentHandler(svc, testLogger())
	app := newTestApp("/comments", h.Register)

	resp, _ := perform(t, app, jsonRequest(t, http.MethodGet, "/comments/post-7?page=2", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "post-7", svc.lastParent)
}
