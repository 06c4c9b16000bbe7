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

type roomServiceStub struct {
	service.RoomService
	rooms     []dto.RoomResponse
	err       error
	lastQuery dto.RoomListQuery
	lastCode  string
	lastRoom  string
}

func (s *roomServiceStub) List(_ context.Context, _ string, query dto.RoomListQuery) (service.Paged[dto.RoomResponse], error) {
	s.lastQuery = query
	if s.err != nil {
		return service.Paged[dto.RoomResponse]{}, s.err
	}
	return service.Paged[dto.RoomResponse]{Items: s.rooms, Page: 1, Limit: 20, Total: int64(len(s.rooms))}, nil
}

func (s *roomServiceStub) JoinByCode(_ context.Context, _ string, req dto.JoinRoomRequest) (dto.RoomResponse, error) {
	s.lastCode = req.InviteCode
	if s.err != nil {
		return dto.RoomResponse{}, s.err
	}
	return s.rooms[0], nil
}

func (s *roomServiceStub) Leave(_ context.Context, _ string, roomID string) error {
	s.lastRoom = roomID
	return s.err
}

func (s *roomServiceStub) Delete(_ context.Context, _ string, roomID string) error {
	s.lastRoom = roomID
	return s.err
}

func sampleRoom() dto.RoomResponse {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return dto.RoomResponse{
		ID:          "room-1",
		Name:        "Algebra",
		Description: "Linear and quadratic equations",
		OwnerID:     "owner-1",
		Owner:       dto.UserSummary{ID: "owner-1", Name: "Grace"},
		Tags:        []string{"math"},
		MemberIDs:   []string{"owner-1", testUserID},
		MemberCount: 2,
		IsMember:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func roomApp(svc service.RoomService) *fiber.App {
	h := handler.NewRoomHandler(svc, testLogger())
	return newTestApp("/rooms", h.Register)
}

func TestRoomHandlerListReturnsPage(t *testing.T) {
	svc := &roomServiceStub{rooms: []dto.RoomResponse{sampleRoom()}}
	app := roomApp(svc)

	resp, body := perform(t, app, jsonRequest(t, http.MethodGet, "/rooms/search?q=algebra&page=1&limit=20", nil))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	requireSchema(t, "room_page.schema.json", body)
	require.Equal(t, "algebra", svc.lastQuery.Query)
	require.Equal(t, 20, svc.lastQuery.Limit)
}

func TestRoomHandlerRejectsBadPaging(t *testing.T) {
	app := roomApp(&roomServiceStub{})

	resp, body := perform(t, app, jsonRequest(t, http.MethodGet, "/rooms?page=abc", nil))
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	requireSchema(t, "envelope_error.schema.json", body)

	var envelope struct {
		Details map[string]string `json:"details"`
	}
	decodeBody(t, body, &envelope)
	require.Contains(t, envelope.Details, "page")
}

func TestRoomHandlerJoinByCodeTrimsCode(t *testing.T) {
	svc := &roomServiceStub{rooms: []dto.RoomResponse{sampleRoom()}}
	app := roomApp(svc)

	resp, _ := perform(t, app, jsonRequest(t, http.MethodPost, "/rooms/join", map[string]string{"inviteCode": "  ABC123 "}))
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "ABC123", svc.lastCode)
}

func TestRoomHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		method  string
		target  string
		err     error
		status  int
		message string
	}{
		{name: "invalid invite", method: http.MethodPost, target: "/rooms/join", err: service.ErrInvalidInvite, status: fiber.StatusConflict, message: "invite code is invalid"},
		{name: "owner leaving", method: http.MethodPost, target: "/rooms/room-1/leave", err: service.ErrOwnerCannotLeave, status: fiber.StatusConflict, message: "the owner cannot leave; delete the room instead"},
		{name: "non owner delete", method: http.MethodDelete, target: "/rooms/room-1", err: service.ErrNotRoomOwner, status: fiber.StatusForbidden, message: "only the room owner can do this"},
		{name: "missing room", method: http.MethodDelete, target: "/rooms/room-9", err: service.ErrRoomNotFound, status: fiber.StatusNotFound, message: "room not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := roomApp(&roomServiceStub{err: tc.err})

			var body interface{}
			if tc.target == "/rooms/join" {
				body = map[string]string{"inviteCode": "WRONG1"}
			}
			resp, data := perform(t, app, jsonRequest(t, tc.method, tc.target, body))
			require.Equal(t, tc.status, resp.StatusCode)
			requireSchema(t, "envelope_error.schema.json", data)

			var envelope struct {
				Message string `json:"message"`
			}
			decodeBody(t, data, &envelope)
			require.Equal(t, tc.message, envelope.Message)
		})
	}
}

func TestRoomHandlerHidesInternalErrors(t *testing.T) {
	app := roomApp(&roomServiceStub{err: context.DeadlineExceeded})

	resp, data := perform(t, app, jsonRequest(t, http.MethodGet, "/rooms", nil))
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var envelope struct {
		Message string `json:"message"`
	}
	decodeBody(t, data, &envelope)
	require.Equal(t, "internal server error", envelope.Message)
}
