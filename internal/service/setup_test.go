package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/studyrooms-api/internal/auth"
	"github.com/noah-isme/studyrooms-api/internal/database"
	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/repository"
	"github.com/noah-isme/studyrooms-api/internal/utils"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.RealtimeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.RealtimeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []dto.RealtimeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []dto.RealtimeEvent
	for _, event := range p.events {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

type testEnv struct {
	db       *gorm.DB
	tokens   *auth.JWTManager
	auth     AuthService
	rooms    RoomService
	posts    PostService
	doubts   DoubtService
	comments CommentService
	events   *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	validate := utils.NewValidator()
	logger := testLogger()
	events := &recordingPublisher{}
	tokens := auth.NewJWTManager("test-secret", time.Hour)

	repos := ContentRepositories{
		Rooms:     repository.NewRoomRepository(db),
		Users:     repository.NewUserRepository(db),
		Posts:     repository.NewPostRepository(db),
		Doubts:    repository.NewDoubtRepository(db),
		Comments:  repository.NewCommentRepository(db),
		Reactions: repository.NewReactionRepository(db),
	}

	return &testEnv{
		db:       db,
		tokens:   tokens,
		auth:     NewAuthService(repos.Users, auth.NewBcryptHasher(bcrypt.MinCost), tokens, validate, logger),
		rooms:    NewRoomService(repos.Rooms, repos.Users, validate, logger),
		posts:    NewPostService(repos, events, validate, logger),
		doubts:   NewDoubtService(repos, events, validate, logger),
		comments: NewCommentService(repos, events, validate, logger),
		events:   events,
	}
}

func (e *testEnv) signup(t *testing.T, name string) dto.UserResponse {
	t.Helper()
	resp, err := e.auth.Signup(context.Background(), dto.SignupRequest{
		Name:     name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "password123",
	})
	require.NoError(t, err)
	return resp.User
}

func (e *testEnv) room(t *testing.T, ownerID, name string) dto.RoomResponse {
	t.Helper()
	room, err := e.rooms.Create(context.Background(), ownerID, dto.CreateRoomRequest{Name: name, Description: "study group"})
	require.NoError(t, err)
	return room
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	return vErr.Fields
}
