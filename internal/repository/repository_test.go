package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/studyrooms-api/internal/database"
	"github.com/noah-isme/studyrooms-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) models.User {
	t.Helper()
	user := models.User{Email: name + "@example.com", PasswordHash: "hash", DisplayName: name}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), &user))
	return user
}

func createRoom(t *testing.T, db *gorm.DB, owner models.User, name string, private bool) models.Room {
	t.Helper()
	room := models.Room{Name: name, OwnerID: owner.ID, IsPrivate: private}
	if private {
		code := "CODE" + uuid.NewString()[:6]
		room.InviteCode = &code
	}
	require.NoError(t, NewRoomRepository(db).Create(context.Background(), &room))
	return room
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, db, "ada")

	err := repo.Create(ctx, &models.User{Email: "ada@example.com", PasswordHash: "x", DisplayName: "Other"})
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.GetByEmail(ctx, "missing@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRoomRepositoryCreateEnrolsOwner(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	owner := createUser(t, db, "owner")

	room := createRoom(t, db, owner, "Algebra", false)

	isMember, err := repo.IsMember(context.Background(), room.ID, owner.ID)
	require.NoError(t, err)
	require.True(t, isMember)

	ids, err := repo.MemberIDs(context.Background(), room.ID)
	require.NoError(t, err)
	require.Equal(t, []string{owner.ID}, ids)
}

func TestRoomRepositoryAddMemberIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	guest := createUser(t, db, "guest")
	room := createRoom(t, db, owner, "Physics", true)

	added, err := repo.AddMember(ctx, room.ID, guest.ID)
	require.NoError(t, err)
	require.True(t, added)

	added, err = repo.AddMember(ctx, room.ID, guest.ID)
	require.NoError(t, err)
	require.False(t, added)

	members, err := repo.ListMembers(ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)
	require.Equal(t, owner.ID, members[0].ID)
}

func TestRoomRepositoryListVisible(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	outsider := createUser(t, db, "outsider")

	createRoom(t, db, owner, "Open Calculus", false)
	createRoom(t, db, owner, "Secret Chemistry", true)

	rooms, total, err := repo.ListVisible(ctx, outsider.ID, RoomFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Open Calculus", rooms[0].Name)

	rooms, total, err = repo.ListVisible(ctx, owner.ID, RoomFilter{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, rooms, 2)

	rooms, _, err = repo.ListVisible(ctx, owner.ID, RoomFilter{Query: "CHEM"})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, "Secret Chemistry", rooms[0].Name)
}

func TestRoomRepositoryInviteCodeLookupAndUniqueness(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()
	owner := createUser(t, db, "owner")

	code := "ABC123"
	room := models.Room{Name: "Private", OwnerID: owner.ID, IsPrivate: true, InviteCode: &code}
	require.NoError(t, repo.Create(ctx, &room))

	found, err := repo.GetByInviteCode(ctx, "abc123")
	require.NoError(t, err)
	require.Equal(t, room.ID, found.ID)

	again := models.Room{Name: "Clone", OwnerID: owner.ID, IsPrivate: true, InviteCode: &code}
	require.ErrorIs(t, repo.Create(ctx, &again), ErrDuplicate)

	_, err = repo.GetByInviteCode(ctx, "NOPE99")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRoomRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createUser(t, db, "owner")
	room := createRoom(t, db, owner, "Biology", false)

	post := models.Post{RoomID: room.ID, AuthorID: owner.ID, Title: "Cells", Content: "Cells are small", Type: models.PostTypeNote}
	require.NoError(t, NewPostRepository(db).Create(ctx, &post))
	comment := models.Comment{RoomID: room.ID, ParentID: post.ID, ParentType: models.ParentPost, RootID: post.ID, RootType: models.ParentPost, AuthorID: owner.ID, Content: "nice"}
	require.NoError(t, NewCommentRepository(db).Create(ctx, &comment))
	require.NoError(t, NewReactionRepository(db).Add(ctx, models.Reaction{TargetType: models.TargetPost, TargetID: post.ID, UserID: owner.ID, RoomID: room.ID}))

	require.NoError(t, NewRoomRepository(db).Delete(ctx, room.ID))

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.Reaction{}).Count(&count).Error)
	require.Zero(t, count)
	require.NoError(t, db.Model(&models.RoomMember{}).Count(&count).Error)
	require.Zero(t, count)

	require.ErrorIs(t, NewRoomRepository(db).Delete(ctx, room.ID), ErrNotFound)
}

func TestPostRepositoryListPinnedFirstAndSearch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := createUser(t, db, "Grace")
	room := createRoom(t, db, author, "Algebra", false)

	base := time.Now().UTC().Add(-time.Hour)
	older := models.Post{RoomID: room.ID, AuthorID: author.ID, Title: "Pinned basics", Content: "Read this first", Type: models.PostTypeAnnouncement, IsPinned: true, CreatedAt: base}
	newer := models.Post{RoomID: room.ID, AuthorID: author.ID, Title: "Matrices", Content: "Row reduction notes", Type: models.PostTypeNote, Tags: []string{"LinearAlgebra"}, CreatedAt: base.Add(time.Minute)}
	newest := models.Post{RoomID: room.ID, AuthorID: author.ID, Title: "Vectors", Content: "Dot products", Type: models.PostTypeTopic, CreatedAt: base.Add(2 * time.Minute)}
	require.NoError(t, repo.Create(ctx, &older))
	require.NoError(t, repo.Create(ctx, &newer))
	require.NoError(t, repo.Create(ctx, &newest))

	posts, total, err := repo.ListByRoom(ctx, PostFilter{RoomID: room.ID})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Equal(t, older.ID, posts[0].ID, "pinned post first")
	require.Equal(t, newest.ID, posts[1].ID)
	require.Equal(t, newer.ID, posts[2].ID)

	posts, total, err = repo.ListByRoom(ctx, PostFilter{RoomID: room.ID, Query: "linearalgebra"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, newer.ID, posts[0].ID)

	posts, _, err = repo.ListByRoom(ctx, PostFilter{RoomID: room.ID, Query: "grace"})
	require.NoError(t, err)
	require.Len(t, posts, 3, "author name matches")

	posts, _, err = repo.ListByRoom(ctx, PostFilter{RoomID: room.ID, Type: models.PostTypeTopic})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.Equal(t, newest.ID, posts[0].ID)

	posts, total, err = repo.ListByRoom(ctx, PostFilter{RoomID: room.ID, Page: Page{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, posts, 1)
	require.Equal(t, newest.ID, posts[0].ID)
}

func TestDoubtRepositoryStatusFilter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDoubtRepository(db)
	ctx := context.Background()
	author := createUser(t, db, "student")
	room := createRoom(t, db, author, "Algebra", false)

	open := models.Doubt{RoomID: room.ID, AuthorID: author.ID, Title: "Open one", Description: "still open question"}
	urgent := models.Doubt{RoomID: room.ID, AuthorID: author.ID, Title: "Urgent one", Description: "exam tomorrow please", IsUrgent: true}
	closed := models.Doubt{RoomID: room.ID, AuthorID: author.ID, Title: "Closed one", Description: "already answered", IsClosed: true}
	for _, d := range []*models.Doubt{&open, &urgent, &closed} {
		require.NoError(t, repo.Create(ctx, d))
	}

	cases := map[DoubtStatus]int{DoubtStatusAll: 3, "": 3, DoubtStatusOpen: 2, DoubtStatusClosed: 1, DoubtStatusUrgent: 1}
	for status, expected := range cases {
		doubts, total, err := repo.ListByRoom(ctx, DoubtFilter{RoomID: room.ID, Status: status})
		require.NoError(t, err)
		require.Equal(t, int64(expected), total, "status %q", status)
		require.Len(t, doubts, expected)
	}

	doubts, _, err := repo.ListByRoom(ctx, DoubtFilter{RoomID: room.ID})
	require.NoError(t, err)
	require.Equal(t, urgent.ID, doubts[0].ID)
	require.Equal(t, closed.ID, doubts[2].ID)

	doubts, _, err = repo.ListByRoom(ctx, DoubtFilter{RoomID: room.ID, Query: "EXAM"})
	require.NoError(t, err)
	require.Len(t, doubts, 1)
	require.Equal(t, urgent.ID, doubts[0].ID)
}

func TestCommentRepositoryTreeOperations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	author := createUser(t, db, "student")
	room := createRoom(t, db, author, "Algebra", false)

	doubt := models.Doubt{RoomID: room.ID, AuthorID: author.ID, Title: "Quadratics", Description: "How to factor these?"}
	require.NoError(t, NewDoubtRepository(db).Create(ctx, &doubt))

	first := models.Comment{RoomID: room.ID, ParentID: doubt.ID, ParentType: models.ParentDoubt, RootID: doubt.ID, RootType: models.ParentDoubt, AuthorID: author.ID, Content: "Use the formula"}
	second := models.Comment{RoomID: room.ID, ParentID: doubt.ID, ParentType: models.ParentDoubt, RootID: doubt.ID, RootType: models.ParentDoubt, AuthorID: author.ID, Content: "Complete the square"}
	require.NoError(t, repo.Create(ctx, &first))
	require.NoError(t, repo.Create(ctx, &second))
	reply := models.Comment{RoomID: room.ID, ParentID: first.ID, ParentType: models.ParentComment, RootID: doubt.ID, RootType: models.ParentDoubt, Depth: 1, AuthorID: author.ID, Content: "Thanks!"}
	require.NoError(t, repo.Create(ctx, &reply))
	nested := models.Comment{RoomID: room.ID, ParentID: reply.ID, ParentType: models.ParentComment, RootID: doubt.ID, RootType: models.ParentDoubt, Depth: 2, AuthorID: author.ID, Content: "Welcome"}
	require.NoError(t, repo.Create(ctx, &nested))

	level, total, err := repo.ListByParent(ctx, doubt.ID, Page{})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, level, 2)

	roots, err := repo.CountByRoots(ctx, []string{doubt.ID})
	require.NoError(t, err)
	require.Equal(t, int64(4), roots[doubt.ID])

	replies, err := repo.CountByParents(ctx, []string{first.ID, second.ID})
	require.NoError(t, err)
	require.Equal(t, int64(1), replies[first.ID])
	require.Zero(t, replies[second.ID])

	require.NoError(t, repo.MarkSolution(ctx, first.ID, doubt.ID))
	require.NoError(t, repo.MarkSolution(ctx, second.ID, doubt.ID))

	var solutions []models.Comment
	require.NoError(t, db.Where("is_solution = ?", true).Find(&solutions).Error)
	require.Len(t, solutions, 1)
	require.Equal(t, second.ID, solutions[0].ID)

	require.NoError(t, repo.Delete(ctx, first.ID))
	var remaining int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining, "subtree removed with its root")

	require.ErrorIs(t, repo.Delete(ctx, first.ID), ErrNotFound)
}

func TestReactionRepositoryLikeUnlikeIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	reaction := models.Reaction{TargetType: models.TargetPost, TargetID: "post-1", UserID: "user-1", RoomID: "room-1"}
	require.NoError(t, repo.Add(ctx, reaction))
	require.NoError(t, repo.Add(ctx, reaction))

	likes, err := repo.LikedBy(ctx, models.TargetPost, []string{"post-1", "post-2"})
	require.NoError(t, err)
	require.Equal(t, []string{"user-1"}, likes["post-1"])
	require.Empty(t, likes["post-2"])

	require.NoError(t, repo.Remove(ctx, models.TargetPost, "post-1", "user-1"))
	require.NoError(t, repo.Remove(ctx, models.TargetPost, "post-1", "user-1"))

	likes, err = repo.LikedBy(ctx, models.TargetPost, []string{"post-1"})
	require.NoError(t, err)
	require.Empty(t, likes["post-1"])
}

func TestUploadRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUploadRepository(db)
	ctx := context.Background()

	record := models.UploadRecord{OwnerID: "user-1", FileName: "report.pdf", URL: "https://cdn.example.com/report.pdf", MimeType: "application/pdf", SizeBytes: 2048, Checksum: "abc123"}
	require.NoError(t, repo.Create(ctx, &record))
	require.NotEmpty(t, record.ID)

	stored, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	require.Equal(t, "report.pdf", stored.FileName)
	require.Equal(t, "application/pdf", stored.MimeType)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Delete(ctx, record.ID))
	_, err = repo.GetByID(ctx, record.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, record.ID), ErrNotFound)
}

func TestSearchTreatsQueryAsLiteralText(t *testing.T) {
	db := setupTestDB(t)
	posts := NewPostRepository(db)
	doubts := NewDoubtRepository(db)
	rooms := NewRoomRepository(db)
	ctx := context.Background()
	author := createUser(t, db, "Grace")
	room := createRoom(t, db, author, "Research", false)

	research := models.Post{RoomID: room.ID, AuthorID: author.ID, Title: "Lab budget", Content: "Numbers for the term", Tags: []string{"R&D"}}
	math := models.Post{RoomID: room.ID, AuthorID: author.ID, Title: "Limits", Content: "Epsilon delta proofs", Tags: []string{"math", "calculus"}}
	snake := models.Post{RoomID: room.ID, AuthorID: author.ID, Title: "snake_case names", Content: "Naming conventions"}
	for _, p := range []*models.Post{&research, &math, &snake} {
		require.NoError(t, posts.Create(ctx, p))
	}

	cases := []struct {
		query string
		want  []string
	}{
		{query: "r&d", want: []string{research.ID}},
		{query: "MATH", want: []string{math.ID}},
		{query: "_", want: []string{snake.ID}},
		{query: "%", want: nil},
		{query: `"`, want: nil},
		{query: ",", want: nil},
		{query: `\`, want: nil},
		{query: "mathcalc", want: nil},
	}
	for _, tc := range cases {
		found, total, err := posts.ListByRoom(ctx, PostFilter{RoomID: room.ID, Query: tc.query})
		require.NoError(t, err)
		require.Equal(t, int64(len(tc.want)), total, "query %q", tc.query)
		ids := make([]string, 0, len(found))
		for _, p := range found {
			ids = append(ids, p.ID)
		}
		require.ElementsMatch(t, tc.want, ids, "query %q", tc.query)
	}

	research.Tags = []string{"physics"}
	require.NoError(t, posts.Update(ctx, &research))
	_, total, err := posts.ListByRoom(ctx, PostFilter{RoomID: room.ID, Query: "r&d"})
	require.NoError(t, err)
	require.Zero(t, total, "tag search follows updates")

	doubt := models.Doubt{RoomID: room.ID, AuthorID: author.ID, Title: "Grant deadline", Description: "When is it due again?", Tags: []string{"Q&A"}}
	require.NoError(t, doubts.Create(ctx, &doubt))
	found, total, err := doubts.ListByRoom(ctx, DoubtFilter{RoomID: room.ID, Query: "q&a"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, doubt.ID, found[0].ID)
	_, total, err = doubts.ListByRoom(ctx, DoubtFilter{RoomID: room.ID, Query: "%"})
	require.NoError(t, err)
	require.Zero(t, total)

	tagged := models.Room{Name: "Lab", OwnerID: author.ID, Tags: []string{"R&D"}}
	require.NoError(t, rooms.Create(ctx, &tagged))
	visible, total, err := rooms.ListVisible(ctx, author.ID, RoomFilter{Query: "r&d"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, tagged.ID, visible[0].ID)
	_, total, err = rooms.ListVisible(ctx, author.ID, RoomFilter{Query: "_"})
	require.NoError(t, err)
	require.Zero(t, total)
}
