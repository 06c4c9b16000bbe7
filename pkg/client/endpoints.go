package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/noah-isme/studyrooms-api/internal/dto"
)

// Signup registers an account and adopts the returned token.
func (c *Client) Signup(ctx context.Context, req dto.SignupRequest) (dto.AuthResponse, error) {
	var session dto.AuthResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/auth/signup", nil, req, &session); err != nil {
		return dto.AuthResponse{}, err
	}
	c.SetToken(session.Token)
	return session, nil
}

// Login authenticates and adopts the returned token.
func (c *Client) Login(ctx context.Context, req dto.LoginRequest) (dto.AuthResponse, error) {
	var session dto.AuthResponse
	if _, err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, req, &session); err != nil {
		return dto.AuthResponse{}, err
	}
	c.SetToken(session.Token)
	return session, nil
}

func (c *Client) Me(ctx context.Context) (dto.UserResponse, error) {
	var user dto.UserResponse
	_, err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &user)
	return user, err
}

func (c *Client) UpdateProfile(ctx context.Context, req dto.UpdateProfileRequest) (dto.UserResponse, error) {
	var user dto.UserResponse
	_, err := c.doJSON(ctx, http.MethodPut, "/auth/profile", nil, req, &user)
	return user, err
}

func (c *Client) ChangePassword(ctx context.Context, req dto.ChangePasswordRequest) error {
	_, err := c.doJSON(ctx, http.MethodPut, "/auth/password", nil, req, nil)
	return err
}

func (c *Client) ListRooms(ctx context.Context, opts ListOptions) (Page[dto.RoomResponse], error) {
	return list[dto.RoomResponse](ctx, c, "/rooms", opts.values())
}

func (c *Client) SearchRooms(ctx context.Context, query string, opts ListOptions) (Page[dto.RoomResponse], error) {
	opts.Query = query
	return list[dto.RoomResponse](ctx, c, "/rooms/search", opts.values())
}

func (c *Client) CreateRoom(ctx context.Context, req dto.CreateRoomRequest) (dto.RoomResponse, error) {
	var room dto.RoomResponse
	_, err := c.doJSON(ctx, http.MethodPost, "/rooms", nil, req, &room)
	return room, err
}

func (c *Client) GetRoom(ctx context.Context, roomID string) (dto.RoomResponse, error) {
	var room dto.RoomResponse
	_, err := c.doJSON(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID), nil, nil, &room)
	return room, err
}

func (c *Client) UpdateRoom(ctx context.Context, roomID string, req dto.UpdateRoomRequest) (dto.RoomResponse, error) {
	var room dto.RoomResponse
	_, err := c.doJSON(ctx, http.MethodPut, "/rooms/"+url.PathEscape(roomID), nil, req, &room)
	return room, err
}

func (c *Client) DeleteRoom(ctx context.Context, roomID string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/rooms/"+url.PathEscape(roomID), nil, nil, nil)
	return err
}

// JoinRoomByCode joins a private room with its invite code.
func (c *Client) JoinRoomByCode(ctx context.Context, inviteCode string) (dto.RoomResponse, error) {
	var room dto.RoomResponse
	_, err := c.doJSON(ctx, http.MethodPost, "/rooms/join", nil, dto.JoinRoomRequest{InviteCode: inviteCode}, &room)
	return room, err
}

// JoinRoom joins a public room.
func (c *Client) JoinRoom(ctx context.Context, roomID string) (dto.RoomResponse, error) {
	var room dto.RoomResponse
	_, err := c.doJSON(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/join", nil, nil, &room)
	return room, err
}

func (c *Client) LeaveRoom(ctx context.Context, roomID string) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/leave", nil, nil, nil)
	return err
}

func (c *Client) RoomMembers(ctx context.Context, roomID string) ([]dto.UserSummary, error) {
	var members []dto.UserSummary
	_, err := c.doJSON(ctx, http.MethodGet, "/rooms/"+url.PathEscape(roomID)+"/members", nil, nil, &members)
	return members, err
}

func (c *Client) ListPosts(ctx context.Context, roomID string, opts ListOptions) (Page[dto.PostResponse], error) {
	return list[dto.PostResponse](ctx, c, "/rooms/"+url.PathEscape(roomID)+"/posts", opts.values())
}

func (c *Client) SearchPosts(ctx context.Context, roomID, query string, opts ListOptions) (Page[dto.PostResponse], error) {
	opts.Query = query
	return list[dto.PostResponse](ctx, c, "/rooms/"+url.PathEscape(roomID)+"/posts/search", opts.values())
}

func (c *Client) CreatePost(ctx context.Context, roomID string, req dto.CreatePostRequest) (dto.PostResponse, error) {
	var post dto.PostResponse
	_, err := c.doJSON(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/posts", nil, req, &post)
	return post, err
}

func (c *Client) GetPost(ctx context.Context, postID string) (dto.PostResponse, error) {
	return c.postAction(ctx, http.MethodGet, postID, "", nil)
}

func (c *Client) UpdatePost(ctx context.Context, postID string, req dto.UpdatePostRequest) (dto.PostResponse, error) {
	return c.postAction(ctx, http.MethodPut, postID, "", req)
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil, nil)
	return err
}

func (c *Client) LikePost(ctx context.Context, postID string) (dto.PostResponse, error) {
	return c.postAction(ctx, http.MethodPost, postID, "/like", nil)
}

func (c *Client) UnlikePost(ctx context.Context, postID string) (dto.PostResponse, error) {
	return c.postAction(ctx, http.MethodDelete, postID, "/like", nil)
}

func (c *Client) PinPost(ctx context.Context, postID string) (dto.PostResponse, error) {
	return c.postAction(ctx, http.MethodPost, postID, "/pin", nil)
}

func (c *Client) UnpinPost(ctx context.Context, postID string) (dto.PostResponse, error) {
	return c.postAction(ctx, http.MethodDelete, postID, "/pin", nil)
}

func (c *Client) postAction(ctx context.Context, method, postID, suffix string, body interface{}) (dto.PostResponse, error) {
	var post dto.PostResponse
	_, err := c.doJSON(ctx, method, "/posts/"+url.PathEscape(postID)+suffix, nil, body, &post)
	return post, err
}

func (c *Client) ListDoubts(ctx context.Context, roomID string, opts ListOptions) (Page[dto.DoubtResponse], error) {
	return list[dto.DoubtResponse](ctx, c, "/rooms/"+url.PathEscape(roomID)+"/doubts", opts.values())
}

func (c *Client) SearchDoubts(ctx context.Context, roomID, query string, opts ListOptions) (Page[dto.DoubtResponse], error) {
	opts.Query = query
	return list[dto.DoubtResponse](ctx, c, "/rooms/"+url.PathEscape(roomID)+"/doubts/search", opts.values())
}

func (c *Client) CreateDoubt(ctx context.Context, roomID string, req dto.CreateDoubtRequest) (dto.DoubtResponse, error) {
	var doubt dto.DoubtResponse
	_, err := c.doJSON(ctx, http.MethodPost, "/rooms/"+url.PathEscape(roomID)+"/doubts", nil, req, &doubt)
	return doubt, err
}

func (c *Client) GetDoubt(ctx context.Context, doubtID string) (dto.DoubtResponse, error) {
	return c.doubtAction(ctx, http.MethodGet, doubtID, "", nil)
}

func (c *Client) UpdateDoubt(ctx context.Context, doubtID string, req dto.UpdateDoubtRequest) (dto.DoubtResponse, error) {
	return c.doubtAction(ctx, http.MethodPut, doubtID, "", req)
}

func (c *Client) DeleteDoubt(ctx context.Context, doubtID string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/doubts/"+url.PathEscape(doubtID), nil, nil, nil)
	return err
}

func (c *Client) LikeDoubt(ctx context.Context, doubtID string) (dto.DoubtResponse, error) {
	return c.doubtAction(ctx, http.MethodPost, doubtID, "/like", nil)
}

func (c *Client) UnlikeDoubt(ctx context.Context, doubtID string) (dto.DoubtResponse, error) {
	return c.doubtAction(ctx, http.MethodDelete, doubtID, "/like", nil)
}

func (c *Client) MarkUrgent(ctx context.Context, doubtID string) (dto.DoubtResponse, error) {
	return c.doubtAction(ctx, http.MethodPost, doubtID, "/urgent", nil)
}

func (c *Client) UnmarkUrgent(ctx context.Context, doubtID string) (dto.DoubtResponse, error) {
	return c.doubtAction(ctx, http.MethodDelete, doubtID, "/urgent", nil)
}

func (c *Client) CloseDoubt(ctx context.Context, doubtID string) (dto.DoubtResponse, error) {
	return c.doubtAction(ctx, http.MethodPost, doubtID, "/close", nil)
}

func (c *Client) ReopenDoubt(ctx context.Context, doubtID string) (dto.DoubtResponse, error) {
	return c.doubtAction(ctx, http.MethodPost, doubtID, "/reopen", nil)
}

func (c *Client) doubtAction(ctx context.Context, method, doubtID, suffix string, body interface{}) (dto.DoubtResponse, error) {
	var doubt dto.DoubtResponse
	_, err := c.doJSON(ctx, method, "/doubts/"+url.PathEscape(doubtID)+suffix, nil, body, &doubt)
	return doubt, err
}

// ListComments returns one level of replies under a post, doubt, or comment, oldest first.
func (c *Client) ListComments(ctx context.Context, parentID string, opts ListOptions) (Page[dto.CommentResponse], error) {
	return list[dto.CommentResponse](ctx, c, "/comments/"+url.PathEscape(parentID), opts.values())
}

func (c *Client) CreateComment(ctx context.Context, req dto.CreateCommentRequest) (dto.CommentResponse, error) {
	var comment dto.CommentResponse
	_, err := c.doJSON(ctx, http.MethodPost, "/comments", nil, req, &comment)
	return comment, err
}

func (c *Client) UpdateComment(ctx context.Context, commentID string, req dto.UpdateCommentRequest) (dto.CommentResponse, error) {
	return c.commentAction(ctx, http.MethodPut, commentID, "", req)
}

func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/comments/"+url.PathEscape(commentID), nil, nil, nil)
	return err
}

func (c *Client) LikeComment(ctx context.Context, commentID string) (dto.CommentResponse, error) {
	return c.commentAction(ctx, http.MethodPost, commentID, "/like", nil)
}

func (c *Client) UnlikeComment(ctx context.Context, commentID string) (dto.CommentResponse, error) {
	return c.commentAction(ctx, http.MethodDelete, commentID, "/like", nil)
}

func (c *Client) MarkSolution(ctx context.Context, commentID string) (dto.CommentResponse, error) {
	return c.commentAction(ctx, http.MethodPost, commentID, "/solution", nil)
}

func (c *Client) UnmarkSolution(ctx context.Context, commentID string) (dto.CommentResponse, error) {
	return c.commentAction(ctx, http.MethodDelete, commentID, "/solution", nil)
}

func (c *Client) commentAction(ctx context.Context, method, commentID, suffix string, body interface{}) (dto.CommentResponse, error) {
	var comment dto.CommentResponse
	_, err := c.doJSON(ctx, method, "/comments/"+url.PathEscape(commentID)+suffix, nil, body, &comment)
	return comment, err
}

// FileUpload is one file in a multipart upload.
type FileUpload struct {
	Name   string
	Reader io.Reader
}

// Upload sends a single attachment.
func (c *Client) Upload(ctx context.Context, file FileUpload) (dto.UploadResponse, error) {
	body, contentType, err := multipartBody("file", []FileUpload{file})
	if err != nil {
		return dto.UploadResponse{}, err
	}
	var uploaded dto.UploadResponse
	_, err = c.do(ctx, http.MethodPost, "/upload", nil, body, contentType, &uploaded)
	return uploaded, err
}

// UploadMany sends several attachments in one request.
func (c *Client) UploadMany(ctx context.Context, files []FileUpload) ([]dto.UploadResponse, error) {
	body, contentType, err := multipartBody("files", files)
	if err != nil {
		return nil, err
	}
	var uploaded []dto.UploadResponse
	_, err = c.do(ctx, http.MethodPost, "/upload/multiple", nil, body, contentType, &uploaded)
	return uploaded, err
}

func (c *Client) GetFile(ctx context.Context, id string) (dto.UploadResponse, error) {
	var uploaded dto.UploadResponse
	_, err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(id), nil, nil, &uploaded)
	return uploaded, err
}

// DeleteFile removes an upload the caller owns.
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	_, err := c.doJSON(ctx, http.MethodDelete, "/files/"+url.PathEscape(id), nil, nil, nil)
	return err
}

func multipartBody(field string, files []FileUpload) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, file := range files {
		part, err := writer.CreateFormFile(field, file.Name)
		if err != nil {
			return nil, "", fmt.Errorf("build upload: %w", err)
		}
		if _, err := io.Copy(part, file.Reader); err != nil {
			return nil, "", fmt.Errorf("read %s: %w", file.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("build upload: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}
