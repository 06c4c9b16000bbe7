package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/studyrooms-api/internal/utils"
)

// Base error kinds. Specific errors wrap one of these so callers can classify with errors.Is.
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
)

var (
	ErrRoomNotFound    = fmt.Errorf("room %w", ErrNotFound)
	ErrPostNotFound    = fmt.Errorf("post %w", ErrNotFound)
	ErrDoubtNotFound   = fmt.Errorf("doubt %w", ErrNotFound)
	ErrCommentNotFound = fmt.Errorf("comment %w", ErrNotFound)
	ErrParentNotFound  = fmt.Errorf("parent %w", ErrNotFound)
	ErrUploadNotFound  = fmt.Errorf("file %w", ErrNotFound)

	ErrNotRoomOwner     = fmt.Errorf("%w: only the room owner can do this", ErrForbidden)
	ErrNotRoomMember    = fmt.Errorf("%w: you are not a member of this room", ErrForbidden)
	ErrRoomNotVisible   = fmt.Errorf("%w: this room is private", ErrForbidden)
	ErrNotAuthor        = fmt.Errorf("%w: only the author can do this", ErrForbidden)
	ErrNotModerator     = fmt.Errorf("%w: only the author or the room owner can do this", ErrForbidden)
	ErrNotDoubtAuthor   = fmt.Errorf("%w: only the author of the doubt can choose its solution", ErrForbidden)
	ErrNotUploader      = fmt.Errorf("%w: only the uploader can delete this file", ErrForbidden)
	ErrEmailTaken       = fmt.Errorf("%w: email is already registered", ErrConflict)
	ErrInvalidInvite    = fmt.Errorf("%w: invite code is invalid", ErrConflict)
	ErrInviteCodeTaken  = fmt.Errorf("%w: invite code is already in use", ErrConflict)
	ErrInviteRequired   = fmt.Errorf("%w: this room requires an invite code", ErrConflict)
	ErrOwnerCannotLeave = fmt.Errorf("%w: the owner cannot leave; delete the room instead", ErrConflict)
)

// ValidationError carries field-level messages for client-fixable input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, e.Fields[key])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldError builds a ValidationError for a single field.
func fieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// asValidationError converts validator failures into a ValidationError and passes other errors through.
func asValidationError(err error) error {
	if err == nil {
		return nil
	}
	if fields := utils.ValidationFields(err); fields != nil {
		return &ValidationError{Fields: fields}
	}
	return err
}
