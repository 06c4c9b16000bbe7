package service

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/models"
	"github.com/noah-isme/studyrooms-api/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Pagination is a normalised page request.
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination clamps page and limit into their valid ranges.
func NewPagination(page, limit int) Pagination {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) repoPage() repository.Page {
	return repository.Page{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

// Paged is one page of results with its total count.
type Paged[T any] struct {
	Items []T
	Page  int
	Limit int
	Total int64
}

// sanitizer strips markup from user-generated text.
type sanitizer struct {
	body  *bluemonday.Policy
	plain *bluemonday.Policy
}

func newSanitizer() sanitizer {
	return sanitizer{body: bluemonday.UGCPolicy(), plain: bluemonday.StrictPolicy()}
}

// Body keeps safe formatting markup.
func (s sanitizer) Body(input string) string {
	return strings.TrimSpace(s.body.Sanitize(input))
}

// Plain removes all markup; entities produced by the policy are unescaped for plain-text fields.
func (s sanitizer) Plain(input string) string {
	return strings.TrimSpace(html.UnescapeString(s.plain.Sanitize(input)))
}

// Tags cleans, de-duplicates case-insensitively, and drops empty tags.
func (s sanitizer) Tags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		clean := s.Plain(tag)
		if clean == "" {
			continue
		}
		key := strings.ToLower(clean)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, clean)
	}
	return out
}

// userDirectory resolves author summaries in bulk.
type userDirectory struct {
	users repository.UserRepository
}

func (d userDirectory) summaries(ctx context.Context, ids []string) (map[string]dto.UserSummary, error) {
	unique := uniqueStrings(ids)
	users, err := d.users.ListByIDs(ctx, unique)
	if err != nil {
		return nil, err
	}

	out := make(map[string]dto.UserSummary, len(users))
	for _, user := range users {
		out[user.ID] = dto.NewUserSummary(user)
	}
	for _, id := range unique {
		if _, ok := out[id]; !ok {
			out[id] = dto.UserSummary{ID: id, Name: "Unknown user"}
		}
	}
	return out, nil
}

func (d userDirectory) summary(ctx context.Context, id string) (dto.UserSummary, error) {
	summaries, err := d.summaries(ctx, []string{id})
	if err != nil {
		return dto.UserSummary{}, err
	}
	return summaries[id], nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// notFound maps a repository miss onto the given service error.
func notFound(err error, target error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return target
	}
	return err
}

func attachmentsFromPayload(payload []dto.AttachmentPayload, clean sanitizer) []models.Attachment {
	out := make([]models.Attachment, 0, len(payload))
	for _, item := range payload {
		out = append(out, models.Attachment{
			Name: clean.Plain(item.Name),
			URL:  strings.TrimSpace(item.URL),
			Type: strings.TrimSpace(item.Type),
			Size: item.Size,
		})
	}
	return out
}
