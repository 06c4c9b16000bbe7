package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/studyrooms-api/internal/dto"
	"github.com/noah-isme/studyrooms-api/internal/models"
	"github.com/noah-isme/studyrooms-api/internal/observability"
	"github.com/noah-isme/studyrooms-api/internal/repository"
)

// MaxFilesPerUpload caps a multi-file upload request.
const MaxFilesPerUpload = 10

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file contents failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
)

var allowedMimeTypes = map[string]struct{}{
	"application/pdf":               {},
	"text/plain":                    {},
	"application/zip":               {},
	"application/msword":            {},
	"application/vnd.ms-excel":      {},
	"application/vnd.ms-powerpoint": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
}

// FileStorage abstracts upload destinations. Upload returns the public URL and the key
// Delete later needs to remove the stored object.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (url string, key string, err error)
	Delete(ctx context.Context, key string) error
}

// UploadService handles validation and persistence of uploads.
type UploadService interface {
	Upload(ctx context.Context, userID string, file *multipart.FileHeader) (dto.UploadResponse, error)
	UploadMany(ctx context.Context, userID string, files []*multipart.FileHeader) ([]dto.UploadResponse, error)
	Get(ctx context.Context, id string) (dto.UploadResponse, error)
	Delete(ctx context.Context, userID, id string) error
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
	now     func() time.Time
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/noah-isme/studyrooms-api/internal/service/upload"),
		now:     time.Now,
	}
}

func (s *uploadService) UploadMany(ctx context.Context, userID string, files []*multipart.FileHeader) ([]dto.UploadResponse, error) {
	if len(files) == 0 {
		return nil, fieldError("files", "files is required")
	}
	if len(files) > MaxFilesPerUpload {
		return nil, fieldError("files", fmt.Sprintf("files must be at most %d items", MaxFilesPerUpload))
	}

	out := make([]dto.UploadResponse, 0, len(files))
	for _, file := range files {
		uploaded, err := s.Upload(ctx, userID, file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", displayName(file), err)
		}
		out = append(out, uploaded)
	}
	return out, nil
}

func (s *uploadService) Upload(ctx context.Context, userID string, file *multipart.FileHeader) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))
	if file == nil {
		span.SetAttributes(attribute.Bool("upload.file_present", false))
		return dto.UploadResponse{}, fieldError("file", "file is required")
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	start := s.now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	if file.Size > s.maxSize {
		return dto.UploadResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.UploadResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.UploadResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		return dto.UploadResponse{}, s.reject(span, "size", ErrUploadTooLarge)
	}

	fileType := normalizeMime(mimetype.Detect(buf.Bytes()).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(fileType) {
		return dto.UploadResponse{}, s.reject(span, "type", ErrUploadTypeNotAllowed)
	}

	if err := s.scan(buf.Bytes(), fileType); err != nil {
		return dto.UploadResponse{}, s.reject(span, "scan", err)
	}

	checksum := sha256.Sum256(buf.Bytes())
	sanitizedName := sanitizeFileName(file.Filename, s.now())
	span.SetAttributes(
		attribute.String("upload.sanitized_name", sanitizedName),
		attribute.Int64("upload.size_bytes", int64(buf.Len())),
	)

	url, key, err := s.storage.Upload(ctx, sanitizedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.UploadResponse{}, err
	}

	record := models.UploadRecord{
		OwnerID:    userID,
		FileName:   sanitizedName,
		URL:        url,
		StorageKey: key,
		MimeType:   fileType,
		SizeBytes:  int64(buf.Len()),
		Checksum:   hex.EncodeToString(checksum[:]),
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persistence failed")
		return dto.UploadResponse{}, err
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().Str("upload_id", record.ID).Str("owner_id", userID).Str("mime", fileType).Int64("bytes", record.SizeBytes).Msg("file uploaded")

	return dto.NewUploadResponse(record), nil
}

func (s *uploadService) Get(ctx context.Context, id string) (dto.UploadResponse, error) {
	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.UploadResponse{}, notFound(err, ErrUploadNotFound)
	}
	return dto.NewUploadResponse(record), nil
}

// Delete removes the stored object before the metadata so a failed storage call leaves
// the record in place for a retry.
func (s *uploadService) Delete(ctx context.Context, userID, id string) error {
	ctx, span := s.tracer.Start(ctx, "upload.delete")
	defer span.End()
	span.SetAttributes(attribute.String("upload.id", id))

	record, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, ErrUploadNotFound)
	}
	if record.OwnerID != userID {
		return ErrNotUploader
	}

	if record.StorageKey != "" {
		if err := s.storage.Delete(ctx, record.StorageKey); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "storage delete failed")
			return err
		}
	} else {
		s.logger.Warn().Str("upload_id", id).Msg("upload has no storage key; removing metadata only")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFound(err, ErrUploadNotFound)
	}

	span.SetStatus(codes.Ok, "deleted")
	s.logger.Info().Str("upload_id", id).Str("owner_id", userID).Msg("file deleted")
	return nil
}

func (s *uploadService) reject(span trace.Span, reason string, err error) error {
	observability.UploadRejected().WithLabelValues(reason).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, "rejected: "+reason)
	return err
}

// scan rejects archives whose declared uncompressed size dwarfs the upload limit.
func (s *uploadService) scan(payload []byte, mime string) error {
	if mime != "application/zip" {
		return nil
	}

	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var totalUncompressed uint64
	for _, f := range reader.File {
		totalUncompressed += f.UncompressedSize64
		if totalUncompressed > uint64(s.maxSize*20) {
			return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func displayName(file *multipart.FileHeader) string {
	if file == nil {
		return "file"
	}
	return file.Filename
}

func sanitizeFileName(name string, now time.Time) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", now.Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	if lower == "application/x-zip-compressed" {
		return "application/zip"
	}
	return lower
}

func isAllowedType(m string) bool {
	if strings.HasPrefix(m, "image/") {
		return true
	}
	_, ok := allowedMimeTypes[m]
	return ok
}
