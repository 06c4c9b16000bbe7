package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type assetUploader interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Store keeps room attachments in Cloudinary and hands back their secure URLs.
type Store struct {
	assets assetUploader
	folder string
	logger zerolog.Logger
	newID  func() string
}

// New constructs a Cloudinary-backed attachment store.
func New(cfg Config, logger zerolog.Logger) (*Store, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return newStore(&cld.Upload, cfg.Folder, logger), nil
}

func newStore(assets assetUploader, folder string, logger zerolog.Logger) *Store {
	return &Store{
		assets: assets,
		folder: strings.Trim(folder, "/"),
		logger: logger.With().Str("component", "cloudinary_store").Logger(),
		newID:  uuid.NewString,
	}
}

// Upload sends the attachment to Cloudinary. Images are stored as image assets, everything
// else as raw files so documents keep their original bytes and extension. The returned key
// is "<resource type>:<public id>".
func (s *Store) Upload(ctx context.Context, name string, reader io.Reader) (string, string, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     s.publicID(name),
		ResourceType: resourceType(name),
	}

	result, err := s.assets.Upload(ctx, reader, params)
	if err != nil {
		return "", "", fmt.Errorf("failed to upload attachment: %w", err)
	}
	if result.Error.Message != "" {
		return "", "", errors.New("cloudinary rejected attachment: " + result.Error.Message)
	}

	publicID := result.PublicID
	if publicID == "" {
		publicID = strings.TrimPrefix(s.folder+"/"+params.PublicID, "/")
	}

	s.logger.Info().Str("public_id", publicID).Str("resource_type", params.ResourceType).Msg("attachment stored")
	return result.SecureURL, params.ResourceType + ":" + publicID, nil
}

// Delete destroys the asset named by a key returned from Upload. Assets Cloudinary no
// longer knows about count as deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	kind, publicID, ok := strings.Cut(key, ":")
	if !ok || publicID == "" || (kind != "image" && kind != "raw") {
		return fmt.Errorf("invalid attachment key %q", key)
	}

	result, err := s.assets.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: kind})
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	if result.Error.Message != "" {
		return errors.New("cloudinary refused delete: " + result.Error.Message)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary delete returned %q", result.Result)
	}

	s.logger.Info().Str("public_id", publicID).Str("result", result.Result).Msg("attachment deleted")
	return nil
}

// publicID keeps the readable file stem and appends a short random suffix so repeated
// names never overwrite each other. Raw assets keep their extension in the id.
func (s *Store) publicID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "attachment"
	}

	suffix := strings.ReplaceAll(s.newID(), "-", "")
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}

	id := fmt.Sprintf("%s-%s", base, suffix)
	if resourceType(name) == "raw" {
		id += ext
	}
	return id
}

var imageExtensions = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".gif": {}, ".webp": {}, ".bmp": {}, ".svg": {},
}

func resourceType(name string) string {
	if _, ok := imageExtensions[strings.ToLower(filepath.Ext(name))]; ok {
		return "image"
	}
	return "raw"
}
