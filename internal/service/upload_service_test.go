package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyrooms-api/internal/models"
	"github.com/noah-isme/studyrooms-api/internal/repository"
)

type storageStub struct {
	uploaded  bytes.Buffer
	calls     int
	deleted   []string
	deleteErr error
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (string, string, error) {
	s.calls++
	s.uploaded.Reset()
	_, err := s.uploaded.ReadFrom(reader)
	if err != nil {
		return "", "", err
	}
	return "https://cdn.example.com/" + name, "key-" + name, nil
}

func (s *storageStub) Delete(ctx context.Context, key string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, key)
	return nil
}

type uploadRepoStub struct {
	records map[string]models.UploadRecord
	last    models.UploadRecord
}

func (u *uploadRepoStub) Create(ctx context.Context, record *models.UploadRecord) error {
	if record.ID == "" {
		record.ID = "upload-" + record.FileName
	}
	if u.records == nil {
		u.records = make(map[string]models.UploadRecord)
	}
	u.records[record.ID] = *record
	u.last = *record
	return nil
}

func (u *uploadRepoStub) GetByID(ctx context.Context, id string) (models.UploadRecord, error) {
	record, ok := u.records[id]
	if !ok {
		return models.UploadRecord{}, repository.ErrNotFound
	}
	return record, nil
}

func (u *uploadRepoStub) Delete(ctx context.Context, id string) error {
	if _, ok := u.records[id]; !ok {
		return repository.ErrNotFound
	}
	delete(u.records, id)
	return nil
}

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestUploadServiceRejectsSize(t *testing.T) {
	storage := &storageStub{}
	svc := NewUploadService(storage, &uploadRepoStub{}, 1, testLogger())

	file := buildFileHeader(t, "file.pdf", bytes.Repeat([]byte("a"), 2*1024*1024))

	_, err := svc.Upload(context.Background(), "user-1", file)
	require.ErrorIs(t, err, ErrUploadTooLarge)
	require.Zero(t, storage.calls)
}

func TestUploadServiceTypeValidation(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 5, testLogger())

	gzipPayload := []byte{0x1f, 0x8b, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03}
	file := buildFileHeader(t, "archive.gz", gzipPayload)
	_, err := svc.Upload(context.Background(), "user-1", file)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
}

func TestUploadServiceAcceptsPlainText(t *testing.T) {
	repo := &uploadRepoStub{}
	svc := NewUploadService(&storageStub{}, repo, 5, testLogger())

	resp, err := svc.Upload(context.Background(), "user-1", buildFileHeader(t, "Notes Week 1.txt", []byte("derivatives and limits")))
	require.NoError(t, err)
	require.Equal(t, "text/plain", resp.MimeType)
	require.Equal(t, "notes-week-1.txt", resp.FileName)
	require.Equal(t, "user-1", repo.last.OwnerID)
}

func TestUploadServiceSuccess(t *testing.T) {
	storage := &storageStub{}
	repo := &uploadRepoStub{}
	svc := NewUploadService(storage, repo, 5, testLogger())

	file := buildFileHeader(t, "image.png", pngHeader)

	resp, err := svc.Upload(context.Background(), "user-1", file)
	require.NoError(t, err)
	require.Contains(t, resp.URL, "image")
	require.Equal(t, "image/png", repo.last.MimeType)
	require.Len(t, resp.Checksum, 64)
	require.Equal(t, pngHeader, storage.uploaded.Bytes())

	fetched, err := svc.Get(context.Background(), resp.ID)
	require.NoError(t, err)
	require.Equal(t, resp.URL, fetched.URL)
}

func TestUploadServiceGetUnknown(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 5, testLogger())

	_, err := svc.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrUploadNotFound)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUploadServiceRejectsZipBomb(t *testing.T) {
	svc := NewUploadService(&storageStub{}, &uploadRepoStub{}, 1, testLogger())

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	w, err := zw.Create("zeros.bin")
	require.NoError(t, err)
	_, err = w.Write(make([]byte, 25*1024*1024))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = svc.Upload(context.Background(), "user-1", buildFileHeader(t, "bomb.zip", buf.Bytes()))
	require.ErrorIs(t, err, ErrUploadScanFailed)
}

func TestUploadServiceUploadMany(t *testing.T) {
	repo := &uploadRepoStub{}
	svc := NewUploadService(&storageStub{}, repo, 5, testLogger())

	files := []*multipart.FileHeader{
		buildFileHeader(t, "a.png", pngHeader),
		buildFileHeader(t, "b.txt", []byte("summary")),
	}
	out, err := svc.UploadMany(context.Background(), "user-1", files)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, repo.records, 2)

	_, err = svc.UploadMany(context.Background(), "user-1", nil)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Contains(t, vErr.Fields, "files")

	tooMany := make([]*multipart.FileHeader, MaxFilesPerUpload+1)
	for i := range tooMany {
		tooMany[i] = buildFileHeader(t, "x.png", pngHeader)
	}
	_, err = svc.UploadMany(context.Background(), "user-1", tooMany)
	require.ErrorAs(t, err, &vErr)
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}

func TestUploadServiceDelete(t *testing.T) {
	storage := &storageStub{}
	repo := &uploadRepoStub{}
	svc := NewUploadService(storage, repo, 5, testLogger())
	ctx := context.Background()

	resp, err := svc.Upload(ctx, "user-1", buildFileHeader(t, "graph.png", pngHeader))
	require.NoError(t, err)
	require.Equal(t, "key-graph.png", repo.records[resp.ID].StorageKey)

	err = svc.Delete(ctx, "user-2", resp.ID)
	require.ErrorIs(t, err, ErrNotUploader)
	require.ErrorIs(t, err, ErrForbidden)
	require.Empty(t, storage.deleted)

	storage.deleteErr = errors.New("storage offline")
	require.Error(t, svc.Delete(ctx, "user-1", resp.ID))
	require.Contains(t, repo.records, resp.ID, "metadata kept when storage fails")

	storage.deleteErr = nil
	require.NoError(t, svc.Delete(ctx, "user-1", resp.ID))
	require.Equal(t, []string{"key-graph.png"}, storage.deleted)
	require.NotContains(t, repo.records, resp.ID)

	require.ErrorIs(t, svc.Delete(ctx, "user-1", resp.ID), ErrUploadNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "user-1", "missing"), ErrUploadNotFound)
}
