package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/fetchkids/api/internal/platform/storage"
)

const maxUploadBytes = 10 << 20

var (
	// ErrUploadInvalidInput signals a malformed upload request.
	ErrUploadInvalidInput = errors.New("upload: invalid input")
	// ErrUploadTooLarge indicates the file exceeds the size limit.
	ErrUploadTooLarge = errors.New("upload: file exceeds the 10MB limit")
)

// ObjectStore is the slice of the storage uploader the upload service needs.
type ObjectStore interface {
	PutObject(ctx context.Context, params storage.PutObjectParams) (storage.PutObjectResult, error)
}

// UploadServiceDeps bundles collaborators required to construct the upload service.
type UploadServiceDeps struct {
	Store       ObjectStore
	IDGenerator func() string
	MaxBytes    int64
}

type uploadService struct {
	store    ObjectStore
	newID    func() string
	maxBytes int64
}

// NewUploadService wires dependencies into a concrete UploadService implementation.
func NewUploadService(deps UploadServiceDeps) (UploadService, error) {
	if deps.Store == nil {
		return nil, errors.New("upload service: object store is required")
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = maxUploadBytes
	}

	return &uploadService{
		store:    deps.Store,
		newID:    idGen,
		maxBytes: maxBytes,
	}, nil
}

func (s *uploadService) Upload(ctx context.Context, cmd UploadCommand) (UploadResult, error) {
	if cmd.Content == nil {
		return UploadResult{}, fmt.Errorf("%w: file content is required", ErrUploadInvalidInput)
	}
	if cmd.Size > s.maxBytes {
		return UploadResult{}, ErrUploadTooLarge
	}

	folder := strings.TrimSpace(cmd.Folder)
	if folder == "" {
		folder = "misc"
	}
	fileType := strings.TrimSpace(cmd.FileType)
	if fileType == "" {
		fileType = "image"
	}

	objectPath, err := storage.BuildMediaPath(folder, fileType, s.newID(), cmd.FileName)
	if err != nil {
		return UploadResult{}, fmt.Errorf("%w: %v", ErrUploadInvalidInput, err)
	}

	result, err := s.store.PutObject(ctx, storage.PutObjectParams{
		ObjectPath:  objectPath,
		ContentType: cmd.ContentType,
		MaxBytes:    s.maxBytes,
		Content:     cmd.Content,
	})
	if err != nil {
		if storage.IsObjectTooLarge(err) {
			return UploadResult{}, ErrUploadTooLarge
		}
		return UploadResult{}, fmt.Errorf("upload: store object: %w", err)
	}

	return UploadResult{
		URL:      result.URL,
		PublicID: result.PublicID,
		Format:   result.Format,
		Bytes:    result.Bytes,
		Folder:   folder,
		FileType: fileType,
	}, nil
}
