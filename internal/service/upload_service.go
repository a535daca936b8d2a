package service

import (
	"bytes"
	"context"
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

	"github.com/localaid/localaid-api/internal/dto"
	"github.com/localaid/localaid-api/internal/observability"
	"github.com/localaid/localaid-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the file is not an image.
	ErrUploadTypeNotAllowed = errors.New("only image uploads are allowed")
	// ErrTooManyImages indicates a post upload carried more than the limit.
	ErrTooManyImages = errors.New("a post can carry at most 4 images")
	// ErrNoImages indicates a post upload carried no files at all.
	ErrNoImages = errors.New("at least one image is required")
)

// MaxPostImages caps the gallery attached to a single post.
const MaxPostImages = 4

// Storage subfolders, one per asset kind.
const (
	folderProfiles = "profiles"
	folderChat     = "chat"
	folderPosts    = "posts"
)

// FileStorage abstracts the image store.
type FileStorage interface {
	Upload(ctx context.Context, folder, name string, reader io.Reader) (string, error)
}

// UploadService validates and stores the three kinds of image assets.
type UploadService interface {
	UploadProfile(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.UploadResponse, error)
	UploadMessageImage(ctx context.Context, file *multipart.FileHeader) (dto.UploadResponse, error)
	UploadPostImages(ctx context.Context, files []*multipart.FileHeader) (dto.PostImagesResponse, error)
}

type uploadService struct {
	storage FileStorage
	users   repository.UserRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service.
func NewUploadService(storage FileStorage, users repository.UserRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &uploadService{
		storage: storage,
		users:   users,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  otel.Tracer("github.com/localaid/localaid-api/internal/service/upload"),
	}
}

// UploadProfile stores a new avatar and records it on the user's profile.
func (s *uploadService) UploadProfile(ctx context.Context, userID uint, file *multipart.FileHeader) (dto.UploadResponse, error) {
	url, err := s.store(ctx, folderProfiles, file)
	if err != nil {
		return dto.UploadResponse{}, err
	}

	if err := s.users.UpdateProfilePicture(ctx, userID, url); err != nil {
		return dto.UploadResponse{}, err
	}

	return dto.UploadResponse{ImageURL: url}, nil
}

// UploadMessageImage stores an image destined for a chat message. The caller
// attaches the returned URL when sending the message.
func (s *uploadService) UploadMessageImage(ctx context.Context, file *multipart.FileHeader) (dto.UploadResponse, error) {
	url, err := s.store(ctx, folderChat, file)
	if err != nil {
		return dto.UploadResponse{}, err
	}
	return dto.UploadResponse{ImageURL: url}, nil
}

// UploadPostImages stores up to MaxPostImages gallery images for a post.
func (s *uploadService) UploadPostImages(ctx context.Context, files []*multipart.FileHeader) (dto.PostImagesResponse, error) {
	if len(files) == 0 {
		observability.UploadsRejected().WithLabelValues("count").Inc()
		return dto.PostImagesResponse{}, ErrNoImages
	}
	if len(files) > MaxPostImages {
		observability.UploadsRejected().WithLabelValues("count").Inc()
		return dto.PostImagesResponse{}, ErrTooManyImages
	}

	urls := make([]string, 0, len(files))
	for _, file := range files {
		url, err := s.store(ctx, folderPosts, file)
		if err != nil {
			return dto.PostImagesResponse{}, err
		}
		urls = append(urls, url)
	}

	return dto.PostImagesResponse{Images: urls}, nil
}

// store validates a single multipart file and pushes it to storage.
func (s *uploadService) store(ctx context.Context, folder string, file *multipart.FileHeader) (string, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store", trace.WithAttributes(
		attribute.String("upload.folder", folder),
		attribute.Int64("upload.max_bytes", s.maxSize),
	))
	defer span.End()

	if file == nil {
		err := errors.New("file is required")
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return "", err
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		observability.UploadsRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return "", ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return "", err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return "", err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadsRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrUploadTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return "", ErrUploadTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	span.SetAttributes(attribute.String("upload.detected_mime", mime.String()))
	if !strings.HasPrefix(mime.String(), "image/") {
		observability.UploadsRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrUploadTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return "", ErrUploadTypeNotAllowed
	}

	sanitizedName := sanitizeFileName(file.Filename)
	url, err := s.storage.Upload(ctx, folder, sanitizedName, bytes.NewReader(buf.Bytes()))
	if err != nil {
		observability.UploadsRejected().WithLabelValues("storage").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return "", err
	}

	observability.Uploads().WithLabelValues(folder).Inc()
	span.SetStatus(codes.Ok, "stored")

	return url, nil
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".jpg"
	}
	return base + ext
}
