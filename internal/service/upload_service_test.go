package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localaid/localaid-api/internal/models"
)

var pngStub = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

type storageStub struct {
	uploads []string
	err     error
}

func (s *storageStub) Upload(_ context.Context, folder, name string, _ io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploads = append(s.uploads, folder+"/"+name)
	return fmt.Sprintf("https://cdn.example.com/%s/%s", folder, name), nil
}

func multipartFile(t *testing.T, field, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	files := form.File[field]
	require.Len(t, files, 1)
	return files[0]
}

func TestUploadServiceProfileUpdatesUser(t *testing.T) {
	storage := &storageStub{}
	users := newUserRepoStub(models.User{ID: 1, Name: "Asha"})
	svc := NewUploadService(storage, users, 5, testLogger())

	file := multipartFile(t, "image", "My Avatar.png", pngStub)
	result, err := svc.UploadProfile(context.Background(), 1, file)
	require.NoError(t, err)
	require.Contains(t, result.ImageURL, "/profiles/")

	updated, err := users.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, result.ImageURL, updated.ProfilePicture)
}

func TestUploadServiceRejectsNonImage(t *testing.T) {
	storage := &storageStub{}
	users := newUserRepoStub(models.User{ID: 1})
	svc := NewUploadService(storage, users, 5, testLogger())

	file := multipartFile(t, "image", "notes.txt", []byte("plain text, not an image"))
	_, err := svc.UploadMessageImage(context.Background(), file)
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
	require.Empty(t, storage.uploads)
}

func TestUploadServiceRejectsOversizedFile(t *testing.T) {
	storage := &storageStub{}
	users := newUserRepoStub(models.User{ID: 1})
	svc := NewUploadService(storage, users, 1, testLogger())

	big := append(append([]byte{}, pngStub...), bytes.Repeat([]byte{0x00}, 2<<20)...)
	file := multipartFile(t, "image", "huge.png", big)
	_, err := svc.UploadMessageImage(context.Background(), file)
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestUploadServicePostImagesRequireAtLeastOne(t *testing.T) {
	storage := &storageStub{}
	users := newUserRepoStub(models.User{ID: 1})
	svc := NewUploadService(storage, users, 5, testLogger())

	_, err := svc.UploadPostImages(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoImages)
	require.Empty(t, storage.uploads)
}

func TestUploadServicePostImagesCapped(t *testing.T) {
	storage := &storageStub{}
	users := newUserRepoStub(models.User{ID: 1})
	svc := NewUploadService(storage, users, 5, testLogger())

	files := make([]*multipart.FileHeader, 0, 5)
	for i := 0; i < 5; i++ {
		files = append(files, multipartFile(t, "images", fmt.Sprintf("photo-%d.png", i), pngStub))
	}

	_, err := svc.UploadPostImages(context.Background(), files)
	require.ErrorIs(t, err, ErrTooManyImages)

	result, err := svc.UploadPostImages(context.Background(), files[:3])
	require.NoError(t, err)
	require.Len(t, result.Images, 3)
	for _, url := range result.Images {
		require.Contains(t, url, "/posts/")
	}
}

func TestUploadServiceSanitizesFileNames(t *testing.T) {
	storage := &storageStub{}
	users := newUserRepoStub(models.User{ID: 1})
	svc := NewUploadService(storage, users, 5, testLogger())

	file := multipartFile(t, "image", "../../etc/Pass Word!.png", pngStub)
	_, err := svc.UploadMessageImage(context.Background(), file)
	require.NoError(t, err)
	require.Len(t, storage.uploads, 1)
	require.NotContains(t, storage.uploads[0], "..")
	require.NotContains(t, storage.uploads[0], " ")
}
