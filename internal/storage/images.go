// Package storage manages cover and profile images on disk: resizing,
// timestamped naming and the placeholder sentinels that must never be
// written or deleted.
package storage

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/librenovela/librenovela/internal/apperrors"
)

const (
	CoverWidth  = 400
	CoverHeight = 600
)

var placeholders = map[string]bool{
	"novelaDefecto.png":  true,
	"usuarioDefecto.png": true,
}

var allowedExtensions = map[string]string{
	".jpg":  ".jpg",
	".jpeg": ".jpg",
	".png":  ".png",
}

type ImageStore struct {
	dir string
}

func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating images directory: %w", err)
	}
	return &ImageStore{dir: dir}, nil
}

// SaveCover stores an uploaded novel cover, resized onto a fixed
// 400x600 canvas. Returns the stored file name.
func (s *ImageStore) SaveCover(file *multipart.FileHeader) (string, error) {
	return s.save(file, true)
}

// SaveAvatar stores an uploaded profile image at its original size.
func (s *ImageStore) SaveAvatar(file *multipart.FileHeader) (string, error) {
	return s.save(file, false)
}

func (s *ImageStore) save(file *multipart.FileHeader, resize bool) (string, error) {
	ext, ok := allowedExtensions[strings.ToLower(filepath.Ext(file.Filename))]

	if !ok {
		return "", apperrors.Validation("Solo se aceptan imágenes JPEG o PNG")
	}

	src, err := file.Open()

	if err != nil {
		return "", fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src)

	if err != nil {
		return "", apperrors.Validation("El fichero no es una imagen válida")
	}

	if resize {
		img = imaging.Fill(img, CoverWidth, CoverHeight, imaging.Center, imaging.Lanczos)
	}

	name := fmt.Sprintf("%s-%d%s", baseName(file.Filename), time.Now().UnixMilli(), ext)

	if err := imaging.Save(img, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("writing image %s: %w", name, err)
	}

	return name, nil
}

// Remove deletes a stored image. Placeholders and already-missing files
// are silently skipped.
func (s *ImageStore) Remove(name string) error {
	if name == "" || IsPlaceholder(name) {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, name))

	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

func IsPlaceholder(name string) bool {
	return placeholders[name]
}

func baseName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" {
		base = "imagen"
	}
	return base
}
