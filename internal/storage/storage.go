// Package storage range les images des parfums dans MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"tienda_perfumes/internal/config"
)

var (
	ErrUnavailable     = errors.New("MinIO non initialisé")
	ErrUnsupportedType = errors.New("type de fichier non supporté")
)

const MaxImageSize = 5 << 20

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Uploader est ce dont le handler d'images a besoin.
type Uploader interface {
	UploadPerfumeImage(ctx context.Context, perfumeID, contentType string, r io.Reader, size int64) (string, error)
}

type MinIO struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

func NewMinIO(client *minio.Client, cfg config.MinIO) *MinIO {
	return &MinIO{client: client, bucket: cfg.Bucket, endpoint: cfg.Endpoint, secure: cfg.UseSSL}
}

// UploadPerfumeImage envoie l'image et renvoie son URL publique.
func (s *MinIO) UploadPerfumeImage(ctx context.Context, perfumeID, contentType string, r io.Reader, size int64) (string, error) {
	if s.client == nil {
		return "", ErrUnavailable
	}
	key, err := objectKey(perfumeID, contentType)
	if err != nil {
		return "", err
	}
	if size > MaxImageSize {
		return "", fmt.Errorf("image trop volumineuse (%d octets, max %d)", size, MaxImageSize)
	}

	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return s.publicURL(key), nil
}

// SignedURL génère une URL de lecture temporaire pour un objet du bucket.
func (s *MinIO) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.client == nil {
		return "", ErrUnavailable
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, make(url.Values))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (s *MinIO) publicURL(key string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

// objectKey construit perfumes/<id>/<uuid>.<ext> ; le nom de fichier client n'est jamais réutilisé.
func objectKey(perfumeID, contentType string) (string, error) {
	ext, ok := allowedTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return path.Join("perfumes", perfumeID, uuid.NewString()+ext), nil
}
