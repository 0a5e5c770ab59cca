package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tienda_perfumes/internal/config"
)

func TestObjectKey(t *testing.T) {
	key, err := objectKey("p1", "image/PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "perfumes/p1/"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	_, err = objectKey("p1", "application/pdf")
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPublicURL(t *testing.T) {
	s := NewMinIO(nil, config.MinIO{Endpoint: "minio:9000", Bucket: "perfumes"})
	assert.Equal(t, "http://minio:9000/perfumes/perfumes/p1/a.jpg", s.publicURL("perfumes/p1/a.jpg"))

	s.secure = true
	assert.True(t, strings.HasPrefix(s.publicURL("k"), "https://"))
}

func TestNilClient(t *testing.T) {
	s := NewMinIO(nil, config.MinIO{})
	_, err := s.UploadPerfumeImage(context.Background(), "p1", "image/png", strings.NewReader("x"), 1)
	assert.ErrorIs(t, err, ErrUnavailable)
}
