package minio

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/playerdata/storage"
)

func TestStore_KeyAndRelative(t *testing.T) {
	tests := []struct {
		prefix   string
		name     string
		key      string
		relative string
	}{
		{"", "save.json", "save.json", "save.json"},
		{"games/alpha", "save.json", "games/alpha/save.json", "save.json"},
		{"games/alpha/", "slot/1.xml", "games/alpha/slot/1.xml", "slot/1.xml"},
		{"/games/", "a.yaml", "games/a.yaml", "a.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix+"|"+tt.name, func(t *testing.T) {
			s := NewStore(nil, "bucket", tt.prefix)
			assert.Equal(t, tt.key, s.key(tt.name))
			assert.Equal(t, tt.relative, s.relative(s.key(tt.name)))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("dial tcp: connection refused")))

	err := mapError(minio.ErrorResponse{Code: "NoSuchKey"}, "get", "save.json")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)
}

func TestStore_RejectsInvalidNames(t *testing.T) {
	s := NewStore(nil, "bucket", "prefix")
	ctx := context.Background()

	assert.True(t, errors.Is(s.Write(ctx, "../x.json", nil), storage.ErrInvalidName))
	_, err := s.Read(ctx, "/x.json")
	assert.True(t, errors.Is(err, storage.ErrInvalidName))
	_, err = s.Exists(ctx, "")
	assert.True(t, errors.Is(err, storage.ErrInvalidName))
}

// TestMinioStore_Integration requires a running MinIO instance.
// Skip if not available.
func TestMinioStore_Integration(t *testing.T) {
	ctx := context.Background()

	client, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	store, err := Dial(ctx, Config{
		Endpoint:  "localhost:9000",
		Bucket:    "test-playerdata",
		Prefix:    "integration/",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	require.NoError(t, store.Wipe(ctx))

	_, err = store.Read(ctx, "save.json")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "got %v", err)

	require.NoError(t, store.Write(ctx, "save.json", []byte(`{"level":3}`)))
	require.NoError(t, store.Write(ctx, "slot/2.xml", []byte("<document></document>")))

	ok, err := store.Exists(ctx, "save.json")
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := store.Read(ctx, "save.json")
	require.NoError(t, err)
	assert.Equal(t, `{"level":3}`, string(data))

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"save.json", "slot/2.xml"}, names)

	require.NoError(t, store.Delete(ctx, "save.json"))
	require.NoError(t, store.Delete(ctx, "save.json"))

	require.NoError(t, store.Wipe(ctx))
	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
