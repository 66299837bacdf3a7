package minio

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ephemera/internal/domain/entity"
	"ephemera/internal/testutil"
)

const BucketName = "temp-bucket-for-tests"

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func setupMinio(t *testing.T) *Client {
	t.Helper()

	endpoint, terminate, err := testutil.StartMinio(context.Background())
	if err != nil {
		t.Fatal("Failed to start container:", err)
	}
	t.Cleanup(terminate)

	client, err := New(ClientConfig{
		AccessKey: testutil.MinioAccessKey,
		SecretKey: testutil.MinioSecretKey,
		Endpoint:  endpoint,
		Bucket:    BucketName,
		PublicURL: "https://cdn.example.com",
		Timeout:   5000,
	})
	if err != nil {
		t.Fatal("Failed to create minio client:", err)
	}

	return client
}

func TestUploadRemoveList(t *testing.T) {
	client := setupMinio(t)
	ctx := context.Background()

	uploader := NewUploader(client, UploaderConfig{Timeout: 3000})
	remover := NewRemover(client, RemoverConfig{Timeout: 3000})
	lister := NewLister(client)

	first, err := uploader.Upload(ctx, pngHeader, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(first.BlobID, ".png"))
	assert.Equal(t, "https://cdn.example.com/"+BucketName+"/"+first.BlobID, first.URL)
	assert.Equal(t, int64(len(pngHeader)), first.Size)

	second, err := uploader.Upload(ctx, pngHeader, "image/png")
	require.NoError(t, err)
	assert.NotEqual(t, first.BlobID, second.BlobID, "each upload gets a fresh key")

	stat, err := client.MinioClient.StatObject(ctx, BucketName, first.BlobID, minio.StatObjectOptions{})
	require.NoError(t, err)
	assert.Equal(t, "image/png", stat.ContentType)

	blobs, err := collect(ctx, lister)
	require.NoError(t, err)
	ids := make([]string, 0, len(blobs))
	for _, b := range blobs {
		ids = append(ids, b.BlobID)
		assert.False(t, b.LastModified.IsZero())
	}
	assert.ElementsMatch(t, []string{first.BlobID, second.BlobID}, ids)

	require.NoError(t, remover.Remove(ctx, first.BlobID))
	assert.NoError(t, remover.Remove(ctx, first.BlobID), "removing a missing blob is not an error")
	assert.NoError(t, remover.Remove(ctx, "never-existed.png"))

	_, err = client.MinioClient.StatObject(ctx, BucketName, first.BlobID, minio.StatObjectOptions{})
	assert.Error(t, err)

	blobs, err = collect(ctx, lister)
	require.NoError(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, second.BlobID, blobs[0].BlobID)
}

func TestUploadEmptyBody(t *testing.T) {
	t.Parallel()

	uploader := NewUploader(&Client{}, UploaderConfig{Timeout: 3000})
	_, err := uploader.Upload(context.Background(), nil, "image/png")
	assert.ErrorContains(t, err, "empty file")
}

func TestNewCreatesBucketOnce(t *testing.T) {
	client := setupMinio(t)

	again, err := New(ClientConfig{
		AccessKey: testutil.MinioAccessKey,
		SecretKey: testutil.MinioSecretKey,
		Endpoint:  client.MinioClient.EndpointURL().Host,
		Bucket:    BucketName,
		Timeout:   5000,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(again.URL("x.png"), "http://"))
	assert.True(t, strings.HasSuffix(again.URL("x.png"), "/"+BucketName+"/x.png"))
}

func collect(ctx context.Context, lister *Lister) ([]entity.StoredBlob, error) {
	var blobs []entity.StoredBlob
	err := lister.Walk(ctx, func(b entity.StoredBlob) error {
		blobs = append(blobs, b)

		return nil
	})

	return blobs, err
}

func TestWalkStopsOnCallbackError(t *testing.T) {
	client := setupMinio(t)
	uploader := NewUploader(client, UploaderConfig{Timeout: 3000})
	lister := NewLister(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := uploader.Upload(ctx, pngHeader, "image/png")
		require.NoError(t, err)
	}

	stop := errors.New("stop")
	seen := 0
	err := lister.Walk(ctx, func(entity.StoredBlob) error {
		seen++

		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}
