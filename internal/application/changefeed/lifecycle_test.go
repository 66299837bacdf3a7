package changefeed_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"ephemera/internal/application/changefeed"
	"ephemera/internal/application/reconcile"
	"ephemera/internal/application/usecase"
	"ephemera/internal/domain/apperr"
	"ephemera/internal/domain/model"
	"ephemera/internal/infrastructure/database"
	"ephemera/internal/infrastructure/minio"
	"ephemera/internal/infrastructure/queue"
	"ephemera/internal/testutil"
)

const (
	lifecycleOwner  = "c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3c3"
	lifecycleBucket = "lifecycle"
	expiryTimeout   = 90 * time.Second
)

var pngBody = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

// flakyRemover fails removals of chosen blobs before passing them through.
type flakyRemover struct {
	next *minio.Remover

	mu       sync.Mutex
	failures map[string]int // remaining failures, -1 for always
	calls    map[string]int
}

func (r *flakyRemover) Remove(ctx context.Context, blobID string) error {
	r.mu.Lock()
	r.calls[blobID]++
	left, ok := r.failures[blobID]
	if ok && left > 0 {
		r.failures[blobID] = left - 1
	}
	r.mu.Unlock()

	if ok && left != 0 {
		return errors.New("injected blob store failure")
	}

	return r.next.Remove(ctx, blobID)
}

func (r *flakyRemover) fail(blobID string, times int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[blobID] = times
}

func (r *flakyRemover) callCount(blobID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.calls[blobID]
}

type lifecycle struct {
	client  *minio.Client
	creator *usecase.Creator
	deleter *usecase.Deleter
	getter  *usecase.Getter
	ledger  *database.OrphanLedger
	flaky   *flakyRemover
}

func setupLifecycle(t *testing.T) *lifecycle {
	t.Helper()
	ctx := context.Background()

	mongoURI, stopMongo, err := testutil.StartMongoReplicaSet(ctx)
	require.NoError(t, err)
	t.Cleanup(stopMongo)

	endpoint, stopMinio, err := testutil.StartMinio(ctx)
	require.NoError(t, err)
	t.Cleanup(stopMinio)

	db, err := database.Connect(database.Config{
		URI:               mongoURI,
		DBName:            "lifecycle",
		ConnectionTimeout: 30000,
		QueryTimeout:      30000,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Stop() })

	_, err = db.Client.Database(db.DBName).Collection(database.UserCollection).
		InsertOne(ctx, bson.M{"_id": lifecycleOwner})
	require.NoError(t, err)

	client, err := minio.New(minio.ClientConfig{
		AccessKey: testutil.MinioAccessKey,
		SecretKey: testutil.MinioSecretKey,
		Endpoint:  endpoint,
		Bucket:    lifecycleBucket,
		Timeout:   5000,
	})
	require.NoError(t, err)

	remover := minio.NewRemover(client, minio.RemoverConfig{Timeout: 3000})
	flaky := &flakyRemover{next: remover, failures: map[string]int{}, calls: map[string]int{}}

	contentCfg := usecase.Config{
		MaxMedia:             10,
		DefaultTTL:           0,
		UploadAttempts:       3,
		DeleteAttempts:       3,
		RetryInitialInterval: 10,
		RetryMaxInterval:     50,
	}
	reconcileCfg := reconcile.Config{
		Workers:              2,
		ConsumerName:         "lifecycle",
		MaxAttempts:          5,
		RetryInitialInterval: 10,
		RetryMaxInterval:     50,
		ScanGrace:            3600,
	}

	mem, err := queue.NewMemory(64)
	require.NoError(t, err)

	ledger := database.NewOrphanLedger(db)
	retriever := database.NewContentRetriever(db)

	coordinator := reconcile.NewCoordinator(mem, flaky, ledger, reconcileCfg)
	scanner := reconcile.NewScanner(minio.NewLister(client), database.NewBlobIndex(db), coordinator, reconcileCfg)
	watcher := changefeed.NewWatcher(database.NewDeletionStream(db), database.NewCheckpointStore(db, "lifecycle"),
		mem, scanner, changefeed.Config{ReconnectInitialInterval: 50, ReconnectMaxInterval: 500})

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = watcher.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		_ = coordinator.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
		scanner.Stop()
	})

	require.Eventually(t, func() bool { return watcher.State() == changefeed.StateStreaming },
		30*time.Second, 50*time.Millisecond, "watcher never started streaming")

	creator := usecase.NewCreator(database.NewOwnerRetriever(db), database.NewContentWriter(db),
		minio.NewUploader(client, minio.UploaderConfig{Timeout: 3000}), remover, ledger, contentCfg)

	return &lifecycle{
		client:  client,
		creator: creator,
		deleter: usecase.NewDeleter(retriever, database.NewContentRemover(db), remover, contentCfg),
		getter:  usecase.NewGetter(retriever),
		ledger:  ledger,
		flaky:   flaky,
	}
}

func (l *lifecycle) create(t *testing.T, media int, ttl *int64) *model.Content {
	t.Helper()

	uploads := make([]usecase.MediaUpload, 0, media)
	for i := 0; i < media; i++ {
		uploads = append(uploads, usecase.MediaUpload{
			Body:        pngBody,
			ContentType: "image/png",
			Filename:    fmt.Sprintf("%d.png", i),
		})
	}

	content, err := l.creator.Create(context.Background(), usecase.CreateRequest{
		OwnerID: lifecycleOwner,
		Media:   uploads,
		TTL:     ttl,
	})
	require.NoError(t, err)
	require.Len(t, content.Media, media)

	return content
}

// blobExists treats any stat error other than a missing key as present.
func (l *lifecycle) blobExists(blobID string) bool {
	_, err := l.client.MinioClient.StatObject(context.Background(), lifecycleBucket, blobID, miniogo.StatObjectOptions{})

	return err == nil || miniogo.ToErrorResponse(err).Code != "NoSuchKey"
}

func (l *lifecycle) orphansOf(recordID string) []model.Orphan {
	all, err := l.ledger.List(context.Background(), 0)
	if err != nil {
		return nil
	}

	var out []model.Orphan
	for _, o := range all {
		if o.RecordID == recordID {
			out = append(out, o)
		}
	}

	return out
}

func seconds(n int64) *int64 {
	return &n
}

func TestLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("starts MongoDB and MinIO containers")
	}

	l := setupLifecycle(t)
	ctx := context.Background()

	t.Run("explicit delete removes record and blobs", func(t *testing.T) {
		content := l.create(t, 2, nil)
		for _, id := range content.BlobIDs() {
			assert.True(t, l.blobExists(id))
		}

		require.NoError(t, l.deleter.Delete(ctx, content.ID, lifecycleOwner))

		for _, id := range content.BlobIDs() {
			assert.False(t, l.blobExists(id))
		}
		_, err := l.getter.Get(ctx, content.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("expired record blobs are reconciled", func(t *testing.T) {
		content := l.create(t, 2, seconds(1))
		for _, id := range content.BlobIDs() {
			assert.True(t, l.blobExists(id))
		}

		assert.Eventually(t, func() bool {
			for _, id := range content.BlobIDs() {
				if l.blobExists(id) {
					return false
				}
			}

			return true
		}, expiryTimeout, 250*time.Millisecond)
		assert.Empty(t, l.orphansOf(content.ID))
	})

	t.Run("transient failures are retried within budget", func(t *testing.T) {
		content := l.create(t, 1, seconds(1))
		blobID := content.BlobIDs()[0]
		l.flaky.fail(blobID, 3)

		assert.Eventually(t, func() bool { return !l.blobExists(blobID) }, expiryTimeout, 250*time.Millisecond)
		assert.Equal(t, 4, l.flaky.callCount(blobID))
		assert.Empty(t, l.orphansOf(content.ID))
	})

	t.Run("exhausted blobs land in the orphan ledger", func(t *testing.T) {
		content := l.create(t, 2, seconds(1))
		for _, id := range content.BlobIDs() {
			l.flaky.fail(id, -1)
		}

		var orphans []model.Orphan
		require.Eventually(t, func() bool {
			orphans = l.orphansOf(content.ID)

			return len(orphans) == 2
		}, expiryTimeout, 250*time.Millisecond)

		ids := []string{orphans[0].BlobID, orphans[1].BlobID}
		assert.ElementsMatch(t, content.BlobIDs(), ids)
		for _, o := range orphans {
			assert.Equal(t, 5, o.Attempts)
			assert.Contains(t, o.LastError, "injected blob store failure")
			assert.True(t, l.blobExists(o.BlobID))
		}
	})
}
