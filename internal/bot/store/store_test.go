package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panterabot/internal/bot/settings"
	"panterabot/internal/bot/sqldb"
)

type settingsStore interface {
	Load(ctx context.Context) (settings.Config, error)
	Save(ctx context.Context, cfg settings.Config) error
}

func sampleSettings() settings.Config {
	cfg := settings.Default()
	cfg.PricePerKM = 55
	cfg.AutoRefresh = 750
	cfg.Filters.RejectNewClients = true
	return cfg
}

func exerciseStore(t *testing.T, s settingsStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	want := sampleSettings()
	require.NoError(t, s.Save(ctx, want))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.AutobidEnabled = false
	want.MaxPrice = 900
	require.NoError(t, s.Save(ctx, want))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "panterabot:settings:default", Key(""))
	assert.Equal(t, "panterabot:settings:driver-7", Key("driver-7"))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	exerciseStore(t, NewRedis(rdb, "driver-1"))
	assert.True(t, mr.Exists("panterabot:settings:driver-1"))
}

func TestRedisStoreCorruptBlob(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	require.NoError(t, mr.Set(Key("x"), "{not json"))

	_, err := NewRedis(rdb, "x").Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSQLStoreSQLite(t *testing.T) {
	db, err := sqldb.Open(context.Background(), sqldb.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewSQL(db, sqldb.DialectSQLite, "driver-1")
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
	exerciseStore(t, s)

	other := NewSQL(db, sqldb.DialectSQLite, "driver-2")
	_, err = other.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLUpsertPerDialect(t *testing.T) {
	mysql := NewSQL(nil, sqldb.DialectMySQL, "")
	assert.Contains(t, mysql.upsertQuery(), "ON DUPLICATE KEY UPDATE")

	pg := NewSQL(nil, sqldb.DialectPostgres, "")
	q := pg.dialect.Rebind(pg.upsertQuery())
	assert.Contains(t, q, "ON CONFLICT (profile)")
	assert.Contains(t, q, "$3")
}

type fakeS3 struct {
	s3iface.S3API

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeS3) GetObjectWithContext(ctx aws.Context, in *s3.GetObjectInput, _ ...request.Option) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	if !ok {
		return nil, awserr.New(s3.ErrCodeNoSuchKey, "missing", nil)
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObjectWithContext(ctx aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.StringValue(in.Bucket) + "/" + aws.StringValue(in.Key)
	f.objects[key] = data
	f.types[key] = aws.StringValue(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	client := newFakeS3()
	exerciseStore(t, NewS3(client, "bot-settings", "driver-1"))

	key := "bot-settings/panterabot:settings:driver-1.json"
	assert.Contains(t, client.objects, key)
	assert.Equal(t, "application/json", client.types[key])
}

func TestS3StoreWrapsOtherErrors(t *testing.T) {
	s := NewS3(failingS3{}, "b", "p")
	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

type failingS3 struct {
	s3iface.S3API
}

func (failingS3) GetObjectWithContext(aws.Context, *s3.GetObjectInput, ...request.Option) (*s3.GetObjectOutput, error) {
	return nil, awserr.New("AccessDenied", "denied", nil)
}
