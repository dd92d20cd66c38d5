package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mealprep"
)

// fakeS3 is an in-memory bucket honouring conditional puts.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func etag(data []byte) string { return fmt.Sprintf("%q", fmt.Sprintf("%x", md5.Sum(data))) }

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data)), ETag: aws.String(etag(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	key := aws.ToString(in.Key)
	current, exists := f.objects[key]
	precondition := &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	if aws.ToString(in.IfNoneMatch) == "*" && exists {
		return nil, precondition
	}
	if in.IfMatch != nil && (!exists || etag(current) != aws.ToString(in.IfMatch)) {
		return nil, precondition
	}
	f.objects[key] = data
	return &s3.PutObjectOutput{ETag: aws.String(etag(data))}, nil
}

func (f *fakeS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	b, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(t.TempDir()),
		"badger": b,
		"s3":     NewS3Store(newFakeS3(), "bucket", "mealprep/"),
	}
}

func TestStore_Contract(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Load(ctx, "sessions/u1/s1")
			require.ErrorIs(t, err, ErrNotFound)

			v1, err := s.Save(ctx, "sessions/u1/s1", []byte(`{"n":1}`), "")
			require.NoError(t, err)
			require.NotEmpty(t, v1)

			_, err = s.Save(ctx, "sessions/u1/s1", []byte(`{"n":2}`), "")
			assert.ErrorIs(t, err, ErrVersionConflict, "create-only save on an existing key")

			obj, err := s.Load(ctx, "sessions/u1/s1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"n":1}`, string(obj.Data))
			assert.Equal(t, v1, obj.Version)

			v2, err := s.Save(ctx, "sessions/u1/s1", []byte(`{"n":2}`), v1)
			require.NoError(t, err)
			assert.NotEqual(t, v1, v2)

			_, err = s.Save(ctx, "sessions/u1/s1", []byte(`{"n":3}`), v1)
			assert.ErrorIs(t, err, ErrVersionConflict, "stale version")

			_, err = s.Save(ctx, "sessions/u1/s2", []byte(`{"n":1}`), "")
			require.NoError(t, err)
			_, err = s.Save(ctx, "pantry/u1", []byte(`{"items":[]}`), "")
			require.NoError(t, err)

			keys, err := s.List(ctx, "sessions/u1/")
			require.NoError(t, err)
			assert.Equal(t, []string{"sessions/u1/s1", "sessions/u1/s2"}, keys)
		})
	}
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	s := NewFileStore(t.TempDir())
	_, err := s.Save(context.Background(), "../outside", []byte(`{}`), "")
	assert.ErrorContains(t, err, "invalid document key")

	_, err = s.Save(context.Background(), "ok", []byte(`not json`), "")
	assert.ErrorContains(t, err, "not valid JSON")
}

type counterDoc struct {
	N int `json:"n"`
}

func TestUpdateJSON_CreatesMissingDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	doc, err := UpdateJSON(ctx, s, "counter", func() counterDoc { return counterDoc{N: 10} }, func(d *counterDoc) error {
		d.N++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 11, doc.N)

	stored, _, err := LoadJSON[counterDoc](ctx, s, "counter")
	require.NoError(t, err)
	assert.Equal(t, 11, stored.N)
}

func TestUpdateJSON_RetriesOnceOnConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Save(ctx, "counter", []byte(`{"n":1}`), "")
	require.NoError(t, err)

	injected := false
	s.BeforeSave = func(key string) {
		if injected {
			return
		}
		injected = true
		obj, err := s.Load(ctx, key)
		require.NoError(t, err)
		_, err = s.Save(ctx, key, []byte(`{"n":100}`), obj.Version)
		require.NoError(t, err)
	}

	calls := 0
	doc, err := UpdateJSON(ctx, s, "counter", func() counterDoc { return counterDoc{} }, func(d *counterDoc) error {
		calls++
		d.N++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 101, doc.N, "retry works on the competing writer's state")
}

func TestUpdateJSON_GivesUpAfterSecondConflict(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_, err := s.Save(ctx, "counter", []byte(`{"n":1}`), "")
	require.NoError(t, err)

	inHook := false
	s.BeforeSave = func(key string) {
		if inHook {
			return
		}
		inHook = true
		defer func() { inHook = false }()
		obj, err := s.Load(ctx, key)
		require.NoError(t, err)
		_, err = s.Save(ctx, key, obj.Data, obj.Version)
		require.NoError(t, err)
	}

	calls := 0
	_, err = UpdateJSON(ctx, s, "counter", func() counterDoc { return counterDoc{} }, func(d *counterDoc) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)

	var cme *ConcurrentModificationError
	require.True(t, errors.As(err, &cme))
	assert.Equal(t, "counter", cme.Key)
	assert.ErrorIs(t, err, ErrVersionConflict)
	assert.Equal(t, mealprep.ClassConcurrency, mealprep.Classify(err))
}

func TestUpdateJSON_MutationErrorsAreNotRetried(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	calls := 0
	_, err := UpdateJSON(ctx, s, "counter", func() counterDoc { return counterDoc{} }, func(d *counterDoc) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	_, err = s.Load(ctx, "counter")
	assert.ErrorIs(t, err, ErrNotFound, "nothing written")
}
