package audit

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"scopedrest/internal/db"
	"scopedrest/internal/models"
)

func entry(id string) Entry {
	key := "key-1"
	return Entry{
		APIKeyID:    &key,
		RequestUUID: id,
		Method:      http.MethodGet,
		URL:         "/api/v1/widgets?page=2",
		Headers:     map[string][]string{"Accept": {"application/json"}},
		IP:          "10.0.0.1",
		Status:      http.StatusOK,
		Body:        `{"data":[]}`,
		At:          time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	return gdb
}

func countLogs(t *testing.T, gdb *gorm.DB, requestUUID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&models.AuditLog{}).Where("request_uuid = ?", requestUUID).Count(&n).Error)
	return n
}

type fakeDispatcher struct {
	err   error
	panic bool
	calls atomic.Int32
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, e Entry) error {
	f.calls.Add(1)
	if f.panic {
		panic("boom")
	}
	return f.err
}

type fakeStore struct {
	err   error
	calls atomic.Int32
}

func (f *fakeStore) Write(ctx context.Context, e Entry) error {
	f.calls.Add(1)
	return f.err
}

type fakeEnqueuer struct {
	err   error
	calls int
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.calls++
	return nil, f.err
}

func TestRedactHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Cookie", "session=abc")
	h.Set("X-Api-Key", "k")
	h.Add("Accept", "application/json")
	h["x-forwarded-for"] = []string{"1.2.3.4"}

	out := RedactHeaders(h)
	assert.Equal(t, []string{redacted}, out["Authorization"])
	assert.Equal(t, []string{redacted}, out["Cookie"])
	assert.Equal(t, []string{redacted}, out["X-Api-Key"])
	assert.Equal(t, []string{"application/json"}, out["Accept"])
	assert.Equal(t, []string{"1.2.3.4"}, out["X-Forwarded-For"])

	out["Accept"][0] = "changed"
	assert.Equal(t, "application/json", h.Get("Accept"))
}

func TestTruncate(t *testing.T) {
	s, cut := Truncate([]byte("hello"), 10)
	assert.Equal(t, "hello", s)
	assert.False(t, cut)

	s, cut = Truncate([]byte("hello"), 0)
	assert.Equal(t, "hello", s)
	assert.False(t, cut)

	s, cut = Truncate([]byte("héllo"), 2)
	assert.Equal(t, "h", s)
	assert.True(t, cut)

	s, cut = Truncate([]byte("héllo"), 3)
	assert.Equal(t, "hé", s)
	assert.True(t, cut)
}

func TestGormStoreWritesOncePerRequest(t *testing.T) {
	gdb := openDB(t)
	store := NewGormStore(gdb)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, entry("req-1")))
	require.NoError(t, store.Write(ctx, entry("req-1")))
	assert.Equal(t, int64(1), countLogs(t, gdb, "req-1"))

	var row models.AuditLog
	require.NoError(t, gdb.First(&row, "request_uuid = ?", "req-1").Error)
	assert.Equal(t, "key-1", *row.APIKeyID)
	assert.Equal(t, http.StatusOK, row.Status)
	assert.JSONEq(t, `{"Accept":["application/json"]}`, string(row.Headers))
}

func TestRecorderOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("queued", func(t *testing.T) {
		d, s := &fakeDispatcher{}, &fakeStore{}
		assert.Equal(t, OutcomeQueued, NewRecorder(d, s).Record(ctx, entry("a")))
		assert.Equal(t, int32(0), s.calls.Load())
	})

	t.Run("falls back to the store", func(t *testing.T) {
		d, s := &fakeDispatcher{err: errors.New("redis down")}, &fakeStore{}
		assert.Equal(t, OutcomeWritten, NewRecorder(d, s).Record(ctx, entry("b")))
		assert.Equal(t, int32(1), s.calls.Load())
	})

	t.Run("no dispatcher", func(t *testing.T) {
		s := &fakeStore{}
		assert.Equal(t, OutcomeWritten, NewRecorder(nil, s).Record(ctx, entry("c")))
	})

	t.Run("both fail", func(t *testing.T) {
		d, s := &fakeDispatcher{err: errors.New("redis down")}, &fakeStore{err: errors.New("db down")}
		assert.Equal(t, OutcomeDropped, NewRecorder(d, s).Record(ctx, entry("d")))
	})

	t.Run("panic is contained", func(t *testing.T) {
		d := &fakeDispatcher{panic: true}
		assert.NotPanics(t, func() {
			assert.Equal(t, OutcomeDropped, NewRecorder(d, &fakeStore{}).Record(ctx, entry("e")))
		})
	})
}

func TestRecorderGoAndWait(t *testing.T) {
	gdb := openDB(t)
	r := NewRecorder(&fakeDispatcher{err: errors.New("redis down")}, NewGormStore(gdb))

	for _, id := range []string{"g-1", "g-2", "g-3"} {
		r.Go(entry(id))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(ctx))

	var n int64
	require.NoError(t, gdb.Model(&models.AuditLog{}).Count(&n).Error)
	assert.Equal(t, int64(3), n)
}

func TestAsynqDispatcherEnqueues(t *testing.T) {
	mr := miniredis.RunT(t)
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer client.Close()

	d := NewAsynqDispatcher(client, DispatcherConfig{Queue: "critical", MaxRetry: 3})
	ctx := context.Background()

	require.NoError(t, d.Dispatch(ctx, entry("req-q")))
	assert.True(t, mr.Exists("asynq:{critical}:t:req-q"))

	// A second enqueue of the same request is a conflict, which counts as done.
	require.NoError(t, d.Dispatch(ctx, entry("req-q")))
	assert.Equal(t, gobreaker.StateClosed, d.State())
}

func TestAsynqDispatcherBreakerOpens(t *testing.T) {
	enq := &fakeEnqueuer{err: errors.New("dial tcp: connection refused")}
	d := NewAsynqDispatcher(enq, DispatcherConfig{Failures: 2, Timeout: time.Minute})
	ctx := context.Background()

	assert.Error(t, d.Dispatch(ctx, entry("x")))
	assert.Error(t, d.Dispatch(ctx, entry("x")))
	assert.Equal(t, gobreaker.StateOpen, d.State())

	err := d.Dispatch(ctx, entry("x"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, enq.calls)
}

func TestHandlerProcessTask(t *testing.T) {
	gdb := openDB(t)
	h := NewHandler(NewGormStore(gdb))
	ctx := context.Background()

	task, err := NewTask(entry("req-h"))
	require.NoError(t, err)
	assert.Equal(t, TaskTypeRecord, task.Type())
	require.NoError(t, h.ProcessTask(ctx, task))
	assert.Equal(t, int64(1), countLogs(t, gdb, "req-h"))

	err = h.ProcessTask(ctx, asynq.NewTask(TaskTypeRecord, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h.ProcessTask(ctx, asynq.NewTask(TaskTypeRecord, []byte(`{"url":"/x"}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
