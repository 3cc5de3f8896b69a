package tasks

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"scopedrest/internal/audit"
	"scopedrest/internal/db"
	"scopedrest/internal/models"
)

type fakeUploader struct {
	objects map[string][]byte
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.objects[key] = append([]byte(nil), body...)
	return "memory://" + key, nil
}

func seedLogs(t *testing.T, gdb *gorm.DB, at time.Time, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, gdb.Create(&models.AuditLog{
			RequestUUID: "req-" + id,
			Method:      "GET",
			URL:         "/api/v1/widgets",
			Status:      200,
			CreatedAt:   at,
		}).Error)
	}
}

func lines(body []byte) []models.AuditLog {
	var out []models.AuditLog
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var row models.AuditLog
		if json.Unmarshal(sc.Bytes(), &row) == nil {
			out = append(out, row)
		}
	}
	return out
}

func TestArchiverExportsInBatches(t *testing.T) {
	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seedLogs(t, gdb, base, "a", "b", "c")
	seedLogs(t, gdb, base.Add(time.Minute), "d", "e")

	up := &fakeUploader{objects: map[string][]byte{}}
	a := NewArchiver(gdb, up, "audit", 2)
	ctx := context.Background()

	n, err := a.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Len(t, up.objects, 3)

	seen := map[string]bool{}
	for key, body := range up.objects {
		assert.Contains(t, key, "audit/2024/03/01/")
		for _, row := range lines(body) {
			assert.False(t, seen[row.RequestUUID], "%s exported twice", row.RequestUUID)
			seen[row.RequestUUID] = true
		}
	}
	assert.Len(t, seen, 5)

	var marks []models.AuditArchive
	require.NoError(t, gdb.Order("to_time").Find(&marks).Error)
	require.Len(t, marks, 3)
	assert.True(t, marks[2].ToTime.Equal(base.Add(time.Minute)))

	n, err = a.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	var logs int64
	require.NoError(t, gdb.Model(&models.AuditLog{}).Count(&logs).Error)
	assert.Equal(t, int64(5), logs)
}

func TestArchiverPicksUpNewRecords(t *testing.T) {
	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seedLogs(t, gdb, base, "a")

	up := &fakeUploader{objects: map[string][]byte{}}
	a := NewArchiver(gdb, up, "", 10)

	n, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	seedLogs(t, gdb, base.Add(time.Hour), "b")
	n, err = a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, up.objects, 2)
}

func TestArchiverUploadFailureKeepsWatermark(t *testing.T) {
	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	seedLogs(t, gdb, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "a")

	a := NewArchiver(gdb, &fakeUploader{err: errors.New("bucket gone")}, "audit", 10)
	err = a.ProcessTask(context.Background(), NewArchiveTask())
	require.Error(t, err)

	var marks int64
	require.NoError(t, gdb.Model(&models.AuditArchive{}).Count(&marks).Error)
	assert.Zero(t, marks)
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 5, 7, 0, time.FixedZone("X", 3600))
	assert.Equal(t, "audit/2024/03/01/20240301T080507Z-id1.jsonl", ObjectKey("audit", at, "id1"))
	assert.Equal(t, "2024/03/01/20240301T080507Z-id1.jsonl", ObjectKey("", at, "id1"))
}

func TestNextRun(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 5, 0, 0, time.UTC)

	next, err := NextRun("@hourly", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), next)

	next, err = NextRun("30 2 * * *", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 2, 30, 0, 0, time.UTC), next)

	_, err = NextRun("not a spec", now)
	assert.Error(t, err)
}

func TestMuxRoutesAuditRecords(t *testing.T) {
	gdb, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	h := NewTaskHandler(audit.NewHandler(audit.NewGormStore(gdb)), nil)

	task, err := audit.NewTask(audit.Entry{RequestUUID: "req-mux", Method: "GET", URL: "/x", Status: 401, At: time.Now().UTC()})
	require.NoError(t, err)
	require.NoError(t, h.Mux().ProcessTask(context.Background(), task))

	var n int64
	require.NoError(t, gdb.Model(&models.AuditLog{}).Where("request_uuid = ?", "req-mux").Count(&n).Error)
	assert.Equal(t, int64(1), n)
}
