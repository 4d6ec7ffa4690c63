package backup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/database"
	"github.com/dukerupert/daybreak/internal/model"
	"github.com/dukerupert/daybreak/internal/store"
)

// mockS3Client implements s3Client for testing.
type mockS3Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, _ := io.ReadAll(input.Body)
	m.objects[*input.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *mockS3Client) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, *input.Key)
	return &s3.DeleteObjectOutput{}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testS3 = S3Config{Bucket: "test", AccessKey: "key", SecretKey: "secret", Region: "us-east-1"}

func setupManager(t *testing.T, cfg Config) (*Manager, *mockS3Client, *store.BackupStore, *clock.Fixed) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	bs := store.NewBackupStore(db)
	clk := clock.NewFixed(time.Now())
	m := NewManager(cfg, db, bs, clk, quietLogger())
	mock := newMockS3()
	if m.client != nil {
		m.client = mock
	}
	return m, mock, bs, clk
}

func TestManagerDisabledWithoutS3(t *testing.T) {
	m, _, _, _ := setupManager(t, Config{})

	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want %q", m.Status().State, StateDisabled)
	}
	if _, err := m.RunNow(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}

	// Start is a no-op and Stop must not block.
	m.Start(context.Background())
	m.Stop()
}

func TestRunNowRequiresPassphrase(t *testing.T) {
	m, _, _, _ := setupManager(t, Config{S3: testS3})

	if m.Status().State != StateIdle {
		t.Errorf("state = %q, want %q", m.Status().State, StateIdle)
	}
	if _, err := m.RunNow(context.Background()); !errors.Is(err, ErrNoPassphrase) {
		t.Errorf("err = %v, want ErrNoPassphrase", err)
	}
}

func TestRunNowUploadsEncryptedSnapshot(t *testing.T) {
	m, mock, _, _ := setupManager(t, Config{S3: testS3, Passphrase: "hunter2"})
	ctx := context.Background()

	b, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if b.Status != model.BackupStatusCompleted {
		t.Errorf("status = %q, want %q", b.Status, model.BackupStatusCompleted)
	}

	data, ok := mock.objects[b.S3Key]
	if !ok {
		t.Fatalf("object %q not uploaded", b.S3Key)
	}
	if int64(len(data)) != b.SizeBytes {
		t.Errorf("size = %d, uploaded %d bytes", b.SizeBytes, len(data))
	}

	plain, err := Open(data, "hunter2")
	if err != nil {
		t.Fatalf("decrypt upload: %v", err)
	}
	if !bytes.HasPrefix(plain, []byte("SQLite format 3")) {
		t.Error("decrypted upload is not a SQLite database")
	}

	st := m.Status()
	if st.State != StateIdle || st.LastBackup == nil {
		t.Errorf("status = %+v, want idle with last backup", st)
	}

	rc, size, err := m.Download(ctx, b.ID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, data) || size != b.SizeBytes {
		t.Error("download does not match upload")
	}
}

func TestRunNowRecordsFailure(t *testing.T) {
	m, mock, bs, _ := setupManager(t, Config{S3: testS3, Passphrase: "pw"})
	mock.putErr = errors.New("bucket gone")

	if _, err := m.RunNow(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if m.Status().State != StateError {
		t.Errorf("state = %q, want %q", m.Status().State, StateError)
	}

	list, err := bs.List(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Status != model.BackupStatusFailed {
		t.Errorf("records = %+v, want one failed record", list)
	}

	if _, _, err := m.Download(context.Background(), list[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("download failed backup err = %v, want ErrNotFound", err)
	}
}

func TestCleanupRemovesExpired(t *testing.T) {
	m, mock, bs, clk := setupManager(t, Config{S3: testS3, Passphrase: "pw", RetentionDays: 30})
	ctx := context.Background()

	b, err := m.RunNow(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	clk.Advance(31 * 24 * time.Hour)
	if err := m.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, ok := mock.objects[b.S3Key]; ok {
		t.Error("expired object still in storage")
	}
	list, _ := bs.List(10)
	if len(list) != 0 {
		t.Errorf("records = %d, want 0", len(list))
	}
}

func TestCheckScheduleOncePerDay(t *testing.T) {
	m, mock, _, clk := setupManager(t, Config{S3: testS3, Passphrase: "pw", Hour: 3})
	ctx := context.Background()

	now := time.Now()
	clk.Set(time.Date(now.Year(), now.Month(), now.Day(), 2, 59, 0, 0, now.Location()))
	m.checkSchedule(ctx)
	if len(mock.objects) != 0 {
		t.Fatal("backup ran outside its hour")
	}

	clk.Advance(2 * time.Minute)
	m.checkSchedule(ctx)
	clk.Advance(10 * time.Minute)
	m.checkSchedule(ctx)

	if len(mock.objects) != 1 {
		t.Errorf("objects = %d, want 1", len(mock.objects))
	}
}
