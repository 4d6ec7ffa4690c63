// Package backup uploads encrypted snapshots of the SQLite database to
// S3-compatible storage on a nightly schedule.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
)

var (
	ErrDisabled      = errors.New("backup not configured")
	ErrNoPassphrase  = errors.New("backup passphrase not configured")
	ErrAlreadyActive = errors.New("backup already in progress")
	ErrNotFound      = errors.New("backup not found")
)

// s3Client is the subset of the S3 API the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Records tracks backup attempts.
type Records interface {
	Create(filename, s3Key string) (*model.Backup, error)
	GetByID(id int64) (*model.Backup, error)
	UpdateStatus(id int64, status model.BackupStatus, errorMsg string) error
	UpdateCompleted(id, sizeBytes int64) error
	DeleteOlderThan(before time.Time) ([]string, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3            S3Config
	Passphrase    string
	Hour          int
	RetentionDays int
	Prefix        string
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Manager runs backups on demand and once a day at the configured hour.
type Manager struct {
	cfg     Config
	db      *sql.DB
	records Records
	client  s3Client
	clock   clock.Clock
	logger  *slog.Logger

	mu      sync.RWMutex
	status  Status
	lastDay string
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewManager(cfg Config, db *sql.DB, records Records, clk clock.Clock, logger *slog.Logger) *Manager {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "daybreak"
	}
	m := &Manager{
		cfg:     cfg,
		db:      db,
		records: records,
		clock:   clk,
		logger:  logger,
		status:  Status{State: StateDisabled},
	}
	if cfg.S3.complete() {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether storage is configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start begins the scheduled backup loop. It is a no-op when disabled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil || m.cfg.Passphrase == "" {
		m.mu.Unlock()
		m.logger.Info("scheduled backups disabled")
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	m.mu.Unlock()

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.checkSchedule(ctx)
			}
		}
	}()
}

// Stop gracefully stops the backup loop.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
}

// checkSchedule runs at most one backup per day, in the configured hour.
func (m *Manager) checkSchedule(ctx context.Context) {
	now := m.clock.Now()
	if now.Hour() != m.cfg.Hour {
		return
	}
	day := clock.DateKey(now)

	m.mu.Lock()
	if m.lastDay == day {
		m.mu.Unlock()
		return
	}
	m.lastDay = day
	m.mu.Unlock()

	if _, err := m.RunNow(ctx); err != nil {
		m.logger.Error("scheduled backup failed", "error", err)
	}
	if err := m.Cleanup(ctx); err != nil {
		m.logger.Error("backup cleanup failed", "error", err)
	}
}

// RunNow snapshots, encrypts and uploads the database.
func (m *Manager) RunNow(ctx context.Context) (*model.Backup, error) {
	m.mu.Lock()
	client := m.client
	if client == nil {
		m.mu.Unlock()
		return nil, ErrDisabled
	}
	if m.cfg.Passphrase == "" {
		m.mu.Unlock()
		return nil, ErrNoPassphrase
	}
	if m.status.State == StateRunning {
		m.mu.Unlock()
		return nil, ErrAlreadyActive
	}
	last := m.status.LastBackup
	m.status = Status{State: StateRunning, LastBackup: last}
	m.mu.Unlock()

	now := m.clock.Now().UTC()
	filename := fmt.Sprintf("backup-%s.db.enc", now.Format("2006-01-02T150405Z"))
	key := m.cfg.Prefix + "/" + filename

	record, err := m.records.Create(filename, key)
	if err != nil {
		m.fail(0, last, err)
		return nil, fmt.Errorf("create backup record: %w", err)
	}

	size, err := m.upload(ctx, client, record.ID, key)
	if err != nil {
		m.fail(record.ID, last, err)
		return nil, err
	}

	if err := m.records.UpdateCompleted(record.ID, size); err != nil {
		m.logger.Error("mark backup completed", "id", record.ID, "error", err)
	}
	m.setStatus(Status{State: StateIdle, LastBackup: &now})
	m.logger.Info("backup uploaded", "key", key, "bytes", size)

	out, err := m.records.GetByID(record.ID)
	if err != nil || out == nil {
		return record, nil
	}
	return out, nil
}

func (m *Manager) upload(ctx context.Context, client s3Client, id int64, key string) (int64, error) {
	if err := m.records.UpdateStatus(id, model.BackupStatusUploading, ""); err != nil {
		m.logger.Error("mark backup uploading", "id", id, "error", err)
	}

	snapshot, err := m.snapshot(ctx, id)
	if err != nil {
		return 0, err
	}

	sealed, err := Seal(snapshot, m.cfg.Passphrase)
	if err != nil {
		return 0, fmt.Errorf("encrypt: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return 0, fmt.Errorf("upload to s3: %w", err)
	}
	return int64(len(sealed)), nil
}

// snapshot writes a consistent copy of the database with VACUUM INTO and
// returns its bytes.
func (m *Manager) snapshot(ctx context.Context, id int64) ([]byte, error) {
	dir, err := os.MkdirTemp("", "daybreak-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, fmt.Sprintf("snapshot-%d.db", id))
	if _, err := m.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("snapshot database: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

func (m *Manager) fail(id int64, last *time.Time, err error) {
	if id != 0 {
		if uerr := m.records.UpdateStatus(id, model.BackupStatusFailed, err.Error()); uerr != nil {
			m.logger.Error("mark backup failed", "id", id, "error", uerr)
		}
	}
	m.setStatus(Status{State: StateError, LastBackup: last, Error: err.Error()})
}

// Download streams an encrypted backup from storage.
func (m *Manager) Download(ctx context.Context, id int64) (io.ReadCloser, int64, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil, 0, ErrDisabled
	}

	record, err := m.records.GetByID(id)
	if err != nil {
		return nil, 0, fmt.Errorf("get backup: %w", err)
	}
	if record == nil || record.Status != model.BackupStatusCompleted {
		return nil, 0, ErrNotFound
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(m.cfg.S3.Bucket),
		Key:    aws.String(record.S3Key),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("download from s3: %w", err)
	}
	return result.Body, record.SizeBytes, nil
}

// Cleanup deletes backups older than the retention period.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()
	if client == nil {
		return nil
	}

	before := m.clock.Now().UTC().AddDate(0, 0, -m.cfg.RetentionDays)
	keys, err := m.records.DeleteOlderThan(before)
	if err != nil {
		return fmt.Errorf("delete old backups: %w", err)
	}

	for _, key := range keys {
		if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(m.cfg.S3.Bucket),
			Key:    aws.String(key),
		}); err != nil {
			m.logger.Warn("delete s3 object", "key", key, "error", err)
		}
	}
	return nil
}
