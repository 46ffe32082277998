package backup

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mhutchens/chorebank/internal/database"
)

type fakeS3 struct {
	mu   sync.Mutex
	puts []s3.PutObjectInput
}

func (f *fakeS3) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, *input)
	return &s3.PutObjectOutput{}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunNowUploadsSnapshot(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	fake := &fakeS3{}
	var statuses []Status
	m := &Manager{
		cfg:    Config{S3: S3Config{Bucket: "chorebank-backups"}},
		db:     db,
		client: fake,
		logger: testLogger(),
		status: Status{State: StateIdle},
		callback: func(s Status) {
			statuses = append(statuses, s)
		},
	}

	key, err := m.RunNow(context.Background())
	if err != nil {
		t.Fatalf("run now: %v", err)
	}
	if !strings.HasPrefix(key, "backups/") {
		t.Errorf("key = %q, want backups/ prefix", key)
	}

	if len(fake.puts) != 1 {
		t.Fatalf("put count = %d, want 1", len(fake.puts))
	}
	put := fake.puts[0]
	if *put.Bucket != "chorebank-backups" || *put.Key != key {
		t.Errorf("put = bucket %q key %q", *put.Bucket, *put.Key)
	}
	if put.ContentLength == nil || *put.ContentLength == 0 {
		t.Error("snapshot should not be empty")
	}

	status := m.Status()
	if status.State != StateIdle || status.LastBackup == nil || status.LastKey != key {
		t.Errorf("status = %+v", status)
	}
	if len(statuses) < 2 {
		t.Errorf("callback fired %d times, want running then idle", len(statuses))
	}
}

func TestManagerDisabledWithoutCredentials(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	m := NewManager(Config{}, db, testLogger(), nil)
	if m.Status().State != StateDisabled {
		t.Errorf("state = %q, want disabled", m.Status().State)
	}
	if _, err := m.RunNow(context.Background()); err == nil {
		t.Error("RunNow on a disabled manager should fail")
	}

	// Start on a disabled manager is a no-op and Stop must not hang.
	m.Start(context.Background())
	m.Stop()
}
