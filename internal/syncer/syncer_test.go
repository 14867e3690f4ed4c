package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/Clav3rbot/BlackBoardSync/pkg/learn"
)

// fakeCatalog serves a flat course layout: every course has one top-level
// node whose attachments are the course's files.
type fakeCatalog struct {
	files map[string][]learn.Attachment // courseID -> attachments

	mu            sync.Mutex
	downloads     int
	inFlight      int32
	maxInFlight   int32
	downloadDelay time.Duration
	downloadHook  func()
}

func (f *fakeCatalog) Contents(ctx context.Context, courseID string) ([]learn.ContentItem, error) {
	return []learn.ContentItem{{ID: courseID + "-root", Title: "Documents"}}, nil
}

func (f *fakeCatalog) Children(ctx context.Context, courseID, contentID string) ([]learn.ContentItem, error) {
	return nil, nil
}

func (f *fakeCatalog) Attachments(ctx context.Context, courseID, contentID string) ([]learn.Attachment, error) {
	return f.files[courseID], nil
}

func (f *fakeCatalog) DownloadFile(ctx context.Context, courseID, contentID, attachmentID string) (learn.Download, error) {
	cur := atomic.AddInt32(&f.inFlight, 1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, cur) {
			break
		}
	}
	if f.downloadHook != nil {
		f.downloadHook()
	}
	if f.downloadDelay > 0 {
		time.Sleep(f.downloadDelay)
	}
	atomic.AddInt32(&f.inFlight, -1)

	f.mu.Lock()
	f.downloads++
	f.mu.Unlock()

	return learn.Download{
		Data:     []byte("content of " + attachmentID),
		FileName: attachmentID,
	}, nil
}

func (f *fakeCatalog) downloadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.downloads
}

func newMemBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	bucket, err := blob.OpenBucket(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	t.Cleanup(func() { bucket.Close() })
	return bucket
}

func attachmentsN(prefix string, n int) []learn.Attachment {
	atts := make([]learn.Attachment, n)
	for i := range atts {
		atts[i] = learn.Attachment{ID: fmt.Sprintf("%s-%d", prefix, i), FileName: fmt.Sprintf("%s-%d.pdf", prefix, i)}
	}
	return atts
}

func TestSyncAllDownloadsMissingFiles(t *testing.T) {
	catalog := &fakeCatalog{files: map[string][]learn.Attachment{
		"_1_1": attachmentsN("a", 2),
	}}
	bucket := newMemBucket(t)

	s := New(catalog, bucket, Options{})
	result, err := s.SyncAll(context.Background(), []learn.Course{{ID: "_1_1", Name: "Econ"}})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if result.TotalScanned != 2 || result.TotalDownloaded != 2 {
		t.Errorf("result = %+v", result)
	}

	ctx := context.Background()
	for _, key := range []string{"Econ/a-0.pdf", "Econ/a-1.pdf"} {
		exists, err := bucket.Exists(ctx, key)
		if err != nil || !exists {
			t.Errorf("expected %s to exist (err=%v)", key, err)
		}
	}
}

func TestSyncAllSkipsExistingFiles(t *testing.T) {
	catalog := &fakeCatalog{files: map[string][]learn.Attachment{
		"_1_1": attachmentsN("a", 5),
	}}
	bucket := newMemBucket(t)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("Econ/a-%d.pdf", i)
		if err := bucket.WriteAll(ctx, key, []byte("already here"), nil); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}

	s := New(catalog, bucket, Options{})
	result, err := s.SyncAll(ctx, []learn.Course{{ID: "_1_1", Name: "Econ"}})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if result.TotalDownloaded != 0 {
		t.Errorf("TotalDownloaded = %d, want 0", result.TotalDownloaded)
	}
	if result.TotalScanned != 5 {
		t.Errorf("TotalScanned = %d, want 5", result.TotalScanned)
	}
	if catalog.downloadCount() != 0 {
		t.Errorf("issued %d fetches, want 0", catalog.downloadCount())
	}
	if len(result.Courses) != 0 {
		t.Errorf("Courses = %+v, want empty", result.Courses)
	}
}

func TestSyncAllBoundsConcurrency(t *testing.T) {
	catalog := &fakeCatalog{
		files:         map[string][]learn.Attachment{"_1_1": attachmentsN("a", 10)},
		downloadDelay: 20 * time.Millisecond,
	}
	bucket := newMemBucket(t)

	s := New(catalog, bucket, Options{Workers: 3})
	result, err := s.SyncAll(context.Background(), []learn.Course{{ID: "_1_1", Name: "Econ"}})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if result.TotalDownloaded != 10 {
		t.Errorf("TotalDownloaded = %d, want 10", result.TotalDownloaded)
	}
	if max := atomic.LoadInt32(&catalog.maxInFlight); max > 3 {
		t.Errorf("max in-flight downloads = %d, want <= 3", max)
	}
}

func TestSyncAllAbortDuringScan(t *testing.T) {
	catalog := &fakeCatalog{files: map[string][]learn.Attachment{
		"_1_1": attachmentsN("a", 3),
		"_2_1": attachmentsN("b", 3),
	}}
	bucket := newMemBucket(t)

	var s *Syncer
	s = New(catalog, bucket, Options{
		OnProgress: func(p Progress) {
			if p.Phase == PhaseScanning && p.Current == 1 {
				s.Abort()
			}
		},
	})

	result, err := s.SyncAll(context.Background(), []learn.Course{
		{ID: "_1_1", Name: "A"},
		{ID: "_2_1", Name: "B"},
	})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if result.TotalDownloaded != 0 || result.TotalScanned != 0 || len(result.Courses) != 0 {
		t.Errorf("result = %+v, want all-zero", result)
	}
	if result.Duration > time.Second {
		t.Errorf("duration = %v, want near zero", result.Duration)
	}
}

func TestSyncAllAbortDuringDownloadFinishesInFlight(t *testing.T) {
	var s *Syncer
	started := make(chan struct{}, 20)

	catalog := &fakeCatalog{
		files:         map[string][]learn.Attachment{"_1_1": attachmentsN("a", 10)},
		downloadDelay: 10 * time.Millisecond,
	}
	catalog.downloadHook = func() {
		started <- struct{}{}
		s.Abort()
	}
	bucket := newMemBucket(t)

	s = New(catalog, bucket, Options{Workers: 2})
	result, err := s.SyncAll(context.Background(), []learn.Course{{ID: "_1_1", Name: "Econ"}})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	// Every download that started must have completed and been recorded;
	// the rest of the queue was dropped.
	if result.TotalDownloaded != len(started) {
		t.Errorf("TotalDownloaded = %d, started = %d", result.TotalDownloaded, len(started))
	}
	if result.TotalDownloaded >= 10 {
		t.Errorf("TotalDownloaded = %d, expected the abort to drop queue items", result.TotalDownloaded)
	}
	if result.TotalScanned != 10 {
		t.Errorf("TotalScanned = %d, want 10", result.TotalScanned)
	}
}

func TestSyncAllEndToEnd(t *testing.T) {
	catalog := &fakeCatalog{files: map[string][]learn.Attachment{
		"_1_1": {
			{ID: "f1", FileName: "f1.pdf"},
			{ID: "f2", FileName: "f2.pdf"},
			{ID: "f3", FileName: "f3.pdf"},
		},
		"_2_1": {},
	}}
	bucket := newMemBucket(t)

	ctx := context.Background()
	if err := bucket.WriteAll(ctx, "A/f3.pdf", []byte("present"), nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var events []Progress
	s := New(catalog, bucket, Options{
		OnProgress: func(p Progress) { events = append(events, p) },
	})

	result, err := s.SyncAll(ctx, []learn.Course{
		{ID: "_1_1", Name: "A"},
		{ID: "_2_1", Name: "B"},
	})
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	if result.TotalScanned != 3 {
		t.Errorf("TotalScanned = %d, want 3", result.TotalScanned)
	}
	if result.TotalDownloaded != 2 {
		t.Errorf("TotalDownloaded = %d, want 2", result.TotalDownloaded)
	}
	if len(result.Courses) != 1 || result.Courses[0].CourseName != "A" {
		t.Fatalf("Courses = %+v", result.Courses)
	}
	got := map[string]bool{}
	for _, f := range result.Courses[0].Files {
		got[f] = true
	}
	if !got["f1.pdf"] || !got["f2.pdf"] || len(got) != 2 {
		t.Errorf("files = %v", result.Courses[0].Files)
	}

	if events[0].Phase != PhaseScanning || events[0].Total != 2 {
		t.Errorf("first event = %+v", events[0])
	}
	last := events[len(events)-1]
	if last.Phase != PhaseComplete || last.Current != 2 || last.Total != 2 {
		t.Errorf("last event = %+v", last)
	}
	// Scanning events preserve course order.
	if events[1].CurrentFile != "A" || events[2].CurrentFile != "B" {
		t.Errorf("scan order: %q then %q", events[1].CurrentFile, events[2].CurrentFile)
	}
}

func TestSyncAllUsesAliases(t *testing.T) {
	catalog := &fakeCatalog{files: map[string][]learn.Attachment{
		"_1_1": {{ID: "f1", FileName: "notes.pdf"}},
	}}
	bucket := newMemBucket(t)

	s := New(catalog, bucket, Options{
		Aliases: map[string]string{"_1_1": "Micro: Fall?"},
	})
	if _, err := s.SyncAll(context.Background(), []learn.Course{{ID: "_1_1", Name: "30511 Microeconomics Module 1"}}); err != nil {
		t.Fatalf("SyncAll: %v", err)
	}

	exists, err := bucket.Exists(context.Background(), "Micro_ Fall_/notes.pdf")
	if err != nil || !exists {
		t.Errorf("expected aliased folder to exist (err=%v)", err)
	}
}
