package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "gocloud.dev/blob/fileblob"

	"github.com/Clav3rbot/BlackBoardSync/internal/auth"
	"github.com/Clav3rbot/BlackBoardSync/internal/config"
	"github.com/Clav3rbot/BlackBoardSync/internal/store"
	"github.com/Clav3rbot/BlackBoardSync/internal/syncer"
	"github.com/Clav3rbot/BlackBoardSync/internal/testutils"
)

func fixtureCourses() []testutils.CourseFixture {
	return []testutils.CourseFixture{
		{
			ID:         "_1_1",
			ExternalID: "CS101-2026",
			Name:       "Algorithms",
			TermID:     "t1",
			Instructor: "Ada Lovelace",
			Contents: []testutils.ContentFixture{
				{
					ID:    "c1",
					Title: "Documents",
					Attachments: []testutils.AttachmentFixture{
						{ID: "a1", FileName: "slides.pdf", MimeType: "application/pdf", Data: []byte("week one")},
						{ID: "a2", FileName: "notes.txt", MimeType: "text/plain", Data: []byte("remember recursion")},
					},
				},
			},
		},
		{
			ID:         "_2_1",
			ExternalID: "MA202-2026",
			Name:       "Linear Algebra",
			TermID:     "t1",
		},
	}
}

func newTestApp(t *testing.T, lms *testutils.LMS) (*App, config.Config) {
	t.Helper()
	cfg := config.Default()
	cfg.BaseURL = lms.URL()
	cfg.SyncDir = t.TempDir()

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return New(cfg, st), cfg
}

func TestLoginAndSync(t *testing.T) {
	lms := testutils.StartLMS(t, fixtureCourses(), map[string]string{"t1": "Spring 2026"})
	a, cfg := newTestApp(t, lms)
	ctx := context.Background()

	user, err := a.Login(ctx, testutils.LMSUsername, testutils.LMSPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != testutils.LMSUserID {
		t.Errorf("user id = %q, want %q", user.ID, testutils.LMSUserID)
	}

	courses, err := a.Courses(ctx)
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("got %d courses, want 2", len(courses))
	}
	if courses[0].Term == nil || courses[0].Term.Name != "Spring 2026" {
		t.Errorf("term not resolved: %+v", courses[0].Term)
	}
	if courses[0].Instructor != "Ada Lovelace" {
		t.Errorf("instructor = %q, want Ada Lovelace", courses[0].Instructor)
	}

	var phases []syncer.Phase
	result, err := a.Sync(ctx, func(p syncer.Progress) {
		phases = append(phases, p.Phase)
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.TotalDownloaded != 2 {
		t.Fatalf("downloaded %d files, want 2", result.TotalDownloaded)
	}
	if len(phases) == 0 || phases[len(phases)-1] != syncer.PhaseComplete {
		t.Errorf("last phase = %v, want complete", phases)
	}

	data, err := os.ReadFile(filepath.Join(cfg.SyncDir, "Algorithms", "slides.pdf"))
	if err != nil {
		t.Fatalf("synced file missing: %v", err)
	}
	if string(data) != "week one" {
		t.Errorf("synced file body = %q", data)
	}

	// Second pass finds everything in place.
	result, err = a.Sync(ctx, nil)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if result.TotalDownloaded != 0 {
		t.Errorf("second pass downloaded %d files, want 0", result.TotalDownloaded)
	}
	if result.TotalScanned != 2 {
		t.Errorf("second pass scanned %d files, want 2", result.TotalScanned)
	}
}

func TestLoginBadPassword(t *testing.T) {
	lms := testutils.StartLMS(t, nil, nil)
	a, _ := newTestApp(t, lms)

	_, err := a.Login(context.Background(), testutils.LMSUsername, "nope")
	var credErr *auth.CredentialsError
	if !errors.As(err, &credErr) {
		t.Fatalf("expected CredentialsError, got %v", err)
	}

	// A rejected login must not save anything for AutoLogin.
	if _, err := a.AutoLogin(context.Background()); !errors.Is(err, store.ErrNoCredentials) {
		t.Errorf("AutoLogin after failed login: %v, want ErrNoCredentials", err)
	}
}

func TestAutoLoginRoundTrip(t *testing.T) {
	lms := testutils.StartLMS(t, fixtureCourses(), nil)
	a, cfg := newTestApp(t, lms)
	ctx := context.Background()

	if _, err := a.Login(ctx, testutils.LMSUsername, testutils.LMSPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// A fresh App over the same credential store logs in unattended.
	fresh := New(cfg, a.creds)
	user, err := fresh.AutoLogin(ctx)
	if err != nil {
		t.Fatalf("AutoLogin: %v", err)
	}
	if user.UserName != testutils.LMSUsername {
		t.Errorf("user name = %q, want %q", user.UserName, testutils.LMSUsername)
	}
}

func TestLogoutClearsSessionAndCredentials(t *testing.T) {
	lms := testutils.StartLMS(t, nil, nil)
	a, _ := newTestApp(t, lms)
	ctx := context.Background()

	if _, err := a.Login(ctx, testutils.LMSUsername, testutils.LMSPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := a.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if _, err := a.Courses(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Courses after logout: %v, want ErrNotAuthenticated", err)
	}
	if _, err := a.AutoLogin(ctx); !errors.Is(err, store.ErrNoCredentials) {
		t.Errorf("AutoLogin after logout: %v, want ErrNoCredentials", err)
	}
}

func TestSyncRequiresSession(t *testing.T) {
	lms := testutils.StartLMS(t, nil, nil)
	a, _ := newTestApp(t, lms)

	if _, err := a.Sync(context.Background(), nil); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Sync without session: %v, want ErrNotAuthenticated", err)
	}
}

func TestSyncSingleFlight(t *testing.T) {
	lms := testutils.StartLMS(t, fixtureCourses(), nil)
	a, _ := newTestApp(t, lms)
	ctx := context.Background()

	if _, err := a.Login(ctx, testutils.LMSUsername, testutils.LMSPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := a.Sync(ctx, func(p syncer.Progress) {
			if p.Phase == syncer.PhaseScanning && p.Current == 1 {
				close(started)
				<-release
			}
		})
		done <- err
	}()

	<-started
	if _, err := a.Sync(ctx, nil); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent Sync: %v, want ErrSyncInProgress", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Sync: %v", err)
	}

	// The slot frees up once the pass ends.
	if _, err := a.Sync(ctx, nil); err != nil {
		t.Fatalf("Sync after pass ended: %v", err)
	}
}

func TestEnabledCourseFilter(t *testing.T) {
	lms := testutils.StartLMS(t, fixtureCourses(), nil)
	a, _ := newTestApp(t, lms)
	a.cfg.EnabledCourses = []string{"_2_1"}
	ctx := context.Background()

	if _, err := a.Login(ctx, testutils.LMSUsername, testutils.LMSPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}
	courses, err := a.Courses(ctx)
	if err != nil {
		t.Fatalf("Courses: %v", err)
	}
	if len(courses) != 1 || courses[0].ID != "_2_1" {
		t.Fatalf("filtered courses = %+v, want only _2_1", courses)
	}
}

func TestAbortStopsPass(t *testing.T) {
	lms := testutils.StartLMS(t, fixtureCourses(), nil)
	a, cfg := newTestApp(t, lms)
	ctx := context.Background()

	if _, err := a.Login(ctx, testutils.LMSUsername, testutils.LMSPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Abort as soon as scanning starts; nothing should be downloaded.
	result, err := a.Sync(ctx, func(p syncer.Progress) {
		if p.Phase == syncer.PhaseScanning {
			a.Abort()
		}
	})
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.TotalDownloaded != 0 {
		t.Errorf("aborted pass downloaded %d files, want 0", result.TotalDownloaded)
	}

	entries, err := os.ReadDir(cfg.SyncDir)
	if err != nil {
		t.Fatalf("read sync dir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".attrs" {
			t.Errorf("unexpected entry after abort: %s", e.Name())
		}
	}
}

func TestAutoSyncRunsOnInterval(t *testing.T) {
	lms := testutils.StartLMS(t, fixtureCourses(), nil)
	a, cfg := newTestApp(t, lms)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := a.Login(ctx, testutils.LMSUsername, testutils.LMSPassword); err != nil {
		t.Fatalf("Login: %v", err)
	}

	completed := make(chan syncer.Result, 1)
	go a.AutoSync(ctx, 10*time.Millisecond, nil, func(r syncer.Result) {
		select {
		case completed <- r:
		default:
		}
	})

	select {
	case r := <-completed:
		if r.TotalDownloaded != 2 {
			t.Errorf("scheduled pass downloaded %d files, want 2", r.TotalDownloaded)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no scheduled sync completed")
	}
	cancel()

	if _, err := os.Stat(filepath.Join(cfg.SyncDir, "Algorithms", "notes.txt")); err != nil {
		t.Errorf("scheduled sync left no files: %v", err)
	}
}
