// Package app ties the session, catalog, and sync engine together behind
// the small surface a frontend needs: login, course listing, sync trigger,
// abort, and a progress stream.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/blob"

	"github.com/Clav3rbot/BlackBoardSync/internal/auth"
	"github.com/Clav3rbot/BlackBoardSync/internal/config"
	"github.com/Clav3rbot/BlackBoardSync/internal/logging"
	"github.com/Clav3rbot/BlackBoardSync/internal/store"
	"github.com/Clav3rbot/BlackBoardSync/internal/syncer"
	"github.com/Clav3rbot/BlackBoardSync/internal/webclient"
	"github.com/Clav3rbot/BlackBoardSync/pkg/learn"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a session and
	// none exists.
	ErrNotAuthenticated = errors.New("app: not logged in")

	// ErrSyncInProgress is returned when Sync is called while a pass is
	// already running. Sync is single-flight; callers serialize.
	ErrSyncInProgress = errors.New("app: sync already running")
)

// App holds one authenticated session and at most one running sync pass.
type App struct {
	cfg   config.Config
	creds *store.Store

	mu      sync.Mutex
	client  *learn.Client
	current *syncer.Syncer
	syncing bool
}

// New creates an App. creds may be nil to disable credential persistence.
func New(cfg config.Config, creds *store.Store) *App {
	return &App{cfg: cfg, creds: creds}
}

// Login negotiates a session and fetches the user identity. A negotiation
// that succeeds but cannot fetch the profile is still a failed login. On
// success the credentials are persisted for AutoLogin.
func (a *App) Login(ctx context.Context, username, password string) (learn.User, error) {
	user, err := a.login(ctx, username, password)
	if err != nil {
		return learn.User{}, err
	}

	if a.creds != nil {
		if err := a.creds.SaveCredentials(store.Credentials{Username: username, Password: password}); err != nil {
			logging.Warn("saving credentials failed", zap.Error(err))
		}
	}
	return user, nil
}

// AutoLogin logs in with previously saved credentials.
// Returns store.ErrNoCredentials when none are saved.
func (a *App) AutoLogin(ctx context.Context) (learn.User, error) {
	if a.creds == nil {
		return learn.User{}, store.ErrNoCredentials
	}
	c, err := a.creds.LoadCredentials()
	if err != nil {
		return learn.User{}, err
	}
	return a.login(ctx, c.Username, c.Password)
}

func (a *App) login(ctx context.Context, username, password string) (learn.User, error) {
	neg, err := auth.New(a.cfg.BaseURL, auth.Options{
		Web: webclient.Options{Timeout: a.cfg.Timeout},
	})
	if err != nil {
		return learn.User{}, err
	}

	cookies, err := neg.Login(ctx, username, password)
	if err != nil {
		return learn.User{}, err
	}

	client, err := learn.NewClient(a.cfg.BaseURL, cookies, learn.Options{
		Timeout: a.cfg.Timeout,
		Logger:  logging.L(),
	})
	if err != nil {
		return learn.User{}, err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return learn.User{}, fmt.Errorf("app: login succeeded but fetching the user profile failed: %w", err)
	}

	a.mu.Lock()
	a.client = client
	a.mu.Unlock()

	return user, nil
}

// Logout discards the session and clears saved credentials.
func (a *App) Logout() error {
	a.mu.Lock()
	a.client = nil
	a.mu.Unlock()

	if a.creds != nil {
		return a.creds.ClearCredentials()
	}
	return nil
}

func (a *App) session() (*learn.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, ErrNotAuthenticated
	}
	return a.client, nil
}

// Courses lists the user's courses, filtered to the enabled set when one is
// configured.
func (a *App) Courses(ctx context.Context) ([]learn.Course, error) {
	client, err := a.session()
	if err != nil {
		return nil, err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	courses, err := client.Courses(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if len(a.cfg.EnabledCourses) == 0 {
		return courses, nil
	}
	enabled := make(map[string]bool, len(a.cfg.EnabledCourses))
	for _, id := range a.cfg.EnabledCourses {
		enabled[id] = true
	}
	var filtered []learn.Course
	for _, c := range courses {
		if enabled[c.ID] {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}

// Sync runs one sync pass, streaming progress to onProgress. Only one pass
// may run at a time.
func (a *App) Sync(ctx context.Context, onProgress func(syncer.Progress)) (syncer.Result, error) {
	a.mu.Lock()
	if a.syncing {
		a.mu.Unlock()
		return syncer.Result{}, ErrSyncInProgress
	}
	a.syncing = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.syncing = false
		a.current = nil
		a.mu.Unlock()
	}()

	result, err := a.sync(ctx, onProgress)
	if err != nil && onProgress != nil {
		onProgress(syncer.Progress{Phase: syncer.PhaseError, Err: err})
	}
	return result, err
}

func (a *App) sync(ctx context.Context, onProgress func(syncer.Progress)) (syncer.Result, error) {
	client, err := a.session()
	if err != nil {
		return syncer.Result{}, err
	}

	courses, err := a.Courses(ctx)
	if err != nil {
		return syncer.Result{}, err
	}

	bucket, err := blob.OpenBucket(ctx, a.cfg.BucketURL())
	if err != nil {
		return syncer.Result{}, fmt.Errorf("app: open destination: %w", err)
	}
	defer bucket.Close()

	s := syncer.New(client, bucket, syncer.Options{
		Workers:    a.cfg.Workers,
		Aliases:    a.cfg.CourseAliases,
		OnProgress: onProgress,
		Logger:     logging.L(),
	})

	a.mu.Lock()
	a.current = s
	a.mu.Unlock()

	return s.SyncAll(ctx, courses)
}

// Abort cooperatively cancels the running sync pass, if any.
func (a *App) Abort() {
	a.mu.Lock()
	s := a.current
	a.mu.Unlock()
	if s != nil {
		s.Abort()
	}
}

// AutoSync runs Sync on a fixed interval until ctx is cancelled. Failures
// are logged and the loop keeps going.
func (a *App) AutoSync(ctx context.Context, interval time.Duration, onProgress func(syncer.Progress), onComplete func(syncer.Result)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := a.Sync(ctx, onProgress)
			if err != nil {
				logging.Error("scheduled sync failed", zap.Error(err))
				continue
			}
			if onComplete != nil {
				onComplete(result)
			}
		}
	}
}
