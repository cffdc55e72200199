package preference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/remote"
)

// ErrClosed is returned by writes issued after Close.
var ErrClosed = errors.New("preference service closed")

// Backend is the remote side of the settings surface.
type Backend interface {
	GetGlobalSettings(ctx context.Context, userID string) (model.GlobalSettings, error)
	ReplaceGlobalSettings(ctx context.Context, userID string, g model.GlobalSettings) error
	ListCategories(ctx context.Context) ([]model.Category, error)
	GetPreferences(ctx context.Context, userID string) ([]model.CategoryPreference, error)
	ReplacePreferences(ctx context.Context, userID string, prefs []model.CategoryPreference) error
}

type globalWrite struct {
	userID   string
	settings model.GlobalSettings
}

type prefsWrite struct {
	userID string
	prefs  []model.CategoryPreference
}

// Service loads a Store from the backend and pushes every local change
// back. Changes are applied locally first and are not rolled back when
// the write fails; the failure is surfaced through Err instead.
type Service struct {
	backend Backend
	store   *Store
	logger  logrus.FieldLogger

	mu      sync.Mutex
	epoch   uint64
	closed  bool
	loading bool
	err     error

	// Bumped on every local change so a load that started earlier does
	// not overwrite it.
	globalRev uint64
	prefsRev  uint64

	global *serialWriter[globalWrite]
	prefs  *serialWriter[prefsWrite]
}

// NewService creates a service that owns writes to store.
func NewService(b Backend, store *Store, logger logrus.FieldLogger) *Service {
	s := &Service{
		backend: b,
		store:   store,
		logger:  logger.WithField("component", "preferences"),
	}
	s.global = newSerialWriter(s.writeGlobal)
	s.prefs = newSerialWriter(s.writePreferences)
	return s
}

// Store returns the state this service writes to.
func (s *Service) Store() *Store {
	return s.store
}

// Loading reports whether a load is still settling.
func (s *Service) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Saving reports whether any write is outstanding.
func (s *Service) Saving() bool {
	return s.global.Busy() || s.prefs.Busy()
}

// Err returns the last write failure, if not dismissed.
func (s *Service) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// DismissError clears the error notice.
func (s *Service) DismissError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

// Close tears the service down; loads still in flight are discarded.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.epoch++
	s.loading = false
}

// Load fetches global settings, the category enumeration and the
// preference list concurrently. Each fetch is independent: a failure
// leaves that slice at its previous or default value. When userID
// differs from the store's identity the store is reset first. The
// returned error joins the failed fetches; the store is usable anyway.
func (s *Service) Load(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.epoch++
	epoch := s.epoch
	s.loading = true
	if s.store.UserID() != userID {
		s.store.reset(userID)
	}
	globalRev, prefsRev := s.globalRev, s.prefsRev
	s.mu.Unlock()

	log := s.logger.WithField("user_id", userID)

	var (
		g       errgroup.Group
		errMu   sync.Mutex
		loadErr []error
	)
	fail := func(slice string, err error) {
		if remote.IsAuthError(err) {
			log.WithError(err).Debugf("keeping default %s", slice)
		} else {
			log.WithError(err).Warnf("failed to load %s", slice)
		}
		errMu.Lock()
		loadErr = append(loadErr, fmt.Errorf("loading %s: %w", slice, err))
		errMu.Unlock()
	}

	g.Go(func() error {
		global, err := s.backend.GetGlobalSettings(ctx, userID)
		if err != nil {
			fail("global settings", err)
			return nil
		}
		s.applyLoaded(epoch, func() bool { return s.globalRev == globalRev }, func() {
			s.store.setGlobal(global)
		})
		return nil
	})

	g.Go(func() error {
		cats, err := s.backend.ListCategories(ctx)
		if err != nil {
			fail("categories", err)
			return nil
		}
		s.applyLoaded(epoch, func() bool { return true }, func() {
			s.store.setCategories(cats)
		})
		return nil
	})

	g.Go(func() error {
		prefs, err := s.backend.GetPreferences(ctx, userID)
		if err != nil {
			fail("category preferences", err)
			return nil
		}
		s.applyLoaded(epoch, func() bool { return s.prefsRev == prefsRev }, func() {
			s.store.setPreferences(prefs)
		})
		return nil
	})

	_ = g.Wait()

	s.mu.Lock()
	if s.epoch == epoch {
		s.loading = false
	}
	s.mu.Unlock()

	return errors.Join(loadErr...)
}

// applyLoaded runs apply only if the load is still current and the
// slice has not been changed locally since the load began.
func (s *Service) applyLoaded(epoch uint64, untouched func() bool, apply func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != epoch || !untouched() {
		return
	}
	apply()
}

// SetGlobal switches one global channel and writes the whole
// GlobalSettings object to the backend.
func (s *Service) SetGlobal(ctx context.Context, c model.Channel, value bool) error {
	send, err := s.StageGlobal(c, value)
	if err != nil {
		return err
	}
	return send(ctx)
}

// StageGlobal applies the change to the store at once and returns the
// function that writes it. Callers that send from another goroutine get
// the local change immediately; whichever send runs first carries the
// latest staged value.
func (s *Service) StageGlobal(c model.Channel, value bool) (func(context.Context) error, error) {
	userID, err := s.beginWrite(func() { s.globalRev++ })
	if err != nil {
		return nil, err
	}

	s.global.Stage(func() globalWrite {
		return globalWrite{userID: userID, settings: s.store.applyGlobal(c, value)}
	})
	return s.global.Flush, nil
}

// SetCategoryPreference switches one channel of one category and writes
// the whole preference collection to the backend.
func (s *Service) SetCategoryPreference(
	ctx context.Context,
	tag model.CategoryTag,
	c model.Channel,
	value bool,
) error {
	send, err := s.StageCategoryPreference(tag, c, value)
	if err != nil {
		return err
	}
	return send(ctx)
}

// StageCategoryPreference is the staged form of SetCategoryPreference.
func (s *Service) StageCategoryPreference(
	tag model.CategoryTag,
	c model.Channel,
	value bool,
) (func(context.Context) error, error) {
	userID, err := s.beginWrite(func() { s.prefsRev++ })
	if err != nil {
		return nil, err
	}

	s.prefs.Stage(func() prefsWrite {
		return prefsWrite{userID: userID, prefs: s.store.applyPreference(tag, c, value)}
	})
	return s.prefs.Flush, nil
}

// beginWrite clears the previous error notice and marks the target as
// locally changed.
func (s *Service) beginWrite(touch func()) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.err = nil
	touch()
	return s.store.UserID(), nil
}

func (s *Service) writeGlobal(ctx context.Context, w globalWrite) error {
	err := s.backend.ReplaceGlobalSettings(ctx, w.userID, w.settings)
	if err != nil {
		s.recordWriteError(err, logrus.Fields{
			"user_id":       w.userID,
			"email_enabled": w.settings.EmailEnabled,
			"web_enabled":   w.settings.WebEnabled,
		})
	}
	return err
}

func (s *Service) writePreferences(ctx context.Context, w prefsWrite) error {
	err := s.backend.ReplacePreferences(ctx, w.userID, w.prefs)
	if err != nil {
		s.recordWriteError(err, logrus.Fields{
			"user_id":    w.userID,
			"categories": len(w.prefs),
		})
	}
	return err
}

func (s *Service) recordWriteError(err error, fields logrus.Fields) {
	s.logger.WithFields(fields).WithError(err).Error("failed to save notification preferences")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
