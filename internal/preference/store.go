package preference

import (
	"sync"

	"github.com/nhle/notification-center/internal/model"
)

// Store is the in-memory preference state of one user: the global
// switches, the server's category enumeration and the explicit
// per-category records. It is safe for concurrent readers; all writes
// go through Service.
type Store struct {
	mu         sync.RWMutex
	userID     string
	global     model.GlobalSettings
	categories []model.Category
	prefs      []model.CategoryPreference
}

// NewStore returns a store holding defaults and no categories.
func NewStore() *Store {
	return &Store{global: model.DefaultGlobalSettings()}
}

// UserID returns the identity the store currently describes.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Global returns the global channel switches.
func (s *Store) Global() model.GlobalSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global
}

// Categories returns a copy of the category enumeration.
func (s *Store) Categories() []model.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Category(nil), s.categories...)
}

// CategoryTags returns the tags of the category enumeration in order.
func (s *Store) CategoryTags() []model.CategoryTag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]model.CategoryTag, len(s.categories))
	for i, c := range s.categories {
		tags[i] = c.Tag
	}
	return tags
}

// Preference returns the record for tag. When none exists a permissive
// default is synthesized; it is not stored.
func (s *Store) Preference(tag model.CategoryTag) model.CategoryPreference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.lookup(tag); ok {
		return p
	}
	return model.DefaultCategoryPreference(tag)
}

// Explicit returns the stored record for tag, or nil when the category
// has never been changed.
func (s *Store) Explicit(tag model.CategoryTag) *model.CategoryPreference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.lookup(tag); ok {
		return &p
	}
	return nil
}

// Preferences returns a copy of the explicit records only.
func (s *Store) Preferences() []model.CategoryPreference {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.CategoryPreference(nil), s.prefs...)
}

func (s *Store) lookup(tag model.CategoryTag) (model.CategoryPreference, bool) {
	for _, p := range s.prefs {
		if p.Category == tag {
			return p, true
		}
	}
	return model.CategoryPreference{}, false
}

// reset drops all state and rebinds the store to userID.
func (s *Store) reset(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.global = model.DefaultGlobalSettings()
	s.categories = nil
	s.prefs = nil
}

func (s *Store) setGlobal(g model.GlobalSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = g
}

func (s *Store) setCategories(c []model.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append([]model.Category(nil), c...)
}

// setPreferences replaces the explicit records, keeping the last record
// when the server sends duplicates for a tag.
func (s *Store) setPreferences(prefs []model.CategoryPreference) {
	dedup := make([]model.CategoryPreference, 0, len(prefs))
	index := make(map[model.CategoryTag]int, len(prefs))
	for _, p := range prefs {
		if i, ok := index[p.Category]; ok {
			dedup[i] = p
			continue
		}
		index[p.Category] = len(dedup)
		dedup = append(dedup, p)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs = dedup
}

// applyGlobal sets one channel and returns the resulting full object.
func (s *Store) applyGlobal(c model.Channel, value bool) model.GlobalSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = s.global.With(c, value)
	return s.global
}

// applyPreference replaces the one record for tag (created from defaults
// when absent) and returns the resulting full collection.
func (s *Store) applyPreference(
	tag model.CategoryTag,
	c model.Channel,
	value bool,
) []model.CategoryPreference {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.CategoryPreference, 0, len(s.prefs)+1)
	found := false
	for _, p := range s.prefs {
		if p.Category == tag {
			p = p.With(c, value)
			found = true
		}
		next = append(next, p)
	}
	if !found {
		next = append(next, model.DefaultCategoryPreference(tag).With(c, value))
	}

	s.prefs = next
	return append([]model.CategoryPreference(nil), next...)
}
