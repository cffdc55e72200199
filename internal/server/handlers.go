package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/notification-center/internal/model"
	"github.com/nhle/notification-center/internal/remote"
	"github.com/nhle/notification-center/internal/store"
)

// --- Notifications ---

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	filter := store.NotificationFilter{
		UnreadOnly: r.URL.Query().Get("unread_only") == "true",
	}

	list, err := s.store.GetNotifications(r.Context(), chi.URLParam(r, "userID"), filter)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.NotificationsResponse{Notifications: list})
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.CountUnread(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.UnreadCountResponse{Count: count})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	err := s.store.MarkNotificationRead(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "notificationID"), s.now())
	s.writeResult(w, r, err)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	_, err := s.store.MarkAllNotificationsRead(r.Context(), chi.URLParam(r, "userID"), s.now())
	s.writeResult(w, r, err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteNotification(r.Context(),
		chi.URLParam(r, "userID"), chi.URLParam(r, "notificationID"))
	s.writeResult(w, r, err)
}

// --- Preferences ---

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.GetCategories(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.CategoriesResponse{Categories: cats})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.GetGlobalSettings(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var g model.GlobalSettings
	if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
		writeError(w, http.StatusBadRequest, "invalid settings body")
		return
	}
	err := s.store.ReplaceGlobalSettings(r.Context(), chi.URLParam(r, "userID"), g)
	s.writeResult(w, r, err)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := s.store.GetCategoryPreferences(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, remote.PreferencesDocument{Preferences: prefs})
}

func (s *Server) handlePutPreferences(w http.ResponseWriter, r *http.Request) {
	var doc remote.PreferencesDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid preferences body")
		return
	}
	for _, p := range doc.Preferences {
		if p.Category == "" {
			writeError(w, http.StatusBadRequest, "preference without category")
			return
		}
	}

	err := s.store.ReplaceCategoryPreferences(r.Context(), chi.URLParam(r, "userID"), doc.Preferences)
	s.writeResult(w, r, err)
}

// --- Helpers ---

// writeResult answers a state-changing call: 204 on success.
func (s *Server) writeResult(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "notification not found")
	default:
		s.internalError(w, r, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.ErrorResponse{Error: msg})
}
