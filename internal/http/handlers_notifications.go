package http

import "net/http"

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter, err := parseNotificationFilter(q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, pageSize, err := parsePage(q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := s.svc.Monitor.Notifications().Query(r.Context(), userID(r), filter, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPageJSON(result, toNotificationJSON))
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Monitor.Notifications().CountUnread(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if err := s.svc.Monitor.Notifications().MarkRead(r.Context(), r.PathValue("id"), uid); err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	n, err := s.svc.Monitor.Notifications().MarkAllRead(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateSummary(uid)
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
