package server

import "net/http"

type cacheEntryResponse struct {
	Key    string `json:"key"`
	Exists bool   `json:"exists"`
}

// handleCacheFlush clears every entry from the cache provider.
func (s *server) handleCacheFlush(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Cache.Flush(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.deps.Logger.LogInfo(r.Context(), "cache flushed",
		"request_id", RequestIDFromContext(r.Context()),
	)
	w.WriteHeader(http.StatusNoContent)
}

// handleCacheEntry reports whether a key currently resolves.
func (s *server) handleCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("key is required"))
		return
	}
	writeJSON(w, http.StatusOK, cacheEntryResponse{
		Key:    key,
		Exists: s.deps.Cache.Exists(r.Context(), key),
	})
}

// handleCacheEntryDelete removes a key. Deleting an absent key succeeds.
func (s *server) handleCacheEntryDelete(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("key is required"))
		return
	}
	if err := s.deps.Cache.Delete(r.Context(), key); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
