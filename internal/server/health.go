package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dohaki/across-api/internal/platform/cache"
)

// Pre-allocated health bodies; these endpoints are hit every few seconds
// by orchestrators.
var (
	plainCT      = []string{"text/plain; charset=utf-8"}
	okBody       = []byte("ok")
	notReadyBody = []byte("not ready")
)

// handleHealth is the liveness probe: the process is up.
func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}

// handleReady is the readiness probe, gated on Deps.ReadyCheck.
func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.ReadyCheck != nil {
		if err := s.deps.ReadyCheck(r.Context()); err != nil {
			s.deps.Logger.LogWarn(r.Context(), "readiness check failed", "error", err)
			w.Header()["Content-Type"] = plainCT
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write(notReadyBody)
			return
		}
	}
	w.Header()["Content-Type"] = plainCT
	w.WriteHeader(http.StatusOK)
	w.Write(okBody)
}

// readyProbeKey is reused on every probe so sentinel entries never
// accumulate in the backend.
const readyProbeKey = "ready:probe"

const readyProbeTTL = time.Minute

// CacheReadyCheck reports readiness by round-tripping a sentinel entry
// through the cache provider. Reads are fail-soft, so a missing sentinel
// right after a successful write is the read-path signal that the backend
// is unreachable.
func CacheReadyCheck(p cache.Provider) ReadyChecker {
	return func(ctx context.Context) error {
		if err := p.Set(ctx, readyProbeKey, []byte("1"), readyProbeTTL); err != nil {
			return fmt.Errorf("cache write: %w", err)
		}
		if _, ok := p.Get(ctx, readyProbeKey); !ok {
			return errors.New("cache read: probe entry missing")
		}
		return nil
	}
}
