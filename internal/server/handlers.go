package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dohaki/across-api/internal/bridge"
	"github.com/dohaki/across-api/internal/fees"
)

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func errorResponse(msg string) apiError {
	var e apiError
	e.Error.Message = msg
	e.Error.Type = "invalid_request_error"
	return e
}

// errorStatus maps domain errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, bridge.ErrUnknownToken),
		errors.Is(err, bridge.ErrUnknownChain),
		errors.Is(err, bridge.ErrRouteNotSupported),
		errors.Is(err, fees.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// avoids the []string{v} alloc http.Header.Set performs per call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError renders a domain error. Validation failures surface their
// message; anything else is logged and sanitized to "internal error".
func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.deps.Logger.LogError(r.Context(), "request failed", err,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
		)
		writeJSON(w, status, errorResponse("internal error"))
		return
	}
	writeJSON(w, status, errorResponse(err.Error()))
}

// parseChainID parses a required chain ID query parameter.
func parseChainID(q url.Values, name string) (uint64, error) {
	if q.Get(name) == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	return parseOptionalChainID(q, name)
}

// parseOptionalChainID returns 0, meaning no filter, when the parameter
// is absent.
func parseOptionalChainID(q url.Values, name string) (uint64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

// parseAmount parses the amount parameter as a base-10 integer. Sign and
// range checks belong to the fee service.
func parseAmount(raw string) (*big.Int, error) {
	if raw == "" {
		return nil, errors.New("amount is required")
	}
	n, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer, got %q", raw)
	}
	return n, nil
}

// handleSuggestedFees serves GET /api/suggested-fees.
func (s *server) handleSuggestedFees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	token := q.Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("token is required"))
		return
	}
	origin, err := parseChainID(q, "originChainId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	destination, err := parseChainID(q, "destinationChainId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	amount, err := parseAmount(q.Get("amount"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	quote, err := s.deps.Fees.SuggestedFees(r.Context(), fees.QuoteRequest{
		Symbol:             token,
		Amount:             amount,
		OriginChainID:      origin,
		DestinationChainID: destination,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// handleLimits serves GET /api/limits.
func (s *server) handleLimits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	token := q.Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse("token is required"))
		return
	}
	destination, err := parseChainID(q, "destinationChainId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	// originChainId is accepted for parity with the hosted API but does
	// not change limits, which depend on the destination alone.
	if _, err := parseOptionalChainID(q, "originChainId"); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	limits, err := s.deps.Fees.Limits(r.Context(), token, destination)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limits)
}

// handleAvailableRoutes serves GET /api/available-routes. All parameters
// are optional filters.
func (s *server) handleAvailableRoutes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	origin, err := parseOptionalChainID(q, "originChainId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	destination, err := parseOptionalChainID(q, "destinationChainId")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	routes := s.deps.Fees.AvailableRoutes(r.Context(), origin, destination, q.Get("token"))
	writeJSON(w, http.StatusOK, routes)
}
