package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dutchthenomad/rugsdata/internal/model"
	"github.com/Dutchthenomad/rugsdata/internal/storage"
	"github.com/Dutchthenomad/rugsdata/internal/verifier"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// health answers GET /api/health with a constant liveness signal: if this
// handler runs at all, the process is alive. Readiness (dependency state)
// is a separate route.
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": h.deps.Metrics.UptimeSeconds(),
	})
}

// readiness answers GET /api/readiness: 200 only while the upstream socket
// is connected and the database responds to a ping within budget.
func (h *handler) readiness(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbOK := true
	start := time.Now()
	if _, err := h.deps.Store.LatestStatusCheck(ctx); err != nil && !errors.Is(err, storage.ErrNotFound) {
		dbOK = false
	}
	h.deps.Metrics.SetDBPing(time.Since(start))

	upstreamOK := h.deps.Metrics.SocketConnected()

	body := map[string]any{
		"upstreamConnected": upstreamOK,
		"dbOk":              dbOK,
		"dbPingMs":          h.deps.Metrics.DBPingMillis(),
	}

	if !upstreamOK || !dbOK {
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// metrics answers GET /api/metrics with the process-wide counter snapshot.
func (h *handler) metrics(w http.ResponseWriter, r *http.Request) {
	m := h.deps.Metrics
	writeJSON(w, http.StatusOK, map[string]any{
		"uptimeSeconds":          m.UptimeSeconds(),
		"socketConnected":        m.SocketConnected(),
		"socketId":               m.SocketID(),
		"lastEventAt":            m.LastEventAt(),
		"totalMessagesProcessed": m.TotalMessagesProcessed(),
		"totalTrades":            m.TotalTrades(),
		"totalGamesTracked":      m.TotalGamesTracked(),
		"wsSubscribers":          m.WSSubscribers(),
		"wsSlowClientDrops":      m.WSSlowClientDrops(),
		"upstreamDropped":        m.UpstreamDropped(),
		"messagesPerSecond1m":    m.MessagesPerSecond1m(),
		"messagesPerSecond5m":    m.MessagesPerSecond5m(),
		"errorCounters":          m.ErrorCounters(),
		"schemaValidation":       m.SchemaValidation(),
	})
}

// connection answers GET /api/connection with the most recent upstream
// session lifecycle transition.
func (h *handler) connection(w http.ResponseWriter, r *http.Request) {
	ev, err := h.deps.Store.LatestConnectionEvent(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{"connected": h.deps.Metrics.SocketConnected()})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":   h.deps.Metrics.SocketConnected(),
		"socketId":    h.deps.Metrics.SocketID(),
		"lastEvent":   ev,
	})
}

// live answers GET /api/live, preferring the in-process tracker's view
// (never stale by more than the last snapshot), then the best-effort
// Redis cache, then the persisted meta.live_state singleton across a
// restart before any frame has arrived.
func (h *handler) live(w http.ResponseWriter, r *http.Request) {
	live := h.deps.Tracker.LiveState()
	if live.GameID != "" {
		writeJSON(w, http.StatusOK, live)
		return
	}

	if h.deps.Cache != nil {
		if raw, ok := h.deps.Cache.Get(r.Context()); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(raw)
			return
		}
	}

	raw, err := h.deps.Store.GetMeta(r.Context(), "live_state")
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, model.LiveState{})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (h *handler) snapshots(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	out, err := h.deps.Store.ListSnapshots(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listGames(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	out, err := h.deps.Store.ListGames(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) currentGame(w http.ResponseWriter, r *http.Request) {
	g, err := h.deps.Store.CurrentGame(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no current game")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *handler) getGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := h.deps.Store.GetGame(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// gameQuality answers GET /api/games/{id}/quality with the stored
// per-game quality report computed incrementally while the game ran.
func (h *handler) gameQuality(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	g, err := h.deps.Store.GetGame(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, g.Quality)
}

// gameVerification answers GET /api/games/{id}/verification with the
// stored PRNG tracking record, without triggering a re-verification.
func (h *handler) gameVerification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.deps.Store.GetPRNGTracking(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no verification record")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) ohlc(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required")
		return
	}
	limit := queryInt(r, "limit", 500)
	out, err := h.deps.Store.ListOHLC(r.Context(), gameID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) godCandles(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("gameId")
	if gameID == "" {
		writeError(w, http.StatusBadRequest, "gameId is required")
		return
	}
	out, err := h.deps.Store.ListGodCandles(r.Context(), gameID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) prngTracking(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	out, err := h.deps.Store.ListPRNGTracking(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// prngVerify services POST /api/prng/verify/{id}, the sole mutating
// route. Rate-limited per §4.8 so a burst of requests cannot flood the
// verifier's bounded worker pool or the database.
func (h *handler) prngVerify(w http.ResponseWriter, r *http.Request) {
	if !h.verifyLimiter.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	id := chi.URLParam(r, "id")
	report, status, err := h.deps.Verifier.Verify(r.Context(), id)
	if err != nil {
		if errors.Is(err, verifier.ErrGameNotFound) {
			writeError(w, http.StatusNotFound, "game not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"verification": report,
	})
}

func (h *handler) schemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Registry.List())
}
