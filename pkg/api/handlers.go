// Package api exposes the HTTP surface of the map: live session
// streaming, history queries, timeline playback, stats and share links.
// Handlers stay thin; the engines live in their own packages and the
// only state held here is the bus-fed live view.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"media-stream-map/pkg/deltastream"
	"media-stream-map/pkg/geoloc"
	"media-stream-map/pkg/history"
	"media-stream-map/pkg/session"
	"media-stream-map/pkg/sharelink"
	"media-stream-map/pkg/timeline"
)

// HistoryFunc fetches raw history rows from the upstream media server.
// Matches source.Client.History so tests can swap in a script.
type HistoryFunc func(ctx context.Context, after, before time.Time, length int) ([]session.Raw, error)

// Store is the slice of the database layer the handlers actually use.
// *database.Database satisfies it; tests substitute an in-memory map.
type Store interface {
	InsertSessions(ctx context.Context, batch []session.Session) error
	SessionsByRange(ctx context.Context, from, to int64) ([]session.Session, error)
	CountSessions(ctx context.Context) (int64, error)
}

// Handler bundles the collaborators every endpoint draws from.
type Handler struct {
	DB      Store
	Bus     *deltastream.Bus
	History HistoryFunc // optional, enables /api/history/sync
	Geo     *geoloc.Cache
	Origin  session.Location
	Zone    *time.Location // stats bucketing zone, nil means UTC
	BaseURL string         // public base for share links
	Logf    func(string, ...any)

	live *liveView
}

// Register wires all endpoints into mux and starts the live view.  The
// context bounds the background goroutine, normally the process context.
func (h *Handler) Register(ctx context.Context, mux *http.ServeMux) {
	if h.Logf == nil {
		h.Logf = log.Printf
	}
	if h.Zone == nil {
		h.Zone = time.UTC
	}
	h.live = newLiveView(ctx, h.Bus)

	mux.HandleFunc("/api", h.overviewHandler)
	mux.HandleFunc("/api/live", h.liveHandler)
	mux.HandleFunc("/api/live/stream", h.liveStreamHandler)
	mux.HandleFunc("/api/history", h.historyHandler)
	mux.HandleFunc("/api/history/sync", h.historySyncHandler)
	mux.HandleFunc("/api/history/timeline", h.timelineHandler)
	mux.HandleFunc("/api/history/at", h.activeAtHandler)
	mux.HandleFunc("/api/stats", h.statsHandler)
	mux.HandleFunc("/api/playback/stream", h.playbackStreamHandler)
	mux.HandleFunc("/qr", h.qrHandler)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// queryInt64 parses an int64 query parameter with a fallback.
func queryInt64(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func queryInt(r *http.Request, name string, def int) int {
	return int(queryInt64(r, name, int64(def)))
}

// window reads the from/to instants, defaulting to the last 30 days.
func window(r *http.Request) (from, to int64) {
	now := time.Now().UnixMilli()
	from = queryInt64(r, "from", now-30*24*int64(time.Hour/time.Millisecond))
	to = queryInt64(r, "to", now)
	if to < from {
		from, to = to, from
	}
	return from, to
}

// overviewHandler reports the map's vital signs in one cheap call.
func (h *Handler) overviewHandler(w http.ResponseWriter, r *http.Request) {
	live := h.live.Snapshot(r.Context())

	var stored int64
	if h.DB != nil {
		n, err := h.DB.CountSessions(r.Context())
		if err != nil {
			h.Logf("overview count: %v", err)
		} else {
			stored = n
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"live_sessions":   len(live),
		"stored_sessions": stored,
	})
}

// liveHandler returns the current live snapshot as plain JSON for
// clients that poll instead of streaming.
func (h *Handler) liveHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := h.live.Snapshot(r.Context())
	if snapshot == nil {
		snapshot = []session.Session{}
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// liveStreamHandler streams the live map over SSE: one opening snapshot
// event, then a delta event per reconciliation cycle.
func (h *Handler) liveStreamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	ctx := r.Context()
	// Subscribe before reading the snapshot so no delta can fall into
	// the gap between the two.
	deltas := h.Bus.Subscribe(ctx, 32)

	snapshot := h.live.Snapshot(ctx)
	if snapshot == nil {
		snapshot = []session.Session{}
	}
	b, _ := json.Marshal(snapshot)
	fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", b)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case d, open := <-deltas:
			if !open {
				return
			}
			b, _ := json.Marshal(d)
			fmt.Fprintf(w, "event: delta\ndata: %s\n\n", b)
			flusher.Flush()
		}
	}
}

// historyHandler returns stored sessions inside the requested window,
// optionally paginated with offset/limit for very busy servers.
func (h *Handler) historyHandler(w http.ResponseWriter, r *http.Request) {
	from, to := window(r)
	sessions, err := h.DB.SessionsByRange(r.Context(), from, to)
	if err != nil {
		h.Logf("history query: %v", err)
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)
	if offset < 0 {
		offset = 0
	}
	if offset > len(sessions) {
		offset = len(sessions)
	}
	sessions = sessions[offset:]
	if limit > 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}

	if sessions == nil {
		sessions = []session.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

// historySyncHandler pulls a window of history from the upstream media
// server, enriches and normalizes it, and stores the result.  Keys are
// deduplicated by the database, so re-syncing an overlapping window is
// harmless.
func (h *Handler) historySyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	if h.History == nil {
		http.Error(w, "no upstream configured", http.StatusServiceUnavailable)
		return
	}

	from, to := window(r)
	length := queryInt(r, "length", 1000)

	raws, err := h.History(r.Context(), time.UnixMilli(from), time.UnixMilli(to), length)
	if err != nil {
		h.Logf("history sync fetch: %v", err)
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}
	if h.Geo != nil {
		h.Geo.Enrich(r.Context(), raws)
	}

	batch := make([]session.Session, 0, len(raws))
	for i, raw := range raws {
		batch = append(batch, session.Normalize(raw, h.Origin, i, len(raws)))
	}
	if err := h.DB.InsertSessions(r.Context(), batch); err != nil {
		h.Logf("history sync store: %v", err)
		http.Error(w, "store error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"synced": len(batch)})
}

// timelineHandler returns the playback axis for a window.
func (h *Handler) timelineHandler(w http.ResponseWriter, r *http.Request) {
	from, to := window(r)
	sessions, err := h.DB.SessionsByRange(r.Context(), from, to)
	if err != nil {
		h.Logf("timeline query: %v", err)
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	instants := timeline.Build(sessions)
	if instants == nil {
		instants = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"timeline": instants})
}

// activeAtHandler returns the sessions active at one instant, the
// random-access counterpart of playback.
func (h *Handler) activeAtHandler(w http.ResponseWriter, r *http.Request) {
	from, to := window(r)
	t := queryInt64(r, "t", from)

	sessions, err := h.DB.SessionsByRange(r.Context(), from, to)
	if err != nil {
		h.Logf("active-at query: %v", err)
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	active := timeline.ActiveAt(sessions, t)
	if active == nil {
		active = []session.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"t": t, "sessions": active})
}

// statsHandler aggregates the stored window into per-user, per-country
// and per-time rollups.
func (h *Handler) statsHandler(w http.ResponseWriter, r *http.Request) {
	from, to := window(r)
	sessions, err := h.DB.SessionsByRange(r.Context(), from, to)
	if err != nil {
		h.Logf("stats query: %v", err)
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, history.Aggregate(sessions, h.Zone))
}

// playbackFrame is one SSE payload of the playback stream.
type playbackFrame struct {
	Index    int               `json:"index"`
	T        int64             `json:"t"`
	Clock    string            `json:"clock"`
	Sessions []session.Session `json:"sessions"`
}

// playbackStreamHandler replays a history window over SSE.  The
// controller runs on this goroutine, so writes need no coordination;
// the stream ends with a done event once playback reaches the last
// instant or the client hangs up.
func (h *Handler) playbackStreamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	from, to := window(r)
	sessions, err := h.DB.SessionsByRange(r.Context(), from, to)
	if err != nil {
		h.Logf("playback query: %v", err)
		http.Error(w, "history error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")

	// The controller calls emit then clock for every frame; pairing
	// them here keeps the wire format in one place.
	var frame playbackFrame
	var ctrl *timeline.Controller
	emit := func(t int64, active []session.Session) {
		if active == nil {
			active = []session.Session{}
		}
		frame = playbackFrame{Index: ctrl.Index(), T: t, Sessions: active}
	}
	clock := func(display string) {
		frame.Clock = display
		b, _ := json.Marshal(frame)
		fmt.Fprintf(w, "event: frame\ndata: %s\n\n", b)
		flusher.Flush()
	}
	ctrl = timeline.NewController(sessions, emit, clock)

	if start := queryInt(r, "i", 0); start > 0 {
		ctrl.Seek(start)
	}

	timeline.Run(r.Context(), ctrl, timeline.TickerScheduler{}, timeline.FrameInterval)

	fmt.Fprint(w, "event: done\ndata: end\n\n")
	flusher.Flush()
}

// qrHandler renders the requested view as a QR share link PNG.
func (h *Handler) qrHandler(w http.ResponseWriter, r *http.Request) {
	view := sharelink.View{
		Mode:   r.URL.Query().Get("view"),
		FromMs: queryInt64(r, "from", 0),
		ToMs:   queryInt64(r, "to", 0),
		Index:  queryInt(r, "i", 0),
	}
	if view.Mode == "" {
		view.Mode = "live"
	}

	link, err := sharelink.BuildURL(h.BaseURL, view)
	if err != nil {
		http.Error(w, "bad base url", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := sharelink.EncodePNG(w, link, queryInt(r, "size", 512)); err != nil {
		h.Logf("qr encode: %v", err)
	}
}
