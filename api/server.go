package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"themeplane/activate"
	"themeplane/model"
	"themeplane/scheduler"
	"themeplane/service"
	"themeplane/theme"
)

// SaveSchedulesFunc persists the schedule list after an API change.
type SaveSchedulesFunc func([]model.Schedule) error

type Server struct {
	svc           *service.Service
	themes        *theme.Handler
	sched         *scheduler.Scheduler
	saveSchedules SaveSchedulesFunc
	ws            *WSConnectionManager
	upgrader      websocket.Upgrader
	logger        *log.Logger
}

// NewServer wires the HTTP API to svc and forwards every service event to
// the websocket subscribers. sched and save may be nil.
func NewServer(svc *service.Service, themes *theme.Handler, sched *scheduler.Scheduler, save SaveSchedulesFunc, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		svc:           svc,
		themes:        themes,
		sched:         sched,
		saveSchedules: save,
		ws:            NewWSConnectionManager(),
		upgrader: websocket.Upgrader{
			CheckOrigin: sameHostOrigin,
		},
		logger: logger,
	}
	svc.Subscribe(func(e service.Event) {
		s.ws.Broadcast(e)
	})
	return s
}

func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/themes", s.themes.HandleThemes)
	mux.HandleFunc("/api/themes/variables", s.themes.HandleVariables)
	mux.HandleFunc("/api/active", s.handleActive)
	mux.HandleFunc("/api/apply", s.handleApply)
	mux.HandleFunc("/api/recompile", s.handleRecompile)
	mux.HandleFunc("/api/wallpaper", s.handleWallpaper)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/schedules", s.handleSchedules)
	mux.HandleFunc("/api/schedules/", s.handleScheduleByID)
	mux.HandleFunc("/api/ws", s.handleWS)
}

// Close disconnects the websocket subscribers.
func (s *Server) Close() {
	s.ws.CloseAll()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Active()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ---------- activation ----------

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	id := r.URL.Query().Get("theme")
	if id == "" {
		http.Error(w, "theme parameter required", http.StatusBadRequest)
		return
	}

	rec, err := s.svc.Apply(r.Context(), id, "api")
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, rec)
	case rec != nil && rec.Succeeded():
		// The theme is active; only the recompile step failed.
		writeJSON(w, http.StatusAccepted, rec)
	default:
		writeError(w, err)
	}
}

func (s *Server) handleRecompile(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	if err := s.svc.Recompile(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWallpaper(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	path, err := s.svc.ReloadWallpaper(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"wallpaper": path})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.svc.History(limit)
	if err != nil {
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		s.logger.Error("load history", "err", err)
		return
	}
	if records == nil {
		records = []model.Activation{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ---------- websocket ----------

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade", "err", err)
		return
	}
	s.ws.Add(conn)
	defer func() {
		s.ws.Remove(conn)
		conn.Close()
	}()

	hello := service.Event{Type: "hello", Time: time.Now().UTC()}
	if t, err := s.svc.Active(); err == nil {
		hello.Theme = t.ID
	}
	if err := s.ws.WriteJSON(conn, hello); err != nil {
		return
	}

	// Subscribers only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// sameHostOrigin accepts clients without an Origin header and browsers on
// the same host.
func sameHostOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	origin = strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	return origin == r.Host
}

// ---------- schedules API ----------

func (s *Server) handleSchedules(w http.ResponseWriter, r *http.Request) {
	if s.sched == nil {
		http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.sched.Schedules())

	case http.MethodPost:
		var sc model.Schedule
		if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if sc.Type == "" {
			sc.Type = model.ScheduleInterval
		}
		if !scheduler.Validate(sc) {
			http.Error(w, "invalid schedule", http.StatusBadRequest)
			return
		}
		sc.ID = uuid.NewString()
		if sc.Name == "" {
			sc.Name = sc.ID
		}

		cur := append(s.sched.Schedules(), sc)
		if !s.storeSchedules(w, cur) {
			return
		}
		writeJSON(w, http.StatusCreated, sc)

	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleScheduleByID(w http.ResponseWriter, r *http.Request) {
	if s.sched == nil {
		http.Error(w, "scheduler not running", http.StatusServiceUnavailable)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/schedules/")
	if id == "" {
		http.NotFound(w, r)
		return
	}

	cur := s.sched.Schedules()
	idx := -1
	for i := range cur {
		if cur[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, cur[idx])

	case http.MethodPut:
		var upd model.Schedule
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		upd.ID = id
		if !scheduler.Validate(upd) {
			http.Error(w, "invalid schedule", http.StatusBadRequest)
			return
		}
		cur[idx] = upd
		if !s.storeSchedules(w, cur) {
			return
		}
		writeJSON(w, http.StatusOK, upd)

	case http.MethodDelete:
		cur = append(cur[:idx], cur[idx+1:]...)
		if !s.storeSchedules(w, cur) {
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodPut+", "+http.MethodDelete)
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) storeSchedules(w http.ResponseWriter, scheds []model.Schedule) bool {
	if s.saveSchedules != nil {
		if err := s.saveSchedules(scheds); err != nil {
			http.Error(w, "failed to save schedules", http.StatusInternalServerError)
			s.logger.Error("save schedules", "err", err)
			return false
		}
	}
	s.sched.SetSchedules(scheds)
	return true
}

// ---------- helpers ----------

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodPost {
		return true
	}
	w.Header().Set("Allow", http.MethodPost)
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// writeError maps pipeline errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var unavailable *theme.RegistryUnavailableError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, theme.ErrThemeNotFound), errors.Is(err, activate.ErrNoActiveTheme):
		status = http.StatusNotFound
	case errors.As(err, &unavailable), errors.Is(err, service.ErrWallpaperDisabled):
		status = http.StatusServiceUnavailable
	case activate.StageOf(err) == activate.StagePointerSwitching && !errors.Is(err, activate.ErrPointerSwitch):
		// The theme exists but its variables do not parse.
		status = http.StatusUnprocessableEntity
	case errors.Is(err, activate.ErrRecompileTimeout):
		status = http.StatusGatewayTimeout
	}

	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"stage": activate.StageOf(err).String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("writeJSON", "err", err)
	}
}
