// Package status serves a small HTTP + WebSocket dashboard reporting
// what the runner decided and did, authenticated the way the original
// tool's web.go did: a single configured user, a bcrypt password hash,
// and a cookie-backed in-memory session map. The WebSocket hub mirrors
// ws.go's per-connection mutex map broadcasting pattern.
package status

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzuther/lalikan/internal/decision"
	"github.com/mzuther/lalikan/internal/logging"
)

// Credentials is the single configured operator account, stored as a
// bcrypt hash the same way the original tool's Web.AuthPassHash was.
type Credentials struct {
	Username     string
	PasswordHash string
}

// HashPassword is a thin wrapper so callers never import bcrypt
// themselves just to provision a Credentials value.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(hash), err
}

func (c Credentials) check(username, password string) bool {
	if username != c.Username {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
}

// SnapshotSource supplies the current decision snapshot for a job, by
// name, for the dashboard and its WebSocket feed to render.
type SnapshotSource func(job string) (decision.Snapshot, bool)

// Server hosts the dashboard. It holds no reference to the runner
// directly: Snapshots is called on demand so the dashboard always
// reflects the latest tick without the two packages needing to share
// mutable state.
type Server struct {
	Credentials Credentials
	Snapshots   SnapshotSource
	Jobs        []string

	sessionTimeout time.Duration
	sessionsMu     sync.RWMutex
	sessions       map[string]time.Time

	upgrader websocket.Upgrader
	hub      *hub
}

// NewServer builds a Server with a 30-minute session timeout; Handler
// wires its routes into a fresh *http.ServeMux.
func NewServer(creds Credentials, source SnapshotSource, jobs []string) *Server {
	s := &Server{
		Credentials:    creds,
		Snapshots:      source,
		Jobs:           jobs,
		sessionTimeout: 30 * time.Minute,
		sessions:       make(map[string]time.Time),
		upgrader:       websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		hub:            newHub(),
	}
	return s
}

// Handler builds the HTTP handler tree, equivalent to the original
// tool's setupRoutes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)
	mux.HandleFunc("/api/status", s.requireAuth(s.handleStatus))
	mux.HandleFunc("/api/system", s.requireAuth(s.handleSystem))
	mux.HandleFunc("/ws/status", s.requireAuth(s.handleStatusWebSocket))
	return mux
}

func (s *Server) requireAuth(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("session_id")
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		s.sessionsMu.RLock()
		issued, ok := s.sessions[cookie.Value]
		s.sessionsMu.RUnlock()

		if !ok || time.Since(issued) > s.sessionTimeout {
			s.sessionsMu.Lock()
			delete(s.sessions, cookie.Value)
			s.sessionsMu.Unlock()
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}

		s.sessionsMu.Lock()
		s.sessions[cookie.Value] = time.Now()
		s.sessionsMu.Unlock()

		handler(w, r)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if !s.Credentials.check(username, password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	sessionID, err := newSessionID()
	if err != nil {
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}
	s.sessionsMu.Lock()
	s.sessions[sessionID] = time.Now()
	s.sessionsMu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     "session_id",
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(s.sessionTimeout.Seconds()),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("session_id"); err == nil {
		s.sessionsMu.Lock()
		delete(s.sessions, cookie.Value)
		s.sessionsMu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: "", Path: "/", MaxAge: -1})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	result := make(map[string]decision.Snapshot, len(s.Jobs))
	for _, job := range s.Jobs {
		if snap, ok := s.Snapshots(job); ok {
			result[job] = snap
		}
	}
	writeJSON(w, result)
}

// SystemMetrics is the subset of host metrics the dashboard shows,
// gathered through gopsutil the way the original tool's
// handleGetSystemMetrics did.
type SystemMetrics struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
}

// CollectSystemMetrics samples CPU, memory and disk usage for path.
func CollectSystemMetrics(path string) (SystemMetrics, error) {
	var metrics SystemMetrics

	cpuPercents, err := cpu.Percent(0, false)
	if err != nil {
		return metrics, err
	}
	if len(cpuPercents) > 0 {
		metrics.CPUPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return metrics, err
	}
	metrics.MemoryPercent = vm.UsedPercent

	du, err := disk.Usage(path)
	if err != nil {
		return metrics, err
	}
	metrics.DiskPercent = du.UsedPercent

	return metrics, nil
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	metrics, err := CollectSystemMetrics("/")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, metrics)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("status: failed to encode response: %v", err)
	}
}

func newSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
