// logicbits/pkg/runtime/dashboard.go

package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"rgehrsitz/logicbits/pkg/logging"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider is what the dashboard needs from an engine.
type StatsProvider interface {
	GetStats() Stats
}

type Dashboard struct {
	engine         StatsProvider
	port           int
	gatherer       prometheus.Gatherer
	clients        map[*websocket.Conn]bool
	clientsMutex   sync.Mutex
	updateInterval time.Duration
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewDashboard serves engine stats on port. A nil gatherer disables /metrics.
func NewDashboard(engine StatsProvider, port int, updateInterval time.Duration, gatherer prometheus.Gatherer) *Dashboard {
	if updateInterval <= 0 {
		updateInterval = time.Second
	}
	return &Dashboard{
		engine:         engine,
		port:           port,
		gatherer:       gatherer,
		clients:        make(map[*websocket.Conn]bool),
		updateInterval: updateInterval,
	}
}

// Handler returns the dashboard routes: /health, /stats, /events (websocket)
// and /metrics.
func (d *Dashboard) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", d.handleHealth)
	mux.HandleFunc("/stats", d.handleStats)
	mux.HandleFunc("/events", d.handleWebSocket)
	if d.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Start serves until ctx is done, then shuts the server down.
func (d *Dashboard) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", d.port),
		Handler:           d.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go d.broadcastUpdates(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		d.closeClients()
	}()

	logging.Logger.Info().Str("addr", srv.Addr).Msg("Dashboard starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return logging.NewError(logging.ErrorTypeRuntime, "dashboard server failed", err, map[string]interface{}{"port": d.port})
	}
	return nil
}

func (d *Dashboard) handleHealth(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Server is running")
}

func (d *Dashboard) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(d.engine.GetStats()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Error upgrading to WebSocket")
		return
	}
	defer conn.Close()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Client connected")

	d.clientsMutex.Lock()
	d.clients[conn] = true
	d.clientsMutex.Unlock()

	// Push a snapshot right away so clients do not wait a full interval.
	d.send(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	d.clientsMutex.Lock()
	delete(d.clients, conn)
	d.clientsMutex.Unlock()

	logging.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Client disconnected")
}

func (d *Dashboard) send(conn *websocket.Conn) {
	message, err := json.Marshal(d.engine.GetStats())
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Error marshaling stats")
		return
	}
	d.clientsMutex.Lock()
	defer d.clientsMutex.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
		logging.Logger.Debug().Err(err).Msg("Error sending message to client")
	}
}

func (d *Dashboard) broadcastUpdates(ctx context.Context) {
	ticker := time.NewTicker(d.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		message, err := json.Marshal(d.engine.GetStats())
		if err != nil {
			logging.Logger.Error().Err(err).Msg("Error marshaling stats")
			continue
		}

		d.clientsMutex.Lock()
		for client := range d.clients {
			if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
				logging.Logger.Debug().Err(err).Msg("Error sending message to client")
				client.Close()
				delete(d.clients, client)
			}
		}
		d.clientsMutex.Unlock()
	}
}

func (d *Dashboard) closeClients() {
	d.clientsMutex.Lock()
	defer d.clientsMutex.Unlock()
	for client := range d.clients {
		client.Close()
		delete(d.clients, client)
	}
}
