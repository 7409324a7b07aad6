package web

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ctxKey int

const (
	keyEntry ctxKey = iota
	keyRequestID
)

// RequestIDHeader carries the per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// Server is the Judge HTTP server
type Server struct {
	server *http.Server
	hub    *Hub
	log    *logrus.Entry
}

// NewServer wires routes for handler. hub may be nil to disable /ws.
func NewServer(addr string, handler *Handler, hub *Hub, log *logrus.Entry) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", handler.Analyze)
	mux.HandleFunc("/health", handler.Health)
	if hub != nil {
		mux.HandleFunc("/ws", hub.ServeWS)
	}

	s := &Server{hub: hub, log: log}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Upstream inference can take tens of seconds.
		WriteTimeout: 2 * time.Minute,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	if s.hub != nil {
		go s.hub.Run(hubCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.server.Addr).Info("judge listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// middleware assigns a request ID, logs every request and turns panics
// into 500 answers.
func (s *Server) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, requestID)

		log := s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
		})

		ctx := context.WithValue(r.Context(), keyEntry, log)
		ctx = context.WithValue(ctx, keyRequestID, requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		defer func() {
			if p := recover(); p != nil {
				log.WithField("panic", p).Error("handler panicked")
				writeError(rec, http.StatusInternalServerError, "Internal server error.")
			}
			log.WithFields(logrus.Fields{
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Info("request handled")
		}()

		next.ServeHTTP(rec, r.WithContext(ctx))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack lets the websocket upgrader take over the connection
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func entryFrom(ctx context.Context) *logrus.Entry {
	if e, ok := ctx.Value(keyEntry).(*logrus.Entry); ok {
		return e
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(keyRequestID).(string)
	return id
}
