// Package stream pushes simulation snapshots to websocket viewers.
package stream

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"farmcycle/internal/app/sim"
)

const (
	DefaultInterval = 100 * time.Millisecond
	writeTimeout    = 5 * time.Second
	readTimeout     = 60 * time.Second
)

type SnapshotSource interface {
	Snapshot() sim.Snapshot
}

type Server struct {
	source   SnapshotSource
	interval time.Duration
	log      *slog.Logger

	upgrader websocket.Upgrader
	clients  atomic.Int64
}

func NewServer(source SnapshotSource, interval time.Duration, logger *slog.Logger) *Server {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		source:   source,
		interval: interval,
		log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Clients() int64 {
	return s.clients.Load()
}

// Handler upgrades the request and writes one snapshot per interval until
// the client goes away. Inbound messages are read and discarded so close
// frames and pings are processed.
func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		defer conn.Close()

		n := s.clients.Add(1)
		defer s.clients.Add(-1)
		s.log.Info("viewer connected", "remote", r.RemoteAddr, "clients", n)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go func() {
			defer cancel()
			for {
				_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := s.push(ctx, conn); err != nil && ctx.Err() == nil {
			s.log.Info("viewer dropped", "remote", r.RemoteAddr, "error", err)
		}
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

func (s *Server) push(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(s.source.Snapshot()); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
