package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/transcriber"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	StreamPath        = "/rt/stream"
	configReadTimeout = 10 * time.Second
	writeTimeout      = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
	relayChannels     = 1
)

// Server accepts the client socket protocol and forwards PCM16 frames to a
// speech recognizer. Each final result becomes a transcript delta followed
// by transcript_end.
type Server struct {
	addr     string
	stt      transcriber.Transcriber
	language string
	upgrader websocket.Upgrader
}

func NewServer(addr string, stt transcriber.Transcriber, language string) *Server {
	return &Server{
		addr:     addr,
		stt:      stt,
		language: language,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(StreamPath, s.handleStream)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: configReadTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("relay listening", "addr", s.addr, "path", StreamPath)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("relay shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade relay connection", "error", err)
		return
	}
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	out := &clientConn{conn: conn, sessionID: sessionID}
	defer out.close(websocket.CloseNormalClosure, "")

	cfg, err := readConfig(conn)
	if err != nil {
		slog.Warn("relay client sent invalid config", "error", err, "session_id", sessionID)
		out.close(websocket.CloseProtocolError, "expected config message")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	writer, err := s.stt.StartStreaming(ctx, transcriber.StreamConfig{
		SessionID:       sessionID,
		Language:        s.language,
		SampleRateHertz: cfg.SampleRate,
		Channels:        relayChannels,
	}, &resultForwarder{out: out})
	if err != nil {
		slog.Error("failed to start recognizer", "error", err, "session_id", sessionID)
		out.close(websocket.CloseInternalServerErr, "recognizer unavailable")
		return
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Warn("failed to close recognizer stream", "error", err, "session_id", sessionID)
		}
	}()
	slog.Info("relay session started", "session_id", sessionID, "sample_rate", cfg.SampleRate)

	var frames int64
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !out.isClosed() {
				slog.Warn("relay read failed", "error", err, "session_id", sessionID)
			}
			break
		}
		if mt != websocket.BinaryMessage {
			continue
		}
		if err := writer.Write(data); err != nil {
			slog.Error("failed to forward audio to recognizer", "error", err, "session_id", sessionID)
			out.close(websocket.CloseInternalServerErr, "recognizer write failed")
			break
		}
		frames++
	}
	slog.Info("relay session ended", "session_id", sessionID, "frames", frames)
}

func readConfig(conn *websocket.Conn) (transcriber.ConfigMessage, error) {
	_ = conn.SetReadDeadline(time.Now().Add(configReadTimeout))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		return transcriber.ConfigMessage{}, fmt.Errorf("read config message: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if mt != websocket.TextMessage {
		return transcriber.ConfigMessage{}, fmt.Errorf("config message must be text, got type %d", mt)
	}
	return transcriber.DecodeConfig(data)
}

// clientConn serializes writes; gorilla connections allow one writer.
type clientConn struct {
	conn      *websocket.Conn
	sessionID string

	mu     sync.Mutex
	closed bool
}

func (c *clientConn) writeText(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transcriber.ErrStreamClosed
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *clientConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *clientConn) close(code int, text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	_ = c.conn.Close()
}

type resultForwarder struct {
	out *clientConn
}

func (f *resultForwarder) OnResult(segmentIndex int, text string, isFinal bool) {
	if !isFinal || strings.TrimSpace(text) == "" {
		return
	}
	delta, err := transcriber.EncodeTranscript(strings.TrimSpace(text))
	if err != nil {
		return
	}
	end, err := transcriber.EncodeTranscriptEnd()
	if err != nil {
		return
	}
	if err := f.out.writeText(delta); err != nil {
		slog.Debug("failed to forward transcript", "error", err, "session_id", f.out.sessionID, "segment_index", segmentIndex)
		return
	}
	_ = f.out.writeText(end)
}

func (f *resultForwarder) OnError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	slog.Error("recognizer stream error", "error", err, "session_id", f.out.sessionID)
	f.out.close(websocket.CloseInternalServerErr, "recognizer failed")
}
