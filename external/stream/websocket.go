package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foxseedlab/shadowinterview/internal/transcriber"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
	closeGracePeriod = time.Second
)

type WebsocketDialer struct {
	dialer *websocket.Dialer
}

func NewWebsocketDialer() transcriber.Dialer {
	return &WebsocketDialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Connect dials url and sends the config message before returning, so no
// audio frame can precede it. handler.OnOpen fires before Connect returns.
func (d *WebsocketDialer) Connect(ctx context.Context, url string, sampleRate int, handler transcriber.EventHandler) (transcriber.Stream, error) {
	header := http.Header{}
	header.Set("X-Request-ID", uuid.NewString())
	conn, resp, err := d.dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial transcription stream: %w", err)
	}

	configMsg, err := transcriber.EncodeConfig(sampleRate)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("encode config message: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, configMsg); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send config message: %w", err)
	}

	s := &wsStream{conn: conn, handler: handler, url: url}
	handler.OnOpen()
	slog.Info("transcription stream connected", "url", url, "sample_rate", sampleRate)
	go s.readLoop()
	return s, nil
}

type wsStream struct {
	conn    *websocket.Conn
	handler transcriber.EventHandler
	url     string
	muted   atomic.Bool

	mu        sync.Mutex
	closed    bool
	requested bool
	sent      int64

	finishOnce sync.Once
}

// Send drops the frame while muted or after close.
func (s *wsStream) Send(frame []byte) error {
	if s.muted.Load() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return transcriber.ErrStreamClosed
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("write audio frame: %w", err)
	}
	s.sent++
	return nil
}

func (s *wsStream) SetMuted(muted bool) {
	s.muted.Store(muted)
}

// Close does not wait for the reader; OnClose(nil) is delivered from the
// reader goroutine once the connection is gone.
func (s *wsStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.requested = true
	sent := s.sent
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	slog.Info("transcription stream closing", "url", s.url, "sent_frames", sent)
	return s.conn.Close()
}

func (s *wsStream) readLoop() {
	for {
		mt, data, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		msg, err := transcriber.DecodeServerMessage(data)
		if err != nil {
			slog.Warn("ignoring malformed transcription message", "error", err)
			continue
		}
		switch msg.Type {
		case transcriber.MessageTypeTranscript:
			s.handler.OnTranscript(msg.Delta)
		case transcriber.MessageTypeTranscriptEnd:
			s.handler.OnTranscriptEnd()
		default:
			slog.Debug("ignoring unknown transcription message", "type", msg.Type)
		}
	}
}

func (s *wsStream) finish(readErr error) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		requested := s.requested
		s.closed = true
		s.mu.Unlock()
		_ = s.conn.Close()

		if requested {
			s.handler.OnClose(nil)
			return
		}
		var closeErr *websocket.CloseError
		if errors.As(readErr, &closeErr) {
			slog.Info("transcription stream closed by relay", "code", closeErr.Code, "text", closeErr.Text)
		} else {
			slog.Warn("transcription stream read failed", "error", readErr)
		}
		s.handler.OnClose(fmt.Errorf("%w: %v", transcriber.ErrStreamClosed, readErr))
	})
}
