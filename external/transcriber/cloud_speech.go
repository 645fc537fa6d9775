package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth"
	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/shadowinterview/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	cloudPlatformScope    = "https://www.googleapis.com/auth/cloud-platform"
	globalLocation        = "global"
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	defaultLanguage string
	location        string
	model           string
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = globalLocation
	}
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		defaultLanguage: cfg.Language,
		location:        location,
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (t *CloudSpeechTranscriber) StartStreaming(ctx context.Context, cfg transcriber.StreamConfig, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	if cfg.Language == "" {
		cfg.Language = t.defaultLanguage
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.SampleRateHertz <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", cfg.SampleRateHertz)
	}
	slog.Info("starting cloud speech streaming", "session_id", cfg.SessionID, "location", t.location, "language", cfg.Language, "model", t.model, "sample_rate", cfg.SampleRateHertz)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{cloudPlatformScope},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}
	client, err := speech.NewClient(ctx, t.clientOptions(creds)...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}

	configRequest := t.streamingConfigRequest(cfg)
	open := func() (speechpb.Speech_StreamingRecognizeClient, error) {
		s, err := client.StreamingRecognize(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Send(configRequest); err != nil {
			_ = s.CloseSend()
			return nil, err
		}
		return s, nil
	}
	stream, err := open()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("open streaming recognize: %w", err)
	}
	slog.Info("cloud speech stream initialized", "session_id", cfg.SessionID)

	w := &streamWriter{
		sessionID:   cfg.SessionID,
		stream:      stream,
		receiver:    receiver,
		newStreamFn: open,
		closeFn:     client.Close,
	}
	w.startReceiver(stream)
	return w, nil
}

func (t *CloudSpeechTranscriber) clientOptions(creds *auth.Credentials) []option.ClientOption {
	opts := []option.ClientOption{option.WithAuthCredentials(creds)}
	if t.location != globalLocation {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", t.location, speechAPIEndpointPort)))
	}
	return opts
}

func (t *CloudSpeechTranscriber) streamingConfigRequest(cfg transcriber.StreamConfig) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.model,
					LanguageCodes: []string{cfg.Language},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   int32(cfg.SampleRateHertz),
							AudioChannelCount: int32(cfg.Channels),
						},
					},
					Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{InterimResults: true},
			},
		},
	}
}

// streamWriter reopens the recognize stream when Cloud Speech aborts it at
// its duration limit. Segment indexes keep counting across reconnects.
type streamWriter struct {
	sessionID   string
	mu          sync.Mutex
	closed      bool
	stream      speechpb.Speech_StreamingRecognizeClient
	receiver    transcriber.ResultReceiver
	newStreamFn func() (speechpb.Speech_StreamingRecognizeClient, error)
	closeFn     func() error

	segmentMu   sync.Mutex
	nextSegment int
}

func (w *streamWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: pcm},
	}
	if err := w.stream.Send(req); err != nil {
		if !isReconnectableStreamError(err) {
			return err
		}
		slog.Warn("transcriber send failed with reconnectable error; reconnecting", "error", err, "session_id", w.sessionID)
		if err := w.reconnectLocked(); err != nil {
			return fmt.Errorf("reconnect stream: %w", err)
		}
		return w.stream.Send(req)
	}
	return nil
}

func (w *streamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.stream.CloseSend(); err != nil {
		_ = w.closeFn()
		return err
	}
	return w.closeFn()
}

func (w *streamWriter) reconnectLocked() error {
	_ = w.stream.CloseSend()
	next, err := w.newStreamFn()
	if err != nil {
		slog.Error("failed to reconnect transcriber stream", "error", err, "session_id", w.sessionID)
		return err
	}
	w.stream = next
	w.startReceiver(next)
	slog.Info("transcriber stream reconnected", "session_id", w.sessionID)
	return nil
}

func (w *streamWriter) startReceiver(stream speechpb.Speech_StreamingRecognizeClient) {
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled) {
					slog.Info("transcriber receive loop stopped", "reason", err.Error(), "session_id", w.sessionID)
					return
				}
				if isReconnectableStreamError(err) {
					slog.Warn("transcriber receive loop ended with reconnectable abort", "error", err, "session_id", w.sessionID)
					return
				}
				w.receiver.OnError(err)
				return
			}
			w.dispatch(resp.GetResults())
		}
	}()
}

// dispatch forwards the top alternative of each result. Only final results
// consume a segment index.
func (w *streamWriter) dispatch(results []*speechpb.StreamingRecognitionResult) {
	for _, result := range results {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		w.segmentMu.Lock()
		idx := w.nextSegment
		if result.GetIsFinal() {
			w.nextSegment++
		}
		w.segmentMu.Unlock()
		w.receiver.OnResult(idx, alts[0].GetTranscript(), result.GetIsFinal())
	}
}

func isReconnectableStreamError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
