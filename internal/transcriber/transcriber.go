package transcriber

import (
	"context"
	"errors"
)

var ErrStreamClosed = errors.New("transcription stream closed")

// EventHandler receives lifecycle and transcript events from one stream.
type EventHandler interface {
	OnOpen()
	OnTranscript(delta string)
	OnTranscriptEnd()
	OnError(err error)
	// OnClose fires once per stream, for both requested and unexpected closes.
	OnClose(err error)
}

// Stream is the client side of one realtime transcription socket.
type Stream interface {
	Send(frame []byte) error
	SetMuted(muted bool)
	Close() error
}

type Dialer interface {
	Connect(ctx context.Context, url string, sampleRate int, handler EventHandler) (Stream, error)
}

type StreamConfig struct {
	SessionID       string
	Language        string
	SampleRateHertz int
	Channels        int
}

type StreamWriter interface {
	Write(pcm []byte) error
	Close() error
}

type ResultReceiver interface {
	OnResult(segmentIndex int, text string, isFinal bool)
	OnError(err error)
}

// Transcriber is the speech recognition backend used by the relay.
type Transcriber interface {
	StartStreaming(ctx context.Context, cfg StreamConfig, receiver ResultReceiver) (StreamWriter, error)
}
