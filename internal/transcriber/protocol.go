package transcriber

import (
	"encoding/json"
	"fmt"
)

const (
	MessageTypeConfig        = "config"
	MessageTypeTranscript    = "transcript"
	MessageTypeTranscriptEnd = "transcript_end"
)

// ConfigMessage is the first client message on every socket.
type ConfigMessage struct {
	Type       string `json:"type"`
	SampleRate int    `json:"sampleRate"`
}

type ServerMessage struct {
	Type  string `json:"type"`
	Delta string `json:"delta,omitempty"`
}

func EncodeConfig(sampleRate int) ([]byte, error) {
	return json.Marshal(ConfigMessage{Type: MessageTypeConfig, SampleRate: sampleRate})
}

func DecodeConfig(data []byte) (ConfigMessage, error) {
	var msg ConfigMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ConfigMessage{}, fmt.Errorf("decode config message: %w", err)
	}
	if msg.Type != MessageTypeConfig {
		return ConfigMessage{}, fmt.Errorf("expected %q message, got %q", MessageTypeConfig, msg.Type)
	}
	if msg.SampleRate <= 0 {
		return ConfigMessage{}, fmt.Errorf("invalid sample rate %d", msg.SampleRate)
	}
	return msg, nil
}

func DecodeServerMessage(data []byte) (ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ServerMessage{}, fmt.Errorf("decode server message: %w", err)
	}
	return msg, nil
}

func EncodeTranscript(delta string) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MessageTypeTranscript, Delta: delta})
}

func EncodeTranscriptEnd() ([]byte, error) {
	return json.Marshal(ServerMessage{Type: MessageTypeTranscriptEnd})
}
