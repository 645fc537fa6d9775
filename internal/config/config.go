package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	AudioSourceMicrophone = "microphone"
	AudioSourceOpusFile   = "opus-file"
)

type Config struct {
	Env string

	BackendBaseURL string
	BackendTimeout time.Duration

	AudioSampleRate   int
	AudioFrameSamples int
	AudioWantsVideo   bool
	AudioSource       string
	AudioOpusFile     string

	SpeechGracePeriod   time.Duration
	SpeechPollInterval  time.Duration
	SpeechPollMax       int
	TTSCommand          string
	TTSVoice            string
	ElapsedTickInterval time.Duration

	DatabaseURL string

	RelayListenAddr            string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	TranscribeLanguage         string
}

func (c *Config) Validate() error {
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if u, err := url.Parse(c.BackendBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_BASE_URL must be an absolute URL, got %q", c.BackendBaseURL)
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive, got %s", c.BackendTimeout)
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	if c.AudioFrameSamples <= 0 {
		return fmt.Errorf("AUDIO_FRAME_SAMPLES must be positive, got %d", c.AudioFrameSamples)
	}
	switch c.AudioSource {
	case AudioSourceMicrophone:
	case AudioSourceOpusFile:
		if c.AudioOpusFile == "" {
			return fmt.Errorf("AUDIO_OPUS_FILE is required when AUDIO_SOURCE=%s", AudioSourceOpusFile)
		}
	default:
		return fmt.Errorf("AUDIO_SOURCE is invalid: %q", c.AudioSource)
	}
	if c.SpeechGracePeriod < 0 || c.SpeechPollInterval <= 0 {
		return fmt.Errorf("SPEECH_GRACE_PERIOD must be non-negative and SPEECH_POLL_INTERVAL positive")
	}
	if c.SpeechPollMax < 0 {
		return fmt.Errorf("SPEECH_POLL_MAX must not be negative, got %d", c.SpeechPollMax)
	}
	return nil
}

func (c *Config) ValidateRelay() error {
	for _, req := range c.relayRequiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if c.AudioSampleRate <= 0 {
		return fmt.Errorf("AUDIO_SAMPLE_RATE must be positive, got %d", c.AudioSampleRate)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) relayRequiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "RELAY_LISTEN_ADDR", value: c.RelayListenAddr},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "GOOGLE_CLOUD_SPEECH_LOCATION", value: c.GoogleCloudSpeechLocation},
		{name: "TRANSCRIBE_LANGUAGE", value: c.TranscribeLanguage},
	}
}

// AudioFrameBytes is the size of one mono PCM16 frame.
func (c *Config) AudioFrameBytes() int {
	return c.AudioFrameSamples * 2
}

// SpeechWaitLimit is the longest a transition waits for a question to finish speaking.
func (c *Config) SpeechWaitLimit() time.Duration {
	return c.SpeechGracePeriod + time.Duration(c.SpeechPollMax)*c.SpeechPollInterval
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
