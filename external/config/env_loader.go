package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/shadowinterview/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env string `env:"ENV" envDefault:"production"`

	BackendBaseURL string        `env:"BACKEND_BASE_URL"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`

	AudioSampleRate   int    `env:"AUDIO_SAMPLE_RATE" envDefault:"16000"`
	AudioFrameSamples int    `env:"AUDIO_FRAME_SAMPLES" envDefault:"4096"`
	AudioWantsVideo   bool   `env:"AUDIO_WANTS_VIDEO" envDefault:"false"`
	AudioSource       string `env:"AUDIO_SOURCE" envDefault:"microphone"`
	AudioOpusFile     string `env:"AUDIO_OPUS_FILE"`

	SpeechGracePeriod   time.Duration `env:"SPEECH_GRACE_PERIOD" envDefault:"2s"`
	SpeechPollInterval  time.Duration `env:"SPEECH_POLL_INTERVAL" envDefault:"1s"`
	SpeechPollMax       int           `env:"SPEECH_POLL_MAX" envDefault:"15"`
	TTSCommand          string        `env:"TTS_COMMAND" envDefault:"espeak-ng"`
	TTSVoice            string        `env:"TTS_VOICE"`
	ElapsedTickInterval time.Duration `env:"ELAPSED_TICK_INTERVAL" envDefault:"1s"`

	DatabaseURL string `env:"DATABASE_URL"`

	RelayListenAddr            string `env:"RELAY_LISTEN_ADDR" envDefault:":8081"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`
	TranscribeLanguage         string `env:"TRANSCRIBE_LANGUAGE" envDefault:"en-US"`
}

// Load reads .env (when present) and the process environment. Validation is
// left to the caller because practice and relay need different fields.
func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	return &internalconfig.Config{
		Env:                        raw.Env,
		BackendBaseURL:             raw.BackendBaseURL,
		BackendTimeout:             raw.BackendTimeout,
		AudioSampleRate:            raw.AudioSampleRate,
		AudioFrameSamples:          raw.AudioFrameSamples,
		AudioWantsVideo:            raw.AudioWantsVideo,
		AudioSource:                raw.AudioSource,
		AudioOpusFile:              raw.AudioOpusFile,
		SpeechGracePeriod:          raw.SpeechGracePeriod,
		SpeechPollInterval:         raw.SpeechPollInterval,
		SpeechPollMax:              raw.SpeechPollMax,
		TTSCommand:                 raw.TTSCommand,
		TTSVoice:                   raw.TTSVoice,
		ElapsedTickInterval:        raw.ElapsedTickInterval,
		DatabaseURL:                raw.DatabaseURL,
		RelayListenAddr:            raw.RelayListenAddr,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		TranscribeLanguage:         raw.TranscribeLanguage,
	}, nil
}
