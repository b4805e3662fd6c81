// Package tts provides a unified interface for text-to-speech providers.
//
// Providers are tried as an ordered list (see Chain): the first one that
// returns audio wins. Dora's default order is ElevenLabs, then the keyless
// Google Translate voice, so a missing or rejected ElevenLabs key still
// produces speech.
//
// Example usage:
//
//	primary, _ := tts.NewElevenLabs(tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")))
//	fallback, _ := tts.NewGoogleTranslate()
//	chain, _ := tts.NewChain(primary, fallback)
//
//	speaker := tts.NewSpeaker(chain, player)
//	speaker.Say(ctx, "Hello there", "final.mp3")
package tts

import (
	"context"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the encoded audio data.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Provider is the name of the provider that produced the audio.
	Provider string

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request round trip in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding represents audio encoding types.
// Values follow ElevenLabs output_format naming.
type Encoding string

const (
	EncodingMP3      Encoding = "mp3_44100_128"
	EncodingMP3Small Encoding = "mp3_22050_32" // Dora's default voice output
	EncodingMP3_24   Encoding = "mp3_24000_48" // Google Translate voice
	EncodingPCM24    Encoding = "pcm_24000"
	EncodingWAV      Encoding = "wav"
)

// IsMP3 reports whether the encoding is an MP3 variant.
func (e Encoding) IsMP3() bool {
	return len(e) >= 3 && e[:3] == "mp3"
}

// VoiceSettings controls voice characteristics for providers that support it.
type VoiceSettings struct {
	// Stability controls voice consistency (0.0-1.0).
	Stability float64

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64

	// Style controls style exaggeration (0.0-1.0).
	Style float64

	// SpeakerBoost enhances speaker clarity.
	SpeakerBoost bool
}

// DoraVoiceSettings pins stability and similarity to their maximum so the
// voice sounds the same on every turn.
func DoraVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       1.0,
		SimilarityBoost: 1.0,
		Style:           0.0,
		SpeakerBoost:    true,
	}
}

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingMP3Small:
		return 22050
	case EncodingMP3_24, EncodingPCM24:
		return 24000
	case EncodingMP3:
		return 44100
	default:
		return 24000
	}
}

func since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
