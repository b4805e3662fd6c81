// Package capture records a single spoken utterance from a microphone.
//
// A Recorder calibrates an energy threshold against ambient noise, waits
// for speech, and stops at the first long-enough pause or at the phrase
// time limit. A Listener adds transcription on top and reduces every
// recoverable failure to an empty result.
package capture

import (
	"fmt"
	"time"
)

// Config controls endpointing. Durations are measured in captured audio,
// not wall-clock time.
type Config struct {
	// EnergyThreshold is the starting RMS level (raw PCM16 units) above
	// which a chunk counts as speech.
	EnergyThreshold float64 `yaml:"energy_threshold" json:"energy_threshold"`

	// DynamicThreshold keeps adapting the threshold to background noise
	// while waiting for speech.
	DynamicThreshold bool `yaml:"dynamic_threshold" json:"dynamic_threshold"`

	// DynamicDamping is the per-second decay of the old threshold.
	DynamicDamping float64 `yaml:"dynamic_damping" json:"dynamic_damping"`

	// DynamicRatio scales ambient energy into a speech threshold.
	DynamicRatio float64 `yaml:"dynamic_ratio" json:"dynamic_ratio"`

	// CalibrationDuration is how long ambient noise is sampled before
	// listening. Zero skips calibration.
	CalibrationDuration time.Duration `yaml:"calibration_duration" json:"calibration_duration"`

	// PauseThreshold is the silence that ends a phrase.
	PauseThreshold time.Duration `yaml:"pause_threshold" json:"pause_threshold"`

	// NonSpeakingDuration is the quiet audio kept on both sides of a phrase.
	NonSpeakingDuration time.Duration `yaml:"non_speaking_duration" json:"non_speaking_duration"`

	// Timeout bounds the wait for speech to start.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// PhraseTimeLimit bounds the phrase once speech has started.
	PhraseTimeLimit time.Duration `yaml:"phrase_time_limit" json:"phrase_time_limit"`

	// SampleRate of the saved utterance. Captured audio is resampled.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// OutputPath is where Listener writes each utterance before
	// transcription. It is overwritten every turn.
	OutputPath string `yaml:"output_path" json:"output_path"`
}

// DefaultConfig returns Dora's listening parameters.
func DefaultConfig() Config {
	return Config{
		EnergyThreshold:     500,
		DynamicThreshold:    true,
		DynamicDamping:      0.15,
		DynamicRatio:        1.5,
		CalibrationDuration: 1500 * time.Millisecond,
		PauseThreshold:      800 * time.Millisecond,
		NonSpeakingDuration: 500 * time.Millisecond,
		Timeout:             8 * time.Second,
		PhraseTimeLimit:     10 * time.Second,
		SampleRate:          16000,
		OutputPath:          "audio_question.wav",
	}
}

// Validate returns the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.EnergyThreshold < 0:
		return fmt.Errorf("energy_threshold must not be negative, got %v", c.EnergyThreshold)
	// Calibration uses damping and ratio even when the threshold is static.
	case c.DynamicDamping <= 0 || c.DynamicDamping >= 1:
		return fmt.Errorf("dynamic_damping must be in (0, 1), got %v", c.DynamicDamping)
	case c.DynamicRatio <= 0:
		return fmt.Errorf("dynamic_ratio must be positive, got %v", c.DynamicRatio)
	case c.PauseThreshold <= 0:
		return fmt.Errorf("pause_threshold must be positive, got %v", c.PauseThreshold)
	case c.NonSpeakingDuration < 0 || c.NonSpeakingDuration > c.PauseThreshold:
		return fmt.Errorf("non_speaking_duration must be between 0 and pause_threshold, got %v", c.NonSpeakingDuration)
	case c.Timeout < 0 || c.PhraseTimeLimit < 0:
		return fmt.Errorf("timeouts must not be negative")
	case c.SampleRate <= 0:
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	return nil
}
