package stt

import "context"

// Provider converts recorded voice-search audio into a text query.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
