package transcript

import (
	"context"
	"errors"
	"log"

	"video-scout/shared/config"
)

// Transcriber fetches a video's captions and keeps them only when they are
// in an allowed language.
type Transcriber struct {
	fetcher *Fetcher
	filter  *LanguageFilter
}

func NewTranscriber(cfg *config.TranscriptConfig) *Transcriber {
	return &Transcriber{
		fetcher: NewFetcher(cfg),
		filter:  NewLanguageFilter(cfg.KeepLanguages),
	}
}

// Transcript returns the text to store for a video. A nil text with a nil
// error means the video has no captions or they are in a language that is
// not kept.
func (t *Transcriber) Transcript(ctx context.Context, videoID string) (*string, error) {
	text, err := t.fetcher.Fetch(ctx, videoID)
	if errors.Is(err, ErrUnavailable) {
		log.Printf("No transcript for %s: %v", videoID, err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if !t.filter.Keep(text) {
		log.Printf("Transcript for %s is in %q, not kept", videoID, t.filter.Detect(text))
		return nil, nil
	}
	return &text, nil
}
