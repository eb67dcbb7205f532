package transcript

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"video-scout/internal/models"
	"video-scout/shared/config"

	"github.com/lrstanley/go-ytdlp"
)

var (
	// ErrUnavailable is returned when a video has no captions in any of the
	// requested languages.
	ErrUnavailable = errors.New("no transcript available")
	// ErrFetch wraps failures running the subtitle download.
	ErrFetch = errors.New("transcript fetch failed")
)

// downloadFunc writes the subtitle files for videoURL into dir.
type downloadFunc func(ctx context.Context, videoURL, dir string, languages []string) error

// Fetcher pulls caption tracks through yt-dlp without downloading the video
// and reduces them to plain text.
type Fetcher struct {
	languages []string
	download  downloadFunc
}

func NewFetcher(cfg *config.TranscriptConfig) *Fetcher {
	return &Fetcher{
		languages: cfg.SubtitleLanguages,
		download:  ytdlpDownload,
	}
}

func ytdlpDownload(ctx context.Context, videoURL, dir string, languages []string) error {
	_, err := ytdlp.New().
		SkipDownload().
		WriteSubs().
		WriteAutoSubs().
		SubLangs(strings.Join(languages, ",")).
		SubFormat("vtt").
		Output(filepath.Join(dir, "%(id)s.%(ext)s")).
		Run(ctx, videoURL)
	return err
}

// Fetch returns the caption text of a video, preferring languages in the
// configured order.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	dir, err := os.MkdirTemp("", "video-scout-subs-*")
	if err != nil {
		return "", fmt.Errorf("%w: temp dir: %v", ErrFetch, err)
	}
	defer os.RemoveAll(dir)

	if err := f.download(ctx, models.WatchURL(videoID), dir, f.languages); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: video %s: %v", ErrFetch, videoID, err)
	}

	path, err := f.pickTrack(dir, videoID)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", ErrFetch, filepath.Base(path), err)
	}

	text := vttText(data)
	if text == "" {
		return "", fmt.Errorf("%w: video %s has empty captions", ErrUnavailable, videoID)
	}
	log.Printf("Transcript fetched for %s from %s (%d chars)", videoID, filepath.Base(path), len(text))
	return text, nil
}

func (f *Fetcher) pickTrack(dir, videoID string) (string, error) {
	for _, lang := range f.languages {
		path := filepath.Join(dir, fmt.Sprintf("%s.%s.vtt", videoID, lang))
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	// yt-dlp may tag tracks with a regional variant, e.g. en-US
	matches, err := filepath.Glob(filepath.Join(dir, videoID+".*.vtt"))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: video %s in %s", ErrUnavailable, videoID, strings.Join(f.languages, ", "))
	}
	return matches[0], nil
}
