package videoscout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"video-scout/agents/video-scout/transcript"
	"video-scout/agents/video-scout/youtube"
	"video-scout/internal/models"
	"video-scout/shared/ai"
	"video-scout/shared/config"
	"video-scout/shared/export"
	"video-scout/shared/scheduler"
	"video-scout/shared/storage"
)

// Searcher finds candidate videos for a query.
type Searcher interface {
	Search(ctx context.Context, query string, daysBack int, maxResults int64) ([]*models.Video, error)
}

// Transcriber returns the caption text to keep for a video. A nil text means
// there is nothing worth keeping and is stored as NULL.
type Transcriber interface {
	Transcript(ctx context.Context, videoID string) (*string, error)
}

// Evaluator produces a free-text teaching assessment for one video.
type Evaluator interface {
	Evaluate(ctx context.Context, video *models.Video) (string, error)
}

// Exporter appends evaluated videos to a file and returns its path.
type Exporter interface {
	Append(videos []*models.Video) (string, error)
}

// Store is the table store, keyed by video ID.
type Store interface {
	Exists(ctx context.Context, videoID string) (bool, error)
	Insert(ctx context.Context, video *models.Video) error
	TranscriptExists(ctx context.Context, videoID string) (bool, error)
	InsertTranscript(ctx context.Context, videoID string, text *string) error
	Close() error
}

// ScoutMetrics is what one run did.
type ScoutMetrics struct {
	VideosFound        int    `json:"videos_found"`
	Transcribed        int    `json:"transcribed"`
	TranscriptsNull    int    `json:"transcripts_null"`
	TranscriptErrors   int    `json:"transcript_errors"`
	AlreadyTranscribed int    `json:"already_transcribed"`
	Evaluated          int    `json:"evaluated"`
	EvaluationErrors   int    `json:"evaluation_errors"`
	Exported           int    `json:"exported"`
	ExportFile         string `json:"export_file"`
	Inserted           int    `json:"inserted"`
	AlreadyStored      int    `json:"already_stored"`
}

// GetSummary implements the scheduler.Metrics interface
func (m ScoutMetrics) GetSummary() string {
	return fmt.Sprintf("found %d videos, evaluated %d, exported %d, stored %d new (%d already stored)",
		m.VideosFound, m.Evaluated, m.Exported, m.Inserted, m.AlreadyStored)
}

// VideoScoutAgent implements the scheduler.Agent interface
type VideoScoutAgent struct {
	config    *config.Config
	searcher    Searcher
	transcriber Transcriber
	evaluator   Evaluator
	exporter    Exporter
	store       Store
}

func NewVideoScoutAgent(cfg *config.Config) *VideoScoutAgent {
	return &VideoScoutAgent{
		config: cfg,
	}
}

func (v *VideoScoutAgent) Name() string {
	return "Video Scout"
}

// Initialize builds the real search, evaluation, export and store
// components for any that were not supplied.
func (v *VideoScoutAgent) Initialize() error {
	log.Printf("Initializing %s...", v.Name())
	ctx := context.Background()

	if v.searcher == nil {
		client, err := youtube.NewClient(ctx, &v.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		v.searcher = client
		log.Println("YouTube client initialized")
	}

	if v.transcriber == nil && v.config.Transcript.Enabled {
		v.transcriber = transcript.NewTranscriber(&v.config.Transcript)
		log.Printf("Transcriber initialized (captions %v, keeping %v)",
			v.config.Transcript.SubtitleLanguages, v.config.Transcript.KeepLanguages)
	}

	if v.evaluator == nil {
		analyzer, err := ai.NewAnalyzer(ctx, &v.config.AI)
		if err != nil {
			return fmt.Errorf("failed to create AI analyzer: %w", err)
		}
		v.evaluator = analyzer
		log.Printf("AI analyzer initialized (%s, %s)", v.config.AI.Provider, v.config.AI.Model)
	}

	if v.exporter == nil {
		v.exporter = export.NewSpreadsheet(&v.config.Export)
		log.Printf("Spreadsheet exporter initialized (%s)", v.config.Export.File)
	}

	if v.store == nil {
		store, err := storage.Open(ctx, &v.config.Store)
		if err != nil {
			return fmt.Errorf("failed to open table store: %w", err)
		}
		v.store = store
		log.Printf("Table store initialized (table %s)", v.config.Store.Table)
	}

	return nil
}

func (v *VideoScoutAgent) Close() error {
	if v.store == nil {
		return nil
	}
	return v.store.Close()
}

func (v *VideoScoutAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := time.Now()
	var metrics ScoutMetrics

	yt := v.config.YouTube
	videos, err := v.searcher.Search(ctx, yt.Query, yt.DaysBack, yt.MaxResults)
	if err != nil {
		return fmt.Errorf("failed to search videos: %w", err)
	}
	metrics.VideosFound = len(videos)

	if len(videos) == 0 {
		log.Println("No videos found")
		events.OnSuccess(metrics, time.Since(startTime))
		return nil
	}

	if v.transcriber != nil {
		if err := v.transcribeAll(ctx, videos, &metrics); err != nil {
			return err
		}
	}

	evaluated, err := v.evaluateAll(ctx, videos, &metrics)
	if err != nil {
		return err
	}

	if metrics.EvaluationErrors > 0 {
		events.OnPartialFailure(
			fmt.Errorf("%d of %d evaluations failed, those videos were skipped", metrics.EvaluationErrors, len(videos)),
			time.Since(startTime),
		)
	}

	if len(evaluated) == 0 {
		log.Println("No evaluated videos to persist")
		events.OnSuccess(metrics, time.Since(startTime))
		return nil
	}

	path, err := v.exporter.Append(evaluated)
	if err != nil {
		return fmt.Errorf("failed to export videos: %w", err)
	}
	metrics.Exported = len(evaluated)
	metrics.ExportFile = path

	if err := v.storeAll(ctx, evaluated, &metrics); err != nil {
		return err
	}

	duration := time.Since(startTime)
	events.OnSuccess(metrics, duration)

	if v.transcriber != nil {
		log.Printf("Transcripts: %d stored, %d stored as NULL, %d failed, %d already present",
			metrics.Transcribed, metrics.TranscriptsNull, metrics.TranscriptErrors, metrics.AlreadyTranscribed)
	}
	log.Printf("Session complete: %d found, %d evaluated, %d exported to %s, %d stored, %d already stored",
		metrics.VideosFound, metrics.Evaluated, metrics.Exported, metrics.ExportFile, metrics.Inserted, metrics.AlreadyStored)

	return nil
}

// transcribeAll stores a transcript row for every video that has none yet.
// A failed fetch is logged and retried on the next run; nothing is stored for
// it.
func (v *VideoScoutAgent) transcribeAll(ctx context.Context, videos []*models.Video, metrics *ScoutMetrics) error {
	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return err
		}

		exists, err := v.store.TranscriptExists(ctx, video.ID)
		if err != nil {
			return fmt.Errorf("failed to check transcript %s: %w", video.ID, err)
		}
		if exists {
			log.Printf("Video '%s' already has a transcript row, skipping", video.Title)
			metrics.AlreadyTranscribed++
			continue
		}

		text, err := v.transcriber.Transcript(ctx, video.ID)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			log.Printf("Warning: Failed to fetch transcript for %s (%s): %v", video.ID, video.Title, err)
			metrics.TranscriptErrors++
			continue
		}

		if err := v.store.InsertTranscript(ctx, video.ID, text); err != nil {
			return fmt.Errorf("failed to store transcript %s: %w", video.ID, err)
		}
		if text == nil {
			metrics.TranscriptsNull++
		} else {
			metrics.Transcribed++
		}
	}
	return nil
}

// evaluateAll evaluates each video in order. A failed evaluation skips the
// video; the run is aborted once more than half of the videos have failed.
func (v *VideoScoutAgent) evaluateAll(ctx context.Context, videos []*models.Video, metrics *ScoutMetrics) ([]*models.Video, error) {
	evaluated := make([]*models.Video, 0, len(videos))

	for i, video := range videos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		log.Printf("Evaluating video %d/%d: %s - %s", i+1, len(videos), video.ID, video.Title)

		evaluation, err := v.evaluator.Evaluate(ctx, video)
		if err == nil && evaluation == "" {
			err = fmt.Errorf("%w: empty evaluation for video %s", ai.ErrEvaluation, video.ID)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Printf("Warning: Failed to evaluate video %s (%s): %v", video.ID, video.Title, err)
			metrics.EvaluationErrors++
			if metrics.EvaluationErrors > len(videos)/2 {
				return nil, fmt.Errorf("too many evaluation failures (%d/%d), stopping: %w", metrics.EvaluationErrors, i+1, err)
			}
			continue
		}

		video.Evaluation = evaluation
		evaluated = append(evaluated, video)
		metrics.Evaluated++
	}

	return evaluated, nil
}

// storeAll inserts every video whose ID is not in the store yet. Rows that
// already exist are left untouched.
func (v *VideoScoutAgent) storeAll(ctx context.Context, videos []*models.Video, metrics *ScoutMetrics) error {
	for _, video := range videos {
		exists, err := v.store.Exists(ctx, video.ID)
		if err != nil {
			return fmt.Errorf("failed to check video %s: %w", video.ID, err)
		}
		if exists {
			log.Printf("Video '%s' is already stored, skipping", video.Title)
			metrics.AlreadyStored++
			continue
		}

		if err := v.store.Insert(ctx, video); err != nil {
			return fmt.Errorf("failed to store video %s: %w", video.ID, err)
		}
		log.Printf("Video '%s' stored", video.Title)
		metrics.Inserted++
	}
	return nil
}
