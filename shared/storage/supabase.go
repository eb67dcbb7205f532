package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"video-scout/internal/models"

	"github.com/supabase-community/postgrest-go"
)

// uniqueViolation is the Postgres error code PostgREST reports when an
// insert hits an existing primary key.
const uniqueViolation = "23505"

// SupabaseStore talks to a Supabase project through its PostgREST API.
type SupabaseStore struct {
	client *postgrest.Client
	url    string
	tables Tables
}

func NewSupabaseStore(baseURL, key string, tables Tables) (*SupabaseStore, error) {
	restURL := strings.TrimRight(baseURL, "/") + "/rest/v1"
	client := postgrest.NewClient(restURL, "public", map[string]string{
		"apikey":        key,
		"Authorization": "Bearer " + key,
	})
	if client.ClientError != nil {
		return nil, fmt.Errorf("%w: supabase client: %v", ErrStorage, client.ClientError)
	}
	return &SupabaseStore{client: client, url: restURL, tables: tables}, nil
}

func (s *SupabaseStore) exists(ctx context.Context, table, videoID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	data, _, err := s.client.From(table).
		Select("video_id", "", false).
		Eq("video_id", videoID).
		Limit(1, "").
		Execute()
	if err != nil {
		return false, fmt.Errorf("%w: lookup of video %s in %s: %v", ErrStorage, videoID, table, err)
	}

	var rows []struct {
		VideoID string `json:"video_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return false, fmt.Errorf("%w: decoding lookup of video %s: %v", ErrStorage, videoID, err)
	}
	return len(rows) > 0, nil
}

// insert adds one row. A primary key conflict leaves the existing row as it
// is and is not an error.
func (s *SupabaseStore) insert(ctx context.Context, table string, row any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := s.client.From(table).Insert(row, false, "", "minimal", "").Execute()
	if err != nil && !strings.Contains(err.Error(), uniqueViolation) {
		return err
	}
	return nil
}

func (s *SupabaseStore) Exists(ctx context.Context, videoID string) (bool, error) {
	return s.exists(ctx, s.tables.Videos, videoID)
}

func (s *SupabaseStore) Insert(ctx context.Context, video *models.Video) error {
	if err := s.insert(ctx, s.tables.Videos, rowFromVideo(video)); err != nil {
		return fmt.Errorf("%w: insert of video %s: %v", ErrStorage, video.ID, err)
	}
	return nil
}

func (s *SupabaseStore) TranscriptExists(ctx context.Context, videoID string) (bool, error) {
	return s.exists(ctx, s.tables.Transcripts, videoID)
}

func (s *SupabaseStore) InsertTranscript(ctx context.Context, videoID string, text *string) error {
	row := TranscriptRow{VideoID: videoID, TranscriptText: text}
	if err := s.insert(ctx, s.tables.Transcripts, row); err != nil {
		return fmt.Errorf("%w: insert of transcript %s: %v", ErrStorage, videoID, err)
	}
	return nil
}

// Close is a no-op; the PostgREST client holds no open connections.
func (s *SupabaseStore) Close() error {
	return nil
}
