package storage

import (
	"context"
	"fmt"

	"video-scout/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createVideosSQL = `CREATE TABLE IF NOT EXISTS %s (
	video_id             TEXT PRIMARY KEY,
	title                TEXT NOT NULL,
	description          TEXT NOT NULL DEFAULT '',
	channel              TEXT NOT NULL DEFAULT '',
	link                 TEXT NOT NULL DEFAULT '',
	qualitative_analysis TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const createTranscriptsSQL = `CREATE TABLE IF NOT EXISTS %s (
	video_id        TEXT PRIMARY KEY,
	transcript_text TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore writes rows straight into Postgres tables.
type PostgresStore struct {
	pool        *pgxpool.Pool
	videos      string
	transcripts string
}

func NewPostgresStore(ctx context.Context, databaseURL string, tables Tables) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse store URL: %v", ErrStorage, err)
	}
	// one operator, one sequential writer
	config.MaxConns = 2
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: create pgx pool: %v", ErrStorage, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", ErrStorage, err)
	}

	s := &PostgresStore{
		pool:        pool,
		videos:      pgx.Identifier{tables.Videos}.Sanitize(),
		transcripts: pgx.Identifier{tables.Transcripts}.Sanitize(),
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf(createVideosSQL, s.videos)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: create table %s: %v", ErrStorage, tables.Videos, err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf(createTranscriptsSQL, s.transcripts)); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: create table %s: %v", ErrStorage, tables.Transcripts, err)
	}

	return s, nil
}

func (s *PostgresStore) exists(ctx context.Context, table, videoID string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE video_id = $1)`, table)
	if err := s.pool.QueryRow(ctx, query, videoID).Scan(&exists); err != nil {
		return false, fmt.Errorf("%w: lookup of video %s in %s: %v", ErrStorage, videoID, table, err)
	}
	return exists, nil
}

func (s *PostgresStore) Exists(ctx context.Context, videoID string) (bool, error) {
	return s.exists(ctx, s.videos, videoID)
}

func (s *PostgresStore) Insert(ctx context.Context, video *models.Video) error {
	row := rowFromVideo(video)
	query := fmt.Sprintf(`INSERT INTO %s (video_id, title, description, channel, link, qualitative_analysis)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (video_id) DO NOTHING`, s.videos)

	if _, err := s.pool.Exec(ctx, query,
		row.VideoID, row.Title, row.Description, row.Channel, row.Link, row.QualitativeAnalysis,
	); err != nil {
		return fmt.Errorf("%w: insert of video %s: %v", ErrStorage, video.ID, err)
	}
	return nil
}

func (s *PostgresStore) TranscriptExists(ctx context.Context, videoID string) (bool, error) {
	return s.exists(ctx, s.transcripts, videoID)
}

func (s *PostgresStore) InsertTranscript(ctx context.Context, videoID string, text *string) error {
	query := fmt.Sprintf(`INSERT INTO %s (video_id, transcript_text)
		VALUES ($1, $2)
		ON CONFLICT (video_id) DO NOTHING`, s.transcripts)

	if _, err := s.pool.Exec(ctx, query, videoID, text); err != nil {
		return fmt.Errorf("%w: insert of transcript %s: %v", ErrStorage, videoID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
