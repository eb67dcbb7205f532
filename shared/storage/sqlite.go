package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"video-scout/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteStore keeps both tables in a local SQLite file.
type SQLiteStore struct {
	gdb    *gorm.DB
	db     *sql.DB
	tables Tables
}

func NewSQLiteStore(dbPath string, tables Tables) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating db dir: %v", ErrStorage, err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening sqlite db: %v", ErrStorage, err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: getting sql.DB from gorm: %v", ErrStorage, err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.Table(tables.Videos).AutoMigrate(&Row{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: auto migrate %s: %v", ErrStorage, tables.Videos, err)
	}
	if err := gdb.Table(tables.Transcripts).AutoMigrate(&TranscriptRow{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("%w: auto migrate %s: %v", ErrStorage, tables.Transcripts, err)
	}

	return &SQLiteStore{gdb: gdb, db: sqlDB, tables: tables}, nil
}

func (s *SQLiteStore) exists(ctx context.Context, table, videoID string) (bool, error) {
	var count int64
	err := s.gdb.WithContext(ctx).Table(table).Where("video_id = ?", videoID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: lookup of video %s in %s: %v", ErrStorage, videoID, table, err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) Exists(ctx context.Context, videoID string) (bool, error) {
	return s.exists(ctx, s.tables.Videos, videoID)
}

func (s *SQLiteStore) Insert(ctx context.Context, video *models.Video) error {
	row := rowFromVideo(video)
	err := s.gdb.WithContext(ctx).Table(s.tables.Videos).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: insert of video %s: %v", ErrStorage, video.ID, err)
	}
	return nil
}

func (s *SQLiteStore) TranscriptExists(ctx context.Context, videoID string) (bool, error) {
	return s.exists(ctx, s.tables.Transcripts, videoID)
}

func (s *SQLiteStore) InsertTranscript(ctx context.Context, videoID string, text *string) error {
	row := TranscriptRow{VideoID: videoID, TranscriptText: text}
	err := s.gdb.WithContext(ctx).Table(s.tables.Transcripts).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("%w: insert of transcript %s: %v", ErrStorage, videoID, err)
	}
	return nil
}

// Get returns the stored row for a video, or nil when there is none.
func (s *SQLiteStore) Get(ctx context.Context, videoID string) (*Row, error) {
	var row Row
	err := s.gdb.WithContext(ctx).Table(s.tables.Videos).Where("video_id = ?", videoID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get video %s: %v", ErrStorage, videoID, err)
	}
	return &row, nil
}

// Transcript returns the stored transcript row, or nil when there is none.
func (s *SQLiteStore) Transcript(ctx context.Context, videoID string) (*TranscriptRow, error) {
	var row TranscriptRow
	err := s.gdb.WithContext(ctx).Table(s.tables.Transcripts).Where("video_id = ?", videoID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get transcript %s: %v", ErrStorage, videoID, err)
	}
	return &row, nil
}

// Count returns the number of stored videos.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.gdb.WithContext(ctx).Table(s.tables.Videos).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStorage, err)
	}
	return count, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
