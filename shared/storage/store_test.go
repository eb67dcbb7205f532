package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"video-scout/internal/models"
	"video-scout/shared/config"
)

func evaluatedVideo(id, evaluation string) *models.Video {
	return &models.Video{
		ID:           id,
		Title:        "Title " + id,
		Description:  "Description " + id,
		ChannelTitle: "Channel " + id,
		URL:          models.WatchURL(id),
		Evaluation:   evaluation,
	}
}

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "videos.db"), Tables{Videos: "videos", Transcripts: "transcriptions"})
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreInsertAndExists(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	exists, err := store.Exists(ctx, "a")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("empty store reports video as existing")
	}

	if err := store.Insert(ctx, evaluatedVideo("a", "good")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	exists, err = store.Exists(ctx, "a")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("inserted video not found")
	}

	row, err := store.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row == nil {
		t.Fatal("Get() returned nil row")
	}
	if row.Title != "Title a" || row.Channel != "Channel a" || row.Link != models.WatchURL("a") || row.QualitativeAnalysis != "good" {
		t.Errorf("unexpected row: %+v", row)
	}
	if row.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
	if v := row.Video(); v.ID != "a" || v.Evaluation != "good" {
		t.Errorf("Row.Video() = %+v", v)
	}
}

func TestSQLiteStoreNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	if err := store.Insert(ctx, evaluatedVideo("a", "first")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(ctx, evaluatedVideo("a", "second")); err != nil {
		t.Fatalf("second Insert() error = %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}

	row, _ := store.Get(ctx, "a")
	if row.QualitativeAnalysis != "first" {
		t.Errorf("row was overwritten: %q", row.QualitativeAnalysis)
	}
}

func TestSQLiteStoreGetMissing(t *testing.T) {
	store := newTestSQLiteStore(t)
	row, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if row != nil {
		t.Errorf("Get() = %+v, want nil", row)
	}
}

func TestSQLiteStoreTranscripts(t *testing.T) {
	ctx := context.Background()
	store := newTestSQLiteStore(t)

	exists, err := store.TranscriptExists(ctx, "a")
	if err != nil {
		t.Fatalf("TranscriptExists() error = %v", err)
	}
	if exists {
		t.Error("empty store reports transcript as existing")
	}

	text := "hello world"
	if err := store.InsertTranscript(ctx, "a", &text); err != nil {
		t.Fatalf("InsertTranscript() error = %v", err)
	}
	other := "replacement"
	if err := store.InsertTranscript(ctx, "a", &other); err != nil {
		t.Fatalf("duplicate InsertTranscript() error = %v", err)
	}
	if err := store.InsertTranscript(ctx, "b", nil); err != nil {
		t.Fatalf("InsertTranscript(nil) error = %v", err)
	}

	row, err := store.Transcript(ctx, "a")
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if row == nil || row.TranscriptText == nil || *row.TranscriptText != "hello world" {
		t.Errorf("transcript a = %+v, want the first text", row)
	}

	row, err = store.Transcript(ctx, "b")
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if row == nil {
		t.Fatal("transcript b not stored")
	}
	if row.TranscriptText != nil {
		t.Errorf("transcript b = %q, want NULL", *row.TranscriptText)
	}

	// transcripts and videos are separate tables
	if exists, _ := store.Exists(ctx, "a"); exists {
		t.Error("transcript row showed up as a video")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("SQLite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "videos.db")
		store, err := Open(ctx, &config.StoreConfig{URL: "sqlite://" + path, Key: "unused", Table: "lessons", TranscriptTable: "captions"})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer store.Close()

		sqliteStore, ok := store.(*SQLiteStore)
		if !ok {
			t.Fatalf("Open() returned %T, want *SQLiteStore", store)
		}
		if sqliteStore.tables != (Tables{Videos: "lessons", Transcripts: "captions"}) {
			t.Errorf("tables = %+v", sqliteStore.tables)
		}
	})

	t.Run("Supabase", func(t *testing.T) {
		store, err := Open(ctx, &config.StoreConfig{URL: "https://project.supabase.co/", Key: "k"})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		s, ok := store.(*SupabaseStore)
		if !ok {
			t.Fatalf("Open() returned %T, want *SupabaseStore", store)
		}
		if s.url != "https://project.supabase.co/rest/v1" {
			t.Errorf("url = %s", s.url)
		}
		if s.tables != (Tables{Videos: "videos", Transcripts: "transcriptions"}) {
			t.Errorf("tables = %+v, want defaults", s.tables)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		_, err := Open(ctx, &config.StoreConfig{URL: "ftp://example.com", Key: "k"})
		if !errors.Is(err, ErrStorage) {
			t.Errorf("Open() error = %v, want ErrStorage", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := Open(ctx, &config.StoreConfig{}); !errors.Is(err, ErrStorage) {
			t.Errorf("Open() error = %v, want ErrStorage", err)
		}
	})
}

// fakePostgREST is an in-memory stand-in for Supabase table endpoints.
type fakePostgREST struct {
	mu       sync.Mutex
	rows     map[string]map[string]map[string]any // table -> video_id -> row
	headers  []http.Header
	failWith int
}

func newFakePostgREST() *fakePostgREST {
	return &fakePostgREST{rows: make(map[string]map[string]map[string]any)}
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.headers = append(f.headers, r.Header.Clone())
	w.Header().Set("Content-Type", "application/json")

	if f.failWith != 0 {
		w.WriteHeader(f.failWith)
		io.WriteString(w, `{"code":"42501","message":"permission denied for table videos"}`)
		return
	}
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	if table != "videos" && table != "transcriptions" {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"code":"42P01","message":"relation does not exist"}`)
		return
	}
	if f.rows[table] == nil {
		f.rows[table] = make(map[string]map[string]any)
	}

	switch r.Method {
	case http.MethodGet:
		id := strings.TrimPrefix(r.URL.Query().Get("video_id"), "eq.")
		result := []map[string]any{}
		if _, ok := f.rows[table][id]; ok {
			result = append(result, map[string]any{"video_id": id})
		}
		json.NewEncoder(w).Encode(result)

	case http.MethodPost:
		var row map[string]any
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"code":"PGRST102","message":"invalid body"}`)
			return
		}
		id, _ := row["video_id"].(string)
		if _, ok := f.rows[table][id]; ok {
			w.WriteHeader(http.StatusConflict)
			io.WriteString(w, `{"code":"23505","message":"duplicate key value violates unique constraint"}`)
			return
		}
		f.rows[table][id] = row
		w.WriteHeader(http.StatusCreated)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		io.WriteString(w, `{"code":"PGRST","message":"method not allowed"}`)
	}
}

func newTestSupabaseStore(t *testing.T, fake *fakePostgREST, key string) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewSupabaseStore(srv.URL+"/", key, Tables{Videos: "videos", Transcripts: "transcriptions"})
	if err != nil {
		t.Fatalf("NewSupabaseStore() error = %v", err)
	}
	return store
}

func TestSupabaseStore(t *testing.T) {
	ctx := context.Background()
	fake := newFakePostgREST()
	store := newTestSupabaseStore(t, fake, "service-key")
	defer store.Close()

	exists, err := store.Exists(ctx, "a")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("empty table reports video as existing")
	}

	if err := store.Insert(ctx, evaluatedVideo("a", "first")); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := store.Insert(ctx, evaluatedVideo("a", "second")); err != nil {
		t.Fatalf("duplicate Insert() error = %v", err)
	}

	exists, err = store.Exists(ctx, "a")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("inserted video not found")
	}

	videos := fake.rows["videos"]
	if len(videos) != 1 {
		t.Errorf("got %d rows, want 1", len(videos))
	}
	row := videos["a"]
	if row["qualitative_analysis"] != "first" || row["link"] != models.WatchURL("a") || row["channel"] != "Channel a" {
		t.Errorf("unexpected row: %v", row)
	}
	if _, ok := row["created_at"]; ok {
		t.Error("created_at should be left to the database default")
	}

	for _, h := range fake.headers {
		if h.Get("apikey") != "service-key" || h.Get("Authorization") != "Bearer service-key" {
			t.Errorf("missing auth headers: %v", h)
		}
	}
}

func TestSupabaseStoreTranscripts(t *testing.T) {
	ctx := context.Background()
	fake := newFakePostgREST()
	store := newTestSupabaseStore(t, fake, "service-key")

	text := "hello world"
	if err := store.InsertTranscript(ctx, "a", &text); err != nil {
		t.Fatalf("InsertTranscript() error = %v", err)
	}
	if err := store.InsertTranscript(ctx, "b", nil); err != nil {
		t.Fatalf("InsertTranscript(nil) error = %v", err)
	}
	other := "replacement"
	if err := store.InsertTranscript(ctx, "a", &other); err != nil {
		t.Fatalf("duplicate InsertTranscript() error = %v", err)
	}

	exists, err := store.TranscriptExists(ctx, "b")
	if err != nil {
		t.Fatalf("TranscriptExists() error = %v", err)
	}
	if !exists {
		t.Error("NULL transcript not found")
	}

	rows := fake.rows["transcriptions"]
	if rows["a"]["transcript_text"] != "hello world" {
		t.Errorf("transcript a = %v, want the first text", rows["a"]["transcript_text"])
	}
	if v, ok := rows["b"]["transcript_text"]; !ok || v != nil {
		t.Errorf("transcript b = %v (present %v), want explicit null", v, ok)
	}
	if len(fake.rows["videos"]) != 0 {
		t.Error("transcripts leaked into the videos table")
	}
}

func TestSupabaseStoreErrors(t *testing.T) {
	ctx := context.Background()
	fake := newFakePostgREST()
	fake.failWith = http.StatusUnauthorized
	store := newTestSupabaseStore(t, fake, "bad-key")

	if _, err := store.Exists(ctx, "a"); !errors.Is(err, ErrStorage) {
		t.Errorf("Exists() error = %v, want ErrStorage", err)
	}

	err := store.Insert(ctx, evaluatedVideo("a", "x"))
	if !errors.Is(err, ErrStorage) {
		t.Errorf("Insert() error = %v, want ErrStorage", err)
	}
	if err != nil && !strings.Contains(err.Error(), "permission denied") {
		t.Errorf("error should include the response message: %v", err)
	}

	if err := store.InsertTranscript(ctx, "a", nil); !errors.Is(err, ErrStorage) {
		t.Errorf("InsertTranscript() error = %v, want ErrStorage", err)
	}
}
