package export

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-scout/internal/models"
	"video-scout/shared/config"

	"github.com/xuri/excelize/v2"
)

// ErrExport wraps failures writing the spreadsheet.
var ErrExport = errors.New("spreadsheet export failed")

// maxCellChars is the xlsx limit on characters in a single cell.
const maxCellChars = 32767

var header = []interface{}{"Title", "Description", "Channel", "Link", "Evaluation"}

// Spreadsheet appends evaluated videos to an .xlsx workbook, one row per
// video. Rows from earlier runs are kept.
type Spreadsheet struct {
	file  string
	sheet string
	now   func() time.Time
}

func NewSpreadsheet(cfg *config.ExportConfig) *Spreadsheet {
	return &Spreadsheet{
		file:  cfg.File,
		sheet: cfg.Sheet,
		now:   time.Now,
	}
}

// Append writes the videos after the last used row and returns the path
// actually written. When the configured file is in use, a timestamped
// sibling file is written instead.
func (s *Spreadsheet) Append(videos []*models.Video) (string, error) {
	path := s.file
	if fileInUse(path) {
		path = s.timestampedName()
		log.Printf("File %s is in use, saving as a new file: %s", s.file, path)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("%w: unable to create directory %s: %v", ErrExport, dir, err)
		}
	}

	f, err := s.openWorkbook(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return "", fmt.Errorf("%w: reading sheet %s: %v", ErrExport, s.sheet, err)
	}

	next := len(rows) + 1
	if len(rows) == 0 {
		if err := s.writeHeader(f); err != nil {
			return "", err
		}
		next = 2
	}

	for _, video := range videos {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrExport, err)
		}

		row := []interface{}{
			clip(video.Title),
			clip(video.Description),
			clip(video.ChannelTitle),
			clip(video.URL),
			clip(video.Evaluation),
		}
		if err := f.SetSheetRow(s.sheet, cell, &row); err != nil {
			return "", fmt.Errorf("%w: writing row for video %s: %v", ErrExport, video.ID, err)
		}
		next++
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("%w: saving %s: %v", ErrExport, path, err)
	}

	log.Printf("Data saved in the file: %s (%d rows appended)", path, len(videos))

	return path, nil
}

func (s *Spreadsheet) openWorkbook(path string) (*excelize.File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f := excelize.NewFile()
		if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: naming sheet %s: %v", ErrExport, s.sheet, err)
		}
		return f, nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrExport, path, err)
	}

	idx, err := f.GetSheetIndex(s.sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrExport, err)
	}
	if idx == -1 {
		if _, err := f.NewSheet(s.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("%w: creating sheet %s: %v", ErrExport, s.sheet, err)
		}
	}

	return f, nil
}

var columnWidths = []struct {
	first, last string
	width       float64
}{
	{"A", "C", 30},
	{"D", "D", 45},
	{"E", "E", 80},
}

func (s *Spreadsheet) writeHeader(f *excelize.File) error {
	row := header
	if err := f.SetSheetRow(s.sheet, "A1", &row); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrExport, err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("%w: header style: %v", ErrExport, err)
	}
	if err := f.SetRowStyle(s.sheet, 1, 1, style); err != nil {
		return fmt.Errorf("%w: styling header: %v", ErrExport, err)
	}
	for _, w := range columnWidths {
		if err := f.SetColWidth(s.sheet, w.first, w.last, w.width); err != nil {
			return fmt.Errorf("%w: width of columns %s-%s: %v", ErrExport, w.first, w.last, err)
		}
	}

	return nil
}

func (s *Spreadsheet) timestampedName() string {
	ext := filepath.Ext(s.file)
	base := strings.TrimSuffix(s.file, ext)
	if ext == "" {
		ext = ".xlsx"
	}
	return fmt.Sprintf("%s_%s%s", base, s.now().Format("20060102_150405"), ext)
}

// fileInUse reports whether path exists but cannot be opened for writing.
func fileInUse(path string) bool {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return true
	}
	f.Close()
	return false
}

func clip(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCellChars {
		return s
	}
	return string(runes[:maxCellChars])
}
