package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Row outcomes tallied by the update pass.
const (
	outcomeUpdated   = "updated"
	outcomeUnchanged = "unchanged"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

// updater applies Set Date values from a report CSV back into photo EXIF
// metadata. setDate is injectable for tests.
type updater struct {
	cfg     config
	setDate func(path, target string) (bool, error)
}

func newUpdater(cfg config) *updater {
	return &updater{cfg: cfg, setDate: setExifDate}
}

func (u *updater) run(csvPath string) error {
	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("opening CSV file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(skipUTF8BOM(f))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("reading CSV header: %w", err)
	}
	folderIdx := headerIndex(header, "Folder")
	nameIdx := headerIndex(header, "Filename")
	dateIdx := headerIndex(header, "Set Date")
	if folderIdx < 0 || nameIdx < 0 || dateIdx < 0 {
		return fmt.Errorf("CSV must include Folder, Filename and Set Date columns")
	}

	counts := map[string]int{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn().Err(err).Msg("skipping malformed CSV record")
			continue
		}
		if folderIdx >= len(record) || nameIdx >= len(record) || dateIdx >= len(record) {
			log.Warn().Strs("record", record).Msg("skipping short CSV record")
			continue
		}

		outcome := u.processRow(record[folderIdx], record[nameIdx], record[dateIdx])
		counts[outcome]++
	}

	log.Info().
		Str("csv", csvPath).
		Int(outcomeUpdated, counts[outcomeUpdated]).
		Int(outcomeUnchanged, counts[outcomeUnchanged]).
		Int(outcomeSkipped, counts[outcomeSkipped]).
		Int(outcomeFailed, counts[outcomeFailed]).
		Msg("CSV file processed")
	return nil
}

// processRow applies one CSV row. Every failure is contained to the row; the
// rest of the file keeps processing.
func (u *updater) processRow(folder, filename, setDate string) string {
	// Rows the operator cleared are not worth a log line.
	if strings.TrimSpace(setDate) == "" {
		return outcomeSkipped
	}

	path := filepath.Join(folder, filename)
	logger := log.With().Str("path", path).Logger()

	if _, err := os.Stat(path); err != nil {
		logger.Warn().Msg("file not found")
		return outcomeSkipped
	}

	ext := fileExt(filename)
	if ext == "heic" || ext == "heif" {
		logger.Warn().Msg("skipping HEIC file")
		return outcomeSkipped
	}
	if !writableExtensions[ext] {
		logger.Warn().Str("extension", ext).Msg("skipping unsupported file format")
		return outcomeSkipped
	}

	t, ok := parseUpdateDate(setDate)
	if !ok {
		logger.Warn().Str("set_date", setDate).Msg("invalid date format in CSV")
		return outcomeSkipped
	}
	target := t.Format(exifDateLayout)

	wrote, err := u.setDate(path, target)
	if err != nil {
		logger.Error().Err(err).Msg("error updating EXIF data")
		return outcomeFailed
	}
	if !wrote {
		return outcomeUnchanged
	}
	logger.Info().Str("set_date", target).Msg("updated EXIF DateTimeOriginal")
	return outcomeUpdated
}

// headerIndex finds a column by name, ignoring case and padding.
func headerIndex(header []string, name string) int {
	for i, value := range header {
		if strings.EqualFold(strings.TrimSpace(value), name) {
			return i
		}
	}
	return -1
}

// skipUTF8BOM strips a leading byte order mark. Spreadsheet tools commonly
// re-save report CSVs with one.
func skipUTF8BOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	bom, err := br.Peek(3)
	if err == nil && bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	return br
}
