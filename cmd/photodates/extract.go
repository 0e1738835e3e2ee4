package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/djherbis/times"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// collectExtensions are the file types included in the report.
var collectExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"heic": true,
	"heif": true,
	"tif":  true,
	"tiff": true,
	"webp": true,
}

// statTimesFunc reads a file's modified and created timestamps. Created time
// is best-effort: platform birth time when available, change time otherwise.
type statTimesFunc func(path string) (modified, created time.Time, err error)

// fileTimes is the default statTimesFunc.
func fileTimes(path string) (time.Time, time.Time, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	modified := ts.ModTime()
	created := modified
	if ts.HasBirthTime() {
		created = ts.BirthTime()
	} else if ts.HasChangeTime() {
		created = ts.ChangeTime()
	}
	return modified.Truncate(time.Second), created.Truncate(time.Second), nil
}

// extractor walks a photo tree and builds one MetadataRow per photo. The
// filesystem and EXIF collaborators are injectable so the collection pass can
// be tested without real image files.
type extractor struct {
	cfg       config
	dir       string
	statTimes statTimesFunc
	exifTags  exifTagsFunc
	closeRead func()
}

func newExtractor(cfg config, dir string) *extractor {
	read, closeRead := newExifTagReader(cfg.ExiftoolFallback)
	return &extractor{
		cfg:       cfg,
		dir:       dir,
		statTimes: fileTimes,
		exifTags:  read,
		closeRead: closeRead,
	}
}

func (e *extractor) close() {
	if e.closeRead != nil {
		e.closeRead()
	}
}

func (e *extractor) run() error {
	rows, err := e.collectRows()
	if err != nil {
		return fmt.Errorf("collecting metadata: %w", err)
	}

	if err := writeReport(e.cfg.Output, rows); err != nil {
		return err
	}

	var missing int
	for _, row := range rows {
		if row.SetDate.IsZero() {
			missing++
		}
	}
	log.Info().
		Int("rows", len(rows)).
		Int("without_set_date", missing).
		Str("output", e.cfg.Output).
		Msg("Metadata extraction complete")
	return nil
}

// collectRows recursively walks the source directory. Per-file failures are
// logged and degrade to absent candidates; only a failure to walk the tree
// itself is fatal.
func (e *extractor) collectRows() ([]MetadataRow, error) {
	var rows []MetadataRow

	err := filepath.Walk(e.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path %q: %w", path, err)
		}

		// Skip .Spotlight-V100 and .fseventsd folders
		if info.IsDir() && (info.Name() == ".Spotlight-V100" || info.Name() == ".fseventsd") {
			return filepath.SkipDir
		}
		if info.IsDir() {
			return nil
		}
		if !collectExtensions[fileExt(path)] {
			return nil
		}

		rows = append(rows, e.collectRow(path, info.Name()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// collectRow gathers the six date candidates for one file and reconciles its
// Set Date. Every candidate is individually best-effort.
func (e *extractor) collectRow(path, name string) MetadataRow {
	logger := log.With().Str("path", path).Logger()

	row := MetadataRow{
		Filename:  name,
		Extension: "." + fileExt(name),
		Folder:    filepath.Dir(path),
	}

	modified, created, err := e.statTimes(path)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read file timestamps")
	} else {
		row.Dates.FileModified = saneOrZero(modified)
		row.Dates.FileCreated = saneOrZero(created)
	}

	if t, ok := parseFilenameDate(name); ok {
		row.Dates.FromFilename = saneOrZero(t)
	}

	tags, err := e.exifTags(path)
	if err != nil {
		logger.Warn().Err(err).Msg("could not read EXIF data")
	}
	row.Dates.ExifDateTime = parseExifCandidate(tags, "DateTime", logger)
	row.Dates.ExifOriginal = parseExifCandidate(tags, "DateTimeOriginal", logger)
	row.Dates.ExifDigitized = parseExifCandidate(tags, "DateTimeDigitized", logger)

	row.SetDate = reconcileSetDate(row.Dates)
	return row
}

func parseExifCandidate(tags map[string]string, name string, logger zerolog.Logger) time.Time {
	raw, ok := tags[name]
	if !ok {
		return time.Time{}
	}
	t, ok := parseExifDate(raw)
	if !ok {
		logger.Debug().Str("tag", name).Str("value", raw).Msg("unparseable EXIF date")
		return time.Time{}
	}
	return saneOrZero(t)
}
