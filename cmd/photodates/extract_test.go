package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestFile creates a throwaway file so the directory walk can see it.
func writeTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really an image"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestExtractor(dir string, statTimes statTimesFunc, exifTags exifTagsFunc) *extractor {
	return &extractor{
		cfg:       config{Output: filepath.Join(dir, "report.csv")},
		dir:       dir,
		statTimes: statTimes,
		exifTags:  exifTags,
		closeRead: func() {},
	}
}

// TestCollectRows tests the collectRows function with injected collaborators
func TestCollectRows(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "20150329_183026659_iOS.jpg")
	writeTestFile(t, dir, "notes.txt")
	sub := filepath.Join(dir, "2016")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, sub, "holiday.png")

	modified := time.Date(2015, 3, 29, 19, 46, 0, 0, time.Local)
	statTimes := func(path string) (time.Time, time.Time, error) {
		return modified, modified, nil
	}
	exifTags := func(path string) (map[string]string, error) {
		if filepath.Base(path) == "20150329_183026659_iOS.jpg" {
			return map[string]string{"DateTimeOriginal": "2015:03:29 09:10:00"}, nil
		}
		return map[string]string{}, nil
	}

	ex := newTestExtractor(dir, statTimes, exifTags)
	rows, err := ex.collectRows()
	if err != nil {
		t.Fatalf("collectRows failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (txt file skipped), got %d", len(rows))
	}

	byName := map[string]MetadataRow{}
	for _, row := range rows {
		byName[row.Filename] = row
	}

	fixture, ok := byName["20150329_183026659_iOS.jpg"]
	if !ok {
		t.Fatal("missing row for fixture file")
	}
	wantSet := time.Date(2015, 3, 29, 9, 10, 0, 0, time.Local)
	if !fixture.SetDate.Equal(wantSet) {
		t.Errorf("fixture Set Date = %v, want %v", fixture.SetDate, wantSet)
	}
	if fixture.Extension != ".jpg" {
		t.Errorf("fixture extension = %q, want .jpg", fixture.Extension)
	}

	holiday, ok := byName["holiday.png"]
	if !ok {
		t.Fatal("missing row for subdirectory file")
	}
	if holiday.Folder != sub {
		t.Errorf("holiday folder = %q, want %q", holiday.Folder, sub)
	}
	if !holiday.SetDate.Equal(modified) {
		t.Errorf("holiday Set Date = %v, want modified time %v", holiday.SetDate, modified)
	}
}

// TestCollectRowFailuresDegrade verifies per-file failures become absent
// candidates instead of aborting collection.
func TestCollectRowFailuresDegrade(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "IMG_0001.jpg")

	statTimes := func(string) (time.Time, time.Time, error) {
		return time.Time{}, time.Time{}, errors.New("stat exploded")
	}
	exifTags := func(string) (map[string]string, error) {
		return nil, errors.New("EXIF exploded")
	}

	ex := newTestExtractor(dir, statTimes, exifTags)
	row := ex.collectRow(path, "IMG_0001.jpg")

	for i, c := range row.Dates.all() {
		if !c.IsZero() {
			t.Errorf("candidate %d = %v, want absent", i, c)
		}
	}
	if !row.SetDate.IsZero() {
		t.Errorf("Set Date = %v, want absent", row.SetDate)
	}
}

// TestCollectRowInsaneDates verifies the sanity window is applied to every
// candidate during collection.
func TestCollectRowInsaneDates(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "corrupt.jpg")

	modified := time.Date(2015, 3, 29, 19, 46, 0, 0, time.Local)
	statTimes := func(string) (time.Time, time.Time, error) {
		return modified, modified, nil
	}
	exifTags := func(string) (map[string]string, error) {
		return map[string]string{
			"DateTimeOriginal": "1677:09:21 00:12:44",
			"DateTime":         "2222:01:01 00:00:00",
		}, nil
	}

	ex := newTestExtractor(dir, statTimes, exifTags)
	row := ex.collectRow(path, "corrupt.jpg")

	if !row.Dates.ExifOriginal.IsZero() {
		t.Errorf("insane DateTimeOriginal kept: %v", row.Dates.ExifOriginal)
	}
	if !row.Dates.ExifDateTime.IsZero() {
		t.Errorf("insane DateTime kept: %v", row.Dates.ExifDateTime)
	}
	if !row.SetDate.Equal(modified) {
		t.Errorf("Set Date = %v, want %v", row.SetDate, modified)
	}
}

// TestExtractorRun tests the full extract pass including report output
func TestExtractorRun(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "2021-01-01_12-34-56.jpg")

	modified := time.Date(2021, 2, 2, 8, 0, 0, 0, time.Local)
	ex := newTestExtractor(dir,
		func(string) (time.Time, time.Time, error) { return modified, modified, nil },
		func(string) (map[string]string, error) { return map[string]string{}, nil },
	)

	if err := ex.run(); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if _, err := os.Stat(ex.cfg.Output); err != nil {
		t.Fatalf("expected report file to exist: %v", err)
	}
}

// TestFileTimes tests the fileTimes function against a real file
func TestFileTimes(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "stamp.jpg")

	modified, created, err := fileTimes(path)
	if err != nil {
		t.Fatalf("fileTimes failed: %v", err)
	}
	if modified.IsZero() || created.IsZero() {
		t.Fatal("expected non-zero timestamps for a fresh file")
	}
	if modified.Nanosecond() != 0 || created.Nanosecond() != 0 {
		t.Error("expected timestamps truncated to whole seconds")
	}

	if _, _, err := fileTimes(filepath.Join(dir, "gone.jpg")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
