package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"
)

// reportHeader is the column order of the report CSV. The six candidate
// columns match the field order of dateCandidates.
var reportHeader = []string{
	"Filename",
	"File Extension",
	"Folder",
	"From Filename",
	"File Modified Date",
	"File Created Date",
	"EXIF DateTime",
	"EXIF DateTimeOriginal",
	"EXIF DateTimeDigitized",
	"Set Date",
}

// MetadataRow is one report row: one per photo, built once during the
// collection pass and immutable afterwards.
type MetadataRow struct {
	Filename  string
	Extension string
	Folder    string
	Dates     dateCandidates
	SetDate   time.Time
}

// formatReportDate renders a date cell; absent candidates become empty cells.
func formatReportDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(reportDateLayout)
}

func (r MetadataRow) record() []string {
	return []string{
		r.Filename,
		r.Extension,
		r.Folder,
		formatReportDate(r.Dates.FromFilename),
		formatReportDate(r.Dates.FileModified),
		formatReportDate(r.Dates.FileCreated),
		formatReportDate(r.Dates.ExifDateTime),
		formatReportDate(r.Dates.ExifOriginal),
		formatReportDate(r.Dates.ExifDigitized),
		formatReportDate(r.SetDate),
	}
}

// writeReport saves the collected rows to a CSV file.
func writeReport(path string, rows []MetadataRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(reportHeader); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row.record()); err != nil {
			return fmt.Errorf("writing report row for %s: %w", row.Filename, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}
	return nil
}
