package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// exifDateLayout is the canonical EXIF wire format for the three DateTime tags.
	exifDateLayout = "2006:01:02 15:04:05"
	// reportDateLayout is the format used for every date cell in the report CSV.
	reportDateLayout = "2006-01-02 15:04:05"
)

// filenameDateLayouts are tried in order against the leading token of a file
// name, e.g. 20210101_123456_iOS.jpg or 2021-01-01_12-34-56.jpg.
var filenameDateLayouts = []string{
	"20060102",
	"2006-01-02",
	"20060102_150405",
	"2006-01-02_15-04-05",
}

// updateDateLayouts are the accepted formats for the Set Date column of an
// update-path CSV.
var updateDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

// normalizeExifDate repairs common defects in raw EXIF date strings so that
// they conform to exifDateLayout. Repairs, in order: strip fractional
// seconds, fix wrong separators, re-order M:D:Y into Y:M:D, append missing
// seconds. Strings it cannot repair are returned as-is and fail to parse
// downstream.
//
// The M:D:Y re-order compares the magnitude of the first and third
// components, so it cannot disambiguate two-digit years or dates where the
// day is 12 or less. That is a known limitation carried over from the data
// this tool was built against.
func normalizeExifDate(raw string) string {
	s := strings.TrimSpace(raw)

	// Fractional seconds, e.g. "2015:03:29 09:10:00.123"
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}

	// The date portion sometimes uses / or - separators. Only the first two
	// occurrences belong to the date.
	s = strings.Replace(s, "/", ":", 2)
	s = strings.Replace(s, "-", ":", 2)

	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ':' || r == ' '
	})

	nums := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return s
		}
		nums = append(nums, n)
	}
	if len(nums) < 3 {
		return s
	}

	// Looks like M:D:Y rather than Y:M:D.
	if nums[0] < nums[2] {
		nums[0], nums[1], nums[2] = nums[2], nums[0], nums[1]
	}

	// Only hour:minute present, no seconds.
	if len(nums) == 5 {
		nums = append(nums, 0)
	}

	switch len(nums) {
	case 3:
		return fmt.Sprintf("%04d:%02d:%02d", nums[0], nums[1], nums[2])
	case 6:
		return fmt.Sprintf("%04d:%02d:%02d %02d:%02d:%02d",
			nums[0], nums[1], nums[2], nums[3], nums[4], nums[5])
	}
	return s
}

// parseExifDate normalizes and parses a raw EXIF date string. The boolean is
// false when the string is unparseable; parse failures never surface as
// errors.
func parseExifDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(exifDateLayout, normalizeExifDate(raw), time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseFilenameDate extracts a date embedded in a file name, e.g. the
// standard iPhone export format 20210101_123456_iOS.jpg. The leading token
// (up to the first underscore, after replacing spaces with underscores) is
// tried against each filename layout in order.
func parseFilenameDate(filename string) (time.Time, bool) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	token := strings.SplitN(strings.ReplaceAll(base, " ", "_"), "_", 2)[0]

	for _, layout := range filenameDateLayouts {
		if t, err := time.ParseInLocation(layout, token, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseUpdateDate parses a Set Date cell from an update-path CSV, trying each
// accepted format in order.
func parseUpdateDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	for _, layout := range updateDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// saneDate reports whether t is a plausible photo date. Years outside
// [1800, 2100] almost always indicate corrupted EXIF bytes rather than a real
// capture date.
func saneDate(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return t.Year() >= 1800 && t.Year() <= 2100
}

// saneOrZero collapses insane dates to the zero value so they read as absent
// everywhere downstream.
func saneOrZero(t time.Time) time.Time {
	if !saneDate(t) {
		return time.Time{}
	}
	return t
}
