package main

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildLittleEndianTiff assembles a minimal TIFF: IFD0 holding an Exif IFD
// pointer, and an Exif IFD holding DateTimeOriginal and DateTimeDigitized
// ASCII fields initialized to value.
func buildLittleEndianTiff(t *testing.T, value string) []byte {
	t.Helper()
	if len(value) != 19 {
		t.Fatalf("value must be 19 characters, got %d", len(value))
	}

	le := binary.LittleEndian
	// Layout: header 0-7, IFD0 8-25, Exif IFD 26-55, two values at 56 and 76.
	const (
		exifIfdOff = 26
		dtoOff     = 56
		dtdOff     = 76
		totalLen   = 96
	)

	data := make([]byte, totalLen)
	copy(data[0:2], "II")
	le.PutUint16(data[2:4], 42)
	le.PutUint32(data[4:8], 8)

	putEntry := func(base int, tag, typ uint16, count, value uint32) {
		le.PutUint16(data[base:base+2], tag)
		le.PutUint16(data[base+2:base+4], typ)
		le.PutUint32(data[base+4:base+8], count)
		le.PutUint32(data[base+8:base+12], value)
	}

	// IFD0: one entry, the Exif IFD pointer.
	le.PutUint16(data[8:10], 1)
	putEntry(10, tagExifIfdPointer, tiffTypeLong, 1, exifIfdOff)
	le.PutUint32(data[22:26], 0)

	// Exif IFD: the two date fields.
	le.PutUint16(data[26:28], 2)
	putEntry(28, tagDateTimeOriginal, tiffTypeASCII, exifDateFieldLen, dtoOff)
	putEntry(40, tagDateTimeDigitized, tiffTypeASCII, exifDateFieldLen, dtdOff)
	le.PutUint32(data[52:56], 0)

	copy(data[dtoOff:], value)
	copy(data[dtdOff:], value)
	// Trailing NULs are already zero.

	return data
}

// TestPatchTiffDateTags tests the patchTiffDateTags function
func TestPatchTiffDateTags(t *testing.T) {
	original := "2001:01:01 00:00:00"
	target := "2015:03:29 09:10:00"
	data := buildLittleEndianTiff(t, original)

	patched, n, err := patchTiffDateTags(data, target)
	if err != nil {
		t.Fatalf("patchTiffDateTags failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("patched %d fields, want 2", n)
	}

	if !bytes.Equal(patched[56:75], []byte(target)) {
		t.Errorf("DateTimeOriginal bytes = %q, want %q", patched[56:75], target)
	}
	if patched[75] != 0 {
		t.Error("DateTimeOriginal lost its trailing NUL")
	}
	if !bytes.Equal(patched[76:95], []byte(target)) {
		t.Errorf("DateTimeDigitized bytes = %q, want %q", patched[76:95], target)
	}

	// The input must not be mutated.
	if !bytes.Contains(data, []byte(original)) {
		t.Error("input slice was mutated")
	}

	// Idempotence: patching again changes nothing further.
	again, n, err := patchTiffDateTags(patched, target)
	if err != nil || n != 2 {
		t.Fatalf("second patch: n=%d err=%v", n, err)
	}
	if !bytes.Equal(again, patched) {
		t.Error("second patch altered bytes")
	}
}

// TestPatchTiffDateTagsNoDateFields tests a TIFF without the date fields
func TestPatchTiffDateTagsNoDateFields(t *testing.T) {
	le := binary.LittleEndian
	// Header plus an empty IFD0.
	data := make([]byte, 14)
	copy(data[0:2], "II")
	le.PutUint16(data[2:4], 42)
	le.PutUint32(data[4:8], 8)
	le.PutUint16(data[8:10], 0)
	le.PutUint32(data[10:14], 0)

	_, n, err := patchTiffDateTags(data, "2015:03:29 09:10:00")
	if err != nil {
		t.Fatalf("patchTiffDateTags failed: %v", err)
	}
	if n != 0 {
		t.Errorf("patched %d fields, want 0", n)
	}
}

// TestPatchTiffDateTagsErrors tests rejection of malformed inputs
func TestPatchTiffDateTagsErrors(t *testing.T) {
	good := buildLittleEndianTiff(t, "2001:01:01 00:00:00")

	testCases := []struct {
		name   string
		data   []byte
		target string
	}{
		{"Short target", good, "2015:03:29"},
		{"Empty file", nil, "2015:03:29 09:10:00"},
		{"Bad byte order", []byte("XX\x2a\x00\x08\x00\x00\x00"), "2015:03:29 09:10:00"},
		{"Bad magic", []byte("II\x2b\x00\x08\x00\x00\x00"), "2015:03:29 09:10:00"},
		{"Truncated IFD", good[:9], "2015:03:29 09:10:00"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := patchTiffDateTags(tc.data, tc.target); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
