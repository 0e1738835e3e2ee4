package main

import (
	"encoding/binary"
	"fmt"
)

// TIFF tag IDs used by the in-place patcher.
const (
	tagExifIfdPointer    = 0x8769
	tagDateTimeOriginal  = 0x9003
	tagDateTimeDigitized = 0x9004

	tiffTypeASCII = 2
	tiffTypeLong  = 4

	// EXIF DateTime values are fixed 20-byte ASCII fields (19 characters
	// plus a trailing NUL), so they can be rewritten in place without
	// disturbing strip offsets elsewhere in the file.
	exifDateFieldLen = 20
)

// patchTiffDateTags overwrites the DateTimeOriginal and DateTimeDigitized
// values inside a TIFF file with target, returning the patched copy and the
// number of fields rewritten. Re-encoding a TIFF would invalidate its image
// strip offsets, so existing fields are patched byte-for-byte instead; files
// lacking the fields report zero patches.
func patchTiffDateTags(data []byte, target string) ([]byte, int, error) {
	if len(target) != len(exifDateLayout) {
		return nil, 0, fmt.Errorf("target date must be %q-shaped, got %q", exifDateLayout, target)
	}
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("not a TIFF file")
	}

	var bo binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("unrecognized TIFF byte order %q", data[0:2])
	}
	if bo.Uint16(data[2:4]) != 42 {
		return nil, 0, fmt.Errorf("bad TIFF magic number")
	}

	out := append([]byte(nil), data...)
	patched := 0

	patchIfd := func(offset int) error {
		entries, err := tiffIfdEntries(data, bo, offset)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if e.tag != tagDateTimeOriginal && e.tag != tagDateTimeDigitized {
				continue
			}
			if e.typ != tiffTypeASCII || e.count != exifDateFieldLen {
				continue
			}
			valueOff := int(e.value)
			if valueOff+exifDateFieldLen > len(out) {
				return fmt.Errorf("date field value offset out of range")
			}
			copy(out[valueOff:valueOff+len(target)], target)
			patched++
		}
		return nil
	}

	ifd0 := int(bo.Uint32(data[4:8]))
	entries, err := tiffIfdEntries(data, bo, ifd0)
	if err != nil {
		return nil, 0, err
	}
	if err := patchIfd(ifd0); err != nil {
		return nil, 0, err
	}
	for _, e := range entries {
		if e.tag == tagExifIfdPointer && e.typ == tiffTypeLong && e.count == 1 {
			if err := patchIfd(int(e.value)); err != nil {
				return nil, 0, err
			}
		}
	}

	return out, patched, nil
}

type tiffIfdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
}

func tiffIfdEntries(data []byte, bo binary.ByteOrder, offset int) ([]tiffIfdEntry, error) {
	if offset < 8 || offset+2 > len(data) {
		return nil, fmt.Errorf("IFD offset %d out of range", offset)
	}
	n := int(bo.Uint16(data[offset : offset+2]))
	if offset+2+n*12 > len(data) {
		return nil, fmt.Errorf("IFD at offset %d truncated", offset)
	}

	entries := make([]tiffIfdEntry, 0, n)
	for i := 0; i < n; i++ {
		base := offset + 2 + i*12
		entries = append(entries, tiffIfdEntry{
			tag:   bo.Uint16(data[base : base+2]),
			typ:   bo.Uint16(data[base+2 : base+4]),
			count: bo.Uint32(data[base+4 : base+8]),
			value: bo.Uint32(data[base+8 : base+12]),
		})
	}
	return entries, nil
}
