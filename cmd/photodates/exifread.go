package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	exiftool "github.com/barasher/go-exiftool"
	exif "github.com/dsoprea/go-exif/v3"
	heicexif "github.com/dsoprea/go-heic-exif-extractor/v2"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	tiffstructure "github.com/dsoprea/go-tiff-image-structure/v2"
	riimage "github.com/dsoprea/go-utility/v2/image"
)

// exifDateTagNames are the only tags this tool reads or writes.
var exifDateTagNames = []string{"DateTime", "DateTimeOriginal", "DateTimeDigitized"}

// exifTagsFunc reads the raw string values of the three DateTime tags from a
// file. Absent tags are simply missing from the map; a malformed file yields
// an empty map or an error, never a panic.
type exifTagsFunc func(path string) (map[string]string, error)

func isDateTagName(name string) bool {
	for _, n := range exifDateTagNames {
		if n == name {
			return true
		}
	}
	return false
}

func fileExt(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// mediaParserFor returns the container parser for a file extension, or nil
// when no structural parser exists for it.
func mediaParserFor(ext string) riimage.MediaParser {
	switch ext {
	case "jpg", "jpeg":
		return jpegstructure.NewJpegMediaParser()
	case "png":
		return pngstructure.NewPngMediaParser()
	case "tif", "tiff":
		return tiffstructure.NewTiffMediaParser()
	case "heic", "heif":
		return heicexif.NewHeicExifMediaParser()
	}
	return nil
}

// extractRawExif pulls the raw EXIF block out of a file. HEIC containers go
// through the HEIF box extractor and end up on the same decode path as JPEG.
// Extensions without a structural parser (WebP) fall back to a brute-force
// scan for the EXIF signature. A nil block with a nil error means the file
// simply carries no EXIF data.
func extractRawExif(path string) ([]byte, error) {
	parser := mediaParserFor(fileExt(path))
	if parser == nil {
		rawExif, err := exif.SearchFileAndExtractExif(path)
		if err != nil {
			if errors.Is(err, exif.ErrNoExif) {
				return nil, nil
			}
			return nil, fmt.Errorf("scanning for EXIF block: %w", err)
		}
		return rawExif, nil
	}

	mc, err := parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parsing container: %w", err)
	}

	_, rawExif, err := mc.Exif()
	if err != nil {
		// No EXIF segment/chunk/box in an otherwise valid container.
		return nil, nil
	}
	return rawExif, nil
}

// readExifDateTags returns the raw string values of the three DateTime tags.
func readExifDateTags(path string) (map[string]string, error) {
	rawExif, err := extractRawExif(path)
	if err != nil {
		return nil, err
	}

	tags := make(map[string]string, len(exifDateTagNames))
	if rawExif == nil {
		return tags, nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, &exif.ScanOptions{})
	if err != nil {
		return nil, fmt.Errorf("decoding EXIF tags: %w", err)
	}

	for _, entry := range entries {
		if !isDateTagName(entry.TagName) {
			continue
		}
		value := strings.SplitN(entry.FormattedFirst, "\x00", 2)[0]
		if value == "" {
			continue
		}
		// Prefer values outside the thumbnail IFD.
		if tags[entry.TagName] == "" || entry.IfdPath != exif.ThumbnailFqIfdPath {
			tags[entry.TagName] = value
		}
	}

	return tags, nil
}

// exiftoolReader is a lazily started exiftool subprocess used as a fallback
// for files the native parsers reject.
type exiftoolReader struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

func (r *exiftoolReader) ensure() (*exiftool.Exiftool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.et != nil {
		return r.et, nil
	}
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("starting exiftool: %w", err)
	}
	r.et = et
	return r.et, nil
}

func (r *exiftoolReader) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.et != nil {
		r.et.Close()
		r.et = nil
	}
}

func (r *exiftoolReader) readDateTags(path string) (map[string]string, error) {
	et, err := r.ensure()
	if err != nil {
		return nil, err
	}

	tags := make(map[string]string, len(exifDateTagNames))
	for _, fm := range et.ExtractMetadata(path) {
		if fm.Err != nil {
			continue
		}
		for _, name := range exifDateTagNames {
			if v, ok := fm.Fields[name].(string); ok && v != "" {
				tags[name] = v
			}
		}
	}
	return tags, nil
}

// newExifTagReader wires the native reader, optionally backed by an exiftool
// subprocess for files the native path cannot decode. The returned closer
// shuts the subprocess down.
func newExifTagReader(exiftoolFallback bool) (exifTagsFunc, func()) {
	if !exiftoolFallback {
		return readExifDateTags, func() {}
	}

	fb := &exiftoolReader{}
	read := func(path string) (map[string]string, error) {
		tags, err := readExifDateTags(path)
		if err == nil && len(tags) > 0 {
			return tags, nil
		}
		fbTags, fbErr := fb.readDateTags(path)
		if fbErr != nil {
			return tags, err
		}
		return fbTags, nil
	}
	return read, fb.close
}
