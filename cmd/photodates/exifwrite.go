package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	pngstructure "github.com/dsoprea/go-png-image-structure/v2"
	"github.com/rs/zerolog/log"
)

// writableExtensions are the formats the update path can write back to. HEIC
// is deliberately absent; its containers are not rewritten.
var writableExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"tiff": true,
}

// alreadyCurrent reports whether the existing DateTimeOriginal already
// matches the target on the date-only prefix (YYYY:MM:DD). Time-of-day
// differences do not trigger a rewrite, which makes the update idempotent.
func alreadyCurrent(current, target string) bool {
	return len(current) >= 10 && len(target) >= 10 && current[:10] == target[:10]
}

// setExifDate writes target (in canonical EXIF format) into both
// DateTimeOriginal and DateTimeDigitized of the file, re-encoding the EXIF
// block per file format. It returns false with a nil error when the file is
// already current and was left untouched.
func setExifDate(path, target string) (bool, error) {
	tags, err := readExifDateTags(path)
	if err == nil {
		if current := tags["DateTimeOriginal"]; alreadyCurrent(current, target) {
			log.Info().
				Str("path", path).
				Str("current", current).
				Str("target", target).
				Msg("EXIF DateTimeOriginal already set, skipping update")
			return false, nil
		}
	}

	switch ext := fileExt(path); ext {
	case "jpg", "jpeg":
		err = writeJpegDate(path, target)
	case "png":
		err = writePngDate(path, target)
	case "webp":
		err = writeWebpDate(path, target)
	case "tiff":
		err = writeTiffDate(path, target)
	default:
		return false, fmt.Errorf("unsupported file extension: %s", ext)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// newRootIfdBuilder builds an empty EXIF structure for files that carry none.
func newRootIfdBuilder() (*exif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("building IFD mapping: %w", err)
	}
	ti := exif.NewTagIndex()
	if err := exif.LoadStandardTags(ti); err != nil {
		return nil, fmt.Errorf("loading standard EXIF tags: %w", err)
	}
	return exif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

// setBuilderDates sets both DateTime tags in the Exif sub-IFD.
func setBuilderDates(rootIb *exif.IfdBuilder, target string) error {
	exifIb, err := exif.GetOrCreateIbFromRootIb(rootIb, "IFD/Exif")
	if err != nil {
		return fmt.Errorf("resolving Exif IFD: %w", err)
	}
	if err := exifIb.SetStandardWithName("DateTimeOriginal", target); err != nil {
		return fmt.Errorf("setting DateTimeOriginal: %w", err)
	}
	if err := exifIb.SetStandardWithName("DateTimeDigitized", target); err != nil {
		return fmt.Errorf("setting DateTimeDigitized: %w", err)
	}
	return nil
}

func writeJpegDate(path, target string) error {
	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parsing JPEG: %w", err)
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		if rootIb, err = newRootIfdBuilder(); err != nil {
			return err
		}
	}
	if err := setBuilderDates(rootIb, target); err != nil {
		return err
	}
	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("re-encoding EXIF segment: %w", err)
	}

	return writeFileAtomic(path, func(w io.Writer) error {
		return sl.Write(w)
	})
}

func writePngDate(path, target string) error {
	pmp := pngstructure.NewPngMediaParser()
	intfc, err := pmp.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parsing PNG: %w", err)
	}
	cs := intfc.(*pngstructure.ChunkSlice)

	rootIb, err := cs.ConstructExifBuilder()
	if err != nil {
		if rootIb, err = newRootIfdBuilder(); err != nil {
			return err
		}
	}
	if err := setBuilderDates(rootIb, target); err != nil {
		return err
	}
	if err := cs.SetExif(rootIb); err != nil {
		return fmt.Errorf("re-encoding eXIf chunk: %w", err)
	}

	return writeFileAtomic(path, func(w io.Writer) error {
		return cs.WriteTo(w)
	})
}

func writeWebpDate(path, target string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading WebP: %w", err)
	}

	var rootIb *exif.IfdBuilder
	rawExif, err := exif.SearchAndExtractExif(data)
	switch {
	case err == nil:
		im, imErr := exifcommon.NewIfdMappingWithStandard()
		if imErr != nil {
			return fmt.Errorf("building IFD mapping: %w", imErr)
		}
		ti := exif.NewTagIndex()
		_, index, err := exif.Collect(im, ti, rawExif)
		if err != nil {
			return fmt.Errorf("decoding existing EXIF block: %w", err)
		}
		rootIb = exif.NewIfdBuilderFromExistingChain(index.RootIfd)
	case errors.Is(err, exif.ErrNoExif):
		if rootIb, err = newRootIfdBuilder(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("scanning WebP for EXIF block: %w", err)
	}

	if err := setBuilderDates(rootIb, target); err != nil {
		return err
	}
	encoded, err := exif.NewIfdByteEncoder().EncodeToExif(rootIb)
	if err != nil {
		return fmt.Errorf("encoding EXIF block: %w", err)
	}

	out, err := setWebpExifChunk(data, encoded)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(out)
		return err
	})
}

func writeTiffDate(path, target string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading TIFF: %w", err)
	}

	patched, n, err := patchTiffDateTags(data, target)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("TIFF carries no DateTimeOriginal or DateTimeDigitized field to update")
	}
	return writeFileAtomic(path, func(w io.Writer) error {
		_, err := w.Write(patched)
		return err
	})
}

// writeFileAtomic writes through a temporary file in the same directory and
// renames over the original, so a failed encode never truncates the photo.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temporary file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}
