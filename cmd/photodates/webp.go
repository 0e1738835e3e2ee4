package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// webpExifFlag is the EXIF bit in the VP8X feature flags byte.
const webpExifFlag = 0x08

type riffChunk struct {
	fourCC string
	data   []byte
}

// setWebpExifChunk returns a copy of a WebP file with its EXIF chunk replaced
// by payload, which must be a TIFF-structured EXIF block. When the file has
// no EXIF chunk yet the chunk is appended and the VP8X EXIF flag is set;
// files without a VP8X extended header cannot take EXIF metadata and are
// rejected.
func setWebpExifChunk(riff, payload []byte) ([]byte, error) {
	if len(riff) < 12 || string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WEBP" {
		return nil, fmt.Errorf("not a WebP file")
	}

	var chunks []riffChunk
	off := 12
	for off+8 <= len(riff) {
		fourCC := string(riff[off : off+4])
		size := int(binary.LittleEndian.Uint32(riff[off+4 : off+8]))
		end := off + 8 + size
		if end > len(riff) {
			return nil, fmt.Errorf("truncated %s chunk", fourCC)
		}
		chunks = append(chunks, riffChunk{fourCC, riff[off+8 : end]})
		off = end
		if size%2 == 1 {
			// Chunks are padded to even sizes.
			off++
		}
	}

	replaced := false
	for i := range chunks {
		if chunks[i].fourCC == "EXIF" {
			chunks[i].data = payload
			replaced = true
		}
	}
	if !replaced {
		if len(chunks) == 0 || chunks[0].fourCC != "VP8X" || len(chunks[0].data) < 1 {
			return nil, fmt.Errorf("WebP has no extended header (VP8X), cannot add an EXIF chunk")
		}
		flags := append([]byte(nil), chunks[0].data...)
		flags[0] |= webpExifFlag
		chunks[0].data = flags
		chunks = append(chunks, riffChunk{"EXIF", payload})
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	buf.Write([]byte{0, 0, 0, 0}) // patched below
	buf.WriteString("WEBP")
	for _, c := range chunks {
		buf.WriteString(c.fourCC)
		var size [4]byte
		binary.LittleEndian.PutUint32(size[:], uint32(len(c.data)))
		buf.Write(size[:])
		buf.Write(c.data)
		if len(c.data)%2 == 1 {
			buf.WriteByte(0)
		}
	}

	out := buf.Bytes()
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out, nil
}
