// Package tags reads and rewrites the BS17704_TRACK_LOUDNESS and
// BS17704_ALBUM_LOUDNESS Vorbis comments embedded in FLAC files, the
// loudness-tagging utility described alongside the core measurement engine.
// Reading goes through github.com/mewkiz/flac's metadata parser; rewriting
// splices the VORBIS_COMMENT block directly, the same way the reference
// tool does it, since no Go FLAC library offers in-place metadata writing.
package tags

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
	"golang.org/x/sys/unix"
)

const (
	trackTagName = "BS17704_TRACK_LOUDNESS"
	albumTagName = "BS17704_ALBUM_LOUDNESS"

	// convergenceToleranceLU is how close a previously written tag must be
	// to a freshly computed value before we consider it still accurate.
	convergenceToleranceLU = 0.1
)

// excludedTags are dropped when rewriting: our own previous tags, which are
// replaced, and ReplayGain tags, which a BS.1770 LKFS measurement supersedes.
var excludedTags = map[string]bool{
	trackTagName:                    true,
	albumTagName:                    true,
	"REPLAYGAIN_ALBUM_GAIN":         true,
	"REPLAYGAIN_ALBUM_PEAK":         true,
	"REPLAYGAIN_REFERENCE_LOUDNESS": true,
	"REPLAYGAIN_TRACK_GAIN":         true,
	"REPLAYGAIN_TRACK_PEAK":         true,
}

// Existing holds the loudness tags already present in a file, if any.
type Existing struct {
	TrackLKFS *float64
	AlbumLKFS *float64
}

// ReadExisting parses the existing loudness tags from a FLAC file, returning
// nil pointers for tags that are not present.
func ReadExisting(path string) (Existing, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return Existing{}, fmt.Errorf("tags: parsing %s: %w", path, err)
	}
	defer stream.Close()

	var existing Existing

	for _, block := range stream.Blocks {
		comment, ok := block.Body.(*meta.VorbisComment)
		if !ok {
			continue
		}

		for _, tag := range comment.Tags {
			switch strings.ToUpper(tag[0]) {
			case trackTagName:
				if v, ok := parseLUFS(tag[1]); ok {
					existing.TrackLKFS = &v
				}
			case albumTagName:
				if v, ok := parseLUFS(tag[1]); ok {
					existing.AlbumLKFS = &v
				}
			}
		}
	}

	return existing, nil
}

// HasBothTags reports whether both loudness tags are present, regardless of
// their value; used to implement --skip-when-tags-present.
func (e Existing) HasBothTags() bool {
	return e.TrackLKFS != nil && e.AlbumLKFS != nil
}

// NeedsUpdate reports whether either the track or album tag is missing, or
// differs from the newly computed value by more than the convergence
// tolerance.
func (e Existing) NeedsUpdate(newTrackLKFS, newAlbumLKFS float64) bool {
	if e.TrackLKFS == nil || abs(newTrackLKFS-*e.TrackLKFS) > convergenceToleranceLU {
		return true
	}

	if e.AlbumLKFS == nil || abs(newAlbumLKFS-*e.AlbumLKFS) > convergenceToleranceLU {
		return true
	}

	return false
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}

	return x
}

// parseLUFS parses a "-14.235 LUFS"-style tag value.
func parseLUFS(value string) (float64, bool) {
	num, ok := strings.CutSuffix(value, " LUFS")
	if !ok {
		return 0, false
	}

	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}

	return v, true
}

// Rewrite splices BS17704_TRACK_LOUDNESS and BS17704_ALBUM_LOUDNESS into the
// VORBIS_COMMENT block of the FLAC file at path, preserving every other tag.
// It writes a new file, then atomically renames it over the original.
func Rewrite(path string, trackLKFS, albumLKFS float64) error {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("tags: parsing %s: %w", path, err)
	}

	var (
		vendor  string
		comment *meta.VorbisComment
	)

	for _, block := range stream.Blocks {
		if vc, ok := block.Body.(*meta.VorbisComment); ok {
			comment = vc
			vendor = vc.Vendor
		}
	}

	stream.Close()

	if comment == nil {
		return fmt.Errorf("tags: %s has no VORBIS_COMMENT block", path)
	}

	block, err := buildVorbisCommentBlock(vendor, comment.Tags, trackLKFS, albumLKFS)
	if err != nil {
		return fmt.Errorf("tags: building replacement block for %s: %w", path, err)
	}

	return spliceVorbisCommentBlock(path, block)
}

// buildVorbisCommentBlock serializes a replacement VORBIS_COMMENT block
// (including its 4-byte header), carrying over every tag that isn't one of
// excludedTags and appending the freshly computed loudness tags.
func buildVorbisCommentBlock(vendor string, existingTags [][2]string, trackLKFS, albumLKFS float64) ([]byte, error) {
	var comments []string

	for _, tag := range existingTags {
		if excludedTags[strings.ToUpper(tag[0])] {
			continue
		}

		comments = append(comments, tag[0]+"="+tag[1])
	}

	comments = append(comments,
		fmt.Sprintf("%s=%.3f LUFS", albumTagName, albumLKFS),
		fmt.Sprintf("%s=%.3f LUFS", trackTagName, trackLKFS),
	)

	var body strings.Builder

	writeLengthPrefixed(&body, vendor)

	writeUint32LE(&body, uint32(len(comments)))

	for _, comment := range comments {
		writeLengthPrefixed(&body, comment)
	}

	payload := body.String()

	header := []byte{
		4, // block type 4 = VORBIS_COMMENT, top bit (last-block) left clear; spliceVorbisCommentBlock sets it when needed
		byte(len(payload) >> 16),
		byte(len(payload) >> 8),
		byte(len(payload)),
	}

	return append(header, payload...), nil
}

func writeLengthPrefixed(b *strings.Builder, s string) {
	writeUint32LE(b, uint32(len(s)))
	b.WriteString(s)
}

func writeUint32LE(b *strings.Builder, v uint32) {
	b.WriteByte(byte(v))
	b.WriteByte(byte(v >> 8))
	b.WriteByte(byte(v >> 16))
	b.WriteByte(byte(v >> 24))
}

// spliceVorbisCommentBlock locates the existing VORBIS_COMMENT block in the
// FLAC file at path and replaces it with newBlock, preserving every other
// byte of the file. It copies via the kernel's copy_file_range where
// available, falling back transparently to io.Copy semantics otherwise.
func spliceVorbisCommentBlock(path string, newBlock []byte) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("tags: opening %s: %w", path, err)
	}
	defer src.Close()

	offset, blockLen, isLast, err := locateVorbisCommentBlock(src)
	if err != nil {
		return fmt.Errorf("tags: locating VORBIS_COMMENT block in %s: %w", path, err)
	}

	// Preserve the last-block flag of the block we are replacing.
	if isLast {
		newBlock[0] |= 0x80
	}

	tmpPath := path + ".metadata_edit"

	dst, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("tags: creating %s: %w", tmpPath, err)
	}

	if err := copyRange(src, dst, 0, offset); err != nil {
		dst.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("tags: copying head of %s: %w", path, err)
	}

	if _, err := dst.Write(newBlock); err != nil {
		dst.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("tags: writing replacement block for %s: %w", path, err)
	}

	info, err := src.Stat()
	if err != nil {
		dst.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("tags: stat %s: %w", path, err)
	}

	tailOffset := offset + blockLen
	if err := copyRange(src, dst, tailOffset, info.Size()-tailOffset); err != nil {
		dst.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("tags: copying tail of %s: %w", path, err)
	}

	if err := dst.Close(); err != nil {
		return fmt.Errorf("tags: closing %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("tags: replacing %s: %w", path, err)
	}

	return nil
}

// locateVorbisCommentBlock returns the byte offset and length (header
// included) of the VORBIS_COMMENT metadata block, and whether it is the
// last metadata block before the audio frames begin.
func locateVorbisCommentBlock(r io.ReadSeeker) (offset, length int64, isLast bool, err error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return 0, 0, false, err
	}

	if string(magic) != "fLaC" {
		return 0, 0, false, fmt.Errorf("tags: missing fLaC stream marker")
	}

	header := make([]byte, 4)

	for {
		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, 0, false, err
		}

		if _, err := io.ReadFull(r, header); err != nil {
			return 0, 0, false, err
		}

		blockIsLast := header[0]&0x80 != 0
		blockType := header[0] & 0x7f
		blockLength := int64(header[1])<<16 | int64(header[2])<<8 | int64(header[3])

		if blockType == 4 {
			return pos, blockLength + 4, blockIsLast, nil
		}

		if blockIsLast {
			return 0, 0, false, fmt.Errorf("tags: no VORBIS_COMMENT block present")
		}

		if _, err := r.Seek(blockLength, io.SeekCurrent); err != nil {
			return 0, 0, false, err
		}
	}
}

// copyRange copies length bytes from src starting at offset into dst's
// current write position, using copy_file_range when both files support it
// (same filesystem, regular files) for a reflink-backed copy on filesystems
// that support it, and falling back to a plain streaming copy otherwise.
func copyRange(src *os.File, dst *os.File, offset, length int64) error {
	remaining := length
	srcOffset := offset

	for remaining > 0 {
		n, err := unix.CopyFileRange(int(src.Fd()), &srcOffset, int(dst.Fd()), nil, int(remaining), 0)
		if err != nil {
			return copyRangeFallback(src, dst, offset+(length-remaining), remaining)
		}

		if n == 0 {
			return fmt.Errorf("tags: copy_file_range copied 0 bytes with %d remaining", remaining)
		}

		remaining -= int64(n)
	}

	return nil
}

// copyRangeFallback streams length bytes from src at offset to dst via a
// plain read/write loop, for filesystems copy_file_range doesn't support.
func copyRangeFallback(src *os.File, dst *os.File, offset, length int64) error {
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	_, err := io.CopyN(dst, src, length)

	return err
}
