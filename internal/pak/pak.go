// Package pak implements a random-access reader over the game's proprietary
// ".pak" container format (spec.md §4.1, §6.4).
//
// The container stores a trailing index (an offset table read from the end
// of the file) mapping entry names to {offset, size, encrypted-bit,
// compression-descriptor}, the same "index-at-tail, entries-by-name" shape
// as a zip central directory. No library in the retrieval pack parses this
// exact (non-public) format, so the reader is built directly against
// io.ReaderAt/io.SectionReader from the standard library, the same
// primitives archive/zip itself is built on -- justified in DESIGN.md as an
// unavoidable stdlib usage for a proprietary, non-googleable wire format.
package pak

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf16"
)

var (
	// ErrEncrypted is returned by OpenEntry for an entry with the encrypted
	// bit set (spec.md §4.1 "fails if the entry is encrypted").
	ErrEncrypted = errors.New("pak: entry is encrypted")

	// ErrNotFound is returned when an entry name does not exist.
	ErrNotFound = errors.New("pak: entry not found")

	errBadIndex = errors.New("pak: malformed index")
)

// CompressionKind describes how an entry's bytes are stored.
type CompressionKind uint8

const (
	CompressionNone CompressionKind = iota
	CompressionZlib
)

// Entry describes one archive entry's index record.
type Entry struct {
	Name        string
	Offset      int64
	Size        int64
	Encrypted   bool
	Compression CompressionKind
}

// Archive is an opened ".pak" container.
type Archive struct {
	f       *os.File
	entries map[string]Entry
}

const (
	footerMagic = uint32(0x50414b31) // "PAK1"
	footerSize  = 24                 // magic(4) + indexOffset(8) + indexSize(8) + entryCount(4)
)

// Open opens the container at path and parses its trailing index.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pak: open: %w", err)
	}

	a := &Archive{f: f}
	if err := a.readIndex(); err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// Close closes the underlying file.
func (a *Archive) Close() error { return a.f.Close() }

func (a *Archive) readIndex() error {
	stat, err := a.f.Stat()
	if err != nil {
		return fmt.Errorf("pak: stat: %w", err)
	}
	if stat.Size() < footerSize {
		return fmt.Errorf("%w: file too small", errBadIndex)
	}

	footer := make([]byte, footerSize)
	if _, err := a.f.ReadAt(footer, stat.Size()-footerSize); err != nil {
		return fmt.Errorf("pak: read footer: %w", err)
	}

	magic := binary.LittleEndian.Uint32(footer[0:4])
	if magic != footerMagic {
		return fmt.Errorf("%w: bad magic", errBadIndex)
	}
	indexOffset := int64(binary.LittleEndian.Uint64(footer[4:12]))
	indexSize := int64(binary.LittleEndian.Uint64(footer[12:20]))
	entryCount := binary.LittleEndian.Uint32(footer[20:24])

	if indexOffset < 0 || indexSize < 0 || indexOffset+indexSize > stat.Size()-footerSize {
		return fmt.Errorf("%w: index out of range", errBadIndex)
	}

	raw := make([]byte, indexSize)
	if _, err := a.f.ReadAt(raw, indexOffset); err != nil {
		return fmt.Errorf("pak: read index: %w", err)
	}

	r := bytes.NewReader(raw)
	entries := make(map[string]Entry, entryCount)
	for i := uint32(0); i < entryCount; i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return fmt.Errorf("%w: %v", errBadIndex, err)
		}
		nameBuf := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBuf); err != nil {
			return fmt.Errorf("%w: %v", errBadIndex, err)
		}

		var rec struct {
			Offset      int64
			Size        int64
			Flags       uint8
		}
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("%w: %v", errBadIndex, err)
		}

		name := strings.ToLower(string(nameBuf))
		entries[name] = Entry{
			Name:        name,
			Offset:      rec.Offset,
			Size:        rec.Size,
			Encrypted:   rec.Flags&0x1 != 0,
			Compression: CompressionKind((rec.Flags >> 1) & 0x3),
		}
	}

	a.entries = entries
	return nil
}

// Entry returns the index record for name, if present.
func (a *Archive) Entry(name string) (Entry, bool) {
	e, ok := a.entries[strings.ToLower(name)]
	return e, ok
}

// OpenEntry returns a Read+Seek over the plaintext bytes of the named entry.
func (a *Archive) OpenEntry(name string) (io.ReadSeeker, error) {
	e, ok := a.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if e.Encrypted {
		return nil, fmt.Errorf("%w: %q", ErrEncrypted, name)
	}
	sr := io.NewSectionReader(a.f, e.Offset, e.Size)
	if e.Compression == CompressionNone {
		return sr, nil
	}
	// Compressed entries are decompressed fully into memory; mod metadata
	// entries are small (a few KB), so this trades a copy for simplicity.
	raw, err := decompress(sr, e.Compression)
	if err != nil {
		return nil, fmt.Errorf("pak: decompress %q: %w", name, err)
	}
	return bytes.NewReader(raw), nil
}

// ReadModInfo reads and decodes the modinfo.json entry (spec.md §4.1): it may
// be stored as UTF-8, or as UCS-2LE prefixed with a 0xFEFF BOM, in which case
// it is transcoded to UTF-8 first. Object keys are lowercased before
// structural parsing to absorb inconsistent casing in mod authorship.
func (a *Archive) ReadModInfo() (map[string]any, error) {
	r, err := a.OpenEntry("modinfo.json")
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("pak: read modinfo.json: %w", err)
	}

	utf8Bytes, err := normalizeModInfoEncoding(raw)
	if err != nil {
		return nil, err
	}

	var m map[string]any
	if err := json.Unmarshal(utf8Bytes, &m); err != nil {
		return nil, fmt.Errorf("pak: parse modinfo.json: %w", err)
	}
	return lowercaseKeys(m), nil
}

func normalizeModInfoEncoding(raw []byte) ([]byte, error) {
	if len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE {
		u16 := make([]uint16, 0, (len(raw)-2)/2)
		for i := 2; i+1 < len(raw); i += 2 {
			u16 = append(u16, uint16(raw[i])|uint16(raw[i+1])<<8)
		}
		return []byte(string(utf16.Decode(u16))), nil
	}
	// Strip a UTF-8 BOM if present; otherwise assume plain UTF-8.
	return bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}), nil
}

func lowercaseKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if nested, ok := v.(map[string]any); ok {
			v = lowercaseKeys(nested)
		}
		out[strings.ToLower(k)] = v
	}
	return out
}
