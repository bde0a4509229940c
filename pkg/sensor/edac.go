package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultUECountPath is the uncorrectable error counter of the first memory controller.
	DefaultUECountPath = "/sys/devices/system/edac/mc/mc0/ue_count"

	// FormatText reads the counter as a decimal string, as exposed by the Linux EDAC sysfs.
	FormatText = "text"
	// FormatBinary reads the counter as raw little-endian bytes.
	FormatBinary = "binary"

	// textReadLimit covers the 20 digits of a uint64 plus a trailing newline.
	textReadLimit = 32
)

// Reader reads the cumulative uncorrectable memory error count.
type Reader interface {
	ReadUncorrectableCount() (uint64, error)
}

// EDACReader reads an EDAC error counter file.
type EDACReader struct {
	path        string
	format      string
	binaryWidth int
}

// NewEDACReader creates a reader for the counter at path.
// binaryWidth is only used with FormatBinary and must be 1, 2, 4 or 8.
func NewEDACReader(path, format string, binaryWidth int) (*EDACReader, error) {
	if path == "" {
		path = DefaultUECountPath
	}
	switch format {
	case "", FormatText:
		format = FormatText
	case FormatBinary:
		if !ValidBinaryWidth(binaryWidth) {
			return nil, fmt.Errorf("sensor: unsupported binary width %d", binaryWidth)
		}
	default:
		return nil, fmt.Errorf("sensor: unsupported format %q", format)
	}

	return &EDACReader{
		path:        path,
		format:      format,
		binaryWidth: binaryWidth,
	}, nil
}

// ValidBinaryWidth reports whether n bytes can be decoded as a counter.
func ValidBinaryWidth(n int) bool {
	return n == 1 || n == 2 || n == 4 || n == 8
}

// Path returns the counter file path.
func (r *EDACReader) Path() string {
	return r.path
}

// ReadUncorrectableCount opens the counter, reads it and closes it again.
// Open failures are reported as ErrUnavailable, anything after a successful
// open as ErrReadFailed.
func (r *EDACReader) ReadUncorrectableCount() (uint64, error) {
	file, err := os.Open(r.path)
	if err != nil {
		return 0, &Error{Kind: KindUnavailable, Path: r.path, Err: err}
	}
	defer file.Close()

	if r.format == FormatBinary {
		return r.readBinary(file)
	}
	return r.readText(file)
}

func (r *EDACReader) readText(src io.Reader) (uint64, error) {
	buf := make([]byte, textReadLimit)
	n, err := io.ReadFull(src, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return 0, &Error{Kind: KindReadFailed, Path: r.path, Err: err}
	}

	count, err := ParseCount(buf[:n])
	if err != nil {
		return 0, &Error{Kind: KindReadFailed, Path: r.path, Err: err}
	}
	return count, nil
}

func (r *EDACReader) readBinary(src io.Reader) (uint64, error) {
	buf := make([]byte, r.binaryWidth)
	if _, err := io.ReadFull(src, buf); err != nil {
		return 0, &Error{Kind: KindReadFailed, Path: r.path, Err: err}
	}
	return DecodeBinaryCount(buf)
}

// ParseCount parses a decimal counter value, ignoring surrounding whitespace.
func ParseCount(data []byte) (uint64, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, errors.New("empty counter value")
	}
	return strconv.ParseUint(text, 10, 64)
}

// DecodeBinaryCount decodes a little-endian counter of 1, 2, 4 or 8 bytes.
func DecodeBinaryCount(buf []byte) (uint64, error) {
	switch len(buf) {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(buf)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(buf)), nil
	case 8:
		return binary.LittleEndian.Uint64(buf), nil
	default:
		return 0, &Error{Kind: KindReadFailed, Err: fmt.Errorf("unsupported counter width %d", len(buf))}
	}
}
