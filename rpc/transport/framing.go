package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"io"
	"net"
)

const (
	FramingRaw            = "raw"
	FramingLengthPrefixed = "length-prefixed"

	// lengthHeaderSize is the size of the uint32 length header of length prefixed frames
	lengthHeaderSize = 4
)

// NewFramer returns the framer registered under the given name
func NewFramer(name string, maxFrameSize int) (IFramer, error) {
	switch name {
	case FramingRaw:
		return NewRawFramer(), nil
	case FramingLengthPrefixed:
		return NewLengthPrefixedFramer(maxFrameSize), nil
	default:
		return nil, fmt.Errorf("invalid framing %s (expected one of: %s, %s)", name, FramingRaw, FramingLengthPrefixed)
	}
}

// --------------------------------------------------------------------------
// Raw framing
// --------------------------------------------------------------------------

// NewRawFramer returns a framer that treats the bytes of a single read call as one message.
// Messages that are split or coalesced by the network are not recovered.
func NewRawFramer() IFramer {
	return rawFramer{}
}

type rawFramer struct{}

func (f rawFramer) GetName() string {
	return FramingRaw
}

func (f rawFramer) ReadFrame(r io.Reader, buf []byte) ([]byte, error) {
	if len(buf) == 0 {
		buf = make([]byte, common.DefaultReadBufferSize)
	}

	n, err := r.Read(buf)
	if n > 0 {
		// a pending error is returned again by the next read
		return buf[:n], nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, common.ErrDisconnected
	}
	return nil, err
}

func (f rawFramer) WriteFrame(w io.Writer, data []byte) error {
	_, err := w.Write(data)
	return err
}

// --------------------------------------------------------------------------
// Length prefixed framing
// --------------------------------------------------------------------------

// NewLengthPrefixedFramer returns a framer with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload
func NewLengthPrefixedFramer(maxFrameSize int) IFramer {
	if maxFrameSize <= 0 {
		maxFrameSize = common.DefaultMaxFrameSize
	}
	return lengthPrefixedFramer{maxFrameSize: maxFrameSize}
}

type lengthPrefixedFramer struct {
	maxFrameSize int
}

func (f lengthPrefixedFramer) GetName() string {
	return FramingLengthPrefixed
}

func (f lengthPrefixedFramer) ReadFrame(r io.Reader, buf []byte) ([]byte, error) {
	var header [lengthHeaderSize]byte

	// Read header, EOF before the first byte means the peer closed the connection
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.ErrDisconnected
		}
		return nil, err
	}

	contentLength := binary.BigEndian.Uint32(header[:])
	if uint64(contentLength) > uint64(f.maxFrameSize) {
		return nil, fmt.Errorf("%w: %d > %d bytes", common.ErrFrameTooLarge, contentLength, f.maxFrameSize)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return []byte{}, nil
	}

	// Check if buffer is large enough for data
	if len(buf) < int(contentLength) {
		buf = make([]byte, contentLength)
	}

	if _, err := io.ReadFull(r, buf[:contentLength]); err != nil {
		return nil, err
	}
	return buf[:contentLength], nil
}

func (f lengthPrefixedFramer) WriteFrame(w io.Writer, data []byte) error {
	if len(data) > f.maxFrameSize {
		return fmt.Errorf("%w: %d > %d bytes", common.ErrFrameTooLarge, len(data), f.maxFrameSize)
	}

	header := make([]byte, lengthHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	// one write for header and payload
	b := net.Buffers{header, data}
	_, err := b.WriteTo(w)
	return err
}
