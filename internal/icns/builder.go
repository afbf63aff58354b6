package icns

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrFinalized is returned by Add once Bytes has handed out the archive
var ErrFinalized = errors.New("icns archive already finalized")

const (
	sizeOfHeader       = 8
	sizeOfRecordHeader = 8
)

// Builder accumulates records into an archive. The header length field
// always equals the number of bytes written so far.
type Builder struct {
	buf       []byte
	finalized bool
}

// NewBuilder returns a builder holding only the file header
func NewBuilder() *Builder {
	b := &Builder{buf: make([]byte, sizeOfHeader, 64*1024)}
	binary.BigEndian.PutUint32(b.buf[0:], uint32(TagFile))
	b.updateLength()
	return b
}

// Add appends one record
func (b *Builder) Add(tag OSType, payload []byte) error {
	if b.finalized {
		return fmt.Errorf("adding %s: %w", tag, ErrFinalized)
	}
	if uint64(len(b.buf))+sizeOfRecordHeader+uint64(len(payload)) > 0xFFFFFFFF {
		return fmt.Errorf("adding %s: archive would exceed 4 GiB", tag)
	}

	var header [sizeOfRecordHeader]byte
	binary.BigEndian.PutUint32(header[0:], uint32(tag))
	binary.BigEndian.PutUint32(header[4:], uint32(sizeOfRecordHeader+len(payload)))
	b.buf = append(b.buf, header[:]...)
	b.buf = append(b.buf, payload...)
	b.updateLength()
	return nil
}

// Len returns the current archive length
func (b *Builder) Len() int {
	return len(b.buf)
}

// Bytes finalizes the archive and returns it. Later calls to Add fail.
func (b *Builder) Bytes() []byte {
	b.finalized = true
	return b.buf
}

func (b *Builder) updateLength() {
	binary.BigEndian.PutUint32(b.buf[4:], uint32(len(b.buf)))
}
