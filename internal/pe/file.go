// Package pe locates icon resources inside Windows PE executables.
//
// Only the pieces needed to reach the resource tree are parsed: the DOS
// header, the PE signature, the COFF file header and the section table.
package pe

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrNotExecutable is returned when the MZ or PE signature is missing
	ErrNotExecutable = errors.New("not a PE executable")
	// ErrMalformed is returned when a header, directory or offset points outside the file
	ErrMalformed = errors.New("malformed executable")
	// ErrNoResources is returned when the executable has no .rsrc section
	ErrNoResources = errors.New("no .rsrc section")
	// ErrNotFound is returned when a resource lookup has no match
	ErrNotFound = errors.New("resource not found")
)

const (
	ImageDOSSignature      = 0x5A4D     // MZ
	ImageNTHeaderSignature = 0x00004550 // PE\0\0

	OptionalHeaderPE32Magic     = 0x10B
	OptionalHeaderPE32PlusMagic = 0x20B

	offsetOfNewHeaderAddr  = 0x3C
	sizeOfFileHeader       = 20
	sizeOfSectionHeader    = 40
	sizeOfSectionName      = 8
	maxNumberOfSections    = 96
	resourceSectionName    = ".rsrc"
	offsetOfOptionalHeader = 4 + sizeOfFileHeader
)

// Section is one entry of the section table
type Section struct {
	Name             string
	VirtualSize      uint32
	VirtualAddress   uint32
	SizeOfRawData    uint32
	PointerToRawData uint32
}

// File is a parsed PE image held entirely in memory
type File struct {
	data     Buffer
	Is64     bool
	Sections []Section
}

// Parse validates the MZ and PE signatures and reads the section table.
func Parse(data []byte) (*File, error) {
	buf := Buffer(data)

	mz, err := buf.Uint16(0)
	if err != nil || mz != ImageDOSSignature {
		return nil, fmt.Errorf("%w: no MZ signature", ErrNotExecutable)
	}

	peOffset, err := buf.Uint32(offsetOfNewHeaderAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated DOS header", ErrNotExecutable)
	}
	sig, err := buf.Uint32(int(peOffset))
	if err != nil || sig != ImageNTHeaderSignature {
		return nil, fmt.Errorf("%w: no PE signature at 0x%X", ErrNotExecutable, peOffset)
	}

	hdr := int(peOffset)
	numSections, err := buf.Uint16(hdr + 4 + 2)
	if err != nil {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	optSize, err := buf.Uint16(hdr + 4 + 16)
	if err != nil {
		return nil, fmt.Errorf("reading file header: %w", err)
	}

	f := &File{data: buf}
	if optSize >= 2 {
		magic, err := buf.Uint16(hdr + offsetOfOptionalHeader)
		if err != nil {
			return nil, fmt.Errorf("reading optional header: %w", err)
		}
		f.Is64 = magic == OptionalHeaderPE32PlusMagic
	}

	if numSections > maxNumberOfSections {
		return nil, fmt.Errorf("%w: %d sections", ErrMalformed, numSections)
	}

	tableOffset := hdr + offsetOfOptionalHeader + int(optSize)
	for i := 0; i < int(numSections); i++ {
		off := tableOffset + i*sizeOfSectionHeader
		raw, err := buf.Slice(off, sizeOfSectionHeader)
		if err != nil {
			return nil, fmt.Errorf("reading section header %d: %w", i, err)
		}
		sh := Buffer(raw)
		name := bytes.TrimRight(raw[:sizeOfSectionName], "\x00")
		s := Section{Name: string(name)}
		s.VirtualSize, _ = sh.Uint32(8)
		s.VirtualAddress, _ = sh.Uint32(12)
		s.SizeOfRawData, _ = sh.Uint32(16)
		s.PointerToRawData, _ = sh.Uint32(20)
		slog.Debug("Section header", "name", s.Name, "offset", fmt.Sprintf("%08X", off))
		f.Sections = append(f.Sections, s)
	}

	return f, nil
}

// Section returns the first section whose null-padded name equals name exactly
func (f *File) Section(name string) (Section, bool) {
	for _, s := range f.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Resources returns a navigator over the .rsrc section. The raw data is
// clamped to the end of the file.
func (f *File) Resources() (*ResourceSection, error) {
	s, ok := f.Section(resourceSectionName)
	if !ok {
		return nil, ErrNoResources
	}

	start := int(s.PointerToRawData)
	if start > f.data.Len() {
		return nil, fmt.Errorf("%w: .rsrc raw data at 0x%X beyond end of file", ErrMalformed, start)
	}
	size := int(s.SizeOfRawData)
	if size > f.data.Len()-start {
		size = f.data.Len() - start
	}

	slog.Debug("Resource section",
		"offset", fmt.Sprintf("%08X", start),
		"size", fmt.Sprintf("%08X", size),
		"virtualAddress", fmt.Sprintf("%08X", s.VirtualAddress))

	return NewResourceSection(f.data[start:start+size], s.VirtualAddress), nil
}
