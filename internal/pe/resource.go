package pe

import (
	"fmt"
)

// Resource type IDs
const (
	TypeIcon      = 3
	TypeGroupIcon = 14
)

// LCIDJapanese is the default preferred resource language
const LCIDJapanese = 1041

const (
	sizeOfDirectoryTable = 16
	sizeOfDirectoryEntry = 8
	sizeOfDataEntry      = 16

	// Set on a directory entry offset that points to a subdirectory
	subdirectoryFlag = 0x80000000
	// Set on a directory entry name field that points to a string
	namedEntryFlag = 0x80000000

	maxDirectoryEntries = 0x1000
)

// MaskSubdirectoryBit strips the subdirectory flag from a directory entry offset
func MaskSubdirectoryBit(off uint32) uint32 {
	return off &^ subdirectoryFlag
}

// DirectoryEntry is one entry of a resource directory table
type DirectoryEntry struct {
	NameOrID uint32
	Offset   uint32 // relative to the resource section, high bit set for subdirectories
}

// IsNamed reports whether the entry is keyed by a string rather than an ID
func (e DirectoryEntry) IsNamed() bool {
	return e.NameOrID&namedEntryFlag != 0
}

// IsSubdirectory reports whether Offset points at another directory table
func (e DirectoryEntry) IsSubdirectory() bool {
	return e.Offset&subdirectoryFlag != 0
}

// ID returns the numeric ID of an unnamed entry
func (e DirectoryEntry) ID() uint16 {
	return uint16(e.NameOrID)
}

// Directory is a view of a resource directory table
type Directory struct {
	NamedEntries uint16
	IDEntries    uint16
	Entries      []DirectoryEntry // named entries first, then ID entries
}

// DataEntry describes a resource payload. DataRVA is in the module's
// virtual address space.
type DataEntry struct {
	DataRVA  uint32
	Size     uint32
	Codepage uint32
}

// Payload locates resource bytes relative to the start of the resource section
type Payload struct {
	Offset uint32
	Size   uint32
}

// Resource is a leaf of the resource tree, as returned by List
type Resource struct {
	ID       uint16
	Named    bool
	Language uint16
	Payload  Payload
}

// ResourceSection walks the type -> name/ID -> language tree of a .rsrc section
type ResourceSection struct {
	data           Buffer
	virtualAddress uint32
}

// NewResourceSection wraps raw .rsrc bytes. virtualAddress is the section's
// RVA, used to translate data entry addresses into section offsets.
func NewResourceSection(data []byte, virtualAddress uint32) *ResourceSection {
	return &ResourceSection{data: Buffer(data), virtualAddress: virtualAddress}
}

// Directory reads the directory table at off
func (r *ResourceSection) Directory(off uint32) (*Directory, error) {
	base := int(MaskSubdirectoryBit(off))
	named, err := r.data.Uint16(base + 12)
	if err != nil {
		return nil, fmt.Errorf("reading directory at 0x%X: %w", base, err)
	}
	ids, err := r.data.Uint16(base + 14)
	if err != nil {
		return nil, fmt.Errorf("reading directory at 0x%X: %w", base, err)
	}

	count := int(named) + int(ids)
	if count > maxDirectoryEntries {
		return nil, fmt.Errorf("%w: directory at 0x%X has %d entries", ErrMalformed, base, count)
	}

	raw, err := r.data.Slice(base+sizeOfDirectoryTable, count*sizeOfDirectoryEntry)
	if err != nil {
		return nil, fmt.Errorf("reading directory entries at 0x%X: %w", base, err)
	}
	entries := Buffer(raw)

	dir := &Directory{NamedEntries: named, IDEntries: ids, Entries: make([]DirectoryEntry, count)}
	for i := range dir.Entries {
		dir.Entries[i].NameOrID, _ = entries.Uint32(i * sizeOfDirectoryEntry)
		dir.Entries[i].Offset, _ = entries.Uint32(i*sizeOfDirectoryEntry + 4)
	}
	return dir, nil
}

// DataEntry reads the data entry at off
func (r *ResourceSection) DataEntry(off uint32) (DataEntry, error) {
	raw, err := r.data.Slice(int(off), sizeOfDataEntry)
	if err != nil {
		return DataEntry{}, fmt.Errorf("reading data entry at 0x%X: %w", off, err)
	}
	b := Buffer(raw)
	var e DataEntry
	e.DataRVA, _ = b.Uint32(0)
	e.Size, _ = b.Uint32(4)
	e.Codepage, _ = b.Uint32(8)
	return e, nil
}

// FindIconGroup returns the payload of the index-th icon group (0-based,
// by position in the group directory), preferring language lang.
func (r *ResourceSection) FindIconGroup(index int, lang uint16) (Payload, error) {
	typeDir, err := r.lookupID(0, TypeGroupIcon)
	if err != nil {
		return Payload{}, fmt.Errorf("icon group type: %w", err)
	}
	nameDir, err := r.lookupIndex(typeDir, index)
	if err != nil {
		return Payload{}, fmt.Errorf("icon group %d: %w", index, err)
	}
	return r.languagePayload(nameDir, lang)
}

// FindIcon returns the payload of the icon with the given ID, preferring
// language lang and falling back to the first language available.
func (r *ResourceSection) FindIcon(id uint16, lang uint16) (Payload, error) {
	typeDir, err := r.lookupID(0, TypeIcon)
	if err != nil {
		return Payload{}, fmt.Errorf("icon type: %w", err)
	}
	nameDir, err := r.lookupID(typeDir, id)
	if err != nil {
		return Payload{}, fmt.Errorf("icon %d: %w", id, err)
	}
	return r.languagePayload(nameDir, lang)
}

// Bytes returns the payload bytes without copying
func (r *ResourceSection) Bytes(p Payload) ([]byte, error) {
	return r.data.Slice(int(p.Offset), int(p.Size))
}

// List returns every leaf under the given resource type, in directory order
func (r *ResourceSection) List(typeID uint16) ([]Resource, error) {
	typeDir, err := r.lookupID(0, typeID)
	if err != nil {
		return nil, err
	}
	names, err := r.Directory(typeDir)
	if err != nil {
		return nil, err
	}

	var result []Resource
	for _, name := range names.Entries {
		if !name.IsSubdirectory() {
			return nil, fmt.Errorf("%w: name entry 0x%X is not a directory", ErrMalformed, name.NameOrID)
		}
		langs, err := r.Directory(name.Offset)
		if err != nil {
			return nil, err
		}
		for _, lang := range langs.Entries {
			p, err := r.payload(lang)
			if err != nil {
				return nil, err
			}
			result = append(result, Resource{
				ID:       name.ID(),
				Named:    name.IsNamed(),
				Language: lang.ID(),
				Payload:  p,
			})
		}
	}
	return result, nil
}

// lookupID finds the ID entry with the given id in the directory at dirOff
// and returns its child offset. Named entries never match.
func (r *ResourceSection) lookupID(dirOff uint32, id uint16) (uint32, error) {
	dir, err := r.Directory(dirOff)
	if err != nil {
		return 0, err
	}
	for _, e := range dir.Entries[dir.NamedEntries:] {
		if e.IsNamed() {
			continue
		}
		if e.NameOrID == uint32(id) {
			return r.child(e)
		}
	}
	return 0, ErrNotFound
}

// lookupIndex returns the child offset of the index-th entry, named or not
func (r *ResourceSection) lookupIndex(dirOff uint32, index int) (uint32, error) {
	dir, err := r.Directory(dirOff)
	if err != nil {
		return 0, err
	}
	if index < 0 || index >= len(dir.Entries) {
		return 0, ErrNotFound
	}
	return r.child(dir.Entries[index])
}

// child returns the subdirectory an entry points to
func (r *ResourceSection) child(e DirectoryEntry) (uint32, error) {
	if !e.IsSubdirectory() {
		return 0, fmt.Errorf("%w: entry 0x%X is not a directory", ErrMalformed, e.NameOrID)
	}
	if MaskSubdirectoryBit(e.Offset) == 0 {
		return 0, fmt.Errorf("%w: entry 0x%X points back at the root", ErrMalformed, e.NameOrID)
	}
	return e.Offset, nil
}

func (r *ResourceSection) languagePayload(nameDir uint32, lang uint16) (Payload, error) {
	dir, err := r.Directory(nameDir)
	if err != nil {
		return Payload{}, err
	}
	if len(dir.Entries) == 0 {
		return Payload{}, ErrNotFound
	}

	chosen := dir.Entries[0]
	for _, e := range dir.Entries[dir.NamedEntries:] {
		if !e.IsNamed() && e.NameOrID == uint32(lang) {
			chosen = e
			break
		}
	}
	return r.payload(chosen)
}

// payload resolves a language entry to a section-relative payload
func (r *ResourceSection) payload(e DirectoryEntry) (Payload, error) {
	if e.IsSubdirectory() {
		return Payload{}, fmt.Errorf("%w: expected a data entry, got a directory", ErrMalformed)
	}
	if e.Offset == 0 {
		return Payload{}, fmt.Errorf("%w: data entry at offset 0", ErrMalformed)
	}
	de, err := r.DataEntry(e.Offset)
	if err != nil {
		return Payload{}, err
	}
	if de.DataRVA < r.virtualAddress {
		return Payload{}, fmt.Errorf("%w: payload RVA 0x%X before section base 0x%X", ErrMalformed, de.DataRVA, r.virtualAddress)
	}
	p := Payload{Offset: de.DataRVA - r.virtualAddress, Size: de.Size}
	if !r.data.Has(int(p.Offset), int(p.Size)) {
		return Payload{}, fmt.Errorf("%w: payload at 0x%X+0x%X outside section", ErrMalformed, p.Offset, p.Size)
	}
	return p, nil
}
