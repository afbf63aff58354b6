// Package mockexe writes minimal PE32 executables that carry nothing but a
// resource section. It is used to produce fixtures for the converter.
package mockexe

import (
	"bytes"
	"encoding/binary"
	"sort"
)

const (
	SizeOfImageDOSHeader          = 64
	SizeOfImageFileHeader         = 20
	SizeOfImageOptionalHeaderPE32 = 224
	SizeOfImageSectionHeader      = 40

	SizeOfResourceDirectoryTable = 16
	SizeOfResourceDirectoryEntry = 8
	SizeOfResourceDataEntry      = 16

	SizeOfGroupIconDirectory      = 6
	SizeOfGroupIconDirectoryEntry = 14

	ResourceIcon      = 3
	ResourceGroupIcon = 14

	LanguageEnglishUS = 1033

	headerSize        = 0x200
	sectionVA         = 0x1000
	dataAlignment     = 8
	subdirectoryFlag  = 0x80000000
	imageFileMachine  = 0x14C
	optionalPE32Magic = 0x10B
)

type ImageDOSHeader struct {
	Signature     [2]byte
	_             [58]byte
	NewHeaderAddr uint32
}

type ImageFileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type ImageSectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLinenumbers uint32
	NumberOfRelocations  uint16
	NumberOfLinenumbers  uint16
	Characteristics      uint32
}

type ResourceDirectoryTable struct {
	Characteristics uint32
	TimeDateStamp   uint32
	MajorVersion    uint16
	MinorVersion    uint16
	NumNameEntries  uint16
	NumIDEntries    uint16
}

type ResourceDirectoryEntry struct {
	ID     uint32
	Offset uint32
}

type ResourceDataEntry struct {
	DataRVA  uint32
	Size     uint32
	Codepage uint32
	Reserved uint32
}

// Resource is one leaf of the resource tree
type Resource struct {
	Type     uint16
	ID       uint16
	Language uint16
	Data     []byte
}

// Options controls the executable layout
type Options struct {
	// SectionName defaults to ".rsrc"
	SectionName string
}

// Build lays out resources under a single section and returns the whole
// executable image. Types, IDs and languages are sorted ascending, the way
// linkers emit them.
func Build(resources []Resource, opts Options) []byte {
	name := opts.SectionName
	if name == "" {
		name = ".rsrc"
	}
	section := BuildResourceSection(resources, sectionVA)

	var w bytes.Buffer
	dos := ImageDOSHeader{NewHeaderAddr: SizeOfImageDOSHeader}
	copy(dos.Signature[:], "MZ")
	binary.Write(&w, binary.LittleEndian, dos)

	w.WriteString("PE\x00\x00")
	binary.Write(&w, binary.LittleEndian, ImageFileHeader{
		Machine:              imageFileMachine,
		NumberOfSections:     1,
		SizeOfOptionalHeader: SizeOfImageOptionalHeaderPE32,
		Characteristics:      0x0102,
	})
	opt := make([]byte, SizeOfImageOptionalHeaderPE32)
	binary.LittleEndian.PutUint16(opt[0:], optionalPE32Magic)
	binary.LittleEndian.PutUint32(opt[28:], 0x400000)  // ImageBase
	binary.LittleEndian.PutUint32(opt[32:], 0x1000)    // SectionAlignment
	binary.LittleEndian.PutUint32(opt[36:], 0x200)     // FileAlignment
	binary.LittleEndian.PutUint32(opt[56:], uint32(sectionVA+len(section)))
	binary.LittleEndian.PutUint32(opt[60:], headerSize) // SizeOfHeaders
	binary.LittleEndian.PutUint16(opt[68:], 2)          // Subsystem
	binary.LittleEndian.PutUint32(opt[92:], 16)         // NumberOfRvaAndSizes
	// resource data directory
	binary.LittleEndian.PutUint32(opt[96+2*8:], sectionVA)
	binary.LittleEndian.PutUint32(opt[96+2*8+4:], uint32(len(section)))
	w.Write(opt)

	sh := ImageSectionHeader{
		VirtualSize:      uint32(len(section)),
		VirtualAddress:   sectionVA,
		SizeOfRawData:    uint32(len(section)),
		PointerToRawData: headerSize,
		Characteristics:  0x40000040,
	}
	copy(sh.Name[:], name)
	binary.Write(&w, binary.LittleEndian, sh)

	w.Write(make([]byte, headerSize-w.Len()))
	w.Write(section)
	return w.Bytes()
}

type langNode struct {
	lang uint16
	data []byte
}

type idNode struct {
	id    uint16
	langs []langNode
}

type typeNode struct {
	typ uint16
	ids []*idNode
}

// BuildResourceSection returns raw .rsrc content for a section loaded at
// virtualAddress.
func BuildResourceSection(resources []Resource, virtualAddress uint32) []byte {
	types := groupResources(resources)

	// Directory tables come first, then data entries, then payloads.
	dirSize := SizeOfResourceDirectoryTable + SizeOfResourceDirectoryEntry*len(types)
	nleaves := 0
	for _, t := range types {
		dirSize += SizeOfResourceDirectoryTable + SizeOfResourceDirectoryEntry*len(t.ids)
		for _, id := range t.ids {
			dirSize += SizeOfResourceDirectoryTable + SizeOfResourceDirectoryEntry*len(id.langs)
			nleaves += len(id.langs)
		}
	}
	dataEntriesOffset := dirSize
	payloadOffset := alignData(dataEntriesOffset + nleaves*SizeOfResourceDataEntry)

	var dirs, entries, payloads bytes.Buffer

	typeDirOffset := SizeOfResourceDirectoryTable + SizeOfResourceDirectoryEntry*len(types)
	writeTable(&dirs, len(types))
	next := typeDirOffset
	for _, t := range types {
		writeEntry(&dirs, uint32(t.typ), subdirectoryFlag|uint32(next))
		next += SizeOfResourceDirectoryTable + SizeOfResourceDirectoryEntry*len(t.ids)
	}

	idDirOffset := next
	for _, t := range types {
		writeTable(&dirs, len(t.ids))
		for _, id := range t.ids {
			writeEntry(&dirs, uint32(id.id), subdirectoryFlag|uint32(idDirOffset))
			idDirOffset += SizeOfResourceDirectoryTable + SizeOfResourceDirectoryEntry*len(id.langs)
		}
	}

	leaf := 0
	for _, t := range types {
		for _, id := range t.ids {
			writeTable(&dirs, len(id.langs))
			for _, l := range id.langs {
				writeEntry(&dirs, uint32(l.lang), uint32(dataEntriesOffset+leaf*SizeOfResourceDataEntry))
				binary.Write(&entries, binary.LittleEndian, ResourceDataEntry{
					DataRVA:  virtualAddress + uint32(payloadOffset+payloads.Len()),
					Size:     uint32(len(l.data)),
					Codepage: 1252,
				})
				payloads.Write(l.data)
				payloads.Write(make([]byte, alignData(payloads.Len())-payloads.Len()))
				leaf++
			}
		}
	}

	out := make([]byte, 0, payloadOffset+payloads.Len())
	out = append(out, dirs.Bytes()...)
	out = append(out, entries.Bytes()...)
	out = append(out, make([]byte, payloadOffset-len(out))...)
	out = append(out, payloads.Bytes()...)
	return out
}

func groupResources(resources []Resource) []*typeNode {
	byType := map[uint16]*typeNode{}
	byID := map[[2]uint16]*idNode{}
	var types []*typeNode
	for _, r := range resources {
		t, ok := byType[r.Type]
		if !ok {
			t = &typeNode{typ: r.Type}
			byType[r.Type] = t
			types = append(types, t)
		}
		key := [2]uint16{r.Type, r.ID}
		id, ok := byID[key]
		if !ok {
			id = &idNode{id: r.ID}
			byID[key] = id
			t.ids = append(t.ids, id)
		}
		id.langs = append(id.langs, langNode{lang: r.Language, data: r.Data})
	}

	sort.Slice(types, func(i, j int) bool { return types[i].typ < types[j].typ })
	for _, t := range types {
		sort.Slice(t.ids, func(i, j int) bool { return t.ids[i].id < t.ids[j].id })
		for _, id := range t.ids {
			sort.SliceStable(id.langs, func(i, j int) bool { return id.langs[i].lang < id.langs[j].lang })
		}
	}
	return types
}

func writeTable(w *bytes.Buffer, numIDEntries int) {
	binary.Write(w, binary.LittleEndian, ResourceDirectoryTable{
		MajorVersion: 4,
		NumIDEntries: uint16(numIDEntries),
	})
}

func writeEntry(w *bytes.Buffer, id, offset uint32) {
	binary.Write(w, binary.LittleEndian, ResourceDirectoryEntry{ID: id, Offset: offset})
}

func alignData(n int) int {
	return (n + dataAlignment - 1) &^ (dataAlignment - 1)
}
