package icns

import (
	"encoding/binary"
	"fmt"
)

// Record is one entry of an archive
type Record struct {
	Tag  OSType
	Data []byte // payload, without the record header
}

// Records splits an archive into its records. The payloads alias data.
func Records(data []byte) ([]Record, error) {
	if len(data) < sizeOfHeader {
		return nil, fmt.Errorf("%w: %d bytes is too short for a header", ErrCorrupt, len(data))
	}
	if OSType(binary.BigEndian.Uint32(data)) != TagFile {
		return nil, fmt.Errorf("%w: missing icns magic", ErrCorrupt)
	}
	total := int(binary.BigEndian.Uint32(data[4:]))
	if total != len(data) {
		return nil, fmt.Errorf("%w: header declares %d bytes, have %d", ErrCorrupt, total, len(data))
	}

	var records []Record
	for off := sizeOfHeader; off < len(data); {
		if len(data)-off < sizeOfRecordHeader {
			return nil, fmt.Errorf("%w: truncated record header at %d", ErrCorrupt, off)
		}
		tag := OSType(binary.BigEndian.Uint32(data[off:]))
		size := int(binary.BigEndian.Uint32(data[off+4:]))
		if size < sizeOfRecordHeader || size > len(data)-off {
			return nil, fmt.Errorf("%w: record %s at %d has length %d", ErrCorrupt, tag, off, size)
		}
		records = append(records, Record{Tag: tag, Data: data[off+sizeOfRecordHeader : off+size]})
		off += size
	}
	return records, nil
}
