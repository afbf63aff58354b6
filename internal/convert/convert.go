// Package convert turns the first icon group of a Windows executable into
// an Apple icon archive.
package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"exe2icns/internal/icns"
	"exe2icns/internal/icon"
	"exe2icns/internal/pe"
	"exe2icns/internal/resample"
)

var (
	// ErrInvalidExecutable is returned when the input is not a readable PE file
	ErrInvalidExecutable = errors.New("invalid executable")
	// ErrNoIcon is returned when the executable has no icon that could be converted
	ErrNoIcon = errors.New("no icon data in executable")

	// ErrNoSlot marks an icon whose size has no archive record
	ErrNoSlot = errors.New("no matching icon slot")
	// ErrUnsupportedDepth marks an icon with a bit depth that has no decoder
	ErrUnsupportedDepth = errors.New("unsupported bit depth")
	// ErrSizeMismatch marks an icon whose pixels disagree with its declared size
	ErrSizeMismatch = errors.New("decoded size differs from declared size")
	// ErrDuplicate marks an icon whose slot was already filled
	ErrDuplicate = errors.New("slot already filled")
)

// Stage names the step at which an icon was skipped
type Stage string

const (
	StageClassify Stage = "classify"
	StageSelect   Stage = "select"
	StageLookup   Stage = "lookup"
	StageDecode   Stage = "decode"
	StageEncode   Stage = "encode"
)

// Skip records an icon group entry that did not make it into the archive
type Skip struct {
	Entry icon.GroupEntry
	Stage Stage
	Err   error
}

// Icon describes one slot written to the archive
type Icon struct {
	Slot        Slot
	Entry       icon.GroupEntry // zero for synthesized icons
	Passthrough bool            // PNG bytes copied from the executable
	Synthesized bool
}

// Result is the outcome of a successful conversion
type Result struct {
	Data    []byte
	Icons   []Icon
	Skipped []Skip
}

// Options controls a conversion
type Options struct {
	Language      uint16 // preferred resource language
	Synthesize128 bool   // derive the 128 slot from the 256 slot when missing
	Rescale       bool   // scale icons with mismatched pixels to their slot
	Logger        *slog.Logger
}

// Converter converts executables with fixed options. It holds no state
// between conversions.
type Converter struct {
	opts Options
	log  *slog.Logger
}

// New creates a converter
func New(opts Options) *Converter {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Converter{opts: opts, log: log}
}

// Convert converts the icon of an executable image held in memory
func (c *Converter) Convert(exe []byte) (*Result, error) {
	f, err := pe.Parse(exe)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExecutable, err)
	}
	rs, err := f.Resources()
	if errors.Is(err, pe.ErrNoResources) {
		return nil, fmt.Errorf("%w: %w", ErrNoIcon, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExecutable, err)
	}
	return c.ConvertResources(rs)
}

// candidate is a group entry assigned to a slot
type candidate struct {
	index int // position in the icon group
	entry icon.GroupEntry
}

// encoded holds the records of one filled slot until they are written
type encoded struct {
	index   int
	icon    Icon
	records []record
}

type record struct {
	tag  icns.OSType
	data []byte
}

// ConvertResources converts the first icon group of a resource section
func (c *Converter) ConvertResources(rs *pe.ResourceSection) (*Result, error) {
	group, err := rs.FindIconGroup(0, c.opts.Language)
	if errors.Is(err, pe.ErrNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrNoIcon, err)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExecutable, err)
	}
	data, err := rs.Bytes(group)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidExecutable, err)
	}
	entries := icon.ParseGroup(data)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: icon group has no entries", ErrNoIcon)
	}
	c.log.Debug("Icon group", "entries", len(entries), "size", group.Size)

	res := &Result{}
	bySlot := c.classify(entries, res)

	var filled []encoded
	var source256 *icon.Image
	have128 := false
	for _, slot := range Slots {
		cands := bySlot[slot.Size]
		if len(cands) == 0 {
			continue
		}
		img, used, err := c.fill(rs, slot, cands, res)
		if err != nil {
			continue
		}
		enc, err := c.encode(slot, img)
		if err != nil {
			c.skip(res, used.entry, StageEncode, err)
			continue
		}
		enc.index = used.index
		enc.icon.Entry = used.entry
		filled = append(filled, enc)

		switch slot.Size {
		case 256:
			source256 = img
		case 128:
			have128 = true
		}
	}

	sort.SliceStable(filled, func(i, j int) bool { return filled[i].index < filled[j].index })

	if c.opts.Synthesize128 && source256 != nil && !have128 {
		c.log.Info("Synthesizing icon", "from", 256, "to", 128)
		small := resample.Downsample2x(source256)
		slot, _ := SlotFor(128, 128)
		enc, err := c.encode(slot, small)
		if err != nil {
			return nil, fmt.Errorf("synthesizing 128 icon: %w", err)
		}
		enc.icon.Synthesized = true
		filled = append(filled, enc)
	}

	if len(filled) == 0 {
		return nil, fmt.Errorf("%w: none of %d icons could be converted", ErrNoIcon, len(entries))
	}

	b := icns.NewBuilder()
	for _, e := range filled {
		for _, r := range e.records {
			if err := b.Add(r.tag, r.data); err != nil {
				return nil, fmt.Errorf("writing %s record: %w", r.tag, err)
			}
		}
		res.Icons = append(res.Icons, e.icon)
	}
	res.Data = b.Bytes()
	return res, nil
}

// classify assigns entries to slots. Each slot's candidates are ordered by
// declared bit depth, highest first, then by position in the group.
func (c *Converter) classify(entries []icon.GroupEntry, res *Result) map[int][]candidate {
	bySlot := make(map[int][]candidate)
	for i, e := range entries {
		slot, ok := SlotFor(e.Width, e.Height)
		if !ok {
			c.skip(res, e, StageClassify, ErrNoSlot)
			continue
		}
		if !supportedDepth(e.BitCount) {
			c.skip(res, e, StageClassify, fmt.Errorf("%w: %d", ErrUnsupportedDepth, e.BitCount))
			continue
		}
		bySlot[slot.Size] = append(bySlot[slot.Size], candidate{index: i, entry: e})
	}
	for _, cands := range bySlot {
		sort.SliceStable(cands, func(i, j int) bool {
			return cands[i].entry.BitCount > cands[j].entry.BitCount
		})
	}
	return bySlot
}

// fill decodes the first candidate that works. Candidates after it are
// reported as duplicates.
func (c *Converter) fill(rs *pe.ResourceSection, slot Slot, cands []candidate, res *Result) (*icon.Image, candidate, error) {
	var lastErr error
	for i, cand := range cands {
		img, err := c.load(rs, slot, cand.entry, res)
		if err != nil {
			lastErr = err
			continue
		}
		for _, dup := range cands[i+1:] {
			c.skip(res, dup.entry, StageSelect, ErrDuplicate)
		}
		return img, cand, nil
	}
	return nil, candidate{}, lastErr
}

// load looks up and decodes one entry and brings it to the slot size
func (c *Converter) load(rs *pe.ResourceSection, slot Slot, e icon.GroupEntry, res *Result) (*icon.Image, error) {
	c.log.Info("Processing icon", "width", e.Width, "height", e.Height, "bpp", e.BitCount, "tag", slot.ImageTag.String())

	p, err := rs.FindIcon(e.ID, c.opts.Language)
	if err != nil {
		c.skip(res, e, StageLookup, err)
		return nil, err
	}
	data, err := rs.Bytes(p)
	if err != nil {
		c.skip(res, e, StageLookup, err)
		return nil, err
	}

	img, err := icon.Decode(data, e)
	if err != nil {
		c.skip(res, e, StageDecode, err)
		return nil, err
	}
	if img.HasSeparateMask {
		c.log.Warn("Icon carries a separate mask, using the alpha channel", "width", e.Width, "height", e.Height, "bpp", img.BitCount)
	}

	if img.Width != slot.Size || img.Height != slot.Size {
		if !c.opts.Rescale {
			err := fmt.Errorf("%w: %dx%d", ErrSizeMismatch, img.Width, img.Height)
			c.skip(res, e, StageDecode, err)
			return nil, err
		}
		c.log.Info("Rescaling icon", "from", fmt.Sprintf("%dx%d", img.Width, img.Height), "to", slot.Size)
		img = img.Resize(slot.Size)
	}
	return img, nil
}

// encode produces the records of one slot
func (c *Converter) encode(slot Slot, img *icon.Image) (encoded, error) {
	enc := encoded{icon: Icon{Slot: slot}}

	if slot.PNG() {
		data := img.PNG
		if data != nil && img.Width == slot.Size && img.Height == slot.Size {
			c.log.Info("Passing through PNG data", "size", slot.Size)
			enc.icon.Passthrough = true
		} else {
			var err error
			if data, err = icon.EncodePNG(img); err != nil {
				return encoded{}, err
			}
		}
		enc.records = []record{{slot.ImageTag, data}}
		return enc, nil
	}

	enc.records = []record{
		{slot.ImageTag, icns.CompressImage(slot.ImageTag, img.RGB)},
		{slot.MaskTag, append([]byte(nil), img.Mask...)},
	}
	return enc, nil
}

func (c *Converter) skip(res *Result, e icon.GroupEntry, stage Stage, err error) {
	level := slog.LevelWarn
	if errors.Is(err, ErrDuplicate) {
		level = slog.LevelDebug
	}
	c.log.Log(context.Background(), level, "Skipping icon",
		"width", e.Width, "height", e.Height, "bpp", e.BitCount,
		"stage", string(stage), "reason", err)
	res.Skipped = append(res.Skipped, Skip{Entry: e, Stage: stage, Err: err})
}
