package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"exe2icns/internal/config"
	"exe2icns/internal/convert"
	"exe2icns/internal/icns"
	"exe2icns/internal/icon"
	"exe2icns/internal/pe"
)

func main() {
	// Flags
	extractDir := flag.String("extract", "", "Write every decodable icon as PNG into this directory")
	lang := flag.Uint("lang", config.LanguageJapanese, "Preferred resource language (LCID)")
	flag.Parse()

	// Configure logging
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(handler))

	if flag.NArg() != 1 {
		printUsage()
		os.Exit(1)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		slog.Error("Failed to read input", "error", err)
		os.Exit(1)
	}

	if *extractDir != "" {
		if err := os.MkdirAll(*extractDir, 0755); err != nil {
			slog.Error("Failed to create output directory", "error", err)
			os.Exit(1)
		}
	}

	if bytes.HasPrefix(data, []byte("icns")) {
		err = inspectArchive(os.Stdout, data, *extractDir)
	} else {
		err = inspectExecutable(os.Stdout, data, uint16(*lang), *extractDir)
	}
	if err != nil {
		slog.Error("Failed to inspect file", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Icon Inspect - List and extract the icons of an executable or .icns file")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  icon-inspect [flags] file")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -extract dir   Write decoded icons as PNG files into dir")
	fmt.Println("  -lang n        Preferred resource language (default 1041)")
}

// inspectExecutable lists the first icon group with the slot every entry
// would fill
func inspectExecutable(w io.Writer, data []byte, lang uint16, extractDir string) error {
	f, err := pe.Parse(data)
	if err != nil {
		return err
	}
	rs, err := f.Resources()
	if err != nil {
		return err
	}

	groups, err := rs.List(pe.TypeGroupIcon)
	if errors.Is(err, pe.ErrNotFound) {
		fmt.Fprintln(w, "No icon groups")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Icon groups: %d (only the first is converted)\n\n", len(groups))

	p, err := rs.FindIconGroup(0, lang)
	if err != nil {
		return err
	}
	raw, err := rs.Bytes(p)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tSIZE\tBPP\tBYTES\tFORMAT\tSLOT")
	for i, e := range icon.ParseGroup(raw) {
		slot := "-"
		if s, ok := convert.SlotFor(e.Width, e.Height); ok {
			slot = s.ImageTag.String()
		}

		format := "missing"
		var payload []byte
		if ip, err := rs.FindIcon(e.ID, lang); err == nil {
			payload, _ = rs.Bytes(ip)
			format = icon.DetectFormat(payload).String()
		}
		fmt.Fprintf(tw, "%d\t%d\t%dx%d\t%d\t%d\t%s\t%s\n", i, e.ID, e.Width, e.Height, e.BitCount, e.Size, format, slot)

		if extractDir != "" && payload != nil {
			name := fmt.Sprintf("icon-%d-%dx%d-%dbpp.png", e.ID, e.Width, e.Height, e.BitCount)
			if err := extractIcon(filepath.Join(extractDir, name), payload, e); err != nil {
				slog.Warn("Failed to extract icon", "id", e.ID, "error", err)
			}
		}
	}
	return tw.Flush()
}

func extractIcon(path string, payload []byte, e icon.GroupEntry) error {
	img, err := icon.Decode(payload, e)
	if err != nil {
		return err
	}
	return writePNG(path, img)
}

func writePNG(path string, img *icon.Image) error {
	data := img.PNG
	if data == nil {
		var err error
		if data, err = icon.EncodePNG(img); err != nil {
			return err
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Info("Extracted icon", "path", path)
	return nil
}

// inspectArchive lists the records of an .icns file. RLE records are
// expanded and combined with their mask when extracting.
func inspectArchive(w io.Writer, data []byte, extractDir string) error {
	records, err := icns.Records(data)
	if err != nil {
		return err
	}

	masks := make(map[icns.OSType][]byte)
	for _, r := range records {
		masks[r.Tag] = r.Data
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tBYTES\tSIZE")
	for _, r := range records {
		size := "-"
		var slot *convert.Slot
		for i := range convert.Slots {
			if convert.Slots[i].ImageTag == r.Tag || convert.Slots[i].MaskTag == r.Tag {
				slot = &convert.Slots[i]
				size = fmt.Sprintf("%dx%d", slot.Size, slot.Size)
			}
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.Tag, len(r.Data), size)

		if extractDir == "" || slot == nil || slot.ImageTag != r.Tag {
			continue
		}
		path := filepath.Join(extractDir, fmt.Sprintf("%s.png", r.Tag))
		if err := extractRecord(path, *slot, r.Data, masks[slot.MaskTag]); err != nil {
			slog.Warn("Failed to extract record", "tag", r.Tag.String(), "error", err)
		}
	}
	return tw.Flush()
}

func extractRecord(path string, slot convert.Slot, data, mask []byte) error {
	if slot.PNG() {
		return writePNG(path, &icon.Image{PNG: data})
	}

	n := slot.Size * slot.Size
	rgb, err := icns.DecompressImage(slot.ImageTag, data, n)
	if err != nil {
		return err
	}
	img := icon.NewImage(slot.Size, slot.Size)
	img.RGB = rgb
	if len(mask) == n {
		copy(img.Mask, mask)
	} else {
		for i := range img.Mask {
			img.Mask[i] = 0xFF
		}
	}
	return writePNG(path, img)
}
