package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"exe2icns/internal/icns"
	"exe2icns/internal/mockexe"
)

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"setup.exe", "setup.icns"},
		{"SETUP.EXE", "SETUP.icns"},
		{"dir/App.Exe", "dir/App.icns"},
		{"tool", "tool.icns"},
		{"archive.exe.bak", "archive.exe.bak.icns"},
		{"my.app.exe", "my.app.icns"},
	}
	for _, tt := range tests {
		if got := defaultOutputPath(tt.in); got != tt.want {
			t.Errorf("defaultOutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConfirmOverwrite(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"maybe\nn\n", false},
		{"what\ny\n", true},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		if got := confirmOverwrite(strings.NewReader(tt.input), &out, "x.icns"); got != tt.want {
			t.Errorf("confirmOverwrite(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

// writeExe writes an executable with a single 256x256 PNG icon
func writeExe(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 256, 256))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	exe := mockexe.BuildIconExe([]mockexe.Icon{{ID: 1, Width: 256, Height: 256, BPP: 32, Data: buf.Bytes()}})

	path := filepath.Join(dir, "app.exe")
	if err := os.WriteFile(path, exe, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func recordTags(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	recs, err := icns.Records(data)
	if err != nil {
		t.Fatalf("Records failed: %v", err)
	}
	var out []string
	for _, r := range recs {
		out = append(out, r.Tag.String())
	}
	return out
}

func TestRun_Success(t *testing.T) {
	dir := t.TempDir()
	input := writeExe(t, dir)

	var out bytes.Buffer
	if code := run([]string{input}, strings.NewReader(""), &out); code != exitOK {
		t.Fatalf("run() = %d, output:\n%s", code, out.String())
	}
	got := recordTags(t, filepath.Join(dir, "app.icns"))
	if strings.Join(got, ",") != "ic08,it32,t8mk" {
		t.Errorf("records = %v", got)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		return path
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"invalid executable", []string{write("bad.exe", []byte("MZ but nothing else"))}, exitInvalidExecutable},
		{"no icon", []string{write("plain.exe", mockexe.Build(nil, mockexe.Options{SectionName: ".text"}))}, exitNoIcon},
		{"missing input", []string{filepath.Join(dir, "missing.exe")}, exitFailure},
		{"no arguments", nil, exitFailure},
		{"bad flag", []string{"-bogus", "x.exe"}, exitFailure},
		{"language out of range", []string{"-lang", "70000", "x.exe"}, exitFailure},
		{"help", []string{"-h"}, exitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if code := run(tt.args, strings.NewReader(""), &out); code != tt.want {
				t.Errorf("run() = %d, want %d; output:\n%s", code, tt.want, out.String())
			}
		})
	}

	for _, name := range []string{"bad.icns", "plain.icns", "missing.icns"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			t.Errorf("%s should not have been written", name)
		}
	}
}

func TestRun_Overwrite(t *testing.T) {
	dir := t.TempDir()
	input := writeExe(t, dir)
	output := filepath.Join(dir, "out.icns")
	if err := os.WriteFile(output, []byte("keep"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	var out bytes.Buffer
	if code := run([]string{"-o", output, input}, strings.NewReader("n\n"), &out); code != exitFailure {
		t.Errorf("declined overwrite: run() = %d, want %d", code, exitFailure)
	}
	if data, _ := os.ReadFile(output); string(data) != "keep" {
		t.Error("declined overwrite changed the file")
	}

	if code := run([]string{"-o", output, input}, strings.NewReader("y\n"), &out); code != exitOK {
		t.Errorf("accepted overwrite: run() = %d, want %d", code, exitOK)
	}
	if err := os.WriteFile(output, []byte("keep"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if code := run([]string{"-f", "-o", output, input}, strings.NewReader(""), &out); code != exitOK {
		t.Errorf("forced overwrite: run() = %d, want %d", code, exitOK)
	}
	if data, _ := os.ReadFile(output); string(data) == "keep" {
		t.Error("forced overwrite left the file unchanged")
	}
}

func TestRun_ConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	input := writeExe(t, dir)
	cfgPath := filepath.Join(dir, "exe2icns.yaml")
	if err := os.WriteFile(cfgPath, []byte("synthesize_128: false\nforce: true\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	output := filepath.Join(dir, "out.icns")

	var out bytes.Buffer
	if code := run([]string{"-config", cfgPath, "-o", output, input}, strings.NewReader(""), &out); code != exitOK {
		t.Fatalf("run() = %d, output:\n%s", code, out.String())
	}
	if got := recordTags(t, output); strings.Join(got, ",") != "ic08" {
		t.Errorf("config file should disable synthesis, records = %v", got)
	}

	// -n=false given explicitly wins over the file; force still comes from it
	if code := run([]string{"-config", cfgPath, "-n=false", "-o", output, input}, strings.NewReader(""), &out); code != exitOK {
		t.Fatalf("run() = %d, output:\n%s", code, out.String())
	}
	if got := recordTags(t, output); strings.Join(got, ",") != "ic08,it32,t8mk" {
		t.Errorf("flag should enable synthesis, records = %v", got)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("unknown_key: 1\n"), 0644)
	if code := run([]string{"-config", bad, input}, strings.NewReader(""), &out); code != exitFailure {
		t.Errorf("bad config: run() = %d, want %d", code, exitFailure)
	}
}

// TestRun_GrayIcon is a smoke test for an opaque icon
func TestRun_GrayIcon(t *testing.T) {
	dir := t.TempDir()
	img := image.NewPaletted(image.Rect(0, 0, 32, 32), color.Palette{color.NRGBA{R: 128, G: 128, B: 128, A: 255}})
	dib, err := mockexe.EncodeDIB(img, nil, 8)
	if err != nil {
		t.Fatalf("EncodeDIB failed: %v", err)
	}
	input := filepath.Join(dir, "gray.EXE")
	os.WriteFile(input, mockexe.BuildIconExe([]mockexe.Icon{{ID: 1, Width: 32, Height: 32, BPP: 8, Data: dib}}), 0644)

	var out bytes.Buffer
	if code := run([]string{input}, strings.NewReader(""), &out); code != exitOK {
		t.Fatalf("run() = %d, output:\n%s", code, out.String())
	}
	if got := recordTags(t, filepath.Join(dir, "gray.icns")); strings.Join(got, ",") != "il32,l8mk" {
		t.Errorf("records = %v", got)
	}
}
