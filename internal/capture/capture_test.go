package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/five82/rollcall/internal/attendance"
)

func decodeURI(t *testing.T, uri string) (int, int) {
	t.Helper()
	payload, err := attendance.StripDataURI(uri, attendance.DefaultMinImageBytes)
	if err != nil {
		t.Fatalf("StripDataURI returned error: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("decode base64: %v", err)
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode jpeg: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestFileSource_ResizesToWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.png")
	if err := imaging.Save(imaging.New(1280, 960, color.White), path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}

	uri, err := FileSource{Path: path, Width: 320}.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame returned error: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("uri prefix = %q", uri[:24])
	}
	w, h := decodeURI(t, uri)
	if w != 320 || h != 240 {
		t.Fatalf("frame = %dx%d, want 320x240", w, h)
	}
}

func TestFileSource_SmallImageKeepsSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.jpg")
	if err := imaging.Save(imaging.New(200, 100, color.Black), path); err != nil {
		t.Fatalf("save fixture: %v", err)
	}
	uri, err := FileSource{Path: path}.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame returned error: %v", err)
	}
	if w, h := decodeURI(t, uri); w != 200 || h != 100 {
		t.Fatalf("frame = %dx%d, want 200x100", w, h)
	}
}

func TestFileSource_Errors(t *testing.T) {
	if _, err := (FileSource{Path: filepath.Join(t.TempDir(), "missing.jpg")}).Frame(context.Background()); err == nil {
		t.Fatal("missing file returned nil error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (FileSource{Path: "x"}).Frame(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled ctx err = %v", err)
	}
}

func TestSynthetic(t *testing.T) {
	uri, err := Synthetic{}.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame returned error: %v", err)
	}
	if w, h := decodeURI(t, uri); w != 320 || h != 240 {
		t.Fatalf("frame = %dx%d", w, h)
	}
}

func TestNew(t *testing.T) {
	if src, _ := New("fswebcam -", "/tmp/x.jpg", 0, false); src.(CommandSource).Command != "fswebcam -" {
		t.Fatal("command should win over file")
	}
	if src, _ := New("", "/tmp/x.jpg", 0, false); src.(FileSource).Path != "/tmp/x.jpg" {
		t.Fatal("file source not chosen")
	}
	if src, _ := New("", "", 0, true); src == nil {
		t.Fatal("demo should fall back to synthetic")
	}
	if _, err := New("", "", 0, false); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err = %v, want ErrNoSource", err)
	}
	if _, err := (CommandSource{}).Frame(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("empty command err = %v", err)
	}
}
