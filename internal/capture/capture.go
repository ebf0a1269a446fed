// Package capture grabs one still frame and encodes it as a JPEG data URI.
package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// DefaultWidth bounds the submitted frame width in pixels.
	DefaultWidth = 640
	jpegQuality  = 85
	maxFrame     = 32 << 20
)

// ErrNoSource is returned when no frame source is configured.
var ErrNoSource = errors.New("no capture source configured")

// Source produces one still frame as an image data URI.
type Source interface {
	Frame(ctx context.Context) (string, error)
}

// FileSource reads the latest still written by an external camera tool.
type FileSource struct {
	Path  string
	Width int
}

// Frame decodes the file at Path and re-encodes it as a JPEG data URI.
func (s FileSource) Frame(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return "", fmt.Errorf("open frame: %w", err)
	}
	defer func() { _ = f.Close() }()
	return encode(io.LimitReader(f, maxFrame), s.Width)
}

// CommandSource runs a camera command that writes one image to stdout,
// e.g. "fswebcam --no-banner -" or "libcamera-still -o -".
type CommandSource struct {
	Command string
	Width   int
}

// Frame runs the command and encodes its stdout.
func (s CommandSource) Frame(ctx context.Context) (string, error) {
	fields := strings.Fields(s.Command)
	if len(fields) == 0 {
		return "", ErrNoSource
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("run %s: %w: %s", fields[0], err, msg)
		}
		return "", fmt.Errorf("run %s: %w", fields[0], err)
	}
	if stdout.Len() == 0 {
		return "", fmt.Errorf("run %s: no image on stdout", fields[0])
	}
	return encode(&stdout, s.Width)
}

// Synthetic renders a flat test card. The demo backend accepts any image,
// so this lets the dashboard run without a camera.
type Synthetic struct {
	Width, Height int
}

// Frame returns the test card as a JPEG data URI.
func (s Synthetic) Frame(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	w, h := s.Width, s.Height
	if w <= 0 {
		w = 320
	}
	if h <= 0 {
		h = 240
	}
	card := imaging.New(w, h, color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff})
	face := imaging.New(w/3, h/2, color.NRGBA{R: 0xf5, G: 0xd0, B: 0xa9, A: 0xff})
	card = imaging.PasteCenter(card, face)
	return encodeImage(card, 0)
}

// New picks a source from configuration: a command wins over a file, and
// with neither the synthetic test card is used when demo is true.
func New(command, file string, width int, demo bool) (Source, error) {
	switch {
	case strings.TrimSpace(command) != "":
		return CommandSource{Command: command, Width: width}, nil
	case strings.TrimSpace(file) != "":
		return FileSource{Path: file, Width: width}, nil
	case demo:
		return Synthetic{}, nil
	default:
		return nil, ErrNoSource
	}
}

func encode(r io.Reader, width int) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode frame: %w", err)
	}
	return encodeImage(img, width)
}

func encodeImage(img image.Image, width int) (string, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return "", fmt.Errorf("encode frame: %w", err)
	}
	return DataURI("image/jpeg", buf.Bytes()), nil
}

// DataURI wraps raw bytes as a base64 data URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
