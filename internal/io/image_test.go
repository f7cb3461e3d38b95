package ioutils

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name         string
		w, h, size   int
		wantW, wantH int
	}{
		{"landscape", 1000, 500, 200, 200, 100},
		{"portrait", 300, 600, 150, 75, 150},
		{"already small", 100, 80, 500, 100, 80},
		{"no limit", 4000, 4000, 0, 4000, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := fitWithin(tt.w, tt.h, tt.size)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("fitWithin(%d, %d, %d) = %dx%d, want %dx%d", tt.w, tt.h, tt.size, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestImageService_PrepareCover(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for x := 0; x < 400; x++ {
		for y := 0; y < 200; y++ {
			src.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	out, err := NewImageService().PrepareCover(context.Background(), buf.Bytes(), 100)
	if err != nil {
		t.Fatalf("PrepareCover() error = %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not JPEG: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Errorf("output = %dx%d, want 100x50", cfg.Width, cfg.Height)
	}
}

func TestImageService_PrepareCoverInvalid(t *testing.T) {
	if _, err := NewImageService().PrepareCover(context.Background(), []byte("not an image"), 100); err == nil {
		t.Error("expected decode error")
	}
}
