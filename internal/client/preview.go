package client

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const PreviewMaxEdge = 480

// Preview holds what the CLI learns about an image before upload.
type Preview struct {
	JPEG   []byte
	Width  int
	Height int
}

// MakePreview decodes an image and scales it down so its longest edge is
// at most PreviewMaxEdge. Images already small enough are re-encoded as is.
func MakePreview(data []byte) (Preview, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Preview{}, err
	}
	b := src.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), PreviewMaxEdge)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 80}); err != nil {
		return Preview{}, err
	}
	return Preview{JPEG: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

func fitWithin(w, h, edge int) (int, int) {
	if w <= edge && h <= edge {
		return max(w, 1), max(h, 1)
	}
	if w >= h {
		return edge, max(1, h*edge/w)
	}
	return max(1, w*edge/h), edge
}

// ContentHash is the hex sha-256 recorded on finalize.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
