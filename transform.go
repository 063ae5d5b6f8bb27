// Copyright 2025 The placehold authors.
// SPDX-License-Identifier: Apache-2.0

package placehold

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"willnorris.com/go/gifresize"

	// register decode-only image formats
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// compression quality of transformed jpegs
const jpegQuality = 95

// BlendFunc blends a decoded image toward a fixed target with a strength of
// ratio/100.  Implementations must be deterministic: the artifact cache
// relies on identical inputs producing byte-identical output.
type BlendFunc func(m image.Image, ratio int) image.Image

// FadeToWhite is the default BlendFunc.  It composites the image over an
// opaque white backdrop at opacity 1-ratio/100, fading it out as the ratio
// grows.
func FadeToWhite(m image.Image, ratio int) image.Image {
	b := m.Bounds()
	backdrop := imaging.New(b.Dx(), b.Dy(), color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	return imaging.Overlay(backdrop, m, image.Point{}, 1-float64(ratio)/100)
}

// TransformError reports a failed blend transformation and carries its root
// cause.
type TransformError struct {
	Name  string
	Ratio int
	Err   error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transforming %q at ratio %d: %v", e.Name, e.Ratio, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Transform applies blend at the given ratio to the encoded image img and
// returns a similarly encoded result.  A ratio of 0 returns img unchanged
// without re-encoding.  img should contain the raw bytes of an encoded image
// in one of the supported formats (gif, jpeg, or png, plus the registered
// decode-only formats, which encode back as png).
func Transform(img []byte, ratio int, blend BlendFunc) ([]byte, error) {
	if ratio == 0 {
		// identity; re-encoding would be lossy for jpegs
		return img, nil
	}
	if blend == nil {
		blend = FadeToWhite
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(img))
	if err != nil {
		return nil, err
	}

	if format == "gif" {
		// blend every frame so animations stay animated
		fn := func(m image.Image) image.Image { return blend(m, ratio) }
		buf := new(bytes.Buffer)
		if err := gifresize.Process(buf, bytes.NewReader(img), fn); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	m, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, err
	}
	if format == "jpeg" {
		m = normalizeOrientation(m, bytes.NewReader(img))
	}
	m = blend(m, ratio)

	buf := new(bytes.Buffer)
	switch format {
	case "jpeg":
		err = jpeg.Encode(buf, m, &jpeg.Options{Quality: jpegQuality})
	default:
		// png, plus decode-only formats
		err = png.Encode(buf, m)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalizeOrientation applies the EXIF orientation tag, if present, so that
// cached artifacts render upright regardless of how the camera stored them.
func normalizeOrientation(m image.Image, r io.Reader) image.Image {
	x, err := exif.Decode(r)
	if err != nil {
		return m
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return m
	}
	orient, err := tag.Int(0)
	if err != nil {
		return m
	}

	switch orient {
	case 2:
		m = imaging.FlipH(m)
	case 3:
		m = imaging.Rotate180(m)
	case 4:
		m = imaging.FlipV(m)
	case 5:
		m = imaging.Transpose(m)
	case 6:
		m = imaging.Rotate270(m)
	case 7:
		m = imaging.Transverse(m)
	case 8:
		m = imaging.Rotate90(m)
	}
	return m
}
