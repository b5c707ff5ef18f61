// Package imageio validates uploaded food photos and converts them into
// the data-URL form the oracle engines embed in prompts.
package imageio

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"dishwise"
)

// MaxImageBytes caps uploads; anything larger is rejected before decoding.
const MaxImageBytes = 10 << 20

// Validated is the result of a successful image check.
type Validated struct {
	Meta    dishwise.ImageMeta
	MIME    string
	DataURL string
}

// Validate checks that data is a decodable image and returns its
// metadata plus an embeddable data URL.
func Validate(name string, data []byte) (*Validated, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image %q is empty", name)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image %q exceeds %d bytes", name, MaxImageBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image %q is not a supported image: %w", name, err)
	}
	mime := "image/" + format
	return &Validated{
		Meta: dishwise.ImageMeta{
			Name:   name,
			Width:  cfg.Width,
			Height: cfg.Height,
			Mode:   colorMode(cfg.ColorModel),
		},
		MIME:    mime,
		DataURL: DataURL(mime, data),
	}, nil
}

// DataURL encodes raw image bytes as a base64 data URL.
func DataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func colorMode(model color.Model) string {
	switch model {
	case color.GrayModel, color.Gray16Model:
		return "L"
	case color.YCbCrModel, color.CMYKModel, color.RGBAModel, color.RGBA64Model:
		return "RGB"
	case color.NRGBAModel, color.NRGBA64Model:
		return "RGBA"
	}
	if _, ok := model.(color.Palette); ok {
		return "P"
	}
	return "RGB"
}
