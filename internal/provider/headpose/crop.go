package headpose

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/saturnino-fabrica-de-software/atento/internal/provider"
)

// Margins around a detected face for the loose crop the pose model expects
const (
	marginLeft   = 50
	marginTop    = 50
	marginRight  = 50
	marginBottom = 30
)

// LooseRect grows a face box by the pose model margins and clamps it to bounds
func LooseRect(box provider.BoundingBox, bounds image.Rectangle) image.Rectangle {
	r := image.Rect(
		int(box.X)-marginLeft,
		int(box.Y)-marginTop,
		int(box.X+box.Width)+marginRight,
		int(box.Y+box.Height)+marginBottom,
	)
	return r.Intersect(bounds)
}

// LooseCrop decodes an image, crops loosely around box and re-encodes as JPEG.
// It returns the crop origin so boxes found in the crop can be mapped back.
func LooseCrop(data []byte, box provider.BoundingBox) ([]byte, image.Point, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("decode image: %w", err)
	}

	rect := LooseRect(box, img.Bounds())
	if rect.Empty() {
		return nil, image.Point{}, fmt.Errorf("face box %+v outside image %v", box, img.Bounds())
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Crop(img, rect), imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, image.Point{}, fmt.Errorf("encode crop: %w", err)
	}

	return buf.Bytes(), rect.Min, nil
}
