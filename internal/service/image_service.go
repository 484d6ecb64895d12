package service

import (
	"bytes"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	"github.com/maheshrc27/postgate/internal/models"
	_ "golang.org/x/image/webp"
)

const (
	AspectRatioSquare   = "1/1"
	AspectRatioPortrait = "4/5"

	targetWidth          = 1080
	squareTargetHeight   = 1080
	portraitTargetHeight = 1350
)

// ImageNormalizer crops an upload to the target aspect ratio about its
// center and resizes it to the fixed publishing size.
type ImageNormalizer interface {
	Normalize(data []byte, aspectRatio string) ([]byte, string, error)
}

type imageNormalizer struct{}

func NewImageNormalizer() ImageNormalizer {
	return &imageNormalizer{}
}

var allowedImageTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "webp": {},
}

// TargetSize returns the output dimensions for an aspect ratio. Anything other
// than "1/1" is treated as portrait.
func TargetSize(aspectRatio string) (int, int) {
	if aspectRatio == AspectRatioSquare {
		return targetWidth, squareTargetHeight
	}
	return targetWidth, portraitTargetHeight
}

func (n *imageNormalizer) Normalize(data []byte, aspectRatio string) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", models.NewValidationError("image is required")
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, "", models.NewValidationError("unsupported image type")
	}
	if _, ok := allowedImageTypes[kind.Extension]; !ok {
		return nil, "", models.NewValidationError(fmt.Sprintf("image type %s is not allowed", kind.Extension))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", models.NewValidationError(fmt.Sprintf("image could not be decoded: %v", err))
	}

	width, height := TargetSize(aspectRatio)
	target := float64(width) / float64(height)

	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	cropW, cropH := srcW, srcH
	if float64(srcW)/float64(srcH) > target {
		cropW = int(math.Round(float64(srcH) * target))
	} else {
		cropH = int(math.Round(float64(srcW) / target))
	}

	cropped := imaging.CropCenter(img, cropW, cropH)
	resized := imaging.Resize(cropped, width, height, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, "", fmt.Errorf("error encoding image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
