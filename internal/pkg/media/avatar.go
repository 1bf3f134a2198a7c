package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

// AvatarSize is the edge length of stored profile pictures.
const AvatarSize = 256

// ErrUnsupportedImage is returned when an avatar upload can't be decoded.
var ErrUnsupportedImage = errors.New("unsupported image")

// ProcessAvatar decodes an uploaded image, center-crops it to a square and
// re-encodes it as a AvatarSize x AvatarSize JPEG.
func ProcessAvatar(r io.Reader) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	thumb := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return buf.Bytes(), nil
}
