package media

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAvatar(t *testing.T) {
	src := imaging.New(640, 320, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
	var in bytes.Buffer
	require.NoError(t, imaging.Encode(&in, src, imaging.PNG))

	out, err := ProcessAvatar(&in)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, AvatarSize, img.Bounds().Dx())
	assert.Equal(t, AvatarSize, img.Bounds().Dy())
}

func TestProcessAvatarRejectsGarbage(t *testing.T) {
	_, err := ProcessAvatar(strings.NewReader("not an image"))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestSniffContentType(t *testing.T) {
	body := "%PDF-1.7\n1 0 obj\n<<>>\nendobj\n"
	ct, r, err := SniffContentType(strings.NewReader(body))
	require.NoError(t, err)
	assert.True(t, IsPDF(ct))

	replayed, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, body, string(replayed))

	ct, _, err = SniffContentType(strings.NewReader("plain words"))
	require.NoError(t, err)
	assert.False(t, IsPDF(ct))
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF("application/pdf"))
	assert.True(t, IsPDF("Application/PDF; name=notes.pdf"))
	assert.False(t, IsPDF("application/x-pdf"))
	assert.False(t, IsPDF(""))
}

func TestShareQR(t *testing.T) {
	png, err := ShareQR("https://notes.example.com/resources/42", 0)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, DefaultQRSize, img.Bounds().Dx())
}
