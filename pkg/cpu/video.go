package cpu

import (
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	"gohack/pkg/grid"
)

const (
	ScreenWidth  = 512
	ScreenHeight = 256

	wordsPerRow = ScreenWidth / 16
)

var (
	// Ink is the color of a set pixel, Paper of a clear one.
	Ink   = [4]byte{0x10, 0x10, 0x10, 0xFF}
	Paper = [4]byte{0xF0, 0xF0, 0xE8, 0xFF}
)

// Pixel reports whether the screen pixel at (x, y) is set. Bit 0 of each
// screen word is its leftmost pixel.
func (c *CPU) Pixel(x, y int) bool {
	word := c.RAM[int(ScreenBase)+grid.Index(x/16, y, wordsPerRow)]
	return word&(1<<(x%16)) != 0
}

// GetFramebufferRGBA decodes the screen map into a 512×256 RGBA8888 byte
// slice.
func (c *CPU) GetFramebufferRGBA() []byte {
	pixels := make([]byte, ScreenWidth*ScreenHeight*4)
	for i := 0; i < ScreenSize; i++ {
		word := c.RAM[int(ScreenBase)+i]
		col, row := grid.GetGridCoords(i, wordsPerRow)
		for bit := 0; bit < 16; bit++ {
			color := Paper
			if word&(1<<bit) != 0 {
				color = Ink
			}
			px := grid.Index(col*16+bit, row, ScreenWidth)
			copy(pixels[px*4:], color[:])
		}
	}
	return pixels
}

// GetFramebufferImage returns the screen as an *image.RGBA.
func (c *CPU) GetFramebufferImage() *image.RGBA {
	return &image.RGBA{
		Pix:    c.GetFramebufferRGBA(),
		Stride: ScreenWidth * 4,
		Rect:   image.Rect(0, 0, ScreenWidth, ScreenHeight),
	}
}

// ScaledFramebuffer returns the screen enlarged by an integer factor with
// nearest-neighbour sampling.
func (c *CPU) ScaledFramebuffer(scale int) *image.RGBA {
	src := c.GetFramebufferImage()
	if scale <= 1 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, ScreenWidth*scale, ScreenHeight*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// SaveScreenshot encodes the screen as a PNG and writes it to filename.
func (c *CPU) SaveScreenshot(filename string, scale int) error {
	img := c.ScaledFramebuffer(scale)
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
