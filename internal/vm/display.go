package vm

const (
	ScreenWidth  = 64
	ScreenHeight = 32

	SpriteWidth = 8
)

// Display is the monochrome framebuffer, row-major, index = x + y*ScreenWidth.
type Display struct {
	pixels     [ScreenWidth * ScreenHeight]bool
	generation uint64
}

func (d *Display) Clear() {
	d.generation++
	for i := range d.pixels {
		d.pixels[i] = false
	}
}

// Draw XORs an 8-pixel-wide sprite onto the screen with its top-left corner
// at (x, y), one byte per row. Each pixel lands at index x + y*ScreenWidth, so
// a row running past the right edge continues on the next line; pixels whose
// index falls outside the buffer are skipped. It reports whether any lit
// pixel was turned off.
func (d *Display) Draw(x, y uint8, sprite []uint8) bool {
	d.generation++
	collision := false

	for row, bits := range sprite {
		for col := 0; col < SpriteWidth; col++ {
			if bits&(0x80>>col) == 0 {
				continue
			}

			i := int(x) + col + (int(y)+row)*ScreenWidth
			if i >= len(d.pixels) {
				continue
			}

			if d.pixels[i] {
				collision = true
			}
			d.pixels[i] = !d.pixels[i]
		}
	}

	return collision
}

// Pixel reports whether the pixel at (x, y) is lit. Out of range coordinates
// are never lit.
func (d *Display) Pixel(x, y int) bool {
	if x < 0 || x >= ScreenWidth || y < 0 || y >= ScreenHeight {
		return false
	}
	return d.pixels[x+y*ScreenWidth]
}

// Pixels exposes the framebuffer for presentation. Callers must not modify it.
func (d *Display) Pixels() []bool {
	return d.pixels[:]
}

// Generation changes every time the framebuffer is written, so presenters can
// skip frames that did not change.
func (d *Display) Generation() uint64 {
	return d.generation
}
