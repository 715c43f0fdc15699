// Package hal runs the interpreter on SDL2: window, keyboard and tone.
package hal

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/kapitanov/chip8interp/internal/clock"
	"github.com/kapitanov/chip8interp/internal/vm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	onColor  = uint32(0xFFFFFFFF)
	offColor = uint32(0xFF000000)
)

type Options struct {
	Scale    int
	TickRate int
	Mute     bool
}

type HAL struct {
	window          *sdl.Window
	renderer        *sdl.Renderer
	texture         *sdl.Texture
	backBuffer      []uint32
	backBufferPitch int

	tone  *tone
	pacer *clock.Pacer

	drawn      bool
	generation uint64
}

func New(opts Options) (*HAL, error) {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
		return nil, fmt.Errorf("failed to init sdl: %w", err)
	}

	h := &HAL{
		backBuffer:      make([]uint32, vm.ScreenWidth*vm.ScreenHeight),
		backBufferPitch: vm.ScreenWidth * int(unsafe.Sizeof(uint32(0))),
	}

	if err := h.initVideo(int32(opts.Scale)); err != nil {
		h.Shutdown()
		return nil, err
	}

	if !opts.Mute {
		t, err := openTone()
		if err != nil {
			h.Shutdown()
			return nil, err
		}
		h.tone = t
	}

	h.pacer = clock.New(opts.TickRate)
	return h, nil
}

func (h *HAL) initVideo(scale int32) error {
	width, height := int32(vm.ScreenWidth)*scale, int32(vm.ScreenHeight)*scale

	window, err := sdl.CreateWindow("CHIP-8", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, width, height, sdl.WINDOW_SHOWN)
	if err != nil {
		return fmt.Errorf("failed to create sdl window: %w", err)
	}
	h.window = window
	slog.Debug("hal: create window", "width", width, "height", height)

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		return fmt.Errorf("failed to create sdl renderer: %w", err)
	}
	h.renderer = renderer
	if err := renderer.SetLogicalSize(width, height); err != nil {
		return fmt.Errorf("failed to resize sdl renderer: %w", err)
	}
	slog.Debug("hal: create renderer")

	texture, err := renderer.CreateTexture(sdl.PIXELFORMAT_ARGB8888, sdl.TEXTUREACCESS_STREAMING, vm.ScreenWidth, vm.ScreenHeight)
	if err != nil {
		return fmt.Errorf("failed to create sdl texture: %w", err)
	}
	h.texture = texture
	slog.Debug("hal: create texture")

	return nil
}

func (h *HAL) Shutdown() {
	if h.pacer != nil {
		h.pacer.Stop()
	}

	if h.tone != nil {
		h.tone.Close()
	}

	if h.texture != nil {
		if err := h.texture.Destroy(); err != nil {
			slog.Error("failed to destroy sdl texture", "err", err)
		}
	}

	if h.renderer != nil {
		if err := h.renderer.Destroy(); err != nil {
			slog.Error("failed to destroy sdl renderer", "err", err)
		}
	}

	if h.window != nil {
		if err := h.window.Destroy(); err != nil {
			slog.Error("failed to destroy sdl window", "err", err)
		}
	}

	sdl.Quit()
}

func (h *HAL) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	for e := sdl.PollEvent(); e != nil; e = sdl.PollEvent() {
		switch e.GetType() {
		case sdl.QUIT:
			slog.Debug("hal: exit requested")
			return vm.ErrQuit

		case sdl.KEYDOWN:
			ke := e.(*sdl.KeyboardEvent)
			if ke.Repeat != 0 {
				continue
			}
			if ke.Keysym.Scancode == sdl.SCANCODE_BACKSPACE {
				slog.Debug("hal: reboot requested")
				return vm.ErrReboot
			}
			if key, ok := KeyMap(ke.Keysym.Scancode); ok {
				keyDown(key)
			}

		case sdl.KEYUP:
			ke := e.(*sdl.KeyboardEvent)
			if key, ok := KeyMap(ke.Keysym.Scancode); ok {
				keyUp(key)
			}
		}
	}

	return nil
}

// KeyMap translates a physical key to a keypad key.
func KeyMap(code sdl.Scancode) (vm.Key, bool) {
	// Physical                Logical
	// ================        =================
	// | 1 | 2 | 3 | 4 |       | 1 | 2 | 3 | C |
	// | q | w | e | r |       | 4 | 5 | 6 | D |
	// | a | s | d | f |  <=>  | 7 | 8 | 9 | E |
	// | z | x | c | v |       | A | 0 | B | F |
	// ================        =================

	switch code {
	case sdl.SCANCODE_X:
		return vm.Key0, true
	case sdl.SCANCODE_1:
		return vm.Key1, true
	case sdl.SCANCODE_2:
		return vm.Key2, true
	case sdl.SCANCODE_3:
		return vm.Key3, true
	case sdl.SCANCODE_Q:
		return vm.Key4, true
	case sdl.SCANCODE_W:
		return vm.Key5, true
	case sdl.SCANCODE_E:
		return vm.Key6, true
	case sdl.SCANCODE_A:
		return vm.Key7, true
	case sdl.SCANCODE_S:
		return vm.Key8, true
	case sdl.SCANCODE_D:
		return vm.Key9, true
	case sdl.SCANCODE_Z:
		return vm.KeyA, true
	case sdl.SCANCODE_C:
		return vm.KeyB, true
	case sdl.SCANCODE_4:
		return vm.KeyC, true
	case sdl.SCANCODE_R:
		return vm.KeyD, true
	case sdl.SCANCODE_F:
		return vm.KeyE, true
	case sdl.SCANCODE_V:
		return vm.KeyF, true
	default:
		return 0, false
	}
}

func (h *HAL) Draw(display *vm.Display) error {
	// Nothing changed since the last frame
	if h.drawn && display.Generation() == h.generation {
		return nil
	}

	fillBackBuffer(h.backBuffer, display)

	backBufferPtr := unsafe.Pointer(&h.backBuffer[0])
	if err := h.texture.Update(nil, backBufferPtr, h.backBufferPitch); err != nil {
		return fmt.Errorf("failed to update sdl texture: %w", err)
	}

	if err := h.renderer.Clear(); err != nil {
		return fmt.Errorf("failed to clear sdl renderer: %w", err)
	}

	if err := h.renderer.Copy(h.texture, nil, nil); err != nil {
		return fmt.Errorf("failed to copy sdl texture to renderer: %w", err)
	}

	h.renderer.Present()
	h.drawn = true
	h.generation = display.Generation()
	return nil
}

func fillBackBuffer(dst []uint32, display *vm.Display) {
	for i, on := range display.Pixels() {
		color := offColor
		if on {
			color = onColor
		}
		dst[i] = color
	}
}

func (h *HAL) SetTone(active bool) error {
	if h.tone == nil {
		return nil
	}
	return h.tone.Set(active)
}

func (h *HAL) WaitForNextFrame() error {
	h.pacer.Wait()
	return nil
}
