// Package term runs the interpreter in a terminal with termbox-go.
//
// Terminals only report key presses, so a key is considered held until no
// press (or auto-repeat) for it was seen for HoldDuration.
package term

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kapitanov/chip8interp/internal/clock"
	"github.com/kapitanov/chip8interp/internal/vm"
	"github.com/nsf/termbox-go"
)

const HoldDuration = 150 * time.Millisecond

var keyMap = map[rune]vm.Key{
	'1': vm.Key1, '2': vm.Key2, '3': vm.Key3, '4': vm.KeyC,
	'q': vm.Key4, 'w': vm.Key5, 'e': vm.Key6, 'r': vm.KeyD,
	'a': vm.Key7, 's': vm.Key8, 'd': vm.Key9, 'f': vm.KeyE,
	'z': vm.KeyA, 'x': vm.Key0, 'c': vm.KeyB, 'v': vm.KeyF,
}

type Terminal struct {
	events chan termbox.Event
	done   chan struct{}
	keys   *keyTracker
	pacer  *clock.Pacer

	drawn      bool
	generation uint64
}

func New(tickRate int) (*Terminal, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("failed to init terminal: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc)
	termbox.HideCursor()

	t := &Terminal{
		events: make(chan termbox.Event, 64),
		done:   make(chan struct{}),
		keys:   newKeyTracker(HoldDuration),
		pacer:  clock.New(tickRate),
	}

	go t.pollEvents()
	return t, nil
}

func (t *Terminal) pollEvents() {
	for {
		e := termbox.PollEvent()
		if e.Type == termbox.EventInterrupt {
			close(t.events)
			return
		}
		t.forward(e)
	}
}

// forward hands e to ReadInput. After Shutdown the event is dropped so the
// poller keeps draining termbox until its interrupt arrives.
func (t *Terminal) forward(e termbox.Event) bool {
	select {
	case t.events <- e:
		return true
	case <-t.done:
		return false
	}
}

func (t *Terminal) Shutdown() {
	t.pacer.Stop()
	close(t.done)
	termbox.Interrupt()
	termbox.Close()
}

func (t *Terminal) ReadInput(keyDown func(vm.Key), keyUp func(vm.Key)) error {
	now := time.Now()

drain:
	for {
		select {
		case e, ok := <-t.events:
			if !ok {
				return vm.ErrQuit
			}
			if err := t.handleEvent(e, now, keyDown); err != nil {
				return err
			}
		default:
			break drain
		}
	}

	for _, key := range t.keys.expire(now) {
		keyUp(key)
	}
	return nil
}

func (t *Terminal) handleEvent(e termbox.Event, now time.Time, keyDown func(vm.Key)) error {
	switch e.Type {
	case termbox.EventError:
		return fmt.Errorf("terminal input: %w", e.Err)

	case termbox.EventResize:
		t.drawn = false

	case termbox.EventKey:
		switch e.Key {
		case termbox.KeyEsc, termbox.KeyCtrlC:
			slog.Debug("term: exit requested")
			return vm.ErrQuit
		case termbox.KeyBackspace, termbox.KeyBackspace2:
			slog.Debug("term: reboot requested")
			return vm.ErrReboot
		}

		key, ok := keyMap[e.Ch]
		if ok && t.keys.press(key, now) {
			keyDown(key)
		}
	}

	return nil
}

func (t *Terminal) Draw(display *vm.Display) error {
	if t.drawn && display.Generation() == t.generation {
		return nil
	}

	if err := termbox.Clear(termbox.ColorDefault, termbox.ColorDefault); err != nil {
		return fmt.Errorf("failed to clear terminal: %w", err)
	}

	for y, row := range renderCells(display) {
		for x, ch := range row {
			termbox.SetCell(x, y, ch, termbox.ColorWhite, termbox.ColorDefault)
		}
	}

	if err := termbox.Flush(); err != nil {
		return fmt.Errorf("failed to flush terminal: %w", err)
	}

	t.drawn = true
	t.generation = display.Generation()
	return nil
}

// SetTone does nothing, terminals have no tone device.
func (t *Terminal) SetTone(bool) error {
	return nil
}

func (t *Terminal) WaitForNextFrame() error {
	t.pacer.Wait()
	return nil
}

// renderCells packs two screen rows into each text row with half blocks.
func renderCells(display *vm.Display) [vm.ScreenHeight / 2][vm.ScreenWidth]rune {
	var cells [vm.ScreenHeight / 2][vm.ScreenWidth]rune

	for y := range cells {
		for x := range cells[y] {
			top, bottom := display.Pixel(x, 2*y), display.Pixel(x, 2*y+1)

			switch {
			case top && bottom:
				cells[y][x] = '█'
			case top:
				cells[y][x] = '▀'
			case bottom:
				cells[y][x] = '▄'
			default:
				cells[y][x] = ' '
			}
		}
	}

	return cells
}
