package hal

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"

	"github.com/veandco/go-sdl2/sdl"
)

const (
	sampleRate    = 44100
	toneFrequency = 440
	toneGain      = 5000
	bytesPerFrame = 2 // mono S16
)

// tone is a queued audio device playing a continuous sine. It is paused and
// unpaused rather than regenerated every tick.
type tone struct {
	device  sdl.AudioDeviceID
	samples []byte
	playing bool
}

func openTone() (*tone, error) {
	spec := &sdl.AudioSpec{
		Freq:     sampleRate,
		Format:   sdl.AUDIO_S16SYS,
		Channels: 1,
		Samples:  1024,
	}

	device, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open sdl audio device: %w", err)
	}
	slog.Debug("hal: open audio device", "device", device)

	return &tone{
		device:  device,
		samples: sineWave(sampleRate, toneFrequency, toneGain),
	}, nil
}

// sineWave renders one second of a sine at freq Hz as little endian S16.
// The length is a whole number of periods so the buffer loops cleanly.
func sineWave(rate, freq int, gain float64) []byte {
	buf := make([]byte, rate*bytesPerFrame)
	for i := 0; i < rate; i++ {
		v := math.Sin(2 * math.Pi * float64(freq) * float64(i) / float64(rate))
		binary.LittleEndian.PutUint16(buf[i*bytesPerFrame:], uint16(int16(v*gain)))
	}
	return buf
}

func (t *tone) Set(active bool) error {
	if active {
		// Keep at least half a second queued
		if sdl.GetQueuedAudioSize(t.device) < uint32(len(t.samples)/2) {
			if err := sdl.QueueAudio(t.device, t.samples); err != nil {
				return fmt.Errorf("failed to queue audio: %w", err)
			}
		}
	}

	if active != t.playing {
		sdl.PauseAudioDevice(t.device, !active)
		t.playing = active
	}

	return nil
}

func (t *tone) Close() {
	sdl.CloseAudioDevice(t.device)
}
