// ABOUTME: Malgo-based audio output implementation
// ABOUTME: Uses miniaudio via malgo for callback-driven mono playback
package output

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/barosc/barosc-go/pkg/audio"
	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format

	fill    FillFunc
	onError ErrorFunc
	samples []float32 // pre-allocated callback scratch
	closing atomic.Bool
}

// NewMalgo creates a new Malgo output
func NewMalgo() *Malgo {
	return &Malgo{}
}

// Name identifies the backend
func (m *Malgo) Name() string { return "malgo" }

// DefaultSampleRate initializes a throwaway device at the native rate and
// reports what miniaudio picked for the default playback device
func (m *Malgo) DefaultSampleRate() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.initContext(); err != nil {
		return 0, err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = 0

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{})
	if err != nil {
		return 0, fmt.Errorf("failed to query default device: %w", err)
	}
	defer device.Uninit()

	return int(device.SampleRate()), nil
}

// Open initializes and starts the playback device
func (m *Malgo) Open(cfg Config, fill FillFunc, onError ErrorFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return ErrAlreadyOpen
	}

	format := audio.Format{SampleRate: cfg.SampleRate, Channels: 1, BitDepth: cfg.BitDepth}
	if format.BitDepth == 0 {
		format.BitDepth = audio.BitDepthFloat
	}
	if err := format.Validate(); err != nil {
		return err
	}

	var sampleFormat malgo.FormatType
	switch format.BitDepth {
	case audio.BitDepth16:
		sampleFormat = malgo.FormatS16
	case audio.BitDepth24:
		sampleFormat = malgo.FormatS24
	default:
		sampleFormat = malgo.FormatF32
	}

	if err := m.initContext(); err != nil {
		return err
	}

	frames := cfg.bufferFrames()
	m.samples = make([]float32, frames*2)
	m.fill = fill
	m.onError = onError
	m.format = format
	m.closing.Store(false)

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleFormat
	deviceConfig.Playback.Channels = 1
	deviceConfig.SampleRate = uint32(format.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(frames)
	deviceConfig.Alsa.NoMMap = 1

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			m.dataCallback(pOutputSample, frameCount)
		},
		Stop: m.stopCallback,
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device

	log.Printf("Audio output initialized: %dHz, mono, %d-bit (malgo/%s)",
		format.SampleRate, format.BitDepth, formatName(sampleFormat))

	return nil
}

// dataCallback is called by malgo to fill the audio output buffer
func (m *Malgo) dataCallback(pOutput []byte, frameCount uint32) {
	renderPCM(pOutput, int(frameCount), m.samples, m.format.BitDepth, m.fill)
}

// stopCallback fires whenever the device stops; outside Close it means the
// device went away underneath us
func (m *Malgo) stopCallback() {
	if m.closing.Load() {
		return
	}
	if m.onError != nil {
		m.onError(ErrDeviceStopped)
	}
}

// Close stops the device, waiting for the data callback to return
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return nil
	}

	m.closing.Store(true)
	if err := m.device.Stop(); err != nil {
		log.Printf("Warning: device stop error: %v", err)
	}
	m.device.Uninit()
	m.device = nil

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// initContext creates the malgo context if needed (must hold m.mu)
func (m *Malgo) initContext() error {
	if m.malgoCtx != nil {
		return nil
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	m.malgoCtx = ctx
	return nil
}

// formatName returns human-readable format name
func formatName(format malgo.FormatType) string {
	switch format {
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatF32:
		return "F32"
	default:
		return fmt.Sprintf("Unknown(%d)", format)
	}
}
