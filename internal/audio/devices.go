// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"io"

	"github.com/gordonklaus/portaudio"

	"hearsim/internal/config"
)

// PortAudio entry points, replaced in tests.
var (
	paLibInitialize              = portaudio.Initialize
	paLibTerminate               = portaudio.Terminate
	paLibDevicesFunc             = portaudio.Devices
	paLibDefaultOutputDeviceFunc = portaudio.DefaultOutputDevice
)

// Device represents an audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowOutputLatency  float64 // milliseconds
	HighOutputLatency float64 // milliseconds
}

// Initialize sets up the PortAudio subsystem.
// This must be called before any playback or device query and paired with a Terminate() call.
func Initialize() error {
	if err := paLibInitialize(); err != nil {
		return fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return nil
}

// Terminate cleanly shuts down the PortAudio subsystem.
func Terminate() error {
	if err := paLibTerminate(); err != nil {
		return fmt.Errorf("failed to terminate PortAudio: %w", err)
	}
	return nil
}

// HostDevices returns every device PortAudio reports. IDs are indexes into
// that list and are what playback.output_device refers to.
func HostDevices() ([]Device, error) {
	infos, err := paDevices()
	if err != nil {
		return nil, err
	}
	devices := make([]Device, len(infos))
	for i, info := range infos {
		devices[i] = Device{
			ID:                i,
			Name:              info.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			LowOutputLatency:  float64(info.DefaultLowOutputLatency.Microseconds()) / 1000,
			HighOutputLatency: float64(info.DefaultHighOutputLatency.Microseconds()) / 1000,
		}
	}
	return devices, nil
}

// OutputDevices returns the devices that can play audio.
func OutputDevices() ([]Device, error) {
	all, err := HostDevices()
	if err != nil {
		return nil, err
	}
	out := make([]Device, 0, len(all))
	for _, d := range all {
		if d.MaxOutputChannels > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

// OutputDevice retrieves the audio output device for the given device ID.
// If deviceID is MinDeviceID (-1), returns the system default output device.
func OutputDevice(deviceID int) (*portaudio.DeviceInfo, error) {
	if deviceID == config.MinDeviceID {
		return paLibDefaultOutputDeviceFunc()
	}

	devices, err := paDevices()
	if err != nil {
		return nil, err
	}
	if deviceID < 0 || deviceID >= len(devices) {
		return nil, fmt.Errorf("invalid device ID: %d", deviceID)
	}
	if devices[deviceID].MaxOutputChannels < 1 {
		return nil, fmt.Errorf("device %d (%s) does not support output", deviceID, devices[deviceID].Name)
	}
	return devices[deviceID], nil
}

// ListDevices writes the output-capable devices to w.
func ListDevices(w io.Writer) error {
	devices, err := OutputDevices()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "\nAvailable Output Devices\n\n")
	if len(devices) == 0 {
		fmt.Fprintln(w, "  (none)")
		return nil
	}
	for _, d := range devices {
		fmt.Fprintf(w, "[%d] %s\n", d.ID, d.Name)
		fmt.Fprintf(w, "    Output channels: %d\n", d.MaxOutputChannels)
		fmt.Fprintf(w, "    Default sample rate: %.0f Hz\n", d.DefaultSampleRate)
		fmt.Fprintf(w, "    Latency: Low=%.2fms, High=%.2fms\n\n", d.LowOutputLatency, d.HighOutputLatency)
	}
	return nil
}

// paDevices returns all PortAudio devices, never a nil slice on success.
func paDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := paLibDevicesFunc()
	if err != nil {
		return nil, err
	}
	if devices == nil {
		devices = []*portaudio.DeviceInfo{}
	}
	return devices, nil
}
