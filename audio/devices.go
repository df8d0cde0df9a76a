/* SPDX-License-Identifier: MPL-2.0
 * Copyright 2026 Vocaline SDK Contributors
 *
 * See CONTRIBUTORS.md for full contributor list.
 */

package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Device describes a host audio device.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefault         bool
	IsInput           bool
	IsOutput          bool
	HostAPI           string
}

// DeviceManager enumerates host audio devices through PortAudio. Output
// implementations can use it to pick concrete devices; the CLI uses it for
// the devices command.
type DeviceManager struct {
	mu      sync.RWMutex
	devices []Device
}

// NewDeviceManager creates a new DeviceManager. Initialize must be called
// before any query.
func NewDeviceManager() *DeviceManager {
	return &DeviceManager{
		devices: make([]Device, 0),
	}
}

// Initialize starts PortAudio and loads the device list.
func (m *DeviceManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return m.refreshDevices()
}

// Close terminates PortAudio.
func (m *DeviceManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return portaudio.Terminate()
}

// refreshDevices reloads the device list. Caller holds the lock.
func (m *DeviceManager) refreshDevices() error {
	m.devices = make([]Device, 0)

	// Default device errors are not fatal; a headless host may have none.
	defaultInput, _ := portaudio.DefaultInputDevice()
	defaultOutput, _ := portaudio.DefaultOutputDevice()

	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("failed to enumerate audio devices: %w", err)
	}

	for i, dev := range devices {
		hostAPIName := "Unknown"
		if dev.HostApi != nil {
			hostAPIName = dev.HostApi.Name
		}

		device := Device{
			ID:                i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsInput:           dev.MaxInputChannels > 0,
			IsOutput:          dev.MaxOutputChannels > 0,
			HostAPI:           hostAPIName,
		}

		if (defaultInput != nil && dev == defaultInput) ||
			(defaultOutput != nil && dev == defaultOutput) {
			device.IsDefault = true
		}

		m.devices = append(m.devices, device)
	}

	return nil
}

// RefreshDevices reloads the device list.
func (m *DeviceManager) RefreshDevices() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshDevices()
}

// Devices returns all known audio devices.
func (m *DeviceManager) Devices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]Device, len(m.devices))
	copy(devices, m.devices)
	return devices
}

// InputDevices returns all devices with input channels.
func (m *DeviceManager) InputDevices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inputs := make([]Device, 0)
	for _, device := range m.devices {
		if device.IsInput {
			inputs = append(inputs, device)
		}
	}
	return inputs
}

// OutputDevices returns all devices with output channels.
func (m *DeviceManager) OutputDevices() []Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	outputs := make([]Device, 0)
	for _, device := range m.devices {
		if device.IsOutput {
			outputs = append(outputs, device)
		}
	}
	return outputs
}

// DefaultOutputDevice returns the host's default output device.
func (m *DeviceManager) DefaultOutputDevice() (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, device := range m.devices {
		if device.IsDefault && device.IsOutput {
			return &device, nil
		}
	}
	return nil, fmt.Errorf("no default output device found")
}

// DeviceByName returns the device with the given name.
func (m *DeviceManager) DeviceByName(name string) (*Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, device := range m.devices {
		if device.Name == name {
			return &device, nil
		}
	}
	return nil, fmt.Errorf("device with name %q not found", name)
}
