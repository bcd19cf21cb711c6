package audio

import "strings"

// Bluetooth headsets commonly switch to the low-quality HSP/HFP
// profile while capturing, which hurts recognition accuracy. The
// device picker warns about names matching these markers.
var btMarkers = []string{
	"bluetooth", " bt ", " bt)", " bt]", "bluez",
	"airpods", "galaxy buds", "pixel buds",
	"jabra", "bose", "wh-1000", "wf-1000",
}

// IsBluetooth reports whether a device name looks like a bluetooth headset.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range btMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// DataCallback receives raw PCM16-LE capture data.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}
