// AngelaMos | 2026
// device.go

package member

import (
	"strings"

	"github.com/mileusna/useragent"
)

const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
)

// DeviceFromUserAgent buckets a User-Agent into the categories used by the
// device histogram. Anything unrecognised counts as Desktop.
func DeviceFromUserAgent(raw string) string {
	ua := useragent.Parse(raw)
	switch {
	case ua.Tablet:
		return DeviceTablet
	// Android phones always send the Mobile token; tablets drop it.
	case ua.IsAndroid() && !strings.Contains(raw, "Mobile"):
		return DeviceTablet
	case ua.Mobile:
		return DeviceMobile
	}
	return DeviceDesktop
}
