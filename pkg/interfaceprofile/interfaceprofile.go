// Package interfaceprofile describes the immutable radio classes a router
// can carry: its stable path-type identifier plus range, bandwidth and loss
// characteristics. Profiles never change after construction; a Router owns
// an ordered sequence of them.
package interfaceprofile

// Profile is an immutable description of one radio interface class.
type Profile struct {
	// PathType stably identifies this interface class, e.g. "wifi00" or
	// "tetra00".
	PathType string

	// RangeMeters is the maximum Euclidean distance at which a peer is
	// considered reachable over this interface.
	RangeMeters float64

	// BandwidthUnitsPerSec is the link's nominal capacity. Higher is
	// better; the high-bandwidth FIB selects for maximum bandwidth.
	BandwidthUnitsPerSec float64

	// LossPercent is the link's nominal loss. Lower is better; the
	// low-loss FIB selects for minimum loss.
	LossPercent float64
}

// DefaultProfiles returns the four heterogeneous interface classes carried
// in the original simulator: two long-range/low-bandwidth "tetra" links and
// two short-range/high-bandwidth "wifi" links.
func DefaultProfiles() []Profile {
	return []Profile{
		{PathType: "tetra00", RangeMeters: 300, BandwidthUnitsPerSec: 2000, LossPercent: 10},
		{PathType: "tetra01", RangeMeters: 100, BandwidthUnitsPerSec: 30000, LossPercent: 30},
		{PathType: "wifi00", RangeMeters: 200, BandwidthUnitsPerSec: 5000, LossPercent: 5},
		{PathType: "wifi01", RangeMeters: 50, BandwidthUnitsPerSec: 10000, LossPercent: 20},
	}
}
