package main

import "math"

// Sample is one reading of the pointing device.
//
// ScreenX/ScreenY are pointer coordinates in pixels, Distance is the distance
// from the sensor bar/surface and RollX/RollY are the raw tilt components.
// Rotation is derived from the tilt once, when the watcher accepts the sample.
type Sample struct {
	ScreenX  float64 `json:"screen_x"`
	ScreenY  float64 `json:"screen_y"`
	Distance float64 `json:"distance"`
	RollX    float64 `json:"roll_x"`
	RollY    float64 `json:"roll_y"`
	Rotation int     `json:"rotation"`
}

// withRotation returns a copy of s with Rotation derived from the raw tilt.
func (s Sample) withRotation(adjust float64) Sample {
	s.Rotation = deriveRotation(s.RollX, s.RollY, adjust)
	return s
}

// deriveRotation scales the tilt angle and rounds half toward +Inf, so -2.5
// becomes -2 and 2.5 becomes 3.
func deriveRotation(rollX, rollY, adjust float64) int {
	return int(math.Floor(tiltRadians(rollX, rollY)*adjust/math.Pi + 0.5))
}

// tiltRadians is the raw tilt angle of the device.
func tiltRadians(rollX, rollY float64) float64 {
	return math.Atan2(rollY, rollX)
}

// SampleSource supplies one sample per poll.
// ok is false when no eligible device has anything to report.
type SampleSource interface {
	Poll() (s Sample, ok bool)
}

// SampleSourceFunc adapts a function literal to the SampleSource interface.
type SampleSourceFunc func() (Sample, bool)

// Poll calls the underlying function.
func (f SampleSourceFunc) Poll() (Sample, bool) {
	return f()
}
