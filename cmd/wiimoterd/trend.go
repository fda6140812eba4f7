package main

// Trend is the discrete change of one axis between two consecutive samples.
// The event fired for a trend is "wii" + label.
type Trend string

const (
	TrendFurther      Trend = "Further"
	TrendCloser       Trend = "Closer"
	TrendSameDistance Trend = "SameDistance"

	TrendClockwise        Trend = "Clockwise"
	TrendCounterClockwise Trend = "CounterClockwise"
	TrendNoRotation       Trend = "NoRotation"

	TrendRight     Trend = "Right"
	TrendLeft      Trend = "Left"
	TrendNoLateral Trend = "NoLateral"

	TrendDown       Trend = "Down"
	TrendUp         Trend = "Up"
	TrendNoVertical Trend = "NoVertical"
)

// EventName returns the event fired for this trend.
func (t Trend) EventName() string {
	return "wii" + string(t)
}

// Fixed event names that are not trends.
const (
	EventLateralShake  = "wiiLateralShake"
	EventVerticalShake = "wiiVerticalShake"
	EventAllData       = "wiiAllData"
)

// axis describes one classified dimension of a sample.
//
// Increase is reported when the current value exceeds previous+buffer,
// Decrease when it is below previous-buffer. Greater X/Y/distance means
// right/down/further, matching screen and depth-sensor conventions.
type axis struct {
	Increase Trend
	Decrease Trend
	Neutral  Trend
}

var (
	distanceAxis = axis{Increase: TrendFurther, Decrease: TrendCloser, Neutral: TrendSameDistance}
	rotationAxis = axis{Increase: TrendClockwise, Decrease: TrendCounterClockwise, Neutral: TrendNoRotation}
	lateralAxis  = axis{Increase: TrendRight, Decrease: TrendLeft, Neutral: TrendNoLateral}
	verticalAxis = axis{Increase: TrendDown, Decrease: TrendUp, Neutral: TrendNoVertical}
)

// classify compares two readings of the same axis. Values within the buffer
// resolve to the neutral label.
func (a axis) classify(prev, cur, buffer float64) Trend {
	switch {
	case prev+buffer < cur:
		return a.Increase
	case prev-buffer > cur:
		return a.Decrease
	default:
		return a.Neutral
	}
}

func distanceTrend(prev, cur Sample, buffer float64) Trend {
	return distanceAxis.classify(prev.Distance, cur.Distance, buffer)
}

func rotationTrend(prev, cur Sample, buffer float64) Trend {
	return rotationAxis.classify(float64(prev.Rotation), float64(cur.Rotation), buffer)
}

func lateralTrend(prev, cur Sample, buffer float64) Trend {
	return lateralAxis.classify(prev.ScreenX, cur.ScreenX, buffer)
}

func verticalTrend(prev, cur Sample, buffer float64) Trend {
	return verticalAxis.classify(prev.ScreenY, cur.ScreenY, buffer)
}
