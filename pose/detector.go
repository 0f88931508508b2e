package pose

import "fmt"

type Exercise string

const (
	Pushup Exercise = "pushup"
	Squat  Exercise = "squat"
	Situp  Exercise = "situp"
)

type Side int

const (
	Left Side = iota
	Right
)

// Triple is the joint chain whose middle joint carries the tracked angle.
type Triple struct {
	A, B, C Joint
}

// Thresholds form the hysteresis band: a rep is entered below Contract and
// only counted once the angle rises above Extend.
type Thresholds struct {
	Contract float64
	Extend   float64
}

type ExerciseConfig struct {
	Exercise   Exercise
	Left       Triple
	Right      Triple
	Thresholds Thresholds
}

func (c ExerciseConfig) Triple(s Side) Triple {
	if s == Right {
		return c.Right
	}
	return c.Left
}

var exercises = map[Exercise]ExerciseConfig{
	Pushup: {
		Exercise:   Pushup,
		Left:       Triple{LeftShoulder, LeftElbow, LeftWrist},
		Right:      Triple{RightShoulder, RightElbow, RightWrist},
		Thresholds: Thresholds{Contract: 90, Extend: 160},
	},
	Squat: {
		Exercise:   Squat,
		Left:       Triple{LeftHip, LeftKnee, LeftAnkle},
		Right:      Triple{RightHip, RightKnee, RightAnkle},
		Thresholds: Thresholds{Contract: 90, Extend: 160},
	},
	Situp: {
		Exercise:   Situp,
		Left:       Triple{LeftShoulder, LeftHip, LeftKnee},
		Right:      Triple{RightShoulder, RightHip, RightKnee},
		Thresholds: Thresholds{Contract: 45, Extend: 120},
	},
}

// ConfigFor returns the fixed configuration of an exercise.
func ConfigFor(e Exercise) (ExerciseConfig, error) {
	cfg, ok := exercises[e]
	if !ok {
		return ExerciseConfig{}, fmt.Errorf("unknown exercise %q", e)
	}
	return cfg, nil
}

// State is the detector's whole memory: extended/contracted plus the count.
type State struct {
	Contracted bool
	Count      int
}

// Step applies one angle sample. counted is true only on the
// contracted -> extended transition, the single path that increments Count.
func Step(s State, angle float64, th Thresholds) (next State, counted bool) {
	switch {
	case !s.Contracted && angle < th.Contract:
		s.Contracted = true
	case s.Contracted && angle > th.Extend:
		s.Contracted = false
		s.Count++
		counted = true
	}
	return s, counted
}

// Detector counts reps of one exercise from landmark frames.
// It is not safe for concurrent use; Session serializes access.
type Detector struct {
	cfg    ExerciseConfig
	triple Triple
	state  State
}

func NewDetector(e Exercise, side Side) (*Detector, error) {
	cfg, err := ConfigFor(e)
	if err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, triple: cfg.Triple(side)}, nil
}

func (d *Detector) Reset() { d.state = State{} }

func (d *Detector) State() State { return d.state }

func (d *Detector) Count() int { return d.state.Count }

func (d *Detector) Exercise() Exercise { return d.cfg.Exercise }

// Angle extracts the tracked angle from a frame. ok is false when the frame
// carries no usable data for this exercise.
func (d *Detector) Angle(f Frame) (float64, bool) {
	a, b, c, ok := f.points(d.triple)
	if !ok {
		return 0, false
	}
	return Angle(a, b, c)
}

// Observe feeds one frame. ok is false when the frame was skipped because the
// required joints were missing, low-confidence, or degenerate.
func (d *Detector) Observe(f Frame) (counted, ok bool) {
	angle, ok := d.Angle(f)
	if !ok {
		return false, false
	}
	return d.ObserveAngle(angle), true
}

func (d *Detector) ObserveAngle(angle float64) bool {
	var counted bool
	d.state, counted = Step(d.state, angle, d.cfg.Thresholds)
	return counted
}
