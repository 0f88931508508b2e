// Package pose turns body-landmark frames from an external pose estimator
// into repetition counts.
package pose

// Joint identifies a body landmark using the 33-point MediaPipe pose indices.
type Joint int

const (
	LeftShoulder  Joint = 11
	RightShoulder Joint = 12
	LeftElbow     Joint = 13
	RightElbow    Joint = 14
	LeftWrist     Joint = 15
	RightWrist    Joint = 16
	LeftHip       Joint = 23
	RightHip      Joint = 24
	LeftKnee      Joint = 25
	RightKnee     Joint = 26
	LeftAnkle     Joint = 27
	RightAnkle    Joint = 28
)

// MinVisibility is the confidence below which a landmark is ignored.
const MinVisibility = 0.5

// Landmark is a normalized 2-D joint position with the estimator's confidence.
type Landmark struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Visibility float64 `json:"visibility"`
}

func (l Landmark) Point() Point { return Point{X: l.X, Y: l.Y} }

// Frame is one estimator output. Frames are treated as immutable.
type Frame map[Joint]Landmark

// FrameFromSlice maps an estimator's ordered landmark list onto joint ids.
func FrameFromSlice(landmarks []Landmark) Frame {
	f := make(Frame, len(landmarks))
	for i, l := range landmarks {
		f[Joint(i)] = l
	}
	return f
}

// points returns the positions of the three joints, or false if any is
// missing or below MinVisibility.
func (f Frame) points(t Triple) (a, b, c Point, ok bool) {
	la, okA := f[t.A]
	lb, okB := f[t.B]
	lc, okC := f[t.C]
	if !okA || !okB || !okC {
		return a, b, c, false
	}
	if la.Visibility < MinVisibility || lb.Visibility < MinVisibility || lc.Visibility < MinVisibility {
		return a, b, c, false
	}
	return la.Point(), lb.Point(), lc.Point(), true
}
