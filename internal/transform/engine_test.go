package transform

import (
	"errors"
	"math"
	"testing"

	"top-lab-exporter/internal/lab"
	"top-lab-exporter/internal/mathutil"
)

func mat44Dataset(bones, frames int, key mathutil.Mat4) *lab.Dataset {
	ds := &lab.Dataset{
		Header:  lab.Header{BoneCount: uint32(bones), FrameCount: uint32(frames), Encoding: lab.KeyMat4x4},
		Dummies: map[uint32][]lab.DummyMarker{},
	}
	for b := 0; b < bones; b++ {
		ds.Bones = append(ds.Bones, lab.BoneBase{ID: uint32(b)})
		ds.InvBind = append(ds.InvBind, mathutil.Mat4Identity())
		seq := &lab.Mat4x4Sequence{}
		for f := 0; f < frames; f++ {
			seq.Keys = append(seq.Keys, key)
		}
		ds.Tracks = append(ds.Tracks, seq)
	}
	return ds
}

func quatPosDataset(frames int, pos mathutil.Vec3, rot mathutil.Quat) *lab.Dataset {
	seq := &lab.QuatPosSequence{}
	for f := 0; f < frames; f++ {
		seq.Positions = append(seq.Positions, pos)
		seq.Rotations = append(seq.Rotations, rot)
	}
	return &lab.Dataset{
		Header:  lab.Header{BoneCount: 1, FrameCount: uint32(frames), Encoding: lab.KeyQuatPos},
		Bones:   []lab.BoneBase{{ID: 0}},
		InvBind: []mathutil.Mat4{mathutil.Mat4Identity()},
		Dummies: map[uint32][]lab.DummyMarker{},
		Tracks:  []lab.KeyTrack{seq},
	}
}

func near(a, b mathutil.Mat4) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func TestRestPoseIdentityPassthrough(t *testing.T) {
	eng := New(mat44Dataset(2, 3, mathutil.Mat4Identity()))

	rest, err := eng.RestPose(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rest.IsIdentity() {
		t.Errorf("rest pose = %v, want identity", rest)
	}
}

func TestQuatPosRotationThenTranslation(t *testing.T) {
	// 90° about Z, then a unit step along X. Rotation applies first, so the
	// composed translation column is the rotated offset (0, 1, 0).
	s := math.Sqrt(0.5)
	eng := New(quatPosDataset(1, mathutil.Vec3{1, 0, 0}, mathutil.Quat{s, 0, 0, s}))

	local, err := eng.Local(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := local.Translation()
	want := mathutil.Vec3{0, 1, 0}
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("translation = %v, want %v", got, want)
		}
	}
}

func TestQuatKeysNotNormalized(t *testing.T) {
	// A non-unit quaternion must pass through as-is. With x=2 the diagonal
	// term 1-2x² becomes -7; a normalizing engine would produce 1 instead.
	eng := New(quatPosDataset(1, mathutil.Vec3{}, mathutil.Quat{0, 2, 0, 0}))

	local, err := eng.Local(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if local[5] != -7 {
		t.Errorf("m[5] = %v, want -7 (quaternion must not be normalized)", local[5])
	}
}

func TestExpand43Convention(t *testing.T) {
	// Identity basis columns plus translation (5, 6, 7) in the fourth
	// stored column; the expansion puts translation in the fourth matrix
	// column and fixes the last row.
	seq := &lab.Mat4x3Sequence{Keys: []lab.Mat43{{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
		5, 6, 7,
	}}}
	ds := &lab.Dataset{
		Header:  lab.Header{BoneCount: 1, FrameCount: 1, Encoding: lab.KeyMat4x3},
		Bones:   []lab.BoneBase{{ID: 0}},
		InvBind: []mathutil.Mat4{mathutil.Mat4Identity()},
		Dummies: map[uint32][]lab.DummyMarker{},
		Tracks:  []lab.KeyTrack{seq},
	}

	local, err := New(ds).Local(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := mathutil.Mat4{
		1, 0, 0, 5,
		0, 1, 0, 6,
		0, 0, 1, 7,
		0, 0, 0, 1,
	}
	if !near(local, want) {
		t.Errorf("expanded = %v, want %v", local, want)
	}
}

func TestQuatPosLocalOnMatrixFile(t *testing.T) {
	eng := New(mat44Dataset(1, 2, mathutil.Mat4Identity()))

	_, err := eng.QuatPosLocal(0, 0)
	var merr *TrackMismatchError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want *TrackMismatchError", err)
	}
	if merr.Bone != 0 || merr.Want != lab.KeyQuatPos || merr.Got != lab.KeyMat4x4 {
		t.Errorf("mismatch = %+v", merr)
	}
}

func TestInvalidEncodingAlwaysFails(t *testing.T) {
	ds := &lab.Dataset{
		Header:  lab.Header{BoneCount: 2, FrameCount: 4, Encoding: lab.KeyInvalid},
		Bones:   []lab.BoneBase{{ID: 0}, {ID: 1}},
		Dummies: map[uint32][]lab.DummyMarker{},
	}
	eng := New(ds)

	if _, err := eng.Local(0, 0); err == nil {
		t.Error("Local succeeded on invalid encoding")
	}
	if _, err := eng.RestPose(1); err == nil {
		t.Error("RestPose succeeded on invalid encoding")
	}
	if _, err := eng.Table(); err == nil {
		t.Error("Table succeeded on invalid encoding")
	}
}

func TestTableMatchesLocal(t *testing.T) {
	key := mathutil.Mat4FromTranslation(mathutil.Vec3{1, 2, 3})
	eng := New(mat44Dataset(3, 5, key))
	eng.Workers = 2

	table, err := eng.Table()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Bones != 3 || table.Frames != 5 {
		t.Fatalf("table dims = %d×%d, want 3×5", table.Bones, table.Frames)
	}
	for b := 0; b < table.Bones; b++ {
		for f := 0; f < table.Frames; f++ {
			if !near(table.At(b, f), key) {
				t.Fatalf("table[%d][%d] = %v, want %v", b, f, table.At(b, f), key)
			}
		}
	}
}

func TestWorldPositionIdentityBind(t *testing.T) {
	eng := New(quatPosDataset(1, mathutil.Vec3{1, 2, 3}, mathutil.Quat{1, 0, 0, 0}))

	p, err := eng.WorldPosition(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != [3]float64{1, 2, 3} {
		t.Errorf("world position = %v, want (1, 2, 3)", p)
	}
}

func TestWorldPositionSingularBind(t *testing.T) {
	ds := quatPosDataset(1, mathutil.Vec3{}, mathutil.Quat{1, 0, 0, 0})
	ds.InvBind[0] = mathutil.Mat4{} // all zeros, not invertible

	_, err := New(ds).WorldPosition(0, 0)
	var nerr *NumericError
	if !errors.As(err, &nerr) {
		t.Fatalf("err = %v, want *NumericError", err)
	}
	if nerr.Bone != 0 {
		t.Errorf("bone = %d, want 0", nerr.Bone)
	}
}
