package transform

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"top-lab-exporter/internal/lab"
	"top-lab-exporter/internal/mathutil"
)

// TrackMismatchError reports a transform request against a key encoding
// whose backing track is absent, e.g. asking for quaternion keys when the
// file is matrix-encoded. Callers never get a default matrix instead.
type TrackMismatchError struct {
	Bone int
	Want lab.KeyEncoding
	Got  lab.KeyEncoding
}

func (e *TrackMismatchError) Error() string {
	if e.Got == lab.KeyInvalid {
		return fmt.Sprintf("transform: bone %d: file key encoding is invalid, no tracks decoded", e.Bone)
	}
	return fmt.Sprintf("transform: bone %d has no %s track (file encoding is %s)", e.Bone, e.Want, e.Got)
}

// NumericError reports a matrix computation that cannot proceed.
type NumericError struct {
	Bone int
	What string
}

func (e *NumericError) Error() string {
	return fmt.Sprintf("transform: bone %d: %s", e.Bone, e.What)
}

// Engine derives local and object-space transforms from decoded key tracks.
// It never mutates the dataset and is safe for concurrent lookups.
type Engine struct {
	ds *lab.Dataset

	// Workers bounds the parallelism of Table. Zero means NumCPU.
	Workers int
}

func New(ds *lab.Dataset) *Engine {
	return &Engine{ds: ds}
}

func (e *Engine) Bones() int  { return int(e.ds.Header.BoneCount) }
func (e *Engine) Frames() int { return int(e.ds.Header.FrameCount) }

func (e *Engine) track(bone int) (lab.KeyTrack, error) {
	if e.ds.Header.Encoding == lab.KeyInvalid {
		return nil, &TrackMismatchError{Bone: bone, Want: lab.KeyInvalid, Got: lab.KeyInvalid}
	}
	if bone < 0 || bone >= len(e.ds.Tracks) {
		return nil, fmt.Errorf("transform: bone %d out of range (have %d)", bone, len(e.ds.Tracks))
	}
	return e.ds.Tracks[bone], nil
}

func (e *Engine) checkFrame(bone, frame int) error {
	if frame < 0 || frame >= e.Frames() {
		return fmt.Errorf("transform: bone %d frame %d out of range (have %d)", bone, frame, e.Frames())
	}
	return nil
}

// Local returns the bone's local transform at the given frame, derived from
// whichever key variant the file carries.
func (e *Engine) Local(bone, frame int) (mathutil.Mat4, error) {
	track, err := e.track(bone)
	if err != nil {
		return mathutil.Mat4{}, err
	}
	if err := e.checkFrame(bone, frame); err != nil {
		return mathutil.Mat4{}, err
	}

	switch tr := track.(type) {
	case *lab.QuatPosSequence:
		return quatPosLocal(tr, frame), nil
	case *lab.Mat4x3Sequence:
		return expand43(tr.Keys[frame]), nil
	case *lab.Mat4x4Sequence:
		// Stored full matrices pass through unchanged.
		return tr.Keys[frame], nil
	default:
		return mathutil.Mat4{}, &TrackMismatchError{Bone: bone, Want: lab.KeyInvalid, Got: e.ds.Header.Encoding}
	}
}

// QuatPosLocal is the quaternion-only path: it fails with a
// TrackMismatchError when the file's encoding is matrix-based.
func (e *Engine) QuatPosLocal(bone, frame int) (mathutil.Mat4, error) {
	track, err := e.track(bone)
	if err != nil {
		return mathutil.Mat4{}, err
	}
	tr, ok := track.(*lab.QuatPosSequence)
	if !ok {
		return mathutil.Mat4{}, &TrackMismatchError{Bone: bone, Want: lab.KeyQuatPos, Got: e.ds.Header.Encoding}
	}
	if err := e.checkFrame(bone, frame); err != nil {
		return mathutil.Mat4{}, err
	}
	return quatPosLocal(tr, frame), nil
}

// RestPose returns the bone's frame-0 local matrix, the bind-pose transform
// used for the scene graph.
func (e *Engine) RestPose(bone int) (mathutil.Mat4, error) {
	return e.Local(bone, 0)
}

// RestPoses returns every bone's rest-pose matrix in bone-table order.
func (e *Engine) RestPoses() ([]mathutil.Mat4, error) {
	rest := make([]mathutil.Mat4, e.Bones())
	for b := range rest {
		m, err := e.RestPose(b)
		if err != nil {
			return nil, err
		}
		rest[b] = m
	}
	return rest, nil
}

// Table holds the immutable bone_count × frame_count matrix of per-frame
// transforms.
type Table struct {
	Bones  int
	Frames int
	rows   [][]mathutil.Mat4
}

// At returns the transform for one bone at one frame.
func (t *Table) At(bone, frame int) mathutil.Mat4 { return t.rows[bone][frame] }

// Row returns one bone's full frame sequence.
func (t *Table) Row(bone int) []mathutil.Mat4 { return t.rows[bone] }

// Table computes the full per-bone, per-frame transform table. Bone tracks
// are independent, so rows are computed in parallel.
func (e *Engine) Table() (*Table, error) {
	rows := make([][]mathutil.Mat4, e.Bones())

	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for b := range rows {
		g.Go(func() error {
			row := make([]mathutil.Mat4, e.Frames())
			for f := range row {
				m, err := e.Local(b, f)
				if err != nil {
					return err
				}
				row[f] = m
			}
			rows[b] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Table{Bones: e.Bones(), Frames: e.Frames(), rows: rows}, nil
}

// WorldPosition reproduces the bone's animated position in object space:
// the bind-pose origin (translation of the inverted inverse-bind matrix)
// pushed through inverseBind · frameLocal.
func (e *Engine) WorldPosition(bone, frame int) (mathutil.Vec3, error) {
	local, err := e.Local(bone, frame)
	if err != nil {
		return mathutil.Vec3{}, err
	}

	inv := e.ds.InvBind[bone]
	bind, ok := inv.Inverse()
	if !ok {
		return mathutil.Vec3{}, &NumericError{Bone: bone, What: "inverse bind matrix is singular"}
	}
	start := bind.Translation()
	return mathutil.Mat4Mul(inv, local).MulPoint(start), nil
}

// WorldPositions returns every bone's animated position at one frame.
func (e *Engine) WorldPositions(frame int) ([]mathutil.Vec3, error) {
	out := make([]mathutil.Vec3, e.Bones())
	for b := range out {
		p, err := e.WorldPosition(b, frame)
		if err != nil {
			return nil, err
		}
		out[b] = p
	}
	return out, nil
}

func quatPosLocal(tr *lab.QuatPosSequence, frame int) mathutil.Mat4 {
	// Rotation first, translation composed after, in this fixed order.
	// Quaternions are used as stored; garbage keys yield garbage transforms.
	rot := tr.Rotations[frame].RotationMat4()
	trans := mathutil.Mat4FromTranslation(tr.Positions[frame])
	return mathutil.Mat4Mul(rot, trans)
}

// expand43 widens a packed 4×3 key. The four stored 3-float columns fill
// the top three rows of the 4×4 (translation, the fourth stored column,
// lands in the fourth matrix column) and the last row is fixed [0 0 0 1].
func expand43(k lab.Mat43) mathutil.Mat4 {
	return mathutil.Mat4{
		k[0], k[3], k[6], k[9],
		k[1], k[4], k[7], k[10],
		k[2], k[5], k[8], k[11],
		0, 0, 0, 1,
	}
}
