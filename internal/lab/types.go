package lab

import "top-lab-exporter/internal/mathutil"

// MinVersion is the lowest .lab format revision the decoder accepts. The
// leading u16 version field must be at least this or decoding aborts.
const MinVersion = 4010

// RootSentinel is the parent id of the one bone with no parent.
const RootSentinel uint32 = 0xFFFFFFFF

// KeyEncoding identifies the on-disk representation of one keyframe. It is
// uniform for a whole file.
type KeyEncoding uint32

const (
	KeyInvalid KeyEncoding = iota
	KeyMat4x3
	KeyMat4x4
	KeyQuatPos
)

func (k KeyEncoding) String() string {
	switch k {
	case KeyMat4x3:
		return "mat4x3"
	case KeyMat4x4:
		return "mat4x4"
	case KeyQuatPos:
		return "quat+pos"
	default:
		return "invalid"
	}
}

// Header holds the fixed counts that shape the rest of the file.
type Header struct {
	BoneCount  uint32
	FrameCount uint32
	DummyCount uint32
	Encoding   KeyEncoding
}

// BoneBase is one entry of the bone table: a display name (null-terminated
// in a fixed 64-byte buffer on disk), the bone's id and its parent's id.
type BoneBase struct {
	Name     string
	ID       uint32
	ParentID uint32
}

// DummyMarker is a non-deforming attachment point rigidly fixed to a bone.
type DummyMarker struct {
	ID           uint32
	ParentBoneID uint32
	Local        mathutil.Mat4
}

// Mat43 holds the twelve floats of a packed 4×3 key in disk order: four
// 3-float columns, the fourth being translation.
type Mat43 [12]float64

// KeyTrack is one bone's keyframe sequence. Exactly one concrete variant
// exists per file, matching the header's key encoding.
type KeyTrack interface {
	Encoding() KeyEncoding
}

// Mat4x3Sequence stores packed 4×3 keys, one per frame.
type Mat4x3Sequence struct {
	Keys []Mat43
}

func (*Mat4x3Sequence) Encoding() KeyEncoding { return KeyMat4x3 }

// Mat4x4Sequence stores full 4×4 keys, one per frame.
type Mat4x4Sequence struct {
	Keys []mathutil.Mat4
}

func (*Mat4x4Sequence) Encoding() KeyEncoding { return KeyMat4x4 }

// QuatPosSequence stores parallel position and rotation sequences, one
// entry each per frame.
type QuatPosSequence struct {
	Positions []mathutil.Vec3
	Rotations []mathutil.Quat
}

func (*QuatPosSequence) Encoding() KeyEncoding { return KeyQuatPos }

// Dataset is the fully decoded content of one animation file. It is built
// once per conversion run and never mutated afterwards.
type Dataset struct {
	Header Header
	Bones  []BoneBase

	// InvBind holds one inverse bind matrix per bone position.
	InvBind []mathutil.Mat4

	// Dummies is keyed by parent bone id, values in file order.
	Dummies map[uint32][]DummyMarker

	// Tracks has one entry per bone. It is nil when the encoding is invalid.
	Tracks []KeyTrack
}
