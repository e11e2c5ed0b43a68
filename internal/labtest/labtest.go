// Package labtest builds synthetic .lab byte streams for tests.
package labtest

import (
	"encoding/binary"
	"math"
)

// Writer accumulates little-endian fields in file order.
type Writer struct {
	buf []byte
}

func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) F32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

// Name64 writes s into a null-padded 64-byte buffer.
func (w *Writer) Name64(s string) {
	var b [64]byte
	copy(b[:], s)
	w.Raw(b[:])
}

// Header writes the version tag, padding, and the four header fields.
func (w *Writer) Header(version uint16, bones, frames, dummies, encoding uint32) {
	w.U16(version)
	w.U16(0) // padding
	w.U32(bones)
	w.U32(frames)
	w.U32(dummies)
	w.U32(encoding)
}

// Bone writes one bone base record.
func (w *Writer) Bone(name string, id, parent uint32) {
	w.Name64(name)
	w.U32(id)
	w.U32(parent)
}

// Mat4 writes sixteen floats in row-major order.
func (w *Writer) Mat4(m [16]float32) {
	for _, v := range m {
		w.F32(v)
	}
}

// Identity is the row-major 4×4 identity, handy for inverse bind tables.
var Identity = [16]float32{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 1, 0,
	0, 0, 0, 1,
}

// Dummy writes one dummy marker record.
func (w *Writer) Dummy(id, parent uint32, m [16]float32) {
	w.U32(id)
	w.U32(parent)
	w.Mat4(m)
}

// BipBone is one entry of the canonical Bip01 test skeleton.
type BipBone struct {
	Name   string
	ID     uint32
	Parent uint32
}

// BipBones returns the 35-bone Bip01 hierarchy used by the end-to-end
// fixture. Bone 0 is the root (sentinel parent).
func BipBones() []BipBone {
	return []BipBone{
		{"Bip01", 0, 0xFFFFFFFF},
		{"Bip01 Footsteps", 1, 0},
		{"Bip01 Pelvis", 2, 0},
		{"Bip01 Spine", 3, 2},
		{"Bip01 Spine1", 4, 3},
		{"Bip01 Neck", 5, 4},
		{"Bip01 Head", 6, 5},
		{"Bip01 HeadNub", 7, 6},
		{"Bip01 L Clavicle", 8, 5},
		{"Bip01 L UpperArm", 9, 8},
		{"Bip01 L Forearm", 10, 9},
		{"Bip01 L Hand", 11, 10},
		{"Bip01 L Finger0", 12, 11},
		{"Bip01 L Finger0Nub", 13, 12},
		{"Bip01 R Clavicle", 14, 5},
		{"Bip01 R UpperArm", 15, 14},
		{"Bip01 R Forearm", 16, 15},
		{"Bip01 R Hand", 17, 16},
		{"Bip01 R Finger0", 18, 17},
		{"Bip01 R Finger01", 19, 18},
		{"Bip01 R Finger0Nub", 20, 19},
		{"Bip01 L Thigh", 21, 2},
		{"Bip01 L Calf", 22, 21},
		{"Bip01 L Foot", 23, 22},
		{"Bip01 L Toe0", 24, 23},
		{"Bip01 L Toe0Nub", 25, 24},
		{"Bip01 R Thigh", 26, 2},
		{"Bip01 R Calf", 27, 26},
		{"Bip01 R Foot", 28, 27},
		{"Bip01 R Toe0", 29, 28},
		{"Bip01 R Toe0Nub", 30, 29},
		{"Bip01 Ponytail1", 31, 6},
		{"Bip01 Tail1", 32, 2},
		{"Bip01 Tail2", 33, 32},
		{"Bip01 Tail2Nub", 34, 33},
	}
}

// QuatFixture assembles the end-to-end quaternion fixture: 35 bones, 228
// frames, 2 dummy markers. Every quaternion is identity; frame f of bone b
// sits at position (b, f, 0).
func QuatFixture() []byte {
	const frames = 228
	bones := BipBones()

	w := &Writer{}
	w.Header(4010, uint32(len(bones)), frames, 2, 3)

	for _, b := range bones {
		w.Bone(b.Name, b.ID, b.Parent)
	}
	for range bones {
		w.Mat4(Identity)
	}
	w.Dummy(1, 6, Identity)
	w.Dummy(2, 33, Identity)

	for b := range bones {
		for f := 0; f < frames; f++ {
			w.F32(float32(b))
			w.F32(float32(f))
			w.F32(0)
		}
		for f := 0; f < frames; f++ {
			// disk order (x, y, z, w)
			w.F32(0)
			w.F32(0)
			w.F32(0)
			w.F32(1)
		}
	}
	return w.Bytes()
}
