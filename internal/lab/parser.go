package lab

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"top-lab-exporter/internal/mathutil"
)

// ErrVersion is returned when the leading version field is below MinVersion.
var ErrVersion = errors.New("lab: unsupported file version")

// DecodeError reports a structurally required read that ran past the end of
// the stream. Offset is the byte position the failed read started at.
type DecodeError struct {
	Offset int
	What   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("lab: truncated stream at offset %d while reading %s", e.Offset, e.What)
}

type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail(what string) {
	if r.err == nil {
		r.err = &DecodeError{Offset: r.off, What: what}
	}
	r.off = len(r.data)
}

func (r *reader) skip(n int, what string) {
	if r.err != nil {
		return
	}
	if r.off+n > len(r.data) {
		r.fail(what)
		return
	}
	r.off += n
}

func (r *reader) u16(what string) uint16 {
	if r.err != nil {
		return 0
	}
	if r.off+2 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32(what string) uint32 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v
}

func (r *reader) f32(what string) float64 {
	if r.err != nil {
		return 0
	}
	if r.off+4 > len(r.data) {
		r.fail(what)
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return float64(v)
}

// str reads a fixed n-byte buffer and truncates at the first null.
func (r *reader) str(n int, what string) string {
	if r.err != nil {
		return ""
	}
	if r.off+n > len(r.data) {
		r.fail(what)
		return ""
	}
	s := r.data[r.off : r.off+n]
	r.off += n
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *reader) mat4(what string) mathutil.Mat4 {
	var m mathutil.Mat4
	for i := range m {
		m[i] = r.f32(what)
	}
	return m
}

func (r *reader) vec3(what string) mathutil.Vec3 {
	var v mathutil.Vec3
	for i := range v {
		v[i] = r.f32(what)
	}
	return v
}

// quat reads a disk quaternion (x, y, z, w) and reorders it to the in-memory
// (w, x, y, z) layout.
func (r *reader) quat(what string) mathutil.Quat {
	x := r.f32(what)
	y := r.f32(what)
	z := r.f32(what)
	w := r.f32(what)
	return mathutil.Quat{w, x, y, z}
}

// DecodeHeader reads only the version gate and the fixed header fields.
func DecodeHeader(data []byte) (Header, error) {
	r := &reader{data: data}
	h, err := decodeHeader(r)
	if err != nil {
		return Header{}, err
	}
	return h, nil
}

func decodeHeader(r *reader) (Header, error) {
	version := r.u16("version")
	if r.err != nil {
		return Header{}, r.err
	}
	if version < MinVersion {
		return Header{}, fmt.Errorf("%w: got %d, need at least %d", ErrVersion, version, MinVersion)
	}
	r.skip(2, "header padding")

	var h Header
	h.BoneCount = r.u32("bone count")
	h.FrameCount = r.u32("frame count")
	h.DummyCount = r.u32("dummy count")
	rawKey := r.u32("key encoding")
	if r.err != nil {
		return Header{}, r.err
	}

	// An unknown encoding value is not a decode failure; transform requests
	// on such data fail later instead.
	switch rawKey {
	case 1:
		h.Encoding = KeyMat4x3
	case 2:
		h.Encoding = KeyMat4x4
	case 3:
		h.Encoding = KeyQuatPos
	default:
		h.Encoding = KeyInvalid
	}
	return h, nil
}

// Fixed on-disk record sizes in bytes.
const (
	boneBaseSize = 64 + 4 + 4
	mat4Size     = 16 * 4
	dummySize    = 4 + 4 + mat4Size
)

// frameStride is the per-frame key size for one bone, zero for an invalid
// encoding (no key data follows).
func frameStride(e KeyEncoding) int {
	switch e {
	case KeyMat4x3:
		return 12 * 4
	case KeyMat4x4:
		return 16 * 4
	case KeyQuatPos:
		return (3 + 4) * 4
	default:
		return 0
	}
}

// checkSizes rejects header counts the remaining stream cannot possibly
// hold. Record sizes are fixed, so the full claim is computable up front;
// without this gate a hostile header drives count-sized allocations before
// any read has a chance to fail.
func checkSizes(r *reader, h Header) error {
	remaining := uint64(len(r.data) - r.off)

	tables := uint64(h.BoneCount)*(boneBaseSize+mat4Size) + uint64(h.DummyCount)*dummySize
	if tables > remaining {
		return &DecodeError{Offset: r.off, What: fmt.Sprintf(
			"bone and dummy tables (%d bones and %d dummies need %d bytes, %d remain)",
			h.BoneCount, h.DummyCount, tables, remaining)}
	}

	// Divide instead of multiplying the three counts so the comparison
	// cannot overflow.
	perBone := uint64(h.FrameCount) * uint64(frameStride(h.Encoding))
	if h.BoneCount != 0 && perBone > (remaining-tables)/uint64(h.BoneCount) {
		return &DecodeError{Offset: r.off, What: fmt.Sprintf(
			"key data (%d bones with %d %s keys each exceed the %d bytes remaining)",
			h.BoneCount, h.FrameCount, h.Encoding, remaining-tables)}
	}
	return nil
}

// Decode parses a complete .lab byte stream into a Dataset. A truncated or
// malformed stream is a single, final failure.
func Decode(data []byte) (*Dataset, error) {
	r := &reader{data: data}

	h, err := decodeHeader(r)
	if err != nil {
		return nil, err
	}
	if err := checkSizes(r, h); err != nil {
		return nil, err
	}

	ds := &Dataset{
		Header:  h,
		Bones:   make([]BoneBase, 0, h.BoneCount),
		InvBind: make([]mathutil.Mat4, 0, h.BoneCount),
		Dummies: make(map[uint32][]DummyMarker),
	}

	for i := 0; i < int(h.BoneCount); i++ {
		what := fmt.Sprintf("bone %d base record", i)
		b := BoneBase{Name: r.str(64, what)}
		b.ID = r.u32(what)
		b.ParentID = r.u32(what)
		ds.Bones = append(ds.Bones, b)
	}

	for i := 0; i < int(h.BoneCount); i++ {
		ds.InvBind = append(ds.InvBind, r.mat4(fmt.Sprintf("bone %d inverse bind matrix", i)))
	}

	for i := 0; i < int(h.DummyCount); i++ {
		what := fmt.Sprintf("dummy %d record", i)
		d := DummyMarker{ID: r.u32(what), ParentBoneID: r.u32(what)}
		d.Local = r.mat4(what)
		if r.err == nil {
			ds.Dummies[d.ParentBoneID] = append(ds.Dummies[d.ParentBoneID], d)
		}
	}

	if err := decodeTracks(r, ds); err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return ds, nil
}

func decodeTracks(r *reader, ds *Dataset) error {
	h := ds.Header
	if h.Encoding == KeyInvalid {
		return nil
	}

	ds.Tracks = make([]KeyTrack, 0, h.BoneCount)
	for b := 0; b < int(h.BoneCount); b++ {
		switch h.Encoding {
		case KeyMat4x3:
			seq := &Mat4x3Sequence{Keys: make([]Mat43, h.FrameCount)}
			for f := range seq.Keys {
				what := fmt.Sprintf("bone %d frame %d mat4x3 key", b, f)
				for i := range seq.Keys[f] {
					seq.Keys[f][i] = r.f32(what)
				}
			}
			ds.Tracks = append(ds.Tracks, seq)

		case KeyMat4x4:
			seq := &Mat4x4Sequence{Keys: make([]mathutil.Mat4, h.FrameCount)}
			for f := range seq.Keys {
				seq.Keys[f] = r.mat4(fmt.Sprintf("bone %d frame %d mat4x4 key", b, f))
			}
			ds.Tracks = append(ds.Tracks, seq)

		case KeyQuatPos:
			seq := &QuatPosSequence{
				Positions: make([]mathutil.Vec3, h.FrameCount),
				Rotations: make([]mathutil.Quat, h.FrameCount),
			}
			for f := range seq.Positions {
				seq.Positions[f] = r.vec3(fmt.Sprintf("bone %d frame %d position key", b, f))
			}
			for f := range seq.Rotations {
				seq.Rotations[f] = r.quat(fmt.Sprintf("bone %d frame %d rotation key", b, f))
			}
			ds.Tracks = append(ds.Tracks, seq)
		}
	}
	return r.err
}
