package collada

import (
	"encoding/xml"
	"errors"
	"strings"
	"testing"
	"time"

	"top-lab-exporter/internal/lab"
	"top-lab-exporter/internal/mathutil"
)

func testExporter() *Exporter {
	return &Exporter{Now: func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}}
}

// twoBoneDataset is a minimal quaternion-encoded file: a root and a spine,
// three frames, one dummy marker on the spine.
func twoBoneDataset(frames int) *lab.Dataset {
	ds := &lab.Dataset{
		Header: lab.Header{BoneCount: 2, FrameCount: uint32(frames), DummyCount: 1, Encoding: lab.KeyQuatPos},
		Bones: []lab.BoneBase{
			{Name: "Bip01", ID: 0, ParentID: lab.RootSentinel},
			{Name: "Bip01 Spine", ID: 1, ParentID: 0},
		},
		InvBind: []mathutil.Mat4{mathutil.Mat4Identity(), mathutil.Mat4Identity()},
		Dummies: map[uint32][]lab.DummyMarker{
			1: {{ID: 7, ParentBoneID: 1, Local: mathutil.Mat4Identity()}},
		},
	}
	for b := 0; b < 2; b++ {
		seq := &lab.QuatPosSequence{}
		for f := 0; f < frames; f++ {
			seq.Positions = append(seq.Positions, mathutil.Vec3{float64(b), 0, 0})
			seq.Rotations = append(seq.Rotations, mathutil.Quat{1, 0, 0, 0})
		}
		ds.Tracks = append(ds.Tracks, seq)
	}
	return ds
}

func exportDoc(t *testing.T, frames int) ([]byte, document) {
	t.Helper()
	out, err := testExporter().ExportDataset(twoBoneDataset(frames))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc document
	if err := xml.Unmarshal(out, &doc); err != nil {
		t.Fatalf("output is not well-formed XML: %v", err)
	}
	return out, doc
}

func TestExportDocumentShape(t *testing.T) {
	out, doc := exportDoc(t, 3)

	if !strings.HasPrefix(string(out), "<?xml version=\"1.0\" encoding=\"utf-8\"?>\n") {
		t.Errorf("missing XML declaration, got %q", string(out[:40]))
	}
	if doc.Xmlns != Namespace || doc.Version != SchemaVersion {
		t.Errorf("root attrs = %q %q", doc.Xmlns, doc.Version)
	}
	if doc.Asset.Contributor.Author != "Perseus" {
		t.Errorf("author = %q", doc.Asset.Contributor.Author)
	}
	if doc.Asset.Created != "2024-05-01T12:00:00Z" {
		t.Errorf("created = %q", doc.Asset.Created)
	}
	if doc.Asset.UpAxis != "Z_UP" {
		t.Errorf("up_axis = %q", doc.Asset.UpAxis)
	}
	if doc.Scene.Instance.URL != "#Scene" {
		t.Errorf("scene url = %q", doc.Scene.Instance.URL)
	}
}

func TestExportSceneGraph(t *testing.T) {
	_, doc := exportDoc(t, 3)

	scene := doc.VisualScenes.Scene
	if scene.ID != "Scene" || len(scene.Nodes) != 1 || scene.Nodes[0].ID != "Skeleton" {
		t.Fatalf("scene = %+v", scene)
	}

	root := scene.Nodes[0].Nodes[0]
	if root.ID != "Bip01" || root.Type != "JOINT" {
		t.Fatalf("root joint = %+v", root)
	}
	if root.Matrix == nil || len(strings.Fields(root.Matrix.Text)) != 16 {
		t.Errorf("root matrix = %+v, want 16 floats", root.Matrix)
	}

	if len(root.Nodes) != 1 {
		t.Fatalf("root children = %d, want 1", len(root.Nodes))
	}
	spine := root.Nodes[0]
	if spine.ID != "Bip01_Spine" || spine.SID != "Bip01_Spine" || spine.Name != "Bip01 Spine" {
		t.Errorf("spine node = id %q sid %q name %q", spine.ID, spine.SID, spine.Name)
	}

	if len(spine.Nodes) != 1 {
		t.Fatalf("spine children = %d, want the dummy node", len(spine.Nodes))
	}
	dummy := spine.Nodes[0]
	if dummy.ID != "Dummy_7" || dummy.Name != "Dummy 7" || dummy.Type != "NODE" {
		t.Errorf("dummy node = %+v", dummy)
	}
}

func TestExportAnimationLibrary(t *testing.T) {
	_, doc := exportDoc(t, 3)

	anims := doc.Animations.Animations
	if len(anims) != 2 {
		t.Fatalf("animations = %d, want one per bone", len(anims))
	}

	a := anims[1]
	if a.ID != "Bip01_Spine_pose_matrix" {
		t.Errorf("animation id = %q", a.ID)
	}

	inputSrc := a.Sources[0]
	if inputSrc.FloatArray.Count != 3 {
		t.Errorf("time count = %d, want 3", inputSrc.FloatArray.Count)
	}
	if got := inputSrc.FloatArray.Text; got != "0 0.04 0.08" {
		t.Errorf("time samples = %q, want \"0 0.04 0.08\"", got)
	}

	outputSrc := a.Sources[1]
	if outputSrc.FloatArray.Count != 16*3 {
		t.Errorf("output count = %d, want 48", outputSrc.FloatArray.Count)
	}
	if got := len(strings.Fields(outputSrc.FloatArray.Text)); got != 16*3 {
		t.Errorf("output floats = %d, want 48", got)
	}
	if outputSrc.Technique.Accessor.Stride != 16 {
		t.Errorf("output stride = %d, want 16", outputSrc.Technique.Accessor.Stride)
	}

	interpSrc := a.Sources[2]
	if interpSrc.NameArray.Count != 3 || interpSrc.NameArray.Text != "LINEAR LINEAR LINEAR" {
		t.Errorf("interpolation = %+v", interpSrc.NameArray)
	}

	wantInputs := map[string]string{
		"INPUT":         "#Bip01_Spine_pose_matrix-input",
		"OUTPUT":        "#Bip01_Spine_pose_matrix-output",
		"INTERPOLATION": "#Bip01_Spine_pose_matrix-interpolation",
	}
	for _, in := range a.Sampler.Inputs {
		if wantInputs[in.Semantic] != in.Source {
			t.Errorf("sampler input %s = %q", in.Semantic, in.Source)
		}
	}

	if a.Channel.Source != "#Bip01_Spine_pose_matrix-sampler" || a.Channel.Target != "Bip01_Spine/transform" {
		t.Errorf("channel = %+v", a.Channel)
	}
}

func TestTimeSamplesFixedRate(t *testing.T) {
	_, doc := exportDoc(t, 6)

	fields := strings.Fields(doc.Animations.Animations[0].Sources[0].FloatArray.Text)
	if len(fields) != 6 {
		t.Fatalf("time samples = %d, want 6", len(fields))
	}
	want := []string{"0", "0.04", "0.08", "0.12", "0.16", "0.2"}
	for i, f := range fields {
		if f != want[i] {
			t.Errorf("sample %d = %q, want %q", i, f, want[i])
		}
	}
}

func TestNameCollisionsEmittedVerbatim(t *testing.T) {
	ds := twoBoneDataset(1)
	// Distinct source names that sanitize to the same id.
	ds.Bones[1].Name = "Bip01_Spine"
	ds.Bones[0].Name = "Bip01 Spine"

	out, err := testExporter().ExportDataset(ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(string(out), "id=\"Bip01_Spine\""); got < 2 {
		t.Errorf("collided ids emitted %d times, want both", got)
	}
}

func TestImportUnsupported(t *testing.T) {
	_, err := Import([]byte("<COLLADA/>"))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}
