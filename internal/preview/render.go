package preview

import (
	"image"
	"image/color"
	"math"

	"top-lab-exporter/internal/mathutil"
	"top-lab-exporter/internal/skeleton"
	"top-lab-exporter/internal/transform"
)

var (
	boneColor  = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
	jointColor = color.NRGBA{R: 255, G: 160, B: 40, A: 255}
)

// Render draws the animated skeleton at one frame as a 2D line figure on a
// transparent background. Bone positions come from the engine's
// object-space world positions; the camera is the fixed preview camera.
// The image is rendered supersampled and downscaled to size × size.
func Render(eng *transform.Engine, tree *skeleton.Tree, frame, size, supersample int) (*image.NRGBA, error) {
	if supersample < 1 {
		supersample = 1
	}

	positions, err := eng.WorldPositions(frame)
	if err != nil {
		return nil, err
	}

	pts := make([][2]float64, len(positions))
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i, p := range positions {
		s := mathutil.PreviewCam.MulVec3(p)
		pts[i] = [2]float64{s[0], s[1]}
		minX, maxX = math.Min(minX, s[0]), math.Max(maxX, s[0])
		minY, maxY = math.Min(minY, s[1]), math.Max(maxY, s[1])
	}

	canvas := size * supersample
	img := image.NewNRGBA(image.Rect(0, 0, canvas, canvas))

	extent := math.Max(maxX-minX, maxY-minY)
	if extent < 1e-9 {
		extent = 1
	}
	// 10% margin on each side, Y flipped into screen space.
	scale := float64(canvas) * 0.8 / extent
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	toScreen := func(p [2]float64) (float64, float64) {
		return float64(canvas)/2 + (p[0]-cx)*scale, float64(canvas)/2 - (p[1]-cy)*scale
	}

	for i, j := range tree.Joints {
		if j.Parent < 0 {
			continue
		}
		x0, y0 := toScreen(pts[j.Parent])
		x1, y1 := toScreen(pts[i])
		drawLine(img, x0, y0, x1, y1, boneColor)
	}
	r := supersample
	for i := range tree.Joints {
		x, y := toScreen(pts[i])
		drawDot(img, int(x), int(y), r, jointColor)
	}

	return Downsample(img, size), nil
}

// drawLine plots a 1px segment by uniform stepping; the supersampled canvas
// hides the aliasing.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 float64, c color.NRGBA) {
	dx, dy := x1-x0, y1-y0
	steps := int(math.Max(math.Abs(dx), math.Abs(dy))) + 1
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		img.SetNRGBA(int(x0+dx*t), int(y0+dy*t), c)
	}
}

func drawDot(img *image.NRGBA, x, y, r int, c color.NRGBA) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				img.SetNRGBA(x+dx, y+dy, c)
			}
		}
	}
}
