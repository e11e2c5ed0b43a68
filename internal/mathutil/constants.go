package mathutil

import "math"

// Precomputed camera matrices for the skeleton preview renderer.
var (
	// ModelFlip converts Z-up (DirectX) to Y-up screen space: Rx(-90°)
	ModelFlip = RotX(math.Pi / -2)

	// MirrorX converts left-handed to right-handed: diag(-1, 1, 1)
	MirrorX = Mat3Diag(-1, 1, 1)

	// PreviewCam is the default skeleton preview camera, slightly tilted
	// so chains along the depth axis stay visible.
	// MIRROR_X @ Rx(-15°) @ MODEL_FLIP
	PreviewCam = Mat3Mul(Mat3Mul(MirrorX, RotX(Deg2Rad(-15))), ModelFlip)
)
