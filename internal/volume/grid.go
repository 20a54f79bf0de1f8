package volume

import "github.com/mmr-tortoise/volsynth/internal/model"

// axisCoord places index n of an axis with size voxels at the voxel centre.
// Both backends must use this exact expression so their sample points agree
// bit for bit.
func axisCoord(n, size int) float32 {
	return (float32(n) + 0.5) / float32(size)
}

// PointFor returns the sample point of voxel (i,j,k).
func PointFor(i, j, k int, dims model.Dimensions) model.Vec3 {
	return model.Vec3{
		X: axisCoord(i, dims.X),
		Y: axisCoord(j, dims.Y),
		Z: axisCoord(k, dims.Z),
	}
}

// VoxelIndex returns the row-major linear index of (i,j,k): i slowest, k fastest.
func VoxelIndex(i, j, k int, dims model.Dimensions) int {
	return (i*dims.Y+j)*dims.Z + k
}

// VoxelCoords is the inverse of VoxelIndex.
func VoxelCoords(idx int, dims model.Dimensions) (i, j, k int) {
	k = idx % dims.Z
	rest := idx / dims.Z
	j = rest % dims.Y
	i = rest / dims.Y
	return i, j, k
}
