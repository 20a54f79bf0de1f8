package accel

import (
	"fmt"
	"math/rand/v2"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/volume"
)

// BlockSize is the number of consecutive work items that share one random
// stream on the host device. Block b of a run seeded with s draws from
// stream volume.StreamBlockBase+b.
const BlockSize = 4096

// kernel is the voxel kernel with its arguments bound to host memory.
type kernel struct {
	emptyThreshold uint32
	noiseSpread    uint32
	sphereCount    int
	dims           model.Dimensions
	spheres        []float32
	density        []uint32
	material       []int32
	seed           uint64
}

// voxel computes work item gid: decode the row-major index, classify the
// voxel centre and draw its density.
func (k *kernel) voxel(gid int, rng *rand.Rand) {
	i, j, kk := volume.VoxelCoords(gid, k.dims)
	c := volume.ClassifyFlat(volume.PointFor(i, j, kk, k.dims), k.spheres, k.sphereCount, k.emptyThreshold)
	k.material[gid] = c.Material
	k.density[gid] = uint32(volume.Density(rng, c, k.noiseSpread))
}

// block runs work items [start, end) of block b.
func (k *kernel) block(b, start, end int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel fault in block %d: %v", b, r)
		}
	}()
	rng := volume.NewRand(k.seed, volume.StreamBlockBase+uint64(b))
	for gid := start; gid < end; gid++ {
		k.voxel(gid, rng)
	}
	return nil
}
