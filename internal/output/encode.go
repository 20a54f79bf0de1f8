package output

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/mmr-tortoise/volsynth/internal/model"
)

// FileSet names the output files of one variation.
type FileSet struct {
	Base     string `json:"base" yaml:"base"`
	Density  string `json:"density" yaml:"density"`
	Material string `json:"material" yaml:"material"`
	Manifest string `json:"manifest" yaml:"manifest"`
}

// Names returns the file names of variation v (0-based) for cfg.
func Names(cfg model.Config, v int) FileSet {
	base := fmt.Sprintf("%s_%d_i%d_%s", cfg.Name, v, cfg.SphereCount, cfg.Dims)
	return FileSet{
		Base:     base,
		Density:  base + ".raw",
		Material: base + ".sgm",
		Manifest: base + ".yaml",
	}
}

// EncodeDensity returns the density stream: one byte per voxel.
func EncodeDensity(vol *model.Volume) []byte {
	return bytes.Clone(vol.Density)
}

// EncodeMaterial returns the material stream: one big-endian int32 per
// voxel.
func EncodeMaterial(vol *model.Volume) []byte {
	buf := make([]byte, 0, 4*len(vol.Material))
	for _, m := range vol.Material {
		buf = binary.BigEndian.AppendUint32(buf, uint32(m))
	}
	return buf
}

// DecodeMaterial parses a material stream.
func DecodeMaterial(data []byte) ([]int32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("material stream length %d is not a multiple of 4", len(data))
	}
	out := make([]int32, len(data)/4)
	for i := range out {
		out[i] = int32(binary.BigEndian.Uint32(data[4*i:]))
	}
	return out, nil
}
