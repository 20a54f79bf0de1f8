package output

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/mmr-tortoise/volsynth/internal/model"
	"github.com/mmr-tortoise/volsynth/internal/sink"
)

// Content types of the output files.
const (
	contentTypeBinary = "application/octet-stream"
	contentTypeYAML   = "application/yaml"
)

// Observer is notified of every file written. *metrics.Recorder satisfies
// it through ObserveOutput.
type Observer interface {
	ObserveOutput(kind string, n int64)
}

// Writer stores the files of each variation.
type Writer struct {
	Store sink.Store

	// Observer, if set, receives the size of every file written.
	Observer Observer
}

// NewWriter returns a Writer over store.
func NewWriter(store sink.Store, obs Observer) *Writer {
	return &Writer{Store: store, Observer: obs}
}

// Write stores the density and material streams of vol, then the manifest.
// The manifest's Write timing is filled in before it is encoded. Files
// already written are left in place when a later one fails.
func (w *Writer) Write(ctx context.Context, vol *model.Volume, m *Manifest) ([]sink.Info, error) {
	start := time.Now()
	files := m.Files
	var infos []sink.Info

	put := func(key, kind, contentType string, data []byte) error {
		info, err := w.Store.Put(ctx, key, bytes.NewReader(data), sink.PutOptions{
			ContentType: contentType,
			Metadata:    map[string]string{"run-id": m.RunID, "kind": kind},
		})
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", w.Store.Location(key), err)
		}
		if w.Observer != nil {
			w.Observer.ObserveOutput(kind, int64(len(data)))
		}
		infos = append(infos, info)
		return nil
	}

	if err := put(files.Density, "raw", contentTypeBinary, EncodeDensity(vol)); err != nil {
		return infos, err
	}
	if err := put(files.Material, "sgm", contentTypeBinary, EncodeMaterial(vol)); err != nil {
		return infos, err
	}

	m.Timings.Write = time.Since(start)
	data, err := MarshalManifest(m)
	if err != nil {
		return infos, err
	}
	if err := put(files.Manifest, "manifest", contentTypeYAML, data); err != nil {
		return infos, err
	}
	return infos, nil
}
