package detect

import (
	"context"
	"errors"
	"fmt"

	"github.com/regulens/pseudonymd/internal/logger"
)

// Pipeline runs the detection layers in fixed order. Precision ordering
// is the core invariant: deterministic patterns first, then anchored
// header labels, then the statistical tagger, then the signature block.
// Each layer sees the claims of the layers before it and never
// re-detects a claimed value, so a cedula claimed by layer 1 cannot be
// reclassified as part of a name by layer 2.
type Pipeline struct {
	layers []Detector
}

// Result carries the merged detections plus per-layer counts for the
// response stats block.
type Result struct {
	Detections []Detection
	ByLayer    map[Layer]int
	Degraded   bool
}

// NewPipeline assembles the standard four-layer pipeline. rec may be
// nil, in which case the statistical layer always degrades.
func NewPipeline(rec Recognizer) *Pipeline {
	return &Pipeline{
		layers: []Detector{
			NewPatternDetector(),
			NewHeaderDetector(),
			NewNERDetector(rec),
			NewSignatureDetector(),
		},
	}
}

// NewPipelineWithLayers builds a pipeline from an explicit layer list,
// in the order given. Used by tests and by callers that disable layers.
func NewPipelineWithLayers(layers ...Detector) *Pipeline {
	return &Pipeline{layers: layers}
}

// Detect runs every layer over text and merges their detections. A
// failing statistical layer degrades the run instead of failing it;
// any other layer error aborts.
func (p *Pipeline) Detect(ctx context.Context, text string) (*Result, error) {
	result := &Result{
		ByLayer: make(map[Layer]int, len(p.layers)),
	}
	claimed := NewClaimedSet()

	for _, layer := range p.layers {
		detections, err := layer.Detect(ctx, text, claimed)
		if err != nil {
			if errors.Is(err, ErrModelUnavailable) {
				logger.WarnCtx(ctx, "detection layer degraded",
					"layer", string(layer.Name()),
					"error", err)
				result.Degraded = true
				continue
			}
			return nil, fmt.Errorf("layer %s: %w", layer.Name(), err)
		}

		result.ByLayer[layer.Name()] += len(detections)
		result.Detections = append(result.Detections, detections...)
	}

	logger.DebugCtx(ctx, "detection complete",
		"total", len(result.Detections),
		"degraded", result.Degraded)

	return result, nil
}
