// Package postprocessors provides the table processing pipeline and the
// built-in processors that run on every downloaded report table.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/adreports/internal/core/domain"
	"github.com/custodia-labs/adreports/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.TablePipeline = (*Pipeline)(nil)

// Pipeline chains multiple TableProcessors and runs them in order.
// It implements the TablePipeline interface.
type Pipeline struct {
	processors []driven.TableProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.TableProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the table through all processors in order.
// The first failing processor stops the pipeline.
func (p *Pipeline) Process(ctx context.Context, table *domain.Table) error {
	if table == nil {
		return fmt.Errorf("table is nil")
	}

	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := processor.Process(ctx, table); err != nil {
			return fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	return nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.TableProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the processor names in run order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// Build creates a pipeline from configuration using the registry.
func Build(r *Registry, cfg domain.PipelineConfig) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}
