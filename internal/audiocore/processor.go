package audiocore

import (
	"context"
	"sync"

	"github.com/tphakala/audiofx/internal/errors"
	"github.com/tphakala/audiofx/internal/logger"
)

// processorChainImpl implements the ProcessorChain interface
type processorChainImpl struct {
	processors []AudioProcessor
	mu         sync.RWMutex
	log        logger.Logger
}

// NewProcessorChain creates a new processor chain
func NewProcessorChain() ProcessorChain {
	return NewProcessorChainWithLogger(logger.Global().Module("audiocore"))
}

// NewProcessorChainWithLogger creates a chain logging to l.
func NewProcessorChainWithLogger(l logger.Logger) ProcessorChain {
	return &processorChainImpl{
		processors: make([]AudioProcessor, 0),
		log:        l.With(logger.String("component", "processor_chain")),
	}
}

// AddProcessor adds a processor to the chain
func (pc *processorChainImpl) AddProcessor(processor AudioProcessor) error {
	if processor == nil {
		return errors.Newf("processor cannot be nil").
			Component(ComponentAudioCore).
			Category(errors.CategoryValidation).
			Build()
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	for _, p := range pc.processors {
		if p.ID() == processor.ID() {
			pc.log.Warn("processor already exists in chain",
				logger.String("processor_id", processor.ID()))
			return errors.Newf("processor already exists in chain").
				Component(ComponentAudioCore).
				Category(errors.CategoryConflict).
				Context("processor_id", processor.ID()).
				Build()
		}
	}

	pc.processors = append(pc.processors, processor)
	pc.log.Info("processor added to chain",
		logger.String("processor_id", processor.ID()),
		logger.Int("chain_length", len(pc.processors)))
	return nil
}

// RemoveProcessor removes a processor from the chain
func (pc *processorChainImpl) RemoveProcessor(id string) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	for i, p := range pc.processors {
		if p.ID() == id {
			pc.processors = append(pc.processors[:i], pc.processors[i+1:]...)
			pc.log.Info("processor removed from chain",
				logger.String("processor_id", id),
				logger.Int("remaining_processors", len(pc.processors)))
			return nil
		}
	}

	pc.log.Warn("processor not found for removal",
		logger.String("processor_id", id))
	return ErrProcessorNotFound
}

// Process runs audio through the entire chain
func (pc *processorChainImpl) Process(ctx context.Context, input *AudioData) (*AudioData, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if len(pc.processors) == 0 {
		return input, nil
	}

	current := input
	for _, processor := range pc.processors {
		select {
		case <-ctx.Done():
			pc.log.Debug("processor chain cancelled",
				logger.String("processor_id", processor.ID()))
			return nil, ctx.Err()
		default:
		}

		processed, err := processor.Process(ctx, current)
		if err != nil {
			pc.log.Error("processor failed",
				logger.String("processor_id", processor.ID()),
				logger.Error(err))
			return nil, errors.New(err).
				Component(ComponentAudioCore).
				Category(errors.CategoryProcessing).
				Context("processor_id", processor.ID()).
				Context("operation", "process_audio").
				Build()
		}
		current = processed
	}

	return current, nil
}

// GetProcessors returns all processors in order
func (pc *processorChainImpl) GetProcessors() []AudioProcessor {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	processors := make([]AudioProcessor, len(pc.processors))
	copy(processors, pc.processors)
	return processors
}
