// Package batchprocessor executes multi-file ingestion batches with
// resource-aware parallelism.
//
// registry.go implements the batch registry: ID generation, status
// lookup, active-batch listing, and cleanup of old completed batches.
// All registry state lives on the Processor and is guarded by its one
// mutex.
package batchprocessor

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
)

// nextBatchID generates a unique batch ID. The in-process counter keeps
// IDs unique even when several batches start within the same second.
func (p *Processor) nextBatchID() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.batchCounter++
	return fmt.Sprintf("batch_%d_%d", time.Now().Unix(), p.batchCounter)
}

// register adds a batch to the registry.
func (p *Processor) register(batch *BatchProgress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches[batch.BatchID] = batch
}

// Status returns a snapshot of a batch by ID. The second return is
// false when the ID is unknown or already cleaned up.
func (p *Processor) Status(batchID string) (*BatchProgress, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	batch, ok := p.batches[batchID]
	if !ok {
		return nil, false
	}
	return batch.snapshot(), true
}

// ActiveBatches returns the IDs of batches that have not finished yet,
// sorted for deterministic output.
func (p *Processor) ActiveBatches() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ids []string
	for id, batch := range p.batches {
		if !batch.IsComplete() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// CleanupCompleted removes completed batches whose CompletedAt is more
// than maxAge ago and returns how many were removed. Zero removes every
// completed batch immediately; a negative maxAge falls back to the
// configured CleanupMaxAge.
func (p *Processor) CleanupCompleted(maxAge time.Duration) int {
	if maxAge < 0 {
		maxAge = p.cfg.CleanupMaxAge
	}
	cutoff := time.Now().Add(-maxAge)

	p.mu.Lock()
	var removed []string
	for id, batch := range p.batches {
		if batch.IsComplete() && !batch.CompletedAt.IsZero() && batch.CompletedAt.Before(cutoff) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(p.batches, id)
	}
	p.mu.Unlock()

	if len(removed) > 0 {
		p.logger.Info("cleaned up completed batches", zap.Int("count", len(removed)))
	}
	return len(removed)
}
