package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/proposal-customizer/internal/types"
)

// OutcomeStore persists model outcomes as a batch produces them.
type OutcomeStore interface {
	SaveOutcome(ctx context.Context, runID uuid.UUID, outcome types.ModelOutcome) error
}

// Batch is the result of a multi-model run.
type Batch struct {
	ID       uuid.UUID            `json:"id"`
	Outcomes []types.ModelOutcome `json:"outcomes"`
	Started  time.Time            `json:"started"`
	Finished time.Time            `json:"finished"`
}

// Counts returns the number of outcomes per status.
func (b *Batch) Counts() map[string]int {
	counts := make(map[string]int)
	for _, o := range b.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// RunBatch runs every request with at most Options.Workers in flight.
// Outcomes keep the order of reqs. A failing model never aborts the batch;
// the only error is ctx ending, in which case unstarted models are reported as errors.
func (e *Engine) RunBatch(ctx context.Context, reqs []Request) (*Batch, error) {
	return e.RunBatchWithID(ctx, uuid.New(), reqs)
}

// RunBatchWithID is RunBatch with a caller-chosen batch id, e.g. a database run id.
func (e *Engine) RunBatchWithID(ctx context.Context, id uuid.UUID, reqs []Request) (*Batch, error) {
	batch := &Batch{
		ID:       id,
		Outcomes: make([]types.ModelOutcome, len(reqs)),
		Started:  time.Now(),
	}
	runID := id.String()
	e.logger.Info("batch started", zap.String("run_id", runID), zap.Int("models", len(reqs)), zap.Int("workers", e.opts.Workers))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)

	for i, req := range reqs {
		g.Go(func() error {
			// each goroutine owns its own slot
			if err := gCtx.Err(); err != nil {
				batch.Outcomes[i] = types.ModelOutcome{
					Model:    req.Model,
					Template: req.Template,
					Status:   types.StatusError,
					Error:    err.Error(),
				}
				return err
			}
			outcome := e.run(gCtx, req, runID)
			batch.Outcomes[i] = outcome
			e.store(gCtx, id, outcome)
			return nil
		})
	}

	err := g.Wait()
	batch.Finished = time.Now()

	counts := batch.Counts()
	e.logger.Info("batch finished",
		zap.String("run_id", runID),
		zap.Int("ok", counts[types.StatusOK]),
		zap.Int("error", counts[types.StatusError]),
		zap.Duration("elapsed", batch.Finished.Sub(batch.Started)))

	if err != nil {
		return batch, err
	}
	return batch, ctx.Err()
}

// store saves an outcome if a store is configured. Failures are logged, never fatal.
func (e *Engine) store(ctx context.Context, id uuid.UUID, outcome types.ModelOutcome) {
	if e.opts.Store == nil {
		return
	}
	if err := e.opts.Store.SaveOutcome(ctx, id, outcome); err != nil {
		e.logger.Warn("failed to save outcome",
			zap.String("run_id", id.String()),
			zap.String("model", outcome.Model),
			zap.Error(err))
	}
}
