package workflow

import (
	"context"
	"time"

	"venue-enrichment/internal/embedding"
	"venue-enrichment/internal/models"
	errs "venue-enrichment/pkg/errors"
	"venue-enrichment/pkg/events"
	"venue-enrichment/pkg/logging"
)

// runPipeline drives one run through the state machine:
// start -> mapping -> inferring -> scoring -> dedup-check -> terminal.
// Stages only advance forward; a retry re-enters the same stage. The engine
// holds no cross-run memory; everything about the run lives on the run.
func (e *Engine) runPipeline(ctx context.Context, run *models.WorkflowRun) {
	log := e.log.WithRun(run.ID)
	// Per-run memo: identical text is embedded at most once within a run.
	emb := embedding.NewMemo(e.embedder)

	e.emit(events.RunStarted{
		Base:         e.base(run),
		SubmissionID: run.Submission.ID,
		VenueName:    run.Submission.Name,
		VendorID:     run.Submission.VendorID,
		Priority:     run.Priority,
	})
	e.advance(run, models.StageMapping, "")

	if err := e.runMapping(ctx, run, log); err != nil {
		e.fail(run, models.StageMapping, err, log)
		return
	}
	if cancelled(ctx) {
		e.fail(run, models.StageMapping, errs.ErrCancelled, log)
		return
	}

	e.advance(run, models.StageInferring, "")
	e.runInferring(ctx, run, log)
	if cancelled(ctx) {
		e.fail(run, models.StageInferring, errs.ErrCancelled, log)
		return
	}

	e.advance(run, models.StageScoring, "")
	score := e.scorer.Score(run)
	run.Score = &score

	e.advance(run, models.StageDedupCheck, "")
	e.runDedupCheck(ctx, run, emb, log)
	if cancelled(ctx) {
		e.fail(run, models.StageDedupCheck, errs.ErrCancelled, log)
		return
	}

	e.settle(run, emb, log)
}

// runMapping resolves place attributes with bounded retries. Exhausting the
// budget fails the run; the venue cannot be enriched without mapped data.
func (e *Engine) runMapping(ctx context.Context, run *models.WorkflowRun, log *logging.Logger) error {
	var lastErr error

	for attempt := 0; attempt <= e.cfg.MappingMaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.backoff(ctx, attempt); err != nil {
				return errs.ErrCancelled
			}
			e.emit(events.StageRetried{
				Base:    e.base(run),
				Stage:   string(models.StageMapping),
				Attempt: attempt + 1,
				Cause:   errs.Kind(lastErr),
			})
		}
		run.Attempts[models.StageMapping]++

		if err := e.providerLimit.Wait(ctx); err != nil {
			return errs.ErrCancelled
		}

		stageCtx, cancel := context.WithTimeout(ctx, e.cfg.MappingTimeout)
		mapped, err := e.mapper.MapPlace(stageCtx, run.Submission)
		cancel()

		if err == nil {
			run.Mapped = mapped
			return nil
		}
		lastErr = err
		log.Warn("mapping attempt failed",
			logging.Int("attempt", attempt+1),
			logging.String("cause", errs.Kind(err)))
	}

	return lastErr
}

// runInferring extracts activity candidates. An unparsable response earns
// one strict-prompt retry; other errors get the bounded retry budget. An
// exhausted budget degrades the run to an empty candidate list instead of
// failing it, so quality is scored down rather than blocked.
func (e *Engine) runInferring(ctx context.Context, run *models.WorkflowRun, log *logging.Logger) {
	strict := false
	strictRetryUsed := false
	retries := 0
	var lastErr error

	for {
		run.Attempts[models.StageInferring]++

		if err := e.modelLimit.Wait(ctx); err != nil {
			lastErr = errs.ErrCancelled
			break
		}

		stageCtx, cancel := context.WithTimeout(ctx, e.cfg.InferenceTimeout)
		cands, err := e.inferrer.Infer(stageCtx, run.Text(), run.Mapped, strict)
		cancel()

		if err == nil {
			// Empty is a valid result; it is scored accordingly.
			run.Candidates = cands
			return
		}
		lastErr = err

		if ie, ok := errs.AsInference(err); ok && ie.Reason == errs.InferenceUnparsableResponse && !strictRetryUsed {
			strictRetryUsed = true
			strict = true
			e.emit(events.StageRetried{
				Base:    e.base(run),
				Stage:   string(models.StageInferring),
				Attempt: run.Attempts[models.StageInferring] + 1,
				Cause:   errs.Kind(err),
			})
			log.Warn("inference response unparsable, retrying with strict prompt")
			continue
		}

		retries++
		if retries > e.cfg.InferenceMaxRetries || cancelled(ctx) {
			break
		}
		if err := e.backoff(ctx, retries); err != nil {
			lastErr = errs.ErrCancelled
			break
		}
		e.emit(events.StageRetried{
			Base:    e.base(run),
			Stage:   string(models.StageInferring),
			Attempt: run.Attempts[models.StageInferring] + 1,
			Cause:   errs.Kind(err),
		})
		log.Warn("inference attempt failed",
			logging.Int("attempt", run.Attempts[models.StageInferring]),
			logging.String("cause", errs.Kind(err)))
	}

	// A cancelled run is settled as failed by the pipeline; it is not a
	// degraded run and must not be scored as one.
	if cancelled(ctx) {
		return
	}

	run.InferenceDegraded = true
	run.Candidates = nil
	e.emit(events.InferenceDegraded{Base: e.base(run), Cause: errs.Kind(lastErr)})
	log.Warn("inference exhausted, scoring with empty candidates",
		logging.String("cause", errs.Kind(lastErr)))
}

// runDedupCheck embeds the run's dedup text and consults the published
// index. A near-duplicate forces needs-review regardless of score. An
// embedding failure skips the check rather than failing the run.
func (e *Engine) runDedupCheck(ctx context.Context, run *models.WorkflowRun, emb Embedder, log *logging.Logger) {
	if err := e.modelLimit.Wait(ctx); err != nil {
		return
	}

	stageCtx, cancel := context.WithTimeout(ctx, e.cfg.EmbeddingTimeout)
	vec, err := emb.Embed(stageCtx, run.DedupText())
	cancel()
	if err != nil {
		log.Warn("dedup embedding failed, skipping duplicate check",
			logging.String("cause", errs.Kind(err)))
		return
	}

	matches := e.index.Query(vec, e.cfg.DuplicateTopK)
	if len(matches) > 0 && matches[0].Similarity >= e.cfg.DuplicateThreshold {
		run.DuplicateOf = matches[0].VenueID
		run.DuplicateSimilarity = matches[0].Similarity
		e.emit(events.DuplicateFlagged{
			Base:        e.base(run),
			DuplicateOf: run.DuplicateOf,
			Similarity:  run.DuplicateSimilarity,
		})
		log.Info("near-duplicate found",
			logging.String("duplicate_of", run.DuplicateOf),
			logging.Float64("similarity", run.DuplicateSimilarity))
	}
}

// settle moves the run to its terminal state. The duplicate override wins
// over the score decision; the index only learns published venues.
func (e *Engine) settle(run *models.WorkflowRun, emb Embedder, log *logging.Logger) {
	outcome := outcomeFor(run.Score.Decision)
	if run.DuplicateOf != "" {
		outcome = models.OutcomeNeedsReview
	}
	run.Outcome = outcome

	now := time.Now()
	run.FinishedAt = &now
	e.advance(run, models.StageTerminal, string(outcome))

	if outcome == models.OutcomePublished {
		e.insertPublished(run, emb, log)
	}

	e.emit(events.RunCompleted{
		Base:     e.base(run),
		Outcome:  string(outcome),
		Scalar:   run.Score.Scalar,
		Decision: string(run.Score.Decision),
		Degraded: run.InferenceDegraded,
	})
	log.Info("run completed",
		logging.String("outcome", string(outcome)),
		logging.Float64("scalar", run.Score.Scalar))
}

// insertPublished registers the published venue in the dedup index so later
// submissions can be checked against it. The memo makes this a cache hit
// when the dedup check already embedded the same text.
func (e *Engine) insertPublished(run *models.WorkflowRun, emb Embedder, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.EmbeddingTimeout)
	defer cancel()

	vec, err := emb.Embed(ctx, run.DedupText())
	if err != nil {
		log.Warn("published venue not indexed",
			logging.String("cause", errs.Kind(err)))
		return
	}
	e.index.Insert(run.Submission.ID, vec)
}

func (e *Engine) fail(run *models.WorkflowRun, stage models.Stage, cause error, log *logging.Logger) {
	run.Outcome = models.OutcomeFailed
	run.FailureStage = stage
	run.FailureKind = errs.Kind(cause)
	run.LastErr = cause

	now := time.Now()
	run.FinishedAt = &now
	e.advance(run, models.StageTerminal, string(models.OutcomeFailed))

	e.emit(events.RunFailed{
		Base:  e.base(run),
		Stage: string(stage),
		Kind:  run.FailureKind,
		Cause: cause.Error(),
	})
	log.Error("run failed", cause,
		logging.String("stage", string(stage)),
		logging.String("kind", run.FailureKind))
}

// advance records a forward transition on the run and in the event stream.
func (e *Engine) advance(run *models.WorkflowRun, to models.Stage, note string) {
	from := run.Stage
	run.Transitions = append(run.Transitions, models.Transition{
		From: from,
		To:   to,
		At:   time.Now(),
		Note: note,
	})
	run.Stage = to
	e.storeSnapshot(run)
	e.emit(events.StageAdvanced{Base: e.base(run), From: string(from), To: string(to)})
}

// backoff sleeps attempt-squared times the base delay, honoring cancellation.
func (e *Engine) backoff(ctx context.Context, attempt int) error {
	delay := time.Duration(attempt*attempt) * e.cfg.RetryBackoff
	if delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func outcomeFor(d models.Decision) models.Outcome {
	switch d {
	case models.DecisionPublishable:
		return models.OutcomePublished
	case models.DecisionRejected:
		return models.OutcomeRejected
	default:
		return models.OutcomeNeedsReview
	}
}

func cancelled(ctx context.Context) bool { return ctx.Err() != nil }
