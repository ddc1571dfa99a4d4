package site

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rodneyosodo/starfish/payload"
	"github.com/rodneyosodo/starfish/pkg/artifact"
	"github.com/rodneyosodo/starfish/pkg/errors"
	"github.com/rodneyosodo/starfish/pkg/stats"
	"github.com/rodneyosodo/starfish/pkg/svr"
	"github.com/rodneyosodo/starfish/run"
)

const (
	// MinSampleSize is the advisory threshold below which publishing a
	// payload carries re-identification risk.
	MinSampleSize = 30

	testFraction = 0.2
	splitSeed    = 42
)

// Controller runs one participant's round lifecycle for one (run, task)
// pair: prepare data, validate prior artifacts, fit, publish. Stage
// failures are contained at the stage boundary; no fit error or panic
// escapes to the caller's process.
type Controller struct {
	site   Site
	r      run.Run
	spec   run.TaskSpec
	ref    run.RoundRef
	source DataSource
	store  artifact.Store
	logger *slog.Logger

	stage run.Stage

	xTrain, xTest [][]float64
	yTrain, yTest []float64
	warm          *svr.WarmState
}

func NewController(s Site, r run.Run, ref run.RoundRef, source DataSource, store artifact.Store, logger *slog.Logger) (*Controller, error) {
	spec, ok := r.Task(ref.Sequence)
	if !ok {
		return nil, fmt.Errorf("run %s has no task at sequence %d: %w", r.ID, ref.Sequence, errors.ErrNotFound)
	}
	spec.Normalize()

	return &Controller{
		site:   s,
		r:      r,
		spec:   spec,
		ref:    ref,
		source: source,
		store:  store,
		logger: logger,
		stage:  run.Initial,
	}, nil
}

func (c *Controller) Stage() run.Stage {
	return c.stage
}

// PrepareData loads the local dataset, splits it 80/20 and, for the kernel
// model, loads the previous round's warm-start state. A sample size below
// MinSampleSize is an advisory, not a failure.
func (c *Controller) PrepareData(ctx context.Context) error {
	x, y, err := c.source.Load(ctx)
	if err != nil || len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		c.stage = run.Failed
		if err == nil {
			err = errors.ErrDataUnavailable
		}
		c.logger.Warn("Dataset is not ready",
			slog.String("run_id", c.r.ID), slog.Any("error", err))

		return fmt.Errorf("prepare data: %w", err)
	}

	if len(y) < MinSampleSize {
		c.logger.Warn("Sample size is below the minimum threshold and may pose re-identification risk",
			slog.Int("sample_size", len(y)),
			slog.Int("threshold", MinSampleSize))
	}

	c.xTrain, c.xTest, c.yTrain, c.yTest = splitTrainTest(x, y, testFraction, splitSeed)

	if c.spec.Kind == run.KindKernel && !c.ref.First() {
		c.loadWarmStart(ctx)
	}

	c.stage = run.DataReady
	c.logger.Debug("Data prepared",
		slog.String("run_id", c.r.ID),
		slog.Int("train_rows", len(c.yTrain)),
		slog.Int("test_rows", len(c.yTest)))

	return nil
}

// loadWarmStart is best effort: a missing or malformed previous global
// artifact leaves the fit cold.
func (c *Controller) loadWarmStart(ctx context.Context) {
	blob, err := c.store.Get(ctx, artifact.GlobalKey(c.r.ID, c.ref.Prev()))
	if err != nil {
		c.logger.Debug("No warm-start state from previous round", slog.Any("error", err))

		return
	}
	states, err := artifact.DecodeLines[svr.WarmState](blob)
	if err != nil || len(states) == 0 {
		c.logger.Warn("Failed to decode warm-start state", slog.Any("error", err))

		return
	}
	c.warm = &states[len(states)-1]
}

// Validate confirms the artifacts required before fitting. From the second
// round on, the previous round's global payload must be retrievable.
func (c *Controller) Validate(ctx context.Context) error {
	if c.stage != run.DataReady {
		from := c.stage
		c.stage = run.Failed

		return fmt.Errorf("validate from stage %s: %w", from, errors.ErrInvalidData)
	}

	c.logger.Debug("Round begins",
		slog.String("run_id", c.r.ID),
		slog.Int("sequence", c.ref.Sequence),
		slog.Int("round", c.ref.Round))

	if !c.ref.First() {
		if _, err := c.store.Get(ctx, artifact.GlobalKey(c.r.ID, c.ref.Prev())); err != nil {
			c.stage = run.Failed
			c.logger.Error("Previous round global artifact is missing", slog.Any("error", err))

			return fmt.Errorf("validate: %w", errors.ErrArtifactMissing)
		}
	}

	c.stage = run.Validated

	return nil
}

// Training fits the local model, computes the statistics payload and
// publishes it under this round's key. Fit failures, including panics from
// the numeric code, are caught and reported as a failed stage.
func (c *Controller) Training(ctx context.Context) (err error) {
	if c.stage != run.Validated {
		from := c.stage
		c.stage = run.Failed

		return fmt.Errorf("training from stage %s: %w", from, errors.ErrInvalidData)
	}

	defer func() {
		if r := recover(); r != nil {
			c.stage = run.Failed
			err = fmt.Errorf("panic during fit: %v: %w", r, errors.ErrFitFailure)
			c.logger.Error("Training failed", slog.Any("error", err))
		}
	}()

	var blob []byte
	switch c.spec.Kind {
	case run.KindLinear:
		blob, err = c.trainLinear()
	case run.KindKernel:
		blob, err = c.trainKernel()
	default:
		err = fmt.Errorf("model kind %q: %w", c.spec.Kind, errors.ErrInvalidData)
	}
	if err != nil {
		c.stage = run.Failed
		c.logger.Error("Training failed", slog.Any("error", err))

		return fmt.Errorf("training: %w", err)
	}
	c.stage = run.Trained

	key := artifact.LocalKey(c.r.ID, c.ref, c.site.ID)
	if err := c.store.Put(ctx, key, blob); err != nil {
		c.stage = run.Failed
		c.logger.Error("Failed to publish local payload", slog.Any("error", err))

		return fmt.Errorf("publish: %w", err)
	}
	c.stage = run.Published
	c.logger.Info("Local payload published",
		slog.String("run_id", c.r.ID),
		slog.String("site_id", c.site.ID),
		slog.Int("sequence", c.ref.Sequence),
		slog.Int("round", c.ref.Round))

	return nil
}

func (c *Controller) trainLinear() ([]byte, error) {
	res, err := stats.FitOLS(c.xTrain, c.yTrain)
	if err != nil {
		return nil, err
	}
	c.logger.Info("Linear model fitted",
		slog.Float64("r_squared", res.RSquared),
		slog.Float64("f_statistic", res.FStatistic))

	stat := stats.LinearPayload(res, c.spec.NGroupColumns)
	if err := stat.Validate(); err != nil {
		return nil, err
	}

	return artifact.EncodeLines(stat)
}

func (c *Controller) trainKernel() ([]byte, error) {
	scaler := svr.FitScaler(c.xTrain)
	xTrain := scaler.Transform(c.xTrain)
	xTest := scaler.Transform(c.xTest)

	model := svr.New(svr.Params{
		C:       c.spec.Kernel.C,
		Epsilon: c.spec.Kernel.Epsilon,
		Gamma:   c.spec.Kernel.Gamma,
	})
	if c.warm != nil {
		if err := model.SetWarmStart(*c.warm, len(xTrain[0])); err != nil {
			c.logger.Warn("Discarding incompatible warm-start state", slog.Any("error", err))
		}
	}
	if err := model.Fit(xTrain, c.yTrain); err != nil {
		return nil, err
	}

	metrics := svr.Evaluate(c.yTest, model.PredictAll(xTest))
	c.logger.Info("Kernel model fitted",
		slog.Float64("metric_r2", metrics.R2),
		slog.Float64("metric_rmse", metrics.RMSE))

	// SampleSize is the full pre-split dataset, not the training partition.
	stat := payload.KernelStats{
		SampleSize:     len(c.yTrain) + len(c.yTest),
		SupportVectors: model.SupportVectors(),
		DualCoef:       model.DualCoef(),
		Intercept:      model.Intercept(),
		MetricMSE:      metrics.MSE,
		MetricRMSE:     metrics.RMSE,
		MetricMAE:      metrics.MAE,
		MetricR2:       metrics.R2,
	}
	if err := stat.Validate(); err != nil {
		return nil, err
	}

	return artifact.EncodeLines(stat)
}

// RunRound drives the full participant lifecycle for this round.
func (c *Controller) RunRound(ctx context.Context) error {
	if err := c.PrepareData(ctx); err != nil {
		return err
	}
	if err := c.Validate(ctx); err != nil {
		return err
	}

	return c.Training(ctx)
}
