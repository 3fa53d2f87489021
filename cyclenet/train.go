/*
 *	Copyright 2026 The CycleModel Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package cyclenet

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/context/checkpoints"
	"github.com/gomlx/gomlx/pkg/ml/datasets"
	"github.com/gomlx/gomlx/pkg/ml/layers/regularizers"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/janpfeifer/must"
	"github.com/lunacal/cyclemodel/fedcycle"
)

// ParamsExcludedFromLoading is the list of parameters (see
// CreateDefaultContext) that shouldn't be restored from a previous
// checkpoint, and may be overwritten in further training sessions.
var ParamsExcludedFromLoading = []string{"num_checkpoints"}

// CreateDefaultContext sets the context with default hyperparameters to use
// with TrainModel.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	ctx.SetParams(map[string]any{
		// Seed for every random decision: data split, early-stopping
		// carve, shuffling and weight initialization.
		"seed": 42,

		// Number of past cycles per feature window.
		"window": fedcycle.DefaultWindow,

		// batch_size for training. It is capped at the number of
		// training examples.
		"batch_size":      200,
		"num_checkpoints": 3,

		// Early stopping: training runs up to "max_iterations" passes
		// over the training data, and stops once the loss on a held-out
		// "early_stop_fraction" of it hasn't improved by more than
		// "improvement_tolerance" for "patience" iterations.
		"max_iterations":        500,
		"patience":              20,
		"improvement_tolerance": 1e-4,
		"early_stop_fraction":   0.15,

		optimizers.ParamOptimizer:    "adam",
		optimizers.ParamLearningRate: 0.001,
		regularizers.ParamL2:         0.01,
	})
	return ctx
}

// tensorsFromExamples converts rows and targets to a pair of Float64
// tensors shaped [n, numFeatures] and [n, 1].
func tensorsFromExamples(features [][]float64, targets []float64) (inputs, labels *tensors.Tensor) {
	numFeatures := len(features[0])
	flatInputs := make([]float64, 0, len(features)*numFeatures)
	for _, row := range features {
		flatInputs = append(flatInputs, row...)
	}
	inputs = tensors.FromFlatDataAndDimensions(flatInputs, len(features), numFeatures)
	labels = tensors.FromFlatDataAndDimensions(append([]float64(nil), targets...), len(targets), 1)
	return
}

// evalLoss evaluates the trainer's loss metric on the dataset.
func evalLoss(trainer *train.Trainer, ds train.Dataset) float64 {
	values := must.M1(trainer.Eval(ds))
	ds.Reset()
	lossIdx := 0
	for idx, metric := range trainer.EvalMetrics() {
		if metric.ShortName() == "#loss" {
			lossIdx = idx
			break
		}
	}
	switch v := values[lossIdx].Value().(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		exceptions.Panicf("unexpected loss value type %T", v)
	}
	return 0
}

// trainableVariableNames are the variables per dense layer scope that early
// stopping snapshots and restores.
var trainableVariableNames = []string{"weights", "biases"}

func snapshotWeights(ctx *context.Context) []*tensors.Tensor {
	var snapshot []*tensors.Tensor
	for _, scope := range denseScopes() {
		for _, name := range trainableVariableNames {
			v := ctx.GetVariableByScopeAndName(scope, name)
			snapshot = append(snapshot, must.M1(v.MustValue().LocalClone()))
		}
	}
	return snapshot
}

func restoreWeights(ctx *context.Context, snapshot []*tensors.Tensor) {
	idx := 0
	for _, scope := range denseScopes() {
		for _, name := range trainableVariableNames {
			v := ctx.GetVariableByScopeAndName(scope, name)
			must.M(v.SetValue(snapshot[idx]))
			idx++
		}
	}
}

// TrainModel loads the CSV in dataPath, assembles the sliding-window
// dataset, trains the network with early stopping using the
// hyperparameters in ctx, and reports metrics on the test partition. If
// outputDir is not empty the model, scaler and metrics are exported there
// as JSON. It panics (with a descriptive error) on any failure, so callers
// should wrap it with exceptions.TryCatch.
//
// It returns the trained model ready for inference and the test metrics.
func TrainModel(
	ctx *context.Context,
	dataPath, outputDir, checkpointPath string,
	paramsSet []string,
	verbosity int,
) (*Model, *Metrics) {
	df := must.M1(fedcycle.LoadDataFrame(dataPath))
	if verbosity >= 1 {
		fedcycle.PrintSummary(df)
	}

	window := context.GetParamOr(ctx, "window", fedcycle.DefaultWindow)
	ds := must.M1(fedcycle.Assemble(df, window, verbosity))
	if verbosity >= 1 {
		min, max, mean := ds.TargetStats()
		fmt.Printf("Total samples: %d\n", ds.Len())
		fmt.Printf("Feature vector size: %d\n", fedcycle.NumFeatures(window))
		fmt.Printf("Target range: %.0f - %.0f days (mean %.1f)\n", min, max, mean)
	}

	seed := int64(context.GetParamOr(ctx, "seed", 42))
	split := fedcycle.SplitDataset(ds, seed)
	if verbosity >= 1 {
		fmt.Printf("Data split: train=%d, validation=%d, test=%d\n",
			split.Train.Len(), split.Validation.Len(), split.Test.Len())
	}
	if split.Train.Len() < 2 {
		exceptions.Panicf("training partition has only %d examples, not enough to train", split.Train.Len())
	}

	// Standardization is fit on the training partition only.
	scaler := FitScaler(split.Train.Features)
	scaledFeatures := scaler.Transform(split.Train.Features)

	// Carve the early-stopping examples out of the training partition. The
	// validation partition stays untouched, available for model selection
	// across training runs.
	earlyStopFraction := context.GetParamOr(ctx, "early_stop_fraction", 0.15)
	numEarlyStop := int(math.Ceil(earlyStopFraction * float64(split.Train.Len())))
	numEarlyStop = min(max(numEarlyStop, 1), split.Train.Len()-1)
	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(split.Train.Len())
	var fit, earlyStop fedcycle.Examples
	for ii, idx := range perm {
		if ii < numEarlyStop {
			earlyStop.Features = append(earlyStop.Features, scaledFeatures[idx])
			earlyStop.Targets = append(earlyStop.Targets, split.Train.Targets[idx])
		} else {
			fit.Features = append(fit.Features, scaledFeatures[idx])
			fit.Targets = append(fit.Targets, split.Train.Targets[idx])
		}
	}

	// Backend handles creation of ML computation graphs, accelerator
	// resources, etc.
	backend := backends.MustNew()
	if verbosity >= 1 {
		fmt.Printf("Backend %q:\t%s\n", backend.Name(), backend.Description())
	}
	ctx.SetRNGStateFromSeed(seed)

	batchSize := context.GetParamOr(ctx, "batch_size", 200)
	batchSize = min(batchSize, fit.Len())
	trainInputs, trainLabels := tensorsFromExamples(fit.Features, fit.Targets)
	trainDS := must.M1(datasets.InMemoryFromData(backend, "train",
		[]any{trainInputs}, []any{trainLabels})).
		WithRand(rand.New(rand.NewSource(seed))).
		Shuffle().BatchSize(batchSize, true).Infinite(true)
	earlyStopInputs, earlyStopLabels := tensorsFromExamples(earlyStop.Features, earlyStop.Targets)
	earlyStopDS := must.M1(datasets.InMemoryFromData(backend, "early-stop",
		[]any{earlyStopInputs}, []any{earlyStopLabels})).
		BatchSize(earlyStop.Len(), false)

	// Checkpoints saving.
	var checkpoint *checkpoints.Handler
	if checkpointPath != "" {
		numCheckpointsToKeep := context.GetParamOr(ctx, "num_checkpoints", 3)
		checkpoint = must.M1(checkpoints.Build(ctx).
			Dir(checkpointPath).
			Keep(numCheckpointsToKeep).
			ExcludeParams(append(paramsSet, ParamsExcludedFromLoading...)...).
			Done())
		fmt.Printf("Checkpoint: %q\n", checkpoint.Dir())
	}

	// Create a train.Trainer: this object will orchestrate running the
	// model, feeding results to the optimizer and evaluating the loss.
	trainer := train.NewTrainer(backend, ctx.In("model"), ModelGraph,
		losses.MeanSquaredError,
		optimizers.FromContext(ctx),
		nil, nil) // trainMetrics, evalMetrics
	loop := train.NewLoop(trainer)

	// One "iteration" is one pass over the fit examples, after which the
	// early-stopping loss decides whether to continue.
	stepsPerIteration := max(fit.Len()/batchSize, 1)
	maxIterations := context.GetParamOr(ctx, "max_iterations", 500)
	patience := context.GetParamOr(ctx, "patience", 20)
	tolerance := context.GetParamOr(ctx, "improvement_tolerance", 1e-4)

	bestLoss := math.Inf(1)
	bestIteration := 0
	var bestWeights []*tensors.Tensor
	var sinceImprovement int
	for iteration := 1; iteration <= maxIterations; iteration++ {
		_ = must.M1(loop.RunSteps(trainDS, stepsPerIteration))
		loss := evalLoss(trainer, earlyStopDS)
		if verbosity >= 2 {
			fmt.Printf("Iteration %d, validation loss %.6f\n", iteration, loss)
		}
		if loss < bestLoss-tolerance {
			bestLoss = loss
			bestIteration = iteration
			bestWeights = snapshotWeights(ctx)
			sinceImprovement = 0
			continue
		}
		sinceImprovement++
		if sinceImprovement >= patience {
			if verbosity >= 1 {
				fmt.Printf("Validation loss did not improve for %d iterations, stopping at iteration %d.\n",
					patience, iteration)
			}
			break
		}
	}

	// Roll back to the weights with the best early-stopping loss.
	if bestWeights != nil {
		restoreWeights(ctx, bestWeights)
	}
	if verbosity >= 1 {
		fmt.Printf("Best validation loss %.6f at iteration %d.\n", bestLoss, bestIteration)
	}
	if checkpoint != nil {
		must.M(checkpoint.Save())
	}

	model := NewModel(backend, ctx, scaler)
	metrics := model.Evaluate(split.Test)
	if verbosity >= 0 {
		fmt.Println(metrics.Render("Test set results"))
	}

	if outputDir != "" {
		params := must.M1(Params(ctx, fedcycle.NumFeatures(window)))
		must.M(Export(outputDir, params, NewScalerParams(scaler, window), metrics))
		if verbosity >= 1 {
			fmt.Printf("Model exported to %s\n", outputDir)
		}
	}
	return model, metrics
}
