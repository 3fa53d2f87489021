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
	"encoding/json"
	"os"
	"path"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/lunacal/cyclemodel/fedcycle"
	"github.com/pkg/errors"
)

// Exported file names, under the output directory.
const (
	ModelFile   = "model.json"
	ScalerFile  = "scaler.json"
	MetricsFile = "training_metrics.json"
)

// Architecture describes the exported network layout.
type Architecture struct {
	InputSize    int    `json:"input_size"`
	HiddenLayers []int  `json:"hidden_layers"`
	OutputSize   int    `json:"output_size"`
	Activation   string `json:"activation"`
}

// ModelParams is the JSON layout of the exported model: per dense layer one
// weights matrix indexed [input][output] and one bias vector, ordered from
// input to output layer.
type ModelParams struct {
	Architecture Architecture  `json:"architecture"`
	Weights      [][][]float64 `json:"weights"`
	Biases       [][]float64   `json:"biases"`
}

// ScalerParams is the JSON layout of the exported feature scaler.
type ScalerParams struct {
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
	FeatureNames []string  `json:"feature_names"`
}

// Params extracts the trained dense layer weights and biases from ctx into
// an exportable form. The context must hold the variables created by
// training with ModelGraph.
func Params(ctx *context.Context, inputSize int) (*ModelParams, error) {
	params := &ModelParams{
		Architecture: Architecture{
			InputSize:    inputSize,
			HiddenLayers: HiddenLayerSizes,
			OutputSize:   1,
			Activation:   ActivationName,
		},
	}
	for _, scope := range denseScopes() {
		weightsVar := ctx.GetVariableByScopeAndName(scope, "weights")
		biasesVar := ctx.GetVariableByScopeAndName(scope, "biases")
		if weightsVar == nil || biasesVar == nil {
			return nil, errors.Errorf("no trained dense layer found in scope %q", scope)
		}
		weights := weightsVar.MustValue()
		dims := weights.Shape().Dimensions
		flat := tensors.MustCopyFlatData[float64](weights)
		matrix := make([][]float64, dims[0])
		for row := range matrix {
			matrix[row] = flat[row*dims[1] : (row+1)*dims[1]]
		}
		params.Weights = append(params.Weights, matrix)
		params.Biases = append(params.Biases, tensors.MustCopyFlatData[float64](biasesVar.MustValue()))
	}
	return params, nil
}

// NewScalerParams pairs the scaler values with the feature names for the
// given window size.
func NewScalerParams(scaler *Scaler, window int) *ScalerParams {
	return &ScalerParams{
		Mean:         scaler.Mean,
		Scale:        scaler.Scale,
		FeatureNames: fedcycle.FeatureNames(window),
	}
}

// writeJSON writes v to filePath as 2-space indented JSON with a trailing
// newline.
func writeJSON(filePath string, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to encode %q", filePath)
	}
	encoded = append(encoded, '\n')
	if err := os.WriteFile(filePath, encoded, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %q", filePath)
	}
	return nil
}

// Export writes the model, scaler and metrics JSON files to outputDir,
// creating it if needed. Exports are deterministic: the same trained
// context produces byte-identical files.
func Export(outputDir string, model *ModelParams, scaler *ScalerParams, metrics *Metrics) error {
	if err := os.MkdirAll(outputDir, 0777); err != nil {
		return errors.Wrapf(err, "failed to create output directory %q", outputDir)
	}
	if err := writeJSON(path.Join(outputDir, ModelFile), model); err != nil {
		return err
	}
	if err := writeJSON(path.Join(outputDir, ScalerFile), scaler); err != nil {
		return err
	}
	return writeJSON(path.Join(outputDir, MetricsFile), metrics)
}
