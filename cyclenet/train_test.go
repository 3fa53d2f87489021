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
	"fmt"
	"math"
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunacal/cyclemodel/fedcycle"

	_ "github.com/gomlx/gomlx/backends/default"
)

// writeSyntheticCSV writes a small but learnable dataset: 30 persons with
// 13 cycles each, cycle lengths cycling over 26..30 days.
func writeSyntheticCSV(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("ClientID,CycleNumber,LengthofCycle,LengthofMenses,Age,BMI\n")
	for person := 1; person <= 30; person++ {
		for cycle := 1; cycle <= 13; cycle++ {
			fmt.Fprintf(&sb, "%d,%d,%d,%d,%d,21.5\n",
				person, cycle, 26+(person+cycle)%5, 4+person%3, 22+person)
		}
	}
	csvPath := path.Join(t.TempDir(), "cycles.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sb.String()), 0644))
	return csvPath
}

func TestTrainModel(t *testing.T) {
	csvPath := writeSyntheticCSV(t)
	outputDir := path.Join(t.TempDir(), "model")

	ctx := CreateDefaultContext()
	ctx.SetParam("max_iterations", 50)
	model, metrics := TrainModel(ctx, csvPath, outputDir, "", nil, 0)

	require.NotNil(t, model)
	for _, v := range []float64{metrics.MAE, metrics.MSE, metrics.RMSE} {
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
	}

	// Exported model: layer shapes must match the architecture.
	var params ModelParams
	decodeJSONFile(t, path.Join(outputDir, ModelFile), &params)
	numFeatures := fedcycle.NumFeatures(fedcycle.DefaultWindow)
	assert.Equal(t, numFeatures, params.Architecture.InputSize)
	assert.Equal(t, HiddenLayerSizes, params.Architecture.HiddenLayers)
	assert.Equal(t, 1, params.Architecture.OutputSize)
	assert.Equal(t, ActivationName, params.Architecture.Activation)
	require.Len(t, params.Weights, 3)
	require.Len(t, params.Biases, 3)
	layerInputs := append([]int{numFeatures}, HiddenLayerSizes...)
	layerOutputs := append(append([]int{}, HiddenLayerSizes...), 1)
	for layerIdx := range params.Weights {
		require.Len(t, params.Weights[layerIdx], layerInputs[layerIdx])
		for _, row := range params.Weights[layerIdx] {
			require.Len(t, row, layerOutputs[layerIdx])
		}
		require.Len(t, params.Biases[layerIdx], layerOutputs[layerIdx])
	}

	var scalerParams ScalerParams
	decodeJSONFile(t, path.Join(outputDir, ScalerFile), &scalerParams)
	assert.Len(t, scalerParams.Mean, numFeatures)
	assert.Len(t, scalerParams.Scale, numFeatures)
	assert.Equal(t, fedcycle.FeatureNames(fedcycle.DefaultWindow), scalerParams.FeatureNames)

	var exportedMetrics Metrics
	decodeJSONFile(t, path.Join(outputDir, MetricsFile), &exportedMetrics)
	assert.Equal(t, *metrics, exportedMetrics)

	// The trained model predicts in-range cycle lengths for in-range input.
	row := []float64{28, 29, 30, 28, 27, 29, 28.5, 1.0, 27, 30, 5, 30, 21.5}
	prediction := model.PredictOne(row)
	require.False(t, math.IsNaN(prediction))
}

func TestTrainModelDeterminism(t *testing.T) {
	csvPath := writeSyntheticCSV(t)

	run := func() []byte {
		outputDir := path.Join(t.TempDir(), "model")
		ctx := CreateDefaultContext()
		ctx.SetParam("max_iterations", 20)
		TrainModel(ctx, csvPath, outputDir, "", nil, 0)
		contents, err := os.ReadFile(path.Join(outputDir, ModelFile))
		require.NoError(t, err)
		return contents
	}
	assert.Equal(t, run(), run())
}

func TestTrainModelMissingData(t *testing.T) {
	ctx := CreateDefaultContext()
	assert.Panics(t, func() {
		TrainModel(ctx, path.Join(t.TempDir(), "missing.csv"), "", "", nil, 0)
	})
}

func decodeJSONFile(t *testing.T, filePath string, v any) {
	t.Helper()
	contents, err := os.ReadFile(filePath)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(contents, v))
}
