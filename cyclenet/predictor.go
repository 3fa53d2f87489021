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
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
)

// Model is a trained network bundled with its feature scaler, ready for
// inference. It reuses the variables living in the training context.
type Model struct {
	backend backends.Backend
	ctx     *context.Context
	scaler  *Scaler
	exec    *context.Exec
}

// NewModel wraps the trained variables in ctx for inference. The context
// must hold the variables created by training with ModelGraph.
func NewModel(backend backends.Backend, ctx *context.Context, scaler *Scaler) *Model {
	exec := context.MustNewExec(backend, ctx.Reuse(),
		func(ctx *context.Context, inputs *Node) *Node {
			return ModelGraph(ctx.In("model"), nil, []*Node{inputs})[0]
		})
	return &Model{backend: backend, ctx: ctx, scaler: scaler, exec: exec}
}

// Predict runs the network on raw (unscaled) feature rows and returns one
// predicted cycle length in days per row.
func (m *Model) Predict(features [][]float64) []float64 {
	scaled := m.scaler.Transform(features)
	numFeatures := len(scaled[0])
	flat := make([]float64, 0, len(scaled)*numFeatures)
	for _, row := range scaled {
		flat = append(flat, row...)
	}
	inputs := tensors.FromFlatDataAndDimensions(flat, len(scaled), numFeatures)
	outputs := m.exec.MustExec1(inputs)
	return tensors.MustCopyFlatData[float64](outputs)
}

// PredictOne runs the network on a single raw feature row.
func (m *Model) PredictOne(row []float64) float64 {
	return m.Predict([][]float64{row})[0]
}
