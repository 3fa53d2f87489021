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

// Package cyclenet trains a small feed-forward regression network on
// sliding-window cycle features (see the fedcycle package) and exports the
// learned weights, the feature scaler and the held-out metrics as JSON, so
// the model can be evaluated in Go or re-implemented trivially elsewhere.
package cyclenet

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gopjrt/dtypes"
)

// DType used by the model. Float64 keeps the exported weights exact.
var DType = dtypes.Float64

// HiddenLayerSizes of the regression network, from input to output.
var HiddenLayerSizes = []int{32, 16}

// ActivationName recorded in the exported architecture.
const ActivationName = "relu"

// ModelGraph builds the FNN regression graph: two relu hidden layers and a
// linear output. It is a train.ModelFn; inputs[0] is the scaled feature
// matrix of shape [batch, numFeatures] and the single output has shape
// [batch, 1].
func ModelGraph(ctx *context.Context, spec any, inputs []*Node) []*Node {
	_ = spec
	x := inputs[0]
	for layerIdx, numNodes := range HiddenLayerSizes {
		x = layers.Dense(ctx.Inf("hidden_%d", layerIdx), x, true, numNodes)
		x = activations.Relu(x)
	}
	x = layers.Dense(ctx.In("output"), x, true, 1)
	return []*Node{x}
}

// denseScopes returns the absolute variable scopes of the dense layers, in
// network order. It assumes the model was built under the conventional
// "model" scope.
func denseScopes() []string {
	scopes := make([]string, 0, len(HiddenLayerSizes)+1)
	for layerIdx := range HiddenLayerSizes {
		scopes = append(scopes, fmt.Sprintf("/model/hidden_%d/dense", layerIdx))
	}
	return append(scopes, "/model/output/dense")
}
