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

// cyclenet_train trains the cycle length prediction network on a FedCycles
// CSV export and writes the model, scaler and metrics JSON files.
//
// Hyperparameters can be overridden with --set, e.g.:
//
//	cyclenet_train --data=cycles.csv --output=model --set="max_iterations=200;learning_rate=0.01"
package main

import (
	"flag"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/janpfeifer/must"
	"github.com/lunacal/cyclemodel/cyclenet"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagData       = flag.String("data", "cycles.csv", "CSV file with the cycle tracking data.")
	flagOutput     = flag.String("output", "model", "Directory to write model.json, scaler.json and training_metrics.json to.")
	flagCheckpoint = flag.String("checkpoint", "", "Directory to save and load checkpoints from. If left empty, no checkpoints are created.")
	flagVerbosity  = flag.Int("verbosity", 1, "Level of verbosity, the higher the more verbose.")
)

func main() {
	ctx := cyclenet.CreateDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *settings))
	err := exceptions.TryCatch[error](func() {
		cyclenet.TrainModel(ctx, *flagData, *flagOutput, *flagCheckpoint, paramsSet, *flagVerbosity)
	})
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}
