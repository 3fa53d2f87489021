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

	"github.com/charmbracelet/lipgloss"
	"github.com/lunacal/cyclemodel/fedcycle"
)

// Metrics of a trained model on a held-out partition. The within_* values
// are percentages of predictions within that many days of the true cycle
// length.
type Metrics struct {
	MAE         float64 `json:"mae"`
	MSE         float64 `json:"mse"`
	RMSE        float64 `json:"rmse"`
	Within1Day  float64 `json:"within_1_day"`
	Within2Days float64 `json:"within_2_days"`
	Within3Days float64 `json:"within_3_days"`
}

// NewMetrics computes regression metrics from aligned predictions and
// targets.
func NewMetrics(predictions, targets []float64) *Metrics {
	n := float64(len(targets))
	m := &Metrics{}
	var within1, within2, within3 float64
	for ii, y := range targets {
		diff := math.Abs(predictions[ii] - y)
		m.MAE += diff
		m.MSE += diff * diff
		if diff <= 1 {
			within1++
		}
		if diff <= 2 {
			within2++
		}
		if diff <= 3 {
			within3++
		}
	}
	m.MAE /= n
	m.MSE /= n
	m.RMSE = math.Sqrt(m.MSE)
	m.Within1Day = within1 / n * 100
	m.Within2Days = within2 / n * 100
	m.Within3Days = within3 / n * 100
	return m
}

// Evaluate predicts the examples' targets and computes the metrics.
func (m *Model) Evaluate(examples fedcycle.Examples) *Metrics {
	return NewMetrics(m.Predict(examples.Features), examples.Targets)
}

var metricsStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	Padding(1, 4, 1, 4).
	Width(60)

// Render the metrics as a bordered box for the command line.
func (m *Metrics) Render(title string) string {
	return metricsStyle.Render(fmt.Sprintf(
		"[%s]\nMAE: %.2f days\nRMSE: %.2f days\nWithin 1 day: %.1f%%\nWithin 2 days: %.1f%%\nWithin 3 days: %.1f%%",
		title, m.MAE, m.RMSE, m.Within1Day, m.Within2Days, m.Within3Days))
}
