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
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes feature columns to zero mean and unit variance.
// It must be fit on the training partition only, and then applied to every
// partition and to inference inputs.
type Scaler struct {
	Mean  []float64
	Scale []float64
}

// FitScaler computes per-column mean and population standard deviation over
// the given feature matrix. Columns with zero deviation get scale 1, so
// transforming a constant column maps it to zero instead of NaN.
func FitScaler(features [][]float64) *Scaler {
	numFeatures := len(features[0])
	s := &Scaler{
		Mean:  make([]float64, numFeatures),
		Scale: make([]float64, numFeatures),
	}
	column := make([]float64, len(features))
	for col := 0; col < numFeatures; col++ {
		for row, example := range features {
			column[row] = example[col]
		}
		s.Mean[col] = stat.Mean(column, nil)
		s.Scale[col] = stat.PopStdDev(column, nil)
		if s.Scale[col] == 0 {
			s.Scale[col] = 1
		}
	}
	return s
}

// TransformRow standardizes one feature vector into a new slice.
func (s *Scaler) TransformRow(row []float64) []float64 {
	scaled := make([]float64, len(row))
	for col, v := range row {
		scaled[col] = (v - s.Mean[col]) / s.Scale[col]
	}
	return scaled
}

// Transform standardizes a feature matrix into a new matrix.
func (s *Scaler) Transform(features [][]float64) [][]float64 {
	scaled := make([][]float64, len(features))
	for row, example := range features {
		scaled[row] = s.TransformRow(example)
	}
	return scaled
}

// InverseRow undoes the standardization of one feature vector.
func (s *Scaler) InverseRow(scaled []float64) []float64 {
	row := make([]float64, len(scaled))
	for col, v := range scaled {
		row[col] = v*s.Scale[col] + s.Mean[col]
	}
	return row
}
