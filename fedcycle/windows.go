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

package fedcycle

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Entity is the cycle history of one person, as raw CSV cells in recorded
// order. Slices other than CycleLengths may be empty when the corresponding
// column is missing from the table.
type Entity struct {
	ID            string
	CycleLengths  []string
	MensesLengths []string
	Ages          []string
	BMIs          []string
}

// parseColumn converts raw cells to float64, silently dropping cells that
// don't parse. The result is compacted, so indices no longer align with the
// original rows.
func parseColumn(cells []string) []float64 {
	values := make([]float64, 0, len(cells))
	for _, cell := range cells {
		if v, ok := ParseNumeric(cell); ok {
			values = append(values, v)
		}
	}
	return values
}

// firstNumeric returns the first parseable cell, or fallback if there is none.
func firstNumeric(cells []string, fallback float64) float64 {
	if len(cells) == 0 {
		return fallback
	}
	if v, ok := ParseNumeric(cells[0]); ok {
		return v
	}
	return fallback
}

// periodFeature summarizes the menses lengths aligned with the window
// starting at start. Values at or above 15 days (or non-positive) are
// discarded as tracking noise, and the mean of the remainder is used. It
// falls back to DefaultPeriodLength when the menses history is too short to
// cover the window or no value in it is plausible.
func periodFeature(menses []float64, start, window int) float64 {
	if len(menses) <= start+window {
		return DefaultPeriodLength
	}
	var sum float64
	var count int
	for _, p := range menses[start : start+window] {
		if p > 0 && p < 15 {
			sum += p
			count++
		}
	}
	if count == 0 {
		return DefaultPeriodLength
	}
	return sum / float64(count)
}

// BuildWindows slides a window of the given size over one person's cycle
// history and returns a feature matrix with one row per window plus the
// corresponding targets (the cycle length immediately after each window).
//
// Windows whose target or whose past cycles fall outside
// [MinCycleLength, MaxCycleLength] are skipped. A person with fewer than
// window+1 parseable cycles contributes nothing.
func BuildWindows(entity *Entity, window int) (features [][]float64, targets []float64) {
	cycles := parseColumn(entity.CycleLengths)
	if len(cycles) < window+1 {
		return nil, nil
	}
	menses := parseColumn(entity.MensesLengths)
	age := firstNumeric(entity.Ages, DefaultAge)
	bmi := firstNumeric(entity.BMIs, DefaultBMI)

windows:
	for ii := 0; ii < len(cycles)-window; ii++ {
		prev := cycles[ii : ii+window]
		target := cycles[ii+window]
		if target < MinCycleLength || target > MaxCycleLength {
			continue
		}
		for _, c := range prev {
			if c < MinCycleLength || c > MaxCycleLength {
				continue windows
			}
		}

		row := make([]float64, 0, NumFeatures(window))
		row = append(row, prev...)
		row = append(row,
			stat.Mean(prev, nil),
			stat.PopStdDev(prev, nil),
			floats.Min(prev),
			floats.Max(prev),
			periodFeature(menses, ii, window),
			age,
			bmi)
		features = append(features, row)
		targets = append(targets, target)
	}
	return
}
