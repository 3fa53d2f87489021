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
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// ErrNoExamples is returned by Assemble when no window of the table survives
// the validity filters.
var ErrNoExamples = errors.New("no valid examples could be assembled from the dataset")

// Examples is a flat collection of feature rows and their targets.
type Examples struct {
	Features [][]float64
	Targets  []float64
}

// Len returns the number of examples.
func (e *Examples) Len() int { return len(e.Targets) }

// Dataset is the assembled sliding-window dataset for the whole table.
type Dataset struct {
	Examples

	// Window is the window size the features were built with.
	Window int

	// IDColumn is the column used to group rows by person, or "" if the
	// whole table was treated as a single person.
	IDColumn string

	// NumPersons is the number of distinct persons found in the table.
	NumPersons int
}

// TargetStats returns the min, max and mean of the targets.
func (ds *Dataset) TargetStats() (min, max, mean float64) {
	min, max = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, y := range ds.Targets {
		min = math.Min(min, y)
		max = math.Max(max, y)
		sum += y
	}
	return min, max, sum / float64(len(ds.Targets))
}

// FindIDColumn picks the column that identifies a person: first an exact
// match from PreferredIDColumns, then any column whose name contains "id" or
// "client" (case-insensitive). It returns "" when the table has no such
// column.
func FindIDColumn(columns []string) string {
	for _, preferred := range PreferredIDColumns {
		if slices.Contains(columns, preferred) {
			return preferred
		}
	}
	for _, col := range columns {
		lower := strings.ToLower(col)
		if strings.Contains(lower, "id") || strings.Contains(lower, "client") {
			return col
		}
	}
	return ""
}

// columnOrNil returns the raw cells of the named column, or nil if the table
// doesn't have it.
func columnOrNil(df dataframe.DataFrame, name string) []string {
	if !slices.Contains(df.Names(), name) {
		return nil
	}
	return df.Col(name).Records()
}

// cellAt indexes cells tolerating a nil column.
func cellAt(cells []string, row int) string {
	if cells == nil {
		return ""
	}
	return cells[row]
}

// Assemble groups the table rows by person, orders each person's rows by
// CycleNumber, and concatenates the per-person sliding windows into one
// Dataset. Set verbosity >= 1 for progress reporting on stdout.
//
// It returns ErrNoExamples when every window was filtered out, so callers
// can fail fast instead of training on an empty dataset.
func Assemble(df dataframe.DataFrame, window int, verbosity int) (*Dataset, error) {
	if df.Nrow() == 0 {
		return nil, ErrNoExamples
	}
	ds := &Dataset{Window: window, IDColumn: FindIDColumn(df.Names())}

	cycleCells := columnOrNil(df, ColCycleLength)
	if cycleCells == nil {
		return nil, errors.Errorf("dataset has no %q column", ColCycleLength)
	}
	mensesCells := columnOrNil(df, ColMensesLength)
	ageCells := columnOrNil(df, ColAge)
	bmiCells := columnOrNil(df, ColBMI)
	cycleNumberCells := columnOrNil(df, ColCycleNumber)

	// Group row indices by person, preserving first-appearance order.
	var groups [][]int
	var idCells []string
	if ds.IDColumn == "" {
		if verbosity >= 1 {
			fmt.Println("Warning: no ID column found, treating the entire dataset as one person.")
		}
		rows := make([]int, df.Nrow())
		for ii := range rows {
			rows[ii] = ii
		}
		groups = [][]int{rows}
		ds.NumPersons = 1
	} else {
		if verbosity >= 1 {
			fmt.Printf("Using %q as person identifier.\n", ds.IDColumn)
		}
		idCells = df.Col(ds.IDColumn).Records()
		groupIdx := make(map[string]int)
		for row, id := range idCells {
			gg, found := groupIdx[id]
			if !found {
				gg = len(groups)
				groupIdx[id] = gg
				groups = append(groups, nil)
			}
			groups[gg] = append(groups[gg], row)
		}
		ds.NumPersons = len(groups)
		if verbosity >= 1 {
			fmt.Printf("Found %d unique persons.\n", ds.NumPersons)
		}
	}

	var bar *progressbar.ProgressBar
	if verbosity >= 1 {
		bar = progressbar.NewOptions(len(groups),
			progressbar.OptionSetDescription("Assembling windows"),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("persons"),
			progressbar.OptionSetTheme(progressbar.ThemeASCII))
	}
	for _, rows := range groups {
		sortByCycleNumber(rows, cycleNumberCells)
		entity := &Entity{ID: cellAt(idCells, rows[0])}
		for _, row := range rows {
			entity.CycleLengths = append(entity.CycleLengths, cycleCells[row])
			if mensesCells != nil {
				entity.MensesLengths = append(entity.MensesLengths, mensesCells[row])
			}
			if ageCells != nil {
				entity.Ages = append(entity.Ages, ageCells[row])
			}
			if bmiCells != nil {
				entity.BMIs = append(entity.BMIs, bmiCells[row])
			}
		}
		features, targets := BuildWindows(entity, window)
		ds.Features = append(ds.Features, features...)
		ds.Targets = append(ds.Targets, targets...)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if ds.Len() == 0 {
		return nil, ErrNoExamples
	}
	return ds, nil
}

// sortByCycleNumber stably sorts the row indices by the numeric value of the
// CycleNumber column. Rows whose CycleNumber doesn't parse sort after all
// numeric ones, keeping their relative order. A nil column leaves the
// recorded order untouched.
func sortByCycleNumber(rows []int, cycleNumberCells []string) {
	if cycleNumberCells == nil {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		vi, oki := ParseNumeric(cycleNumberCells[rows[i]])
		vj, okj := ParseNumeric(cycleNumberCells[rows[j]])
		if oki != okj {
			return oki
		}
		return oki && vi < vj
	})
}

// Split holds the three partitions of a Dataset.
type Split struct {
	Train, Validation, Test Examples
}

// SplitDataset splits the dataset into 70% training, 15% validation and 15%
// test partitions, shuffling rows with the given seed. Fractional sizes
// round in favor of the held-out partitions, and with fewer than a handful
// of examples some partition may come out empty.
//
// The shuffle is row-level: windows of the same person can land in
// different partitions, so held-out scores are slightly optimistic for
// truly unseen persons.
func SplitDataset(ds *Dataset, seed int64) *Split {
	n := ds.Len()
	nHeldOut := int(math.Ceil(0.3 * float64(n)))
	nTest := int(math.Ceil(0.5 * float64(nHeldOut)))
	nValid := nHeldOut - nTest

	rng := rand.New(rand.NewSource(seed))
	perm := rng.Perm(n)

	take := func(indices []int) Examples {
		e := Examples{
			Features: make([][]float64, 0, len(indices)),
			Targets:  make([]float64, 0, len(indices)),
		}
		for _, idx := range indices {
			e.Features = append(e.Features, ds.Features[idx])
			e.Targets = append(e.Targets, ds.Targets[idx])
		}
		return e
	}
	return &Split{
		Train:      take(perm[nHeldOut:]),
		Validation: take(perm[:nValid]),
		Test:       take(perm[nValid:nHeldOut]),
	}
}
