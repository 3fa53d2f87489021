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

// Package fedcycle loads menstrual cycle tracking tables (FedCycles-style CSV
// exports) and converts them to sliding-window regression examples: given the
// previous cycles of one person, predict the length of the next one.
//
// The package is split in three stages:
//
//   - LoadDataFrame reads the raw CSV into a gota DataFrame, every column as
//     string, tolerating a UTF-8 BOM.
//   - BuildWindows converts one person's cycle history into fixed-size
//     feature vectors and targets.
//   - Assemble groups the table by person, runs BuildWindows per person and
//     concatenates everything into a Dataset ready for training.
package fedcycle

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

// Column names expected in the raw CSV. Only ColCycleLength is mandatory,
// everything else falls back to a default value when absent.
const (
	ColCycleLength  = "LengthofCycle"
	ColMensesLength = "LengthofMenses"
	ColAge          = "Age"
	ColBMI          = "BMI"
	ColCycleNumber  = "CycleNumber"
)

// PreferredIDColumns are tried in order when looking for the column that
// identifies a person. See FindIDColumn.
var PreferredIDColumns = []string{"ClientID", "ID", "Client", "Person", "Subject"}

const (
	// DefaultWindow is the number of past cycles that form one feature window.
	DefaultWindow = 6

	// MinCycleLength and MaxCycleLength bound plausible cycle lengths in days.
	// Values outside this range are treated as tracking noise and the
	// affected examples are dropped.
	MinCycleLength = 15.0
	MaxCycleLength = 60.0

	// Fallback values used when the corresponding column is missing or
	// unparseable for a window.
	DefaultAge          = 30.0
	DefaultBMI          = 22.0
	DefaultPeriodLength = 5.0
)

// LoadDataFrame reads the CSV file in csvPath into a DataFrame with every
// column typed as string. A leading UTF-8 byte-order-mark is stripped so
// that spreadsheet exports don't corrupt the first column name.
func LoadDataFrame(csvPath string) (dataframe.DataFrame, error) {
	var df dataframe.DataFrame
	contents, err := os.ReadFile(csvPath)
	if err != nil {
		return df, errors.Wrapf(err, "failed to read %q", csvPath)
	}
	contents = bytes.TrimPrefix(contents, []byte("\xef\xbb\xbf"))
	df = dataframe.ReadCSV(bytes.NewReader(contents),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String))
	if df.Err != nil {
		return df, errors.Wrapf(df.Err, "failed to parse CSV from %q", csvPath)
	}
	if df.Nrow() == 0 {
		return df, errors.Errorf("no data rows in %q", csvPath)
	}
	return df, nil
}

// PrintSummary prints the table dimensions, column names and the head of
// the DataFrame.
func PrintSummary(df dataframe.DataFrame) {
	fmt.Printf("Loaded %d rows x %d columns.\n", df.Nrow(), df.Ncol())
	fmt.Printf("Columns: %v\n", df.Names())
	fmt.Println(df)
}

// ParseNumeric parses a cell into a float64. It trims surrounding spaces and
// rejects empty cells, NaN and infinities, so downstream feature math never
// sees a non-finite value.
func ParseNumeric(cell string) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// FeatureNames returns the feature vector layout for the given window size:
// the window cycle lengths first, then the window statistics and the
// per-person context features.
func FeatureNames(window int) []string {
	names := make([]string, 0, window+7)
	for ii := 1; ii <= window; ii++ {
		names = append(names, fmt.Sprintf("cycle_%d", ii))
	}
	return append(names, "mean", "std", "min", "max", "period_length", "age", "bmi")
}

// NumFeatures returns the feature vector width for the given window size.
func NumFeatures(window int) int { return window + 7 }
