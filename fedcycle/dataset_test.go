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
	"os"
	"path"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindIDColumn(t *testing.T) {
	assert.Equal(t, "ClientID", FindIDColumn([]string{"CycleNumber", "ClientID", "ID"}))
	assert.Equal(t, "ID", FindIDColumn([]string{"CycleNumber", "ID"}))
	assert.Equal(t, "subject_id", FindIDColumn([]string{"CycleNumber", "subject_id"}))
	assert.Equal(t, "ClientCode", FindIDColumn([]string{"CycleNumber", "ClientCode"}))
	assert.Equal(t, "", FindIDColumn([]string{"CycleNumber", "LengthofCycle"}))
}

func writeCSV(t *testing.T, contents string) string {
	t.Helper()
	csvPath := path.Join(t.TempDir(), "cycles.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(contents), 0644))
	return csvPath
}

func TestLoadDataFrame(t *testing.T) {
	// Leading BOM must not corrupt the first column name.
	csvPath := writeCSV(t, "\xef\xbb\xbfClientID,LengthofCycle\n1,28\n1,29\n")
	df, err := LoadDataFrame(csvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"ClientID", "LengthofCycle"}, df.Names())
	assert.Equal(t, 2, df.Nrow())

	_, err = LoadDataFrame(path.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)

	_, err = LoadDataFrame(writeCSV(t, "ClientID,LengthofCycle\n"))
	require.Error(t, err)
}

func TestAssemble(t *testing.T) {
	// Person 1's rows are written out of order: CycleNumber must drive the
	// window order. Person 2 has too short a history to contribute.
	csvPath := writeCSV(t, `ClientID,CycleNumber,LengthofCycle,LengthofMenses,Age,BMI
1,3,30,5,34,21.5
1,1,28,5,34,21.5
2,1,28,4,25,20
1,7,31,6,34,21.5
1,2,29,5,34,21.5
2,2,29,4,25,20
1,5,27,5,34,21.5
1,4,28,6,34,21.5
1,6,29,6,34,21.5
2,3,30,4,25,20
`)
	df, err := LoadDataFrame(csvPath)
	require.NoError(t, err)
	ds, err := Assemble(df, DefaultWindow, 0)
	require.NoError(t, err)

	assert.Equal(t, "ClientID", ds.IDColumn)
	assert.Equal(t, 2, ds.NumPersons)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, []float64{31}, ds.Targets)
	assert.Equal(t, []float64{28, 29, 30, 28, 27, 29}, ds.Features[0][:6])

	min, max, mean := ds.TargetStats()
	assert.Equal(t, 31.0, min)
	assert.Equal(t, 31.0, max)
	assert.Equal(t, 31.0, mean)
}

func TestAssembleNoIDColumn(t *testing.T) {
	csvPath := writeCSV(t, `CycleNumber,LengthofCycle
1,28
2,28
3,28
4,28
5,28
6,28
7,30
`)
	df, err := LoadDataFrame(csvPath)
	require.NoError(t, err)
	ds, err := Assemble(df, DefaultWindow, 0)
	require.NoError(t, err)
	assert.Equal(t, "", ds.IDColumn)
	assert.Equal(t, 1, ds.NumPersons)
	assert.Equal(t, 1, ds.Len())
}

func TestAssembleNoExamples(t *testing.T) {
	csvPath := writeCSV(t, `ClientID,LengthofCycle
1,28
1,29
2,61
`)
	df, err := LoadDataFrame(csvPath)
	require.NoError(t, err)
	_, err = Assemble(df, DefaultWindow, 0)
	require.ErrorIs(t, err, ErrNoExamples)
}

func TestSplitDataset(t *testing.T) {
	const numExamples = 100
	ds := &Dataset{Window: DefaultWindow}
	for ii := 0; ii < numExamples; ii++ {
		ds.Features = append(ds.Features, []float64{float64(ii)})
		ds.Targets = append(ds.Targets, float64(ii))
	}

	split := SplitDataset(ds, 42)
	assert.Equal(t, 70, split.Train.Len())
	assert.Equal(t, 15, split.Validation.Len())
	assert.Equal(t, 15, split.Test.Len())

	// Partitions are disjoint and cover the whole dataset.
	var all []float64
	all = append(all, split.Train.Targets...)
	all = append(all, split.Validation.Targets...)
	all = append(all, split.Test.Targets...)
	sort.Float64s(all)
	for ii, y := range all {
		require.Equal(t, float64(ii), y)
	}

	// Features travel with their targets.
	for ii, row := range split.Train.Features {
		require.Equal(t, split.Train.Targets[ii], row[0])
	}

	// Same seed reproduces the same split, a different seed doesn't.
	again := SplitDataset(ds, 42)
	assert.Equal(t, split, again)
	other := SplitDataset(ds, 7)
	assert.NotEqual(t, split.Train.Targets, other.Train.Targets)
}

func TestSplitDatasetRounding(t *testing.T) {
	for _, test := range []struct {
		n, train, valid, test int
	}{
		{10, 7, 1, 2},
		{7, 4, 1, 2},
		{3, 2, 0, 1},
		{1, 0, 0, 1},
	} {
		ds := &Dataset{}
		for ii := 0; ii < test.n; ii++ {
			ds.Features = append(ds.Features, []float64{float64(ii)})
			ds.Targets = append(ds.Targets, float64(ii))
		}
		split := SplitDataset(ds, 42)
		name := fmt.Sprintf("n=%d", test.n)
		assert.Equalf(t, test.train, split.Train.Len(), name)
		assert.Equalf(t, test.valid, split.Validation.Len(), name)
		assert.Equalf(t, test.test, split.Test.Len(), name)
	}
}
