package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDataset(t *testing.T) {
	path := writeTempCSV(t, "id,score,city\n1,3.5,NY\n2,NaN,LA\n3,4.0,NY\n")
	d, err := LoadDataset(path)
	require.NoError(t, err)

	require.Equal(t, path, d.Path())
	require.Equal(t, []string{"id", "score", "city"}, d.Columns())

	rows, cols := d.Shape()
	require.Equal(t, 3, rows)
	require.Equal(t, 3, cols)
}

func TestLoadDatasetErrors(t *testing.T) {
	_, err := LoadDataset("/nonexistent/data.csv")
	require.Error(t, err)

	empty := writeTempCSV(t, "")
	_, err = LoadDataset(empty)
	require.Error(t, err, "a dataset needs a header row")
}

func TestDatasetColumnTypes(t *testing.T) {
	path := writeTempCSV(t, "id,score,city,empty\n1,3.5,NY,\n2,NaN,LA,\n3,4.0,NY,\n")
	d, err := LoadDataset(path)
	require.NoError(t, err)

	require.Equal(t, "id: int\nscore: float\ncity: str\nempty: str", d.ColumnTypes())
}

func TestDatasetSampleValues(t *testing.T) {
	path := writeTempCSV(t, "city\nNY\nLA\nNY\nSF\n")
	d, err := LoadDataset(path)
	require.NoError(t, err)

	require.Equal(t, "city: [NY, LA, SF]", d.SampleValues(10), "duplicates collapsed")
	require.Equal(t, "city: [NY, LA]", d.SampleValues(2), "limit honored")
}

func TestDatasetSkipsMissingValues(t *testing.T) {
	path := writeTempCSV(t, "score\nnull\n2.5\nNaN\n")
	d, err := LoadDataset(path)
	require.NoError(t, err)

	require.Equal(t, "score: float", d.ColumnTypes())
	require.Equal(t, "score: [2.5]", d.SampleValues(10))
}
