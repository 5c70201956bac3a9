package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/passbi/bikeshare_insights/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func userTypeTable() models.SummaryTable {
	return models.SummaryTable{
		Name:   "customer-type-distribution",
		Title:  "Distribution of user types",
		XLabel: "User type",
		YLabel: "# trips",
		Rows: []models.Bucket{
			{Label: "Customer", Key: 0, Count: 1},
			{Label: "Subscriber", Key: 1, Count: 2},
		},
	}
}

func TestNewRenderer(t *testing.T) {
	r := NewRenderer(0, -1)
	assert.Equal(t, defaultWidth, r.Width)
	assert.Equal(t, defaultHeight, r.Height)

	r = NewRenderer(1200, 800)
	assert.Equal(t, 1200, r.Width)
	assert.Equal(t, 800, r.Height)
}

func TestBar(t *testing.T) {
	r := NewRenderer(640, 480)

	tests := []struct {
		name  string
		table models.SummaryTable
	}{
		{name: "Categories", table: userTypeTable()},
		{name: "Empty table", table: models.SummaryTable{Name: "empty", Title: "Nothing yet"}},
		{
			name: "All zero counts",
			table: models.SummaryTable{Name: "zero", Title: "Zero", Rows: []models.Bucket{
				{Label: "Dependent", Count: 0},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Bar(tt.table)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, pngSignature))

			cfg, err := png.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, 640, cfg.Width)
			assert.Equal(t, 480, cfg.Height)
		})
	}
}

func TestGrid(t *testing.T) {
	r := NewRenderer(400, 300)
	tables := []models.SummaryTable{userTypeTable(), userTypeTable(), userTypeTable(), userTypeTable()}

	out, err := r.Grid(tables, 2)
	require.NoError(t, err)

	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 600, cfg.Height)

	t.Run("Partial last row", func(t *testing.T) {
		out, err := r.Grid(tables[:3], 2)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 600, cfg.Height)
	})

	t.Run("No tables", func(t *testing.T) {
		_, err := r.Grid(nil, 2)
		assert.Error(t, err)
	})
}

func TestBarGeometry(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		n       int
		bar     int
		spacing int
	}{
		{name: "Two bars", width: 820, n: 2, bar: 245, spacing: 105},
		{name: "Many bars clamp to minimum", width: 220, n: 200, bar: 2, spacing: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bar, spacing := barGeometry(tt.width, tt.n)
			assert.Equal(t, tt.bar, bar)
			assert.Equal(t, tt.spacing, spacing)
		})
	}
}
