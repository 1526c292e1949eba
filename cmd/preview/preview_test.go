package preview

import (
	"testing"
	"time"

	"swisscluster/camt-import/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummaryLine(t *testing.T) {
	var summary models.ProcessingSummary
	summary.RecordProcessed()
	summary.RecordProcessed()
	summary.RecordSkip("broken.xml", "ParseFailed: unexpected EOF")

	assert.Equal(t, "Files: 3 total, 2 processed, 1 skipped", summaryLine(summary))
}

func TestParseWindow(t *testing.T) {
	window, err := parseWindow("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), window.From)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), window.To)

	window, err = parseWindow("", "")
	require.NoError(t, err)
	assert.False(t, window.Bounded())

	_, err = parseWindow("01.03.2024", "")
	assert.Error(t, err)

	_, err = parseWindow("", "not-a-date")
	assert.Error(t, err)
}
