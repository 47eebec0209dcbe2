package model_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/tasador/core/model"
)

func TestExportAndLoadReport(t *testing.T) {
	type summary struct {
		Rows int     `json:"rows"`
		MAE  float64 `json:"mae"`
	}

	var buf bytes.Buffer
	require.NoError(t, model.ExportReport("SVR", summary{Rows: 1200, MAE: 1270.5}, &buf))

	report, err := model.LoadReportFromReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, "SVR", report.Spec.Name)
	assert.Equal(t, model.ReportFormatVersion, report.Spec.FormatVersion)
	assert.False(t, report.Spec.CreatedAt.IsZero())

	var got summary
	require.NoError(t, report.DecodeParams(&got))
	assert.Equal(t, 1200, got.Rows)
	assert.InDelta(t, 1270.5, got.MAE, 1e-9)
}

func TestLoadReportValidation(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"missing version", `{"spec":{"name":"SVR"},"params":{}}`},
		{"unsupported version", `{"spec":{"name":"SVR","format_version":"2.0"},"params":{}}`},
		{"missing name", `{"spec":{"format_version":"1.0"},"params":{}}`},
		{"invalid json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.LoadReportFromReader(strings.NewReader(tt.json))
			assert.Error(t, err)
		})
	}
}

func TestExportReportRequiresName(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, model.ExportReport("", nil, &buf))
}
