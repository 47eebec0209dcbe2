package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ezoic/tasador/pkg/errors"
)

// ReportFormatVersion is the only report format this package writes and reads.
const ReportFormatVersion = "1.0"

// ReportSpec is the metadata header of a training report.
type ReportSpec struct {
	Name          string    `json:"name"`           // e.g. "SVR"
	FormatVersion string    `json:"format_version"` // ReportFormatVersion
	CreatedAt     time.Time `json:"created_at"`
}

// Report is a JSON envelope around model-specific training details.
type Report struct {
	Spec   ReportSpec      `json:"spec"`
	Params json.RawMessage `json:"params"`
}

// ExportReport writes params wrapped in a Report envelope to w.
//
// Example:
//
//	f, _ := os.Create("report.json")
//	defer f.Close()
//	err := model.ExportReport("SVR", summary, f)
func ExportReport(name string, params interface{}, w io.Writer) error {
	if name == "" {
		return errors.NewValueError("ExportReport", "name is required")
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	report := Report{
		Spec: ReportSpec{
			Name:          name,
			FormatVersion: ReportFormatVersion,
			CreatedAt:     time.Now().UTC(),
		},
		Params: raw,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// LoadReportFromFile reads a report written by ExportReport.
func LoadReportFromFile(filename string) (*Report, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadReportFromReader(f)
}

// LoadReportFromReader decodes and validates a report.
func LoadReportFromReader(r io.Reader) (*Report, error) {
	var report Report
	if err := json.NewDecoder(r).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	if report.Spec.FormatVersion == "" {
		return nil, errors.NewValueError("LoadReport", "format_version is required")
	}
	if report.Spec.FormatVersion != ReportFormatVersion {
		return nil, errors.NewValueError("LoadReport",
			fmt.Sprintf("unsupported format version: %s", report.Spec.FormatVersion))
	}
	if report.Spec.Name == "" {
		return nil, errors.NewValueError("LoadReport", "name is required")
	}

	return &report, nil
}

// DecodeParams unmarshals the report payload into v.
func (r *Report) DecodeParams(v interface{}) error {
	if err := json.Unmarshal(r.Params, v); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}
	return nil
}
