package trainer

import (
	"os"

	"github.com/ezoic/tasador/core/model"
	"github.com/ezoic/tasador/pkg/errors"
	"github.com/ezoic/tasador/valuation"
)

// ReportName identifies training reports written by this package.
const ReportName = "tasador.svr"

// WriteReport writes the training summary as a JSON report.
func WriteReport(path string, summary valuation.Summary) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create report %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close report %s", path)
		}
	}()
	return model.ExportReport(ReportName, summary, f)
}
