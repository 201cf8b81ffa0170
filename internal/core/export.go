package core

import (
	"encoding/csv"
	"io"

	"github.com/cockroachdb/errors"
)

// ExportCSV writes records in the row-source layout, so an export can be
// fed straight back into import or update.
func ExportCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i, r := range records {
		if err := cw.Write(RowFromRecord(i+1, r).Cells()); err != nil {
			return errors.Wrapf(err, "write item %d", r.ID)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush export")
}
