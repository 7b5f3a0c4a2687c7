package report

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/daimoniac/waiverreport/internal/errors"
)

// WriteCSV writes the header followed by one record per row, each terminated by CRLF.
func WriteCSV(out io.Writer, rows []Row) error {
	w := csv.NewWriter(out)
	w.UseCRLF = true

	if err := w.Write(Header); err != nil {
		return err
	}

	for i := range rows {
		if err := w.Write(rows[i].ToSlice()); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// WriteFile truncates or creates path and writes the report into it.
// A failure part way through leaves whatever was flushed so far.
func WriteFile(path string, rows []Row) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewFile("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewFile("close", path, cerr)
		}
	}()

	if err := WriteCSV(f, rows); err != nil {
		return errors.NewFile("write", path, err)
	}
	return nil
}
