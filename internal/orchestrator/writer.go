package orchestrator

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/kostichs/company-enricher/internal/model"
)

// Writer is the single component allowed to touch the output files. It
// appends one row per record in whatever order records complete; a fresh
// CSV target gets a header row, an existing one is appended to.
type Writer struct {
	csvFile *os.File
	csvW    *csv.Writer
	enc     *csvutil.Encoder
	jsonl   *os.File
	emitted int
	now     func() time.Time
}

// NewWriter opens the CSV output target, creating it with headers when
// absent or empty. jsonlPath is an optional line-delimited JSON mirror of
// the full record; empty disables it.
func NewWriter(csvPath, jsonlPath string) (*Writer, error) {
	f, err := os.OpenFile(csvPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "writer: open %s", csvPath)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, eris.Wrap(err, "writer: stat output")
	}

	w := &Writer{csvFile: f, csvW: csv.NewWriter(f), now: time.Now}
	w.enc = csvutil.NewEncoder(w.csvW)
	// Appending to a non-empty file: the header is already there.
	w.enc.AutoHeader = info.Size() == 0

	if jsonlPath != "" {
		jf, err := os.OpenFile(jsonlPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			f.Close()
			return nil, eris.Wrapf(err, "writer: open %s", jsonlPath)
		}
		w.jsonl = jf
	}
	return w, nil
}

// Emit appends one record to every output target and flushes immediately so
// a crash or cancellation never loses an already-completed record.
func (w *Writer) Emit(rec *model.CompanyRecord) error {
	if err := w.enc.Encode(rec.Row(w.now())); err != nil {
		return eris.Wrapf(err, "writer: encode row %d", rec.Index)
	}
	w.csvW.Flush()
	if err := w.csvW.Error(); err != nil {
		return eris.Wrapf(err, "writer: flush row %d", rec.Index)
	}

	if w.jsonl != nil {
		line, err := json.Marshal(rec)
		if err != nil {
			return eris.Wrapf(err, "writer: marshal record %d", rec.Index)
		}
		if _, err := w.jsonl.Write(append(line, '\n')); err != nil {
			return eris.Wrapf(err, "writer: append jsonl row %d", rec.Index)
		}
	}

	w.emitted++
	return nil
}

// Emitted returns how many rows this writer has appended.
func (w *Writer) Emitted() int {
	return w.emitted
}

func (w *Writer) Close() error {
	var firstErr error
	if err := w.csvFile.Close(); err != nil {
		firstErr = eris.Wrap(err, "writer: close csv")
	}
	if w.jsonl != nil {
		if err := w.jsonl.Close(); err != nil && firstErr == nil {
			firstErr = eris.Wrap(err, "writer: close jsonl")
		}
	}
	return firstErr
}

// CountRows counts data rows already present in a CSV output target,
// excluding the header. Used to resume an interrupted batch. A missing
// file counts as zero.
func CountRows(csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrapf(err, "writer: open %s", csvPath)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	n := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, eris.Wrapf(err, "writer: count rows in %s", csvPath)
		}
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return n - 1, nil
}
