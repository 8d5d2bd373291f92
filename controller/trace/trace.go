package trace

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"sync"
)

// Record is one carrier unit observation. Symbol is the bit or byte
// the unit was meant to carry (zero on the receive path before ground
// truth is known), Signal is the measured quantity (gap in seconds for
// the timing channel, field value for the storage channel) and Decoded
// is the recovered value.
type Record struct {
	Index   uint64
	Symbol  byte
	Signal  float64
	Decoded byte
}

// Writer logs one CSV row per carrier unit so the offline analysis
// tooling (SNR, entropy, chi-square) can consume sessions without
// being part of the channel itself. A nil Writer discards records,
// which lets channels log unconditionally.
type Writer struct {
	mutex  sync.Mutex
	cw     *csv.Writer
	closer io.Closer
}

// NewWriter wraps w and emits the column header.
func NewWriter(w io.Writer) (*Writer, error) {
	tw := &Writer{cw: csv.NewWriter(w)}
	if err := tw.cw.Write([]string{"unit", "symbol", "signal", "decoded"}); err != nil {
		return nil, err
	}
	return tw, nil
}

// NewFileWriter logs to a CSV file at path. The file is owned by the
// returned Writer and released by Close.
func NewFileWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	tw, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	tw.closer = f
	return tw, nil
}

func (w *Writer) Log(r Record) error {
	if w == nil {
		return nil
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.cw.Write([]string{
		strconv.FormatUint(r.Index, 10),
		strconv.Itoa(int(r.Symbol)),
		strconv.FormatFloat(r.Signal, 'f', -1, 64),
		strconv.Itoa(int(r.Decoded)),
	})
}

// Flush pushes buffered rows to the underlying writer. Channels call
// this once per completed session.
func (w *Writer) Flush() error {
	if w == nil {
		return nil
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.cw.Flush()
	return w.cw.Error()
}

// Close flushes and releases the underlying file, if any.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	err := w.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
