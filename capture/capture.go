// Package capture records raw wire traffic to parquet files for replay and
// debugging.
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// Direction of a captured datagram relative to the agent.
const (
	In  = "in"
	Out = "out"
)

// Record is one datagram.
type Record struct {
	Session    string `parquet:"session,dict"`
	Seq        int64  `parquet:"seq"`
	AtUnixNano int64  `parquet:"at_unix_nano"`
	Direction  string `parquet:"direction,dict"`
	Peer       string `parquet:"peer,dict"`
	Payload    []byte `parquet:"payload"`
}

const flushEvery = 512

var ErrClosed = errors.New("capture: recorder is closed")

// Recorder appends records to a parquet file. The file is written under a
// .tmp name and renamed into place by Close, so a crashed run never leaves a
// truncated capture at the final path. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	path    string
	tmpPath string
	file    *os.File
	writer  *parquet.GenericWriter[Record]
	buf     []Record
	rows    int
	err     error // first write error, reported by Close
}

// Create opens a recorder that will publish to path.
func Create(path string) (*Recorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open tmp capture: %w", err)
	}
	w := parquet.NewGenericWriter[Record](
		f,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
	)
	w.SetKeyValueMetadata("schema", "wire_capture_v1")

	return &Recorder{
		path:    path,
		tmpPath: tmpPath,
		file:    f,
		writer:  w,
		buf:     make([]Record, 0, flushEvery),
	}, nil
}

func (r *Recorder) Path() string { return r.path }

// Write buffers one record.
func (r *Recorder) Write(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return ErrClosed
	}
	r.buf = append(r.buf, rec)
	if len(r.buf) >= flushEvery {
		return r.flushLocked()
	}
	return nil
}

func (r *Recorder) flushLocked() error {
	if len(r.buf) == 0 {
		return nil
	}
	if _, err := r.writer.Write(r.buf); err != nil {
		if r.err == nil {
			r.err = err
		}
		r.buf = r.buf[:0]
		return fmt.Errorf("write capture: %w", err)
	}
	r.rows += len(r.buf)
	r.buf = r.buf[:0]
	return nil
}

// Rows is the number of records written so far, including buffered ones.
func (r *Recorder) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows + len(r.buf)
}

// Close flushes, closes the parquet writer and moves the file into place.
// An empty capture is removed instead. Closing twice is a no-op.
func (r *Recorder) Close() (rows int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writer == nil {
		return r.rows, nil
	}

	flushErr := r.flushLocked()
	closeErr := r.writer.Close()
	r.writer = nil
	_ = r.file.Sync()
	fileErr := r.file.Close()
	r.file = nil

	switch {
	case r.err != nil:
		_ = os.Remove(r.tmpPath)
		return 0, fmt.Errorf("write capture: %w", r.err)
	case flushErr != nil:
		_ = os.Remove(r.tmpPath)
		return 0, flushErr
	case closeErr != nil:
		_ = os.Remove(r.tmpPath)
		return 0, fmt.Errorf("close parquet writer: %w", closeErr)
	case fileErr != nil:
		_ = os.Remove(r.tmpPath)
		return 0, fmt.Errorf("close capture file: %w", fileErr)
	}

	if r.rows == 0 {
		_ = os.Remove(r.tmpPath)
		return 0, nil
	}
	if err := os.Rename(r.tmpPath, r.path); err != nil {
		return 0, fmt.Errorf("rename capture: %w", err)
	}
	return r.rows, nil
}

// ReadFile loads every record of a capture file in file order.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Record](f)
	defer reader.Close()

	out := make([]Record, 0, reader.NumRows())
	buf := make([]Record, 256)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("read capture: %w", err)
		}
	}
}
