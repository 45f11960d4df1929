// Package export writes generated circuits to disk.
package export

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedExt marks paths that are written zstd-compressed.
const CompressedExt = ".zst"

// fileWriter buffers writes to a file, optionally through zstd. Close
// flushes every layer in order.
type fileWriter struct {
	*bufio.Writer
	enc *zstd.Encoder
	f   *os.File
}

// Create opens path for writing, creating parent directories. Paths ending
// in .zst are compressed.
func Create(path string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	w := &fileWriter{f: f}
	if strings.HasSuffix(path, CompressedExt) {
		w.enc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		w.Writer = bufio.NewWriterSize(w.enc, 256*1024)
	} else {
		w.Writer = bufio.NewWriterSize(f, 256*1024)
	}
	return w, nil
}

func (w *fileWriter) Close() error {
	err := w.Flush()
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// fileReader undoes Create.
type fileReader struct {
	io.Reader
	dec *zstd.Decoder
	f   *os.File
}

// Open opens a file written by Create, decompressing .zst paths.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &fileReader{Reader: f, f: f}
	if strings.HasSuffix(path, CompressedExt) {
		r.dec, err = zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		r.Reader = r.dec
	}
	return r, nil
}

func (r *fileReader) Close() error {
	if r.dec != nil {
		r.dec.Close()
	}
	return r.f.Close()
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	w, err := Create(path)
	if err != nil {
		return err
	}
	if err := write(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
