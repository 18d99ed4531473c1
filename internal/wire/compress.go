package wire

import (
	"compress/flate"
	"io"
)

// CompressingWriter deflates everything written to it. Flush performs a
// partial flush: the compressor emits a sync marker so the peer's inflater
// can decode all bytes written so far without closing the stream.
type CompressingWriter struct {
	fw *flate.Writer
}

// NewCompressingWriter wraps w in a deflate stream tuned for speed; the
// protocol favors latency over ratio.
func NewCompressingWriter(w io.Writer) (*CompressingWriter, error) {
	fw, err := flate.NewWriter(w, flate.BestSpeed)
	if err != nil {
		return nil, err
	}
	return &CompressingWriter{fw: fw}, nil
}

func (c *CompressingWriter) Write(p []byte) (int, error) {
	return c.fw.Write(p)
}

func (c *CompressingWriter) Flush() error {
	return c.fw.Flush()
}

func (c *CompressingWriter) Close() error {
	return c.fw.Close()
}

// NewCompressingReader wraps r in an inflater matching CompressingWriter.
func NewCompressingReader(r io.Reader) io.ReadCloser {
	return flate.NewReader(r)
}
