// Package wire provides the primitive framing used by the master/slave
// evaluation protocol: big-endian integers, IEEE-754 floats in network
// byte order, and length-prefixed UTF-8 strings. Strings carry a uint16
// byte-length prefix followed by plain UTF-8 (not Java modified UTF-8).
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Request opcodes, one byte each.
const (
	OpShutdown         byte = 0
	OpEvaluateSimple   byte = 1
	OpEvaluateGrouped  byte = 2
	OpCheckpoint       byte = 3
)

// Per-individual result bytes.
const (
	ResultNothing    byte = 0
	ResultIndividual byte = 1
	ResultFitness    byte = 2
)

type flusher interface {
	Flush() error
}

// Reader decodes protocol primitives from a stream.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r. The stream may already be a decompressing wrapper.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

func (r *Reader) ReadByte() (byte, error) {
	return r.r.ReadByte()
}

// Read exposes the buffered stream so raw payloads (RNG state vectors,
// checkpoint blobs) share the reader without reordering.
func (r *Reader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *Reader) ReadBool() (bool, error) {
	b, err := r.r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

func (r *Reader) ReadInt32() (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(buf[:])), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(buf[:])), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v)), nil
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadInt64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(uint64(v)), nil
}

// ReadUTF reads a uint16 byte length followed by that many UTF-8 bytes.
func (r *Reader) ReadUTF() (string, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r.r, buf[:]); err != nil {
		return "", err
	}
	n := int(binary.BigEndian.Uint16(buf[:]))
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

// Writer encodes protocol primitives into a buffer that reaches the
// underlying stream when it fills or on Flush; the slave flushes once per
// result batch.
type Writer struct {
	w    *bufio.Writer
	next flusher
}

// NewWriter wraps w. If w itself supports Flush (a compressing stream),
// Flush is chained through to it.
func NewWriter(w io.Writer) *Writer {
	next, _ := w.(flusher)
	return &Writer{w: bufio.NewWriter(w), next: next}
}

func (w *Writer) WriteByte(b byte) error {
	return w.w.WriteByte(b)
}

// Write exposes the buffered stream so raw payloads share the writer
// without reordering.
func (w *Writer) Write(p []byte) (int, error) {
	return w.w.Write(p)
}

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.w.WriteByte(1)
	}
	return w.w.WriteByte(0)
}

func (w *Writer) WriteInt32(v int32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(v))
	_, err := w.w.Write(buf[:])
	return err
}

func (w *Writer) WriteInt64(v int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(v))
	_, err := w.w.Write(buf[:])
	return err
}

func (w *Writer) WriteFloat32(v float32) error {
	return w.WriteInt32(int32(math.Float32bits(v)))
}

func (w *Writer) WriteFloat64(v float64) error {
	return w.WriteInt64(int64(math.Float64bits(v)))
}

func (w *Writer) WriteUTF(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string too long for UTF frame: %d bytes", len(s))
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(len(s)))
	if _, err := w.w.Write(buf[:]); err != nil {
		return err
	}
	_, err := w.w.WriteString(s)
	return err
}

// Flush drains the buffer and, when the underlying stream is compressed,
// forces a partial flush so the peer can decode everything written so far.
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	if w.next != nil {
		return w.next.Flush()
	}
	return nil
}
