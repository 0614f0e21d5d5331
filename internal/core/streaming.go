package core

// streaming.go provides the reader chain applied to uploaded CSV files
// before they reach encoding/csv:
//
//   - charset decoding: a declared non-UTF-8 charset is transcoded to UTF-8
//   - BOMSkippingReader: removes a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - UTF8ValidatingReader: fails on the first invalid UTF-8 sequence
//
// The chain streams; memory use does not depend on file size.
// Use WrapForParsing to apply all of them in the correct order.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader wraps an io.Reader and skips the UTF-8 BOM if present.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

// Read implements io.Reader. The first call drops the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// UTF8ValidatingReader passes bytes through unchanged and returns a
// *ParseError as soon as it meets an invalid UTF-8 sequence. Bytes before the
// bad sequence are still delivered.
type UTF8ValidatingReader struct {
	r      io.Reader
	chunk  []byte
	buf    []byte // validated bytes not yet returned
	tail   []byte // incomplete rune carried to the next fill
	offset int64  // stream offset of tail[0]
	err    error
}

// NewUTF8ValidatingReader creates a new validating reader.
func NewUTF8ValidatingReader(r io.Reader) *UTF8ValidatingReader {
	return &UTF8ValidatingReader{r: r}
}

// Read implements io.Reader.
func (v *UTF8ValidatingReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(v.buf) == 0 {
		if v.err != nil {
			return 0, v.err
		}
		v.fill()
	}
	n := copy(p, v.buf)
	v.buf = v.buf[n:]
	return n, nil
}

func (v *UTF8ValidatingReader) fill() {
	if v.chunk == nil {
		v.chunk = make([]byte, 32*1024)
	}

	n, err := v.r.Read(v.chunk)
	data := append(v.tail, v.chunk[:n]...)
	v.tail = nil

	valid := len(data)
	if err == nil {
		valid -= incompleteTrailingBytes(data)
	}

	if bad := firstInvalidUTF8(data[:valid]); bad >= 0 {
		v.buf = data[:bad]
		v.err = &ParseError{Message: fmt.Sprintf("encoding error: invalid UTF-8 at byte %d", v.offset+int64(bad))}
		return
	}

	v.buf = data[:valid]
	v.tail = data[valid:]
	v.offset += int64(valid)
	if err != nil {
		v.err = err
	}
}

// firstInvalidUTF8 returns the index of the first invalid sequence, or -1.
func firstInvalidUTF8(data []byte) int {
	if utf8.Valid(data) {
		return -1
	}
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return -1
}

// incompleteTrailingBytes returns how many bytes at the end of data start a
// multi-byte sequence that has not been completed yet.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b < 0x80 {
			return 0
		}
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
	}
	return 0
}

// runeLen returns the expected length of a UTF-8 sequence starting with b.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// decodeCharset returns a reader producing UTF-8 from r given the charset
// declared by the client. Empty and UTF-8 declarations return r unchanged.
func decodeCharset(r io.Reader, charset string) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(charset))
	if name == "" {
		return r, nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, &ParseError{Message: fmt.Sprintf("unsupported encoding %q", charset), Err: err}
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return r, nil
	}

	return transform.NewReader(r, enc.NewDecoder()), nil
}

// WrapForParsing applies charset decoding, BOM skipping and UTF-8
// validation to r.
//
// The order matters:
//  1. Decoding first, so the later stages always see UTF-8
//  2. BOM stripping before validation (the BOM is valid UTF-8 but not data)
//  3. Validation last, directly in front of the CSV reader
func WrapForParsing(r io.Reader, charset string) (io.Reader, error) {
	decoded, err := decodeCharset(r, charset)
	if err != nil {
		return nil, err
	}
	return NewUTF8ValidatingReader(NewBOMSkippingReader(decoded)), nil
}
