package csvx

// Streaming wrappers applied to upload bodies before CSV parsing. They keep
// memory bounded at O(buffer) regardless of file size:
//
//   - BOMSkipper: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF), common in
//     files exported from Windows tools
//   - UTF8Sanitizer: replaces invalid UTF-8 bytes with '?' on the fly
//   - CountingReader: tracks bytes consumed, used for size enforcement
//
// NewDecoder composes the first two; byte counting wraps the raw input so
// the size guard sees what the client actually sent.

import (
	"io"
	"unicode/utf8"
)

// BOMSkipper wraps an io.Reader and removes a UTF-8 BOM if present.
type BOMSkipper struct {
	src     io.Reader
	started bool
	held    []byte // bytes read during BOM detection, replayed if not a BOM
}

// NewBOMSkipper returns a reader that transparently skips a leading BOM.
func NewBOMSkipper(r io.Reader) *BOMSkipper {
	return &BOMSkipper{src: r}
}

func (b *BOMSkipper) Read(p []byte) (int, error) {
	if !b.started {
		b.started = true
		var head [3]byte
		n, err := io.ReadFull(b.src, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
			// BOM consumed, nothing to replay.
		} else {
			b.held = append(b.held, head[:n]...)
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}

	if len(b.held) > 0 {
		n := copy(p, b.held)
		b.held = b.held[n:]
		return n, nil
	}

	return b.src.Read(p)
}

// UTF8Sanitizer wraps an io.Reader and replaces invalid UTF-8 bytes with '?'
// in place. A single-byte replacement keeps the output no longer than the
// input, so sanitization normally works directly in the caller's buffer;
// buffers too small to hold a carried rune prefix plus one full rune go
// through a fixed scratch buffer instead.
type UTF8Sanitizer struct {
	src     io.Reader
	pending []byte // possible start of a multi-byte rune split across reads
	out     []byte // sanitized bytes that did not fit the caller's buffer
	err     error  // source error held back until out drains
	scratch [2 * utf8.UTFMax]byte
}

// NewUTF8Sanitizer returns a sanitizing reader over r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{src: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	if len(s.out) > 0 {
		n := copy(p, s.out)
		s.out = s.out[n:]
		if len(s.out) > 0 {
			return n, nil
		}
		err := s.err
		s.err = nil
		return n, err
	}
	if s.err != nil {
		err := s.err
		s.err = nil
		return 0, err
	}

	buf := p
	small := len(p) < len(s.pending)+utf8.UTFMax
	if small {
		buf = s.scratch[:len(s.pending)+utf8.UTFMax]
	}

	off := copy(buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.src.Read(buf[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	w := n
	if !asciiOnly(buf[:n]) {
		w = s.sanitize(buf[:n], err == io.EOF)
	}

	if !small {
		return w, err
	}

	m := copy(p, buf[:w])
	if m < w {
		s.out = append(s.out[:0], buf[m:w]...)
		if err != nil {
			s.err, err = err, nil
		}
	}
	return m, err
}

// sanitize rewrites data in place and returns the number of output bytes.
// Unless atEOF, an incomplete trailing rune is carried over to the next read
// instead of being flagged invalid.
func (s *UTF8Sanitizer) sanitize(data []byte, atEOF bool) int {
	w := 0
	for r := 0; r < len(data); {
		if !atEOF && incompleteTail(data[r:]) {
			s.pending = append(s.pending, data[r:]...)
			return w
		}
		ch, size := utf8.DecodeRune(data[r:])
		if ch == utf8.RuneError && size == 1 {
			data[w] = '?'
			w++
			r++
			continue
		}
		copy(data[w:], data[r:r+size])
		w += size
		r += size
	}
	return w
}

// asciiOnly is the fast path: most CSV data never leaves ASCII.
func asciiOnly(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// incompleteTail reports whether data is a prefix of a multi-byte rune that
// has been cut off by the read boundary.
func incompleteTail(data []byte) bool {
	if len(data) == 0 || len(data) >= utf8.UTFMax {
		return false
	}
	want := expectedRuneLen(data[0])
	return want > len(data)
}

// expectedRuneLen returns the encoded length implied by a UTF-8 lead byte,
// or 0 for a continuation byte.
func expectedRuneLen(b byte) int {
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

// CountingReader wraps an io.Reader and tracks bytes consumed.
type CountingReader struct {
	src       io.Reader
	BytesRead int64
}

// NewCountingReader returns a counting reader over r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{src: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	c.BytesRead += int64(n)
	return n, err
}
