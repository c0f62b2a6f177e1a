// github.com/asr/pdf - access to the structural layer of PDF files
// Copyright (C) 2026  The asr/pdf authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package pdf

import (
	"bytes"
	"errors"
	"io"
)

// Buffer provides random access to a byte source, together with the
// line-oriented and backward scanning primitives needed to navigate the
// skeleton of a PDF file.  A Buffer maintains a single cursor; parsing
// operations reposition the cursor, so a Buffer must not be shared between
// concurrent operations.
type Buffer struct {
	r    io.ReaderAt
	size int64
	pos  int64
}

// NewBuffer creates a Buffer reading from r.  The size must give the total
// number of bytes available from r.
func NewBuffer(r io.ReaderAt, size int64) *Buffer {
	return &Buffer{r: r, size: size}
}

// Size returns the total number of bytes in the buffer.
func (b *Buffer) Size() int64 {
	return b.size
}

// Pos returns the current cursor position.
func (b *Buffer) Pos() int64 {
	return b.pos
}

// Seek moves the cursor to the given absolute position.
func (b *Buffer) Seek(pos int64) error {
	if pos < 0 || pos > b.size {
		return &MalformedFileError{
			Pos: pos,
			Err: errors.New("seek position outside file"),
		}
	}
	b.pos = pos
	return nil
}

// ReadByte reads the byte at the cursor and advances the cursor.
func (b *Buffer) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := b.Read(buf[:])
	return buf[0], err
}

// Read reads len(p) bytes starting at the cursor, advancing the cursor.
// If fewer bytes are available, io.ErrUnexpectedEOF is returned.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.pos >= b.size {
		return 0, io.ErrUnexpectedEOF
	}
	n, err := b.r.ReadAt(p, b.pos)
	b.pos += int64(n)
	if err == io.EOF {
		if n < len(p) {
			err = io.ErrUnexpectedEOF
		} else {
			err = nil
		}
	}
	return n, err
}

// ReadN reads exactly n bytes starting at the cursor.
func (b *Buffer) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	_, err := b.Read(buf)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadLine reads bytes up to the next CR, LF or CR LF pair and positions
// the cursor after the line terminator.  The returned slice excludes the
// terminator.  The final line of a file needs no terminator.
func (b *Buffer) ReadLine() ([]byte, error) {
	if b.pos >= b.size {
		return nil, io.ErrUnexpectedEOF
	}

	var res []byte
	buf := make([]byte, 64)
	for {
		k := int64(len(buf))
		if b.pos+k > b.size {
			k = b.size - b.pos
		}
		n, err := b.r.ReadAt(buf[:k], b.pos)
		if err != nil && err != io.EOF {
			return nil, err
		}
		idx := bytes.IndexAny(buf[:n], "\r\n")
		if idx >= 0 {
			res = append(res, buf[:idx]...)
			b.pos += int64(idx) + 1
			if buf[idx] == '\r' {
				if c, err := b.peekByte(); err == nil && c == '\n' {
					b.pos++
				}
			}
			return res, nil
		}
		res = append(res, buf[:n]...)
		b.pos += int64(n)
		if b.pos >= b.size {
			return res, nil
		}
	}
}

func (b *Buffer) peekByte() (byte, error) {
	if b.pos >= b.size {
		return 0, io.ErrUnexpectedEOF
	}
	var buf [1]byte
	_, err := b.r.ReadAt(buf[:], b.pos)
	if err == io.EOF {
		err = nil
	}
	return buf[0], err
}

// ReadBackToken scans backwards from the cursor, first past any white
// space, then over the preceding run of non-space bytes.  It returns the
// token and leaves the cursor at the token's first byte.  Trailing white
// space after the %%EOF marker is handled this way.
func (b *Buffer) ReadBackToken() ([]byte, error) {
	pos := b.pos
	for pos > 0 {
		c, err := b.byteAt(pos - 1)
		if err != nil {
			return nil, err
		}
		if !isSpace[c] {
			break
		}
		pos--
	}
	end := pos
	for pos > 0 {
		c, err := b.byteAt(pos - 1)
		if err != nil {
			return nil, err
		}
		if isSpace[c] {
			break
		}
		pos--
	}
	if pos == end {
		return nil, io.ErrUnexpectedEOF
	}
	b.pos = pos
	return b.bytesAt(pos, end)
}

func (b *Buffer) byteAt(pos int64) (byte, error) {
	var buf [1]byte
	_, err := b.r.ReadAt(buf[:], pos)
	if err == io.EOF {
		err = nil
	}
	return buf[0], err
}

func (b *Buffer) bytesAt(start, end int64) ([]byte, error) {
	buf := make([]byte, end-start)
	_, err := b.r.ReadAt(buf, start)
	if err == io.EOF {
		err = nil
	}
	return buf, err
}

// SectionAt returns a reader for the bytes from pos to the end of the
// buffer.  The returned reader has its own cursor and does not interfere
// with the Buffer's.
func (b *Buffer) SectionAt(pos int64) *io.SectionReader {
	return io.NewSectionReader(b.r, pos, b.size-pos)
}

// LastOccurrence returns the position of the last occurrence of pat within
// the final window bytes of the buffer.  If window is 0 the whole buffer
// is searched.
func (b *Buffer) LastOccurrence(pat string, window int64) (int64, error) {
	const chunkSize = 1024

	low := int64(0)
	if window > 0 && b.size > window {
		low = b.size - window
	}

	buf := make([]byte, chunkSize)
	k := int64(len(pat))
	pos := b.size
	for pos >= low+k {
		start := pos - chunkSize
		if start < low {
			start = low
		}
		n, err := b.r.ReadAt(buf[:pos-start], start)
		if err != nil && err != io.EOF {
			return 0, err
		}

		idx := bytes.LastIndex(buf[:n], []byte(pat))
		if idx >= 0 {
			return start + int64(idx), nil
		}

		pos = start + k - 1
	}
	return 0, &MalformedFileError{
		Err: errors.New(pat + " not found"),
	}
}
