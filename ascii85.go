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
	"errors"
	"io"
)

// ascii85Reader decodes ASCII85-encoded data: groups of five characters
// from '!' to 'u' encode four bytes, 'z' is shorthand for four zero bytes,
// and "~>" terminates the stream.
type ascii85Reader struct {
	r              io.Reader
	immediateError error
	delayedError   error
	buf            [512]byte
	outbuf         [4]byte
	leftover       []byte
	pos, nbuf      int
	v              uint32
	k              int
	isEnd          bool
}

func (r *ascii85Reader) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.immediateError != nil {
		return 0, r.immediateError
	}

	if len(r.leftover) > 0 {
		n = copy(p, r.leftover)
		r.leftover = r.leftover[n:]
	}

	for n < len(p) {
		// get the next input byte
		for r.pos == r.nbuf && r.delayedError == nil {
			r.nbuf, r.delayedError = r.r.Read(r.buf[:])
			r.pos = 0

			if r.delayedError == io.EOF {
				r.delayedError = io.ErrUnexpectedEOF
			}
		}
		if r.pos == r.nbuf {
			r.immediateError = r.delayedError
			return n, r.immediateError
		}
		c := r.buf[r.pos]
		r.pos++

		// "~" can only be the first part of the end marker "~>"
		if r.isEnd {
			if c == '>' {
				r.immediateError = io.EOF
			} else {
				r.immediateError = &MalformedFileError{
					Err: errors.New("invalid end marker in ASCII85 stream"),
				}
			}
			return n, r.immediateError
		}

		// all whitespace characters are ignored
		if isSpace[c] {
			continue
		}

		// check for invalid characters
		if c >= '!' && c < '!'+85 {
			r.v = r.v*85 + uint32(c-'!')
			r.k++
		} else if r.k == 0 && c == 'z' {
			r.v = 0
			r.k = 5
		} else if c == '~' {
			switch r.k {
			case 0:
				// pass
			case 1:
				r.immediateError = &MalformedFileError{
					Err: errors.New("unexpected end marker in ASCII85 stream"),
				}
				return n, r.immediateError
			default:
				for i := r.k; i < 5; i++ {
					r.v = r.v*85 + 84
				}
				r.outbuf[0] = byte(r.v >> 24)
				r.outbuf[1] = byte(r.v >> 16)
				r.outbuf[2] = byte(r.v >> 8)
				r.outbuf[3] = byte(r.v)
				l := copy(p[n:], r.outbuf[:r.k-1])
				n += l
				if l < r.k-1 {
					r.leftover = r.outbuf[l : r.k-1]
				}
			}
			r.isEnd = true
			continue
		} else {
			r.immediateError = &MalformedFileError{
				Err: errors.New("invalid character in ASCII85 stream"),
			}
			return n, r.immediateError
		}

		if r.k == 5 {
			r.outbuf[0] = byte(r.v >> 24)
			r.outbuf[1] = byte(r.v >> 16)
			r.outbuf[2] = byte(r.v >> 8)
			r.outbuf[3] = byte(r.v)
			l := copy(p[n:], r.outbuf[:])
			n += l
			if l < 4 {
				r.leftover = r.outbuf[l:]
			}
			r.v = 0
			r.k = 0
		}
	}
	return n, nil
}
