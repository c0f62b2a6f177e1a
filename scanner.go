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
	"fmt"
	"io"
	"strconv"
)

const scannerBufSize = 1024

// scanner is a tolerant tokenizer for the textual grammar of PDF files,
// ISO 32000-1, section 7.3.
type scanner struct {
	r         io.Reader
	base      int64 // file offset corresponding to the start of r
	buf       []byte
	used, pos int
	skipped   int64

	getInt func(Object) (Integer, error)

	enc     *encryptInfo
	encRef  Reference // object being parsed, 0 outside indirect objects
	special map[Reference]bool
}

func newScanner(r io.Reader, base int64, getInt func(Object) (Integer, error),
	enc *encryptInfo) *scanner {
	if getInt == nil {
		getInt = func(obj Object) (Integer, error) {
			x, ok := obj.(Integer)
			if !ok {
				return 0, &MalformedFileError{
					Err: fmt.Errorf("expected Integer but got %T", obj),
				}
			}
			return x, nil
		}
	}
	return &scanner{
		r:      r,
		base:   base,
		buf:    make([]byte, scannerBufSize),
		getInt: getInt,
		enc:    enc,
	}
}

// filePos returns the current absolute position in the file.
func (s *scanner) filePos() int64 {
	return s.base + s.skipped + int64(s.pos)
}

// bytesRead returns the number of bytes consumed from the underlying
// reader.
func (s *scanner) bytesRead() int64 {
	return s.skipped + int64(s.pos)
}

// ReadIndirectObject reads an object enclosed in "obj" ... "endobj"
// markers, including the reference which labels it.
func (s *scanner) ReadIndirectObject() (Object, Reference, error) {
	// Some files point xref entries at the end of the previous line.
	// Skipping leading white space fixes this up.
	err := s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}

	number, err := s.ReadInteger()
	if err != nil {
		return nil, 0, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}

	generation, err := s.ReadInteger()
	if err != nil {
		return nil, 0, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}

	err = s.SkipString("obj")
	if err != nil {
		return nil, 0, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}

	if number < 1 || number > 1<<32-1 || generation < 0 || generation > 65535 {
		return nil, 0, &MalformedFileError{
			Pos: s.filePos(),
			Err: errors.New("invalid object number"),
		}
	}
	ref := NewReference(uint32(number), uint16(generation))
	if !s.special[ref] {
		s.encRef = ref
	}
	defer func() { s.encRef = 0 }()

	obj, err := s.ReadObject()
	if err != nil {
		return nil, 0, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, 0, err
	}

	if a, ok := obj.(Integer); ok {
		// Check whether this is the start of a reference to an indirect
		// object.
		buf, err := s.Peek(6)
		if err != nil {
			return nil, 0, err
		}
		if !bytes.Equal(buf, []byte("endobj")) {
			b, err := s.ReadInteger()
			if err != nil {
				return nil, 0, err
			}
			err = s.SkipWhiteSpace()
			if err != nil {
				return nil, 0, err
			}
			err = s.SkipString("R")
			if err != nil {
				return nil, 0, err
			}
			err = s.SkipWhiteSpace()
			if err != nil {
				return nil, 0, err
			}

			obj = NewReference(uint32(a), uint16(b))
		}
	}

	err = s.SkipString("endobj")
	if err != nil {
		return nil, 0, err
	}

	return obj, ref, nil
}

// ReadObject reads any object except indirect object headers.
func (s *scanner) ReadObject() (Object, error) {
	buf, err := s.Peek(6) // len("false")+1, to check for a delimiter after
	if err == nil {
		// Below, we return `err` if we cannot detect an object.  Use
		// &MalformedFileError{} when there was no problem reading the input.
		if len(buf) < 5 {
			err = &MalformedFileError{Pos: s.filePos(), Err: io.EOF}
		} else {
			err = &MalformedFileError{Pos: s.filePos()}
		}
	}

	switch {
	case len(buf) == 0:
		// Test this first, so that we can use buf[0] in the following cases.
		return nil, err
	case s.atKeyword(buf, "null"):
		s.pos += 4
		return nil, nil
	case s.atKeyword(buf, "true"):
		s.pos += 4
		return Bool(true), nil
	case s.atKeyword(buf, "false"):
		s.pos += 5
		return Bool(false), nil
	case buf[0] == '/':
		return s.ReadName()
	case buf[0] >= '0' && buf[0] <= '9', buf[0] == '+', buf[0] == '-', buf[0] == '.':
		return s.ReadNumber()
		// It is the caller's responsibility to check whether this is the
		// start of a reference.

	case bytes.HasPrefix(buf, []byte("<<")):
		dict, err := s.ReadDict()
		if err != nil {
			return nil, err
		}

		// check whether this is the start of a stream
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		buf, _ = s.Peek(6) // len("stream") == 6
		if !bytes.HasPrefix(buf, []byte("stream")) {
			return dict, nil
		}
		return s.ReadStreamData(dict)
	case buf[0] == '(':
		s.pos++
		return s.ReadQuotedString()
	case buf[0] == '<':
		s.pos++
		return s.ReadHexString()
	case buf[0] == '[':
		s.pos++
		return s.ReadArray()
	}
	return nil, err
}

// atKeyword reports whether buf starts with the given keyword, followed by
// white space, a delimiter, or the end of input.  This keeps tokens like
// truelove from being misread as the keyword true.
func (s *scanner) atKeyword(buf []byte, keyword string) bool {
	if !bytes.HasPrefix(buf, []byte(keyword)) {
		return false
	}
	if len(buf) == len(keyword) {
		return true
	}
	c := buf[len(keyword)]
	return isSpace[c] || isDelimiter[c]
}

// ReadInteger reads an integer.
func (s *scanner) ReadInteger() (Integer, error) {
	first := true
	var res []byte
	err := s.ScanBytes(func(c byte) bool {
		if first && (c == '+' || c == '-') {
			res = append(res, c)
		} else if c >= '0' && c <= '9' {
			res = append(res, c)
		} else {
			return false
		}
		first = false
		return true
	})
	if err != nil {
		return 0, err
	}

	x, err := strconv.ParseInt(string(res), 10, 64)
	if err != nil {
		return 0, &MalformedFileError{
			Pos: s.filePos(),
			Err: err,
		}
	}
	return Integer(x), nil
}

// ReadNumber reads an integer or real number.  Tokens containing a decimal
// point or an exponent parse as Real, everything else as Integer.
func (s *scanner) ReadNumber() (Object, error) {
	isReal := false
	hasExp := false
	first := true
	var res []byte
	err := s.ScanBytes(func(c byte) bool {
		if !isReal && c == '.' {
			isReal = true
			res = append(res, c)
		} else if !hasExp && (c == 'e' || c == 'E') {
			isReal = true
			hasExp = true
			first = true
			res = append(res, c)
			return true
		} else if first && (c == '+' || c == '-') {
			res = append(res, c)
		} else if c >= '0' && c <= '9' {
			res = append(res, c)
		} else {
			return false
		}
		first = false
		return true
	})
	if err != nil {
		return nil, err
	}

	if isReal {
		x, err := strconv.ParseFloat(string(res), 64)
		if err != nil {
			return nil, &MalformedFileError{Pos: s.filePos(), Err: err}
		}
		return Real(x), nil
	}

	x, err := strconv.ParseInt(string(res), 10, 64)
	if err != nil {
		return nil, &MalformedFileError{Pos: s.filePos(), Err: err}
	}
	return Integer(x), nil
}

// ReadQuotedString reads a ()-delimited string, starting after the opening
// bracket.
func (s *scanner) ReadQuotedString() (String, error) {
	var res []byte
	parentCount := 0
	escape := false
	ignoreLF := false
	isOctal := 0
	octalVal := byte(0)
	err := s.ScanBytes(func(c byte) bool {
		if ignoreLF {
			ignoreLF = false
			if c == '\n' {
				return true
			}
		}
		if isOctal > 0 {
			if c >= '0' && c <= '7' {
				octalVal = octalVal*8 + (c - '0')
				isOctal--
				if isOctal == 0 {
					res = append(res, octalVal)
				}
				return true
			}
			res = append(res, octalVal)
			isOctal = 0
		}
		if escape {
			escape = false
			switch c {
			case '\n':
				return true
			case '\r':
				ignoreLF = true
				return true
			case 'n':
				c = '\n'
			case 'r':
				c = '\r'
			case 't':
				c = '\t'
			case 'b':
				c = '\b'
			case 'f':
				c = '\f'
			}
			if c >= '0' && c <= '7' {
				isOctal = 2
				octalVal = c - '0'
				return true
			}
		} else if c == '\\' {
			escape = true
			return true
		} else if c == '(' {
			parentCount++
		} else if c == ')' {
			if parentCount > 0 {
				parentCount--
			} else {
				return false
			}
		} else if c == '\r' {
			c = '\n'
			ignoreLF = true
		}
		res = append(res, c)
		return true
	})
	if err != nil {
		return nil, err
	}
	if isOctal > 0 {
		res = append(res, octalVal)
	}

	s.pos++ // we have already seen the closing ")"
	return s.maybeDecrypt(res)
}

// ReadHexString reads a <>-delimited string, starting after the opening
// angled bracket.  An odd number of hex digits implies a trailing zero
// nibble.
func (s *scanner) ReadHexString() (String, error) {
	var res []byte
	var hexVal byte
	first := true
	err := s.ScanBytes(func(c byte) bool {
		var d byte
		if c >= '0' && c <= '9' {
			d = c - '0'
		} else if c >= 'A' && c <= 'F' {
			d = c - 'A' + 10
		} else if c >= 'a' && c <= 'f' {
			d = c - 'a' + 10
		} else if c == '>' {
			return false
		} else {
			return true
		}
		if first {
			hexVal = d
		} else {
			res = append(res, 16*hexVal+d)
		}
		first = !first
		return true
	})
	if err != nil {
		return nil, err
	}
	if !first {
		res = append(res, 16*hexVal)
	}

	// If we reach the end of the file, the trailing ">" will be missing.
	s.SkipString(">")

	return s.maybeDecrypt(res)
}

func (s *scanner) maybeDecrypt(res []byte) (String, error) {
	if s.enc != nil && s.encRef != 0 {
		dec, err := s.enc.DecryptBytes(s.encRef, res)
		if err != nil {
			return nil, wrap(err, "string in "+s.encRef.String())
		}
		return String(dec), nil
	}
	return String(res), nil
}

// ReadName reads a PDF name object.
func (s *scanner) ReadName() (Name, error) {
	err := s.SkipString("/")
	if err != nil {
		return "", err
	}

	hex := 0
	var hexByte byte
	var res []byte
	err = s.ScanBytes(func(c byte) bool {
		if hex > 0 {
			var val byte
			if c >= '0' && c <= '9' {
				val = c - '0'
			} else if c >= 'A' && c <= 'F' {
				val = c - 'A' + 10
			} else if c >= 'a' && c <= 'f' {
				val = c - 'a' + 10
			}
			hexByte = 16*hexByte + val
			hex--
			if hex == 0 {
				res = append(res, hexByte)
			}
		} else if c == '#' {
			hexByte = 0
			hex = 2
		} else if isSpace[c] || isDelimiter[c] {
			return false
		} else {
			res = append(res, c)
		}
		return true
	})
	if err != nil && err != io.ErrUnexpectedEOF {
		// the empty name "/" may end the input
		return "", err
	}

	return Name(res), nil
}

// ReadArray reads an array, starting after the opening "[".
func (s *scanner) ReadArray() (Array, error) {
	array := Array{}
	integersSeen := 0
	for {
		err := s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		buf, err := s.Peek(1)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 {
			return nil, &MalformedFileError{
				Pos: s.filePos(),
				Err: io.ErrUnexpectedEOF,
			}
		}
		if buf[0] == ']' {
			break
		}
		if integersSeen >= 2 && buf[0] == 'R' {
			s.pos++
			k := len(array)
			a := array[k-2].(Integer)
			b := array[k-1].(Integer)
			array = append(array[:k-2], NewReference(uint32(a), uint16(b)))
			integersSeen = 0
			continue
		}

		obj, err := s.ReadObject()
		if err != nil {
			return nil, err
		}

		if _, isInt := obj.(Integer); isInt {
			integersSeen++
		} else {
			integersSeen = 0
		}

		array = append(array, obj)
	}
	s.pos++ // we have already seen the closing "]"

	return array, nil
}

// ReadDict reads a PDF dictionary.
func (s *scanner) ReadDict() (Dict, error) {
	err := s.SkipString("<<")
	if err != nil {
		return nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}

	dict := make(Dict)
	for {
		var key Name
		key, err = s.ReadName()
		if _, ok := err.(*MalformedFileError); ok {
			break
		} else if err != nil {
			return nil, err
		}

		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		var val Object
		val, err = s.ReadObject()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		// If we found an integer, check whether this is a reference to an
		// indirect object.
		if a, isInt := val.(Integer); isInt {
			buf, err := s.Peek(1)
			if err != nil {
				return nil, err
			}
			if len(buf) == 0 {
				return nil, &MalformedFileError{
					Pos: s.filePos(),
					Err: io.ErrUnexpectedEOF,
				}
			}
			if buf[0] != '/' && buf[0] != '>' {
				b, err := s.ReadInteger()
				if err != nil {
					return nil, err
				}

				err = s.SkipWhiteSpace()
				if err != nil {
					return nil, err
				}

				err = s.SkipString("R")
				if err != nil {
					return nil, err
				}
				err = s.SkipWhiteSpace()
				if err != nil {
					return nil, err
				}

				val = NewReference(uint32(a), uint16(b))
			}
		}

		dict[key] = val
	}
	err = s.SkipString(">>")
	if err != nil {
		return nil, err
	}

	return dict, nil
}

// ReadStreamData locates the payload of a PDF stream, starting after the
// stream dictionary.  The payload bytes are not consumed into memory; the
// returned Stream records their position instead.
func (s *scanner) ReadStreamData(dict Dict) (*Stream, error) {
	length, err := s.getInt(dict["Length"])
	if err != nil {
		return nil, wrap(err, "stream /Length")
	} else if length < 0 {
		return nil, &MalformedFileError{
			Pos: s.filePos(),
			Err: errors.New("stream with negative length"),
		}
	}

	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}

	err = s.SkipString("stream")
	if err != nil {
		return nil, err
	}

	buf, err := s.Peek(2)
	if err != nil {
		return nil, err
	}
	if len(buf) >= 1 && buf[0] == '\n' {
		s.pos++
	} else if len(buf) >= 2 && buf[0] == '\r' && buf[1] == '\n' {
		s.pos += 2
	} else {
		return nil, &MalformedFileError{
			Pos: s.filePos(),
			Err: errors.New("stream keyword not followed by EOL"),
		}
	}

	l := int64(length)

	origReader, ok := s.r.(io.ReaderAt)
	if !ok {
		// the PDF grammar does not allow streams inside streams
		return nil, &MalformedFileError{
			Pos: s.filePos(),
			Err: errors.New("stream in non-seekable context"),
		}
	}
	raw := io.NewSectionReader(origReader, s.bytesRead(), l)
	err = s.Discard(l)
	if err != nil {
		return nil, err
	}

	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}

	err = s.SkipString("endstream")
	if err != nil {
		return nil, err
	}

	return &Stream{
		Dict:   dict,
		R:      io.NewSectionReader(raw, 0, l),
		raw:    raw,
		length: l,
	}, nil
}

// ReadTrailerDict reads the "trailer << ... >>" form which follows a
// classic cross-reference table.
func (s *scanner) ReadTrailerDict() (Dict, error) {
	err := s.SkipString("trailer")
	if err != nil {
		return nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}
	return s.ReadDict()
}

// readHeaderVersion finds the %PDF-m.n comment near the start of the file
// and returns the version given there.
func (s *scanner) readHeaderVersion() (Version, error) {
	buf, err := s.Peek(scannerBufSize)
	if err != nil {
		return 0, err
	}

	idx := bytes.Index(buf, []byte("%PDF-"))
	if idx < 0 || idx+8 > len(buf) {
		return 0, &MalformedFileError{
			Err: errors.New("PDF header not found"),
		}
	}

	version, err := ParseVersion(string(buf[idx+5 : idx+8]))
	if err != nil {
		return 0, &MalformedFileError{Pos: int64(idx + 5), Err: err}
	}
	if idx+8 < len(buf) && buf[idx+8] >= '0' && buf[idx+8] <= '9' {
		return 0, &MalformedFileError{Pos: int64(idx + 5), Err: errVersion}
	}

	s.pos += idx + 8
	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, err
	}

	return version, nil
}

// refill discards the read part of the buffer and reads as much new data
// as possible.  Once the end of file is reached, s.used will be smaller
// than the buffer size, but no error will be returned.
func (s *scanner) refill() error {
	s.skipped += int64(s.pos)
	copy(s.buf, s.buf[s.pos:s.used])
	s.used -= s.pos
	s.pos = 0

	n, err := io.ReadFull(s.r, s.buf[s.used:])
	s.used += n

	if s.used > 0 || err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}

	return err
}

// Peek returns a view of the next n bytes of input.  The function panics
// if n is larger than scannerBufSize.  On EOF, short buffers without an
// error code will be returned.
func (s *scanner) Peek(n int) ([]byte, error) {
	if n > scannerBufSize {
		panic("peek window too large")
	}

	var err error
	if s.pos+n > s.used {
		err = s.refill()
	}

	if s.pos+n > s.used {
		return s.buf[s.pos:s.used], err
	}

	return s.buf[s.pos : s.pos+n], nil
}

func (s *scanner) Discard(n int64) error {
	if n < 0 {
		panic("negative offset for Discard()")
	}
	unread := int64(s.used - s.pos)
	if n <= unread {
		s.pos += int(n)
		return nil
	}

	n -= unread
	s.skipped += int64(s.used)
	s.pos = 0
	s.used = 0

	n, err := io.CopyN(io.Discard, s.r, n)
	s.skipped += n
	return err
}

func (s *scanner) ScanBytes(accept func(c byte) bool) error {
	empty := true
	for {
		for s.pos < s.used {
			if !accept(s.buf[s.pos]) {
				return nil
			}
			s.pos++
			empty = false
		}
		err := s.refill()
		if err == io.EOF && !empty {
			return nil
		}
		if err != nil {
			return err
		}
		if s.used == 0 {
			if empty {
				return io.ErrUnexpectedEOF
			}
			return nil
		}
	}
}

func (s *scanner) SkipWhiteSpace() error {
	isComment := false
	err := s.ScanBytes(func(c byte) bool {
		if isComment {
			if c == '\r' || c == '\n' {
				isComment = false
			}
		} else if c == '%' {
			isComment = true
		} else {
			return isSpace[c]
		}
		return true
	})
	if err == io.ErrUnexpectedEOF {
		// reaching the end of input with nothing to skip is not an error
		return nil
	}
	return err
}

func (s *scanner) SkipString(pat string) error {
	patBytes := []byte(pat)
	n := len(patBytes)
	buf, err := s.Peek(n)
	if err != nil {
		return err
	}
	if !bytes.Equal(buf, patBytes) {
		return &MalformedFileError{
			Pos: s.filePos(),
			Err: fmt.Errorf("expected %q but found %q", pat, string(buf)),
		}
	}
	s.pos += n
	return nil
}

var (
	isSpace = map[byte]bool{
		0:  true,
		9:  true,
		10: true,
		12: true,
		13: true,
		32: true,
	}
	isDelimiter = map[byte]bool{
		'(': true,
		')': true,
		'<': true,
		'>': true,
		'[': true,
		']': true,
		'{': true,
		'}': true,
		'/': true,
		'%': true,
	}
)
