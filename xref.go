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

// xRefEntry describes the location of one indirect object.
//
// For objects stored directly in the file, Pos is the byte offset of the
// object and InStream is zero.  For objects stored inside an object
// stream, InStream references the containing stream and Pos is the index
// of the object within it.  Free objects have Pos == -1.
type xRefEntry struct {
	InStream   Reference
	Pos        int64
	Generation uint16
}

// IsFree reports whether the entry marks a free object.  Missing entries
// count as free.
func (entry *xRefEntry) IsFree() bool {
	return entry == nil || entry.InStream == 0 && entry.Pos < 0
}

// XRefSubSection describes a contiguous run of object numbers within one
// cross reference section.
type XRefSubSection struct {
	Start, Size int
}

// XRefInfo describes one cross reference section, either a classic table
// or a cross reference stream.  The sections of a file form a chain,
// newest first, linked through the Prev entries of their trailers.
type XRefInfo struct {
	// Pos is the byte offset of the section in the file.
	Pos int64

	// IsStream indicates a cross reference stream rather than a classic
	// table.
	IsStream bool

	// Trailer is the trailer dictionary of a classic section, or the
	// stream dictionary of a cross reference stream.
	Trailer Dict

	// Sections lists the subsections in the order they appear.
	Sections []XRefSubSection
}

// findXRef locates the startxref marker near the end of the file and
// returns the byte offset of the most recent cross reference section.
func (r *Reader) findXRef() (int64, error) {
	// The marker must be in the last two kilobytes of the file, possibly
	// followed by trailing white space and comments after %%EOF.
	pos, err := r.buf.LastOccurrence("startxref", 2*scannerBufSize)
	if err != nil {
		return 0, err
	}
	s := r.scannerAt(pos + int64(len("startxref")))

	err = s.SkipWhiteSpace()
	if err != nil {
		return 0, err
	}
	xRefPos, err := s.ReadInteger()
	if err != nil {
		return 0, err
	}
	// Only white space is skipped here: SkipWhiteSpace would read the
	// %%EOF marker itself as a comment.
	err = s.ScanBytes(func(c byte) bool { return isSpace[c] })
	if err != nil {
		return 0, err
	}
	err = s.SkipString("%%EOF")
	if err != nil {
		return 0, err
	}

	if xRefPos <= 0 || int64(xRefPos) >= r.buf.Size() {
		return 0, &MalformedFileError{
			Pos: pos,
			Err: errors.New("invalid xref position"),
		}
	}

	return int64(xRefPos), nil
}

// readXRef reads the whole cross reference chain, newest first.  The
// returned map contains the effective entry for every object number, i.e.
// the first entry found while walking the chain.  The returned dictionary
// is the trailer of the newest section.
func (r *Reader) readXRef() (map[uint32]*xRefEntry, Dict, []*XRefInfo, error) {
	start, err := r.findXRef()
	if err != nil {
		return nil, nil, nil, wrap(err, "startxref")
	}

	xref := make(map[uint32]*xRefEntry)
	var trailer Dict
	var chain []*XRefInfo
	seen := make(map[int64]bool)
	for {
		// avoid xref loops
		if seen[start] {
			break
		}
		seen[start] = true

		s := r.scannerAt(start)

		buf, err := s.Peek(4)
		if err != nil {
			return nil, nil, nil, err
		}
		info := &XRefInfo{Pos: start}
		var dict Dict
		switch {
		case bytes.Equal(buf, []byte("xref")):
			dict, err = readXRefTable(xref, s, info)
			if err != nil {
				break
			}
			info.Trailer = dict

			// Hybrid files list further objects in a cross reference
			// stream which the classic table points to via XRefStm.  The
			// stream is consulted after the table, so table entries win.
			if xRefStm, ok := dict["XRefStm"]; ok {
				zStart, ok := xRefStm.(Integer)
				if !ok {
					return nil, nil, nil, &MalformedFileError{
						Pos: start,
						Err: errors.New("wrong type for XRefStm (expected Integer)"),
					}
				}
				hybrid := &XRefInfo{Pos: int64(zStart), IsStream: true}
				s = r.scannerAt(int64(zStart))
				hybrid.Trailer, err = readXRefStream(xref, s, hybrid)
				if err != nil {
					break
				}
				chain = append(chain, info)
				info = hybrid
			}
		default:
			info.IsStream = true
			dict, err = readXRefStream(xref, s, info)
			info.Trailer = dict
		}
		if err != nil {
			return nil, nil, nil, wrap(err, "xref section at "+strconv.FormatInt(start, 10))
		}
		chain = append(chain, info)

		if trailer == nil {
			trailer = dict
		}

		prev := dict["Prev"]
		if prev == nil {
			break
		}
		prevStart, ok := prev.(Integer)
		if !ok || prevStart <= 0 || int64(prevStart) >= r.buf.Size() {
			return nil, nil, nil, &MalformedFileError{
				Pos: start,
				Err: fmt.Errorf("invalid /Prev value %s", Format(prev)),
			}
		}
		start = int64(prevStart)
	}

	return xref, trailer, chain, nil
}

// readXRefTable reads a classic cross reference table, starting at the
// "xref" keyword, and the trailer dictionary which follows it.
func readXRefTable(xref map[uint32]*xRefEntry, s *scanner, info *XRefInfo) (Dict, error) {
	err := s.SkipString("xref")
	if err != nil {
		return nil, err
	}
	err = s.SkipWhiteSpace()
	if err != nil {
		return nil, err
	}

	for {
		buf, err := s.Peek(1)
		if err != nil {
			return nil, err
		}
		if len(buf) == 0 || buf[0] < '0' || buf[0] > '9' {
			break
		}

		start, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		length, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}

		if start < 0 || length < 0 || start+length > 1<<32 {
			return nil, &MalformedFileError{
				Pos: s.filePos(),
				Err: errors.New("invalid xref subsection"),
			}
		}
		info.Sections = append(info.Sections,
			XRefSubSection{Start: int(start), Size: int(length)})

		err = decodeXRefSection(xref, s, int64(start), int64(start+length))
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
	}

	return s.ReadTrailerDict()
}

// decodeXRefSection decodes the fixed-width entry lines of one subsection.
// Every line is exactly 20 bytes long, including the end-of-line marker.
func decodeXRefSection(xref map[uint32]*xRefEntry, s *scanner, start, end int64) error {
	for i := start; i < end; i++ {
		if xref[uint32(i)] != nil {
			// an earlier (newer) section already claimed this number
			err := s.Discard(20)
			if err != nil {
				return err
			}
			continue
		}

		buf, err := s.Peek(20)
		if err != nil {
			return err
		}
		if len(buf) < 20 {
			return &MalformedFileError{
				Pos: s.filePos(),
				Err: io.ErrUnexpectedEOF,
			}
		}

		a, err := strconv.ParseInt(string(buf[:10]), 10, 64)
		if err != nil {
			return &MalformedFileError{Pos: s.filePos(), Err: err}
		}
		b, err := strconv.ParseUint(string(bytes.TrimSpace(buf[11:16])), 10, 16)
		if err != nil {
			// fix a common error in some PDF files
			if bytes.HasPrefix(buf, []byte("0000000000 65536 ")) {
				b = 65535
				buf[17] = 'f'
			} else {
				return &MalformedFileError{Pos: s.filePos(), Err: err}
			}
		}
		c := buf[17]
		switch c {
		case 'f':
			xref[uint32(i)] = &xRefEntry{
				Pos:        -1,
				Generation: uint16(b),
			}
		case 'n':
			xref[uint32(i)] = &xRefEntry{
				Pos:        a,
				Generation: uint16(b),
			}
		default:
			return &MalformedFileError{
				Pos: s.filePos(),
				Err: errors.New("malformed xref table"),
			}
		}

		s.pos += 20
	}
	return nil
}

// readXRefStream reads a cross reference stream, i.e. an indirect stream
// object with /Type /XRef whose decoded payload is a packed binary table.
func readXRefStream(xref map[uint32]*xRefEntry, s *scanner, info *XRefInfo) (Dict, error) {
	obj, _, err := s.ReadIndirectObject()
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok || stream.Dict["Type"] != Name("XRef") {
		return nil, &MalformedFileError{
			Pos: s.filePos(),
			Err: errors.New("invalid xref stream"),
		}
	}
	stream.exempt = true
	dict := stream.Dict

	w, ss, err := checkXRefStreamDict(dict)
	if err != nil {
		return nil, err
	}
	info.Sections = ss

	// Cross reference streams may themselves be compressed; their filters
	// never involve encryption or indirect parameters.
	filters, err := streamFilters(stream, nil)
	if err != nil {
		return nil, err
	}
	decoded, err := applyFilters(stream.Raw(), filters)
	if err != nil {
		return nil, err
	}
	err = decodeXRefStream(xref, decoded, w, ss)
	if err != nil {
		return nil, err
	}

	return dict, nil
}

// checkXRefStreamDict extracts the field widths and subsections from the
// dictionary of a cross reference stream.
func checkXRefStreamDict(dict Dict) ([]int, []XRefSubSection, error) {
	size, ok := dict["Size"].(Integer)
	if !ok || size < 0 {
		return nil, nil, &MalformedFileError{
			Err: errors.New("invalid /Size in xref stream"),
		}
	}
	W, ok := dict["W"].(Array)
	if !ok || len(W) < 3 {
		return nil, nil, &MalformedFileError{
			Err: errors.New("invalid /W in xref stream"),
		}
	}
	var w []int
	for i, Wi := range W {
		wi, ok := Wi.(Integer)
		if !ok || i < 3 && (wi < 0 || wi > 8) {
			return nil, nil, &MalformedFileError{
				Err: errors.New("invalid /W in xref stream"),
			}
		}
		w = append(w, int(wi))
	}

	Index := dict["Index"]
	var ss []XRefSubSection
	if Index == nil {
		ss = append(ss, XRefSubSection{0, int(size)})
	} else {
		ind, ok := Index.(Array)
		if !ok || len(ind)%2 != 0 {
			return nil, nil, &MalformedFileError{
				Err: errors.New("invalid /Index in xref stream"),
			}
		}
		for i := 0; i < len(ind); i += 2 {
			start, ok1 := ind[i].(Integer)
			size, ok2 := ind[i+1].(Integer)
			if !ok1 || !ok2 || start < 0 || size < 0 {
				return nil, nil, &MalformedFileError{
					Err: errors.New("invalid /Index in xref stream"),
				}
			}
			ss = append(ss, XRefSubSection{int(start), int(size)})
		}
	}
	return w, ss, nil
}

// decodeXRefStream decodes the packed binary entries of a cross reference
// stream.  A width of 0 for the first field implies entry type 1; other
// zero-width fields default to the value 0.
func decodeXRefStream(xref map[uint32]*xRefEntry, r io.Reader, w []int, ss []XRefSubSection) error {
	w0 := w[0]
	w1 := w[1]
	w2 := w[2]
	buf := make([]byte, w0+w1+w2)

	for _, sec := range ss {
		for i := sec.Start; i < sec.Start+sec.Size; i++ {
			_, err := io.ReadFull(r, buf)
			if err != nil {
				if err == io.EOF {
					err = io.ErrUnexpectedEOF
				}
				return &MalformedFileError{Err: err}
			}

			if i < 0 || int64(i) > 1<<32-1 || xref[uint32(i)] != nil {
				continue
			}

			tp := decodeInt(buf[:w0])
			if w0 == 0 {
				tp = 1
			}
			a := decodeInt(buf[w0 : w0+w1])
			b := decodeInt(buf[w0+w1 : w0+w1+w2])
			switch tp {
			case 0:
				// free object:
				// a = next free object, b = generation if resurrected
				xref[uint32(i)] = &xRefEntry{
					Pos:        -1,
					Generation: uint16(b),
				}
			case 1:
				// object stored directly in the file:
				// a = byte offset, b = generation
				xref[uint32(i)] = &xRefEntry{
					Pos:        a,
					Generation: uint16(b),
				}
			case 2:
				// object stored in an object stream:
				// a = stream object number, b = index within the stream
				xref[uint32(i)] = &xRefEntry{
					Pos:      b,
					InStream: NewReference(uint32(a), 0),
				}
			}
		}
	}
	return nil
}

func decodeInt(buf []byte) (res int64) {
	for _, x := range buf {
		res = res<<8 | int64(x)
	}
	return res
}
