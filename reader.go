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
	"fmt"
	"io"
	"os"
)

// Reader represents a PDF file opened for reading.  Use [Open] or
// [NewReader] to create a Reader.
//
// A Reader is a single-cursor document handle: its operations reposition
// the underlying byte source and must not be interleaved concurrently.
// Objects are fetched lazily; the file is never loaded as a whole.
type Reader struct {
	// Version is the PDF version used in this file, from the initial
	// comment at the start of the file.
	Version Version

	// ID is the ID of the file: a slice of two byte slices (the original
	// ID of the file, and the ID of the current version), or nil if the
	// file does not specify an ID.
	ID [][]byte

	buf     *Buffer
	data    io.ReaderAt
	xref    map[uint32]*xRefEntry
	chain   []*XRefInfo
	trailer Dict

	level   int
	special map[Reference]bool

	enc *encryptInfo
}

// ReaderOptions allows to influence the way a PDF file is opened.
type ReaderOptions struct {
	// Password is used to authenticate when the document is encrypted.
	// An encrypted document which the empty password does not unlock
	// stays locked until [Reader.SetUserPassword] succeeds.
	Password string
}

// Open opens the named PDF file for reading.  After use, [Reader.Close]
// must be called to close the underlying file.
func Open(fname string) (*Reader, error) {
	fd, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	fi, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, err
	}
	r, err := NewReader(fd, fi.Size(), nil)
	if err != nil {
		fd.Close()
		return nil, err
	}
	return r, nil
}

// NewReader creates a new Reader for a PDF file stored in data.  The
// Reader takes ownership of data: closing the Reader closes data if it
// has a Close method.
func NewReader(data io.ReaderAt, size int64, opt *ReaderOptions) (*Reader, error) {
	if opt == nil {
		opt = &ReaderOptions{}
	}

	r := &Reader{
		buf:     NewBuffer(data, size),
		data:    data,
		special: make(map[Reference]bool),
	}

	s := r.scannerAt(0)
	version, err := s.readHeaderVersion()
	if err != nil {
		return nil, err
	}
	r.Version = version

	xref, trailer, chain, err := r.readXRef()
	if err != nil {
		return nil, err
	}
	r.xref = xref
	r.trailer = trailer
	r.chain = chain

	ID, ok := trailer["ID"].(Array)
	if ok && len(ID) >= 2 {
		for i := 0; i < 2; i++ {
			s, ok := ID[i].(String)
			if !ok {
				break
			}
			r.ID = append(r.ID, []byte(s))
		}
		if len(r.ID) != 2 {
			r.ID = nil
		}
	}

	if encObj, ok := trailer["Encrypt"]; ok {
		if ref, ok := encObj.(Reference); ok {
			r.special[ref] = true
		}
		r.enc, err = r.parseEncryptDict(encObj, opt.Password)
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Close closes the byte source underlying the Reader.  This call only has
// an effect if the source passed to [NewReader] has a Close method, or if
// the Reader was created using [Open].  Otherwise, Close has no effect
// and returns nil.
func (r *Reader) Close() error {
	closer, ok := r.data.(io.Closer)
	if ok {
		return closer.Close()
	}
	return nil
}

// Trailer returns the trailer dictionary of the most recent cross
// reference section.
func (r *Reader) Trailer() Dict {
	return r.trailer
}

// XRefChain describes the cross reference sections of the file, newest
// first.
func (r *Reader) XRefChain() []*XRefInfo {
	return r.chain
}

// SetUserPassword attempts to unlock an encrypted document with the given
// password.  Both the user and the owner password verification protocols
// are tried.  For unencrypted documents the call has no effect.
func (r *Reader) SetUserPassword(passwd string) error {
	if r.enc == nil {
		return nil
	}
	return r.enc.sec.TryPassword(passwd)
}

// UserPermissions reports which operations the document permits when
// opened with user access.  For unencrypted documents this is PermAll.
func (r *Reader) UserPermissions() Perm {
	if r.enc == nil {
		return PermAll
	}
	return r.enc.UserPermissions
}

// Get reads the indirect object identified by ref from the file.  Free
// and missing objects yield a nil Object without error.
func (r *Reader) Get(ref Reference) (Object, error) {
	obj, err := r.doGet(ref, true)
	if err != nil {
		return nil, wrap(err, "object "+ref.String())
	}
	return obj, nil
}

// Resolve resolves references to indirect objects.  If obj is a
// [Reference], the corresponding object is loaded from the file;
// otherwise obj is returned unchanged.  Resolve does not descend into
// arrays, dictionaries or streams.
func (r *Reader) Resolve(obj Object) (Object, error) {
	return Resolve(r, obj)
}

func (r *Reader) doGet(ref Reference, canStream bool) (Object, error) {
	if r.xref == nil {
		return nil, &MalformedFileError{
			Err: errors.New("cannot resolve references while reading the xref table"),
		}
	}

	entry := r.xref[ref.Number()]
	if entry.IsFree() {
		return nil, nil
	}

	if entry.InStream != 0 {
		if ref.Generation() != 0 {
			return nil, &MalformedFileError{
				Err: fmt.Errorf("wrong generation %d for compressed object",
					ref.Generation()),
			}
		}
		if !canStream {
			return nil, &MalformedFileError{
				Err: errors.New("object streams inside streams not allowed"),
			}
		}
		return r.getFromObjectStream(ref.Number(), entry)
	}

	if entry.Generation != ref.Generation() {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: fmt.Errorf("expected generation %d but found %d",
				ref.Generation(), entry.Generation),
		}
	}

	s := r.scannerAt(entry.Pos)
	obj, fileRef, err := s.ReadIndirectObject()
	if err != nil {
		return nil, err
	}

	if ref != fileRef {
		return nil, &MalformedFileError{
			Pos: entry.Pos,
			Err: errors.New("xref corrupted"),
		}
	}

	if stm, ok := obj.(*Stream); ok {
		if stm.Dict["Type"] == Name("XRef") {
			stm.exempt = true
		}
		if r.enc != nil && r.enc.sec.unencryptedMetaData &&
			stm.Dict["Type"] == Name("Metadata") {
			stm.exempt = true
		}
	}

	return obj, nil
}

// StreamContent returns a reader for the decoded content of a stream: the
// payload bytes are decrypted, if the document is encrypted and the
// stream is not exempt, and then passed through the stream's filter
// chain.  Each call yields a fresh reader starting at the beginning of
// the payload; abandoning a reader does not affect the document handle.
func (r *Reader) StreamContent(ref Reference, stm *Stream) (io.Reader, error) {
	filters, err := streamFilters(stm, r.Resolve)
	if err != nil {
		return nil, wrap(err, "filters for "+ref.String())
	}

	src := stm.Raw()
	if r.enc != nil && !stm.exempt && !r.special[ref] && !hasIdentityCrypt(filters) {
		src, err = r.enc.DecryptStream(ref, src)
		if err != nil {
			return nil, wrap(err, "decrypting "+ref.String())
		}
	}

	res, err := applyFilters(src, filters)
	if err != nil {
		return nil, wrap(err, "contents of "+ref.String())
	}
	return res, nil
}

// objStm gives access to the objects embedded in an object stream.
type objStm struct {
	s   *scanner
	idx []stmObj
}

type stmObj struct {
	number uint32
	offs   int
}

func (r *Reader) objStmScanner(ref Reference, stream *Stream) (*objStm, error) {
	N, err := GetInt(r, stream.Dict["N"])
	if err != nil {
		return nil, err
	}
	if N < 0 || N > 10000 {
		return nil, &MalformedFileError{
			Err: errors.New("no valid /N for ObjStm"),
		}
	}
	n := int(N)

	decoded, err := r.StreamContent(ref, stream)
	if err != nil {
		return nil, err
	}

	// Strings inside the container were decrypted together with the
	// container, so the scanner runs without encryption state.
	s := newScanner(decoded, 0, r.safeGetInt, nil)

	idx := make([]stmObj, n)
	for i := 0; i < n; i++ {
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		no, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		err = s.SkipWhiteSpace()
		if err != nil {
			return nil, err
		}
		offs, err := s.ReadInteger()
		if err != nil {
			return nil, err
		}
		if no < 0 || no > 1<<32-1 || offs < 0 {
			return nil, &MalformedFileError{
				Err: errors.New("invalid ObjStm index entry"),
			}
		}
		idx[i].number = uint32(no)
		idx[i].offs = int(offs)
	}

	pos := s.bytesRead()
	first, err := GetInt(r, stream.Dict["First"])
	if err != nil {
		return nil, err
	}
	if first < Integer(pos) {
		return nil, &MalformedFileError{
			Err: errors.New("no valid /First for ObjStm"),
		}
	}
	for i := range idx {
		idx[i].offs += int(first)
	}

	return &objStm{s: s, idx: idx}, nil
}

// getFromObjectStream reads one object from an object stream.  The xref
// entry gives the containing stream and the index within it.
func (r *Reader) getFromObjectStream(number uint32, entry *xRefEntry) (Object, error) {
	container, err := r.doGet(entry.InStream, false)
	if err != nil {
		return nil, err
	}
	stream, ok := container.(*Stream)
	if !ok || stream.Dict["Type"] != Name("ObjStm") {
		return nil, &MalformedFileError{
			Err: errors.New("invalid object stream " + entry.InStream.String()),
		}
	}

	contents, err := r.objStmScanner(entry.InStream, stream)
	if err != nil {
		return nil, wrap(err, "object stream "+entry.InStream.String())
	}

	if entry.Pos < 0 || entry.Pos >= int64(len(contents.idx)) {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("index %d outside object stream", entry.Pos),
		}
	}
	info := contents.idx[entry.Pos]
	if info.number != number {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("expected object %d at index %d but found %d",
				number, entry.Pos, info.number),
		}
	}

	err = contents.s.Discard(int64(info.offs) - contents.s.bytesRead())
	if err != nil {
		return nil, err
	}
	return contents.s.ReadObject()
}

// safeGetInt resolves an integer value, guarding against unbounded
// indirection while a stream header is being parsed.
func (r *Reader) safeGetInt(obj Object) (Integer, error) {
	if x, ok := obj.(Integer); ok {
		return x, nil
	}

	if r.level > 2 {
		return 0, &MalformedFileError{
			Err: errors.New("length indirection too deep"),
		}
	}
	r.level++
	val, err := GetInt(r, obj)
	r.level--
	return val, err
}

func (r *Reader) scannerAt(pos int64) *scanner {
	s := newScanner(r.buf.SectionAt(pos), pos, r.safeGetInt, r.enc)
	s.special = r.special
	return s
}
