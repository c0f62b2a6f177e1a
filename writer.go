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
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/exp/maps"
)

// Writer represents a PDF file open for writing.  Objects are written
// sequentially; the cross reference table and the trailer are emitted by
// [Writer.Close].
type Writer struct {
	// Version is the PDF version written to the file header.
	Version Version

	w       *posWriter
	origW   io.Writer
	xref    map[uint32]*xRefEntry
	nextRef uint32
	id      [][]byte
	enc     *encryptInfo
	closed  bool
}

// WriterOptions allows to influence the way a PDF file is generated.
type WriterOptions struct {
	// Version selects the PDF version for the file header.  The zero
	// value means PDF 1.7.
	Version Version

	// UserPassword and OwnerPassword enable encryption with the standard
	// security handler when non-empty.
	UserPassword  string
	OwnerPassword string

	// UserPermissions restricts what a user without the owner password
	// may do with the document.  The zero value means no permissions;
	// use PermAll for an unrestricted file.
	UserPermissions Perm

	// UseAES selects AES-128 (CBC) instead of RC4 for encryption.
	UseAES bool

	// KeyLength is the encryption key length in bits.  The zero value
	// means 128.
	KeyLength int

	// ID gives the two elements of the file identifier.  If nil, a
	// random identifier is generated when one is needed.
	ID [][]byte
}

// NewWriter prepares a PDF file for writing.
func NewWriter(w io.Writer, opt *WriterOptions) (*Writer, error) {
	if opt == nil {
		opt = &WriterOptions{}
	}
	version := opt.Version
	if version == 0 {
		version = V1_7
	}

	pdf := &Writer{
		Version: version,

		w:       &posWriter{w: w},
		origW:   w,
		nextRef: 1,
		xref:    make(map[uint32]*xRefEntry),
	}
	pdf.xref[0] = &xRefEntry{
		Pos:        -1,
		Generation: 65535,
	}

	if len(opt.ID) == 2 {
		pdf.id = opt.ID
	}

	if opt.UserPassword != "" || opt.OwnerPassword != "" {
		err := pdf.setupEncryption(opt)
		if err != nil {
			return nil, err
		}
	}

	verString, err := version.ToString()
	if err != nil {
		return nil, err
	}
	_, err = fmt.Fprintf(pdf.w, "%%PDF-%s\n%%\x80\x80\x80\x80\n", verString)
	if err != nil {
		return nil, err
	}

	return pdf, nil
}

// Create creates the named PDF file and opens it for output.  A previous
// file with the same name is overwritten.  After writing is complete,
// [Writer.Close] must be called to write the trailer and to close the
// underlying file.
func Create(name string) (*Writer, error) {
	fd, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return NewWriter(fd, nil)
}

func (pdf *Writer) setupEncryption(opt *WriterOptions) error {
	if pdf.id == nil {
		id := make([]byte, 32)
		_, err := io.ReadFull(rand.Reader, id)
		if err != nil {
			return err
		}
		pdf.id = [][]byte{id[:16], id[16:]}
	}

	length := opt.KeyLength
	if length == 0 {
		length = 128
	}
	if length < 40 || length > 128 || length%8 != 0 {
		return fmt.Errorf("invalid key length %d", length)
	}

	var cf *cryptFilter
	var V int
	switch {
	case opt.UseAES:
		if length != 128 {
			return errors.New("AES encryption requires a 128 bit key")
		}
		cf = &cryptFilter{Cipher: cipherAES, Length: 128}
		V = 4
	case length == 40:
		cf = &cryptFilter{Cipher: cipherRC4, Length: 40}
		V = 1
	default:
		cf = &cryptFilter{Cipher: cipherRC4, Length: length}
		V = 2
	}

	sec, err := createStdSecHandler(pdf.id[0], opt.UserPassword,
		opt.OwnerPassword, opt.UserPermissions, length, V)
	if err != nil {
		return err
	}

	pdf.enc = &encryptInfo{
		sec:             sec,
		stmF:            cf,
		strF:            cf,
		efF:             cf,
		UserPermissions: opt.UserPermissions,
	}
	pdf.w.enc = pdf.enc
	return nil
}

// Alloc allocates an object number for an indirect object.
func (pdf *Writer) Alloc() Reference {
	res := NewReference(pdf.nextRef, 0)
	pdf.nextRef++
	return res
}

// WriteObject writes the serialized form of obj at the current position.
func (pdf *Writer) WriteObject(obj Object) error {
	if pdf.closed {
		return errors.New("writer is closed")
	}
	if obj == nil {
		_, err := pdf.w.Write([]byte("null"))
		return err
	}
	return obj.PDF(pdf.w)
}

// Add writes an object to the file as an indirect object, allocating a
// new object number for it.  The returned reference can be used to refer
// to the object from other parts of the file.
func (pdf *Writer) Add(obj Object) (Reference, error) {
	ref := pdf.Alloc()
	err := pdf.Put(ref, obj)
	if err != nil {
		return 0, err
	}
	return ref, nil
}

// Put writes an object to the file as an indirect object with the given
// reference.  For streams, the Length entry of the stream dictionary is
// updated to the number of payload bytes actually written, after
// encryption.
func (pdf *Writer) Put(ref Reference, obj Object) error {
	if pdf.closed {
		return errors.New("writer is closed")
	}
	if _, seen := pdf.xref[ref.Number()]; seen {
		return errors.New("object " + ref.String() + " already written")
	}

	pos := pdf.w.pos

	if obj == nil {
		// missing objects are treated as null
		pdf.xref[ref.Number()] = &xRefEntry{Pos: -1, Generation: ref.Generation()}
		return nil
	}

	pdf.w.ref = ref
	defer func() { pdf.w.ref = 0 }()

	_, err := fmt.Fprintf(pdf.w, "%d %d obj\n", ref.Number(), ref.Generation())
	if err != nil {
		return err
	}

	if stm, isStream := obj.(*Stream); isStream {
		err = pdf.putStream(ref, stm)
	} else {
		err = obj.PDF(pdf.w)
	}
	if err != nil {
		return err
	}

	_, err = pdf.w.Write([]byte("\nendobj\n"))
	if err != nil {
		return err
	}

	pdf.xref[ref.Number()] = &xRefEntry{Pos: pos, Generation: ref.Generation()}
	return nil
}

// putStream writes a stream object.  The payload is buffered so that the
// Length entry can be filled in before the dictionary is written.
func (pdf *Writer) putStream(ref Reference, stm *Stream) error {
	payload := &bytes.Buffer{}
	var sink io.WriteCloser = withDummyClose{payload}
	if pdf.enc != nil {
		var err error
		sink, err = pdf.enc.EncryptStream(ref, sink)
		if err != nil {
			return err
		}
	}
	_, err := io.Copy(sink, stm.Raw())
	if err != nil {
		return err
	}
	err = sink.Close()
	if err != nil {
		return err
	}

	dict := make(Dict, len(stm.Dict)+1)
	maps.Copy(dict, stm.Dict)
	dict["Length"] = Integer(payload.Len())

	err = dict.PDF(pdf.w)
	if err != nil {
		return err
	}
	_, err = pdf.w.Write([]byte("\nstream\n"))
	if err != nil {
		return err
	}
	_, err = pdf.w.Write(payload.Bytes())
	if err != nil {
		return err
	}
	_, err = pdf.w.Write([]byte("\nendstream"))
	return err
}

// Close writes the cross reference table, the trailer and the end of file
// marker, and closes the underlying writer if it has a Close method.
// The root argument gives the document catalog; info may be 0 if there is
// no document information dictionary.
func (pdf *Writer) Close(root, info Reference) error {
	if pdf.closed {
		return errors.New("writer is closed")
	}
	if root == 0 {
		return errors.New("missing /Root")
	}

	trailer := Dict{
		"Root": root,
	}
	if info != 0 {
		trailer["Info"] = info
	}

	if pdf.enc != nil {
		encDict, err := pdf.enc.AsDict(pdf.Version)
		if err != nil {
			return err
		}
		// The encryption dictionary itself is stored unencrypted.
		pdf.w.enc = nil
		encRef, err := pdf.Add(encDict)
		if err != nil {
			return err
		}
		pdf.w.enc = pdf.enc
		trailer["Encrypt"] = encRef
	}
	if pdf.id != nil {
		trailer["ID"] = Array{String(pdf.id[0]), String(pdf.id[1])}
	}

	size := uint32(0)
	for num := range pdf.xref {
		if num >= size {
			size = num + 1
		}
	}
	trailer["Size"] = Integer(size)

	xRefPos := pdf.w.pos
	err := pdf.writeXRefTable(trailer)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(pdf.w, "\nstartxref\n%d\n%%%%EOF\n", xRefPos)
	if err != nil {
		return err
	}

	pdf.closed = true

	closer, ok := pdf.origW.(io.Closer)
	if ok {
		return closer.Close()
	}
	return nil
}

// writeXRefTable emits a classic cross reference table covering all
// objects written so far, followed by the trailer dictionary.  One
// subsection is written per contiguous run of object numbers.
func (pdf *Writer) writeXRefTable(trailer Dict) error {
	numbers := maps.Keys(pdf.xref)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })

	_, err := pdf.w.Write([]byte("xref\n"))
	if err != nil {
		return err
	}

	for start := 0; start < len(numbers); {
		end := start + 1
		for end < len(numbers) && numbers[end] == numbers[end-1]+1 {
			end++
		}

		_, err = fmt.Fprintf(pdf.w, "%d %d\n", numbers[start], end-start)
		if err != nil {
			return err
		}
		for _, num := range numbers[start:end] {
			entry := pdf.xref[num]
			if entry.Pos >= 0 {
				_, err = fmt.Fprintf(pdf.w, "%010d %05d n\r\n",
					entry.Pos, entry.Generation)
			} else {
				_, err = fmt.Fprintf(pdf.w, "0000000000 %05d f\r\n",
					entry.Generation)
			}
			if err != nil {
				return err
			}
		}

		start = end
	}

	_, err = pdf.w.Write([]byte("trailer\n"))
	if err != nil {
		return err
	}
	return trailer.PDF(pdf.w)
}

// posWriter tracks the file position of the bytes written, and carries
// the encryption state used when strings are serialized inside indirect
// objects.
type posWriter struct {
	w   io.Writer
	pos int64

	enc *encryptInfo
	ref Reference
}

func (w *posWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.pos += int64(n)
	return n, err
}

// withDummyClose adds a no-op Close method to a writer.
type withDummyClose struct {
	io.Writer
}

func (w withDummyClose) Close() error {
	return nil
}
