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
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fixture assembles a PDF file in memory, tracking the byte offsets of
// the objects added to it.
type fixture struct {
	buf     bytes.Buffer
	offsets map[int]int64
}

func newFixture() *fixture {
	f := &fixture{offsets: make(map[int]int64)}
	f.buf.WriteString("%PDF-1.7\n%\x80\x80\x80\x80\n")
	return f
}

func (f *fixture) pos() int64 {
	return int64(f.buf.Len())
}

// obj writes an indirect object and records its offset.
func (f *fixture) obj(num int, body string) {
	f.offsets[num] = f.pos()
	fmt.Fprintf(&f.buf, "%d 0 obj\n%s\nendobj\n", num, body)
}

// streamObj writes an indirect stream object and records its offset.
func (f *fixture) streamObj(num int, dict, payload string) {
	f.offsets[num] = f.pos()
	fmt.Fprintf(&f.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		num, dict, len(payload), payload)
}

// xrefTable writes a classic xref table covering objects 0 to size-1,
// followed by the trailer and the file end marker.
func (f *fixture) xrefTable(size int, trailer string) {
	xrefPos := f.pos()
	fmt.Fprintf(&f.buf, "xref\n0 %d\n", size)
	f.buf.WriteString("0000000000 65535 f\r\n")
	for num := 1; num < size; num++ {
		fmt.Fprintf(&f.buf, "%010d 00000 n\r\n", f.offsets[num])
	}
	fmt.Fprintf(&f.buf, "trailer\n%s\nstartxref\n%d\n%%%%EOF\n", trailer, xrefPos)
}

func (f *fixture) open(t *testing.T) *Reader {
	t.Helper()
	data := f.buf.Bytes()
	r, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func minimalPDF() *fixture {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	f.obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	f.obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	f.xrefTable(4, "<< /Size 4 /Root 1 0 R >>")
	return f
}

func TestMinimalDocument(t *testing.T) {
	r := minimalPDF().open(t)

	if r.Version != V1_7 {
		t.Errorf("wrong version %s", r.Version)
	}
	if r.Trailer()["Root"] != NewReference(1, 0) {
		t.Errorf("wrong Root in trailer")
	}

	obj, err := r.Get(NewReference(3, 0))
	if err != nil {
		t.Fatal(err)
	}
	want := Dict{
		"Type":     Name("Page"),
		"Parent":   NewReference(2, 0),
		"MediaBox": Array{Integer(0), Integer(0), Integer(612), Integer(792)},
	}
	if d := cmp.Diff(obj, want); d != "" {
		t.Errorf("object 3 (-got +want):\n%s", d)
	}

	pages, err := r.Resolve(NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	kids := pages.(Dict)["Kids"].(Array)
	if len(kids) != 1 || kids[0] != NewReference(3, 0) {
		t.Errorf("wrong Kids array %v", kids)
	}
}

func TestLookupStable(t *testing.T) {
	r := minimalPDF().open(t)
	first, err := r.Get(NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := r.Get(NewReference(2, 0))
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(again, first); d != "" {
			t.Errorf("lookup not stable (-got +want):\n%s", d)
		}
	}
}

func TestMissingObjectIsNull(t *testing.T) {
	r := minimalPDF().open(t)
	obj, err := r.Get(NewReference(9, 0))
	if err != nil {
		t.Fatal(err)
	}
	if obj != nil {
		t.Errorf("expected null for missing object, got %v", obj)
	}
}

func TestWrongGeneration(t *testing.T) {
	r := minimalPDF().open(t)
	_, err := r.Get(NewReference(1, 5))
	var mfe *MalformedFileError
	if !errors.As(err, &mfe) {
		t.Errorf("expected MalformedFileError, got %v", err)
	}
}

func TestTrailingJunkAfterEOF(t *testing.T) {
	f := minimalPDF()
	f.buf.WriteString("\n% some comment\n   \t \n\n")
	r := f.open(t)
	if _, err := r.Get(NewReference(1, 0)); err != nil {
		t.Fatal(err)
	}
}

func TestEmptyXRefSubsection(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	xrefPos := f.pos()
	fmt.Fprintf(&f.buf, "xref\n0 2\n0000000000 65535 f\r\n%010d 00000 n\r\n3 0\n",
		f.offsets[1])
	fmt.Fprintf(&f.buf, "trailer\n<< /Size 2 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		xrefPos)
	r := f.open(t)
	if _, err := r.Get(NewReference(1, 0)); err != nil {
		t.Fatal(err)
	}
}

func TestMissingStartXRef(t *testing.T) {
	data := []byte("%PDF-1.7\nthis file has no cross reference data\n")
	_, err := NewReader(bytes.NewReader(data), int64(len(data)), nil)
	var mfe *MalformedFileError
	if !errors.As(err, &mfe) {
		t.Errorf("expected MalformedFileError, got %v", err)
	}
}

func TestPrevChain(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog /Data 2 0 R >>")
	f.obj(2, "(old value)")
	oldXRef := f.pos()
	fmt.Fprintf(&f.buf, "xref\n0 3\n0000000000 65535 f\r\n%010d 00000 n\r\n%010d 00000 n\r\n",
		f.offsets[1], f.offsets[2])
	fmt.Fprintf(&f.buf, "trailer\n<< /Size 3 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		oldXRef)

	// incremental update: object 2 is replaced
	f.obj(2, "(new value)")
	newXRef := f.pos()
	fmt.Fprintf(&f.buf, "xref\n2 1\n%010d 00000 n\r\n", f.offsets[2])
	fmt.Fprintf(&f.buf, "trailer\n<< /Size 3 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n",
		oldXRef, newXRef)

	r := f.open(t)

	if len(r.XRefChain()) != 2 {
		t.Fatalf("expected 2 xref sections, got %d", len(r.XRefChain()))
	}
	if r.XRefChain()[0].Pos != newXRef || r.XRefChain()[1].Pos != oldXRef {
		t.Errorf("wrong chain order")
	}

	obj, err := r.Get(NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := obj.(String); string(s) != "new value" {
		t.Errorf("got %v, want the updated object", obj)
	}

	// the unchanged object is still reachable through the older section
	obj, err = r.Get(NewReference(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := obj.(Dict); !ok {
		t.Errorf("object 1 not readable: %v", obj)
	}
}

// xrefStreamEntry packs one entry of a cross reference stream with
// W = [1 2 1].
func xrefStreamEntry(tp byte, f2 int64, f3 byte) []byte {
	return []byte{tp, byte(f2 >> 8), byte(f2), f3}
}

func TestXRefStream(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog /Value 3 0 R >>")
	// object 3 lives in the object stream, object 4, at index 0
	objStmPayload := "3 0 << /X 42 >>"
	f.streamObj(4, "/Type /ObjStm /N 1 /First 4", objStmPayload)

	xrefPos := f.pos()
	var entries []byte
	entries = append(entries, xrefStreamEntry(0, 0, 255)...)            // 0: free
	entries = append(entries, xrefStreamEntry(1, f.offsets[1], 0)...)   // 1: in file
	entries = append(entries, xrefStreamEntry(0, 0, 0)...)              // 2: free
	entries = append(entries, xrefStreamEntry(2, 4, 0)...)              // 3: in object stream 4, index 0
	entries = append(entries, xrefStreamEntry(1, f.offsets[4], 0)...)   // 4: in file
	entries = append(entries, xrefStreamEntry(1, xrefPos, 0)...)        // 5: the xref stream itself
	f.offsets[5] = xrefPos
	fmt.Fprintf(&f.buf,
		"5 0 obj\n<< /Type /XRef /Size 6 /W [1 2 1] /Index [0 6] /Root 1 0 R /Length %d >>\nstream\n",
		len(entries))
	f.buf.Write(entries)
	f.buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&f.buf, "startxref\n%d\n%%%%EOF\n", xrefPos)

	r := f.open(t)

	if len(r.XRefChain()) != 1 || !r.XRefChain()[0].IsStream {
		t.Fatalf("expected a single xref stream section")
	}
	wantSections := []XRefSubSection{{0, 6}}
	if d := cmp.Diff(r.XRefChain()[0].Sections, wantSections); d != "" {
		t.Errorf("wrong sections (-got +want):\n%s", d)
	}

	obj, err := r.Get(NewReference(3, 0))
	if err != nil {
		t.Fatal(err)
	}
	want := Dict{"X": Integer(42)}
	if d := cmp.Diff(obj, want); d != "" {
		t.Errorf("compressed object (-got +want):\n%s", d)
	}

	// the trailer comes from the stream dictionary
	if r.Trailer()["Root"] != NewReference(1, 0) {
		t.Error("wrong trailer")
	}
}

func TestXRefStreamWidthDefaults(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")

	xrefPos := f.pos()
	// W = [1 2 0]: the third field defaults to 0, which gives
	// generation 0 for used entries
	var entries []byte
	entries = append(entries, 0, 0, 0) // 0: free
	entries = append(entries, 1, byte(f.offsets[1]>>8), byte(f.offsets[1]))
	entries = append(entries, 1, byte(xrefPos>>8), byte(xrefPos))
	f.offsets[2] = xrefPos
	fmt.Fprintf(&f.buf,
		"2 0 obj\n<< /Type /XRef /Size 3 /W [1 2 0] /Root 1 0 R /Length %d >>\nstream\n",
		len(entries))
	f.buf.Write(entries)
	f.buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&f.buf, "startxref\n%d\n%%%%EOF\n", xrefPos)

	r := f.open(t)
	obj, err := r.Get(NewReference(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(obj, Dict{"Type": Name("Catalog")}); d != "" {
		t.Errorf("object 1 (-got +want):\n%s", d)
	}
}

func TestHybridXRef(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog /Extra 3 0 R >>")
	f.obj(2, "(classic object)")

	// the hybrid xref stream covers objects 3 and 4
	f.obj(3, "(hybrid object)")
	streamXRefPos := f.pos()
	var entries []byte
	entries = append(entries, xrefStreamEntry(1, f.offsets[3], 0)...)
	entries = append(entries, xrefStreamEntry(1, streamXRefPos, 0)...)
	fmt.Fprintf(&f.buf,
		"4 0 obj\n<< /Type /XRef /Size 5 /W [1 2 1] /Index [3 2] /Root 1 0 R /Length %d >>\nstream\n",
		len(entries))
	f.buf.Write(entries)
	f.buf.WriteString("\nendstream\nendobj\n")

	xrefPos := f.pos()
	fmt.Fprintf(&f.buf, "xref\n0 3\n0000000000 65535 f\r\n%010d 00000 n\r\n%010d 00000 n\r\n",
		f.offsets[1], f.offsets[2])
	fmt.Fprintf(&f.buf,
		"trailer\n<< /Size 5 /Root 1 0 R /XRefStm %d >>\nstartxref\n%d\n%%%%EOF\n",
		streamXRefPos, xrefPos)

	r := f.open(t)

	chain := r.XRefChain()
	if len(chain) != 2 || chain[0].IsStream || !chain[1].IsStream {
		t.Fatalf("unexpected chain structure")
	}

	obj, err := r.Get(NewReference(3, 0))
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := obj.(String); string(s) != "hybrid object" {
		t.Errorf("got %v", obj)
	}
	obj, err = r.Get(NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	if s, _ := obj.(String); string(s) != "classic object" {
		t.Errorf("got %v", obj)
	}
}

func TestFreeMasksOlder(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	f.obj(2, "(doomed)")
	oldXRef := f.pos()
	fmt.Fprintf(&f.buf, "xref\n0 3\n0000000000 65535 f\r\n%010d 00000 n\r\n%010d 00000 n\r\n",
		f.offsets[1], f.offsets[2])
	fmt.Fprintf(&f.buf, "trailer\n<< /Size 3 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		oldXRef)

	// the update frees object 2
	newXRef := f.pos()
	f.buf.WriteString("xref\n2 1\n0000000000 00001 f\r\n")
	fmt.Fprintf(&f.buf, "trailer\n<< /Size 3 /Root 1 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n",
		oldXRef, newXRef)

	r := f.open(t)
	obj, err := r.Get(NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	if obj != nil {
		t.Errorf("freed object still visible: %v", obj)
	}
}

func TestIndirectLength(t *testing.T) {
	f := newFixture()
	f.obj(1, "<< /Type /Catalog /Data 2 0 R >>")
	payload := "indirect length payload"
	f.offsets[2] = f.pos()
	fmt.Fprintf(&f.buf, "2 0 obj\n<< /Length 3 0 R >>\nstream\n%s\nendstream\nendobj\n",
		payload)
	f.obj(3, fmt.Sprintf("%d", len(payload)))
	f.xrefTable(4, "<< /Size 4 /Root 1 0 R >>")

	r := f.open(t)
	obj, err := r.Get(NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	stm, ok := obj.(*Stream)
	if !ok {
		t.Fatalf("expected stream, got %T", obj)
	}
	content, err := r.StreamContent(NewReference(2, 0), stm)
	if err != nil {
		t.Fatal(err)
	}
	data := readAll(t, content)
	if string(data) != payload {
		t.Errorf("got %q", data)
	}
}
