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
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testBuffer(contents string) *Buffer {
	r := bytes.NewReader([]byte(contents))
	return NewBuffer(r, r.Size())
}

func TestReadLine(t *testing.T) {
	cases := []struct {
		in    string
		lines []string
	}{
		{"a\nb\nc", []string{"a", "b", "c"}},
		{"a\rb", []string{"a", "b"}},
		{"a\r\nb", []string{"a", "b"}},
		{"a\n\nb", []string{"a", "", "b"}},
		{"a\r\rb", []string{"a", "", "b"}},
		{"no terminator", []string{"no terminator"}},
		{"trailing\n", []string{"trailing"}},
	}
	for _, test := range cases {
		b := testBuffer(test.in)
		var lines []string
		for {
			line, err := b.ReadLine()
			if err == io.ErrUnexpectedEOF {
				break
			}
			if err != nil {
				t.Fatalf("%q: %v", test.in, err)
			}
			lines = append(lines, string(line))
			if b.Pos() >= b.Size() {
				break
			}
		}
		if d := cmp.Diff(lines, test.lines); d != "" {
			t.Errorf("%q: wrong lines (-got +want):\n%s", test.in, d)
		}
	}
}

func TestReadLineLong(t *testing.T) {
	long := bytes.Repeat([]byte{'x'}, 1000)
	b := testBuffer(string(long) + "\nshort")
	line, err := b.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(line, long) {
		t.Errorf("long line corrupted, got %d bytes", len(line))
	}
	line, err = b.ReadLine()
	if err != nil {
		t.Fatal(err)
	}
	if string(line) != "short" {
		t.Errorf("got %q", line)
	}
}

func TestReadBackToken(t *testing.T) {
	cases := []struct {
		in  string
		tok string
	}{
		{"startxref\n116\n%%EOF", "%%EOF"},
		{"startxref\n116\n%%EOF\n", "%%EOF"},
		{"startxref\n116\n%%EOF\r\n  \n ", "%%EOF"},
		{"%%EOF", "%%EOF"},
	}
	for _, test := range cases {
		b := testBuffer(test.in)
		if err := b.Seek(b.Size()); err != nil {
			t.Fatal(err)
		}
		tok, err := b.ReadBackToken()
		if err != nil {
			t.Fatalf("%q: %v", test.in, err)
		}
		if string(tok) != test.tok {
			t.Errorf("%q: got token %q", test.in, tok)
		}
	}

	// two tokens can be read back to back
	b := testBuffer("startxref 116 %%EOF")
	b.Seek(b.Size())
	for _, want := range []string{"%%EOF", "116", "startxref"} {
		tok, err := b.ReadBackToken()
		if err != nil {
			t.Fatal(err)
		}
		if string(tok) != want {
			t.Errorf("got %q, want %q", tok, want)
		}
	}
}

func TestLastOccurrence(t *testing.T) {
	in := "startxref here, startxref there, and junk"
	b := testBuffer(in)
	pos, err := b.LastOccurrence("startxref", 0)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 16 {
		t.Errorf("got position %d, want 16", pos)
	}

	// the window limits the search
	_, err = b.LastOccurrence("startxref", 8)
	if err == nil {
		t.Error("expected error for match outside window")
	}
}

func TestLastOccurrenceChunked(t *testing.T) {
	// pattern straddling a chunk boundary
	pad := bytes.Repeat([]byte{'x'}, 1020)
	in := string(pad) + "startxref" + string(bytes.Repeat([]byte{'y'}, 1020))
	b := testBuffer(in)
	pos, err := b.LastOccurrence("startxref", 0)
	if err != nil {
		t.Fatal(err)
	}
	if pos != 1020 {
		t.Errorf("got position %d, want 1020", pos)
	}
}

func TestBufferReads(t *testing.T) {
	b := testBuffer("hello world")
	if err := b.Seek(6); err != nil {
		t.Fatal(err)
	}
	c, err := b.ReadByte()
	if err != nil || c != 'w' {
		t.Errorf("ReadByte: %q %v", c, err)
	}
	buf, err := b.ReadN(4)
	if err != nil || string(buf) != "orld" {
		t.Errorf("ReadN: %q %v", buf, err)
	}
	if b.Pos() != 11 {
		t.Errorf("Pos: %d", b.Pos())
	}
	_, err = b.ReadN(1)
	if err != io.ErrUnexpectedEOF {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
	if err := b.Seek(100); err == nil {
		t.Error("expected error for seek outside file")
	}
}
