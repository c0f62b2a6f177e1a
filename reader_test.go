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
	"compress/zlib"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeEncrypted produces an encrypted test document with one string
// object and one stream object.
func writeEncrypted(t *testing.T, opt *WriterOptions, payload string) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, opt)
	if err != nil {
		t.Fatal(err)
	}
	root, err := w.Add(Dict{
		"Type":  Name("Catalog"),
		"Title": String("secret title"),
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = w.Add(&Stream{
		Dict: Dict{},
		R:    strings.NewReader(payload),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(root, 0); err != nil {
		t.Fatal(err)
	}
	return buf
}

func TestEncryptedRC4(t *testing.T) {
	// a V=2 R=3 file with an empty user password
	payload := "the quick brown fox jumps over the lazy dog"
	buf := writeEncrypted(t, &WriterOptions{
		OwnerPassword:   "owner secret",
		UserPermissions: PermAll &^ PermModify,
	}, payload)

	// the ciphertext must not contain the plaintext
	if bytes.Contains(buf.Bytes(), []byte(payload)) {
		t.Fatal("stream payload not encrypted")
	}
	if bytes.Contains(buf.Bytes(), []byte("secret title")) {
		t.Fatal("string not encrypted")
	}

	// opening with the empty password succeeds
	r := reopen(t, buf, nil)

	dict, err := GetDict(r, NewReference(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(dict["Title"].(String)) != "secret title" {
		t.Errorf("wrong title %q", dict["Title"])
	}

	stm, err := GetStream(r, NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	content, err := r.StreamContent(NewReference(2, 0), stm)
	if err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, content); string(got) != payload {
		t.Errorf("wrong payload %q", got)
	}

	// a wrong password is reported, and does not lock the document
	err = r.SetUserPassword("wrong")
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthenticationError, got %v", err)
	}
	if _, err := GetDict(r, NewReference(1, 0)); err != nil {
		t.Errorf("document locked after failed password attempt: %v", err)
	}

	// the owner password is accepted
	if err := r.SetUserPassword("owner secret"); err != nil {
		t.Errorf("owner password rejected: %v", err)
	}

	if r.UserPermissions()&PermModify != 0 {
		t.Error("PermModify unexpectedly granted")
	}
}

func TestEncryptedRC4NonEmptyPassword(t *testing.T) {
	payload := "user password protected"
	buf := writeEncrypted(t, &WriterOptions{
		UserPassword:    "letmein",
		UserPermissions: PermAll,
	}, payload)

	// opening without a password leaves the document locked
	r := reopen(t, buf, nil)
	_, err := GetDict(r, NewReference(1, 0))
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}

	// unlocking by SetUserPassword
	if err := r.SetUserPassword("letmein"); err != nil {
		t.Fatal(err)
	}
	dict, err := GetDict(r, NewReference(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(dict["Title"].(String)) != "secret title" {
		t.Errorf("wrong title %q", dict["Title"])
	}

	// opening with the password given in the options
	r = reopen(t, buf, &ReaderOptions{Password: "letmein"})
	if _, err := GetDict(r, NewReference(1, 0)); err != nil {
		t.Fatal(err)
	}

	// opening with a wrong password in the options fails
	data := buf.Bytes()
	_, err = NewReader(bytes.NewReader(data), int64(len(data)),
		&ReaderOptions{Password: "wrong"})
	if !errors.As(err, &authErr) {
		t.Errorf("expected AuthenticationError, got %v", err)
	}
}

func TestEncryptedAES(t *testing.T) {
	// a V=4 file using the AESV2 crypt filter
	payload := "AES encrypted stream contents, long enough for several blocks"
	buf := writeEncrypted(t, &WriterOptions{
		UserPassword:    "aes password",
		UseAES:          true,
		UserPermissions: PermAll,
	}, payload)

	if bytes.Contains(buf.Bytes(), []byte(payload)) {
		t.Fatal("stream payload not encrypted")
	}

	r := reopen(t, buf, &ReaderOptions{Password: "aes password"})

	dict, err := GetDict(r, NewReference(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if string(dict["Title"].(String)) != "secret title" {
		t.Errorf("wrong title %q", dict["Title"])
	}

	stm, err := GetStream(r, NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	content, err := r.StreamContent(NewReference(2, 0), stm)
	if err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, content); string(got) != payload {
		t.Errorf("wrong payload %q", got)
	}

	// AES adds an IV and padding, so Length differs from the plaintext
	length := stm.Dict["Length"].(Integer)
	if int(length)%16 != 0 || int(length) < len(payload)+16 {
		t.Errorf("implausible encrypted length %d", length)
	}
}

func TestEncryptedCompressedStream(t *testing.T) {
	// encryption composes with the filter pipeline: the payload is
	// compressed first, then encrypted
	plain := []byte("compressed and encrypted: " +
		strings.Repeat("na", 100) + " batman")

	zbuf := &bytes.Buffer{}
	zw := zlib.NewWriter(zbuf)
	zw.Write(plain)
	zw.Close()

	buf := &bytes.Buffer{}
	w, err := NewWriter(buf, &WriterOptions{UserPassword: "pw"})
	if err != nil {
		t.Fatal(err)
	}
	root, err := w.Add(Dict{"Type": Name("Catalog")})
	if err != nil {
		t.Fatal(err)
	}
	stmRef, err := w.Add(&Stream{
		Dict: Dict{"Filter": Name("FlateDecode")},
		R:    bytes.NewReader(zbuf.Bytes()),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(root, 0); err != nil {
		t.Fatal(err)
	}

	r := reopen(t, buf, &ReaderOptions{Password: "pw"})
	stm, err := GetStream(r, stmRef)
	if err != nil {
		t.Fatal(err)
	}
	content, err := r.StreamContent(stmRef, stm)
	if err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, content); !bytes.Equal(got, plain) {
		t.Errorf("got %q", got)
	}
}

func TestStreamContentPredictor(t *testing.T) {
	// a FlateDecode stream with the PNG-Up predictor and Columns=4
	data := []byte{
		1, 2, 3, 4,
		2, 4, 6, 8,
		3, 6, 9, 12,
	}
	encoded := pngApplyFilters(
		[][]byte{data[0:4], data[4:8], data[8:12]}, []byte{2}, 1)
	zbuf := &bytes.Buffer{}
	zw := zlib.NewWriter(zbuf)
	zw.Write(encoded)
	zw.Close()

	f := newFixture()
	f.obj(1, "<< /Type /Catalog >>")
	f.streamObj(2,
		"/Filter /FlateDecode /DecodeParms << /Predictor 12 /Columns 4 >>",
		zbuf.String())
	f.xrefTable(3, "<< /Size 3 /Root 1 0 R >>")
	r := f.open(t)

	stm, err := GetStream(r, NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}
	content, err := r.StreamContent(NewReference(2, 0), stm)
	if err != nil {
		t.Fatal(err)
	}
	if got := readAll(t, content); !bytes.Equal(got, data) {
		t.Errorf("got %v, want %v", got, data)
	}
}

func TestStreamContentRereadable(t *testing.T) {
	r := func() *Reader {
		f := newFixture()
		f.obj(1, "<< /Type /Catalog >>")
		f.streamObj(2, "", "re-readable")
		f.xrefTable(3, "<< /Size 3 /Root 1 0 R >>")
		return f.open(t)
	}()

	stm, err := GetStream(r, NewReference(2, 0))
	if err != nil {
		t.Fatal(err)
	}

	// a partially consumed reader does not disturb later calls
	first, err := r.StreamContent(NewReference(2, 0), stm)
	if err != nil {
		t.Fatal(err)
	}
	var one [1]byte
	first.Read(one[:])

	for i := 0; i < 2; i++ {
		content, err := r.StreamContent(NewReference(2, 0), stm)
		if err != nil {
			t.Fatal(err)
		}
		if got := readAll(t, content); string(got) != "re-readable" {
			t.Errorf("wrong payload %q", got)
		}
	}
}

func TestDerefPassthrough(t *testing.T) {
	r := minimalPDF().open(t)
	for _, obj := range []Object{
		nil,
		Integer(5),
		Name("x"),
		Dict{"A": NewReference(3, 0)},
	} {
		out, err := r.Resolve(obj)
		if err != nil {
			t.Fatal(err)
		}
		if d := cmp.Diff(out, obj); d != "" {
			t.Errorf("non-reference object modified (-got +want):\n%s", d)
		}
	}
}

func TestUnencryptedPermissions(t *testing.T) {
	r := minimalPDF().open(t)
	if r.UserPermissions() != PermAll {
		t.Errorf("expected PermAll for unencrypted document")
	}
	if err := r.SetUserPassword("anything"); err != nil {
		t.Errorf("SetUserPassword on unencrypted document: %v", err)
	}
}
