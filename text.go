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
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
)

// AsTextString interprets x as a PDF "text string" and returns the
// corresponding utf-8 encoded string.
func (x String) AsTextString() string {
	if isUTF16(x) {
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		s, err := dec.String(string(x))
		if err == nil {
			return s
		}
	}
	return pdfDocDecode(x)
}

// TextString creates a String object using the "text string" encoding,
// i.e. using either PDFDocEncoding or UTF-16BE with a byte order mark.
func TextString(s string) String {
	buf, ok := pdfDocEncode(s)
	if ok {
		return buf
	}

	enc := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder()
	out, err := enc.String(s)
	if err != nil {
		// unpaired surrogates only; fall back to the replacement character
		out, _ = enc.String(strings.ToValidUTF8(s, "�"))
	}
	return String(out)
}

// AsDate converts a PDF date string to a time.Time object.  If the string
// does not have the correct format, an error is returned.
func (x String) AsDate() (time.Time, error) {
	s := x.AsTextString()
	if s == "D:" {
		return time.Time{}, nil
	}
	s = strings.ReplaceAll(s, "'", "")

	formats := []string{
		"D:20060102150405-0700",
		"D:20060102150405-07",
		"D:20060102150405Z0000",
		"D:20060102150405Z00",
		"D:20060102150405Z",
		"D:20060102150405",
		"D:200601021504",
		"D:2006010215",
		"D:20060102",
		"D:200601",
		"D:2006",
		time.ANSIC,
	}
	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, errNoDate
}

// Date creates a PDF String object encoding the given date and time.
func Date(t time.Time) String {
	s := t.Format("D:20060102150405-0700")
	k := len(s) - 2
	s = s[:k] + "'" + s[k:]
	return String(s)
}

func isUTF16(x String) bool {
	return len(x) >= 2 && x[0] == 0xFE && x[1] == 0xFF
}

// pdfDocEncode encodes a string using PDFDocEncoding.  The second return
// value indicates whether all characters could be represented.
func pdfDocEncode(s string) (String, bool) {
	rr := []rune(s)
	buf := make(String, len(rr))
	for i, r := range rr {
		c, ok := toPDFDoc[r]
		if !ok {
			return nil, false
		}
		buf[i] = c
	}
	return buf, true
}

func pdfDocDecode(x String) string {
	for _, c := range x {
		if c >= 0x80 || pdfDocRunes[c] != rune(c) {
			goto slow
		}
	}
	return string(x)

slow:
	rr := make([]rune, 0, len(x))
	for _, c := range x {
		r := pdfDocRunes[c]
		if r < 0 {
			r = '�'
		}
		rr = append(rr, r)
	}
	return string(rr)
}

// pdfDocRunes maps PDFDocEncoding code points to runes.  Unassigned codes
// map to -1.  The table follows Appendix D.3 of ISO 32000-1:2008.
var pdfDocRunes = [256]rune{}

var toPDFDoc map[rune]byte

func init() {
	for i := range pdfDocRunes {
		pdfDocRunes[i] = -1
	}
	// ASCII block, including the usual control characters
	for _, c := range []byte{0x09, 0x0A, 0x0D} {
		pdfDocRunes[c] = rune(c)
	}
	for c := 0x20; c <= 0x7E; c++ {
		pdfDocRunes[c] = rune(c)
	}
	// 0x18 - 0x1F: accents
	for i, r := range []rune{
		0x02D8, 0x02C7, 0x02C6, 0x02D9, 0x02DD, 0x02DB, 0x02DA, 0x02DC,
	} {
		pdfDocRunes[0x18+i] = r
	}
	// 0x80 - 0x9E: punctuation and ligatures
	for i, r := range []rune{
		0x2022, 0x2020, 0x2021, 0x2026, 0x2014, 0x2013, 0x0192, 0x2044,
		0x2039, 0x203A, 0x2212, 0x2030, 0x201E, 0x201C, 0x201D, 0x2018,
		0x2019, 0x201A, 0x2122, 0xFB01, 0xFB02, 0x0141, 0x0152, 0x0160,
		0x0178, 0x017D, 0x0131, 0x0142, 0x0153, 0x0161, 0x017E,
	} {
		pdfDocRunes[0x80+i] = r
	}
	pdfDocRunes[0xA0] = 0x20AC // Euro sign
	// 0xA1 - 0xFF: as in Latin-1, with 0xAD unassigned
	for c := 0xA1; c <= 0xFF; c++ {
		if c == 0xAD {
			continue
		}
		pdfDocRunes[c] = rune(c)
	}

	toPDFDoc = make(map[rune]byte)
	for c, r := range pdfDocRunes {
		if r >= 0 {
			if _, seen := toPDFDoc[r]; !seen {
				toPDFDoc[r] = byte(c)
			}
		}
	}
}
