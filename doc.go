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

// Package pdf provides random-access, memory-efficient access to the
// structural layer of PDF files: the cross-reference table, the trailer,
// indirect objects, and stream contents.
//
// The package parses the byte layout of a file, resolves references,
// decodes stream filters and handles the standard security handler.  It
// does not interpret pages, fonts or content streams; these belong to
// higher layers which are expected to be built on top of this package.
//
// The following types implement the native PDF object types.  All of them
// implement the pdf.Object interface:
//
//	Array
//	Bool
//	Dict
//	Integer
//	Name
//	Real
//	Reference
//	Stream
//	String
//
// Use [Open] or [NewReader] to read an existing file, and [NewWriter] to
// produce a new one.  A [Reader] never loads the whole document; objects
// are fetched lazily through the cross-reference data.
package pdf
