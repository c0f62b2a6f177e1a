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
	"strconv"
	"strings"
)

var (
	errVersion         = errors.New("unsupported PDF version")
	errCorrupted       = errors.New("corrupted ciphertext")
	errNoDate          = errors.New("not a valid PDF date string")
	errNoRectangle     = errors.New("not a valid PDF rectangle")
	errInvalidPassword = errors.New("invalid password")
)

// MalformedFileError indicates that a PDF file could not be parsed, either
// because the byte layout violates the grammar or because a structural
// invariant does not hold.
type MalformedFileError struct {
	// Err is the underlying error, if any.
	Err error

	// Pos is the byte position in the file where the problem was detected,
	// or 0 if the position is not known.
	Pos int64

	// Loc is a breadcrumb trail describing where in the document structure
	// the error occurred, innermost first.
	Loc []string
}

func (err *MalformedFileError) Error() string {
	middle := ""
	if len(err.Loc) > 0 {
		middle = " (" + strings.Join(err.Loc, ", ") + ")"
	}
	tail := ""
	if err.Err != nil {
		tail = ": " + err.Err.Error()
	}
	pos := ""
	if err.Pos > 0 {
		pos = " at byte " + strconv.FormatInt(err.Pos, 10)
	}
	return "not a valid PDF file" + pos + middle + tail
}

func (err *MalformedFileError) Unwrap() error {
	return err.Err
}

// wrap annotates err with a location breadcrumb.  MalformedFileErrors
// accumulate the breadcrumbs in their Loc field, all other errors are
// wrapped.
func wrap(err error, loc string) error {
	if err == nil {
		return nil
	}
	var mfe *MalformedFileError
	if errors.As(err, &mfe) {
		mfe.Loc = append(mfe.Loc, loc)
		return err
	}
	return fmt.Errorf("%s: %w", loc, err)
}

// UnsupportedError indicates that a file uses a feature (a stream filter, a
// predictor, an encryption algorithm) which this library does not implement.
type UnsupportedError struct {
	Feature string
}

func (err *UnsupportedError) Error() string {
	return "unsupported PDF feature: " + err.Feature
}

// AuthenticationError indicates that the encrypted document could not be
// unlocked because no valid password was supplied.
type AuthenticationError struct {
	// ID is the original document ID, i.e. the first element of the ID
	// array in the trailer dictionary.
	ID []byte
}

func (err *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for document %x", err.ID)
}
