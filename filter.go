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
	"compress/zlib"
	"errors"
	"fmt"
	"io"
)

// FilterInfo describes one entry of a stream's filter chain: the filter
// name together with its decode parameters, if any.
type FilterInfo struct {
	Name  Name
	Parms Dict
}

// streamFilters extracts the information contained in the /Filter and
// /DecodeParms entries of a stream dictionary.  The first filter in the
// returned slice is the one which decodes the raw payload.
func streamFilters(x *Stream, resolve func(Object) (Object, error)) ([]*FilterInfo, error) {
	if resolve == nil {
		resolve = func(obj Object) (Object, error) {
			return obj, nil
		}
	}
	parms, err := resolve(x.Dict["DecodeParms"])
	if err != nil {
		return nil, err
	}
	filter, err := resolve(x.Dict["Filter"])
	if err != nil {
		return nil, err
	}

	var filters []*FilterInfo
	switch f := filter.(type) {
	case nil:
		// pass
	case Array:
		pa, _ := parms.(Array)
		for i, fi := range f {
			fi, err := resolve(fi)
			if err != nil {
				return nil, err
			}
			name, ok := fi.(Name)
			if !ok {
				return nil, &MalformedFileError{
					Err: fmt.Errorf("expected Name in /Filter but got %T", fi),
				}
			}
			var pDict Dict
			if len(pa) > i {
				pai, err := resolve(pa[i])
				if err != nil {
					return nil, err
				}
				pDict, err = GetDict(resolverFunc(resolve), pai)
				if err != nil {
					return nil, err
				}
			}
			filters = append(filters, &FilterInfo{
				Name:  name,
				Parms: pDict,
			})
		}
	case Name:
		pDict, err := GetDict(resolverFunc(resolve), parms)
		if err != nil {
			return nil, err
		}
		filters = append(filters, &FilterInfo{
			Name:  f,
			Parms: pDict,
		})
	default:
		return nil, &MalformedFileError{
			Err: errors.New("invalid /Filter field"),
		}
	}
	return filters, nil
}

// resolverFunc adapts a resolve function to the Getter interface.
type resolverFunc func(Object) (Object, error)

func (f resolverFunc) Get(ref Reference) (Object, error) {
	return f(ref)
}

// hasIdentityCrypt reports whether the filter chain contains a Crypt
// filter naming the Identity transform.  Such streams are left alone by
// the document-level encryption.
func hasIdentityCrypt(filters []*FilterInfo) bool {
	for _, fi := range filters {
		if fi.Name != "Crypt" {
			continue
		}
		name, ok := fi.Parms["Name"].(Name)
		if !ok || name == "Identity" {
			return true
		}
	}
	return false
}

// applyFilters wraps r in one decoding stage per filter, left to right:
// the first filter decodes the raw payload, the second decodes the output
// of the first, and so on.  Identity Crypt filters are skipped; unknown
// filters yield an UnsupportedError.
func applyFilters(r io.Reader, filters []*FilterInfo) (io.Reader, error) {
	for _, fi := range filters {
		var err error
		r, err = applyFilter(r, fi)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func applyFilter(r io.Reader, fi *FilterInfo) (io.Reader, error) {
	switch fi.Name {
	case "FlateDecode", "Fl":
		return flateDecode(r, fi.Parms)
	case "ASCII85Decode", "A85":
		return &ascii85Reader{r: r}, nil
	case "ASCIIHexDecode", "AHx":
		return &asciiHexReader{r: r}, nil
	case "Crypt":
		name, ok := fi.Parms["Name"].(Name)
		if !ok || name == "Identity" {
			return r, nil
		}
		return nil, &UnsupportedError{Feature: "crypt filter " + string(name)}
	default:
		return nil, &UnsupportedError{Feature: "filter " + string(fi.Name)}
	}
}

// flateDecode returns a reader which inflates the zlib-compressed data
// from r and, if the parameters ask for it, undoes the row-wise predictor
// applied before compression.
func flateDecode(r io.Reader, parms Dict) (io.Reader, error) {
	params := map[string]int{
		"Predictor":        1,
		"Colors":           1,
		"BitsPerComponent": 8,
		"Columns":          1,
	}
	for key := range params {
		if val, ok := parms[Name(key)].(Integer); ok {
			params[key] = int(val)
		}
	}

	switch p := params["Predictor"]; {
	case p == 1, p == 2, p >= 10 && p <= 15:
		// handled by applyPredictor
	default:
		return nil, &UnsupportedError{Feature: fmt.Sprintf("predictor %d", p)}
	}

	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, &MalformedFileError{Err: err}
	}

	return applyPredictor(zr, params["Predictor"], params["Colors"],
		params["BitsPerComponent"], params["Columns"])
}
