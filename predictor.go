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
	"fmt"
	"io"
)

// applyPredictor wraps r in a reader which reverses the row-wise
// differencing applied before compression.  Predictor 1 means no
// prediction, 2 is the TIFF horizontal predictor, and 10-15 select the
// PNG filter family, where every row carries its own filter tag byte.
func applyPredictor(r io.Reader, predictor, colors, bitsPerComponent, columns int) (io.Reader, error) {
	if predictor == 1 {
		return r, nil
	}
	if colors < 1 || columns < 1 || bitsPerComponent < 1 || bitsPerComponent > 16 {
		return nil, &MalformedFileError{
			Err: fmt.Errorf("invalid predictor parameters %d/%d/%d",
				colors, bitsPerComponent, columns),
		}
	}

	rowSize := (colors*bitsPerComponent*columns + 7) / 8
	bpp := colors * bitsPerComponent / 8
	if bpp < 1 {
		bpp = 1
	}

	switch {
	case predictor == 2:
		if bitsPerComponent != 8 {
			return nil, &UnsupportedError{
				Feature: fmt.Sprintf("TIFF predictor with %d bits per component",
					bitsPerComponent),
			}
		}
		return &tiffPredReader{
			r:   r,
			row: make([]byte, rowSize),
			bpp: bpp,
		}, nil
	case predictor >= 10 && predictor <= 15:
		return &pngPredReader{
			r:    r,
			row:  make([]byte, 1+rowSize),
			prev: make([]byte, rowSize),
			bpp:  bpp,
		}, nil
	default:
		return nil, &UnsupportedError{
			Feature: fmt.Sprintf("predictor %d", predictor),
		}
	}
}

// tiffPredReader undoes TIFF predictor 2: every sample is stored as the
// difference to the sample one pixel to the left.
type tiffPredReader struct {
	r    io.Reader
	row  []byte
	bpp  int
	pend []byte
}

func (p *tiffPredReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(p.pend) > 0 {
			m := copy(b, p.pend)
			n += m
			b = b[m:]
			p.pend = p.pend[m:]
			continue
		}
		_, err := io.ReadFull(p.r, p.row)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				err = &MalformedFileError{Err: err}
			}
			return n, err
		}
		for i := p.bpp; i < len(p.row); i++ {
			p.row[i] += p.row[i-p.bpp]
		}
		p.pend = p.row
	}
	return n, nil
}

// pngPredReader undoes the PNG filter family.  Every row starts with a
// tag byte selecting the filter used for that row.
type pngPredReader struct {
	r    io.Reader
	row  []byte // tag byte plus one row
	prev []byte // previous row, already reconstructed
	bpp  int
	pend []byte
}

func (p *pngPredReader) Read(b []byte) (int, error) {
	n := 0
	for len(b) > 0 {
		if len(p.pend) > 0 {
			m := copy(b, p.pend)
			n += m
			b = b[m:]
			p.pend = p.pend[m:]
			continue
		}
		_, err := io.ReadFull(p.r, p.row)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				err = &MalformedFileError{Err: err}
			}
			return n, err
		}

		cur := p.row[1:]
		switch p.row[0] {
		case 0: // None
			// pass
		case 1: // Sub
			for i := p.bpp; i < len(cur); i++ {
				cur[i] += cur[i-p.bpp]
			}
		case 2: // Up
			for i, c := range p.prev {
				cur[i] += c
			}
		case 3: // Average
			for i := range cur {
				left := 0
				if i >= p.bpp {
					left = int(cur[i-p.bpp])
				}
				cur[i] += byte((left + int(p.prev[i])) / 2)
			}
		case 4: // Paeth
			for i := range cur {
				var left, upLeft byte
				if i >= p.bpp {
					left = cur[i-p.bpp]
					upLeft = p.prev[i-p.bpp]
				}
				cur[i] += paeth(left, p.prev[i], upLeft)
			}
		default:
			return n, &MalformedFileError{
				Err: fmt.Errorf("invalid PNG filter tag %d", p.row[0]),
			}
		}

		copy(p.prev, cur)
		p.pend = cur
	}
	return n, nil
}

// paeth implements the PNG Paeth prediction function: it selects whichever
// of the three neighbouring samples is closest to a+b-c.
func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
