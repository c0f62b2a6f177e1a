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
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"errors"
	"fmt"
	"io"
)

// encryptInfo holds the complete encryption state of a document.  The
// state is fixed when the document is opened and immutable afterwards,
// except that password authentication may unlock the file key.
type encryptInfo struct {
	sec *stdSecHandler

	strF *cryptFilter // strings
	stmF *cryptFilter // streams
	efF  *cryptFilter // embedded files

	// UserPermissions lists the operations the document permits when
	// opened with user access.
	UserPermissions Perm
}

// parseEncryptDict interprets the /Encrypt dictionary of the trailer.  The
// password is tried immediately.  If the empty password does not verify,
// the document stays locked and [Reader.SetUserPassword] can be used later;
// a non-empty password which does not verify is returned as an error.
func (r *Reader) parseEncryptDict(encObj Object, password string) (*encryptInfo, error) {
	enc, err := GetDict(r, encObj)
	if err != nil {
		return nil, err
	}
	if len(r.ID) != 2 {
		return nil, &MalformedFileError{Err: errors.New("found Encrypt but no ID")}
	}

	res := &encryptInfo{}

	filter, err := GetName(r, enc["Filter"])
	if err != nil {
		return nil, err
	}
	if filter != "Standard" {
		return nil, &UnsupportedError{
			Feature: "security handler " + string(filter),
		}
	}

	// version of the encryption/decryption algorithm
	V, err := GetInt(r, enc["V"])
	if err != nil {
		return nil, err
	}

	var keyBytes int
	switch V {
	case 1:
		cf := &cryptFilter{
			Cipher: cipherRC4,
			Length: 40,
		}
		res.stmF = cf
		res.strF = cf
		res.efF = cf
		keyBytes = 5
	case 2:
		cf := &cryptFilter{
			Cipher: cipherRC4,
			Length: 40, // default
		}
		if obj, ok := enc["Length"].(Integer); ok {
			cf.Length = int(obj)
			if cf.Length < 40 || cf.Length > 128 || cf.Length%8 != 0 {
				return nil, &MalformedFileError{
					Err: fmt.Errorf("invalid Length=%d", cf.Length),
				}
			}
		}
		res.stmF = cf
		res.strF = cf
		res.efF = cf
		keyBytes = cf.Length / 8
	case 4:
		var CF Dict
		if obj, ok := enc["CF"].(Dict); ok {
			CF = obj
		}
		if obj, ok := enc["StmF"].(Name); ok {
			cf, err := getCryptFilter(obj, CF)
			if err != nil {
				return nil, wrap(err, "StmF")
			}
			res.stmF = cf
		}
		if obj, ok := enc["StrF"].(Name); ok {
			cf, err := getCryptFilter(obj, CF)
			if err != nil {
				return nil, wrap(err, "StrF")
			}
			res.strF = cf
		}
		res.efF = res.stmF // default
		if obj, ok := enc["EFF"].(Name); ok {
			cf, err := getCryptFilter(obj, CF)
			if err != nil {
				return nil, wrap(err, "EFF")
			}
			res.efF = cf
		}
		keyBytes = 16
	case 5:
		return nil, &UnsupportedError{Feature: "encryption V=5 (AES-256)"}
	default:
		return nil, &MalformedFileError{
			Err: fmt.Errorf("invalid V=%d", V),
		}
	}

	sec, err := openStdSecHandler(enc, keyBytes, r.ID[0])
	if err != nil {
		return nil, wrap(err, "standard security handler")
	}
	res.sec = sec
	res.UserPermissions = stdSecPToPerm(sec.R, sec.P)

	// Try the supplied password.  If the empty password fails, the
	// document stays locked but opening succeeds, and callers can retry via
	// SetUserPassword.  A failing non-empty password is an error.
	err = sec.TryPassword(password)
	var authErr *AuthenticationError
	if err != nil && !errors.As(err, &authErr) {
		return nil, err
	}
	if err != nil && password != "" {
		return nil, err
	}

	return res, nil
}

// AsDict encodes the encryption state as an /Encrypt dictionary.
func (enc *encryptInfo) AsDict(version Version) (Dict, error) {
	dict := Dict{
		"Filter": Name("Standard"),
	}

	length := -1
	var cf cipherType
	for _, f := range []*cryptFilter{enc.stmF, enc.strF, enc.efF} {
		if f == nil {
			continue
		}
		if length < 0 {
			length = f.Length
			cf = f.Cipher
		} else if length != f.Length || cf != f.Cipher {
			return nil, errors.New("not implemented: mixed crypt filters")
		}
		if f.Length%8 != 0 {
			return nil, errors.New("invalid key length")
		}
	}

	switch {
	case cf == cipherAES && length == 128 && version >= V1_6:
		dict["V"] = Integer(4)
		dict["StmF"] = Name("StdCF")
		dict["StrF"] = Name("StdCF")
		dict["CF"] = Dict{
			"StdCF": Dict{"Length": Integer(128), "CFM": Name("AESV2")},
		}
	case cf == cipherRC4 && length == 40 && version >= V1_1:
		dict["V"] = Integer(1)
	case cf == cipherRC4 && version >= V1_4:
		dict["V"] = Integer(2)
		dict["Length"] = Integer(length)
	default:
		return nil, errors.New("no supported encryption scheme found")
	}

	sec := enc.sec
	dict["R"] = Integer(sec.R)
	dict["O"] = String(sec.O)
	dict["U"] = String(sec.U)
	dict["P"] = Integer(int32(sec.P))
	if sec.unencryptedMetaData {
		dict["EncryptMetadata"] = Bool(false)
	}

	return dict, nil
}

// EncryptBytes encrypts the bytes in buf using Algorithm 1 of the PDF
// spec.  This function modifies the contents of buf and may return buf.
func (enc *encryptInfo) EncryptBytes(ref Reference, buf []byte) ([]byte, error) {
	cf := enc.strF
	if cf == nil {
		return buf, nil
	}

	key, err := enc.sec.KeyForRef(cf, ref)
	if err != nil {
		return nil, err
	}
	switch cf.Cipher {
	case cipherAES:
		n := len(buf)
		nPad := 16 - n%16
		out := make([]byte, 16+n+nPad) // iv | c(data|padding)

		iv := out[:16]
		_, err = io.ReadFull(rand.Reader, iv)
		if err != nil {
			return nil, err
		}

		c, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		cbc := cipher.NewCBCEncrypter(c, iv)
		cbc.CryptBlocks(out[16:], buf[:n+nPad-16])
		// encrypt the last block separately, after appending the padding
		copy(out[n+nPad:], buf[n+nPad-16:])
		for i := 16 + n; i < len(out); i++ {
			out[i] = byte(nPad)
		}
		cbc.CryptBlocks(out[n+nPad:], out[n+nPad:])
		return out, nil
	case cipherRC4:
		c, err := rc4.NewCipher(key)
		if err != nil {
			return nil, err
		}
		c.XORKeyStream(buf, buf)
		return buf, nil
	default:
		panic("unknown cipher")
	}
}

// DecryptBytes decrypts the bytes in buf using Algorithm 1 of the PDF
// spec.  This function modifies the contents of buf and may return buf.
func (enc *encryptInfo) DecryptBytes(ref Reference, buf []byte) ([]byte, error) {
	cf := enc.strF
	if cf == nil {
		return buf, nil
	}

	key, err := enc.sec.KeyForRef(cf, ref)
	if err != nil {
		return nil, err
	}
	switch cf.Cipher {
	case cipherAES:
		if len(buf) < 32 || len(buf)%16 != 0 {
			return nil, &MalformedFileError{Err: errCorrupted}
		}
		iv := buf[:16]

		c, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}

		cbc := cipher.NewCBCDecrypter(c, iv)
		cbc.CryptBlocks(buf[16:], buf[16:])

		nPad := int(buf[len(buf)-1])
		if nPad < 1 || nPad > 16 {
			return nil, &MalformedFileError{Err: errCorrupted}
		}
		return buf[16 : len(buf)-nPad], nil
	case cipherRC4:
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(buf, buf)
		return buf, nil
	default:
		panic("unknown cipher")
	}
}

// EncryptStream wraps w so that bytes written to it are encrypted with the
// key for the given object before reaching w.
func (enc *encryptInfo) EncryptStream(ref Reference, w io.WriteCloser) (io.WriteCloser, error) {
	cf := enc.stmF
	if cf == nil {
		return w, nil
	}

	key, err := enc.sec.KeyForRef(cf, ref)
	if err != nil {
		return nil, err
	}

	switch cf.Cipher {
	case cipherAES:
		c, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}

		// generate and write the IV
		iv := make([]byte, 16)
		_, err = io.ReadFull(rand.Reader, iv)
		if err != nil {
			return nil, err
		}
		_, err = w.Write(iv)
		if err != nil {
			return nil, err
		}

		return &encryptWriter{
			w:   w,
			cbc: cipher.NewCBCEncrypter(c, iv),
			buf: iv,
		}, nil
	case cipherRC4:
		c, _ := rc4.NewCipher(key)
		return &cipher.StreamWriter{S: c, W: w}, nil
	default:
		panic("unknown cipher")
	}
}

// DecryptStream wraps r so that bytes read from it are decrypted with the
// key for the given object.
func (enc *encryptInfo) DecryptStream(ref Reference, r io.Reader) (io.Reader, error) {
	cf := enc.stmF
	if cf == nil {
		return r, nil
	}

	key, err := enc.sec.KeyForRef(cf, ref)
	if err != nil {
		return nil, err
	}

	switch cf.Cipher {
	case cipherRC4:
		c, _ := rc4.NewCipher(key)
		return &cipher.StreamReader{S: c, R: r}, nil
	case cipherAES:
		buf := make([]byte, 32)
		iv := buf[:16]
		_, err := io.ReadFull(r, iv)
		if err != nil {
			return nil, err
		}

		c, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}

		return &decryptReader{
			cbc: cipher.NewCBCDecrypter(c, iv),
			r:   r,
			buf: buf,
		}, nil
	default:
		panic("unknown cipher")
	}
}

// stdSecHandler implements the PDF standard security handler for
// revisions 2, 3 and 4, as specified in section 7.6.3 of ISO 32000-1:2008.
// The handler authenticates the user via a pair of passwords: the "user
// password" grants access to the contents of the document, the "owner
// password" additionally lifts the usage restrictions encoded in P.
type stdSecHandler struct {
	// R is the revision of the standard security handler used.
	R int

	// ID is the original PDF document ID, i.e. the first element of the
	// ID array in the trailer dictionary.
	ID []byte

	// O is a byte string, based on the owner password, used in computing
	// the file encryption key and in verifying the owner password.
	O []byte

	// U is a byte string, based on the passwords, used in deciding
	// whether a password is required and in verifying the user password.
	U []byte

	// P is a set of flags specifying which operations shall be permitted
	// when the document is opened with user access.
	P uint32

	keyBytes int

	key []byte

	// unencryptedMetaData is the negation of /EncryptMetadata, so that
	// the Go zero value corresponds to the PDF default.
	unencryptedMetaData bool

	ownerAuthenticated bool
}

// openStdSecHandler creates a stdSecHandler from the encryption dictionary
// and the document ID.  This is used when reading existing documents.
func openStdSecHandler(enc Dict, keyBytes int, ID []byte) (*stdSecHandler, error) {
	R, ok := enc["R"].(Integer)
	if !ok {
		return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.R")}
	}
	if R < 2 || R > 4 {
		return nil, &UnsupportedError{
			Feature: fmt.Sprintf("security handler revision %d", R),
		}
	}

	O, ok := enc["O"].(String)
	if !ok || len(O) != 32 {
		return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.O")}
	}

	U, ok := enc["U"].(String)
	if !ok || len(U) != 32 {
		return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.U")}
	}

	P, ok := enc["P"].(Integer)
	if !ok {
		return nil, &MalformedFileError{Err: errors.New("invalid Encrypt.P")}
	}

	emd := true
	if obj, ok := enc["EncryptMetadata"].(Bool); ok && R == 4 {
		emd = bool(obj)
	}

	sec := &stdSecHandler{
		ID:       ID,
		keyBytes: keyBytes,

		R: int(R),
		O: []byte(O),
		U: []byte(U),
		P: uint32(P),

		unencryptedMetaData: !emd,
	}
	return sec, nil
}

// createStdSecHandler allocates a new, pre-authenticated standard security
// handler.  This is used when creating new PDF documents.
func createStdSecHandler(id []byte, userPwd, ownerPwd string, perm Perm, length, V int) (*stdSecHandler, error) {
	if ownerPwd == "" {
		ownerPwd = userPwd
	}

	var R int
	switch {
	case V < 2 && perm.canR2():
		R = 2
	case V <= 3:
		R = 3
	case V == 4:
		R = 4
	default:
		return nil, &UnsupportedError{
			Feature: fmt.Sprintf("encryption V=%d", V),
		}
	}

	sec := &stdSecHandler{
		ID:       id,
		keyBytes: length / 8,
		R:        R,
		P:        stdSecPermToP(perm),

		ownerAuthenticated: true,
	}

	paddedUserPwd, err := padPasswd(userPwd)
	if err != nil {
		return nil, err
	}
	paddedOwnerPwd, err := padPasswd(ownerPwd)
	if err != nil {
		return nil, err
	}
	sec.O, err = sec.computeO(paddedUserPwd, paddedOwnerPwd)
	if err != nil {
		return nil, err
	}
	fileEncryptionKey := sec.computeFileEncryptionKey(paddedUserPwd)
	sec.U = sec.computeU(fileEncryptionKey)
	sec.key = fileEncryptionKey

	return sec, nil
}

// TryPassword attempts to unlock the document with the given password.
// Both the owner and the user verification protocols are tried.  On
// failure, the handler state is unchanged and an AuthenticationError is
// returned.
func (sec *stdSecHandler) TryPassword(passwd string) error {
	padded, err := padPasswd(passwd)
	if err != nil {
		return err
	}
	if err := sec.authenticateOwner(padded); err == nil {
		return nil
	}
	return sec.authenticateUser(padded)
}

// getKey returns the file encryption key, or an AuthenticationError if no
// valid password has been supplied yet.
func (sec *stdSecHandler) getKey() ([]byte, error) {
	if sec.key != nil {
		return sec.key, nil
	}
	return nil, &AuthenticationError{ID: sec.ID}
}

// KeyForRef computes the key used to encrypt strings and streams inside
// the object identified by ref (Algorithm 1, step b).
func (sec *stdSecHandler) KeyForRef(cf *cryptFilter, ref Reference) ([]byte, error) {
	key, err := sec.getKey()
	if err != nil {
		return nil, err
	}

	h := md5.New()
	h.Write(key)
	num := ref.Number()
	gen := ref.Generation()
	h.Write([]byte{
		byte(num), byte(num >> 8), byte(num >> 16),
		byte(gen), byte(gen >> 8)})
	if cf.Cipher == cipherAES {
		h.Write([]byte("sAlT"))
	}
	l := sec.keyBytes + 5
	if l > 16 {
		l = 16
	}
	return h.Sum(nil)[:l], nil
}

// computeFileEncryptionKey implements Algorithm 2: compute the file
// encryption key from the padded user password.
func (sec *stdSecHandler) computeFileEncryptionKey(paddedUserPwd []byte) []byte {
	h := md5.New()
	h.Write(paddedUserPwd)
	h.Write(sec.O)
	h.Write([]byte{
		byte(sec.P), byte(sec.P >> 8), byte(sec.P >> 16), byte(sec.P >> 24)})
	h.Write(sec.ID)
	if sec.unencryptedMetaData && sec.R >= 4 {
		h.Write([]byte{255, 255, 255, 255})
	}
	key := h.Sum(nil)

	if sec.R >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			h.Write(key[:sec.keyBytes])
			key = h.Sum(key[:0])
		}
	}

	return key[:sec.keyBytes]
}

// computeO implements Algorithm 3: compute the O entry from the two
// padded passwords.
func (sec *stdSecHandler) computeO(paddedUserPwd, paddedOwnerPwd []byte) ([]byte, error) {
	rc4key := sec.ownerKey(paddedOwnerPwd)

	c, _ := rc4.NewCipher(rc4key)
	O := make([]byte, 32)
	c.XORKeyStream(O, paddedUserPwd)
	if sec.R >= 3 {
		key := make([]byte, len(rc4key))
		for i := byte(1); i <= 19; i++ {
			for j := range key {
				key[j] = rc4key[j] ^ i
			}
			c, _ = rc4.NewCipher(key)
			c.XORKeyStream(O, O)
		}
	}
	return O, nil
}

// ownerKey derives the RC4 key used for the O entry from the padded owner
// password.
func (sec *stdSecHandler) ownerKey(paddedOwnerPwd []byte) []byte {
	h := md5.New()
	h.Write(paddedOwnerPwd)
	sum := h.Sum(nil)
	if sec.R >= 3 {
		for i := 0; i < 50; i++ {
			h.Reset()
			// The spec does not mention the truncation, but it is
			// required for interoperability.
			h.Write(sum[:sec.keyBytes])
			sum = h.Sum(sum[:0])
		}
	}
	return sum[:sec.keyBytes]
}

// computeU implements Algorithms 4 and 5: compute the U entry from the
// file encryption key.
func (sec *stdSecHandler) computeU(fileEncryptionKey []byte) []byte {
	U := make([]byte, 32)
	switch sec.R {
	case 2:
		c, _ := rc4.NewCipher(fileEncryptionKey)
		c.XORKeyStream(U, passwdPad)
	case 3, 4:
		h := md5.New()
		h.Write(passwdPad)
		h.Write(sec.ID)
		U = h.Sum(U[:0])
		c, _ := rc4.NewCipher(fileEncryptionKey)
		c.XORKeyStream(U, U)

		tmpKey := make([]byte, len(fileEncryptionKey))
		for i := byte(1); i <= 19; i++ {
			for j := range tmpKey {
				tmpKey[j] = fileEncryptionKey[j] ^ i
			}
			c, _ = rc4.NewCipher(tmpKey)
			c.XORKeyStream(U, U)
		}
		// This gives the first 16 bytes of U, the remaining 16 bytes
		// are "arbitrary padding".
		U = append(U[:16],
			0, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0, 0, 0)
	default:
		panic("invalid security handler revision")
	}

	return U
}

// authenticateUser implements Algorithm 6: verifying the user password.
func (sec *stdSecHandler) authenticateUser(paddedUserPwd []byte) error {
	key := sec.computeFileEncryptionKey(paddedUserPwd)
	U := sec.computeU(key)
	switch sec.R {
	case 2:
		if bytes.Equal(U, sec.U) {
			sec.key = key
			return nil
		}
	case 3, 4:
		if bytes.Equal(U[:16], sec.U[:16]) {
			sec.key = key
			return nil
		}
	default:
		panic("invalid security handler revision")
	}
	return &AuthenticationError{ID: sec.ID}
}

// authenticateOwner implements Algorithm 7: verifying the owner password.
func (sec *stdSecHandler) authenticateOwner(paddedOwnerPwd []byte) error {
	key := sec.ownerKey(paddedOwnerPwd)

	buf := make([]byte, 32)
	copy(buf, sec.O)
	switch sec.R {
	case 2:
		c, _ := rc4.NewCipher(key)
		c.XORKeyStream(buf, buf)
	case 3, 4:
		tmpKey := make([]byte, len(key))
		for i := 19; i >= 0; i-- {
			for j := range tmpKey {
				tmpKey[j] = key[j] ^ byte(i)
			}
			c, _ := rc4.NewCipher(tmpKey)
			c.XORKeyStream(buf, buf)
		}
	}

	err := sec.authenticateUser(buf)
	if err != nil {
		return err
	}
	sec.ownerAuthenticated = true
	return nil
}

// padPasswd pads or truncates a password to the fixed 32 byte form used
// by the key derivation.  The password must be representable in
// PDFDocEncoding.
func padPasswd(passwd string) ([]byte, error) {
	buf, ok := pdfDocEncode(passwd)
	if !ok {
		return nil, errInvalidPassword
	}
	if len(buf) > 32 {
		buf = buf[:32]
	}

	padded := make([]byte, 32)
	n := copy(padded, buf)
	copy(padded[n:], passwdPad)

	return padded, nil
}

var passwdPad = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// encryptWriter encrypts AES-CBC data written to it, adding the PKCS#7
// padding when closed.
type encryptWriter struct {
	w   io.WriteCloser
	cbc cipher.BlockMode
	buf []byte // must have length cbc.BlockSize()
	pos int
}

func (w *encryptWriter) Write(p []byte) (int, error) {
	n := 0
	for len(p) > 0 {
		k := copy(w.buf[w.pos:], p)
		n += k
		w.pos += k
		p = p[k:]

		if w.pos >= len(w.buf) {
			w.cbc.CryptBlocks(w.buf, w.buf)
			_, err := w.w.Write(w.buf)
			if err != nil {
				return n, err
			}
			w.pos = 0
		}
	}
	return n, nil
}

func (w *encryptWriter) Close() error {
	// add the padding
	kPad := 16 - w.pos
	for i := w.pos; i < len(w.buf); i++ {
		w.buf[i] = byte(kPad)
	}

	// write the last block
	w.cbc.CryptBlocks(w.buf, w.buf)
	_, err := w.w.Write(w.buf)
	if err != nil {
		return err
	}

	return w.w.Close()
}

// decryptReader decrypts AES-CBC data read through it, removing the
// PKCS#7 padding at the end.
type decryptReader struct {
	cbc      cipher.BlockMode
	r        io.Reader
	buf      []byte
	ready    []byte
	reserved []byte
}

func (r *decryptReader) Read(p []byte) (int, error) {
	if len(r.ready) == 0 {
		k := copy(r.buf, r.reserved)
		for k <= 16 && r.r != nil {
			n, err := r.r.Read(r.buf[k:])
			k += n
			if err == io.EOF {
				r.r = nil
				if k%16 != 0 {
					return 0, &MalformedFileError{Err: errCorrupted}
				}
			} else if err != nil {
				return 0, err
			}
		}

		if k < 16 {
			if k > 0 {
				return 0, &MalformedFileError{Err: errCorrupted}
			}
			return 0, io.EOF
		}

		l := k
		if r.r != nil {
			// reserve the last block, in case it turns out to be padding
			l--
		}
		l -= l % 16
		r.ready = r.buf[:l]
		r.reserved = r.buf[l:k]
		r.cbc.CryptBlocks(r.ready, r.ready)

		if r.r == nil {
			// remove the padding
			nPad := int(r.buf[l-1])
			if nPad < 1 || nPad > 16 || nPad > l {
				return 0, &MalformedFileError{Err: errCorrupted}
			}
			r.ready = r.ready[:l-nPad]
		}
	}

	n := copy(p, r.ready)
	r.ready = r.ready[n:]
	return n, nil
}

// cryptFilter describes one of the transforms named in the CF dictionary.
type cryptFilter struct {
	Cipher cipherType

	// Length is the key length in bits.
	Length int
}

func (cf *cryptFilter) String() string {
	return fmt.Sprintf("%s-%d", cf.Cipher, cf.Length)
}

func getCryptFilter(cryptFilterName Name, CF Dict) (*cryptFilter, error) {
	if cryptFilterName == "Identity" {
		return nil, nil
	}
	if cryptFilterName != "StdCF" {
		return nil, &UnsupportedError{
			Feature: "crypt filter " + string(cryptFilterName),
		}
	}
	if CF == nil {
		return nil, &MalformedFileError{Err: errors.New("missing CF dictionary")}
	}

	cfDict, ok := CF[cryptFilterName].(Dict)
	if !ok {
		return nil, &MalformedFileError{
			Err: errors.New("missing " + string(cryptFilterName) + " entry in CF dict"),
		}
	}

	res := &cryptFilter{}
	switch cfDict["CFM"] {
	case Name("V2"):
		res.Cipher = cipherRC4
		res.Length = 128
	case Name("AESV2"):
		res.Cipher = cipherAES
		res.Length = 128
	case Name("AESV3"):
		return nil, &UnsupportedError{Feature: "crypt filter method AESV3"}
	default:
		return nil, &UnsupportedError{
			Feature: "crypt filter method " + Format(cfDict["CFM"]),
		}
	}
	return res, nil
}

// cipherType denotes the cipher used in (parts of) a PDF file.
type cipherType int

const (
	// cipherUnknown indicates that the encryption scheme has not yet
	// been determined.
	cipherUnknown cipherType = iota

	// cipherRC4 indicates RC4 encryption.  This corresponds to the StdCF
	// crypt filter with a CFM value of V2.
	cipherRC4

	// cipherAES indicates AES encryption in CBC mode.  This corresponds
	// to the StdCF crypt filter with a CFM value of AESV2.
	cipherAES
)

func (c cipherType) String() string {
	switch c {
	case cipherUnknown:
		return "unknown"
	case cipherRC4:
		return "RC4"
	case cipherAES:
		return "AES"
	default:
		return fmt.Sprintf("cipher#%d", c)
	}
}

// Perm describes which operations are permitted when accessing the
// document with User access (but not Owner access).  The user can always
// view the document.
//
// This library just reports the permissions as specified in the PDF file.
// It is up to the caller to enforce them.
type Perm int

// canR2 checks whether the permissions can be represented by revision 2
// of the standard security handler.
func (perm Perm) canR2() bool {
	if perm&PermPrint == 0 && perm&PermPrintDegraded != 0 {
		return false
	}
	if perm&PermAnnotate == 0 && perm&PermForms != 0 {
		return false
	}
	if perm&PermModify == 0 && perm&PermAssemble != 0 {
		return false
	}
	return true
}

const (
	// PermCopy allows to extract text and graphics.
	PermCopy Perm = 1 << iota

	// PermPrintDegraded allows printing of a low-level representation of
	// the appearance, possibly of degraded quality.
	PermPrintDegraded

	// PermPrint allows printing a representation from which a faithful
	// digital copy of the PDF content could be generated.  This implies
	// PermPrintDegraded.
	PermPrint

	// PermForms allows to fill in form fields, including signature
	// fields.
	PermForms

	// PermAnnotate allows to add or modify text annotations.  This
	// implies PermForms.
	PermAnnotate

	// PermAssemble allows to insert, rotate, or delete pages and to
	// create bookmarks or thumbnail images.
	PermAssemble

	// PermModify allows to modify the document.  This implies
	// PermAssemble.
	PermModify

	permNext

	// PermAll gives the user all permissions, making User access
	// equivalent to Owner access.
	PermAll = permNext - 1
)

func stdSecPToPerm(R int, P uint32) Perm {
	perm := PermAll
	if R == 2 {
		if P&(1<<(3-1)) == 0 {
			perm &= ^(PermPrint | PermPrintDegraded)
		}
	} else if R >= 3 {
		// bit 3 | 12
		//     0 | 0 -> neither full nor degraded printing
		//     0 | 1 -> full printing
		//     1 | 0 -> only degraded printing
		//     1 | 1 -> full printing
		if P&(1<<(3-1)) == 0 && P&(1<<(12-1)) == 0 {
			perm &= ^(PermPrint | PermPrintDegraded)
		} else if P&(1<<(3-1)) != 0 && P&(1<<(12-1)) == 0 {
			perm &= ^PermPrint
		}
	}

	if P&(1<<(4-1)) == 0 {
		perm &= ^PermModify
		if P&(1<<(11-1)) == 0 {
			perm &= ^PermAssemble
		}
	}

	if P&(1<<(5-1)) == 0 {
		perm &= ^PermCopy
	}

	if P&(1<<(6-1)) == 0 {
		perm &= ^PermAnnotate
		if P&(1<<(9-1)) == 0 {
			perm &= ^PermForms
		}
	}

	return perm
}

func stdSecPermToP(perm Perm) uint32 {
	forbidden := uint32(3)
	if perm&PermCopy == 0 {
		forbidden |= 1 << (5 - 1)
	}
	if perm&PermPrint == 0 {
		forbidden |= 1 << (12 - 1)
		if perm&PermPrintDegraded == 0 {
			forbidden |= 1 << (3 - 1)
		}
	}
	if perm&PermAnnotate == 0 {
		forbidden |= 1 << (6 - 1)
		if perm&PermForms == 0 {
			forbidden |= 1 << (9 - 1)
		}
	}
	if perm&PermAssemble == 0 {
		forbidden |= 1 << (11 - 1)
	}
	if perm&PermModify == 0 {
		forbidden |= 1 << (4 - 1)
	}
	return ^forbidden
}
