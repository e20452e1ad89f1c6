package ingest

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used whenever detection is not confident.
const DefaultEncoding = "utf-8"

// MinConfidence is the chardet confidence (0-100) below which detection
// falls back to DefaultEncoding.
var MinConfidence = 10

// MaxDetectBytes bounds how much of the input is handed to the detector.
var MaxDetectBytes = 64 * 1024

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// charsetAliases maps chardet names that the WHATWG index does not know.
var charsetAliases = map[string]string{
	"gb-18030":     "gb18030",
	"iso-8859-8-i": "iso-8859-8",
}

// DetectEncoding guesses the text encoding of data. It never fails: empty
// input, valid UTF-8, or an unconfident guess all yield DefaultEncoding.
func DetectEncoding(data []byte) string {
	if len(data) == 0 || bytes.HasPrefix(data, utf8BOM) {
		return DefaultEncoding
	}

	sample := data
	if len(sample) > MaxDetectBytes {
		sample = sample[:MaxDetectBytes]
	}

	// Valid UTF-8 (including plain ASCII) is taken at face value. A rune cut
	// in half by the sample boundary does not count against it.
	check := sample
	if len(sample) < len(data) {
		check = sample[:len(sample)-incompleteTrailingBytes(sample)]
	}
	if utf8.Valid(check) {
		return DefaultEncoding
	}

	res, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil || res == nil || res.Charset == "" || res.Confidence < MinConfidence {
		return DefaultEncoding
	}
	return strings.ToLower(res.Charset)
}

// lookupEncoding resolves a charset name to a decoder. Unknown names yield
// nil, meaning the bytes are treated as UTF-8.
func lookupEncoding(name string) encoding.Encoding {
	name = strings.ToLower(strings.TrimSpace(name))
	if alias, ok := charsetAliases[name]; ok {
		name = alias
	}
	switch name {
	case "", "utf-8", "utf8", "ascii", "us-ascii":
		return nil
	case "utf-32be":
		return utf32.UTF32(utf32.BigEndian, utf32.UseBOM)
	case "utf-32le":
		return utf32.UTF32(utf32.LittleEndian, utf32.UseBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil
	}
	return enc
}

// decodeText converts data from the named encoding to a UTF-8 string.
// A leading BOM is dropped and invalid sequences become U+FFFD.
func decodeText(data []byte, name string) (string, error) {
	if enc := lookupEncoding(name); enc != nil {
		out, _, err := transform.Bytes(enc.NewDecoder(), data)
		if err != nil {
			return "", newError(KindParseFailure, err, "decode %s", name)
		}
		data = out
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return string(sanitizeUTF8(data)), nil
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement character.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.WriteRune(r)
		}
		data = data[size:]
	}

	return buf.Bytes()
}

// incompleteTrailingBytes returns how many bytes at the end of data form an
// unfinished multi-byte rune.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if utf8.RuneStart(b) {
			if !utf8.FullRune(data[len(data)-i:]) {
				return i
			}
			return 0
		}
	}
	return 0
}
