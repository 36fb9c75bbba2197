package csvimport

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported back to the caller
const (
	EncodingUTF8        = "UTF-8"
	EncodingWindows1252 = "Windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText strips a UTF-8 BOM and returns the content as UTF-8.
// Content that is not valid UTF-8 is decoded as Windows-1252, which is what
// German online banking exports use when they are not UTF-8.
func DecodeText(data []byte) (string, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return "", "", ErrEmptyFile
	}
	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return string(decoded), EncodingWindows1252, nil
}
