package svcmgr

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// codePages maps Windows code page identifiers to their encodings
var codePages = map[uint32]encoding.Encoding{
	437:  charmap.CodePage437,
	850:  charmap.CodePage850,
	852:  charmap.CodePage852,
	866:  charmap.CodePage866,
	874:  charmap.Windows874,
	932:  japanese.ShiftJIS,
	936:  simplifiedchinese.GBK,
	949:  korean.EUCKR,
	950:  traditionalchinese.Big5,
	1250: charmap.Windows1250,
	1251: charmap.Windows1251,
	1252: charmap.Windows1252,
	1253: charmap.Windows1253,
	1254: charmap.Windows1254,
	1255: charmap.Windows1255,
	1256: charmap.Windows1256,
	1257: charmap.Windows1257,
	1258: charmap.Windows1258,
}

// decodeCodePage converts output written in the given code page to UTF-8.
// Valid UTF-8, unknown code pages and undecodable input pass through.
func decodeCodePage(b []byte, codePage uint32) []byte {
	if len(b) == 0 || utf8.Valid(b) {
		return b
	}
	enc, ok := codePages[codePage]
	if !ok {
		return b
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return b
	}
	return decoded
}
