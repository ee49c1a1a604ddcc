package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

var errNotRTF = errors.New("not an rtf document")

// codePages maps \ansicpgN values to single-byte decoders. Anything else
// falls back to Windows-1252, which is what Cocoa writes.
var codePages = map[int]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1257:  charmap.Windows1257,
	10000: charmap.Macintosh,
}

// destinations whose text is metadata, not document content.
var destinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true,
	"pict": true, "header": true, "headerl": true, "headerr": true,
	"footer": true, "footerl": true, "footerr": true, "footnote": true,
	"object": true, "themedata": true, "colorschememapping": true,
	"listtable": true, "listoverridetable": true, "rsidtbl": true,
	"generator": true, "xmlnstbl": true, "latentstyles": true,
	"datastore": true, "expandedcolortbl": true, "filetbl": true,
	"revtbl": true, "fldinst": true, "bkmkstart": true, "bkmkend": true,
}

var symbols = map[string]string{
	"par": "\n", "line": "\n", "sect": "\n", "page": "\n", "row": "\n",
	"tab": "\t", "cell": "\t",
	"emdash": "\u2014", "endash": "\u2013", "bullet": "\u2022",
	"lquote": "\u2018", "rquote": "\u2019",
	"ldblquote": "\u201c", "rdblquote": "\u201d",
	"emspace": " ", "enspace": " ", "qmspace": " ",
}

type rtfGroup struct {
	skip bool
	uc   int
}

type rtfReader struct {
	data  []byte
	pos   int
	out   strings.Builder
	cp    *charmap.Charmap
	cur   rtfGroup
	stack []rtfGroup

	// pending counts fallback characters still to drop after a \uN.
	pending int
	high    rune
}

// DecodeRTF extracts the plain text of an RTF document. Formatting is
// discarded; paragraph and line breaks become "\n".
func DecodeRTF(data []byte) (string, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if !bytes.HasPrefix(trimmed, []byte(`{\rtf`)) {
		return "", errNotRTF
	}
	r := &rtfReader{data: trimmed, cp: charmap.Windows1252, cur: rtfGroup{uc: 1}}
	if err := r.run(); err != nil {
		return "", err
	}
	return r.out.String(), nil
}

func (r *rtfReader) run() error {
	for r.pos < len(r.data) {
		c := r.data[r.pos]
		switch c {
		case '{':
			r.stack = append(r.stack, r.cur)
			r.pending = 0
			r.pos++
		case '}':
			if len(r.stack) == 0 {
				return fmt.Errorf("rtf: unbalanced group at offset %d", r.pos)
			}
			r.cur = r.stack[len(r.stack)-1]
			r.stack = r.stack[:len(r.stack)-1]
			r.pending = 0
			r.pos++
			if len(r.stack) == 0 {
				return nil
			}
		case '\\':
			r.control()
		case '\r', '\n':
			r.pos++
		default:
			r.emitByte(c)
			r.pos++
		}
	}
	if len(r.stack) > 0 {
		return errors.New("rtf: unterminated group")
	}
	return nil
}

func (r *rtfReader) control() {
	if r.pos+1 >= len(r.data) {
		r.pos++
		return
	}
	c := r.data[r.pos+1]
	switch {
	case isLetter(c):
		r.word()
	case c == '\'':
		r.pos += 2
		if r.pos+2 > len(r.data) {
			r.pos = len(r.data)
			return
		}
		b, err := strconv.ParseUint(string(r.data[r.pos:r.pos+2]), 16, 8)
		r.pos += 2
		if err == nil {
			r.emitByte(byte(b))
		}
	case c == '*':
		r.cur.skip = true
		r.pos += 2
	case c == '\\' || c == '{' || c == '}':
		r.emitRune(rune(c))
		r.pos += 2
	case c == '~':
		r.emitRune('\u00a0')
		r.pos += 2
	case c == '_':
		r.emitRune('-')
		r.pos += 2
	case c == '\n' || c == '\r':
		r.emitString("\n")
		r.pos += 2
	default:
		r.pos += 2
	}
}

func (r *rtfReader) word() {
	start := r.pos + 1
	end := start
	for end < len(r.data) && isLetter(r.data[end]) {
		end++
	}
	name := string(r.data[start:end])

	hasParam := false
	param := 0
	pstart := end
	if end < len(r.data) && r.data[end] == '-' {
		end++
	}
	dstart := end
	for end < len(r.data) && r.data[end] >= '0' && r.data[end] <= '9' {
		end++
	}
	if end > dstart {
		param, _ = strconv.Atoi(string(r.data[pstart:end]))
		hasParam = true
	} else {
		end = pstart
	}
	if end < len(r.data) && r.data[end] == ' ' {
		end++
	}
	r.pos = end

	switch {
	case destinations[name]:
		r.cur.skip = true
	case name == "u" && hasParam:
		if param < 0 {
			param += 0x10000
		}
		r.emitUnit(rune(param))
		r.pending = r.cur.uc
	case name == "uc" && hasParam:
		r.cur.uc = param
	case name == "ansicpg" && hasParam:
		if cp, ok := codePages[param]; ok {
			r.cp = cp
		}
	case name == "mac":
		r.cp = charmap.Macintosh
	default:
		if s, ok := symbols[name]; ok {
			r.emitString(s)
		}
	}
}

// emitUnit accepts one UTF-16 code unit from a \uN word, pairing surrogates.
func (r *rtfReader) emitUnit(u rune) {
	switch {
	case utf16.IsSurrogate(u) && u < 0xdc00:
		r.high = u
	case utf16.IsSurrogate(u) && r.high != 0:
		r.writeRune(utf16.DecodeRune(r.high, u))
		r.high = 0
	default:
		r.high = 0
		r.writeRune(u)
	}
}

func (r *rtfReader) emitByte(b byte) {
	if r.pending > 0 {
		r.pending--
		return
	}
	r.writeRune(r.cp.DecodeByte(b))
}

func (r *rtfReader) emitRune(c rune) {
	if r.pending > 0 {
		r.pending--
		return
	}
	r.writeRune(c)
}

func (r *rtfReader) emitString(s string) {
	if r.pending > 0 {
		r.pending--
		return
	}
	if !r.cur.skip {
		r.out.WriteString(s)
	}
}

func (r *rtfReader) writeRune(c rune) {
	if !r.cur.skip {
		r.out.WriteRune(c)
	}
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

const rtfHeader = `{\rtf1\ansi\ansicpg1252\cocoartf2761
\cocoatextscaling0\cocoaplatform0{\fonttbl\f0\fswiss\fcharset0 Helvetica;}
{\colortbl;\red255\green255\blue255;}
\pard\tx560\tx1120\tx1680\tx2240\tx2800\tx3360\tx3920\tx4480\tx5040\tx5600\tx6160\tx6720\pardirnatural\partightenfactor0

\f0\fs24 \cf0 `

// EncodeRTF renders plain text as a Windows-1252 RTF document. Characters
// outside the code page are written as \uN with a '?' fallback.
func EncodeRTF(text string) []byte {
	cp := charmap.Windows1252
	var b strings.Builder
	b.WriteString(rtfHeader)
	for _, c := range text {
		switch {
		case c == '\\' || c == '{' || c == '}':
			b.WriteByte('\\')
			b.WriteRune(c)
		case c == '\n':
			b.WriteString("\\par\n")
		case c == '\t':
			b.WriteString(`\tab `)
		case c < 0x20:
			fmt.Fprintf(&b, `\'%02x`, c)
		case c < 0x80:
			b.WriteRune(c)
		default:
			if enc, ok := cp.EncodeRune(c); ok && cp.DecodeByte(enc) == c {
				fmt.Fprintf(&b, `\'%02x`, enc)
				continue
			}
			for _, u := range utf16.Encode([]rune{c}) {
				fmt.Fprintf(&b, `\u%d?`, int16(u))
			}
		}
	}
	b.WriteString("}")
	return []byte(b.String())
}
