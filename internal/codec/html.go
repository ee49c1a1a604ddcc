package codec

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const htmlStyle = "p { margin: 0; font: 12px Helvetica; white-space: pre-wrap; }"

// EncodeHTML renders plain text as a standalone HTML document with one
// paragraph per line. Empty lines become <p><br></p>.
func EncodeHTML(text string) ([]byte, error) {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	root := element(atom.Html)
	doc.AppendChild(root)

	head := element(atom.Head)
	meta := element(atom.Meta)
	meta.Attr = []html.Attribute{{Key: "charset", Val: "UTF-8"}}
	head.AppendChild(meta)
	style := element(atom.Style)
	style.AppendChild(&html.Node{Type: html.TextNode, Data: htmlStyle})
	head.AppendChild(style)
	root.AppendChild(head)

	body := element(atom.Body)
	root.AppendChild(body)
	for _, line := range strings.Split(text, "\n") {
		p := element(atom.P)
		if line == "" {
			p.AppendChild(element(atom.Br))
		} else {
			p.AppendChild(&html.Node{Type: html.TextNode, Data: line})
		}
		body.AppendChild(p)
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func element(a atom.Atom) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
}
