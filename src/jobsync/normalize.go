package jobsync

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const indentUnit = "  "

// Document is a job document reduced to comparable lines.
type Document struct {
	Lines []string
	// XML is false when the document did not parse and Lines is plain text.
	XML bool
}

// Comparable reports whether both documents were normalized the same way.
func (d Document) Comparable(o Document) bool { return d.XML == o.XML }

// Normalize re-indents an XML job document one element per line. Whitespace
// between elements, comments and processing instructions are dropped, and the
// text of the root element's <description> is ignored since the job service
// may stamp it. A document that is not well-formed XML falls back to text.
func Normalize(doc []byte) Document {
	lines, err := normalizeXML(doc)
	if err != nil {
		return TextLines(doc)
	}
	return Document{Lines: lines, XML: true}
}

// TextLines splits doc into lines with trailing whitespace and trailing blank
// lines removed.
func TextLines(doc []byte) Document {
	raw := strings.Split(strings.ReplaceAll(string(doc), "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		lines = append(lines, strings.TrimRight(l, " \t\r"))
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return Document{Lines: lines}
}

// stripDeclaration removes a leading <?xml ...?> declaration. Job services
// emit version 1.1 declarations, which encoding/xml refuses.
func stripDeclaration(doc []byte) []byte {
	trimmed := bytes.TrimLeft(doc, " \t\r\n\ufeff")
	if !bytes.HasPrefix(trimmed, []byte("<?xml")) {
		return doc
	}
	end := bytes.Index(trimmed, []byte("?>"))
	if end < 0 {
		return doc
	}
	return trimmed[end+2:]
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

type xmlWriter struct {
	lines []string
	depth int
	open  string          // start tag not yet written, waiting for text or children
	text  strings.Builder // unescaped character data seen since the last tag
}

func (w *xmlWriter) indent(depth int) string { return strings.Repeat(indentUnit, depth) }

// takeText returns the pending character data as escaped lines. Text keeps
// its own line breaks so a multi-line script diffs line by line.
func (w *xmlWriter) takeText() []string {
	t := strings.TrimSpace(w.text.String())
	w.text.Reset()
	if t == "" {
		return nil
	}
	lines := strings.Split(t, "\n")
	for i, l := range lines {
		lines[i] = textEscaper.Replace(strings.TrimRight(l, " \t\r"))
	}
	return lines
}

func (w *xmlWriter) flushOpen() {
	text := w.takeText()
	if w.open != "" {
		w.lines = append(w.lines, w.indent(w.depth-1)+w.open)
		w.open = ""
	}
	if len(text) > 0 {
		text[0] = w.indent(w.depth) + text[0]
		w.lines = append(w.lines, text...)
	}
}

func (w *xmlWriter) start(e xml.StartElement) {
	w.flushOpen()
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(qualified(e.Name))
	for _, a := range e.Attr {
		b.WriteString(" ")
		b.WriteString(qualified(a.Name))
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Value))
		b.WriteString(`"`)
	}
	b.WriteString(">")
	w.open = b.String()
	w.depth++
}

func (w *xmlWriter) chars(data []byte) {
	w.text.Write(data)
}

func (w *xmlWriter) end(e xml.EndElement) {
	name := qualified(e.Name)
	w.depth--
	if w.open != "" {
		text := w.takeText()
		if len(text) == 0 {
			w.lines = append(w.lines, w.indent(w.depth)+strings.TrimSuffix(w.open, ">")+"/>")
		} else {
			text[0] = w.indent(w.depth) + w.open + text[0]
			text[len(text)-1] += "</" + name + ">"
			w.lines = append(w.lines, text...)
		}
		w.open = ""
		return
	}
	w.flushOpen()
	w.lines = append(w.lines, w.indent(w.depth)+"</"+name+">")
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

func normalizeXML(doc []byte) ([]string, error) {
	d := xml.NewDecoder(bytes.NewReader(stripDeclaration(doc)))
	w := &xmlWriter{}

	// depth of the ignored element's content, 0 when not inside one
	skip := 0
	roots := 0
	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if skip > 0 {
				skip++
				continue
			}
			if w.depth == 0 {
				roots++
			}
			w.start(t)
			if w.depth == 2 && t.Name.Space == "" && t.Name.Local == "description" {
				skip = 1
			}
		case xml.EndElement:
			if skip > 1 {
				skip--
				continue
			}
			skip = 0
			if w.depth == 0 {
				return nil, errors.New("unbalanced end element")
			}
			w.end(t)
		case xml.CharData:
			if skip > 0 {
				continue
			}
			if w.depth == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, errors.New("text outside the root element")
				}
				continue
			}
			w.chars(t)
		}
	}
	if w.depth != 0 || roots != 1 {
		return nil, errors.New("document must have exactly one root element")
	}
	return w.lines, nil
}

// UnifiedDiff returns the unified diff from remote to local with context
// lines of context, labelled "remote config" and "new config".
func UnifiedDiff(remote, local []string, context int) []string {
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        withNewlines(remote),
		B:        withNewlines(local),
		FromFile: "remote config",
		ToFile:   "new config",
		Context:  context,
	})
	if err != nil || out == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(out, "\n"), "\n")
}

func withNewlines(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l + "\n"
	}
	return out
}
