package importer

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t\r\n]+`)
)

// ToWikitext converts an HTML description into MediaWiki markup. Paragraphs,
// headings, lists, line breaks and bold or italic runs are kept. Every other
// tag is dropped with its text preserved, except scripts, styles and images.
func ToWikitext(description string) string {
	if strings.TrimSpace(description) == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(description))
	if err != nil {
		return strings.TrimSpace(description)
	}

	w := &wikiWriter{}
	w.children(doc)

	out := blankLines.ReplaceAllString(w.b.String(), "\n\n")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

type wikiWriter struct {
	b     strings.Builder
	lists []atom.Atom
}

func (w *wikiWriter) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

func (w *wikiWriter) block() {
	if w.b.Len() > 0 {
		w.b.WriteString("\n\n")
	}
}

func (w *wikiWriter) node(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.b.WriteString(spaceRuns.ReplaceAllString(n.Data, " "))
		return
	case html.ElementNode:
	default:
		w.children(n)
		return
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Img, atom.Figure, atom.Iframe, atom.Noscript:
	case atom.P, atom.Div, atom.Blockquote:
		w.block()
		w.children(n)
		w.block()
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		marks := strings.Repeat("=", headingLevel(n.DataAtom))
		w.block()
		w.b.WriteString(marks + " ")
		w.children(n)
		w.b.WriteString(" " + marks)
		w.block()
	case atom.B, atom.Strong:
		w.wrap(n, "'''")
	case atom.I, atom.Em:
		w.wrap(n, "''")
	case atom.Br:
		w.b.WriteString("\n")
	case atom.Ul, atom.Ol:
		if len(w.lists) == 0 {
			w.block()
		}
		w.lists = append(w.lists, n.DataAtom)
		w.children(n)
		w.lists = w.lists[:len(w.lists)-1]
		if len(w.lists) == 0 {
			w.block()
		}
	case atom.Li:
		w.b.WriteString("\n" + w.bullet() + " ")
		w.children(n)
	default:
		w.children(n)
	}
}

func (w *wikiWriter) wrap(n *html.Node, marks string) {
	w.b.WriteString(marks)
	w.children(n)
	w.b.WriteString(marks)
}

func (w *wikiWriter) bullet() string {
	var b strings.Builder
	for _, list := range w.lists {
		if list == atom.Ol {
			b.WriteByte('#')
		} else {
			b.WriteByte('*')
		}
	}
	if b.Len() == 0 {
		return "*"
	}
	return b.String()
}

// headingLevel maps h2 onto "==", the first section level of a page.
func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1, atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	default:
		return 6
	}
}
