package render

import (
	"strings"
)

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes the five XML special characters.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

type templateLine struct {
	field          string
	value          string
	includeIfEmpty bool
}

// Template builds a "{{Name ... }}" infobox from ordered field lines.
type Template struct {
	name  string
	lines []templateLine
	block string
}

func NewTemplate(name string) *Template {
	return &Template{name: name}
}

// Add appends "| field=value". Lines with an empty value are dropped unless includeIfEmpty.
func (t *Template) Add(field, value string, includeIfEmpty bool) *Template {
	t.lines = append(t.lines, templateLine{field: field, value: value, includeIfEmpty: includeIfEmpty})
	return t
}

// Block appends preformatted lines after the fields, inside the template.
func (t *Template) Block(text string) *Template {
	t.block = text
	return t
}

func (t *Template) String() string {
	var b strings.Builder
	b.WriteString("{{" + t.name)
	for _, line := range t.lines {
		if line.value == "" && !line.includeIfEmpty {
			continue
		}
		b.WriteString("\n| " + line.field + "=" + line.value)
	}
	if t.block != "" {
		b.WriteString("\n" + t.block)
	}
	b.WriteString("\n}}\n")
	return b.String()
}
