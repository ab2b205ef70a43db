package export

import (
	"bufio"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Ramsey-B/bramble/pkg/models"
)

const (
	exportNamespace = "http://www.mediawiki.org/xml/export-0.11/"
	schemaLocation  = "http://www.mediawiki.org/xml/export-0.11/ http://www.mediawiki.org/xml/export-0.11.xsd"
	DefaultUsername = "Giantbomb"
)

type xmlContributor struct {
	Username string `xml:"username"`
	ID       int    `xml:"id"`
}

// xmlText carries a rendered body, which is escaped by the renderer and
// written verbatim.
type xmlText struct {
	Space string `xml:"xml:space,attr"`
	Bytes int    `xml:"bytes,attr"`
	Value string `xml:",innerxml"`
}

type xmlRevision struct {
	Contributor xmlContributor `xml:"contributor"`
	Model       string         `xml:"model"`
	Format      string         `xml:"format"`
	Text        xmlText        `xml:"text"`
}

type xmlPage struct {
	XMLName  xml.Name    `xml:"page"`
	Title    string      `xml:"title"`
	NS       int         `xml:"ns"`
	Revision xmlRevision `xml:"revision"`
}

type bundleFile struct {
	file *os.File
	buf  *bufio.Writer
	enc  *xml.Encoder
}

// XMLSink writes each bundle as a MediaWiki export 0.11 document in Dir.
// Files are opened on their first batch and finished by Close.
type XMLSink struct {
	Dir      string
	Username string
	UserID   int

	mu      sync.Mutex
	bundles map[string]*bundleFile
}

func NewXMLSink(dir, username string) *XMLSink {
	if username == "" {
		username = DefaultUsername
	}
	return &XMLSink{Dir: dir, Username: username, UserID: 1, bundles: map[string]*bundleFile{}}
}

func (s *XMLSink) WriteBatch(ctx context.Context, bundle string, docs []models.PageDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bf, err := s.open(bundle)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := xmlPage{
			Title: doc.Title,
			NS:    doc.Namespace,
			Revision: xmlRevision{
				Contributor: xmlContributor{Username: s.Username, ID: s.UserID},
				Model:       "wikitext",
				Format:      "text/x-wiki",
				Text:        xmlText{Space: "preserve", Bytes: len(doc.Body), Value: doc.Body},
			},
		}
		if err := bf.enc.Encode(page); err != nil {
			return fmt.Errorf("failed to encode page %q: %w", doc.Title, err)
		}
	}
	if err := bf.enc.Flush(); err != nil {
		return err
	}
	return bf.buf.Flush()
}

func (s *XMLSink) open(bundle string) (*bundleFile, error) {
	if bf, ok := s.bundles[bundle]; ok {
		return bf, nil
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return nil, err
	}
	file, err := os.Create(filepath.Join(s.Dir, filepath.Base(bundle)))
	if err != nil {
		return nil, err
	}

	buf := bufio.NewWriter(file)
	buf.WriteString(xml.Header)
	buf.WriteString(`<mediawiki xmlns="` + exportNamespace + `" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`)
	buf.WriteString(` xsi:schemaLocation="` + schemaLocation + `" version="0.11" xml:lang="en">` + "\n")

	enc := xml.NewEncoder(buf)
	enc.Indent("  ", "  ")
	bf := &bundleFile{file: file, buf: buf, enc: enc}
	s.bundles[bundle] = bf
	return bf, nil
}

// Close finishes every open bundle. Files are complete only after Close.
func (s *XMLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, bf := range s.bundles {
		if _, err := bf.buf.WriteString("\n</mediawiki>\n"); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := bf.buf.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := bf.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.bundles, name)
	}
	return firstErr
}

// Path returns where bundle is written.
func (s *XMLSink) Path(bundle string) string {
	return filepath.Join(s.Dir, filepath.Base(bundle))
}
