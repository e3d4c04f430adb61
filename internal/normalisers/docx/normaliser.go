package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// documentPart is the main body of a WordprocessingML package.
const documentPart = "word/document.xml"

// maxDocumentPart bounds the decompressed size of the body part.
const maxDocumentPart = 64 << 20

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMEDOCX}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise extracts the body text of a DOCX document, one line per
// paragraph. Table cells are separated by tabs.
func (n *Normaliser) Normalise(_ context.Context, name string, content []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %s is not a docx archive: %w", domain.ErrInvalidInput, name, err)
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, name, err)
	}

	text, err := parseDocumentXML(body)
	if err != nil {
		return "", fmt.Errorf("%w: %s: parse %s: %w", domain.ErrInvalidInput, name, documentPart, err)
	}
	return text, nil
}

func readPart(reader *zip.Reader, part string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != part {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, maxDocumentPart+1))
		if err != nil {
			return nil, err
		}
		if len(data) > maxDocumentPart {
			return nil, fmt.Errorf("%s exceeds %d bytes", part, maxDocumentPart)
		}
		return data, nil
	}
	return nil, fmt.Errorf("missing %s", part)
}

// parseDocumentXML walks the WordprocessingML tokens and keeps text runs.
// Elements are matched by local name so any namespace prefix works.
func parseDocumentXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		out    strings.Builder
		line   strings.Builder
		inText bool
		cells  int
	)
	flush := func() {
		out.WriteString(strings.TrimRight(line.String(), " \t"))
		out.WriteByte('\n')
		line.Reset()
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				line.WriteByte('\t')
			case "br", "cr":
				line.WriteByte('\n')
			case "tr":
				cells = 0
			case "tc":
				if cells > 0 {
					trimmed := strings.TrimRight(line.String(), " ")
					line.Reset()
					line.WriteString(trimmed)
					line.WriteByte('\t')
				}
				cells++
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				// Paragraphs inside a table cell stay on the row's line.
				if cells == 0 {
					flush()
				} else {
					line.WriteByte(' ')
				}
			case "tr":
				flush()
				cells = 0
			}
		case xml.CharData:
			if inText {
				line.Write(t)
			}
		}
	}
	if line.Len() > 0 {
		flush()
	}

	return strings.TrimSpace(out.String()), nil
}
