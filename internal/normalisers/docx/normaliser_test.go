package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

const docHeader = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
`

const docFooter = `
</w:body>
</w:document>`

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(documentXML string) []byte {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	// Add [Content_Types].xml (required for valid DOCX)
	contentTypes, _ := w.Create("[Content_Types].xml")
	contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))

	if documentXML != "" {
		doc, _ := w.Create("word/document.xml")
		doc.Write([]byte(documentXML))
	}

	w.Close()
	return buf.Bytes()
}

func normalise(t *testing.T, body string) string {
	t.Helper()
	text, err := New().Normalise(context.Background(), "doc.docx", createTestDOCX(docHeader+body+docFooter))
	require.NoError(t, err)
	return text
}

func TestSupportedMIMETypes(t *testing.T) {
	mimeTypes := New().SupportedMIMETypes()
	assert.Equal(t, []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}, mimeTypes)
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	assert.Equal(t, "Hello World", normalise(t, `<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>`))
}

func TestNormalise_MultipleParagraphs(t *testing.T) {
	text := normalise(t, `<w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Second paragraph</w:t></w:r></w:p>
<w:p><w:r><w:t>Third paragraph</w:t></w:r></w:p>`)

	assert.Equal(t, "First paragraph\nSecond paragraph\nThird paragraph", text)
}

func TestNormalise_MultipleRuns(t *testing.T) {
	text := normalise(t, `<w:p>
<w:r><w:t xml:space="preserve">Hello </w:t></w:r>
<w:r><w:t>World</w:t></w:r>
</w:p>`)

	assert.Equal(t, "Hello World", text)
}

func TestNormalise_TabsAndBreaks(t *testing.T) {
	text := normalise(t, `<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r></w:p>`)
	assert.Equal(t, "a\tb\nc", text)
}

func TestNormalise_Table(t *testing.T) {
	text := normalise(t, `<w:p><w:r><w:t>Prices</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Item</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Cost</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Tea</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>3</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>`)

	assert.Equal(t, "Prices\nItem\tCost\nTea\t3", text)
}

func TestNormalise_IgnoresNonTextElements(t *testing.T) {
	text := normalise(t, `<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t>Title</w:t></w:r></w:p>`)
	assert.Equal(t, "Title", text)
}

func TestNormalise_EmptyDocument(t *testing.T) {
	assert.Empty(t, normalise(t, ""))
}

func TestNormalise_InvalidZip(t *testing.T) {
	_, err := New().Normalise(context.Background(), "invalid.docx", []byte("not a zip file"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "invalid.docx")
}

func TestNormalise_MissingDocumentPart(t *testing.T) {
	_, err := New().Normalise(context.Background(), "doc.docx", createTestDOCX(""))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "missing word/document.xml")
}

func TestNormalise_MalformedXML(t *testing.T) {
	_, err := New().Normalise(context.Background(), "doc.docx", createTestDOCX("<w:document><w:body>"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}

func BenchmarkNormalise(b *testing.B) {
	normaliser := New()
	ctx := context.Background()
	content := createTestDOCX(docHeader + `<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>` + docFooter)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = normaliser.Normalise(ctx, "doc.docx", content)
	}
}
