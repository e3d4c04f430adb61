package domain

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"
)

// MIME types of the formats a tenant may upload.
const (
	MIMEPlainText = "text/plain"
	MIMEMarkdown  = "text/markdown"
	MIMEPDF       = "application/pdf"
	MIMEDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// fallbackMIMETypes covers extensions the platform MIME table often lacks.
var fallbackMIMETypes = map[string]string{
	".md":       MIMEMarkdown,
	".markdown": MIMEMarkdown,
	".txt":      MIMEPlainText,
	".docx":     MIMEDOCX,
	".pdf":      MIMEPDF,
	".csv":      "text/csv",
	".json":     "application/json",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".html":     "text/html",
	".htm":      "text/html",
	".xml":      "application/xml",
}

// uploadable lists the extensions accepted by document upload.
var uploadable = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".md":   true,
}

// DetectMIMEType derives a MIME type from a file name's extension.
// Names without an extension are treated as plain text; unknown extensions
// are application/octet-stream.
func DetectMIMEType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return MIMEPlainText
	}
	if t, ok := fallbackMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return strings.TrimSpace(t)
	}
	return "application/octet-stream"
}

// IsUploadable reports whether name has an extension accepted for upload.
func IsUploadable(name string) bool {
	return uploadable[strings.ToLower(filepath.Ext(name))]
}

// UploadableExtensions returns the accepted upload extensions.
func UploadableExtensions() []string {
	return []string{".pdf", ".docx", ".txt", ".md"}
}

// ValidateDocumentName rejects names that are empty, hidden or that could
// escape the tenant's directory.
func ValidateDocumentName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: empty document name", ErrInvalidInput)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: document name %q contains a path separator", ErrInvalidInput, name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: document name %q is hidden", ErrInvalidInput, name)
	}
	return nil
}
