package readers

import (
	"fmt"
	"path/filepath"

	"code.sajari.com/docconv/v2"
)

// DocReader extracts text from binary document formats through docconv.
type DocReader struct{}

func (r *DocReader) CanRead(path string) bool {
	switch filepath.Ext(path) {
	case ".pdf", ".docx", ".odt", ".xml":
		return true
	}

	return false
}

func (r *DocReader) ReadText(path string) (string, error) {
	res, err := docconv.ConvertPath(path)
	if err != nil {
		return "", fmt.Errorf("failed to convert document: %w", err)
	}

	return res.Body, nil
}
