package readers

import (
	"fmt"
	"os"
	"path/filepath"
)

// TextReader reads plain-text files directly, without going through a
// conversion tool.
type TextReader struct{}

func (r *TextReader) CanRead(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".txt" || ext == ".md"
}

func (r *TextReader) ReadText(path string) (string, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}

	return string(buf), nil
}
