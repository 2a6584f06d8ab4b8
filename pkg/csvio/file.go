package csvio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// lz4Suffix marks files stored LZ4-compressed. Large benchmark problem
// sets compress well and are often shipped this way.
const lz4Suffix = ".lz4"

// ReadFile loads a file's contents, decompressing transparently when the
// path carries an .lz4 suffix.
func ReadFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, lz4Suffix) {
		reader = lz4.NewReader(file)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}

	return string(data), nil
}

// WriteFile stores contents at path, compressing transparently when the
// path carries an .lz4 suffix.
func WriteFile(path, contents string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	var writer io.Writer = file

	var lz4Writer *lz4.Writer

	if strings.HasSuffix(path, lz4Suffix) {
		lz4Writer = lz4.NewWriter(file)
		writer = lz4Writer
	}

	if _, err := io.WriteString(writer, contents); err != nil {
		file.Close()

		return fmt.Errorf("write output: %w", err)
	}

	if lz4Writer != nil {
		if err := lz4Writer.Close(); err != nil {
			file.Close()

			return fmt.Errorf("flush output: %w", err)
		}
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}

	return nil
}
