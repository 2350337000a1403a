package catalog

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractResumeText pulls plain text from a PDF resume for profile
// bootstrapping. Pages that fail extraction are skipped rather than
// failing the whole document; an empty result is an error.
func ExtractResumeText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open resume %q: %w", path, err)
	}
	defer f.Close()

	var builder strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	text := strings.TrimSpace(builder.String())
	if text == "" {
		return "", fmt.Errorf("resume %q contains no extractable text", path)
	}
	return text, nil
}
