package export

import (
	"fmt"
	"os/exec"
	"strings"
)

// exportDOCX converts the rendered article HTML to DOCX through pandoc.
func exportDOCX(html, title string) (*Result, error) {
	if _, err := exec.LookPath("pandoc"); err != nil {
		return nil, fmt.Errorf("%w: pandoc not installed", ErrDOCXDependencyMissing)
	}

	cmd := exec.Command("pandoc", "-f", "html", "-t", "docx", "--standalone", "-o", "-")
	cmd.Stdin = strings.NewReader(html)

	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("pandoc failed: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("pandoc execution failed: %w", err)
	}

	return &Result{
		Data:     output,
		Filename: sanitizeFilename(title) + ".docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}, nil
}
