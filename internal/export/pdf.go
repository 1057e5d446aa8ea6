package export

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const pdfTimeout = 30 * time.Second

// exportPDF prints the rendered article HTML to PDF through headless Chrome.
func exportPDF(html, title string) (*Result, error) {
	if !chromiumAvailable() {
		return nil, fmt.Errorf("%w: chromium not installed", ErrPDFDependencyMissing)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pdfTimeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("disable-features", "IsolateOrigins,site-per-process"),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var pdfData []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("data:text/html;charset=utf-8,"+encodeDataURL(html)),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.5).
				WithPaperHeight(11.0).
				WithMarginTop(0.75).
				WithMarginBottom(0.75).
				WithMarginLeft(0.75).
				WithMarginRight(0.75).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome pdf generation failed: %w", err)
	}

	return &Result{
		Data:     pdfData,
		Filename: sanitizeFilename(title) + ".pdf",
		MimeType: "application/pdf",
	}, nil
}

func chromiumAvailable() bool {
	for _, name := range []string{"chromium-browser", "chromium"} {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	return false
}

// encodeDataURL percent-encodes per RFC 3986. url.QueryEscape is not usable
// here: it encodes spaces as "+", which data URLs take literally.
func encodeDataURL(s string) string {
	var out strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '~':
			out.WriteRune(r)
		default:
			for i := 0; i < len(string(r)); i++ {
				fmt.Fprintf(&out, "%%%02X", string(r)[i])
			}
		}
	}
	return out.String()
}

// sanitizeFilename reduces a headline to a safe download filename.
func sanitizeFilename(title string) string {
	var out strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_':
			out.WriteRune(r)
		case r == ' ':
			out.WriteByte('-')
		}
	}
	name := out.String()
	if len(name) > 50 {
		name = name[:50]
	}
	if name == "" {
		name = "article"
	}
	return name
}
