package export

import (
	"fmt"
	"html/template"

	"newsdesk/api/internal/article"
	"newsdesk/api/internal/editorstate"
)

// Service renders articles into downloadable documents.
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// Export renders the article in the requested format.
func (s *Service) Export(art article.Article, format Format) (*Result, error) {
	data := TemplateData{
		Headline: art.Headline,
		Slugline: art.Slugline,
		Abstract: template.HTML(art.Abstract),
		BodyHTML: template.HTML(renderBody(art)),
		Byline:   art.Byline,
		Dateline: art.Dateline,
		Ednote:   art.Ednote,
	}
	if art.Updated != nil {
		data.Updated = *art.Updated
	}

	html, err := RenderArticleHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	title := art.Headline
	if title == "" {
		title = art.Slugline
	}

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, title)
	case FormatDOCX:
		return exportDOCX(html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// renderBody prefers the editor document in fields_meta over the stored HTML
// rendition, which may predate the last edit.
func renderBody(art article.Article) string {
	if meta, ok := art.FieldsMeta["body_html"]; ok && len(meta.EditorState) > 0 {
		doc, err := editorstate.Parse(meta.EditorState[0])
		if err == nil {
			return doc.ToHTML()
		}
	}
	return art.BodyHTML
}
