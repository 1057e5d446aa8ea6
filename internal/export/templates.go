package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

// SafeHTML marks an already-sanitized string as safe for the template.
func SafeHTML(s interface{}) template.HTML {
	switch v := s.(type) {
	case string:
		return template.HTML(v)
	case template.HTML:
		return v
	default:
		return template.HTML("")
	}
}

var articleTemplate = template.Must(template.New("article").Funcs(template.FuncMap{
	"lower": strings.ToLower,
	"formatDate": func(t time.Time, layout string) string {
		return t.Format(layout)
	},
	"safeHTML": SafeHTML,
}).Parse(articleTemplateText))

// TemplateData holds data for article template rendering
type TemplateData struct {
	Headline string
	Slugline string
	Abstract template.HTML
	BodyHTML template.HTML
	Byline   string
	Dateline string
	Ednote   string
	Updated  time.Time
}

// RenderArticleHTML renders the article template with provided data
func RenderArticleHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := articleTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const articleTemplateText = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Headline}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .abstract { font-style: italic; margin-bottom: 1.5rem; }
    .ednote { background: #fff5e0; padding: 0.5rem 1rem; border-left: 3px solid #e49c56; margin: 1rem 0; }
  </style>
</head>
<body>
  <h1>{{.Headline}}</h1>
  <div class="meta">
    {{if .Slugline}}{{.Slugline}} | {{end}}{{if .Byline}}{{.Byline}} | {{end}}{{if not .Updated.IsZero}}{{formatDate .Updated "Jan 2, 2006 15:04"}}{{end}}
  </div>
  {{if .Ednote}}<div class="ednote">{{.Ednote}}</div>{{end}}
  {{if .Abstract}}<div class="abstract">{{.Abstract | safeHTML}}</div>{{end}}
  {{if .Dateline}}<p><strong>{{.Dateline}}</strong></p>{{end}}
  <div>{{.BodyHTML | safeHTML}}</div>
</body>
</html>`
