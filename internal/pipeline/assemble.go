package pipeline

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/caredocs/attesta/internal/models"
)

// Policy holds document-numbering and date policy applied at assembly time.
type Policy struct {
	DocumentCode         string
	EffectiveOffsetDays  int
	ReviewIntervalMonths int
	Organization         string
}

// SharedFields are the document-level fields computed exactly once per
// assembly and injected identically into every page.
type SharedFields struct {
	DocumentNumber string
	Version        string
	EffectiveDate  time.Time
	ReviewDate     time.Time
	Organization   string
}

// ComputeSharedFields derives the shared fields for one assembled document.
// ref is the objective code or NC identifier the document belongs to.
func ComputeSharedFields(policy Policy, ref, version string, now time.Time) SharedFields {
	effective := now.AddDate(0, 0, policy.EffectiveOffsetDays)
	return SharedFields{
		DocumentNumber: fmt.Sprintf("%s-%s", policy.DocumentCode, strings.ToUpper(ref)),
		Version:        version,
		EffectiveDate:  effective,
		ReviewDate:     effective.AddDate(0, policy.ReviewIntervalMonths, 0),
		Organization:   policy.Organization,
	}
}

// documentStyles is the inline stylesheet every persisted document carries,
// so the output renders standalone in any HTML viewer and prints to PDF
// unchanged.
const documentStyles = `
body { font-family: Arial, Helvetica, sans-serif; font-size: 11pt; color: #1a1a1a; margin: 0; }
.page { padding: 24mm 18mm; page-break-after: always; }
.doc-header { width: 100%; border-collapse: collapse; margin-bottom: 18px; }
.doc-header td { border: 1px solid #444; padding: 6px 10px; font-size: 9pt; }
.doc-header .org { font-size: 12pt; font-weight: bold; }
.section-title { text-align: center; font-size: 14pt; margin: 16px 0; text-transform: uppercase; }
.section-body { line-height: 1.5; }
.signatures { width: 100%; border-collapse: collapse; margin-top: 36px; }
.signatures td { border: 1px solid #444; padding: 8px 10px; width: 33%; font-size: 9pt; height: 52px; vertical-align: top; }
.doc-footer { margin-top: 24px; font-size: 8pt; color: #555; text-align: center; }
table { border-collapse: collapse; }
.section-body table td, .section-body table th { border: 1px solid #888; padding: 4px 8px; }
`

// documentTemplate renders the full document: one page per section, each with
// identical header, signature block, and footer.
var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>` + documentStyles + `</style>
</head>
<body>
{{- range .Pages}}
<div class="page">
<table class="doc-header">
<tr><td class="org" rowspan="2">{{$.Fields.Organization}}</td><td>Document No.</td><td>{{$.Fields.DocumentNumber}}</td></tr>
<tr><td>Version</td><td>{{$.Fields.Version}}</td></tr>
<tr><td>{{.Department}}</td><td>Effective Date</td><td>{{$.Fields.EffectiveDate.Format "2006-01-02"}}</td></tr>
<tr><td>{{.Category}}</td><td>Review Date</td><td>{{$.Fields.ReviewDate.Format "2006-01-02"}}</td></tr>
</table>
<h2 class="section-title">{{.PageTitle}}</h2>
<div class="section-body">{{.Body}}</div>
<table class="signatures">
<tr><td>Prepared by</td><td>Reviewed by</td><td>Approved by</td></tr>
<tr><td></td><td></td><td></td></tr>
</table>
<div class="doc-footer">{{$.Fields.DocumentNumber}} · Version {{$.Fields.Version}} · Uncontrolled when printed</div>
</div>
{{- end}}
</body>
</html>
`))

type documentPage struct {
	PageTitle  string
	Department string
	Category   string
	Body       template.HTML
}

type documentData struct {
	Title  string
	Fields SharedFields
	Pages  []documentPage
}

// Assemble wraps generated sections into a single self-contained document.
// Page order follows the requested section order, never the order in which
// concurrent generation calls completed; sections are matched by id.
func Assemble(title string, specs []models.SectionSpec, sections []models.GeneratedSection, fields SharedFields) (string, error) {
	if len(specs) == 0 {
		return "", fmt.Errorf("no sections to assemble")
	}

	byID := make(map[string]models.GeneratedSection, len(sections))
	for _, s := range sections {
		byID[s.SectionID] = s
	}

	data := documentData{Title: title, Fields: fields}
	for _, spec := range specs {
		section, ok := byID[spec.ID]
		if !ok {
			return "", fmt.Errorf("missing generated section for spec %q", spec.ID)
		}
		data.Pages = append(data.Pages, documentPage{
			PageTitle:  spec.PageTitle,
			Department: spec.Department,
			Category:   spec.Category,
			// The fragment passed sanitization; escaping it here would
			// destroy the generated markup.
			Body: template.HTML(section.HTMLFragment),
		})
	}

	var b strings.Builder
	if err := documentTemplate.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	return b.String(), nil
}

// revisionTemplate re-shells body markup produced outside the section
// pipeline, with a footer carrying the recomputed document number and version.
var revisionTemplate = template.Must(template.New("revision").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>` + documentStyles + `</style>
</head>
<body>
{{.Body}}
<div class="doc-footer">{{.Fields.DocumentNumber}} · Version {{.Fields.Version}} · Uncontrolled when printed</div>
</body>
</html>
`))

type revisionData struct {
	Title  string
	Fields SharedFields
	Body   template.HTML
}

// Rewrap wraps revised body markup in the standalone document shell.
// Refinement asks the model for body content only; persisted documents always
// carry the shell. body must already have passed sanitization.
func Rewrap(title, body string, fields SharedFields) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("no content to wrap")
	}
	var b strings.Builder
	err := revisionTemplate.Execute(&b, revisionData{
		Title:  title,
		Fields: fields,
		Body:   template.HTML(body),
	})
	if err != nil {
		return "", fmt.Errorf("render revision: %w", err)
	}
	return b.String(), nil
}
