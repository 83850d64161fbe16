// Package export renders an evidence package into shareable documents. It is
// a consumer of the engine's public read operations only; it never opens the
// container directly.
package export

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/evipack/evipack/internal/pack"
)

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; color: #222; }
h1 { border-bottom: 2px solid #5fafaf; padding-bottom: 0.3rem; }
.meta { color: #666; margin-bottom: 2rem; }
.case { border: 1px solid #ddd; border-radius: 4px; padding: 1rem; margin-bottom: 1.5rem; }
.case h2 { margin-top: 0; }
.status-passed { color: #4a7a4a; }
.status-failed { color: #a04040; }
.status-unset { color: #888; }
.evidence { margin: 0.8rem 0; padding-left: 1rem; border-left: 3px solid #eee; }
.caption { font-style: italic; color: #666; }
pre { background: #f6f6f6; padding: 0.6rem; overflow-x: auto; }
img { max-width: 100%; }
table.fields { border-collapse: collapse; }
table.fields td { border: 1px solid #ddd; padding: 0.2rem 0.6rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">
{{- if .Description}}<p>{{.Description}}</p>{{end}}
{{- if .Authors}}<p>Authors: {{range $i, $a := .Authors}}{{if $i}}, {{end}}{{$a}}{{end}}</p>{{end}}
<p>{{.CaseCount}} test case(s), exported {{.ExportedAt}}</p>
</div>
{{- range .Cases}}
<div class="case">
<h2>{{.Title}} <span class="status-{{.StatusClass}}">{{.StatusLabel}}</span></h2>
{{- if .ExecutedAt}}<p class="meta">Executed {{.ExecutedAt}}</p>{{end}}
{{- if .Fields}}
<table class="fields">
{{- range .Fields}}<tr><td>{{.Name}}</td><td>{{.Value}}</td></tr>
{{- end}}
</table>
{{- end}}
{{- range .Items}}
<div class="evidence">
{{- if .Caption}}<p class="caption">{{.Caption}}</p>{{end}}
{{- if .IsImage}}<img src="{{.DataURI}}" alt="{{.Caption}}">
{{- else if .IsFile}}<p>Attached file: <code>{{.Filename}}</code> ({{.Size}} bytes)</p>
{{- else}}<pre>{{.Text}}</pre>
{{- end}}
</div>
{{- end}}
</div>
{{- end}}
</body>
</html>
`

type reportData struct {
	Title       string
	Description string
	Authors     []string
	CaseCount   int
	ExportedAt  string
	Cases       []caseData
}

type caseData struct {
	Title       string
	StatusLabel string
	StatusClass string
	ExecutedAt  string
	Fields      []fieldData
	Items       []itemData
}

type fieldData struct {
	Name  string
	Value string
}

type itemData struct {
	Caption  string
	Text     string
	IsImage  bool
	IsFile   bool
	Filename string
	Size     int
	DataURI  template.URL
}

// HTML renders the package as a standalone HTML report. Image evidence is
// embedded as data URIs so the output is a single portable file; every media
// reference is resolved through the fallible accessor, so a dangling hash
// fails the export instead of producing a silently empty report.
func HTML(p *pack.Package, w io.Writer) error {
	mimes := make(map[string]string)
	for _, entry := range p.MediaEntries() {
		mimes[entry.Hash] = entry.Mime
	}

	data := reportData{
		Title:       p.Title(),
		Description: p.Description(),
		CaseCount:   len(p.Cases()),
		ExportedAt:  time.Now().Format("2006-01-02 15:04"),
	}
	for _, a := range p.Authors() {
		data.Authors = append(data.Authors, a.String())
	}

	defs := p.CustomFields()
	for _, tc := range p.Cases() {
		cd := caseData{
			Title:       tc.Title,
			StatusLabel: statusLabel(tc.Status),
			StatusClass: statusClass(tc.Status),
		}
		if !tc.ExecutedAt.IsZero() {
			cd.ExecutedAt = tc.ExecutedAt.Format("2006-01-02 15:04")
		}
		for fieldID, value := range tc.Fields {
			name := fieldID
			if def, ok := defs[fieldID]; ok {
				name = def.Name
			}
			cd.Fields = append(cd.Fields, fieldData{Name: name, Value: value})
		}

		for i, ev := range tc.Evidence {
			item, err := renderItem(p, ev, mimes)
			if err != nil {
				return fmt.Errorf("failed to render evidence %d of case %s: %w", i, tc.ID, err)
			}
			cd.Items = append(cd.Items, item)
		}
		data.Cases = append(data.Cases, cd)
	}

	tmpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse report template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

// HTMLFile writes the HTML report to outPath.
func HTMLFile(p *pack.Package, outPath string) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := HTML(p, f); err != nil {
		f.Close()
		os.Remove(outPath)
		return err
	}
	return f.Close()
}

func renderItem(p *pack.Package, ev pack.Evidence, mimes map[string]string) (itemData, error) {
	item := itemData{Caption: ev.Caption}

	data, err := p.EvidenceData(ev)
	if err != nil {
		return itemData{}, err
	}

	switch ev.Kind {
	case pack.EvidenceImage:
		mime := "application/octet-stream"
		if hash, ok := ev.Value.MediaHash(); ok {
			if m, found := mimes[hash]; found {
				mime = m
			}
		}
		uri := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
		item.IsImage = true
		item.DataURI = template.URL(uri)
	case pack.EvidenceFile:
		item.IsFile = true
		item.Filename = ev.Filename
		item.Size = len(data)
	default:
		// Text, rich text and HTTP exchanges render as opaque preformatted
		// text; the rich-text markup is not interpreted here.
		item.Text = string(data)
	}
	return item, nil
}

func statusLabel(s pack.Status) string {
	switch s {
	case pack.StatusPassed:
		return "PASSED"
	case pack.StatusFailed:
		return "FAILED"
	default:
		return "NOT RUN"
	}
}

func statusClass(s pack.Status) string {
	switch s {
	case pack.StatusPassed:
		return "passed"
	case pack.StatusFailed:
		return "failed"
	default:
		return "unset"
	}
}
