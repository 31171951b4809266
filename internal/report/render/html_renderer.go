package render

import (
	"bytes"
	"html/template"
	"time"
)

const reportHTMLTemplate = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>{{.Report.Title}}</title>
  <style>
    * { box-sizing: border-box; }
    body {
      margin: 0;
      padding: 32px;
      font-family: "Helvetica Neue", Arial, sans-serif;
      color: #111827;
      background: #ffffff;
    }
    .report {
      max-width: 820px;
      margin: 0 auto;
    }
    .header {
      display: flex;
      justify-content: space-between;
      align-items: flex-start;
      border-bottom: 2px solid #15803d;
      padding-bottom: 16px;
      margin-bottom: 24px;
    }
    .meta {
      text-align: right;
      font-size: 14px;
    }
    .label {
      color: #6b7280;
      text-transform: uppercase;
      letter-spacing: 0.04em;
      font-size: 11px;
    }
    .section {
      margin-bottom: 24px;
    }
    table {
      width: 100%;
      border-collapse: collapse;
      font-size: 14px;
    }
    th, td {
      padding: 10px;
      border-bottom: 1px solid #e5e7eb;
      text-align: left;
    }
    th {
      text-transform: uppercase;
      font-size: 11px;
      letter-spacing: 0.04em;
      color: #6b7280;
    }
    .totals {
      margin-top: 12px;
      display: flex;
      justify-content: flex-end;
      font-size: 16px;
    }
    .totals strong {
      margin-left: 12px;
    }
    .footer {
      border-top: 1px solid #e5e7eb;
      padding-top: 16px;
      font-size: 12px;
      color: #6b7280;
    }
  </style>
</head>
<body>
  <div class="report">
    <div class="header">
      <div>
        <div><strong>{{.Organization.Name}}</strong></div>
        {{if .Organization.Country}}<div>{{.Organization.Country}}</div>{{end}}
        <div class="label">{{.Report.Framework}}</div>
      </div>
      <div class="meta">
        <div class="label">GHG Emissions Report</div>
        <div>Period: {{formatDate .Report.PeriodStart}} - {{formatDate .Report.PeriodEnd}}</div>
        <div>Generated: {{formatDate .Report.GeneratedAt}}</div>
        <div>Factor table: {{.Report.TableVersion}}</div>
      </div>
    </div>

    <div class="section">
      <div class="label">Emissions by Scope</div>
      <table>
        <thead>
          <tr>
            <th>Scope</th>
            <th>Description</th>
            <th>kg CO2e</th>
            <th>Share</th>
          </tr>
        </thead>
        <tbody>
          {{range .Scopes}}
          <tr>
            <td>{{.Scope}}</td>
            <td>{{.Description}}</td>
            <td>{{.TotalKg}}</td>
            <td>{{.Percent}}%</td>
          </tr>
          {{end}}
        </tbody>
      </table>
    </div>

    <div class="section">
      <div class="label">Emissions by Category</div>
      <table>
        <thead>
          <tr>
            <th>Category</th>
            <th>Scope</th>
            <th>kg CO2e</th>
            <th>Results</th>
            <th>Factor Match</th>
          </tr>
        </thead>
        <tbody>
          {{range .Categories}}
          <tr>
            <td>{{.Category}}</td>
            <td>{{.Scope}}</td>
            <td>{{.TotalKg}}</td>
            <td>{{.ResultCount}}</td>
            <td>{{.MatchedScope}}</td>
          </tr>
          {{end}}
        </tbody>
      </table>
      <div class="totals">
        <span>Total</span>
        <strong>{{.Report.TotalKg}} kg CO2e ({{.Report.TotalTonnes}} tCO2e)</strong>
      </div>
    </div>

    {{if .Disclosures}}
    <div class="section">
      <div class="label">Factor Disclosures</div>
      <ul>
        {{range .Disclosures}}
        <li><strong>{{.Category}}</strong>: {{.Note}}</li>
        {{end}}
      </ul>
    </div>
    {{end}}

    <div class="footer">
      <div>Emission factors are applied per the loaded reference table version shown above.</div>
      <div>Totals use fixed-point decimal arithmetic and cover validated records only.</div>
    </div>
  </div>
</body>
</html>
`

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	funcs := template.FuncMap{
		"formatDate": formatDate,
	}
	return &HTMLRenderer{
		tpl: template.Must(template.New("report").Funcs(funcs).Parse(reportHTMLTemplate)),
	}
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	if input.Report.Title == "" {
		input.Report.Title = "GHG Emissions Report"
	}
	if input.Report.Framework == "" {
		input.Report.Framework = "GRI 305"
	}
	if input.Organization.Name == "" {
		input.Organization.Name = "Organization"
	}

	var buf bytes.Buffer
	if err := r.tpl.Execute(&buf, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatDate(value *time.Time) string {
	if value == nil || value.IsZero() {
		return "-"
	}
	return value.UTC().Format("2006-01-02")
}
