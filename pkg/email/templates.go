package email

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

// OverdueRow is one overdue visit in the coordination report.
type OverdueRow struct {
	Patient      string
	Professional string
	ScheduledAt  time.Time
	Action       string
}

type OverdueReportData struct {
	ClinicName  string
	GeneratedAt time.Time
	Location    *time.Location
	Rows        []OverdueRow
}

const overdueText = `Overdue visits report ({{.GeneratedAt | fmtTime}})

{{len .Rows}} visit(s) passed without confirmation:
{{range .Rows}}
- {{.ScheduledAt | fmtTime}}  {{.Patient}} with {{.Professional}} ({{.Action}})
{{- end}}

{{.ClinicName}}
`

const overdueHTML = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 640px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #b91c1c;">Overdue visits</h2>
  <p>{{len .Rows}} visit(s) passed without confirmation. Generated {{.GeneratedAt | fmtTime}}.</p>
  <table style="border-collapse: collapse; width: 100%;">
    <tr><th align="left">When</th><th align="left">Patient</th><th align="left">Professional</th><th align="left">Action</th></tr>
    {{- range .Rows}}
    <tr><td>{{.ScheduledAt | fmtTime}}</td><td>{{.Patient}}</td><td>{{.Professional}}</td><td>{{.Action}}</td></tr>
    {{- end}}
  </table>
  <p style="color: #6b7280; font-size: 14px; margin-top: 30px;">{{.ClinicName}}</p>
</body>
</html>`

// BuildOverdueReportEmail renders the overdue visits report for recipients.
func BuildOverdueReportEmail(recipients []string, data OverdueReportData) (Message, error) {
	if data.ClinicName == "" {
		data.ClinicName = "Clinica"
	}
	loc := data.Location
	if loc == nil {
		loc = time.UTC
	}
	fmtTime := func(t time.Time) string { return t.In(loc).Format("2006-01-02 15:04") }

	text, err := texttemplate.New("overdue.txt").Funcs(texttemplate.FuncMap{"fmtTime": fmtTime}).Parse(overdueText)
	if err != nil {
		return Message{}, err
	}
	html, err := htmltemplate.New("overdue.html").Funcs(htmltemplate.FuncMap{"fmtTime": fmtTime}).Parse(overdueHTML)
	if err != nil {
		return Message{}, err
	}

	var textBuf, htmlBuf bytes.Buffer
	if err := text.Execute(&textBuf, data); err != nil {
		return Message{}, fmt.Errorf("render overdue text: %w", err)
	}
	if err := html.Execute(&htmlBuf, data); err != nil {
		return Message{}, fmt.Errorf("render overdue html: %w", err)
	}

	return Message{
		To:       recipients,
		Subject:  fmt.Sprintf("%s: %d overdue visit(s)", data.ClinicName, len(data.Rows)),
		TextBody: textBuf.String(),
		HTMLBody: htmlBuf.String(),
	}, nil
}
