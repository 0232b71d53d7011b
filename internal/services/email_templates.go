package services

import (
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"corpsite/internal/models"
	"corpsite/internal/services/mailer"
	contextutils "corpsite/internal/utils"
)

// Content types produced by RenderEmail
const (
	ContentTypeHTML  = "text/html"
	ContentTypePlain = "text/plain"
)

const feedbackNotificationTemplate = `フィードバックの種類: {{.Type}}
内容: {{.Content}}
{{- if .Name}}
名前: {{.Name}}{{end}}
{{- if .Email}}
メール: {{.Email}}{{end}}
{{- if .Phone}}
電話: {{.Phone}}{{end}}
`

const scheduledReportTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: sans-serif; }
        .container { max-width: 600px; margin: 0 auto; }
        .header { background: #f8f9fa; padding: 20px; }
        .content { padding: 20px; }
        .summary { margin-bottom: 20px; }
        .summary-item { margin-bottom: 10px; }
        table { border-collapse: collapse; }
        th, td { border: 1px solid #dee2e6; padding: 4px 8px; }
        .footer { background: #f8f9fa; padding: 20px; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.TypeLabel}}レポート</h1>
            <p>期間: {{.Date}}</p>
        </div>
        <div class="content">
            <div class="summary">
                <h2>サマリー</h2>
                <div class="summary-item"><strong>総フィードバック数:</strong> {{.Data.TotalFeedback}}</div>
                <div class="summary-item"><strong>対応済み:</strong> {{.Data.CompletedCount}}</div>
                <div class="summary-item"><strong>対応中:</strong> {{.Data.InProgressCount}}</div>
                <div class="summary-item"><strong>未対応:</strong> {{.Data.PendingCount}}</div>
                <div class="summary-item"><strong>平均対応時間:</strong> {{hours .Data.ResponseTime.AvgResponseTime}}時間</div>
            </div>
            {{- if .Data.TypeBreakdown}}
            <div class="type-breakdown">
                <h2>タイプ別集計</h2>
                <table>
                    <tr><th>タイプ</th><th>件数</th><th>対応済み</th></tr>
                    {{- range .Data.TypeBreakdown}}
                    <tr><td>{{.Type}}</td><td>{{.Count}}</td><td>{{.ResolvedCount}}</td></tr>
                    {{- end}}
                </table>
            </div>
            {{- end}}
            {{- if .Data.DailyTrends}}
            <div class="trends">
                <h2>日次トレンド</h2>
                <table>
                    <tr><th>日付</th><th>総数</th><th>対応済み</th></tr>
                    {{- range .Data.DailyTrends}}
                    <tr><td>{{.Date}}</td><td>{{.TotalFeedback}}</td><td>{{.ResolvedCount}}</td></tr>
                    {{- end}}
                </table>
            </div>
            {{- end}}
            {{- if .Data.WeeklyTrends}}
            <div class="trends">
                <h2>週次トレンド</h2>
                <table>
                    <tr><th>週</th><th>総数</th><th>対応済み</th></tr>
                    {{- range .Data.WeeklyTrends}}
                    <tr><td>{{.Week}}</td><td>{{.TotalFeedback}}</td><td>{{.ResolvedCount}}</td></tr>
                    {{- end}}
                </table>
            </div>
            {{- end}}
        </div>
        <div class="footer">
            <p>このレポートは自動生成されました。</p>
            <p>生成者: {{.GeneratedBy}}</p>
        </div>
    </div>
</body>
</html>
`

const testEmailTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body>
    <h1>{{.SiteName}}</h1>
    <p>テストメールです。{{if .SentAt}}送信日時: {{.SentAt}}{{end}}</p>
</body>
</html>
`

var emailFuncs = map[string]interface{}{
	"hours": formatHours,
}

var (
	reportEmailTmpl       = htmltemplate.Must(htmltemplate.New(mailer.TemplateScheduledReport).Funcs(emailFuncs).Parse(scheduledReportTemplate))
	testEmailTmpl         = htmltemplate.Must(htmltemplate.New(mailer.TemplateTestEmail).Parse(testEmailTemplate))
	notificationEmailTmpl = texttemplate.Must(texttemplate.New(mailer.TemplateFeedbackNotification).Parse(feedbackNotificationTemplate))
)

// formatHours renders an average response time with one decimal, 0.0 when nothing was completed
func formatHours(v *float64) string {
	if v == nil {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", *v)
}

// RenderEmail renders one of the mailer templates and returns its MIME type and body
func RenderEmail(templateName string, data map[string]interface{}) (contentType, body string, err error) {
	var buf strings.Builder
	switch templateName {
	case mailer.TemplateFeedbackNotification:
		contentType = ContentTypePlain
		err = notificationEmailTmpl.Execute(&buf, data)
	case mailer.TemplateScheduledReport:
		if _, ok := data["Data"].(*models.ReportData); !ok {
			return "", "", contextutils.ErrorWithContextf("scheduled_report requires *models.ReportData, got %T", data["Data"])
		}
		contentType = ContentTypeHTML
		err = reportEmailTmpl.Execute(&buf, data)
	case mailer.TemplateTestEmail:
		contentType = ContentTypeHTML
		err = testEmailTmpl.Execute(&buf, data)
	default:
		return "", "", contextutils.ErrorWithContextf("unknown template: %s", templateName)
	}
	if err != nil {
		return "", "", contextutils.WrapError(err, "failed to execute template")
	}
	return contentType, buf.String(), nil
}

// FeedbackNotificationData builds the template data for a new-feedback notice.
// Optional contact fields are only rendered when present.
func FeedbackNotificationData(f *models.Feedback) map[string]interface{} {
	return map[string]interface{}{
		"Type":    f.Type,
		"Content": f.Content,
		"Name":    f.Name.String,
		"Email":   f.Email.String,
		"Phone":   f.Phone.String,
	}
}

// ReportEmailSubject formats "[site] 日次レポート - 2024-03-01"
func ReportEmailSubject(siteName string, t models.ReportType, date string) string {
	return fmt.Sprintf("[%s] %sレポート - %s", siteName, t.Label(), date)
}

// ReportEmailData builds the template data for a scheduled report mail
func ReportEmailData(report *models.Report, generatedBy string) map[string]interface{} {
	return map[string]interface{}{
		"TypeLabel":   report.Type.Label(),
		"Date":        report.Date,
		"Data":        &report.Data,
		"GeneratedBy": generatedBy,
	}
}
