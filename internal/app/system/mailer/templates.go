// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// NotificationEmailData holds data for the notification email template.
type NotificationEmailData struct {
	SiteName      string
	RecipientName string
	Title         string
	Message       string
	Link          string // optional deep link into the app
}

var notificationHTML = template.Must(template.New("notification").Parse(notificationHTMLTemplate))

// BuildNotificationEmail creates a notification email with both HTML and text bodies.
func BuildNotificationEmail(to string, data NotificationEmailData) Email {
	return Email{
		To:       to,
		Subject:  fmt.Sprintf("[%s] %s", data.SiteName, data.Title),
		TextBody: buildNotificationText(data),
		HTMLBody: buildNotificationHTML(data),
	}
}

func buildNotificationText(data NotificationEmailData) string {
	var buf bytes.Buffer
	if data.RecipientName != "" {
		fmt.Fprintf(&buf, "Hi %s,\n\n", data.RecipientName)
	}
	buf.WriteString(data.Title + "\n\n")
	buf.WriteString(data.Message + "\n")
	if data.Link != "" {
		buf.WriteString("\nOpen " + data.SiteName + ":\n" + data.Link + "\n")
	}
	buf.WriteString("\nYou can change which emails you receive in your notification preferences.\n")
	return buf.String()
}

func buildNotificationHTML(data NotificationEmailData) string {
	var buf bytes.Buffer
	_ = notificationHTML.Execute(&buf, data)
	return buf.String()
}

const notificationHTMLTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 480px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 20px; font-weight: 600; color: #0f766e;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">
              {{if .RecipientName}}<p style="margin: 0 0 16px; font-size: 15px; color: #374151;">Hi {{.RecipientName}},</p>{{end}}
              <h2 style="margin: 0 0 12px; font-size: 18px; color: #1f2937;">{{.Title}}</h2>
              <p style="margin: 0 0 24px; font-size: 15px; color: #374151; line-height: 1.5;">{{.Message}}</p>
              {{if .Link}}
              <a href="{{.Link}}" style="display: inline-block; padding: 12px 28px; background-color: #0f766e; color: #ffffff; text-decoration: none; font-size: 15px; border-radius: 6px;">Open {{.SiteName}}</a>
              {{end}}
            </td>
          </tr>
          <tr>
            <td style="padding: 20px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af;">You can change which emails you receive in your notification preferences.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
