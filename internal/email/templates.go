package email

import (
	"bytes"
	"fmt"
	"html/template"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .content { background-color: #f9f9f9; padding: 30px; border-radius: 5px; }
        .button { display: inline-block; color: white !important; padding: 12px 24px; text-decoration: none; border-radius: 5px; }
        .footer { margin-top: 30px; font-size: 12px; color: #666; text-align: center; }
    </style>
</head>
<body>
    <div class="content">{{template "body" .}}</div>
    <div class="footer"><p>This link will expire in {{.Expiry}}.</p></div>
</body>
</html>{{end}}`

const verificationBody = `{{define "body"}}
        <h2>Welcome! Please verify your email</h2>
        <p>Hi {{.Name}},</p>
        <p>Thanks for signing up! Please verify your email address by clicking the button below:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.Link}}" class="button" style="background-color: #28a745;">Verify Email</a>
        </div>
        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all;">{{.Link}}</p>
        <p>If you didn't create an account, please ignore this email.</p>
{{end}}`

const passwordResetBody = `{{define "body"}}
        <h2>Reset Your Password</h2>
        <p>Hi {{.Name}},</p>
        <p>You requested to reset your password. Click the button below to reset it:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.Link}}" class="button" style="background-color: #007bff;">Reset Password</a>
        </div>
        <p>Or copy and paste this link into your browser:</p>
        <p style="word-break: break-all;">{{.Link}}</p>
        <p>If you didn't request this, please ignore this email.</p>
{{end}}`

var (
	verificationTmpl  = template.Must(template.Must(template.New("verification").Parse(layout)).Parse(verificationBody))
	passwordResetTmpl = template.Must(template.Must(template.New("passwordReset").Parse(layout)).Parse(passwordResetBody))
)

type templateData struct {
	Name   string
	Link   string
	Expiry string
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
