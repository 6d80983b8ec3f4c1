package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

const resetSubject = "Recuperação de Senha - ZoonoSys"

//go:embed templates/*
var templatesFS embed.FS

var (
	resetHTML = htmltemplate.Must(htmltemplate.ParseFS(templatesFS, "templates/reset_password.html"))
	resetText = texttemplate.Must(texttemplate.ParseFS(templatesFS, "templates/reset_password.txt"))
)

// renderReset returns the HTML and plain text bodies of a reset message.
func renderReset(n ports.ResetNotification) (string, string, error) {
	var html, text bytes.Buffer
	if err := resetHTML.Execute(&html, n); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	if err := resetText.Execute(&text, n); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	return html.String(), text.String(), nil
}
