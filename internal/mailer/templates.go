package mailer

import (
	"bytes"
	"embed"
	"fmt"
	htmpl "html/template"
	"strings"
	texttpl "text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names
const (
	TemplateWelcome         = "welcome"
	TemplatePasswordChanged = "password_changed"
	TemplateRecoveryCode    = "recovery_code"
)

// TemplateData carries every field the notification templates reference.
type TemplateData struct {
	AppName      string
	Username     string
	Password     string // welcome only
	RecoveryCode string
	ResetURL     string
	ValidFor     string
	ExpiresAt    time.Time
	ChangedAt    time.Time
}

func baseFuncs() map[string]any {
	return map[string]any{
		"formatTime": func(t time.Time, layout string) string { return t.UTC().Format(layout) },
		"upper":      strings.ToUpper,
	}
}

var (
	htmlFuncMap = htmpl.FuncMap(baseFuncs())
	textFuncMap = texttpl.FuncMap(baseFuncs())
)

func renderFile(filename string, isHTML bool, data any) (string, error) {
	var (
		buf bytes.Buffer
		err error
	)
	path := "templates/" + filename

	if isHTML {
		tpl, e := htmpl.New(filename).Funcs(htmlFuncMap).ParseFS(templateFS, path)
		if e != nil {
			return "", fmt.Errorf("parse html %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	} else {
		tpl, e := texttpl.New(filename).Funcs(textFuncMap).ParseFS(templateFS, path)
		if e != nil {
			return "", fmt.Errorf("parse text %q: %w", filename, e)
		}
		err = tpl.Execute(&buf, data)
	}
	if err != nil {
		return "", fmt.Errorf("exec %q: %w", filename, err)
	}
	return buf.String(), nil
}

// Render builds a Message from <name>.subject.tmpl, <name>.text.tmpl and
// <name>.html.tmpl.
func Render(name string, data TemplateData, to ...string) (Message, error) {
	subject, err := renderFile(name+".subject.tmpl", false, data)
	if err != nil {
		return Message{}, err
	}
	text, err := renderFile(name+".text.tmpl", false, data)
	if err != nil {
		return Message{}, err
	}
	html, err := renderFile(name+".html.tmpl", true, data)
	if err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: strings.TrimSpace(subject),
		Text:    text,
		HTML:    html,
	}, nil
}
