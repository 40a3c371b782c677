package mailer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/yuin/goldmark"
)

// DefaultSubject is used when Config.Subject is empty.
const DefaultSubject = "Verify your account"

const defaultBody = `Hi {{.Name}},

Thanks for signing up. Enter this code to activate your account:

## {{.Code}}

The code expires in **{{.Minutes}} minutes**. If you did not request it, you
can ignore this email.
`

// Rendered is a message ready for delivery.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer turns a VerificationMessage into a markdown text part and its
// HTML rendering.
type Renderer struct {
	subject string
	body    *template.Template
	md      goldmark.Markdown
	now     func() time.Time
}

// NewRenderer parses body as a text/template over {Name, Code, Minutes,
// ExpiresAt}. An empty body uses the built-in template.
func NewRenderer(subject, body string) (*Renderer, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if body == "" {
		body = defaultBody
	}
	tmpl, err := template.New("verification").Option("missingkey=error").Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	return &Renderer{subject: subject, body: tmpl, md: goldmark.New(), now: time.Now}, nil
}

type templateData struct {
	Name      string
	Code      string
	Minutes   int
	ExpiresAt time.Time
}

// Render fills the template and converts it to HTML.
func (r *Renderer) Render(msg goAccount.VerificationMessage) (Rendered, error) {
	minutes := 0
	if !msg.ExpiresAt.IsZero() {
		minutes = int((msg.ExpiresAt.Sub(r.now()) + time.Minute - 1) / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
	}
	name := strings.Join(strings.Fields(msg.Name), " ")
	if name == "" {
		name = "there"
	}
	data := templateData{Name: name, Code: msg.Code, Minutes: minutes, ExpiresAt: msg.ExpiresAt}

	var text bytes.Buffer
	if err := r.body.Execute(&text, data); err != nil {
		return Rendered{}, fmt.Errorf("execute template: %w", err)
	}

	// The name is user input; it must reach the HTML part as literal text.
	data.Name = escapeMarkdown(name)
	var source bytes.Buffer
	if err := r.body.Execute(&source, data); err != nil {
		return Rendered{}, fmt.Errorf("execute template: %w", err)
	}

	var html bytes.Buffer
	if err := r.md.Convert(source.Bytes(), &html); err != nil {
		return Rendered{}, fmt.Errorf("render markdown: %w", err)
	}
	return Rendered{Subject: r.subject, Text: text.String(), HTML: html.String()}, nil
}

const markdownPunct = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// escapeMarkdown backslash-escapes every ASCII punctuation character.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune(markdownPunct, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
