package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

// Persona returns the built-in counselor instruction sent as the first turn of every conversation.
func Persona() string {
	b, err := templatesFS.ReadFile("templates/persona.md")
	if err != nil {
		panic(fmt.Sprintf("embedded persona missing: %v", err))
	}
	return string(b)
}

// LoadPersona reads the persona from path, or returns the built-in one when path is empty.
func LoadPersona(path string) (string, error) {
	if path == "" {
		return Persona(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read persona prompt %s: %w", path, err)
	}
	s := strings.TrimSpace(string(data))
	if s == "" {
		return "", fmt.Errorf("persona prompt %s is empty", path)
	}
	return s, nil
}

var careerTmpl = template.Must(template.ParseFS(templatesFS, "templates/career.tmpl"))

type CareerData struct {
	Name      string
	Interests string
	Skills    string
	Education string
}

// RenderCareer renders the one-shot career suggestion prompt.
func RenderCareer(d CareerData) (string, error) {
	var buf bytes.Buffer
	if err := careerTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
