package template

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
)

var cache sync.Map // text -> *template.Template

// Parse renders text with fields. Templates are parsed once per distinct text.
func Parse(text string, fields any) (string, error) {
	tmpl, ok := cache.Load(text)
	if !ok {
		parsed, err := template.New("").Parse(text)
		if err != nil {
			return "", fmt.Errorf("parse: %w", err)
		}
		tmpl, _ = cache.LoadOrStore(text, parsed)
	}
	var result bytes.Buffer
	err := tmpl.(*template.Template).Execute(&result, fields)
	if err != nil {
		return "", fmt.Errorf("execute: %w", err)
	}

	return result.String(), nil
}
