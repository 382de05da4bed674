// Package textgen wraps the optional text-generation provider used to enrich
// quests and goal roadmaps. Callers must treat every error as recoverable and
// fall back to deterministic content.
package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
)

// Provider generates free text from a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ErrDisabled is returned by Disabled and by helpers given a nil provider.
var ErrDisabled = errors.New("textgen: provider disabled")

// ErrNoJSON means the response held no extractable JSON value.
var ErrNoJSON = errors.New("textgen: no json in response")

// Disabled is the provider used when no API key is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (string, error) { return "", ErrDisabled }

// Enabled reports whether p can produce output at all.
func Enabled(p Provider) bool {
	if p == nil {
		return false
	}
	_, off := p.(Disabled)
	return !off
}

// ExtractJSONArray returns the outermost [...] span of text. Models often wrap
// JSON in prose or code fences.
func ExtractJSONArray(text string) (string, error) {
	return extract(text, '[', ']')
}

// ExtractJSONObject returns the outermost {...} span of text.
func ExtractJSONObject(text string) (string, error) {
	return extract(text, '{', '}')
}

func extract(text string, open, close byte) (string, error) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", ErrNoJSON
	}
	span := text[start : end+1]
	if !json.Valid([]byte(span)) {
		return "", ErrNoJSON
	}
	return span, nil
}

// GenerateJSON asks p for a response and decodes the first JSON array or
// object (depending on the kind of v) found in it.
func GenerateJSON(ctx context.Context, p Provider, prompt string, v any) error {
	if !Enabled(p) {
		return ErrDisabled
	}
	text, err := p.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	var span string
	if isArrayTarget(v) {
		span, err = ExtractJSONArray(text)
	} else {
		span, err = ExtractJSONObject(text)
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(span), v)
}

func isArrayTarget(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && (t.Kind() == reflect.Slice || t.Kind() == reflect.Array)
}
