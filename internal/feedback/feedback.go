// Package feedback holds the localized coaching messages emitted by the
// exercise trackers and the posture scorer.
package feedback

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.toml
var locales embed.FS

// DefaultLanguage is used when no language, or an unknown one, is requested.
var DefaultLanguage = language.English

// Severity classifies a message for display (colour, sound, notification).
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityProgress Severity = "progress"
	SeveritySuccess  Severity = "success"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
)

// Message is a catalog entry reference plus the values for its template.
type Message struct {
	ID       string         `json:"id"`
	Severity Severity       `json:"severity"`
	Data     map[string]any `json:"data,omitempty"`
}

// New creates a message with no template data.
func New(id string, severity Severity) Message {
	return Message{ID: id, Severity: severity}
}

// With returns a copy of m with key set in its template data.
func (m Message) With(key string, value any) Message {
	data := make(map[string]any, len(m.Data)+1)
	for k, v := range m.Data {
		data[k] = v
	}
	data[key] = value
	m.Data = data
	return m
}

// IsZero reports whether m is the empty message.
func (m Message) IsZero() bool {
	return m.ID == ""
}

// Catalog is the set of message translations.
type Catalog struct {
	bundle    *i18n.Bundle
	supported []language.Tag
	matcher   language.Matcher

	mu sync.Mutex
	// translators holds at most one entry per supported language.
	translators map[language.Tag]*Translator
}

// NewCatalog loads every embedded locale file.
func NewCatalog() (*Catalog, error) {
	bundle := i18n.NewBundle(DefaultLanguage)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	files, err := fs.Glob(locales, "locales/*.toml")
	if err != nil {
		return nil, fmt.Errorf("list locales: %w", err)
	}
	for _, name := range files {
		data, err := locales.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if _, err := bundle.ParseMessageFileBytes(data, path.Base(name)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}

	// The matcher falls back to its first tag.
	supported := []language.Tag{DefaultLanguage}
	for _, tag := range bundle.LanguageTags() {
		if tag != DefaultLanguage {
			supported = append(supported, tag)
		}
	}

	return &Catalog{
		bundle:      bundle,
		supported:   supported,
		matcher:     language.NewMatcher(supported),
		translators: make(map[language.Tag]*Translator),
	}, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the shared catalog built from the embedded locales.
// It panics if the embedded files are malformed.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := NewCatalog()
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Languages returns the languages with loaded translations, the default first.
func (c *Catalog) Languages() []language.Tag {
	return append([]language.Tag(nil), c.supported...)
}

// Supports reports whether lang is a valid BCP 47 tag that matches one of
// the loaded languages.
func (c *Catalog) Supports(lang string) bool {
	tag, err := language.Parse(lang)
	if err != nil {
		return false
	}
	_, _, confidence := c.matcher.Match(tag)
	return confidence >= language.High
}

// Match returns the loaded language that best serves the given BCP 47
// language list (for example "tr" or an Accept-Language header value).
// Unparsable entries are skipped; no match yields DefaultLanguage.
func (c *Catalog) Match(langs ...string) language.Tag {
	var wanted []language.Tag
	for _, l := range langs {
		tags, _, err := language.ParseAcceptLanguage(l)
		if err != nil {
			continue
		}
		wanted = append(wanted, tags...)
	}
	if len(wanted) == 0 {
		return DefaultLanguage
	}
	_, index, confidence := c.matcher.Match(wanted...)
	if confidence == language.No {
		return DefaultLanguage
	}
	return c.supported[index]
}

// Translator returns the translator for the language Match picks. There is
// one cached translator per loaded language.
func (c *Catalog) Translator(langs ...string) *Translator {
	tag := c.Match(langs...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.translators[tag]; ok {
		return t
	}
	t := &Translator{
		tag:       tag,
		localizer: i18n.NewLocalizer(c.bundle, tag.String()),
	}
	c.translators[tag] = t
	return t
}

// Translator renders messages in one language.
type Translator struct {
	tag       language.Tag
	localizer *i18n.Localizer
}

// Language returns the language the translator renders.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// Text renders m. Unknown message IDs render as the ID itself.
func (t *Translator) Text(m Message) string {
	if m.IsZero() {
		return ""
	}
	text, err := t.localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    m.ID,
		TemplateData: m.Data,
	})
	if err != nil {
		return m.ID
	}
	return text
}
