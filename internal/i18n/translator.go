// Package i18n provides localized text lookup for all user-facing strings.
// Translation keys are the English display strings themselves; for English
// the key is returned verbatim, for other languages the key is resolved
// against a nested dictionary with lossless fallback to the key on any miss.
package i18n

import (
	_ "embed"
	"fmt"
	"sync"

	yamlparser "github.com/knadh/koanf/parsers/yaml"
)

// Lang identifies a supported display language.
type Lang string

const (
	LangEN   Lang = "en"
	LangZHCN Lang = "zh-CN"
	// LangZH is an alias of LangZHCN; both resolve to the same dictionary.
	LangZH Lang = "zh"
)

//go:embed locales/zh-CN.yaml
var zhCNData []byte

// Translator resolves translation keys against a registry of language
// dictionaries. The zero value is not usable; use NewTranslator.
type Translator struct {
	mu      sync.RWMutex
	current Lang
	dicts   map[Lang]*Dict
}

// NewTranslator builds a Translator from the embedded locale data.
// The current language defaults to English.
func NewTranslator() *Translator {
	zhCN, err := parseLocale(zhCNData)
	if err != nil {
		// Embedded data is fixed at build time; a parse failure is a
		// packaging bug, not a runtime condition.
		panic(fmt.Sprintf("i18n: invalid embedded locale zh-CN: %v", err))
	}
	return &Translator{
		current: LangEN,
		dicts: map[Lang]*Dict{
			LangZHCN: zhCN,
			LangZH:   zhCN,
		},
	}
}

func parseLocale(data []byte) (*Dict, error) {
	m, err := yamlparser.Parser().Unmarshal(data)
	if err != nil {
		return nil, err
	}
	return buildDict(m), nil
}

// Language returns the current language.
func (t *Translator) Language() Lang {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// SetLanguage switches the current language. Unrecognized codes are ignored
// and leave the current language unchanged; the return value reports whether
// the code was recognized. Aliases count as recognized.
func (t *Translator) SetLanguage(code string) bool {
	lang := Lang(code)
	if lang != LangEN {
		t.mu.RLock()
		_, ok := t.dicts[lang]
		t.mu.RUnlock()
		if !ok {
			return false
		}
	}
	t.mu.Lock()
	t.current = canonical(lang)
	t.mu.Unlock()
	return true
}

// canonical collapses aliases onto the registry's primary code.
func canonical(lang Lang) Lang {
	if lang == LangZH {
		return LangZHCN
	}
	return lang
}

// Translate resolves key in the given language, or the current language when
// no override is supplied. English returns the key verbatim. A miss at any
// depth returns the key unchanged; Translate never fails.
func (t *Translator) Translate(key string, lang ...Lang) string {
	if s, ok := t.resolve(key, lang...); ok {
		return s
	}
	return key
}

// HasTranslation reports whether key resolves to a translated string in the
// given (or current) language. It performs the same walk as Translate and
// mutates no state.
func (t *Translator) HasTranslation(key string, lang ...Lang) bool {
	_, ok := t.resolve(key, lang...)
	return ok
}

func (t *Translator) resolve(key string, lang ...Lang) (string, bool) {
	t.mu.RLock()
	effective := t.current
	if len(lang) > 0 {
		effective = canonical(lang[0])
	}
	dict := t.dicts[effective]
	t.mu.RUnlock()

	if effective == LangEN || dict == nil {
		return "", false
	}
	return dict.lookup(key)
}

// Default is the process-wide translator used by the CLI and API surfaces.
var Default = NewTranslator()

// T resolves key against the default translator's current language.
func T(key string) string {
	return Default.Translate(key)
}

// Has reports whether the default translator can translate key.
func Has(key string) bool {
	return Default.HasTranslation(key)
}

// SetLanguage switches the default translator's language.
func SetLanguage(code string) bool {
	return Default.SetLanguage(code)
}
