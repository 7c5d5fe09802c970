package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	LangEN = "en"
	LangRU = "ru"
)

// Manager holds the bot's message catalogs, one flat key→text map per
// language, loaded from JSON files at startup.
type Manager struct {
	defaultLanguage string
	locales         map[string]map[string]string
	supported       []string
}

func NewManager(defaultLanguage string, localesDir string) (*Manager, error) {
	manager := &Manager{
		locales: map[string]map[string]string{},
	}

	entries, err := os.ReadDir(localesDir)
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		language := strings.TrimSuffix(strings.ToLower(entry.Name()), filepath.Ext(entry.Name()))
		content, err := os.ReadFile(filepath.Join(localesDir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read locale %s: %w", language, err)
		}

		messages := map[string]string{}
		if err := json.Unmarshal(content, &messages); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", language, err)
		}
		if len(messages) == 0 {
			return nil, fmt.Errorf("locale %s is empty", language)
		}

		manager.locales[language] = messages
		manager.supported = append(manager.supported, language)
	}

	if _, ok := manager.locales[LangEN]; !ok {
		return nil, fmt.Errorf("required locale %q missing", LangEN)
	}
	if _, ok := manager.locales[LangRU]; !ok {
		return nil, fmt.Errorf("required locale %q missing", LangRU)
	}

	sort.Strings(manager.supported)
	manager.defaultLanguage = manager.NormalizeLanguage(defaultLanguage)
	return manager, nil
}

func (manager *Manager) DefaultLanguage() string {
	return manager.defaultLanguage
}

func (manager *Manager) SupportedLanguages() []string {
	result := make([]string, len(manager.supported))
	copy(result, manager.supported)
	return result
}

// NormalizeLanguage maps a Telegram language code onto a supported
// locale, falling back to the default. "ru-RU" and "RU" both resolve
// to "ru".
func (manager *Manager) NormalizeLanguage(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.IndexAny(normalized, "-_"); separator > 0 {
		normalized = normalized[:separator]
	}
	if normalized == "" || !manager.isSupported(normalized) {
		if manager.defaultLanguage != "" {
			return manager.defaultLanguage
		}
		return LangEN
	}
	return normalized
}

// Messages returns the catalog for a language, already normalized.
func (manager *Manager) Messages(language string) map[string]string {
	return manager.locales[manager.NormalizeLanguage(language)]
}

// T looks one key up, falling back to the default language and finally
// to the key itself so a missing entry stays visible instead of silent.
func (manager *Manager) T(language string, key string) string {
	if text, ok := manager.Messages(language)[key]; ok && text != "" {
		return text
	}
	if text, ok := manager.locales[manager.defaultLanguage][key]; ok && text != "" {
		return text
	}
	return key
}

func (manager *Manager) isSupported(language string) bool {
	for _, supported := range manager.supported {
		if supported == language {
			return true
		}
	}
	return false
}
