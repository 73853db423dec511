package macros

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/vascribe-labs/vascribe-core/internal/command"
	"gopkg.in/yaml.v3"
)

// Library bundles the dictation vocabulary loaded once at startup: macro
// templates, transcription hotwords, and optional field hints. Every loader
// tolerates a missing file by returning an empty mapping; dictation works
// without any of them, just with nothing to insert.
type Library struct {
	Macros   map[string]string
	Hotwords []string
	Fields   command.FieldMappings
}

// Load reads the full vocabulary from the given paths. Empty paths are
// skipped silently; missing files are logged and skipped.
func Load(macrosPath, hotwordsPath, fieldsPath string, log *slog.Logger) (*Library, error) {
	lib := &Library{Macros: map[string]string{}}

	if macrosPath != "" {
		m, err := loadMacros(macrosPath, log)
		if err != nil {
			return nil, err
		}
		lib.Macros = m
	}
	if hotwordsPath != "" {
		hw, err := loadHotwords(hotwordsPath, log)
		if err != nil {
			return nil, err
		}
		lib.Hotwords = hw
	}
	if fieldsPath != "" {
		f, err := loadFieldMappings(fieldsPath, log)
		if err != nil {
			return nil, err
		}
		lib.Fields = f
	}
	return lib, nil
}

func loadMacros(path string, log *slog.Logger) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("macros file not found, starting with empty library", slog.String("path", path))
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read macros file: %w", err)
	}
	var macros map[string]string
	if err := yaml.Unmarshal(data, &macros); err != nil {
		return nil, fmt.Errorf("parse macros file: %w", err)
	}
	if macros == nil {
		macros = map[string]string{}
	}
	return macros, nil
}

func loadHotwords(path string, log *slog.Logger) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("hotwords file not found", slog.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("open hotwords file: %w", err)
	}
	defer file.Close()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			words = append(words, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read hotwords file: %w", err)
	}
	return words, nil
}

func loadFieldMappings(path string, log *slog.Logger) (command.FieldMappings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("field mappings file not found", slog.String("path", path))
			return nil, nil
		}
		return nil, fmt.Errorf("read field mappings file: %w", err)
	}
	var fields command.FieldMappings
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse field mappings file: %w", err)
	}
	return fields, nil
}

// HotwordPrompt joins the hotword list into the initial-prompt string handed
// to the speech recognizer.
func (l *Library) HotwordPrompt() string {
	return strings.Join(l.Hotwords, ", ")
}
