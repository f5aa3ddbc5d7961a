// Package store defines where prompt templates and test sets live
// outside the engine, with file-backed implementations. The engine
// depends only on the interfaces; applications plug in databases or
// remote stores by implementing them.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/promptforge/promptforge/llm"
	"github.com/promptforge/promptforge/optimizer"
)

// TemplateStore persists prompt templates by name.
type TemplateStore interface {
	Load(name string) (*llm.PromptTemplate, error)
	Save(template *llm.PromptTemplate) error
	List() ([]string, error)
}

// TestSource supplies named test sets.
type TestSource interface {
	Load(name string) (optimizer.TestSet, error)
}

// FileTemplateStore keeps one JSON file per template under a
// directory.
type FileTemplateStore struct {
	dir string
}

func NewFileTemplateStore(dir string) (*FileTemplateStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("template store: %w", err)
	}
	return &FileTemplateStore{dir: dir}, nil
}

func (s *FileTemplateStore) Load(name string) (*llm.PromptTemplate, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	var template llm.PromptTemplate
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, fmt.Errorf("template %q: %w", name, err)
	}
	if template.Variables == nil {
		template.Variables = make(map[string]string)
	}
	return &template, nil
}

func (s *FileTemplateStore) Save(template *llm.PromptTemplate) error {
	if template == nil || template.Name == "" {
		return fmt.Errorf("template store: template needs a name")
	}
	if err := llm.Validate(template); err != nil {
		return fmt.Errorf("template %q: %w", template.Name, err)
	}
	path, err := s.path(template.Name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(template, "", "  ")
	if err != nil {
		return fmt.Errorf("template %q: %w", template.Name, err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *FileTemplateStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("template store: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileTemplateStore) path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// FileTestSource reads one JSON test set per file under a directory.
type FileTestSource struct {
	dir string
}

func NewFileTestSource(dir string) *FileTestSource {
	return &FileTestSource{dir: dir}
}

func (s *FileTestSource) Load(name string) (optimizer.TestSet, error) {
	if err := checkName(name); err != nil {
		return optimizer.TestSet{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if err != nil {
		return optimizer.TestSet{}, fmt.Errorf("test set %q: %w", name, err)
	}
	var tests optimizer.TestSet
	if err := json.Unmarshal(data, &tests); err != nil {
		return optimizer.TestSet{}, fmt.Errorf("test set %q: %w", name, err)
	}
	if tests.Name == "" {
		tests.Name = name
	}
	return tests, nil
}

// checkName rejects names that would escape the store directory.
func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("invalid store name %q", name)
	}
	return nil
}
