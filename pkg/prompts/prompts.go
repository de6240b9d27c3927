// Package prompts holds the catalog of summary types, output formats and
// detail levels offered to users, and renders the worker instruction for a
// chosen combination.
package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/template"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const defaultPromptsPath = "prompts.yaml"

var ErrInvalidOptions = errors.New("invalid processing options")

//go:embed catalog.yaml
var defaultCatalog []byte

type Catalog struct {
	SummaryTypes    []SummaryType `yaml:"summary_types"`
	OutputFormats   []string      `yaml:"output_formats"`
	DetailLevels    []string      `yaml:"detail_levels"`
	MaxCustomPrompt int           `yaml:"max_custom_prompt"`
}

type SummaryType struct {
	ID       string `yaml:"id" json:"id"`
	Label    string `yaml:"label" json:"label"`
	Template string `yaml:"template" json:"-"`
}

// Selection is what a user picked on the upload form.
type Selection struct {
	SummaryType        string
	AudienceContext    string
	CustomPrompt       string
	OutputFormat       string
	DetailLevel        string
	IncludeScreenshots bool
}

// Load reads prompts.yaml from the working directory and falls back to the
// built-in catalog when the file does not exist.
func Load() (*Catalog, error) {
	if _, err := os.Stat(defaultPromptsPath); os.IsNotExist(err) {
		return Default()
	}
	return LoadFrom(defaultPromptsPath)
}

func LoadFrom(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}
	return parse(data)
}

func Default() (*Catalog, error) {
	return parse(defaultCatalog)
}

func parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	if len(c.SummaryTypes) == 0 {
		return nil, fmt.Errorf("prompts file defines no summary types")
	}
	if c.MaxCustomPrompt <= 0 {
		c.MaxCustomPrompt = 2000
	}
	return &c, nil
}

func (c *Catalog) Lookup(id string) (SummaryType, bool) {
	for _, st := range c.SummaryTypes {
		if st.ID == id {
			return st, true
		}
	}
	return SummaryType{}, false
}

func (c *Catalog) Validate(sel Selection) error {
	if strings.TrimSpace(sel.SummaryType) == "" {
		return fmt.Errorf("%w: summary_type is required", ErrInvalidOptions)
	}
	if _, ok := c.Lookup(sel.SummaryType); !ok {
		return fmt.Errorf("%w: unknown summary_type %q", ErrInvalidOptions, sel.SummaryType)
	}
	if sel.OutputFormat != "" && !slices.Contains(c.OutputFormats, sel.OutputFormat) {
		return fmt.Errorf("%w: unknown output_format %q", ErrInvalidOptions, sel.OutputFormat)
	}
	if sel.DetailLevel != "" && !slices.Contains(c.DetailLevels, sel.DetailLevel) {
		return fmt.Errorf("%w: unknown detail_level %q", ErrInvalidOptions, sel.DetailLevel)
	}
	if n := utf8.RuneCountInString(sel.CustomPrompt); n > c.MaxCustomPrompt {
		return fmt.Errorf("%w: custom_prompt is %d characters, limit is %d", ErrInvalidOptions, n, c.MaxCustomPrompt)
	}
	return nil
}

// Render produces the instruction a summarization worker would receive.
func (c *Catalog) Render(sel Selection) (string, error) {
	if err := c.Validate(sel); err != nil {
		return "", err
	}
	st, _ := c.Lookup(sel.SummaryType)

	out, err := render(st.Template, sel)
	if err != nil {
		return "", err
	}

	var extras []string
	if sel.DetailLevel != "" {
		extras = append(extras, "Detail level: "+sel.DetailLevel+".")
	}
	if sel.OutputFormat != "" {
		extras = append(extras, "Respond in "+sel.OutputFormat+".")
	}
	if sel.IncludeScreenshots {
		extras = append(extras, "Include screenshots of key moments.")
	}
	if sel.CustomPrompt != "" && st.ID != "custom" {
		extras = append(extras, sel.CustomPrompt)
	}
	if len(extras) > 0 {
		out = strings.TrimSpace(out) + "\n" + strings.Join(extras, "\n")
	}
	return out, nil
}

func render(tmpl string, data any) (string, error) {
	t, err := template.New("prompt").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
