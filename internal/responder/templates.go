package responder

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

//go:embed templates/*.yaml
var templateFS embed.FS

// RecommendationsPerDocument is the number of recommendations every document
// bundle carries.
const RecommendationsPerDocument = 5

// Bundle is one canned answer. Match holds token stems that select it.
type Bundle struct {
	Name       string             `yaml:"name"`
	Match      []string           `yaml:"match"`
	Answer     string             `yaml:"answer"`
	References []models.Reference `yaml:"references"`
	CaseLaws   []models.CaseLaw   `yaml:"case_laws"`
}

// Section is the ordered bundle list for one query type.
type Section struct {
	Bundles  []Bundle `yaml:"bundles"`
	Fallback Bundle   `yaml:"fallback"`
}

type DocumentBundle struct {
	Analysis        string   `yaml:"analysis"`
	Recommendations []string `yaml:"recommendations"`

	tmpl *template.Template
}

// render fills the analysis text with fields of d.
func (b DocumentBundle) render(d *models.Document) (string, error) {
	var buf bytes.Buffer
	err := b.tmpl.Execute(&buf, struct {
		Title       string
		Description string
		FileName    string
		Pages       int
	}{d.Title, d.Description, d.File.Name, d.File.Pages})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Material is a statute, regulation or article returned by topic research.
type Material struct {
	Terms       []string `yaml:"terms" json:"-"`
	Type        string   `yaml:"type" json:"type"`
	Title       string   `yaml:"title" json:"title"`
	Chapter     string   `yaml:"chapter" json:"chapter,omitempty"`
	Year        int      `yaml:"year" json:"year,omitempty"`
	Author      string   `yaml:"author" json:"author,omitempty"`
	Date        string   `yaml:"date" json:"date,omitempty"`
	URL         string   `yaml:"url" json:"url"`
	Description string   `yaml:"description" json:"description"`
	Relevance   float64  `yaml:"relevance" json:"relevance"`
}

type MaterialSet struct {
	Entries  []Material `yaml:"entries"`
	Fallback []Material `yaml:"fallback"`
}

type Source struct {
	Key  string `yaml:"key" json:"key"`
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

type StatuteSection struct {
	Related []string `yaml:"related"`
	Content string   `yaml:"content"`
}

type Statute struct {
	Match    string                    `yaml:"match"`
	FullName string                    `yaml:"full_name"`
	URL      string                    `yaml:"url"`
	Summary  string                    `yaml:"summary"`
	Sections map[string]StatuteSection `yaml:"sections"`
}

type ResearchTable struct {
	Sources       []Source         `yaml:"sources"`
	KenyaLaw      MaterialSet      `yaml:"kenya_law"`
	Judiciary     MaterialSet      `yaml:"judiciary"`
	Statutes      []Statute        `yaml:"statutes"`
	ReportedCases []models.CaseLaw `yaml:"reported_cases"`
}

// CaseIndex maps category -> keyword -> decisions.
type CaseIndex map[string]map[string][]models.CaseLaw

// Templates is the full set of canned content the responders draw from.
type Templates struct {
	Reasoning map[models.QueryType]Section
	Documents map[string]DocumentBundle
	Research  ResearchTable
	Cases     CaseIndex
}

// LoadTemplates parses the embedded tables and checks they are complete.
func LoadTemplates() (*Templates, error) {
	t := &Templates{}
	for name, dst := range map[string]any{
		"reasoning.yaml": &t.Reasoning,
		"documents.yaml": &t.Documents,
		"research.yaml":  &t.Research,
		"caselaw.yaml":   &t.Cases,
	} {
		b, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, dst); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
	}

	for _, qt := range []models.QueryType{
		models.QueryLegalDefinition, models.QueryCaseLaw,
		models.QueryProceduralGuidance, models.QueryGeneral,
	} {
		s, ok := t.Reasoning[qt]
		if !ok || s.Fallback.Answer == "" {
			return nil, fmt.Errorf("reasoning.yaml: %s needs a fallback answer", qt)
		}
	}

	if _, ok := t.Documents[genericDocument]; !ok {
		return nil, fmt.Errorf("documents.yaml: missing %s bundle", genericDocument)
	}
	for name, b := range t.Documents {
		if len(b.Recommendations) != RecommendationsPerDocument {
			return nil, fmt.Errorf("documents.yaml: %s has %d recommendations, want %d",
				name, len(b.Recommendations), RecommendationsPerDocument)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(b.Analysis)
		if err != nil {
			return nil, fmt.Errorf("documents.yaml: %s: %w", name, err)
		}
		b.tmpl = tmpl
		t.Documents[name] = b
	}
	return t, nil
}
