package docqa

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const promptsEnv = "PROMPTS_YAML"

//go:embed prompts.yaml
var promptsFS embed.FS

type promptFile struct {
	Answer struct {
		System string `yaml:"system"`
		User   string `yaml:"user"`
	} `yaml:"answer"`
}

type Prompts struct {
	system *template.Template
	user   *template.Template
}

type promptData struct {
	Question string
	Context  string
}

// LoadPrompts reads path, or the embedded defaults when path is empty.
func LoadPrompts(path string) (*Prompts, error) {
	var (
		raw []byte
		err error
	)
	if strings.TrimSpace(path) == "" {
		raw, err = promptsFS.ReadFile("prompts.yaml")
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return ParsePrompts(raw)
}

func LoadPromptsFromEnv() (*Prompts, error) {
	return LoadPrompts(os.Getenv(promptsEnv))
}

func ParsePrompts(raw []byte) (*Prompts, error) {
	var pf promptFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("parse prompts yaml: %w", err)
	}
	if strings.TrimSpace(pf.Answer.System) == "" || strings.TrimSpace(pf.Answer.User) == "" {
		return nil, fmt.Errorf("prompts yaml: answer.system and answer.user are required")
	}
	sys, err := template.New("answer.system").Option("missingkey=error").Parse(pf.Answer.System)
	if err != nil {
		return nil, fmt.Errorf("parse answer.system: %w", err)
	}
	usr, err := template.New("answer.user").Option("missingkey=error").Parse(pf.Answer.User)
	if err != nil {
		return nil, fmt.Errorf("parse answer.user: %w", err)
	}
	return &Prompts{system: sys, user: usr}, nil
}

func (p *Prompts) Render(question, contextText string) (string, string, error) {
	data := promptData{Question: question, Context: contextText}
	var sys, usr bytes.Buffer
	if err := p.system.Execute(&sys, data); err != nil {
		return "", "", fmt.Errorf("render answer.system: %w", err)
	}
	if err := p.user.Execute(&usr, data); err != nil {
		return "", "", fmt.Errorf("render answer.user: %w", err)
	}
	return strings.TrimSpace(sys.String()), strings.TrimSpace(usr.String()), nil
}
