// Package catalog holds the role-keyed question banks and default rubrics.
// A Catalog is built once at startup and never mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"

	"github.com/spigell/hh-interviewer/internal/interview"
)

//go:embed roles.yaml
var embeddedRoles []byte

// Time limits in seconds.
const (
	IntroductionTimeLimit = 360
	BehavioralTimeLimit   = 120
)

var technicalTimeLimits = map[interview.Level]float64{
	interview.LevelBasic:        90,
	interview.LevelIntermediate: 105,
	interview.LevelExpert:       120,
}

const minBehavioral = 2

var levels = []interview.Level{interview.LevelBasic, interview.LevelIntermediate, interview.LevelExpert}

// Entry is one bank question.
type Entry struct {
	Question   string            `yaml:"question"`
	SkillFocus string            `yaml:"skill_focus"`
	Rubric     *interview.Rubric `yaml:"rubric"`
}

// Role is the bank of one role key.
type Role struct {
	Key           string                      `yaml:"-"`
	Title         string                      `yaml:"title"`
	Aliases       []string                    `yaml:"aliases"`
	DefaultRubric interview.Rubric            `yaml:"default_rubric"`
	Technical     map[interview.Level][]Entry `yaml:"technical"`
	Behavioral    []Entry                     `yaml:"behavioral"`
}

type document struct {
	Introduction string          `yaml:"introduction"`
	FallbackRole string          `yaml:"fallback_role"`
	Roles        map[string]Role `yaml:"roles"`
}

// Catalog resolves job titles to roles and serves their question banks.
type Catalog struct {
	introduction string
	fallback     string
	roles        map[string]*Role
	aliases      map[string]string
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(embeddedRoles)
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing catalog yaml: %w", err)
	}

	if err := validate(&doc); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	c := &Catalog{
		introduction: strings.TrimSpace(doc.Introduction),
		fallback:     NormalizeTitle(doc.FallbackRole),
		roles:        make(map[string]*Role, len(doc.Roles)),
		aliases:      make(map[string]string),
	}

	for key, role := range doc.Roles {
		key = NormalizeTitle(key)
		role.Key = key
		c.roles[key] = &role
		for _, alias := range role.Aliases {
			c.aliases[NormalizeTitle(alias)] = key
		}
	}

	return c, nil
}

func validate(doc *document) error {
	if strings.TrimSpace(doc.Introduction) == "" {
		return errors.New("introduction must be set")
	}
	if len(doc.Roles) == 0 {
		return errors.New("at least one role is required")
	}
	if _, ok := doc.Roles[strings.TrimSpace(doc.FallbackRole)]; !ok {
		return fmt.Errorf("fallback role %q is not defined", doc.FallbackRole)
	}

	for key, role := range doc.Roles {
		for _, level := range levels {
			if len(role.Technical[level]) == 0 {
				return fmt.Errorf("role %q has no %s technical questions", key, level)
			}
			for i, e := range role.Technical[level] {
				if strings.TrimSpace(e.Question) == "" {
					return fmt.Errorf("role %q %s question %d is empty", key, level, i)
				}
			}
		}
		if len(role.Behavioral) < minBehavioral {
			return fmt.Errorf("role %q needs at least %d behavioral questions", key, minBehavioral)
		}
	}

	return nil
}

// NormalizeTitle lowercases a job title and joins its words with underscores.
func NormalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	title = strings.NewReplacer("-", " ", "/", " ", ".", " ").Replace(title)
	return strings.Join(strings.Fields(title), "_")
}

var seniorityPrefixes = []string{"junior_", "middle_", "mid_level_", "senior_", "lead_", "principal_", "staff_"}

// RoleKey maps a job title to a role key, falling back to the universal role.
func (c *Catalog) RoleKey(jobTitle string) string {
	key := NormalizeTitle(jobTitle)
	for _, prefix := range seniorityPrefixes {
		key = strings.TrimPrefix(key, prefix)
	}

	if _, ok := c.roles[key]; ok {
		return key
	}
	if role, ok := c.aliases[key]; ok {
		return role
	}
	return c.fallback
}

// Role returns the role for key or the fallback role.
func (c *Catalog) Role(key string) *Role {
	if role, ok := c.roles[key]; ok {
		return role
	}
	return c.roles[c.fallback]
}

// Technical returns the technical bank of a role for a level.
func (c *Catalog) Technical(key string, level interview.Level) []Entry {
	return c.Role(key).Technical[level]
}

// Behavioral returns the behavioral bank of a role.
func (c *Catalog) Behavioral(key string) []Entry {
	return c.Role(key).Behavioral
}

// Rubric returns the entry's own rubric or, when absent, the role default,
// or the universal default as a last resort.
func (c *Catalog) Rubric(key string, e Entry) interview.Rubric {
	if e.Rubric != nil && !e.Rubric.IsZero() {
		return e.Rubric.Clone()
	}
	if r := c.Role(key).DefaultRubric; !r.IsZero() {
		return r.Clone()
	}
	return c.roles[c.fallback].DefaultRubric.Clone()
}

// DefaultRubric is the rubric for questions found outside the bank.
func (c *Catalog) DefaultRubric(key string) interview.Rubric {
	return c.Rubric(key, Entry{})
}

// Questions returns the question texts of entries.
func Questions(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Question
	}
	return out
}

// Introduction renders the opening question.
func (c *Catalog) Introduction(name, jobTitle string) string {
	return strings.NewReplacer(
		"{{NAME}}", strings.TrimSpace(name),
		"{{JOB_TITLE}}", strings.TrimSpace(jobTitle),
	).Replace(c.introduction)
}

// TimeLimit returns the answer time limit in seconds for a stage and level.
func TimeLimit(stage interview.Stage, level interview.Level) float64 {
	switch stage {
	case interview.StageIntroduction:
		return IntroductionTimeLimit
	case interview.StageBehavioral:
		return BehavioralTimeLimit
	}
	if limit, ok := technicalTimeLimits[level]; ok {
		return limit
	}
	return technicalTimeLimits[interview.LevelIntermediate]
}
