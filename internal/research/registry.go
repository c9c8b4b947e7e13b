package research

import (
	"embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/profiles.yaml
var profilesYAML embed.FS

// Registry holds the configured research profiles.
type Registry struct {
	Profiles []ProfileConfig `yaml:"profiles"`
}

// ProfileConfig names a site, its competitors, and the parameters for one
// repeatable research run.
type ProfileConfig struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	SiteDomain string   `yaml:"site_domain"`
	Competitor []string `yaml:"competitors"`
	Language   string   `yaml:"language,omitempty"` // Default: en
	Country    string   `yaml:"country,omitempty"`  // Default: US

	TargetClusters int `yaml:"target_clusters,omitempty"` // Default: 8
	// MinGapVolume is a pointer so an explicit 0 (no gap filtering) survives
	// the defaulting pass; only an absent field gets the default of 50.
	MinGapVolume  *int `yaml:"min_gap_volume,omitempty"`
	MaxGapResults int  `yaml:"max_gap_results,omitempty"` // Default: 100
	KeywordLimit  int  `yaml:"keyword_limit,omitempty"`   // Per-domain provider fetch cap, default: 500

	Similarity string `yaml:"similarity,omitempty"` // "lexical" (default), "llm", "embedding"
}

// LoadRegistry reads the embedded profiles.yaml, falling back to the given
// filesystem path for local development. Environment variables inside the
// YAML (e.g. ${SITE_DOMAIN}) are expanded before parsing.
func LoadRegistry(path string) (*Registry, error) {
	data, err := profilesYAML.ReadFile("config/profiles.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	for i := range reg.Profiles {
		applyProfileDefaults(&reg.Profiles[i])
	}

	return &reg, nil
}

// Get returns the profile with the given id.
func (r *Registry) Get(id string) (ProfileConfig, error) {
	for _, p := range r.Profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return ProfileConfig{}, fmt.Errorf("research profile not found: %s", id)
}

func applyProfileDefaults(p *ProfileConfig) {
	if p.Language == "" {
		p.Language = defaultLanguage
	}
	if p.Country == "" {
		p.Country = defaultCountry
	}
	if p.TargetClusters <= 0 {
		p.TargetClusters = 8
	}
	if p.MinGapVolume == nil {
		v := 50
		p.MinGapVolume = &v
	} else if *p.MinGapVolume < 0 {
		*p.MinGapVolume = 0
	}
	if p.MaxGapResults <= 0 {
		p.MaxGapResults = 100
	}
	if p.KeywordLimit <= 0 {
		p.KeywordLimit = 500
	}
	if p.Similarity == "" {
		p.Similarity = "lexical"
	}
}
