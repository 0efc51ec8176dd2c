package scorer

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/suburb-insights/internal/config"
)

// Profile is a named weighting preset.
type Profile struct {
	Name           string             `yaml:"-" json:"name"`
	Description    string             `yaml:"description" json:"description,omitempty"`
	Weights        map[string]float64 `yaml:"weights" json:"weights"`
	MissingPolicy  string             `yaml:"missing_policy,omitempty" json:"missing_policy,omitempty"`
	MissingDefault *float64           `yaml:"missing_default,omitempty" json:"missing_default,omitempty"`
}

// Apply overlays the profile on c. The profile's weights replace the
// configured ones; policy fields are replaced only when the profile sets them.
func (p Profile) Apply(c config.ScoringConfig) config.ScoringConfig {
	out := c
	out.Weights = make(map[string]float64, len(p.Weights))
	for k, v := range p.Weights {
		out.Weights[k] = v
	}
	if p.MissingPolicy != "" {
		out.MissingPolicy = p.MissingPolicy
	}
	if p.MissingDefault != nil {
		out.MissingDefault = *p.MissingDefault
	}
	out.Profile = p.Name
	return out
}

// BuiltinProfiles returns the presets available without a profile file.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"balanced": {
			Name:        "balanced",
			Description: "default factor weights",
			Weights:     DefaultScoringConfig().Weights,
		},
		"investor": {
			Name:        "investor",
			Description: "yield and vacancy first",
			Weights: map[string]float64{
				"gross_yield":        0.40,
				"vacancy_rate":       0.25,
				"ownership_pct":      0.05,
				"price_momentum_qoq": 0.10,
				"irsad_rank":         0.10,
				"distance_cbd_km":    0.10,
				"monthly_repayment":  0,
			},
		},
		"owner_occupier": {
			Name:        "owner_occupier",
			Description: "affordability, advantage and settled neighbourhoods",
			Weights: map[string]float64{
				"gross_yield":        0,
				"vacancy_rate":       0.05,
				"ownership_pct":      0.25,
				"price_momentum_qoq": 0.10,
				"irsad_rank":         0.25,
				"distance_cbd_km":    0.15,
				"monthly_repayment":  0.20,
			},
		},
	}
}

// LoadProfiles reads named profiles from a YAML file with a top-level
// "profiles" map. Each profile is validated.
func LoadProfiles(path string) (map[string]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read profiles %s", path)
	}

	var wrapper struct {
		Profiles map[string]Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "scorer: parse profiles")
	}

	out := make(map[string]Profile, len(wrapper.Profiles))
	for name, p := range wrapper.Profiles {
		p.Name = name
		if err := ValidateScoring(p.Apply(DefaultScoringConfig())); err != nil {
			return nil, eris.Wrapf(err, "scorer: profile %s", name)
		}
		out[name] = p
	}
	return out, nil
}

// ProfileNames returns the sorted keys of a profile set.
func ProfileNames(profiles map[string]Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveProfile applies c.Profile, looked up first in the file at
// c.ProfilePath and then among the builtin profiles. An empty profile
// name returns c unchanged.
func ResolveProfile(c config.ScoringConfig) (config.ScoringConfig, error) {
	if c.Profile == "" {
		return c, nil
	}
	if c.ProfilePath != "" {
		profiles, err := LoadProfiles(c.ProfilePath)
		if err != nil {
			return c, err
		}
		if p, ok := profiles[c.Profile]; ok {
			return p.Apply(c), nil
		}
	}
	if p, ok := BuiltinProfiles()[c.Profile]; ok {
		return p.Apply(c), nil
	}
	return c, eris.Errorf("scorer: unknown profile %q", c.Profile)
}
