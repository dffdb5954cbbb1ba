package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profiles maps a profile name ("strict", "lenient", ...) to an alternate set
// of classification thresholds. Loaded from a standalone YAML file so
// reviewers can rerun the matrix under different cutoffs without touching the
// main config.
type Profiles map[string]ClassifyConfig

// LoadProfiles reads classification threshold profiles from a YAML file.
func LoadProfiles(path string) (Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read profiles %s", path)
	}

	// The YAML has a top-level "profiles" key.
	var wrapper struct {
		Profiles Profiles `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "config: parse profiles")
	}

	for name, p := range wrapper.Profiles {
		if p.MatchThreshold <= p.WeakThreshold {
			return nil, eris.Errorf("config: profile %q: match threshold %.1f must exceed weak threshold %.1f",
				name, p.MatchThreshold, p.WeakThreshold)
		}
	}

	return wrapper.Profiles, nil
}
