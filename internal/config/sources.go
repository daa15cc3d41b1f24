package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ActorSource maps a crawler actor ID to the source tag of the job board it scrapes.
type ActorSource struct {
	ActorID string `yaml:"actor_id"`
	Source  string `yaml:"source"`
}

type rawSourcesFile struct {
	Sources []ActorSource `yaml:"sources"`
}

// LoadSources reads the optional SOURCES_FILE and returns actor ID → source tag.
// An empty path yields an empty mapping. Environment variables in the file are
// expanded before parsing.
func LoadSources(path string) (map[string]string, error) {
	out := map[string]string{}
	if strings.TrimSpace(path) == "" {
		return out, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var raw rawSourcesFile
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	for i, s := range raw.Sources {
		actor := strings.TrimSpace(s.ActorID)
		tag := strings.ToLower(strings.TrimSpace(s.Source))
		if actor == "" || tag == "" {
			return nil, fmt.Errorf("sources[%d]: actor_id and source are required", i)
		}
		if prev, dup := out[actor]; dup && prev != tag {
			return nil, errors.New("sources: actor " + actor + " mapped to both " + prev + " and " + tag)
		}
		out[actor] = tag
	}
	return out, nil
}
