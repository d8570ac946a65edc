package tenantconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/p-blackswan/safety-engine/internal/models"
)

// DirSource reads seed overrides from a directory laid out as
// <dir>/<tenant>/<module>.yaml. Environment references are expanded before
// parsing and each document is handed on as JSON.
type DirSource struct {
	Dir    string
	Logger zerolog.Logger
}

// LoadOverrides implements Source. A file that is not valid YAML or names an
// unknown module is logged and skipped; the rest of the tree still loads.
func (d DirSource) LoadOverrides(_ context.Context) (map[string]map[models.ModuleKey][]byte, error) {
	return LoadDir(d.Dir, d.Logger)
}

// LoadDir reads every tenant directory under dir.
func LoadDir(dir string, logger zerolog.Logger) (map[string]map[models.ModuleKey][]byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("overrides: read %s: %w", dir, err)
	}
	log := logger.With().Str("component", "tenantconfig.loader").Logger()

	out := make(map[string]map[models.ModuleKey][]byte)
	for _, tenant := range entries {
		if !tenant.IsDir() || strings.HasPrefix(tenant.Name(), ".") {
			continue
		}
		tdir := filepath.Join(dir, tenant.Name())
		files, err := os.ReadDir(tdir)
		if err != nil {
			return nil, fmt.Errorf("overrides: read %s: %w", tdir, err)
		}
		for _, f := range files {
			ext := filepath.Ext(f.Name())
			if f.IsDir() || (ext != ".yaml" && ext != ".yml") {
				continue
			}
			path := filepath.Join(tdir, f.Name())
			module, err := models.ParseModule(strings.TrimSuffix(f.Name(), ext))
			if err != nil {
				log.Warn().Str("path", path).Msg("skipping override for unknown module")
				continue
			}
			doc, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("overrides: read %s: %w", path, err)
			}
			raw, err := YAMLToJSON(doc)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("skipping unparsable override")
				continue
			}
			if out[tenant.Name()] == nil {
				out[tenant.Name()] = make(map[models.ModuleKey][]byte)
			}
			out[tenant.Name()][module] = raw
		}
	}
	return out, nil
}

// YAMLToJSON expands ${VAR} and $VAR references in doc, parses it as YAML
// and re-encodes it as JSON. Missing variables expand to an empty string.
func YAMLToJSON(doc []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(doc))), &v); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if v == nil {
		v = map[string]any{}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return raw, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimPrefix(match, "${")
		name = strings.TrimSuffix(name, "}")
		name = strings.TrimPrefix(name, "$")
		return os.Getenv(name)
	})
}
