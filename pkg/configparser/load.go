package configparser

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrNoFilePath = errors.New("no file path provided")

// LoadAndParseYaml loads the yaml file (and an optional .env next to the process) into the
// environment, then fills cfg from env/default struct tags.
func LoadAndParseYaml(filepath string, cfg any) error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not load .env: %w", err)
	}

	if filepath != "" {
		if err := LoadYamlFile(filepath); err != nil {
			return err
		}
	}

	return ParseEnv(cfg)
}

// LoadYamlFile reads a YAML file and loads variables into the environment.
// Nested keys are joined with '_' and upper-cased: database.host -> DATABASE_HOST.
// Variables already present in the environment are never overwritten.
func LoadYamlFile(filepath string) error {
	if filepath == "" {
		return ErrNoFilePath
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("could not open YAML file: %w", err)
	}

	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("error reading YAML file: %w", err)
	}

	flat := make(map[string]string)
	flatten("", root, flat)

	for key, value := range flat {
		if _, ok := os.LookupEnv(key); ok {
			continue
		}
		if err := os.Setenv(key, expand(value)); err != nil {
			return fmt.Errorf("could not set env var %s: %w", key, err)
		}
	}

	return nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}

		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case nil:
			// "key:" with no value carries nothing
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// expand handles the ${VAR:-default} substitution syntax.
func expand(value string) string {
	if !strings.HasPrefix(value, "${") || !strings.HasSuffix(value, "}") {
		return value
	}

	inner := value[2 : len(value)-1]
	name, def, found := strings.Cut(inner, ":-")
	if envValue := os.Getenv(strings.TrimSpace(name)); envValue != "" {
		return envValue
	}
	if found {
		return strings.TrimSpace(def)
	}
	return ""
}

// lookup returns env value or the tag default.
func lookup(env, def string) (string, bool) {
	if env != "" {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			return v, true
		}
	}
	if def != "" {
		return def, true
	}
	return "", false
}

// parseBool is strconv.ParseBool that also accepts yes/no.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}
