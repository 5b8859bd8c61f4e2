package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"leaderboard/internal/core"
)

// categoriesFile is the YAML layout of CATEGORIES_FILE:
//
//	categories:
//	  - name: Hands On Labs
//	    points: 50
type categoriesFile struct {
	Categories []core.CategoryPoints `yaml:"categories"`
}

// LoadRegistry returns the scoring registry. An empty CategoriesFile
// selects the built-in table.
func (c *Config) LoadRegistry() (*core.Registry, error) {
	if strings.TrimSpace(c.CategoriesFile) == "" {
		return core.DefaultRegistry(), nil
	}
	return LoadCategories(c.CategoriesFile)
}

// LoadCategories reads a category table from a YAML file.
func LoadCategories(path string) (*core.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var def categoriesFile
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode categories file: %w", err)
	}
	if len(def.Categories) == 0 {
		return nil, fmt.Errorf("categories file %s defines no categories", path)
	}

	reg, err := core.NewRegistry(def.Categories)
	if err != nil {
		return nil, fmt.Errorf("categories file %s: %w", path, err)
	}
	return reg, nil
}
