package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// ManifestName is the file that marks a directory as a model bundle.
const ManifestName = "MLmodel"

// FlavorName is the only manifest flavor this service can load: a forest
// serialized to JSON by the training pipeline's export step. Bundles that
// only carry foreign flavors (python_function, sklearn) are not loadable.
const FlavorName = "forest_json"

type manifest struct {
	Flavors map[string]flavorSpec `yaml:"flavors"`
}

type flavorSpec struct {
	Data string `yaml:"data"`
}

// LoadBundle loads the classifier from an artifact bundle directory. The
// bundle must contain an MLmodel manifest declaring a forest_json flavor
// whose data file sits next to the manifest.
func LoadBundle(dir string) (*RandomForest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	flavor, ok := m.Flavors[FlavorName]
	if !ok {
		return nil, fmt.Errorf("bundle has no %s flavor", FlavorName)
	}

	dataFile := flavor.Data
	if dataFile == "" {
		dataFile = "model.json"
	}
	payload, err := os.ReadFile(filepath.Join(dir, dataFile))
	if err != nil {
		return nil, fmt.Errorf("read model data: %w", err)
	}

	var forest RandomForest
	if err := json.Unmarshal(payload, &forest); err != nil {
		return nil, fmt.Errorf("parse model data: %w", err)
	}
	if len(forest.Trees) == 0 {
		return nil, errors.New("model data has no trees")
	}
	if forest.NumClasses <= 0 {
		return nil, errors.New("model data has no classes")
	}
	return &forest, nil
}
