package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"time"

	"crimecast/ml"
	"crimecast/registry"
)

func main() {
	root := flag.String("root", "./mlruns", "artifact root to scan")
	registryURL := flag.String("registry", "", "registry base URL to query (optional)")
	model := flag.String("model", "Crime_Classification_Random_Forest", "registered model name")
	flag.Parse()

	if *registryURL != "" {
		checkRegistry(*registryURL, *model)
	}

	bundles, err := findBundles(*root)
	if err != nil {
		log.Fatalf("failed to scan %s: %v", *root, err)
	}
	if len(bundles) == 0 {
		log.Fatalf("no model bundles under %s", *root)
	}

	fmt.Printf("found %d bundle(s) under %s, newest first:\n", len(bundles), *root)
	for _, b := range bundles {
		forest, err := ml.LoadBundle(b.dir)
		if err != nil {
			fmt.Printf("  %s  failed to load: %v\n", b.dir, err)
			continue
		}
		fmt.Printf("  %s  trees=%d classes=%d modified=%s\n",
			b.dir, len(forest.Trees), forest.NumClasses, b.modTime.Format(time.RFC3339))
	}
}

type bundle struct {
	dir     string
	modTime time.Time
}

func findBundles(root string) ([]bundle, error) {
	var bundles []bundle
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != ml.ManifestName {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		bundles = append(bundles, bundle{dir: filepath.Dir(path), modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(bundles, func(i, j int) bool {
		if !bundles[i].modTime.Equal(bundles[j].modTime) {
			return bundles[i].modTime.After(bundles[j].modTime)
		}
		return bundles[i].dir < bundles[j].dir
	})
	return bundles, nil
}

func checkRegistry(baseURL, model string) {
	client := registry.NewClient(baseURL, 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	source, err := client.LatestSource(ctx, model)
	if err != nil {
		log.Printf("registry lookup failed: %v", err)
		return
	}
	fmt.Printf("registry resolves %s to %s\n", model, source)
}
