package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	qhttp "crimecast/http"
	"crimecast/logging"
	"crimecast/mapping"
	"crimecast/ml"
	"crimecast/monitoring"
	"crimecast/predict"
	"crimecast/registry"
)

type Config struct {
	Http struct {
		Port           int      `yaml:"port"`
		TimeoutSeconds int      `yaml:"timeout_seconds"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"http"`
	Log   logging.Config `yaml:"log"`
	Model struct {
		Name                   string `yaml:"name"`
		RegistryURL            string `yaml:"registry_url"`
		RegistryTimeoutSeconds int    `yaml:"registry_timeout_seconds"`
		ArtifactRoot           string `yaml:"artifact_root"`
	} `yaml:"model"`
	Mappings struct {
		Neighborhoods string `yaml:"neighborhoods"`
		CrimeTypes    string `yaml:"crime_types"`
	} `yaml:"mappings"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
}

func main() {
	// 1. Load config; a missing or broken file falls back to defaults.
	config, configErr := loadConfig("config.yaml")

	logger := logging.New(config.Log)
	defer logger.Sync()

	if configErr != nil {
		logger.Warn("config not loaded, using defaults", zap.Error(configErr))
	}

	// 2. Load the categorical mappings. Either may be missing; the service
	// still starts and reports what it can.
	bairros, err := mapping.LoadNeighborhoods(config.Mappings.Neighborhoods)
	if err != nil {
		logger.Warn("neighborhood mapping unavailable, all bairros will be rejected",
			zap.String("path", config.Mappings.Neighborhoods), zap.Error(err))
		bairros = mapping.NeighborhoodMap{}
	}
	crimeTypes, err := mapping.LoadCrimeTypes(config.Mappings.CrimeTypes)
	if err != nil {
		logger.Warn("crime type mapping unavailable, labels will be synthesized",
			zap.String("path", config.Mappings.CrimeTypes), zap.Error(err))
		crimeTypes = mapping.CrimeTypeMap{}
	}

	// 3. Resolve the model: registry first, local artifact scan second.
	registryClient := registry.NewClient(config.Model.RegistryURL,
		time.Duration(config.Model.RegistryTimeoutSeconds)*time.Second)
	resolver := ml.NewResolver(registryClient, config.Model.ArtifactRoot, logger)
	model := resolver.Resolve(context.Background(), config.Model.Name)
	if model == nil {
		logger.Warn("serving without a model, predictions will return 503",
			zap.String("model", config.Model.Name))
	}

	svc := predict.NewService(model, bairros, crimeTypes,
		config.Model.Name, config.Cache.Size, logger)

	// 4. Start the monitor feed and the HTTP server.
	monitor := monitoring.NewMonitor(logger)
	go monitor.Start()

	serverConfig := qhttp.DefaultServerConfig()
	serverConfig.Port = config.Http.Port
	serverConfig.Timeout = time.Duration(config.Http.TimeoutSeconds) * time.Second
	serverConfig.AllowedOrigins = config.Http.AllowedOrigins

	api := qhttp.NewAPI(svc, monitor, logger)
	server := qhttp.NewServer(serverConfig, api, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 5. Handle graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	monitor.Stop()

	logger.Info("exiting")
}

func defaultConfig() Config {
	var config Config
	config.Http.Port = 8000
	config.Http.TimeoutSeconds = 30
	config.Http.AllowedOrigins = []string{"*"}
	config.Log.Level = "info"
	config.Model.Name = "Crime_Classification_Random_Forest"
	config.Model.RegistryURL = "http://localhost:5000"
	config.Model.RegistryTimeoutSeconds = 5
	config.Model.ArtifactRoot = "./mlruns"
	config.Mappings.Neighborhoods = "data/bairros.json"
	config.Mappings.CrimeTypes = "data/tipos_crime.json"
	config.Cache.Size = 256
	return config
}

// loadConfig reads config.yaml over the defaults. On any error it returns
// the defaults untouched so the caller can keep going.
func loadConfig(path string) (Config, error) {
	config := defaultConfig()

	file, err := os.Open(path)
	if err != nil {
		return defaultConfig(), err
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return defaultConfig(), err
	}

	if config.Http.Port <= 0 {
		config.Http.Port = 8000
	}
	if config.Http.TimeoutSeconds <= 0 {
		config.Http.TimeoutSeconds = 30
	}
	if len(config.Http.AllowedOrigins) == 0 {
		config.Http.AllowedOrigins = []string{"*"}
	}
	return config, nil
}
