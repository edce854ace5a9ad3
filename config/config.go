package config

import (
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type OutputKind string

const (
	OutputTable OutputKind = "table"
	OutputJSON  OutputKind = "json"
)

type OptimisationLevel string

const (
	OptDebug   OptimisationLevel = "debug"
	OptRelease OptimisationLevel = "release"
)

// Settings is the read-only configuration shared by a comparison run.
type Settings struct {
	// Path to the compiler repository.
	Repository string

	// The optimisation level the compiler builds are compiled with.
	OptimisationLevel OptimisationLevel

	OutputKind OutputKind

	// Directory holding staged executables and per-case outputs.
	TempDir string

	// Minimum compiler version expected to support the --configure
	// protocol. Older builds only draw a warning.
	MinCompilerVersion string
}

// Load initializes viper from an optional config file and the environment.
// Flags registered by the CLI override anything set here.
func Load(logger *slog.Logger, cfgFile string) {
	// explicit .env loading, missing files are fine
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded environment from .env")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("hashbench")
	}

	viper.SetEnvPrefix("HASHBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("repository", ".")
	viper.SetDefault("optimisation_level", string(OptRelease))
	viper.SetDefault("output", string(OutputTable))
	viper.SetDefault("temp_dir", "tmp")
	viper.SetDefault("min_compiler_version", "0.1.0")

	if err := viper.ReadInConfig(); err == nil {
		logger.Debug("using config file", slog.String("path", viper.ConfigFileUsed()))
	}
}

// FromViper materializes the settings after Load and flag binding.
func FromViper() *Settings {
	return &Settings{
		Repository:         viper.GetString("repository"),
		OptimisationLevel:  OptimisationLevel(viper.GetString("optimisation_level")),
		OutputKind:         OutputKind(viper.GetString("output")),
		TempDir:            viper.GetString("temp_dir"),
		MinCompilerVersion: viper.GetString("min_compiler_version"),
	}
}
