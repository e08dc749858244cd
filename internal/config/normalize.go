package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAnalysis()
	c.normalizeBands()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if value, ok := os.LookupEnv("SETBREAK_DB"); ok && strings.TrimSpace(value) != "" {
		c.Paths.Database = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.Database) == "" {
		c.Paths.Database = defaultDatabasePath
	}
	if c.Paths.Database, err = expandPath(c.Paths.Database); err != nil {
		return fmt.Errorf("paths.database: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = os.TempDir()
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeAnalysis() {
	if value, ok := os.LookupEnv("SETBREAK_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Analysis.FFmpegPath = strings.TrimSpace(value)
	}
	c.Analysis.FFmpegPath = strings.TrimSpace(c.Analysis.FFmpegPath)
	if c.Analysis.FFmpegPath == "" {
		c.Analysis.FFmpegPath = defaultFFmpegPath
	}
	if c.Analysis.Workers < 0 {
		c.Analysis.Workers = 0
	}
	if c.Analysis.ChunkMultiplier <= 0 {
		c.Analysis.ChunkMultiplier = defaultChunkMultiplier
	}
	if c.Analysis.FFmpegTimeoutSeconds <= 0 {
		c.Analysis.FFmpegTimeoutSeconds = defaultFFmpegTimeoutSeconds
	}
}

func (c *Config) normalizeBands() {
	bands := make([]Band, 0, len(c.Bands))
	for _, band := range c.Bands {
		band.Name = strings.TrimSpace(band.Name)
		if band.Name == "" {
			continue
		}
		aliases := make([]string, 0, len(band.Aliases))
		for _, alias := range band.Aliases {
			if alias = strings.ToLower(strings.TrimSpace(alias)); alias != "" {
				aliases = append(aliases, alias)
			}
		}
		band.Aliases = aliases
		bands = append(bands, band)
	}
	c.Bands = bands
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
