package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/parsers/hcl"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "APTDEC_"

type SourceConf struct {
	Path      string `koanf:"path"`
	ChunkSize int    `koanf:"chunk_size"`
}

type FilterConf struct {
	// Cutoff <= 0 selects the built-in 48 kHz table when the input rate allows it.
	Cutoff          float64 `koanf:"cutoff"`
	TransitionWidth float64 `koanf:"transition_width"`
}

// ResampleConf factors are derived from the input rate when left at 0.
type ResampleConf struct {
	Upsample   int `koanf:"upsample"`
	Downsample int `koanf:"downsample"`
}

type ImageConf struct {
	Path string `koanf:"path"`
}

type PipelineConf struct {
	BufferSize int `koanf:"buffer_size"`
}

type TuiConf struct {
	RefreshMs       int  `koanf:"refresh_ms"`
	EnableLogOutput bool `koanf:"enable_log_output"`
}

type Conf struct {
	Source   SourceConf   `koanf:"source"`
	Filter   FilterConf   `koanf:"filter"`
	Resample ResampleConf `koanf:"resample"`
	Image    ImageConf    `koanf:"image"`
	Pipeline PipelineConf `koanf:"pipeline"`
	Tui      TuiConf      `koanf:"tui"`
}

func Defaults() Conf {
	return Conf{
		Source:   SourceConf{Path: "input.wav", ChunkSize: 4096},
		Image:    ImageConf{Path: "output.png"},
		Pipeline: PipelineConf{BufferSize: 64 * 1024},
		Tui:      TuiConf{RefreshMs: 500, EnableLogOutput: true},
	}
}

// SearchPaths lists the locations tried, in order, when no config file is given.
func SearchPaths() []string {
	paths := []string{"/etc/aptdecoder/config.hcl"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "aptdecoder", "config.hcl"))
	}
	return append(paths, "./config.hcl")
}

func FindConfigPath(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			log.Infof("Found config file: %s", path)
			return path
		}
	}
	log.Info("Config file not found!")
	return ""
}

// Load reads path, or the first file found on SearchPaths when path is empty. If no file can be
// read the APTDEC_ environment variables are used instead. Unset values keep their defaults.
func Load(path string) (Conf, error) {
	if path == "" {
		path = FindConfigPath(SearchPaths())
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), hcl.Parser(true)); err != nil {
		log.Errorf("Could not read config file: %v", err)
		log.Error("Attempting to use environment variables")
		k = koanf.New(".")
		if err := k.Load(env.Provider(".", env.Opt{
			Prefix:        EnvPrefix,
			TransformFunc: envKey,
		}), nil); err != nil {
			return Conf{}, fmt.Errorf("could not read environment: %w", err)
		}
	}

	conf := Defaults()
	if err := k.UnmarshalWithConf("", &conf, koanf.UnmarshalConf{Tag: "koanf", FlatPaths: false}); err != nil {
		return Conf{}, fmt.Errorf("invalid configuration: %w", err)
	}
	conf.applyDefaults()
	return conf, nil
}

// envKey maps APTDEC_IMAGE_PATH to image.path. Only the first underscore separates section
// from key so that APTDEC_SOURCE_CHUNK_SIZE becomes source.chunk_size.
func envKey(k, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)
	log.Debugf("Found config env var: %s=%v", key, v)
	return key, v
}

func (c *Conf) applyDefaults() {
	d := Defaults()
	if c.Source.ChunkSize <= 0 {
		c.Source.ChunkSize = d.Source.ChunkSize
	}
	if c.Image.Path == "" {
		c.Image.Path = d.Image.Path
	}
	if c.Pipeline.BufferSize <= 0 {
		c.Pipeline.BufferSize = d.Pipeline.BufferSize
	}
	if c.Tui.RefreshMs <= 0 {
		c.Tui.RefreshMs = d.Tui.RefreshMs
	}
}
