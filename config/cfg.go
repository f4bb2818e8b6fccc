// Package config defines program configuration, its defaults and processing.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	DemuxConfig struct {
		Format           string      `yaml:"format" validate:"omitempty,oneof=auto ass ssa ttml dfxp xml"`
		Charset          string      `yaml:"charset"`
		MaxLineBytes     int         `yaml:"max_line_bytes" validate:"gte=0"`
		MaxHeaderBytes   int         `yaml:"max_header_bytes" validate:"gte=0"`
		MaxDocumentBytes int         `yaml:"max_document_bytes" validate:"gte=0"`
		MaxPackets       int         `yaml:"max_packets" validate:"gte=0"`
		KeepDuplicates   bool        `yaml:"keep_duplicates"`
		Order            PacketOrder `yaml:"order" validate:"oneof=0 1"`
	}

	DecodeConfig struct {
		Rate             int64 `yaml:"rate" validate:"min=1"`
		FrameRate        int64 `yaml:"frame_rate" validate:"min=1"`
		MaxStyleDepth    int   `yaml:"max_style_depth" validate:"gte=0"`
		ResetReadOrder   bool  `yaml:"reset_read_order"`
		FailOnDiagnostic bool  `yaml:"fail_on_diagnostic"`
	}

	ScriptConfig struct {
		Title    string `yaml:"title"`
		PlayResX int    `yaml:"play_res_x" validate:"gte=0"`
		PlayResY int    `yaml:"play_res_y" validate:"gte=0"`
	}

	OutputConfig struct {
		Format                OutputFmt    `yaml:"format" validate:"gte=0"`
		OutputNameTemplate    string       `yaml:"output_name_template"`
		FileNameTransliterate bool         `yaml:"file_name_transliterate"`
		Script                ScriptConfig `yaml:"script"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Demux     DemuxConfig    `yaml:"demux"`
		Decode    DecodeConfig   `yaml:"decode"`
		Output    OutputConfig   `yaml:"output"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	OutputNameTemplateFieldName TemplateFieldName = "output_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
)

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to
// provide sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
