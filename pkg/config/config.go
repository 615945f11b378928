// Package config loads and validates batch run configuration for the CLI.
// The library packages take explicit arguments; nothing in here leaks into
// the core.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// PourPoint is one delineation request.
type PourPoint struct {
	X float64 `yaml:"x" validate:"required"`
	Y float64 `yaml:"y" validate:"required"`
}

// InputConfig selects and parameterizes the feature source.
type InputConfig struct {
	Source string `yaml:"source" validate:"required,oneof=geojson postgis"`

	// GeoJSON source
	PointsPath string `yaml:"points_path" validate:"required_if=Source geojson"`
	LinesPath  string `yaml:"lines_path" validate:"required_if=Source geojson"`

	// PostGIS source
	DatabaseURL  string `yaml:"database_url" validate:"required_if=Source postgis"`
	PointsTable  string `yaml:"points_table" validate:"required_if=Source postgis"`
	LinesTable   string `yaml:"lines_table" validate:"required_if=Source postgis"`
	GeomColumn   string `yaml:"geom_column"`
	IDColumn     string `yaml:"id_column"`
	KindColumn   string `yaml:"kind_column"`
	SinkColumn   string `yaml:"sink_column"`
	SourceColumn string `yaml:"source_column"`

	// GeoJSON attribute names
	IDField     string `yaml:"id_field"`
	KindField   string `yaml:"kind_field"`
	SinkField   string `yaml:"sink_field"`
	SourceField string `yaml:"source_field"`
}

// NetworkConfig parameterizes graph construction and direction resolution.
type NetworkConfig struct {
	SnapTolerance float64  `yaml:"snap_tolerance" validate:"gte=0"`
	SnapSearch    float64  `yaml:"snap_search" validate:"gte=0"` // 0 disables point snapping
	SinkKinds     []string `yaml:"sink_kinds"`
	SourceKinds   []string `yaml:"source_kinds"`
	Method        string   `yaml:"method" validate:"required,oneof=from_sources vertex_order vertex_order_r"`
}

// TerrainConfig locates the elevation model and its flow model cache.
type TerrainConfig struct {
	DEMPath   string `yaml:"dem_path" validate:"required"`
	CachePath string `yaml:"cache_path"`
}

// DelineationConfig holds the delineation requests.
type DelineationConfig struct {
	AccThreshold int         `yaml:"acc_threshold" validate:"required,gt=0"`
	PourPoints   []PourPoint `yaml:"pour_points" validate:"required,min=1,dive"`
}

// OutputConfig selects run outputs. Empty paths disable the corresponding
// output.
type OutputConfig struct {
	CatchmentDir    string `yaml:"catchment_dir"`
	SVGPath         string `yaml:"svg_path"`
	LayoutPath      string `yaml:"layout_path"`
	MetricsTextfile string `yaml:"metrics_textfile"`
	UTMZone         int    `yaml:"utm_zone" validate:"gte=0,lte=60"`
	Southern        bool   `yaml:"southern"`
}

// Config is a full batch run configuration.
type Config struct {
	Input       InputConfig       `yaml:"input"`
	Network     NetworkConfig     `yaml:"network"`
	Terrain     TerrainConfig     `yaml:"terrain"`
	Delineation DelineationConfig `yaml:"delineation"`
	Output      OutputConfig      `yaml:"output"`
	LogLevel    string            `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// Parse unmarshals and validates a YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, formatValidationError(err)
	}
	return &cfg, nil
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// formatValidationError flattens validator errors into one readable message.
func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag())
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
