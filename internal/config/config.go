package config

import (
	"fmt"
	"image/color"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Conflict policies for already-existing output paths.
const (
	ConflictRename    = "rename"
	ConflictOverwrite = "overwrite"
	ConflictSkip      = "skip"
)

// Anti-dedup intensity tiers, strictly additive from none to heavy.
const (
	TierNone   = "none"
	TierLight  = "light"
	TierMedium = "medium"
	TierHeavy  = "heavy"
)

// Fit modes for the stylizer.
const (
	ModeContain = "contain"
	ModeCover   = "cover"
)

// Config holds the full configuration for one batch job.
type Config struct {
	Sources    []string   `mapstructure:"sources"`
	Output     Output     `mapstructure:"output"`
	Styling    Styling    `mapstructure:"styling"`
	AntiDedup  AntiDedup  `mapstructure:"anti_dedup"`
	Validation Validation `mapstructure:"validation"`
	Publish    Publish    `mapstructure:"publish"`
	Events     Events     `mapstructure:"events"`
	Retry      Retry      `mapstructure:"retry"`

	Recursive       bool     `mapstructure:"recursive"`
	IncludePatterns []string `mapstructure:"include_patterns"`
	ExcludePatterns []string `mapstructure:"exclude_patterns"`
	Workers         int      `mapstructure:"workers"`
	Seed            *int64   `mapstructure:"seed"` // nil means randomize per run
}

// Output holds the output directory, conflict policy and report settings.
type Output struct {
	Dir            string `mapstructure:"dir"`
	ConflictPolicy string `mapstructure:"conflict_policy"` // rename | overwrite | skip
	Flatten        bool   `mapstructure:"flatten"`         // drop source folder structure
	ReportFilename string `mapstructure:"report_filename"` // .csv or .xlsx
}

// Styling holds geometry and framing settings.
type Styling struct {
	AspectRatio     [2]int `mapstructure:"aspect_ratio"`
	MinSize         [2]int `mapstructure:"min_size"`
	Mode            string `mapstructure:"mode"` // contain | cover
	BackgroundColor string `mapstructure:"background_color"`
	BorderImage     string `mapstructure:"border_image"`
	BorderColor     string `mapstructure:"border_color"`
	BorderThickness int    `mapstructure:"border_thickness"`
}

// AntiDedup holds the perturbation recipe.
type AntiDedup struct {
	Tier           string     `mapstructure:"tier"` // none | light | medium | heavy
	AllowMirror    bool       `mapstructure:"allow_mirror"`
	NoiseStrength  float64    `mapstructure:"noise_strength"`
	JitterStrength float64    `mapstructure:"jitter_strength"`
	RotationRange  [2]float64 `mapstructure:"rotation_range"` // degrees
	CropMargin     float64    `mapstructure:"crop_margin"`
	Watermark      Watermark  `mapstructure:"watermark"`
	Texture        Texture    `mapstructure:"texture"`
}

// Watermark holds micro-trace watermark parameters for the heavy tier.
type Watermark struct {
	Text          string     `mapstructure:"text"`        // literal text; empty falls back to default
	AutoRandom    bool       `mapstructure:"auto_random"` // generate a random token per task instead
	CountRange    [2]int     `mapstructure:"count_range"`
	OpacityRange  [2]float64 `mapstructure:"opacity_range"`
	RotationRange [2]float64 `mapstructure:"rotation_range"`
	ScaleRange    [2]float64 `mapstructure:"scale_range"`
}

// Texture holds the optional texture-overlay blend, applied independent of tier.
type Texture struct {
	ImagePath string  `mapstructure:"image_path"`
	Opacity   float64 `mapstructure:"opacity"`
}

// Validation toggles post-write similarity metrics.
type Validation struct {
	Enabled bool `mapstructure:"enabled"`
}

// Publish holds the optional S3-compatible upload target for processed
// assets and the report.
type Publish struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Events holds the optional Kafka topic for batch completion events.
type Events struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// Retry defines the retry policy for publisher calls.
type Retry struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
	Backoff  float64       `mapstructure:"backoff"`
}

// MustLoad loads the configuration from the given file path and applies
// defaults. It panics if the file cannot be read or unmarshaled.
func MustLoad(path string) *Config {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to read config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to unmarshal config")
	}

	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("recursive", true)
	v.SetDefault("include_patterns", []string{"*.jpg", "*.jpeg", "*.png", "*.webp"})
	v.SetDefault("workers", 4)

	v.SetDefault("output.conflict_policy", ConflictRename)
	v.SetDefault("output.report_filename", "report.csv")

	v.SetDefault("styling.aspect_ratio", []int{1, 1})
	v.SetDefault("styling.min_size", []int{800, 800})
	v.SetDefault("styling.mode", ModeContain)
	v.SetDefault("styling.background_color", "#000000")

	v.SetDefault("anti_dedup.tier", TierNone)
	v.SetDefault("anti_dedup.noise_strength", 0.01)
	v.SetDefault("anti_dedup.jitter_strength", 0.02)
	v.SetDefault("anti_dedup.rotation_range", []float64{-0.5, 0.5})
	v.SetDefault("anti_dedup.crop_margin", 0.01)

	v.SetDefault("anti_dedup.watermark.count_range", []int{3, 5})
	v.SetDefault("anti_dedup.watermark.opacity_range", []float64{0.05, 0.15})
	v.SetDefault("anti_dedup.watermark.rotation_range", []float64{-5, 5})
	v.SetDefault("anti_dedup.watermark.scale_range", []float64{0.02, 0.05})

	v.SetDefault("anti_dedup.texture.opacity", 0.3)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 500*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)
}

// Validate checks semantic constraints before any task is dispatched:
// a job with an invalid configuration fails entirely, since no partial
// work is underway yet.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source directory is required")
	}
	for _, s := range c.Sources {
		if _, err := os.Stat(s); err != nil {
			return fmt.Errorf("source %q is not accessible: %w", s, err)
		}
	}

	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	switch c.Output.ConflictPolicy {
	case ConflictRename, ConflictOverwrite, ConflictSkip:
	default:
		return fmt.Errorf("unknown conflict policy: %q", c.Output.ConflictPolicy)
	}

	switch c.Styling.Mode {
	case ModeContain, ModeCover:
	default:
		return fmt.Errorf("unknown fit mode: %q", c.Styling.Mode)
	}
	if c.Styling.AspectRatio[0] <= 0 || c.Styling.AspectRatio[1] <= 0 {
		return fmt.Errorf("aspect_ratio must be two positive integers, got %v", c.Styling.AspectRatio)
	}
	if c.Styling.MinSize[0] <= 0 || c.Styling.MinSize[1] <= 0 {
		return fmt.Errorf("min_size must be positive, got %v", c.Styling.MinSize)
	}
	if _, err := ParseHexColor(c.Styling.BackgroundColor); err != nil {
		return fmt.Errorf("background_color: %w", err)
	}
	if c.Styling.BorderColor != "" {
		if _, err := ParseHexColor(c.Styling.BorderColor); err != nil {
			return fmt.Errorf("border_color: %w", err)
		}
	}
	if c.Styling.BorderImage != "" {
		if _, err := os.Stat(c.Styling.BorderImage); err != nil {
			return fmt.Errorf("border_image %q is not accessible: %w", c.Styling.BorderImage, err)
		}
	}

	ad := c.AntiDedup
	switch ad.Tier {
	case TierNone, TierLight, TierMedium, TierHeavy:
	default:
		return fmt.Errorf("unknown anti-dedup tier: %q", ad.Tier)
	}
	if ad.RotationRange[0] > ad.RotationRange[1] {
		return fmt.Errorf("anti_dedup.rotation_range min > max: %v", ad.RotationRange)
	}
	if err := validateWatermark(ad.Watermark); err != nil {
		return err
	}
	if ad.Texture.ImagePath != "" {
		if _, err := os.Stat(ad.Texture.ImagePath); err != nil {
			return fmt.Errorf("texture image %q is not accessible: %w", ad.Texture.ImagePath, err)
		}
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}

	if c.Publish.Enabled && (c.Publish.Endpoint == "" || c.Publish.BucketName == "") {
		return fmt.Errorf("publish requires endpoint and bucket_name")
	}
	if c.Events.Enabled && (len(c.Events.Brokers) == 0 || c.Events.Topic == "") {
		return fmt.Errorf("events require brokers and topic")
	}

	return nil
}

func validateWatermark(w Watermark) error {
	if w.CountRange[0] > w.CountRange[1] {
		return fmt.Errorf("watermark.count_range min > max: %v", w.CountRange)
	}
	if w.CountRange[0] < 0 {
		return fmt.Errorf("watermark.count_range must be non-negative: %v", w.CountRange)
	}
	for name, r := range map[string][2]float64{
		"opacity_range":  w.OpacityRange,
		"rotation_range": w.RotationRange,
		"scale_range":    w.ScaleRange,
	} {
		if r[0] > r[1] {
			return fmt.Errorf("watermark.%s min > max: %v", name, r)
		}
	}
	if w.OpacityRange[0] < 0 || w.OpacityRange[1] > 1 {
		return fmt.Errorf("watermark.opacity_range must stay within [0, 1]: %v", w.OpacityRange)
	}
	return nil
}

var hexColorRe = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ParseHexColor parses "#rgb" or "#rrggbb" into an opaque color.
func ParseHexColor(value string) (color.NRGBA, error) {
	m := hexColorRe.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return color.NRGBA{}, fmt.Errorf("cannot parse color %q", value)
	}

	hex := m[1]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}

	var r, g, b uint8
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("cannot parse color %q: %w", value, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
