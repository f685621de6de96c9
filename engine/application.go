package engine

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/ember/engine/renderer"
	"golang.org/x/image/colornames"
)

// Prefix of the environment variables overriding the config file.
const envPrefix = "EMBER_"

type ApplicationConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position x axis, if applicable.
	StartPosX uint32 `toml:"start_pos_x"`
	// Window starting position y axis, if applicable.
	StartPosY uint32 `toml:"start_pos_y"`
	// Window starting width, if applicable.
	StartWidth uint32 `toml:"start_width"`
	// Window starting height, if applicable.
	StartHeight uint32         `toml:"start_height"`
	LogLevel    string         `toml:"log_level"`
	Renderer    RendererConfig `toml:"renderer"`
}

type RendererConfig struct {
	// A color name (cornflowerblue) or #rrggbb / #rrggbbaa.
	ClearColor string `toml:"clear_color"`
	// FIFO when set, mailbox if the surface supports it otherwise.
	VSync      bool `toml:"vsync"`
	Validation bool `toml:"validation"`
	// Highest API version requested from the instance, "major.minor[.patch]".
	MaxAPIVersion string `toml:"max_api_version"`
	// Parsed with time.ParseDuration. Zero or empty blocks until an image is
	// available.
	AcquireTimeout string `toml:"acquire_timeout"`
	// Name of the frame renderer to install.
	Strategy string `toml:"strategy"`
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		Name:        "Ember",
		StartPosX:   100,
		StartPosY:   100,
		StartWidth:  1280,
		StartHeight: 720,
		LogLevel:    "info",
		Renderer: RendererConfig{
			ClearColor:    "#000000",
			VSync:         true,
			Validation:    false,
			MaxAPIVersion: "1.3",
			Strategy:      "clear",
		},
	}
}

// LoadApplicationConfig reads the TOML file at path on top of the defaults.
// A .env file next to it (or in the working directory when path is empty) is
// loaded first, then EMBER_* variables override the file.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()

	envFile := ".env"
	if path != "" {
		envFile = filepath.Join(filepath.Dir(path), ".env")
	}
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", envFile)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read config")
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to decode %s", path)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok {
			*dst = v
		}
	}
	u32 := func(name string, dst *uint32) error {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.Wrapf(err, "invalid %s%s", envPrefix, name)
		}
		*dst = uint32(n)
		return nil
	}
	boolean := func(name string, dst *bool) error {
		v, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s%s", envPrefix, name)
		}
		*dst = b
		return nil
	}

	str("NAME", &c.Name)
	str("LOG_LEVEL", &c.LogLevel)
	str("CLEAR_COLOR", &c.Renderer.ClearColor)
	str("MAX_API_VERSION", &c.Renderer.MaxAPIVersion)
	str("ACQUIRE_TIMEOUT", &c.Renderer.AcquireTimeout)
	str("STRATEGY", &c.Renderer.Strategy)
	for name, dst := range map[string]*uint32{
		"START_POS_X":  &c.StartPosX,
		"START_POS_Y":  &c.StartPosY,
		"START_WIDTH":  &c.StartWidth,
		"START_HEIGHT": &c.StartHeight,
	} {
		if err := u32(name, dst); err != nil {
			return err
		}
	}
	if err := boolean("VSYNC", &c.Renderer.VSync); err != nil {
		return err
	}
	return boolean("VALIDATION", &c.Renderer.Validation)
}

// Validate checks every field that is parsed later on.
func (c *ApplicationConfig) Validate() error {
	if c.StartWidth == 0 || c.StartHeight == 0 {
		return errors.Newf("invalid window size %dx%d", c.StartWidth, c.StartHeight)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	if _, err := c.Renderer.Color(); err != nil {
		return err
	}
	if _, err := c.Renderer.APIVersion(); err != nil {
		return err
	}
	if _, err := c.Renderer.Timeout(); err != nil {
		return err
	}
	return nil
}

func (c *ApplicationConfig) windowTitle() string {
	if c.Name == "" {
		return "Ember"
	}
	return c.Name
}

func (r RendererConfig) Color() (mgl32.Vec4, error) {
	return ParseClearColor(r.ClearColor)
}

func (r RendererConfig) APIVersion() (renderer.Version, error) {
	if r.MaxAPIVersion == "" {
		return renderer.MakeVersion(1, 3, 0), nil
	}
	parts := strings.Split(r.MaxAPIVersion, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Newf("invalid API version %q", r.MaxAPIVersion)
	}
	var nums [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 10)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid API version %q", r.MaxAPIVersion)
		}
		nums[i] = uint32(n)
	}
	return renderer.MakeVersion(nums[0], nums[1], nums[2]), nil
}

func (r RendererConfig) Timeout() (time.Duration, error) {
	if r.AcquireTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(r.AcquireTimeout)
	if err != nil {
		return 0, errors.Wrap(err, "invalid acquire timeout")
	}
	return d, nil
}

func (r RendererConfig) PresentMode() renderer.PresentMode {
	if r.VSync {
		return renderer.PresentModeFIFO
	}
	return renderer.PresentModeMailbox
}

// ParseClearColor accepts a CSS color name or a hex value.
func ParseClearColor(s string) (mgl32.Vec4, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, "#") {
		raw, err := hex.DecodeString(s[1:])
		if err != nil || (len(raw) != 3 && len(raw) != 4) {
			return mgl32.Vec4{}, errors.Newf("invalid clear color %q", s)
		}
		color := mgl32.Vec4{float32(raw[0]) / 255, float32(raw[1]) / 255, float32(raw[2]) / 255, 1}
		if len(raw) == 4 {
			color[3] = float32(raw[3]) / 255
		}
		return color, nil
	}
	c, ok := colornames.Map[s]
	if !ok {
		return mgl32.Vec4{}, errors.Newf("unknown clear color %q", s)
	}
	return mgl32.Vec4{float32(c.R) / 255, float32(c.G) / 255, float32(c.B) / 255, float32(c.A) / 255}, nil
}
