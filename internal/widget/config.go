package widget

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type Position struct {
	Vertical   string `json:"vertical"`
	Horizontal string `json:"horizontal"`
	OffsetX    int    `json:"offsetX"`
	OffsetY    int    `json:"offsetY"`
}

type Style struct {
	PrimaryColor    string `json:"primaryColor"`
	BackgroundColor string `json:"backgroundColor"`
	TextColor       string `json:"textColor"`
	BorderRadius    int    `json:"borderRadius"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
}

func DefaultPosition() Position {
	return Position{Vertical: "bottom", Horizontal: "right", OffsetX: 20, OffsetY: 20}
}

func DefaultStyle() Style {
	return Style{
		PrimaryColor:    "#4f46e5",
		BackgroundColor: "#ffffff",
		TextColor:       "#111827",
		BorderRadius:    12,
		Width:           320,
		Height:          480,
	}
}

// Config is accepted once, when the widget is constructed.
type Config struct {
	Videos         []Video             `json:"videos"`
	Avatar         string              `json:"avatar"`
	Name           string              `json:"name"`
	Options        []Option            `json:"options"`
	Position       Position            `json:"position"`
	Style          Style               `json:"style"`
	OptionSets     map[string][]Option `json:"optionSets,omitempty"`
	RemoteEndpoint string              `json:"remoteEndpoint,omitempty"`
}

// LoadConfig decodes a JSON configuration and fills in defaults.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode widget config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open widget config: %w", err)
	}
	defer func() { _ = f.Close() }()
	return LoadConfig(f)
}

// ApplyDefaults fills unset position and style fields.
func (c *Config) ApplyDefaults() {
	def := DefaultPosition()
	if c.Position.Vertical == "" {
		c.Position.Vertical = def.Vertical
	}
	if c.Position.Horizontal == "" {
		c.Position.Horizontal = def.Horizontal
	}

	style := DefaultStyle()
	if c.Style.PrimaryColor == "" {
		c.Style.PrimaryColor = style.PrimaryColor
	}
	if c.Style.BackgroundColor == "" {
		c.Style.BackgroundColor = style.BackgroundColor
	}
	if c.Style.TextColor == "" {
		c.Style.TextColor = style.TextColor
	}
	if c.Style.Width == 0 {
		c.Style.Width = style.Width
	}
	if c.Style.Height == 0 {
		c.Style.Height = style.Height
	}
}

// Validate checks the configuration for structural mistakes. Dangling
// payload references are not errors here; they are ignored at runtime.
func (c Config) Validate() error {
	seen := make(map[string]bool, len(c.Videos))
	for _, v := range c.Videos {
		if v.ID == "" {
			return fmt.Errorf("video with empty id")
		}
		if seen[v.ID] {
			return fmt.Errorf("duplicate video id %q", v.ID)
		}
		seen[v.ID] = true
	}
	if err := ValidateOptions(c.Options); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	for id, opts := range c.OptionSets {
		if id == "" {
			return fmt.Errorf("option set with empty id")
		}
		if err := ValidateOptions(opts); err != nil {
			return fmt.Errorf("option set %q: %w", id, err)
		}
	}
	if err := c.Position.Validate(); err != nil {
		return err
	}
	return nil
}

func (p Position) Validate() error {
	if p.Vertical != "top" && p.Vertical != "bottom" {
		return fmt.Errorf("invalid vertical anchor %q", p.Vertical)
	}
	if p.Horizontal != "left" && p.Horizontal != "right" {
		return fmt.Errorf("invalid horizontal anchor %q", p.Horizontal)
	}
	return nil
}

// ValidateOptions rejects options without an id, with an unknown action or
// without a payload, and duplicate ids within one list.
func ValidateOptions(opts []Option) error {
	seen := make(map[string]bool, len(opts))
	for _, o := range opts {
		if o.ID == "" {
			return fmt.Errorf("option with empty id")
		}
		if seen[o.ID] {
			return fmt.Errorf("duplicate option id %q", o.ID)
		}
		seen[o.ID] = true
		if !o.Action.Valid() {
			return fmt.Errorf("option %q has unknown action", o.ID)
		}
		if o.Payload == "" {
			return fmt.Errorf("option %q has empty payload", o.ID)
		}
	}
	return nil
}
