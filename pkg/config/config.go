package config

import (
	"time"

	"github.com/b/mappane/pkg/mapping"
	"github.com/b/mappane/pkg/paths"
)

type Config struct {
	PaneTitle      string               `yaml:"pane_title"`
	Locale         int                  `yaml:"locale"`
	Display        Display              `yaml:"display"`
	Placeholders   mapping.Placeholders `yaml:"placeholders"`
	DragDropWindow time.Duration        `yaml:"drag_drop_window"`
	History        int                  `yaml:"history"`
	Schemas        []SchemaAlias        `yaml:"schemas"`
}

// Display controls what the mapping tree shows for each node.
type Display struct {
	ShowAttributes             bool `yaml:"show_attributes"`
	AutoSelectNode             bool `yaml:"auto_select_node"`
	ShowComments               bool `yaml:"show_comments"`
	ShowProcessingInstructions bool `yaml:"show_processing_instructions"`
	ShowText                   bool `yaml:"show_text"`
}

// SchemaAlias seeds a friendly name for a data stream's root namespace.
type SchemaAlias struct {
	Namespace string `yaml:"namespace"`
	Alias     string `yaml:"alias"`
}

// Options is the packed form of Display handed to renderers.
type Options uint32

const (
	OptionShowAttributes Options = 1 << iota
	OptionAutoSelectNode
	OptionShowComments
	OptionShowProcessingInstructions
	OptionShowText
)

// Has reports whether every bit in o2 is set.
func (o Options) Has(o2 Options) bool {
	return o&o2 == o2
}

// Options packs d into bit flags.
func (d Display) Options() Options {
	var o Options
	if d.ShowAttributes {
		o |= OptionShowAttributes
	}
	if d.AutoSelectNode {
		o |= OptionAutoSelectNode
	}
	if d.ShowComments {
		o |= OptionShowComments
	}
	if d.ShowProcessingInstructions {
		o |= OptionShowProcessingInstructions
	}
	if d.ShowText {
		o |= OptionShowText
	}
	return o
}

// Default returns the configuration written on first run.
func Default() *Config {
	cfg := &Config{
		Display: Display{
			ShowAttributes: true,
			AutoSelectNode: true,
		},
		Schemas: []SchemaAlias{
			{Namespace: "http://schemas.openxmlformats.org/package/2006/metadata/core-properties", Alias: "Core File Properties"},
			{Namespace: "http://schemas.openxmlformats.org/officeDocument/2006/extended-properties", Alias: "Extended File Properties"},
			{Namespace: "http://schemas.microsoft.com/office/2006/coverPageProps", Alias: "Cover Page Properties"},
		},
	}
	applyDefaults(cfg)
	return cfg
}

func DefaultConfigPath() string {
	return paths.ConfigPath()
}
