// Package config loads optional YAML defaults for the server's CLI flags,
// using gopkg.in/yaml.v3 (already a hyperpb dependency). Some editor
// integrations spawn the language server without giving the user control
// over argv, so a config file lets the defaults live next to the project
// instead. Flags set on the command line always win; see cmd/gtirb-lsp.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of .gtirb-lsp.yaml.
type File struct {
	TCP          bool   `yaml:"tcp"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ForceRemote  bool   `yaml:"forceRemote"`
	RewriteAsm   bool   `yaml:"rewritingEnabled"`
	Verbosity    int    `yaml:"verbosity"`
}

// Default returns the built-in defaults, matching spec §6's CLI defaults
// (stdio transport, 127.0.0.1:3036).
func Default() File {
	return File{
		Host:       "127.0.0.1",
		Port:       3036,
		RewriteAsm: true,
	}
}

// Load reads path if it exists, overlaying onto Default(). A missing file is
// not an error: the server runs on built-in defaults plus whatever flags
// the user passed.
func Load(path string) (File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}
