// Package config loads and saves the gateway configuration file.
//
// The configuration is a versioned YAML document. Keys that are absent
// keep their built-in defaults, so a file may contain only the settings
// that differ:
//
//	version: 1
//	bus:
//	  driver: slcan
//	  serial_port: /dev/ttyACM0
//	websocket:
//	  enabled: true
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/hapcangw/config.yaml or $HOME/.config/hapcangw/config.yaml
//   - macOS: $HOME/.config/hapcangw/config.yaml
//   - Windows: %LOCALAPPDATA%\hapcangw\config.yaml
//
// Every function taking a path uses this location when the path is empty.
//
// # Thread Safety
//
// Save is protected by a package mutex and writes through a temporary
// file and rename, so readers never see a partial file.
package config
