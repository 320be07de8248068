// Package file provides TOML file-based configuration storage under the
// warden config directory.
package file
