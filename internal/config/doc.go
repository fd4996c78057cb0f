// Package config loads the layered settings of the updater and the packager.
//
// Values come from a static settings file (TOML by default) and are overridden
// by environment variables named after the key path, e.g. updater.zip_password
// is overridden by UPDATER_ZIP_PASSWORD. Load returns one explicit Config value
// that callers pass down; there is no process-wide configuration object.
package config
