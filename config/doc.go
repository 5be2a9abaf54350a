// Package config loads and validates videostream bot configuration.
//
// Configuration is read from a JSON or YAML file (selected by extension)
// and validated twice: structurally against an embedded JSON schema, then
// semantically by Config.Validate. Defaults are applied before
// validation, so a minimal file needs only the endpoint, appkey, and
// channel.
package config
