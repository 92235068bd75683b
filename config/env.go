package config

import (
	"os"
	"strconv"
)

const (
	EnvPathDebug      = "RBEL_DEBUG_PATH"
	EnvCriterionDebug = "RBEL_DEBUG_CRITERIA"
	EnvFacets         = "RBEL_SHOW_FACETS"
	EnvColors         = "RBEL_COLORS"
	EnvLogLevel       = "RBEL_LOG_LEVEL"
)

// ApplyEnv returns a copy of c with the RBEL_* environment overrides applied.
// The environment is read once here; nothing else consults it.
func (c *Config) ApplyEnv() *Config {
	return c.applyEnv(os.LookupEnv)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) *Config {
	res := c.Clone()
	boolEnv := func(name string, dst *bool) {
		x, ok := lookup(name)
		if !ok || x == "" {
			return
		}
		if b, err := strconv.ParseBool(x); err == nil {
			*dst = b
		}
	}
	boolEnv(EnvPathDebug, &res.Display.PathDebug)
	boolEnv(EnvCriterionDebug, &res.Display.CriterionDebug)
	boolEnv(EnvFacets, &res.Display.Facets)
	if x, ok := lookup(EnvColors); ok && x != "" {
		res.Display.Colors = ColorMode(x)
	}
	if x, ok := lookup(EnvLogLevel); ok && x != "" {
		res.Log.Level = x
	}
	return res
}
