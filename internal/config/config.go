/*
Copyright © 2017 the InMAP authors.
This file is part of InMAP.

InMAP is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InMAP is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InMAP.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package config is the shared cobra/viper configuration layer every
// cmd/* binary wires itself to: a TOML file read via --config,
// layered under flag and FUSION_-prefixed environment overrides.
package config

import (
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix is the environment variable prefix every bound option is
// additionally reachable under, e.g. FUSION_RESOLVER.
const EnvPrefix = "FUSION"

// Option describes one configuration value bound to both a viper key
// and a persistent pflag, mirroring inmaputil/cmd.go's per-command
// option table.
type Option struct {
	Name, Usage, Shorthand string
	Default                interface{}
}

// Cfg wraps a *viper.Viper the way inmaputil.Cfg does, so every
// binary's command tree shares one config/flag/env resolution order:
// flag > env > file > default.
type Cfg struct {
	*viper.Viper
}

// New constructs an empty Cfg with the FUSION_ environment prefix
// already set and environment lookup enabled.
func New() *Cfg {
	c := &Cfg{Viper: viper.New()}
	c.SetEnvPrefix(EnvPrefix)
	c.AutomaticEnv()
	return c
}

// BindOptions declares opts as persistent flags on cmd and binds each
// to the viper key of the same name.
func (c *Cfg) BindOptions(cmd *cobra.Command, opts []Option) {
	set := cmd.PersistentFlags()
	for _, o := range opts {
		declareFlag(set, o)
		if err := c.BindPFlag(o.Name, set.Lookup(o.Name)); err != nil {
			panic(fmt.Errorf("config: binding flag %q: %w", o.Name, err))
		}
	}
}

func declareFlag(set *pflag.FlagSet, o Option) {
	switch v := o.Default.(type) {
	case string:
		if o.Shorthand == "" {
			set.String(o.Name, v, o.Usage)
		} else {
			set.StringP(o.Name, o.Shorthand, v, o.Usage)
		}
	case bool:
		if o.Shorthand == "" {
			set.Bool(o.Name, v, o.Usage)
		} else {
			set.BoolP(o.Name, o.Shorthand, v, o.Usage)
		}
	case int:
		if o.Shorthand == "" {
			set.Int(o.Name, v, o.Usage)
		} else {
			set.IntP(o.Name, o.Shorthand, v, o.Usage)
		}
	case float64:
		if o.Shorthand == "" {
			set.Float64(o.Name, v, o.Usage)
		} else {
			set.Float64P(o.Name, o.Shorthand, v, o.Usage)
		}
	default:
		panic(fmt.Errorf("config: unsupported default type %T for option %q", o.Default, o.Name))
	}
}

// ReadFile loads the TOML config file at path over the current
// defaults, if path is non-empty. Matches inmaputil/cmd.go's
// setConfig: a config file layers under whatever flags/env the caller
// already set, so file values never clobber an explicit override.
func (c *Cfg) ReadFile(path string) error {
	if path == "" {
		return nil
	}
	c.SetConfigFile(path)
	if err := c.ReadInConfig(); err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	return nil
}
