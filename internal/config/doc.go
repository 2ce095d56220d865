// Package config loads run-fortran settings.
//
// Values are layered with viper, lowest precedence first: built-in
// defaults, a CUE config file (validated against the embedded #Config
// schema), RUN_FORTRAN_* environment variables, then explicitly set
// command-line flags. The result is an explicit Config value; nothing is
// kept in package-level state.
package config
