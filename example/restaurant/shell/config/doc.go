// Package config loads the configuration of the restaurant example from the environment
// and creates the database connections it needs.
//
// This package is part of the shell (infrastructure) layer.
package config
