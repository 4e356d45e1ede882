/*
Package config reads and writes curvenet documents.

A document is a YAML file holding settings, a tolerance context and a list
of curve networks:

	settings:
	  tracing.adapter: zap
	  trace.curvenet.fit: Debug
	  cache.capacity: 128
	tolerance:
	  tol3d: 1e-5
	  tolparam: 1e-10
	  maxdegree: 8
	  maxsegments: 80
	networks:
	  - name: dome
	    profiles:
	      - degree: 2
	        knots: [0, 0, 0, 1, 1, 1]
	        control: [[0, 0, 0], [1, 0, 2], [2, 0, 0]]
	    guides:
	      - …

The settings section implements schuko.Configuration, so it may be used to
configure tracing.

# BSD License

# Copyright (c) Norbert Pillmayer

All rights reserved.

Please refer to the license file for more information.
*/
package config

import (
	"strconv"
	"strings"

	"github.com/npillmayer/schuko"
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'curvenet.config'
func tracer() tracing.Trace {
	return tracing.Select("curvenet.config")
}

// Well-known settings keys.
const (
	KeyTracingAdapter = "tracing.adapter"
	KeyTracePrefix    = "trace"
	KeyTraceRoot      = "trace.root"
	KeyCacheCapacity  = "cache.capacity"
	KeyOutputFormat   = "output.format"
)

// Settings is a flat key/value store. Keys are case-insensitive.
type Settings map[string]string

var _ schuko.Configuration = Settings{}

// InitDefaults sets all well-known keys which are not set yet.
func (s Settings) InitDefaults() {
	defaults := map[string]string{
		KeyTracingAdapter: "zap",
		KeyTraceRoot:      "Error",
		KeyCacheCapacity:  "64",
		KeyOutputFormat:   "yaml",
	}
	for k, v := range defaults {
		if !s.IsSet(k) {
			s[k] = v
		}
	}
}

// IsSet is a predicate: is there a value for key?
func (s Settings) IsSet(key string) bool {
	_, ok := s[strings.ToLower(key)]
	return ok
}

// GetString returns the value for key, or "".
func (s Settings) GetString(key string) string {
	return s[strings.ToLower(key)]
}

// GetInt returns the value for key as an integer, or 0.
func (s Settings) GetInt(key string) int {
	v, ok := s[strings.ToLower(key)]
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		tracer().Errorf("setting %s=%q is not an integer", key, v)
		return 0
	}
	return n
}

// GetBool returns the value for key as a boolean, or false.
func (s Settings) GetBool(key string) bool {
	v, ok := s[strings.ToLower(key)]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		tracer().Errorf("setting %s=%q is not a boolean", key, v)
	}
	return b
}

// IsInteractive is part of schuko.Configuration and always false.
func (s Settings) IsInteractive() bool {
	return false
}

// Set stores a value.
func (s Settings) Set(key, value string) {
	s[strings.ToLower(key)] = value
}

// normalize lower-cases all keys.
func (s Settings) normalize() Settings {
	n := make(Settings, len(s))
	for k, v := range s {
		n[strings.ToLower(k)] = v
	}
	return n
}
