// Package config loads the frida settings document.
//
// # Overview
//
// Settings are read exactly once at startup and handed to the supervisor as an
// immutable Config value. Nothing in the running process re-reads the file.
//
// # Resolution
//
// Load accepts an explicit path (the CLI --config flag). An empty path means
// config.yaml in the working directory. Tilde paths are expanded to the home
// directory and every path is made absolute.
//
// A missing document is an error wrapping ErrNotFound. The CLI turns that into
// an instructional message and exit status 1 before any other initialization.
//
// # Formats
//
// The file extension picks the decoder:
//
//   - .yaml, .yml: gopkg.in/yaml.v3
//   - .toml: github.com/pelletier/go-toml/v2
//
// Unknown keys are rejected by both decoders so that typos surface at startup
// instead of silently falling back to defaults.
//
// Example config.yaml:
//
//	development_mode: false
//	display:
//	  model: epd2in13_V2
//	  rotation: 90
//	transit:
//	  api_url: https://api.wmata.com/NextBusService.svc/json/jPredictions
//	  stop_id: "1001195"
//	  refresh_interval: 30
//
// # Secrets
//
// The transit API key is never part of the document. It is read from the
// FRIDA_API_KEY environment variable into a Secret, which prints as
// "[redacted]" through fmt and log/slog. Use Reveal only when building the
// outgoing request.
//
// # Validation
//
// Field rules are declared as go-playground/validator tags (required, url,
// gt=0, oneof). Cross-field rules that the tags cannot express, such as the
// minimum render interval, are checked by hand in Validate. All violations are
// reported together in a single error.
package config
