// Package config loads vtree.yaml / vtree.json configuration.
//
// # Configuration File Structure
//
//	server:
//	  address: ":8080"
//	  readTimeout: 60s
//	  writeTimeout: 10s
//	  heartbeatInterval: 30s
//	  maxMessageSize: 65536
//	  sendQueue: 256
//	  allowedOrigins: ["https://example.com"]
//	log:
//	  level: info        # debug, info, warn, error
//	  format: auto       # text, json, auto (text on a terminal)
//	metrics:
//	  disabled: false
//	scheduler:
//	  flushLimit: 100
//	  affinityCheck: false
//	bench:
//	  items: 1000
//	  iterations: 100
//	  bucket: ""
//	  prefix: bench/
//	  region: us-east-1
//
// JSON files use the same keys. Every file is converted to JSON, then the
// overrides given with --set are applied as JSON merge patches before the
// result is decoded and defaulted.
//
// # Usage
//
//	cfg, err := config.Load(".", "server.address=:9090", "log.level=debug")
//	if err != nil {
//	    errors.PrintError(err)
//	    os.Exit(1)
//	}
//	logger, err := cfg.Log.NewLogger(os.Stderr, isatty.IsTerminal(os.Stderr.Fd()))
package config
