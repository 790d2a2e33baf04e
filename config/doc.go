// Package config loads pipekit process configuration.
//
// Values come from a YAML file, then an optional .env file, then PIPEKIT_*
// environment variables, with underscores addressing nested keys:
//
//	PIPEKIT_RUNTIME_BUFFER_SIZE=64   -> runtime.buffer_size
//	PIPEKIT_SERVER_AUTH_SECRET=...   -> server.auth.secret
//
// Load applies defaults and validates the result:
//
//	cfg, err := config.Load("pipekit", config.WithConfigFile("pipekit.yml"))
//	result, err := pipes.Run(ctx, node, args, cfg.Runtime.Options()...)
package config
