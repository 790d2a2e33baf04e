// Package version reports build information for the pipekit binary.
//
//	go build -ldflags "-X github.com/kbukum/pipekit/version.Version=1.0.0"
package version
