//go:build darwin

package main

import "github.com/benaskins/regcred/internal/config"

func defaultConfigPath() string {
	return config.DefaultPath()
}

func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return defaultConfigPath()
}
