// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/WhiteSymmetry/servo/lib/config"
	"github.com/WhiteSymmetry/servo/lib/service"
)

// resolveSocket picks the daemon's control socket path: an explicit
// --socket value wins, then the config file named by SERVO_VR_CONFIG,
// then the built-in default.
func resolveSocket(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if os.Getenv("SERVO_VR_CONFIG") != "" {
		cfg, err := config.Load()
		if err != nil {
			return "", err
		}
		return cfg.Socket, nil
	}
	return config.Default().Socket, nil
}

// connect returns a client for the daemon's control socket.
func connect(flagValue string) (*service.ServiceClient, error) {
	socket, err := resolveSocket(flagValue)
	if err != nil {
		return nil, err
	}
	return service.NewServiceClient(socket), nil
}
