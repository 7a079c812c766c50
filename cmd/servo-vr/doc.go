// Copyright 2026 The Servo Authors
// SPDX-License-Identifier: Apache-2.0

// Servo-vr is the command-line client for the Servo VR daemon. It
// talks to servo-vr-service over its Unix control socket and inspects
// recorded frame traces offline.
//
// Commands:
//
//	servo-vr displays        list the daemon's display snapshots
//	servo-vr status          daemon uptime, clients, presenting sessions
//	servo-vr trace status    recorder counters from the daemon
//	servo-vr trace info F    summarize a recorded trace file
//	servo-vr version         print version information
//
// The socket path comes from --socket, the config file named by
// SERVO_VR_CONFIG, or the built-in default, in that order.
package main
