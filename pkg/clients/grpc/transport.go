// Copyright (c) Orbiter
// SPDX-License-Identifier: Apache-2.0
package grpc

import (
	"fmt"
	"net/url"
)

// TargetKind discriminates the two transports a target string can denote.
type TargetKind int

const (
	// TargetNetwork is a network endpoint addressed by an absolute URI.
	TargetNetwork TargetKind = iota
	// TargetLocalSocket is a unix domain socket addressed by a filesystem path.
	TargetLocalSocket
)

// Target is the classified form of a configured target string. Exactly one
// of URI and Path is populated, according to Kind.
type Target struct {
	Kind TargetKind
	URI  *url.URL
	Path string
}

// ParseTarget classifies a target string as a network endpoint or a local
// socket path. A string parsing as an absolute URI with both a scheme and an
// authority component is a network target regardless of scheme; anything
// else is taken verbatim as a unix socket path. The classification is pure:
// unreachable or non-network schemes are still network targets and fail at
// dial time, not here.
func ParseTarget(raw string) Target {
	if u, err := url.Parse(raw); err == nil && u.Scheme != "" && u.Host != "" {
		return Target{Kind: TargetNetwork, URI: u}
	}

	return Target{Kind: TargetLocalSocket, Path: raw}
}

func (t Target) String() string {
	if t.Kind == TargetLocalSocket {
		return fmt.Sprintf("unix://%s", t.Path)
	}

	return t.URI.String()
}
