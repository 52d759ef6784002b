// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package ws

import "github.com/coffeepid/thermo/history"

type (
	// Header announces the binary frame that immediately follows it.
	Header struct {
		SendBinary *history.Transfer `json:"sendBinary"`
	}

	// Inbound is a message from a browser client.
	Inbound struct {
		Get *Get `json:"get,omitempty"`
	}

	// Get selects what a client asks for.
	Get struct {
		History *HistoryRequest `json:"history,omitempty"`
	}

	// HistoryRequest asks for the samples between two device times (ms).
	// Zero values mean the oldest and the newest sample respectively.
	HistoryRequest struct {
		From uint64 `json:"from"`
		To   uint64 `json:"to"`
	}
)
