// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import "strings"

// Topic layout under the configured prefix:
//
//	<prefix>/history/request/<client>   history request {"from":F,"to":T}
//	<prefix>/history/<client>/meta      transfer header
//	<prefix>/history/<client>/data      transfer payload
//	<prefix>/status                     live status
type topics struct{ prefix string }

func (t topics) requestFilter() string {
	return t.prefix + "/history/request/+"
}

func (t topics) meta(client string) string {
	return t.prefix + "/history/" + client + "/meta"
}

func (t topics) data(client string) string {
	return t.prefix + "/history/" + client + "/data"
}

func (t topics) status() string {
	return t.prefix + "/status"
}

// requestClient extracts the client name from a request topic.
func (t topics) requestClient(topic string) (string, bool) {
	client, ok := strings.CutPrefix(topic, t.prefix+"/history/request/")
	if !ok || client == "" || strings.ContainsAny(client, "/+#") {
		return "", false
	}
	return client, true
}
