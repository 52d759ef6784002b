// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package mqtt

import (
	"context"
	"net"
	"strconv"

	"github.com/coffeepid/thermo/errors"
)

// ConnectionProvider returns a net.Conn connected to an MQTT broker.
type ConnectionProvider func(context.Context) (net.Conn, error)

// TCPConnection is a ConnectionProvider that connects to a broker over TCP.
func TCPConnection(hostname string, port int) ConnectionProvider {
	return func(ctx context.Context) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(
			ctx,
			"tcp",
			net.JoinHostPort(hostname, strconv.Itoa(port)),
		)
		if err != nil {
			return nil, &errors.Error{
				Message:     "error opening TCP connection",
				Kind:        errors.TransportError,
				NestedError: err,
			}
		}
		return conn, nil
	}
}
