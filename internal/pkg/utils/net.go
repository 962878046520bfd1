// internal/pkg/utils/net.go
package utils

import (
	"net"

	"github.com/pkg/errors"
)

// GetOutboundIP 返回本机对外通信使用的 IP (不会真正发包)
func GetOutboundIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", errors.Wrap(err, "dial udp")
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", errors.Errorf("unexpected local addr type %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
