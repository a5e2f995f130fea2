package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds each outbound connect attempt and the DNS
	// lookup that precedes it.
	DialTimeout time.Duration

	KeepAlive net.KeepAliveConfig
}
