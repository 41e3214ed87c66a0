package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
)

const maxDatagram = 2048

// UDP receives NMEA datagrams on a local port.
type UDP struct {
	id   string
	conn *net.UDPConn
	once sync.Once
}

// ListenUDP binds port on all interfaces. Port 0 picks a free port.
func ListenUDP(id string, port int) (*UDP, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return nil, fmt.Errorf("listen udp :%d: %w", port, err)
	}
	return &UDP{id: id, conn: conn}, nil
}

func (u *UDP) ID() string { return u.id }

func (u *UDP) Addr() *net.UDPAddr { return u.conn.LocalAddr().(*net.UDPAddr) }

// Run reads datagrams until ctx is cancelled. Closing the socket is what
// unblocks the pending read.
func (u *UDP) Run(ctx context.Context, emit func(Line)) error {
	stop := context.AfterFunc(ctx, func() { _ = u.Close() })
	defer stop()

	buf := make([]byte, maxDatagram)
	for {
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("udp %s read: %w", u.id, err)
		}
		_ = scanLines(bytes.NewReader(buf[:n]), u.id, emit)
	}
}

func (u *UDP) Close() error {
	var err error
	u.once.Do(func() { err = u.conn.Close() })
	return err
}
