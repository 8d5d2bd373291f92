package timing

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/covertchan/go_covert_channels/controller/channel"
	"github.com/covertchan/go_covert_channels/controller/channel/embedders"
	"github.com/covertchan/go_covert_channels/controller/trace"
)

// The carrier payload for every unit. The datagram content is
// constant so the payload channel carries nothing; all information
// lives in the inter packet gaps.
var unitPayload = []byte{'X'}

type Config struct {
	FriendIP   [4]byte
	OriginIP   [4]byte
	FriendPort uint16
	OriginPort uint16

	// The delay to wait before emitting a unit carrying a 0 or a 1,
	// and the receiver's decision boundary between them.
	// The configuration is fixed for the session; there is no
	// adaptive recalibration.
	Bit0Delay time.Duration
	Bit1Delay time.Duration
	Threshold time.Duration
	// The minimum required distance between the two delays,
	// representing the jitter expected on the path
	MinSeparation time.Duration

	// Inter packet timeouts. Set zero for no timeout.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Optional per unit measurement log for offline analysis
	Trace *trace.Writer
}

// A covert channel that modulates the delay before each UDP datagram.
// One datagram carries one bit. Both peers must hold identical delay
// and threshold values; a mismatch decodes silently wrong rather than
// producing an error.
type Channel struct {
	conf        Config
	enc         embedders.TemporalEncoder
	conn        *net.UDPConn
	writeCancel chan interface{}
}

// Create the covert channel, validating the delay configuration
// before any unit can be sent. The UDP socket is bound immediately so
// that a receiver does not miss early units.
func MakeChannel(conf Config) (*Channel, error) {
	c := &Channel{
		conf: conf,
		enc: embedders.TemporalEncoder{
			Bit0Delay: conf.Bit0Delay,
			Bit1Delay: conf.Bit1Delay,
			Threshold: conf.Threshold,
		},
		writeCancel: make(chan interface{}),
	}

	if err := c.enc.Validate(conf.MinSeparation); err != nil {
		return nil, &channel.InvalidConfiguration{Reason: err.Error()}
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{
		IP:   net.IP(c.conf.OriginIP[:]),
		Port: int(c.conf.OriginPort),
	})
	if err != nil {
		return nil, err
	}
	c.conn = conn

	return c, nil
}

// Send a covert message.
// The message is framed with its 16 bit length and expanded to bits.
// The first unit is emitted immediately and establishes the
// receiver's time origin; it encodes no bit. Each subsequent unit is
// emitted after waiting the delay for its bit on a monotonic timer.
// Units are strictly sequential, as any batching would destroy the
// encoded gaps.
// We return the number of message bytes fully emitted even if an
// error cuts the session short.
func (c *Channel) Send(data []byte) (uint64, error) {

	framed, err := embedders.Frame(data)
	if err != nil {
		return 0, err
	}
	bits := embedders.ExpandBits(framed)

	dst := &net.UDPAddr{
		IP:   net.IP(c.conf.FriendIP[:]),
		Port: int(c.conf.FriendPort),
	}

	// Time origin unit
	if err := c.writeUnit(dst); err != nil {
		return 0, err
	}

	var sent int
	for i, b := range bits {
		wait, err := c.enc.SetBit(b)
		if err != nil {
			return payloadBytes(sent), err
		}
		// We wait for the bit's delay or until the user cancels
		select {
		case <-time.After(wait):
		case <-c.writeCancel:
			return payloadBytes(sent), &channel.WriteCancel{}
		}
		if err := c.writeUnit(dst); err != nil {
			return payloadBytes(sent), err
		}
		c.conf.Trace.Log(trace.Record{
			Index:   uint64(i),
			Symbol:  b,
			Signal:  wait.Seconds(),
			Decoded: b,
		})
		sent++
	}
	c.conf.Trace.Flush()

	return uint64(len(data)), nil
}

// Receive a covert message.
// data is a buffer for the message. The first arriving unit only
// establishes the time origin. The next 16 bits carry the message
// length, after which exactly 8*length further bits are decoded.
// We return the number of bytes received even if an error is
// encountered, in which case data holds the valid bytes up to that
// point.
func (c *Channel) Receive(data []byte) (uint64, error) {

	// Time origin unit
	if err := c.readUnit(); err != nil {
		return 0, err
	}
	prev := time.Now()

	prefixBits, prev, err := c.readBits(embedders.LengthPrefixSize*8, prev, 0)
	if err != nil {
		return 0, err
	}
	prefix, err := embedders.CollapseBits(prefixBits)
	if err != nil {
		return 0, err
	}
	msgLen, err := embedders.ParseLength(prefix)
	if err != nil {
		return 0, err
	}

	payloadBits, _, err := c.readBits(msgLen*8, prev, uint64(len(prefixBits)))
	// Decode whatever whole bytes arrived, even on error
	payloadBits = payloadBits[:len(payloadBits)-len(payloadBits)%8]
	payload, derr := embedders.CollapseBits(payloadBits)
	if err == nil {
		err = derr
	}

	n := copy(data, payload)
	c.conf.Trace.Flush()

	if err != nil {
		return uint64(n), err
	}
	if n < msgLen {
		return uint64(n), errors.New("Receive buffer full: message of " + strconv.Itoa(msgLen) + " bytes truncated to " + strconv.Itoa(n))
	}
	return uint64(n), nil
}

// Closes the covert channel.
// A Send blocked in an inter unit wait returns with a WriteCancel
// error; a blocked Receive returns with the socket close error.
func (c *Channel) Close() error {
	select {
	case <-c.writeCancel:
	default:
		close(c.writeCancel)
	}
	err := c.conn.Close()
	if terr := c.conf.Trace.Close(); err == nil {
		err = terr
	}
	return err
}

// Read count bits, timestamping each arrival and classifying the gap
// from the previous unit against the threshold. baseIndex offsets the
// unit indices recorded in the measurement log.
func (c *Channel) readBits(count int, prev time.Time, baseIndex uint64) ([]byte, time.Time, error) {
	bits := make([]byte, 0, count)
	for i := 0; i < count; i++ {
		if err := c.readUnit(); err != nil {
			return bits, prev, err
		}
		now := time.Now()
		gap := now.Sub(prev)
		prev = now

		b, err := c.enc.GetBit(gap)
		if err != nil {
			return bits, prev, err
		}
		bits = append(bits, b)
		c.conf.Trace.Log(trace.Record{
			Index:   baseIndex + uint64(i),
			Symbol:  b,
			Signal:  gap.Seconds(),
			Decoded: b,
		})
	}
	return bits, prev, nil
}

// Read one carrier unit from the expected peer, skipping datagrams
// from any other source without consuming a bit.
func (c *Channel) readUnit() error {
	var buf [64]byte
	for {
		if c.conf.ReadTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.conf.ReadTimeout))
		} else {
			// A deadline of zero means never timeout
			c.conn.SetReadDeadline(time.Time{})
		}
		_, addr, err := c.conn.ReadFromUDP(buf[:])
		if err != nil {
			return err
		}
		if addr.IP.Equal(net.IP(c.conf.FriendIP[:])) && addr.Port == int(c.conf.FriendPort) {
			return nil
		}
	}
}

func (c *Channel) writeUnit(dst *net.UDPAddr) error {
	if c.conf.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.conf.WriteTimeout))
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
	_, err := c.conn.WriteToUDP(unitPayload, dst)
	return err
}

// Convert a count of emitted payload bits into fully sent message
// bytes, excluding the length prefix units.
func payloadBytes(bitsSent int) uint64 {
	n := bitsSent/8 - embedders.LengthPrefixSize
	if n < 0 {
		n = 0
	}
	return uint64(n)
}
