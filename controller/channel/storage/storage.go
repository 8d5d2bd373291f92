package storage

import (
	"bytes"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"golang.org/x/net/ipv4"

	"github.com/covertchan/go_covert_channels/controller/channel"
	"github.com/covertchan/go_covert_channels/controller/channel/embedders"
	"github.com/covertchan/go_covert_channels/controller/trace"
)

type Config struct {
	FriendIP          [4]byte
	OriginIP          [4]byte
	FriendReceivePort uint16
	OriginReceivePort uint16
	// The TTL set on every channel packet. The receiver drops any
	// packet without this marker, which separates channel traffic
	// from ordinary system packets on the same path.
	TTLMarker uint8
	// The header field embedder. Defaults to the IPv4 ID encoder.
	Encoder embedders.FieldEncoder
	// A function to retrieve a delay between sent packets. The
	// channel itself mandates no gap; by default packets are emitted
	// as fast as the transport accepts them.
	GetDelay func() time.Duration

	// Timeouts for reads and writes. Set zero for no timeout.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Optional per unit measurement log for offline analysis
	Trace *trace.Writer
}

// A covert channel that hides one message byte per packet in an IPv4
// header field, leaving the packet payload untouched. Decoding is
// deterministic given in-order delivery; only middleboxes that
// rewrite the field can corrupt it.
type Channel struct {
	conf        Config
	rawConn     *ipv4.RawConn
	writeCancel chan interface{}
}

// Create the covert channel, filling in the field encoder with the
// default if none is provided and verifying the field can hold a
// full byte.
func MakeChannel(conf Config) (*Channel, error) {
	c := &Channel{conf: conf, writeCancel: make(chan interface{})}
	if c.conf.Encoder == nil {
		c.conf.Encoder = &embedders.IDEncoder{}
	}
	if w := c.conf.Encoder.FieldWidth(); w < 8 {
		return nil, &channel.InvalidConfiguration{Reason: "field width of " + strconv.Itoa(w) + " bits cannot hold a full byte"}
	}
	if c.conf.TTLMarker == 0 {
		c.conf.TTLMarker = 42
	}

	// ip network with udp protocol
	conn, err := net.ListenPacket("ip4:17", "0.0.0.0")
	if err != nil {
		return nil, err
	}

	c.rawConn, err = ipv4.NewRawConn(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return c, nil
}

// Send a covert message.
// The message is framed with its 16 bit length; each framed byte is
// embedded into the header field of one UDP/IP packet carrying an
// empty payload. We return the number of message bytes fully emitted
// even if an error cuts the session short.
func (c *Channel) Send(data []byte) (uint64, error) {

	framed, err := embedders.Frame(data)
	if err != nil {
		return 0, err
	}

	var sent int
	for i, b := range framed {
		h := createIPHeader(c.conf.OriginIP, c.conf.FriendIP, c.conf.TTLMarker)
		h, err = c.conf.Encoder.SetByte(h, b)
		if err != nil {
			return payloadBytes(sent), err
		}

		p, err := createUDPHeadBuf(c.conf.OriginIP, c.conf.FriendIP, c.conf.OriginReceivePort, c.conf.FriendReceivePort)
		if err != nil {
			return payloadBytes(sent), err
		}

		cm := createCM(c.conf.OriginIP, c.conf.FriendIP, c.conf.TTLMarker)
		if err = c.writeConn(&h, p, &cm); err != nil {
			return payloadBytes(sent), err
		}

		c.conf.Trace.Log(trace.Record{
			Index:   uint64(i),
			Symbol:  b,
			Signal:  float64(h.ID),
			Decoded: b,
		})
		sent++

		var wait time.Duration
		if c.conf.GetDelay != nil {
			wait = c.conf.GetDelay()
		}
		select {
		case <-time.After(wait):
		case <-c.writeCancel:
			return payloadBytes(sent), &channel.WriteCancel{}
		}
	}
	c.conf.Trace.Flush()

	return uint64(len(data)), nil
}

// Receive a covert message.
// data is a buffer for the message. Packets are filtered by source
// and destination address, the TTL marker, and the expected UDP
// ports; anything else on the raw socket is ignored. The raw socket
// can deliver a packet more than once on loopback, so a unit whose
// full field value repeats the previous one is dropped (the encoder
// randomizes the unused field bits to keep genuine repeats distinct).
// The first two accepted units carry the message length.
// We return the number of bytes received even if an error is
// encountered, in which case data holds the valid bytes up to that
// point.
func (c *Channel) Receive(data []byte) (uint64, error) {

	var (
		buf      [1024]byte
		received []byte
		first    bool = true
		prevID   int
		msgLen   int = -1
		index    uint64
		prevPacketTime time.Time = time.Now()
	)

	for {
		h, p, _, err := c.readConn(buf[:])
		if err != nil {
			return c.finish(data, received, msgLen, err)
		}

		if !bytes.Equal(h.Src.To4(), net.IP(c.conf.FriendIP[:])) ||
			!bytes.Equal(h.Dst.To4(), net.IP(c.conf.OriginIP[:])) ||
			h.TTL != int(c.conf.TTLMarker) {
			if c.conf.ReadTimeout > 0 && time.Now().Sub(prevPacketTime) > c.conf.ReadTimeout {
				return c.finish(data, received, msgLen, errors.New("Covert Packet Timeout"))
			}
			continue
		}

		udph := layers.UDP{}
		if err := udph.DecodeFromBytes(p, gopacket.NilDecodeFeedback); err != nil {
			continue
		}
		if udph.SrcPort != layers.UDPPort(c.conf.FriendReceivePort) ||
			udph.DstPort != layers.UDPPort(c.conf.OriginReceivePort) {
			continue
		}

		// Drop raw socket duplicates
		if !first && h.ID == prevID {
			continue
		}
		first = false
		prevID = h.ID
		prevPacketTime = time.Now()

		b, err := c.conf.Encoder.GetByte(*h)
		if err != nil {
			return c.finish(data, received, msgLen, err)
		}
		received = append(received, b)
		c.conf.Trace.Log(trace.Record{
			Index:   index,
			Symbol:  b,
			Signal:  float64(h.ID),
			Decoded: b,
		})
		index++

		if msgLen < 0 && len(received) == embedders.LengthPrefixSize {
			if msgLen, err = embedders.ParseLength(received); err != nil {
				return c.finish(data, received, msgLen, err)
			}
			received = received[:0]
			if msgLen == 0 {
				return c.finish(data, received, msgLen, nil)
			}
		} else if msgLen >= 0 && len(received) == msgLen {
			return c.finish(data, received, msgLen, nil)
		}
	}
}

// Copy the decoded payload out and account for truncation.
// Before the length prefix completes no payload bytes exist.
func (c *Channel) finish(data, received []byte, msgLen int, err error) (uint64, error) {
	c.conf.Trace.Flush()
	var payload []byte
	if msgLen >= 0 {
		payload = received
	}
	n := copy(data, payload)
	if err != nil {
		return uint64(n), err
	}
	if n < msgLen {
		return uint64(n), errors.New("Receive buffer full: message of " + strconv.Itoa(msgLen) + " bytes truncated to " + strconv.Itoa(n))
	}
	return uint64(n), nil
}

// Closes the covert channel.
// A Send blocked in an inter packet delay returns with a WriteCancel
// error; a blocked Receive returns with the socket close error.
func (c *Channel) Close() error {
	select {
	case <-c.writeCancel:
	default:
		close(c.writeCancel)
	}
	err := c.rawConn.Close()
	if terr := c.conf.Trace.Close(); err == nil {
		err = terr
	}
	return err
}

// Read from the raw connection while setting a timeout if necessary
func (c *Channel) readConn(buf []byte) (*ipv4.Header, []byte, *ipv4.ControlMessage, error) {
	if c.conf.ReadTimeout > 0 {
		c.rawConn.SetReadDeadline(time.Now().Add(c.conf.ReadTimeout))
	} else {
		// A deadline of zero means never timeout
		c.rawConn.SetReadDeadline(time.Time{})
	}
	return c.rawConn.ReadFrom(buf)
}

// Write to the raw connection while setting a timeout if necessary
func (c *Channel) writeConn(h *ipv4.Header, p []byte, cm *ipv4.ControlMessage) error {
	if c.conf.WriteTimeout > 0 {
		c.rawConn.SetWriteDeadline(time.Now().Add(c.conf.WriteTimeout))
	} else {
		c.rawConn.SetWriteDeadline(time.Time{})
	}
	return c.rawConn.WriteTo(h, p, cm)
}

// Creates the ip header message.
// Every attribute other than the embedded field and the TTL marker is
// a transport default, so the carrier is indistinguishable from an
// ordinary empty datagram.
func createIPHeader(sip, dip [4]byte, ttl uint8) ipv4.Header {
	return ipv4.Header{
		Version:  4,
		Len:      20,
		TOS:      0,
		TotalLen: 28,
		FragOff:  0,
		TTL:      int(ttl),
		Protocol: 17,
		Src:      sip[:],
		Dst:      dip[:],
	}
}

// Creates the control message
func createCM(sip, dip [4]byte, ttl uint8) ipv4.ControlMessage {
	return ipv4.ControlMessage{
		TTL:     int(ttl),
		Src:     sip[:],
		Dst:     dip[:],
		IfIndex: 0,
	}
}

// Create the UDP header IP payload with a computed checksum and no
// data bytes
func createUDPHeadBuf(sip, dip [4]byte, sport, dport uint16) ([]byte, error) {
	iph := layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: 17,
		SrcIP:    sip[:],
		DstIP:    dip[:],
	}

	udph := layers.UDP{
		SrcPort: layers.UDPPort(sport),
		DstPort: layers.UDPPort(dport),
	}

	if err := udph.SetNetworkLayerForChecksum(&iph); err != nil {
		return nil, err
	}

	sb := gopacket.NewSerializeBuffer()
	op := gopacket.SerializeOptions{
		ComputeChecksums: true,
		FixLengths:       true,
	}

	if err := udph.SerializeTo(sb, op); err != nil {
		return nil, err
	}

	return sb.Bytes(), nil
}

// Convert a count of emitted framed bytes into fully sent message
// bytes, excluding the length prefix units.
func payloadBytes(sent int) uint64 {
	n := sent - embedders.LengthPrefixSize
	if n < 0 {
		n = 0
	}
	return uint64(n)
}
