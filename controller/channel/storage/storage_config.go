package storage

import (
	"errors"
	"time"

	"github.com/covertchan/go_covert_channels/controller/channel/embedders"
	"github.com/covertchan/go_covert_channels/controller/config"
	"github.com/covertchan/go_covert_channels/controller/trace"
)

type ConfigClient struct {
	FriendIP          config.IPV4Param
	OriginIP          config.IPV4Param
	FriendReceivePort config.U16Param
	OriginReceivePort config.U16Param
	TTLMarker         config.U8Param
	Encoder           config.SelectParam
	ReadTimeout       config.U64Param
	WriteTimeout      config.U64Param
	LogUnits          config.BoolParam
}

func GetDefault() ConfigClient {
	return ConfigClient{
		FriendIP:          config.MakeIPV4("127.0.0.1", config.Display{Description: "Your friends IP Address."}),
		OriginIP:          config.MakeIPV4("127.0.0.1", config.Display{Description: "Your IP Address."}),
		FriendReceivePort: config.MakeU16(9999, [2]uint16{0, 65535}, config.Display{Description: "Your friends Port."}),
		OriginReceivePort: config.MakeU16(9998, [2]uint16{0, 65535}, config.Display{Description: "Your Port."}),
		TTLMarker:         config.MakeU8(42, [2]uint8{1, 255}, config.Display{Description: "The TTL marker distinguishing channel packets from system traffic."}),
		Encoder:           config.MakeSelect("id", []string{"id"}, config.Display{Description: "The header field used to hide each message byte."}),
		ReadTimeout:       config.MakeU64(0, [2]uint64{0, 65535}, config.Display{Description: "The inter packet Read Timeout in milliseconds."}),
		WriteTimeout:      config.MakeU64(0, [2]uint64{0, 65535}, config.Display{Description: "The Write Timeout in milliseconds."}),
		LogUnits:          config.MakeBool(false, config.Display{Description: "Whether to log per unit field values to storage_units.csv."}),
	}
}

func ToChannel(cc ConfigClient) (*Channel, error) {
	var c Config
	var err error
	if c.FriendIP, err = cc.FriendIP.GetValue(); err != nil {
		return nil, errors.New("Invalid FriendIP value")
	}
	if c.OriginIP, err = cc.OriginIP.GetValue(); err != nil {
		return nil, errors.New("Invalid OriginIP value")
	}
	c.FriendReceivePort = cc.FriendReceivePort.Value
	c.OriginReceivePort = cc.OriginReceivePort.Value
	c.TTLMarker = cc.TTLMarker.Value

	c.ReadTimeout = time.Duration(cc.ReadTimeout.Value) * time.Millisecond
	c.WriteTimeout = time.Duration(cc.WriteTimeout.Value) * time.Millisecond

	switch cc.Encoder.Value {
	case "id":
		c.Encoder = &embedders.IDEncoder{}
	default:
		return nil, errors.New("Invalid encoder value")
	}

	if cc.LogUnits.Value {
		if c.Trace, err = trace.NewFileWriter("storage_units.csv"); err != nil {
			return nil, errors.New("Could not create unit log: " + err.Error())
		}
	}

	return MakeChannel(c)
}
