package timing

import (
	"errors"
	"time"

	"github.com/covertchan/go_covert_channels/controller/config"
	"github.com/covertchan/go_covert_channels/controller/trace"
)

type ConfigClient struct {
	FriendIP      config.IPV4Param
	OriginIP      config.IPV4Param
	FriendPort    config.U16Param
	OriginPort    config.U16Param
	Bit0Delay     config.F64Param
	Bit1Delay     config.F64Param
	Threshold     config.F64Param
	MinSeparation config.F64Param
	ReadTimeout   config.U64Param
	WriteTimeout  config.U64Param
	LogUnits      config.BoolParam
}

func GetDefault() ConfigClient {
	return ConfigClient{
		FriendIP:      config.MakeIPV4("127.0.0.1", config.Display{Description: "Your friends IP Address."}),
		OriginIP:      config.MakeIPV4("127.0.0.1", config.Display{Description: "Your IP Address."}),
		FriendPort:    config.MakeU16(9999, [2]uint16{0, 65535}, config.Display{Description: "Your friends Port."}),
		OriginPort:    config.MakeU16(9998, [2]uint16{0, 65535}, config.Display{Description: "Your Port."}),
		Bit0Delay:     config.MakeF64(0.1, [2]float64{0, 60}, config.Display{Description: "The delay in seconds before a unit carrying a 0 bit."}),
		Bit1Delay:     config.MakeF64(0.2, [2]float64{0, 60}, config.Display{Description: "The delay in seconds before a unit carrying a 1 bit."}),
		Threshold:     config.MakeF64(0.15, [2]float64{0, 60}, config.Display{Description: "The gap length in seconds at or above which a unit decodes as a 1 bit."}),
		MinSeparation: config.MakeF64(0.05, [2]float64{0, 60}, config.Display{Description: "The minimum required distance in seconds between the two delays, as a jitter margin."}),
		ReadTimeout:   config.MakeU64(0, [2]uint64{0, 65535}, config.Display{Description: "The inter packet Read Timeout in milliseconds."}),
		WriteTimeout:  config.MakeU64(0, [2]uint64{0, 65535}, config.Display{Description: "The Write Timeout in milliseconds."}),
		LogUnits:      config.MakeBool(false, config.Display{Description: "Whether to log per unit gap measurements to timing_units.csv."}),
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
	c.FriendPort = cc.FriendPort.Value
	c.OriginPort = cc.OriginPort.Value

	c.Bit0Delay = secondsToDuration(cc.Bit0Delay.Value)
	c.Bit1Delay = secondsToDuration(cc.Bit1Delay.Value)
	c.Threshold = secondsToDuration(cc.Threshold.Value)
	c.MinSeparation = secondsToDuration(cc.MinSeparation.Value)

	c.ReadTimeout = time.Duration(cc.ReadTimeout.Value) * time.Millisecond
	c.WriteTimeout = time.Duration(cc.WriteTimeout.Value) * time.Millisecond

	if cc.LogUnits.Value {
		if c.Trace, err = trace.NewFileWriter("timing_units.csv"); err != nil {
			return nil, errors.New("Could not create unit log: " + err.Error())
		}
	}

	return MakeChannel(c)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
