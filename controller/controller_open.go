package controller

import (
	"encoding/json"
	"errors"

	"github.com/covertchan/go_covert_channels/controller/channel"
	"github.com/covertchan/go_covert_channels/controller/channel/storage"
	"github.com/covertchan/go_covert_channels/controller/channel/timing"
	"github.com/covertchan/go_covert_channels/controller/config"
)

// Function for opening a covert channel
// Input is the byte string representing a JSON object with the configuration for the channel
func (ctr *Controller) handleOpen(data []byte) error {
	if l, err := ctr.retrieveLayers(data); err == nil {
		ctr.layers = l
		return nil
	} else {
		return err
	}
}

// Retrieve the layer entities that make up the covert channel
func (ctr *Controller) retrieveLayers(data []byte) (*Layers, error) {
	var (
		readCd configData = DefaultConfig()
		c      channel.Channel
		cconf  *channelConfig
		err    error
	)

	// Copy the current values so that they are filled in if some
	// keys are omitted from the incoming JSON
	readCd.Channel.Type = ctr.config.Channel.Type
	if err := config.CopyValueSet(&readCd.Channel.Data, ctr.config.Channel.Data, nil); err != nil {
		return nil, err
	}
	// Read in the new config data
	if err := json.Unmarshal(data, &readCd); err != nil {
		return nil, err
	}

	if c, cconf, err = ctr.retrieveChannel(readCd.Channel); err != nil {
		return nil, err
	}
	// Only the Channel field may be modified
	ctr.config.Channel = *cconf

	return &Layers{channel: c, readClose: make(chan interface{}), readCloseDone: make(chan interface{})}, nil
}

// Retrieve the channel entity
// cconf holds the type of channel and the configuration struct JSON
func (ctr *Controller) retrieveChannel(cconf channelConfig) (channel.Channel, *channelConfig, error) {
	var (
		c       channel.Channel
		newConf channelConfig
		err     error
	)
	// We must retrieve the default channel to retrieve the correct ranges
	newConf.Data = defaultChannel()
	// We create a new config and move only the new values to it
	// That way we don't override any descriptions or ranges
	newConf.Type = cconf.Type
	if err = config.CopyValueSet(&newConf.Data, cconf.Data, []string{newConf.Type}); err != nil {
		return nil, nil, err
	}

	if err = config.ValidateConfigSet(&newConf.Data); err != nil {
		return nil, nil, err
	}

	switch newConf.Type {
	case "Timing":
		if c, err = timing.ToChannel(newConf.Data.Timing); err != nil {
			return nil, nil, err
		}
	case "Storage":
		if c, err = storage.ToChannel(newConf.Data.Storage); err != nil {
			return nil, nil, err
		}
	default:
		err = errors.New("Invalid Channel Type")
	}
	return c, &newConf, err
}
