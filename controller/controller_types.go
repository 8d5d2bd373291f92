package controller

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/covertchan/go_covert_channels/controller/channel"
	"github.com/covertchan/go_covert_channels/controller/channel/storage"
	"github.com/covertchan/go_covert_channels/controller/channel/timing"
)

// The go json library has this really convenient feature
// where if given a json string and a structure,
// it will only decode the values with keys in both json string
// and the structure
// This allows for selective unmarshalling i.e. unmarshal once
// to get the type, and then unmarshal a second time to get the
// data. This protects against having to always use the same
// struct for communication
type command struct {
	OpCode string
}

type messageType struct {
	OpCode  string
	Message string
}

type configData struct {
	OpCode  string
	Default channelData
	Channel channelConfig
}

type channelConfig struct {
	Type string
	Data channelData
}

type channelData struct {
	Timing  timing.ConfigClient
	Storage storage.ConfigClient
}

type Layers struct {
	channel channel.Channel

	// Chans for handling closing of the covert channel
	readClose     chan interface{}
	readCloseDone chan interface{}
}

type Controller struct {
	config     configData
	layers     *Layers
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	clientLock sync.Mutex
	waitGroup  sync.WaitGroup
	clientStop chan interface{}
	recvStop   chan interface{}
	sendStop   chan interface{}
	doneWsSend chan interface{}
	doneWsRecv chan interface{}
	wsSend     chan []byte
	wsRecv     chan []byte
}
