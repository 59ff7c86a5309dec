package station

import (
	"encoding/json"

	"stationsim/ocpp"
	"stationsim/utility"
)

// Sender delivers a station-initiated request to the central system and
// blocks until the matching result arrives. The websocket client is the
// production implementation; tests plug in a scripted fake.
type Sender interface {
	Send(request ocpp.Request) (json.RawMessage, error)
}

// noSender is the sender of a station whose connection loop has not
// installed a client yet. Every send fails without reaching the network.
type noSender struct{}

func (noSender) Send(_ ocpp.Request) (json.RawMessage, error) {
	return nil, utility.Err("not connected")
}
