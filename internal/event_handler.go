package internal

import "time"

const (
	EventTransactionStart = "TransactionStart"
	EventTransactionStop  = "TransactionStop"
	EventFirmwareStatus   = "FirmwareStatus"
	EventStationFault     = "StationFault"
)

type EventListener interface {
	OnSimulationEvent(event *EventMessage)
}

type EventMessage struct {
	Type          string    `json:"type"`
	StationId     string    `json:"station_id"`
	ConnectorId   int       `json:"connector_id"`
	Time          time.Time `json:"time"`
	IdTag         string    `json:"id_tag"`
	TransactionId int       `json:"transaction_id"`
	Status        string    `json:"status"`
	Info          string    `json:"info"`
}
