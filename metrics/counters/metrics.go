package counters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connectionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "simulator",
	Name:      "connections_active",
	Help:      "Number of stations with an open ws connection",
}, []string{"station_id"})

var activeTransactionsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "simulator",
	Name:      "transactions_active",
	Help:      "Number of running transactions per station",
}, []string{"station_id"})

var commandCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "command_count",
	Help:      "Total number of handled central system commands by outcome.",
}, []string{"station_id", "action", "outcome"})

var transactionCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ocpp",
	Name:      "transaction_count",
	Help:      "Total number of started and stopped transactions.",
}, []string{"station_id", "event"})

var firmwareStatusCounts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "simulator",
	Name:      "firmware_updates_total",
	Help:      "Total number of firmware update simulations by final status.",
}, []string{"station_id", "status"})

func ObserveConnection(stationId string, connected bool) {
	if len(stationId) == 0 {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	connectionsGauge.With(prometheus.Labels{"station_id": stationId}).Set(value)
}

func ObserveTransactions(stationId string, count int) {
	if len(stationId) == 0 {
		return
	}
	activeTransactionsGauge.With(prometheus.Labels{"station_id": stationId}).Set(float64(count))
}

func ObserveCommand(stationId, action, outcome string) {
	if len(stationId) == 0 || len(action) == 0 {
		return
	}
	commandCounts.With(prometheus.Labels{"station_id": stationId, "action": action, "outcome": outcome}).Inc()
}

func ObserveTransactionStart(stationId string) {
	if len(stationId) == 0 {
		return
	}
	transactionCounts.With(prometheus.Labels{"station_id": stationId, "event": "start"}).Inc()
}

func ObserveTransactionStop(stationId string) {
	if len(stationId) == 0 {
		return
	}
	transactionCounts.With(prometheus.Labels{"station_id": stationId, "event": "stop"}).Inc()
}

func ObserveFirmwareStatus(stationId, status string) {
	if len(stationId) == 0 || len(status) == 0 {
		return
	}
	firmwareStatusCounts.With(prometheus.Labels{"station_id": stationId, "status": status}).Inc()
}
