package simulator

import (
	"fmt"
	"sync"
	"time"

	"stationsim/internal"
	"stationsim/internal/config"
	"stationsim/station"
	"stationsim/utility"
	"stationsim/ws"
)

const (
	reconnectDelay           = 10 * time.Second
	reservationSweepInterval = 30 * time.Second
)

// Simulator runs the configured stations, each with its own websocket
// connection, boot and heartbeat loop.
type Simulator struct {
	conf     *config.Config
	logger   internal.LogHandler
	listener internal.EventListener

	mux      sync.Mutex
	stations map[string]*stationRuntime
}

type stationRuntime struct {
	station        *station.Station
	heartbeatReset chan time.Duration
	reboot         chan struct{}
	stop           chan struct{}
	stopOnce       sync.Once
}

func New(conf *config.Config, logger internal.LogHandler) *Simulator {
	return &Simulator{
		conf:     conf,
		logger:   logger,
		stations: make(map[string]*stationRuntime),
	}
}

func (sim *Simulator) SetEventListener(listener internal.EventListener) {
	sim.listener = listener
}

// OnSimulationEvent forwards station events to the registered listener.
func (sim *Simulator) OnSimulationEvent(event *internal.EventMessage) {
	if sim.listener != nil {
		sim.listener.OnSimulationEvent(event)
	}
}

func (sim *Simulator) Start() error {
	if len(sim.conf.Stations) == 0 {
		return utility.Err("no stations configured")
	}
	for _, stationConf := range sim.conf.Stations {
		if stationConf.Id == "" {
			return utility.Err("station with empty id in configuration")
		}
		sim.startStation(stationConf)
	}
	return nil
}

func (sim *Simulator) startStation(conf config.Station) {
	st := station.NewStation(conf, sim.logger)
	st.SetEventListener(sim)
	rt := &stationRuntime{
		station:        st,
		heartbeatReset: make(chan time.Duration, 1),
		reboot:         make(chan struct{}, 1),
		stop:           make(chan struct{}),
	}
	st.SetHeartbeatRestart(func(interval time.Duration) {
		select {
		case rt.heartbeatReset <- interval:
		default:
		}
	})
	st.SetRebootHook(func() {
		select {
		case rt.reboot <- struct{}{}:
		default:
		}
	})
	sim.mux.Lock()
	sim.stations[conf.Id] = rt
	sim.mux.Unlock()
	go sim.runStation(rt)
}

// runStation is the per-station connection loop: connect, boot until
// accepted, then heartbeat until the connection drops, a reboot is
// requested or the simulator stops.
func (sim *Simulator) runStation(rt *stationRuntime) {
	st := rt.station
	for {
		select {
		case <-rt.stop:
			return
		default:
		}
		client := ws.NewClient(st.Id(), sim.conf.CentralSystem.Url, sim.logger)
		client.SetCallHandler(st)
		st.SetSender(client)
		st.SetWebSocketPingRestart(client.RestartPing)
		if err := client.Connect(); err != nil {
			sim.logger.Error(st.Id()+": connect", err)
			if sim.waitOrStop(rt, reconnectDelay) {
				return
			}
			continue
		}
		if sim.sessionLoop(rt, client) {
			client.Close()
			return
		}
		client.Close()
		if sim.waitOrStop(rt, reconnectDelay) {
			return
		}
	}
}

// sessionLoop drives one connected session; it reports true when the
// simulator is shutting down.
func (sim *Simulator) sessionLoop(rt *stationRuntime, client *ws.Client) bool {
	st := rt.station
	for {
		interval, err := st.Boot()
		if err != nil {
			sim.logger.Error(st.Id()+": boot", err)
			return false
		}
		if interval > 0 {
			break
		}
		// pending or rejected, retry after the interval the central
		// system suggested
		sim.logger.Debug(fmt.Sprintf("%s: registration not accepted, retrying in %s", st.Id(), st.HeartbeatInterval()))
		if sim.waitOrStop(rt, st.HeartbeatInterval()) {
			return true
		}
		select {
		case <-rt.reboot:
			return false
		default:
		}
	}
	st.NotifyAllStatuses()
	heartbeat := time.NewTicker(st.HeartbeatInterval())
	defer heartbeat.Stop()
	sweep := time.NewTicker(reservationSweepInterval)
	defer sweep.Stop()
	for {
		select {
		case <-rt.stop:
			return true
		case <-rt.reboot:
			sim.logger.Debug(st.Id() + ": rebooting")
			return false
		case interval := <-rt.heartbeatReset:
			heartbeat.Reset(interval)
		case <-sweep.C:
			st.SweepReservations()
		case <-heartbeat.C:
			if err := st.Heartbeat(); err != nil {
				sim.logger.Error(st.Id()+": heartbeat", err)
				return false
			}
		}
	}
}

func (sim *Simulator) waitOrStop(rt *stationRuntime, d time.Duration) bool {
	select {
	case <-rt.stop:
		return true
	case <-time.After(d):
		return false
	}
}

func (sim *Simulator) Stop() {
	sim.mux.Lock()
	defer sim.mux.Unlock()
	for _, rt := range sim.stations {
		rt.stopOnce.Do(func() {
			close(rt.stop)
		})
		rt.station.Teardown()
	}
}

// Station returns the running station with the given id, nil when unknown.
func (sim *Simulator) Station(id string) *station.Station {
	sim.mux.Lock()
	defer sim.mux.Unlock()
	if rt, ok := sim.stations[id]; ok {
		return rt.station
	}
	return nil
}

func (sim *Simulator) StationIds() []string {
	sim.mux.Lock()
	defer sim.mux.Unlock()
	ids := make([]string, 0, len(sim.stations))
	for id := range sim.stations {
		ids = append(ids, id)
	}
	return ids
}
