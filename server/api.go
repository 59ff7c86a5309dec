package server

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"stationsim/internal"
	"stationsim/internal/config"
	"stationsim/ocpp/core"
	"stationsim/simulator"
)

const defaultLogLimit = 100

// Api exposes the running stations for inspection and lets an operator
// start and stop local transactions.
type Api struct {
	conf       *config.Config
	httpServer *http.Server
	sim        *simulator.Simulator
	logStore   internal.LogStore
	logger     internal.LogHandler
}

type transactionCommand struct {
	ConnectorId int    `json:"connector_id"`
	IdTag       string `json:"id_tag"`
}

type faultCommand struct {
	ConnectorId int    `json:"connector_id"`
	ErrorCode   string `json:"error_code"`
}

func NewApi(conf *config.Config, sim *simulator.Simulator, logger internal.LogHandler) *Api {
	api := Api{
		conf:   conf,
		sim:    sim,
		logger: logger,
	}
	router := httprouter.New()
	router.GET("/api/stations", api.listStations)
	router.GET("/api/stations/:id", api.stationState)
	router.POST("/api/stations/:id/start", api.startTransaction)
	router.POST("/api/stations/:id/stop", api.stopTransaction)
	router.POST("/api/stations/:id/fault", api.reportFault)
	router.POST("/api/stations/:id/fault/clear", api.clearFault)
	router.GET("/api/log", api.readLog)
	api.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", conf.Api.BindIP, conf.Api.Port),
		Handler: router,
	}
	return &api
}

func (a *Api) SetLogStore(store internal.LogStore) {
	a.logStore = store
}

func (a *Api) Start() error {
	if !a.conf.Api.Enabled {
		return nil
	}
	a.logger.Debug("starting api server on " + a.httpServer.Addr)
	if a.conf.Api.TLS {
		cert, err := tls.LoadX509KeyPair(a.conf.Api.CertFile, a.conf.Api.KeyFile)
		if err != nil {
			return fmt.Errorf("api: failed to load certificate: %v", err)
		}
		a.httpServer.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return a.httpServer.ListenAndServeTLS("", "")
	}
	return a.httpServer.ListenAndServe()
}

func (a *Api) listStations(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	a.writeJSON(w, a.sim.StationIds())
}

func (a *Api) stationState(w http.ResponseWriter, _ *http.Request, params httprouter.Params) {
	st := a.sim.Station(params.ByName("id"))
	if st == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	a.writeJSON(w, st.Snapshot())
}

func (a *Api) startTransaction(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	st := a.sim.Station(params.ByName("id"))
	if st == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var cmd transactionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		a.logger.Warn(fmt.Sprintf("api: error parsing command from %s: %s", r.RemoteAddr, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := st.StartLocalTransaction(cmd.ConnectorId, cmd.IdTag); err != nil {
		a.logger.Error("api: start transaction", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *Api) stopTransaction(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	st := a.sim.Station(params.ByName("id"))
	if st == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var cmd transactionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		a.logger.Warn(fmt.Sprintf("api: error parsing command from %s: %s", r.RemoteAddr, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := st.StopLocalTransaction(cmd.ConnectorId); err != nil {
		a.logger.Error("api: stop transaction", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *Api) reportFault(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	st := a.sim.Station(params.ByName("id"))
	if st == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var cmd faultCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		a.logger.Warn(fmt.Sprintf("api: error parsing command from %s: %s", r.RemoteAddr, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	errorCode := core.ChargePointErrorCode(cmd.ErrorCode)
	if errorCode == "" {
		errorCode = core.OtherError
	}
	if err := st.ReportFault(cmd.ConnectorId, errorCode); err != nil {
		a.logger.Error("api: report fault", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *Api) clearFault(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	st := a.sim.Station(params.ByName("id"))
	if st == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var cmd faultCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		a.logger.Warn(fmt.Sprintf("api: error parsing command from %s: %s", r.RemoteAddr, err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := st.ClearFault(cmd.ConnectorId); err != nil {
		a.logger.Error("api: clear fault", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *Api) readLog(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if a.logStore == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	limit := int64(defaultLogLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	messages, err := a.logStore.ReadLog(limit)
	if err != nil {
		a.logger.Error("api: read log", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	a.writeJSON(w, messages)
}

func (a *Api) writeJSON(w http.ResponseWriter, value interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(value); err != nil {
		a.logger.Error("api: encoding response", err)
	}
}
