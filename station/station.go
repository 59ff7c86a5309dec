package station

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"stationsim/internal"
	"stationsim/internal/config"
	"stationsim/metrics/counters"
	"stationsim/ocpp/core"
	"stationsim/ocpp/firmware"
	"stationsim/types"
	"stationsim/utility"
)

// Station simulates one OCPP 1.6 charge point. All central-system commands
// go through Handle; station-initiated traffic goes out through the Sender.
// Timer driven simulations (firmware updates, reservation expiry, deferred
// triggers) run on their own goroutines, so state is guarded by a mutex.
type Station struct {
	id                   string
	vendor               string
	model                string
	strictCompliance     bool
	authorizeRemoteTx    bool
	reserveConnectorZero bool
	heartbeatInterval    time.Duration
	resetTime            time.Duration
	logDir               string

	firmwareStatus   firmware.Status
	firmwareFailure  firmware.Status
	firmwareReset    bool
	firmwareMinDelay int
	firmwareMaxDelay int
	firmwareUpdating bool

	bootStatus      *types.RegistrationStatus
	featureProfiles []types.FeatureProfile
	configuration   *Configuration
	connectors      map[int]*Connector
	reservations    []*Reservation
	localAuthTags   map[string]bool
	authCache       map[string]bool
	commands        map[string]command
	supported       map[string]bool

	sender   Sender
	logger   internal.LogHandler
	listener internal.EventListener
	clock    Clock
	transfer TransferDialer

	// hooks installed by the simulator runtime
	heartbeatRestart func(interval time.Duration)
	wsPingRestart    func(interval time.Duration)
	rebootHook       func()

	mux    sync.Mutex
	closed bool
}

func NewStation(conf config.Station, logger internal.LogHandler) *Station {
	s := &Station{
		id:                   conf.Id,
		vendor:               conf.Vendor,
		model:                conf.Model,
		strictCompliance:     conf.StrictCompliance,
		authorizeRemoteTx:    conf.AuthorizeRemoteTx,
		reserveConnectorZero: conf.ReserveConnectorZero,
		heartbeatInterval:    time.Duration(conf.HeartbeatInterval) * time.Second,
		resetTime:            time.Duration(conf.ResetTime) * time.Second,
		logDir:               conf.LogDir,
		firmwareStatus:       firmware.StatusInstalled,
		firmwareFailure:      firmware.Status(conf.Firmware.FailureStatus),
		firmwareReset:        conf.Firmware.Reset,
		firmwareMinDelay:     conf.Firmware.MinDelay,
		firmwareMaxDelay:     conf.Firmware.MaxDelay,
		connectors:           make(map[int]*Connector),
		localAuthTags:        make(map[string]bool),
		authCache:            make(map[string]bool),
		logger:               logger,
		sender:               noSender{},
		clock:                NewSystemClock(),
		transfer:             dialFtp,
	}
	for i := 0; i <= conf.Connectors; i++ {
		s.connectors[i] = newConnector(i)
	}
	for _, tag := range conf.LocalAuthTags {
		s.localAuthTags[tag] = true
	}
	if len(conf.FeatureProfiles) == 0 {
		s.featureProfiles = []types.FeatureProfile{types.FeatureProfileCore}
	} else {
		for _, p := range conf.FeatureProfiles {
			s.featureProfiles = append(s.featureProfiles, types.FeatureProfile(p))
		}
	}
	s.initConfiguration(conf)
	s.registerCommands()
	return s
}

func (s *Station) Id() string {
	return s.id
}

func (s *Station) SetSender(sender Sender) {
	if sender == nil {
		sender = noSender{}
	}
	s.sender = sender
}

func (s *Station) SetEventListener(listener internal.EventListener) {
	s.listener = listener
}

func (s *Station) SetClock(clock Clock) {
	s.clock = clock
}

func (s *Station) SetTransferDialer(dialer TransferDialer) {
	s.transfer = dialer
}

func (s *Station) SetHeartbeatRestart(fn func(interval time.Duration)) {
	s.heartbeatRestart = fn
}

func (s *Station) SetWebSocketPingRestart(fn func(interval time.Duration)) {
	s.wsPingRestart = fn
}

func (s *Station) SetRebootHook(fn func()) {
	s.rebootHook = fn
}

func (s *Station) Configuration() *Configuration {
	return s.configuration
}

func (s *Station) Connector(id int) *Connector {
	return s.connectors[id]
}

func (s *Station) ConnectorIds() []int {
	ids := make([]int, 0, len(s.connectors))
	for id := range s.connectors {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (s *Station) initConfiguration(conf config.Station) {
	profiles := make([]string, 0, len(s.featureProfiles))
	for _, p := range s.featureProfiles {
		profiles = append(profiles, string(p))
	}
	interval := strconv.Itoa(conf.HeartbeatInterval)
	c := NewConfiguration()
	c.Add(ConfigurationKey{Key: KeySupportedFeatureProfiles, Readonly: true, Visible: true, Value: strings.Join(profiles, ",")})
	c.Add(ConfigurationKey{Key: KeyNumberOfConnectors, Readonly: true, Visible: true, Value: strconv.Itoa(conf.Connectors)})
	c.Add(ConfigurationKey{Key: KeyHeartBeatInterval, Readonly: false, Visible: true, Value: interval})
	c.Add(ConfigurationKey{Key: KeyHeartbeatInterval, Readonly: false, Visible: false, Value: interval})
	c.Add(ConfigurationKey{Key: KeyWebSocketPingInterval, Readonly: false, Visible: true, Value: "60"})
	c.Add(ConfigurationKey{Key: KeyAuthorizeRemoteTxRequests, Readonly: true, Visible: true, Value: strconv.FormatBool(conf.AuthorizeRemoteTx)})
	c.Add(ConfigurationKey{Key: KeyConnectionTimeOut, Readonly: false, Visible: true, Value: "120"})
	c.Add(ConfigurationKey{Key: KeyLocalAuthListEnabled, Readonly: false, Visible: true, Value: strconv.FormatBool(len(conf.LocalAuthTags) > 0)})
	c.Add(ConfigurationKey{Key: KeyReserveConnectorZero, Readonly: true, Visible: true, Value: strconv.FormatBool(conf.ReserveConnectorZero)})
	c.Add(ConfigurationKey{Key: KeyChargeProfileMaxStackLevel, Readonly: true, Visible: true, Value: "8", Reboot: true})
	s.configuration = c
}

// registration state

func (s *Station) IsRegistered() bool {
	return s.bootStatus != nil && *s.bootStatus == types.RegistrationStatusAccepted
}

func (s *Station) InPendingState() bool {
	return s.bootStatus != nil && *s.bootStatus == types.RegistrationStatusPending
}

func (s *Station) InUnknownState() bool {
	return s.bootStatus == nil
}

// Boot sends a BootNotification and records the central system's verdict.
// It returns the accepted heartbeat interval, zero when not accepted.
func (s *Station) Boot() (time.Duration, error) {
	request := core.NewBootNotificationRequest(s.vendor, s.model)
	data, err := s.sender.Send(request)
	if err != nil {
		return 0, utility.Errf("boot notification: %v", err)
	}
	var response core.BootNotificationResponse
	if err = json.Unmarshal(data, &response); err != nil {
		return 0, utility.Errf("boot notification response: %v", err)
	}
	s.mux.Lock()
	status := response.Status
	s.bootStatus = &status
	if response.Interval > 0 {
		s.heartbeatInterval = time.Duration(response.Interval) * time.Second
		interval := strconv.Itoa(response.Interval)
		s.configuration.Set(KeyHeartBeatInterval, interval)
		s.configuration.Set(KeyHeartbeatInterval, interval)
	}
	s.mux.Unlock()
	s.logger.FeatureEvent(core.BootNotificationFeatureName, s.id, fmt.Sprintf("registration status: %s", response.Status))
	if status != types.RegistrationStatusAccepted {
		return 0, nil
	}
	return s.heartbeatInterval, nil
}

func (s *Station) HeartbeatInterval() time.Duration {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.heartbeatInterval
}

// Heartbeat sends a single Heartbeat request; the central system's time
// is logged but the simulator keeps its own clock.
func (s *Station) Heartbeat() error {
	data, err := s.sender.Send(&core.HeartbeatRequest{})
	if err != nil {
		return utility.Errf("heartbeat: %v", err)
	}
	var response core.HeartbeatResponse
	if err = json.Unmarshal(data, &response); err != nil {
		return utility.Errf("heartbeat response: %v", err)
	}
	if response.CurrentTime != nil {
		s.debugf("heartbeat acknowledged, central time %s", response.CurrentTime.Time.Format(time.RFC3339))
	}
	return nil
}

func (s *Station) hasFeatureProfile(profile types.FeatureProfile) bool {
	for _, p := range s.featureProfiles {
		if p == profile {
			return true
		}
	}
	return false
}

// sendAndSetConnectorStatus updates local state first and then reports the
// new status upstream. Notification failures are logged and swallowed.
func (s *Station) sendAndSetConnectorStatus(connectorId int, status core.ChargePointStatus) {
	connector, ok := s.connectors[connectorId]
	if !ok {
		return
	}
	connector.status = status
	request := core.NewStatusNotificationRequest(connectorId, status)
	request.Timestamp = types.NewDateTime(s.clock.Now())
	if _, err := s.sender.Send(request); err != nil {
		s.logger.Error(fmt.Sprintf("%s: status notification for connector %d", s.id, connectorId), err)
	}
}

// ReportFault simulates a connector fault: any running transaction is
// stopped, the connector goes Faulted and the error code is reported.
func (s *Station) ReportFault(connectorId int, errorCode core.ChargePointErrorCode) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	connector, ok := s.connectors[connectorId]
	if !ok {
		return utility.Errf("invalid connector %d", connectorId)
	}
	if connector.isTransacting() {
		if _, err := s.StopTransactionOnConnector(connectorId, core.ReasonEmergencyStop); err != nil {
			return err
		}
	}
	connector.status = core.ChargePointStatusFaulted
	request := core.NewStatusNotificationRequest(connectorId, core.ChargePointStatusFaulted)
	request.ErrorCode = errorCode
	request.Timestamp = types.NewDateTime(s.clock.Now())
	if _, err := s.sender.Send(request); err != nil {
		s.logger.Error(fmt.Sprintf("%s: status notification for connector %d", s.id, connectorId), err)
	}
	s.notifyEvent(&internal.EventMessage{
		Type:        internal.EventStationFault,
		StationId:   s.id,
		ConnectorId: connectorId,
		Time:        s.clock.Now(),
		Info:        string(errorCode),
	})
	return nil
}

// ClearFault returns a faulted connector to service.
func (s *Station) ClearFault(connectorId int) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	connector, ok := s.connectors[connectorId]
	if !ok {
		return utility.Errf("invalid connector %d", connectorId)
	}
	if connector.status != core.ChargePointStatusFaulted {
		return utility.Errf("connector %d is not faulted", connectorId)
	}
	s.sendAndSetConnectorStatus(connectorId, s.availabilityStatus(connector))
	return nil
}

// NotifyAllStatuses reports the current status of every connector,
// used right after a successful registration.
func (s *Station) NotifyAllStatuses() {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, id := range s.ConnectorIds() {
		s.sendAndSetConnectorStatus(id, s.connectors[id].status)
	}
}

// RunningTransactions counts connectors with a confirmed transaction.
func (s *Station) RunningTransactions() int {
	count := 0
	for _, c := range s.connectors {
		if c.isTransacting() {
			count++
		}
	}
	return count
}

// StopTransactionOnConnector stops the running transaction with the given
// reason and reports whether the central system accepted the stop.
func (s *Station) StopTransactionOnConnector(connectorId int, reason core.Reason) (bool, error) {
	connector, ok := s.connectors[connectorId]
	if !ok || !connector.isTransacting() || connector.transactionId == nil {
		return false, utility.Errf("no running transaction on connector %d", connectorId)
	}
	request := &core.StopTransactionRequest{
		MeterStop:     connector.meterValue,
		Timestamp:     types.NewDateTime(s.clock.Now()),
		TransactionId: *connector.transactionId,
		IdTag:         connector.transactionIdTag,
		Reason:        reason,
	}
	transactionId := *connector.transactionId
	idTag := connector.transactionIdTag
	data, err := s.sender.Send(request)
	if err != nil {
		return false, utility.Errf("stop transaction: %v", err)
	}
	var response core.StopTransactionResponse
	if err = json.Unmarshal(data, &response); err != nil {
		return false, utility.Errf("stop transaction response: %v", err)
	}
	if response.IdTagInfo != nil && response.IdTagInfo.Status != types.AuthorizationStatusAccepted {
		return false, nil
	}
	connector.endTransaction()
	s.sendAndSetConnectorStatus(connectorId, s.availabilityStatus(connector))
	counters.ObserveTransactionStop(s.id)
	counters.ObserveTransactions(s.id, s.RunningTransactions())
	s.notifyEvent(&internal.EventMessage{
		Type:          internal.EventTransactionStop,
		StationId:     s.id,
		ConnectorId:   connectorId,
		Time:          s.clock.Now(),
		IdTag:         idTag,
		TransactionId: transactionId,
		Info:          string(reason),
	})
	return true, nil
}

// availabilityStatus maps a connector's availability to the status it
// should present when idle.
func (s *Station) availabilityStatus(connector *Connector) core.ChargePointStatus {
	if connector.availability == types.AvailabilityTypeInoperative {
		return core.ChargePointStatusUnavailable
	}
	if connector.reservation != nil {
		return core.ChargePointStatusReserved
	}
	return core.ChargePointStatusAvailable
}

// startTransaction performs the full local start sequence: Preparing
// status, StartTransaction round trip, then Charging on acceptance.
func (s *Station) startTransaction(connectorId int, idTag string, remote bool) (bool, error) {
	connector, ok := s.connectors[connectorId]
	if !ok || connectorId == 0 {
		return false, utility.Errf("invalid connector %d", connectorId)
	}
	if connector.isTransacting() {
		return false, utility.Errf("connector %d already transacting", connectorId)
	}
	s.sendAndSetConnectorStatus(connectorId, core.ChargePointStatusPreparing)
	request := &core.StartTransactionRequest{
		ConnectorId: connectorId,
		IdTag:       idTag,
		MeterStart:  connector.meterValue,
		Timestamp:   types.NewDateTime(s.clock.Now()),
	}
	if connector.reservation != nil && connector.reservation.IdTag == idTag {
		reservationId := connector.reservation.Id
		request.ReservationId = &reservationId
	}
	data, err := s.sender.Send(request)
	if err != nil {
		s.sendAndSetConnectorStatus(connectorId, s.availabilityStatus(connector))
		return false, utility.Errf("start transaction: %v", err)
	}
	var response core.StartTransactionResponse
	if err = json.Unmarshal(data, &response); err != nil {
		s.sendAndSetConnectorStatus(connectorId, s.availabilityStatus(connector))
		return false, utility.Errf("start transaction response: %v", err)
	}
	if response.IdTagInfo == nil || response.IdTagInfo.Status != types.AuthorizationStatusAccepted {
		s.sendAndSetConnectorStatus(connectorId, s.availabilityStatus(connector))
		return false, nil
	}
	start := types.NewDateTime(s.clock.Now())
	connector.beginTransaction(response.TransactionId, idTag, start, remote)
	if connector.reservation != nil && connector.reservation.IdTag == idTag {
		s.consumeReservation(connector.reservation)
	}
	s.sendAndSetConnectorStatus(connectorId, core.ChargePointStatusCharging)
	counters.ObserveTransactionStart(s.id)
	counters.ObserveTransactions(s.id, s.RunningTransactions())
	s.notifyEvent(&internal.EventMessage{
		Type:          internal.EventTransactionStart,
		StationId:     s.id,
		ConnectorId:   connectorId,
		Time:          s.clock.Now(),
		IdTag:         idTag,
		TransactionId: response.TransactionId,
	})
	return true, nil
}

// StartLocalTransaction simulates a driver plugging in and presenting an
// id tag on the connector.
func (s *Station) StartLocalTransaction(connectorId int, idTag string) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	if !s.IsRegistered() {
		return utility.Err("station is not registered")
	}
	if !s.isIdTagAuthorized(idTag) {
		return utility.Errf("id tag %s not authorized", idTag)
	}
	started, err := s.startTransaction(connectorId, idTag, false)
	if err != nil {
		return err
	}
	if !started {
		return utility.Errf("transaction on connector %d not accepted", connectorId)
	}
	return nil
}

// StopLocalTransaction simulates the driver ending the charging session.
func (s *Station) StopLocalTransaction(connectorId int) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	stopped, err := s.StopTransactionOnConnector(connectorId, core.ReasonLocal)
	if err != nil {
		return err
	}
	if !stopped {
		return utility.Errf("stop on connector %d not accepted", connectorId)
	}
	return nil
}

// ConnectorSnapshot is a read-only view of one connector.
type ConnectorSnapshot struct {
	Id            int    `json:"id"`
	Status        string `json:"status"`
	Availability  string `json:"availability"`
	TransactionId *int   `json:"transaction_id,omitempty"`
	ReservationId *int   `json:"reservation_id,omitempty"`
	MeterValue    int    `json:"meter_value"`
}

// Snapshot is a read-only view of the station for the admin API.
type Snapshot struct {
	Id             string              `json:"id"`
	Registered     bool                `json:"registered"`
	FirmwareStatus string              `json:"firmware_status"`
	Connectors     []ConnectorSnapshot `json:"connectors"`
}

func (s *Station) Snapshot() Snapshot {
	s.mux.Lock()
	defer s.mux.Unlock()
	snapshot := Snapshot{
		Id:             s.id,
		Registered:     s.IsRegistered(),
		FirmwareStatus: string(s.firmwareStatus),
	}
	for _, id := range s.ConnectorIds() {
		connector := s.connectors[id]
		cs := ConnectorSnapshot{
			Id:           id,
			Status:       string(connector.status),
			Availability: string(connector.availability),
			MeterValue:   connector.meterValue,
		}
		if connector.transactionId != nil {
			transactionId := *connector.transactionId
			cs.TransactionId = &transactionId
		}
		if connector.reservation != nil {
			reservationId := connector.reservation.Id
			cs.ReservationId = &reservationId
		}
		snapshot.Connectors = append(snapshot.Connectors, cs)
	}
	return snapshot
}

// consumeReservation drops a reservation that has been used to start a
// transaction without touching connector status.
func (s *Station) consumeReservation(res *Reservation) {
	for i, r := range s.reservations {
		if r.Id == res.Id {
			s.reservations = append(s.reservations[:i], s.reservations[i+1:]...)
			break
		}
	}
	if connector, ok := s.connectors[res.ConnectorId]; ok {
		connector.reservation = nil
	}
}

// reset stops every running transaction with the given reason, drops
// registration state and schedules a reboot after the configured delay.
func (s *Station) reset(reason core.Reason) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for id, connector := range s.connectors {
		if connector.isTransacting() {
			if _, err := s.StopTransactionOnConnector(id, reason); err != nil {
				s.logger.Error(fmt.Sprintf("%s: stop transaction on reset", s.id), err)
			}
		}
	}
	s.bootStatus = nil
	s.debugf("reset with reason %s, rebooting in %s", reason, s.resetTime)
	s.clock.AfterFunc(s.resetTime, func() {
		if s.isClosed() {
			return
		}
		if s.rebootHook != nil {
			s.rebootHook()
		}
	})
}

// Teardown stops background simulations permanently.
func (s *Station) Teardown() {
	s.mux.Lock()
	s.closed = true
	s.mux.Unlock()
}

func (s *Station) isClosed() bool {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.closed
}

func (s *Station) notifyEvent(event *internal.EventMessage) {
	if s.listener != nil {
		s.listener.OnSimulationEvent(event)
	}
}

func (s *Station) debugf(format string, args ...interface{}) {
	s.logger.Debug(fmt.Sprintf("%s: %s", s.id, fmt.Sprintf(format, args...)))
}

func (s *Station) warnf(format string, args ...interface{}) {
	s.logger.Warn(fmt.Sprintf("%s: %s", s.id, fmt.Sprintf(format, args...)))
}
