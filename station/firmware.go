package station

import (
	"fmt"
	"time"

	"stationsim/internal"
	"stationsim/metrics/counters"
	"stationsim/ocpp/core"
	"stationsim/ocpp/firmware"
	"stationsim/types"
	"stationsim/utility"
)

// transaction drain poll interval during a firmware update
const firmwareDrainInterval = 15 * time.Second

// handleUpdateFirmware answers immediately and runs the simulated update
// in the background, deferred until the retrieve date when it lies ahead.
func (s *Station) handleUpdateFirmware(request *firmware.UpdateFirmwareRequest) (*firmware.UpdateFirmwareResponse, error) {
	if !s.hasFeatureProfile(types.FeatureProfileFirmwareManagement) {
		return firmware.NewUpdateFirmwareResponse(), nil
	}
	if s.firmwareUpdating || s.firmwareStatus != firmware.StatusInstalled {
		s.warnf("firmware update request ignored, status %s", s.firmwareStatus)
		return firmware.NewUpdateFirmwareResponse(), nil
	}
	s.firmwareUpdating = true
	delay := time.Duration(0)
	if request.RetrieveDate != nil {
		if until := request.RetrieveDate.Time.Sub(s.clock.Now()); until > 0 {
			delay = until
		}
	}
	s.debugf("firmware update from %s scheduled in %s", request.Location, delay)
	if delay > 0 {
		s.clock.AfterFunc(delay, s.runFirmwareUpdate)
	} else {
		go s.runFirmwareUpdate()
	}
	return firmware.NewUpdateFirmwareResponse(), nil
}

// runFirmwareUpdate walks the Downloading, Downloaded, Installing,
// Installed sequence with randomized delays, draining transactions before
// the install phase. Configured failure injection short-circuits it.
func (s *Station) runFirmwareUpdate() {
	if s.isClosed() {
		return
	}
	s.markIdleConnectorsUnavailable()
	s.setFirmwareStatus(firmware.StatusDownloading)
	s.sleepFirmwareDelay()
	if s.firmwareFailure == firmware.StatusDownloadFailed {
		s.setFirmwareStatus(firmware.StatusDownloadFailed)
		s.finishFirmwareUpdate()
		return
	}
	s.setFirmwareStatus(firmware.StatusDownloaded)
	for s.runningTransactionCount() > 0 {
		if s.isClosed() {
			return
		}
		s.clock.Sleep(firmwareDrainInterval)
	}
	s.markAllConnectorsUnavailable()
	s.sleepFirmwareDelay()
	s.setFirmwareStatus(firmware.StatusInstalling)
	if s.firmwareFailure == firmware.StatusInstallationFailed {
		s.sleepFirmwareDelay()
		s.setFirmwareStatus(firmware.StatusInstallationFailed)
		s.finishFirmwareUpdate()
		return
	}
	s.sleepFirmwareDelay()
	s.setFirmwareStatus(firmware.StatusInstalled)
	s.finishFirmwareUpdate()
	if s.firmwareReset {
		s.reset(core.ReasonReboot)
		return
	}
	s.restoreConnectorAvailability()
}

func (s *Station) sleepFirmwareDelay() {
	s.clock.Sleep(utility.RandomDuration(s.firmwareMinDelay, s.firmwareMaxDelay))
}

func (s *Station) runningTransactionCount() int {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.RunningTransactions()
}

// setFirmwareStatus records the new status and notifies the central
// system, best effort.
func (s *Station) setFirmwareStatus(status firmware.Status) {
	s.mux.Lock()
	s.firmwareStatus = status
	s.mux.Unlock()
	if _, err := s.sender.Send(firmware.NewStatusNotificationRequest(status)); err != nil {
		s.logger.Error(fmt.Sprintf("%s: firmware status notification %s", s.id, status), err)
	}
	counters.ObserveFirmwareStatus(s.id, string(status))
	s.notifyEvent(&internal.EventMessage{
		Type:      internal.EventFirmwareStatus,
		StationId: s.id,
		Time:      s.clock.Now(),
		Status:    string(status),
	})
}

func (s *Station) finishFirmwareUpdate() {
	s.mux.Lock()
	s.firmwareUpdating = false
	s.mux.Unlock()
}

func (s *Station) markIdleConnectorsUnavailable() {
	s.mux.Lock()
	defer s.mux.Unlock()
	for id, connector := range s.connectors {
		if id == 0 || connector.isTransacting() {
			continue
		}
		s.sendAndSetConnectorStatus(id, core.ChargePointStatusUnavailable)
	}
}

func (s *Station) markAllConnectorsUnavailable() {
	s.mux.Lock()
	defer s.mux.Unlock()
	for id, connector := range s.connectors {
		if id == 0 || connector.status == core.ChargePointStatusUnavailable {
			continue
		}
		s.sendAndSetConnectorStatus(id, core.ChargePointStatusUnavailable)
	}
}

func (s *Station) restoreConnectorAvailability() {
	s.mux.Lock()
	defer s.mux.Unlock()
	for id, connector := range s.connectors {
		if id == 0 {
			continue
		}
		s.sendAndSetConnectorStatus(id, s.availabilityStatus(connector))
	}
}
