package station

import (
	"time"

	"stationsim/ocpp/smartcharging"
	"stationsim/types"
)

func (s *Station) handleSetChargingProfile(request *smartcharging.SetChargingProfileRequest) (*smartcharging.SetChargingProfileResponse, error) {
	if !s.hasFeatureProfile(types.FeatureProfileSmartCharging) {
		return smartcharging.NewSetChargingProfileResponse(smartcharging.ChargingProfileStatusNotSupported), nil
	}
	connector, ok := s.connectors[request.ConnectorId]
	if !ok {
		return smartcharging.NewSetChargingProfileResponse(smartcharging.ChargingProfileStatusRejected), nil
	}
	profile := request.ChargingProfile
	switch profile.ChargingProfilePurpose {
	case types.ChargingProfilePurposeChargePointMaxProfile:
		if request.ConnectorId != 0 {
			return smartcharging.NewSetChargingProfileResponse(smartcharging.ChargingProfileStatusRejected), nil
		}
	case types.ChargingProfilePurposeTxProfile:
		if request.ConnectorId == 0 || !connector.isTransacting() {
			return smartcharging.NewSetChargingProfileResponse(smartcharging.ChargingProfileStatusRejected), nil
		}
		if profile.TransactionId == nil || connector.transactionId == nil ||
			*profile.TransactionId != *connector.transactionId {
			return smartcharging.NewSetChargingProfileResponse(smartcharging.ChargingProfileStatusRejected), nil
		}
	}
	connector.setChargingProfile(*profile)
	s.debugf("charging profile %d set on connector %d", profile.ChargingProfileId, request.ConnectorId)
	return smartcharging.NewSetChargingProfileResponse(smartcharging.ChargingProfileStatusAccepted), nil
}

func (s *Station) handleClearChargingProfile(request *smartcharging.ClearChargingProfileRequest) (*smartcharging.ClearChargingProfileResponse, error) {
	if !s.hasFeatureProfile(types.FeatureProfileSmartCharging) {
		return smartcharging.NewClearChargingProfileResponse(smartcharging.ClearChargingProfileStatusUnknown), nil
	}
	var purpose *types.ChargingProfilePurposeType
	if request.ChargingProfilePurpose != "" {
		p := request.ChargingProfilePurpose
		purpose = &p
	}
	cleared := false
	if request.ConnectorId != nil {
		// a connector scoped clear drops everything on that connector,
		// the remaining criteria only narrow station wide clears
		if connector, ok := s.connectors[*request.ConnectorId]; ok {
			cleared = len(connector.chargingProfiles) > 0
			connector.chargingProfiles = nil
		}
	} else {
		for _, connector := range s.connectors {
			if connector.clearProfilesMatching(request.Id, purpose, request.StackLevel) {
				cleared = true
			}
		}
	}
	if !cleared {
		return smartcharging.NewClearChargingProfileResponse(smartcharging.ClearChargingProfileStatusUnknown), nil
	}
	return smartcharging.NewClearChargingProfileResponse(smartcharging.ClearChargingProfileStatusAccepted), nil
}

// handleGetCompositeSchedule folds all applicable profiles into a single
// schedule covering [now, now+duration). The requested charging rate unit
// is accepted but not converted, limits keep their original unit.
func (s *Station) handleGetCompositeSchedule(request *smartcharging.GetCompositeScheduleRequest) (*smartcharging.GetCompositeScheduleResponse, error) {
	if !s.hasFeatureProfile(types.FeatureProfileSmartCharging) {
		return smartcharging.NewGetCompositeScheduleResponse(smartcharging.GetCompositeScheduleStatusRejected), nil
	}
	connector, ok := s.connectors[request.ConnectorId]
	if !ok || request.ConnectorId == 0 {
		return smartcharging.NewGetCompositeScheduleResponse(smartcharging.GetCompositeScheduleStatusRejected), nil
	}
	now := s.clock.Now()
	intervalEnd := now.Add(time.Duration(request.Duration) * time.Second)
	var composite *types.ChargingSchedule
	for _, profile := range s.connectorChargingProfiles(request.ConnectorId) {
		p := profile
		if p.ChargingSchedule != nil {
			// work on a copy, preparation must not alter the stored profile
			schedule := *p.ChargingSchedule
			p.ChargingSchedule = &schedule
		}
		fillScheduleDefaults(&p, connector.transactionStarted, connector.transactionStart)
		if !prepareChargingProfileKind(&p, now, connector.transactionStarted, connector.transactionStart) {
			s.debugf("skipping charging profile %d, unresolvable kind", p.ChargingProfileId)
			continue
		}
		if !canProceedChargingProfile(&p, now) {
			s.debugf("skipping charging profile %d, outside validity", p.ChargingProfileId)
			continue
		}
		composite = composeChargingSchedules(composite, p.ChargingSchedule, now, intervalEnd)
	}
	if composite == nil {
		return smartcharging.NewGetCompositeScheduleResponse(smartcharging.GetCompositeScheduleStatusRejected), nil
	}
	response := smartcharging.NewGetCompositeScheduleResponse(smartcharging.GetCompositeScheduleStatusAccepted)
	connectorId := request.ConnectorId
	response.ConnectorId = &connectorId
	response.ScheduleStart = composite.StartSchedule
	response.ChargingSchedule = composite
	return response, nil
}
