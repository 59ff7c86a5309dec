package station

import (
	"stationsim/ocpp/core"
	"stationsim/types"
)

// Connector holds the mutable state of a single charging connector.
// Connector 0 represents the station itself and never carries a transaction.
type Connector struct {
	Id                       int
	status                   core.ChargePointStatus
	availability             types.AvailabilityType
	scheduledAvailability    *types.AvailabilityType
	transactionId            *int
	transactionStarted       bool
	transactionRemoteStarted bool
	transactionStart         *types.DateTime
	transactionIdTag         string
	meterValue               int
	chargingProfiles         []types.ChargingProfile
	reservation              *Reservation
}

func newConnector(id int) *Connector {
	return &Connector{
		Id:           id,
		status:       core.ChargePointStatusAvailable,
		availability: types.AvailabilityTypeOperative,
	}
}

func (c *Connector) Status() core.ChargePointStatus {
	return c.status
}

func (c *Connector) Availability() types.AvailabilityType {
	return c.availability
}

func (c *Connector) TransactionId() *int {
	return c.transactionId
}

func (c *Connector) TransactionStarted() bool {
	return c.transactionStarted
}

func (c *Connector) MeterValue() int {
	return c.meterValue
}

func (c *Connector) ChargingProfiles() []types.ChargingProfile {
	return c.chargingProfiles
}

func (c *Connector) Reservation() *Reservation {
	return c.reservation
}

func (c *Connector) isTransacting() bool {
	return c.transactionStarted
}

// beginTransaction records a confirmed transaction on the connector.
func (c *Connector) beginTransaction(transactionId int, idTag string, start *types.DateTime, remote bool) {
	c.transactionId = &transactionId
	c.transactionStarted = true
	c.transactionRemoteStarted = remote
	c.transactionStart = start
	c.transactionIdTag = idTag
}

// endTransaction clears transaction state and drops the transaction's
// charging profiles. A deferred availability change is applied here.
func (c *Connector) endTransaction() {
	c.transactionId = nil
	c.transactionStarted = false
	c.transactionRemoteStarted = false
	c.transactionStart = nil
	c.transactionIdTag = ""
	c.clearProfilesByPurpose(types.ChargingProfilePurposeTxProfile)
	if c.scheduledAvailability != nil {
		c.availability = *c.scheduledAvailability
		c.scheduledAvailability = nil
	}
}

func (c *Connector) setChargingProfile(profile types.ChargingProfile) {
	for i, p := range c.chargingProfiles {
		if p.ChargingProfileId == profile.ChargingProfileId ||
			(p.StackLevel == profile.StackLevel && p.ChargingProfilePurpose == profile.ChargingProfilePurpose) {
			c.chargingProfiles[i] = profile
			return
		}
	}
	c.chargingProfiles = append(c.chargingProfiles, profile)
}

func (c *Connector) clearProfilesByPurpose(purpose types.ChargingProfilePurposeType) {
	kept := c.chargingProfiles[:0]
	for _, p := range c.chargingProfiles {
		if p.ChargingProfilePurpose != purpose {
			kept = append(kept, p)
		}
	}
	c.chargingProfiles = kept
}

// clearProfilesMatching removes profiles matching every non-nil criterion
// and reports whether anything was removed.
func (c *Connector) clearProfilesMatching(id *int, purpose *types.ChargingProfilePurposeType, stackLevel *int) bool {
	kept := c.chargingProfiles[:0]
	cleared := false
	for _, p := range c.chargingProfiles {
		match := true
		if id != nil && p.ChargingProfileId != *id {
			match = false
		}
		if purpose != nil && p.ChargingProfilePurpose != *purpose {
			match = false
		}
		if stackLevel != nil && p.StackLevel != *stackLevel {
			match = false
		}
		if match {
			cleared = true
			continue
		}
		kept = append(kept, p)
	}
	c.chargingProfiles = kept
	return cleared
}
