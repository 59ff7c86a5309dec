package core

import "stationsim/types"

const BootNotificationFeatureName = "BootNotification"

type BootNotificationRequest struct {
	ChargeBoxSerialNumber   string `json:"chargeBoxSerialNumber,omitempty" validate:"max=25"`
	ChargePointModel        string `json:"chargePointModel" validate:"required,max=20"`
	ChargePointSerialNumber string `json:"chargePointSerialNumber,omitempty" validate:"max=25"`
	ChargePointVendor       string `json:"chargePointVendor" validate:"required,max=20"`
	FirmwareVersion         string `json:"firmwareVersion,omitempty" validate:"max=50"`
	Iccid                   string `json:"iccid,omitempty" validate:"max=20"`
	Imsi                    string `json:"imsi,omitempty" validate:"max=20"`
	MeterSerialNumber       string `json:"meterSerialNumber,omitempty" validate:"max=25"`
	MeterType               string `json:"meterType,omitempty" validate:"max=25"`
}

type BootNotificationResponse struct {
	CurrentTime *types.DateTime          `json:"currentTime" validate:"required"`
	Interval    int                      `json:"interval" validate:"gte=0"`
	Status      types.RegistrationStatus `json:"status" validate:"required,registrationStatus"`
}

func (r BootNotificationRequest) GetFeatureName() string {
	return BootNotificationFeatureName
}

func (c BootNotificationResponse) GetFeatureName() string {
	return BootNotificationFeatureName
}

func NewBootNotificationRequest(vendor, model string) *BootNotificationRequest {
	return &BootNotificationRequest{ChargePointVendor: vendor, ChargePointModel: model}
}
