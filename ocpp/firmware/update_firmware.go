package firmware

import "stationsim/types"

const UpdateFirmwareFeatureName = "UpdateFirmware"

type UpdateFirmwareRequest struct {
	Location      string          `json:"location" validate:"required,uri"`
	Retries       *int            `json:"retries,omitempty" validate:"omitempty,gte=0"`
	RetrieveDate  *types.DateTime `json:"retrieveDate" validate:"required"`
	RetryInterval *int            `json:"retryInterval,omitempty" validate:"omitempty,gte=0"`
}

type UpdateFirmwareResponse struct {
}

func (r UpdateFirmwareRequest) GetFeatureName() string {
	return UpdateFirmwareFeatureName
}

func (c UpdateFirmwareResponse) GetFeatureName() string {
	return UpdateFirmwareFeatureName
}

func NewUpdateFirmwareResponse() *UpdateFirmwareResponse {
	return &UpdateFirmwareResponse{}
}
