package reservation

const CancelReservationFeatureName = "CancelReservation"

type CancelReservationStatus string

const (
	CancelReservationStatusAccepted CancelReservationStatus = "Accepted"
	CancelReservationStatusRejected CancelReservationStatus = "Rejected"
)

type CancelReservationRequest struct {
	ReservationId int `json:"reservationId"`
}

type CancelReservationResponse struct {
	Status CancelReservationStatus `json:"status" validate:"required,cancelReservationStatus"`
}

func (r CancelReservationRequest) GetFeatureName() string {
	return CancelReservationFeatureName
}

func (c CancelReservationResponse) GetFeatureName() string {
	return CancelReservationFeatureName
}

func NewCancelReservationResponse(status CancelReservationStatus) *CancelReservationResponse {
	return &CancelReservationResponse{Status: status}
}
