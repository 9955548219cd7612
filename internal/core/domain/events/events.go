// Package events defines the outbound integration events emitted by dispatch.
// Payloads are plain JSON-tagged structs so every transport serializes them the
// same way.
package events

const (
	NameDeliveryCreated        = "delivery.created"
	NameDeliveryAccepted       = "delivery.accepted"
	NameDeliveryCancelled      = "delivery.cancelled"
	NameDeliveryCreationFailed = "delivery.creation_failed"
	NameNotifyDriver           = "driver.notify"
)

// Event is implemented by every outbound payload.
type Event interface {
	// Name identifies the event type on the wire.
	Name() string
	// Key groups events that must stay ordered, e.g. by delivery or order.
	Key() string
}

type DeliveryCreated struct {
	DeliveryID string  `json:"deliveryId"`
	OrderID    string  `json:"orderId"`
	DriverID   *string `json:"driverId"`
	Status     string  `json:"status"`
	ETAMinutes int     `json:"etaMinutes"`
	Fee        float64 `json:"fee"`
}

func (DeliveryCreated) Name() string { return NameDeliveryCreated }
func (e DeliveryCreated) Key() string { return e.DeliveryID }

type DeliveryAccepted struct {
	DeliveryID string `json:"deliveryId"`
	DriverID   string `json:"driverId"`
	OrderID    string `json:"orderId"`
}

func (DeliveryAccepted) Name() string { return NameDeliveryAccepted }
func (e DeliveryAccepted) Key() string { return e.DeliveryID }

type DeliveryCancelled struct {
	DeliveryID string  `json:"deliveryId"`
	OrderID    string  `json:"orderId"`
	DriverID   *string `json:"driverId"`
	Reason     string  `json:"reason"`
}

func (DeliveryCancelled) Name() string { return NameDeliveryCancelled }
func (e DeliveryCancelled) Key() string { return e.DeliveryID }

type DeliveryCreationFailed struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error"`
}

func (DeliveryCreationFailed) Name() string { return NameDeliveryCreationFailed }
func (e DeliveryCreationFailed) Key() string { return e.OrderID }

type NotifyDriver struct {
	DriverID   string `json:"driverId"`
	DeliveryID string `json:"deliveryId"`
	Message    string `json:"message"`
}

func (NotifyDriver) Name() string { return NameNotifyDriver }
func (e NotifyDriver) Key() string { return e.DriverID }
