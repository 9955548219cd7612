package http

import (
	"time"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/services"
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type Delivery struct {
	ID                    string           `json:"id"`
	OrderID               string           `json:"orderId"`
	DriverID              *string          `json:"driverId"`
	DeliveredBy           *string          `json:"deliveredBy,omitempty"`
	Status                string           `json:"status"`
	Pickup                dispatch.Address `json:"pickup"`
	Dropoff               dispatch.Address `json:"dropoff"`
	Fee                   float64          `json:"fee"`
	EstimatedCompletionAt time.Time        `json:"estimatedCompletionAt"`
	CreatedAt             time.Time        `json:"createdAt"`
	Notes                 string           `json:"notes,omitempty"`
	CancelReason          string           `json:"cancelReason,omitempty"`
}

type Driver struct {
	ID                  string            `json:"id"`
	Name                string            `json:"name"`
	Vehicle             string            `json:"vehicle,omitempty"`
	Status              string            `json:"status"`
	Availability        string            `json:"availability"`
	Rating              float64           `json:"rating"`
	RatingsCount        int               `json:"ratingsCount"`
	CompletedDeliveries int               `json:"completedDeliveries"`
	Cancellations       int               `json:"cancellations"`
	Location            *dispatch.Address `json:"location,omitempty"`
}

type AssignmentResult struct {
	Assigned bool     `json:"assigned"`
	Delivery Delivery `json:"delivery"`
}

type DriverAction struct {
	DriverID string `json:"driverId"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type ReassignRequest struct {
	PreferredDriverID *string `json:"preferredDriverId,omitempty"`
}

type EstimateRequest struct {
	Pickup  dispatch.Address `json:"pickup"`
	Dropoff dispatch.Address `json:"dropoff"`
}

type Estimate struct {
	DistanceKm float64 `json:"distanceKm"`
	ETAMinutes int     `json:"etaMinutes"`
	Fee        float64 `json:"fee"`
}

type RatingRequest struct {
	Score *float64 `json:"score"`
}

type AvailabilityRequest struct {
	Availability string `json:"availability"`
}

func toDelivery(d *delivery.Delivery) Delivery {
	res := Delivery{
		ID:                    d.ID().String(),
		OrderID:               d.OrderID(),
		Status:                d.Status().String(),
		Pickup:                dispatch.AddressFromLocation(d.Pickup()),
		Dropoff:               dispatch.AddressFromLocation(d.Dropoff()),
		Fee:                   d.Fee(),
		EstimatedCompletionAt: d.EstimatedCompletionAt(),
		CreatedAt:             d.CreatedAt(),
		Notes:                 d.Notes(),
		CancelReason:          d.CancelReason(),
	}
	if id := d.DriverID(); id != nil {
		s := id.String()
		res.DriverID = &s
	}
	if id := d.DeliveredBy(); id != nil {
		s := id.String()
		res.DeliveredBy = &s
	}
	return res
}

func toDeliveries(ds []*delivery.Delivery) []Delivery {
	res := make([]Delivery, len(ds))
	for i, d := range ds {
		res[i] = toDelivery(d)
	}
	return res
}

func toDriver(d *driver.Driver) Driver {
	stats := d.Stats()
	res := Driver{
		ID:                  d.ID().String(),
		Name:                d.Name(),
		Vehicle:             d.Vehicle(),
		Status:              d.Status().String(),
		Availability:        d.Availability().String(),
		Rating:              stats.Rating,
		RatingsCount:        stats.RatingsCount,
		CompletedDeliveries: stats.CompletedDeliveries,
		Cancellations:       stats.Cancellations,
	}
	if loc, ok := d.Location(); ok {
		a := dispatch.AddressFromLocation(loc)
		res.Location = &a
	}
	return res
}

func toEstimate(q services.Quote) Estimate {
	return Estimate{DistanceKm: q.DistanceKm, ETAMinutes: q.ETAMinutes, Fee: q.Fee}
}
