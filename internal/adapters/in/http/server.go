package http

import (
	"context"
	"net/http"
	"time"

	"dispatch/internal/core/application/dispatch"
	"dispatch/internal/core/domain/model/delivery"
	"dispatch/internal/core/domain/model/driver"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// DispatchService is the application surface exposed over HTTP.
type DispatchService interface {
	CreateForOrder(ctx context.Context, evt dispatch.OrderConfirmed) (*delivery.Delivery, error)
	GetDelivery(ctx context.Context, id kernel.UUID) (*delivery.Delivery, error)
	DeliveriesByStatus(ctx context.Context, status delivery.Status, limit int) ([]*delivery.Delivery, error)
	OverdueDeliveries(ctx context.Context, now time.Time) ([]*delivery.Delivery, error)
	AutoAssign(ctx context.Context, deliveryID kernel.UUID) (bool, error)
	ManualAccept(ctx context.Context, deliveryID, driverID kernel.UUID) error
	DepartForPickup(ctx context.Context, deliveryID, driverID kernel.UUID) error
	StartPickup(ctx context.Context, deliveryID, driverID kernel.UUID) error
	CompleteDelivery(ctx context.Context, deliveryID, driverID kernel.UUID) error
	Cancel(ctx context.Context, deliveryID kernel.UUID, reason string) error
	Reassign(ctx context.Context, deliveryID kernel.UUID, preferredDriverID *kernel.UUID) (bool, error)
	Estimate(pickup, dropoff kernel.AddressLocation) services.Quote
	RateDriver(ctx context.Context, driverID kernel.UUID, score float64) (*driver.Driver, error)
	SetDriverAvailability(ctx context.Context, driverID kernel.UUID, availability driver.Availability) (*driver.Driver, error)
}

// Server implements ServerInterface on top of the dispatch service.
type Server struct {
	service DispatchService
	now     func() time.Time
	logger  zerolog.Logger
}

func NewServer(service DispatchService, logger zerolog.Logger) *Server {
	return &Server{
		service: service,
		now:     time.Now,
		logger:  logger.With().Str("component", "http_server").Logger(),
	}
}

// CreateDelivery handles POST /api/v1/deliveries - creates the delivery of a confirmed order.
func (s *Server) CreateDelivery(ctx echo.Context) error {
	var evt dispatch.OrderConfirmed
	if err := ctx.Bind(&evt); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	d, err := s.service.CreateForOrder(ctx.Request().Context(), evt)
	if err != nil {
		return s.respondError(ctx, err, "Failed to create delivery")
	}
	return ctx.JSON(http.StatusCreated, toDelivery(d))
}

// ListDeliveries handles GET /api/v1/deliveries?status=&limit=.
func (s *Server) ListDeliveries(ctx echo.Context, params ListDeliveriesParams) error {
	status, err := delivery.ParseStatus(params.Status)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	limit := DefaultListLimit
	if params.Limit != nil {
		limit = *params.Limit
	}
	if limit < 1 || limit > MaxListLimit {
		return badRequest(ctx, "limit must be between 1 and 500")
	}

	ds, err := s.service.DeliveriesByStatus(ctx.Request().Context(), status, limit)
	if err != nil {
		return s.respondError(ctx, err, "Failed to retrieve deliveries")
	}
	return ctx.JSON(http.StatusOK, toDeliveries(ds))
}

// ListOverdueDeliveries handles GET /api/v1/deliveries/overdue.
func (s *Server) ListOverdueDeliveries(ctx echo.Context) error {
	ds, err := s.service.OverdueDeliveries(ctx.Request().Context(), s.now())
	if err != nil {
		return s.respondError(ctx, err, "Failed to retrieve overdue deliveries")
	}
	return ctx.JSON(http.StatusOK, toDeliveries(ds))
}

// GetDelivery handles GET /api/v1/deliveries/{id}.
func (s *Server) GetDelivery(ctx echo.Context, id uuid.UUID) error {
	deliveryID, err := domainID(id)
	if err != nil {
		return badRequest(ctx, err.Error())
	}
	return s.respondDelivery(ctx, deliveryID)
}

// AutoAssignDelivery handles POST /api/v1/deliveries/{id}/auto-assign.
func (s *Server) AutoAssignDelivery(ctx echo.Context, id uuid.UUID) error {
	deliveryID, err := domainID(id)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	assigned, err := s.service.AutoAssign(ctx.Request().Context(), deliveryID)
	if err != nil {
		return s.respondError(ctx, err, "Failed to assign delivery")
	}
	return s.respondAssignment(ctx, deliveryID, assigned)
}

// AcceptDelivery handles POST /api/v1/deliveries/{id}/accept.
func (s *Server) AcceptDelivery(ctx echo.Context, id uuid.UUID) error {
	return s.driverAction(ctx, id, s.service.ManualAccept, "Failed to accept delivery")
}

// DepartForPickup handles POST /api/v1/deliveries/{id}/depart.
func (s *Server) DepartForPickup(ctx echo.Context, id uuid.UUID) error {
	return s.driverAction(ctx, id, s.service.DepartForPickup, "Failed to depart for pickup")
}

// StartPickup handles POST /api/v1/deliveries/{id}/pickup.
func (s *Server) StartPickup(ctx echo.Context, id uuid.UUID) error {
	return s.driverAction(ctx, id, s.service.StartPickup, "Failed to start pickup")
}

// CompleteDelivery handles POST /api/v1/deliveries/{id}/complete.
func (s *Server) CompleteDelivery(ctx echo.Context, id uuid.UUID) error {
	return s.driverAction(ctx, id, s.service.CompleteDelivery, "Failed to complete delivery")
}

// CancelDelivery handles POST /api/v1/deliveries/{id}/cancel.
func (s *Server) CancelDelivery(ctx echo.Context, id uuid.UUID) error {
	deliveryID, err := domainID(id)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	var req CancelRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	if err = s.service.Cancel(ctx.Request().Context(), deliveryID, req.Reason); err != nil {
		return s.respondError(ctx, err, "Failed to cancel delivery")
	}
	return s.respondDelivery(ctx, deliveryID)
}

// ReassignDelivery handles POST /api/v1/deliveries/{id}/reassign.
func (s *Server) ReassignDelivery(ctx echo.Context, id uuid.UUID) error {
	deliveryID, err := domainID(id)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	var req ReassignRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	var preferred *kernel.UUID
	if req.PreferredDriverID != nil {
		parsed, parseErr := kernel.UUIDFromString(*req.PreferredDriverID)
		if parseErr != nil {
			return badRequest(ctx, "Invalid preferredDriverId: "+parseErr.Error())
		}
		preferred = &parsed
	}

	reassigned, err := s.service.Reassign(ctx.Request().Context(), deliveryID, preferred)
	if err != nil {
		return s.respondError(ctx, err, "Failed to reassign delivery")
	}
	return s.respondAssignment(ctx, deliveryID, reassigned)
}

// CreateEstimate handles POST /api/v1/estimates - prices a trip without creating anything.
func (s *Server) CreateEstimate(ctx echo.Context) error {
	var req EstimateRequest
	if err := ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}

	pickup, err := req.Pickup.ToLocation()
	if err != nil {
		return badRequest(ctx, "Invalid pickup: "+err.Error())
	}
	dropoff, err := req.Dropoff.ToLocation()
	if err != nil {
		return badRequest(ctx, "Invalid dropoff: "+err.Error())
	}

	return ctx.JSON(http.StatusOK, toEstimate(s.service.Estimate(pickup, dropoff)))
}

// RateDriver handles POST /api/v1/drivers/{id}/ratings.
func (s *Server) RateDriver(ctx echo.Context, id uuid.UUID) error {
	driverID, err := domainID(id)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	var req RatingRequest
	if err = ctx.Bind(&req); err != nil || req.Score == nil {
		return badRequest(ctx, "Invalid request body")
	}

	d, err := s.service.RateDriver(ctx.Request().Context(), driverID, *req.Score)
	if err != nil {
		return s.respondError(ctx, err, "Failed to rate driver")
	}
	return ctx.JSON(http.StatusOK, toDriver(d))
}

// SetDriverAvailability handles PUT /api/v1/drivers/{id}/availability.
func (s *Server) SetDriverAvailability(ctx echo.Context, id uuid.UUID) error {
	driverID, err := domainID(id)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	var req AvailabilityRequest
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	availability, err := driver.ParseAvailability(req.Availability)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	d, err := s.service.SetDriverAvailability(ctx.Request().Context(), driverID, availability)
	if err != nil {
		return s.respondError(ctx, err, "Failed to update driver availability")
	}
	return ctx.JSON(http.StatusOK, toDriver(d))
}

type driverActionFunc func(ctx context.Context, deliveryID, driverID kernel.UUID) error

func (s *Server) driverAction(ctx echo.Context, id uuid.UUID, action driverActionFunc, failure string) error {
	deliveryID, err := domainID(id)
	if err != nil {
		return badRequest(ctx, err.Error())
	}

	var req DriverAction
	if err = ctx.Bind(&req); err != nil {
		return badRequest(ctx, "Invalid request body")
	}
	driverID, err := kernel.UUIDFromString(req.DriverID)
	if err != nil {
		return badRequest(ctx, "Invalid driverId: "+err.Error())
	}

	if err = action(ctx.Request().Context(), deliveryID, driverID); err != nil {
		return s.respondError(ctx, err, failure)
	}
	return s.respondDelivery(ctx, deliveryID)
}

func (s *Server) respondDelivery(ctx echo.Context, id kernel.UUID) error {
	d, err := s.service.GetDelivery(ctx.Request().Context(), id)
	if err != nil {
		return s.respondError(ctx, err, "Failed to retrieve delivery")
	}
	return ctx.JSON(http.StatusOK, toDelivery(d))
}

func (s *Server) respondAssignment(ctx echo.Context, id kernel.UUID, assigned bool) error {
	d, err := s.service.GetDelivery(ctx.Request().Context(), id)
	if err != nil {
		return s.respondError(ctx, err, "Failed to retrieve delivery")
	}
	return ctx.JSON(http.StatusOK, AssignmentResult{Assigned: assigned, Delivery: toDelivery(d)})
}

func domainID(id uuid.UUID) (kernel.UUID, error) {
	return kernel.UUIDFromBytes(id[:])
}
