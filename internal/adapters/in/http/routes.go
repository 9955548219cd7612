package http

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
)

// ListDeliveriesParams are the query parameters of ListDeliveries.
type ListDeliveriesParams struct {
	Status string
	Limit  *int
}

// ServerInterface lists the operations of openapi.yaml.
type ServerInterface interface {
	CreateDelivery(ctx echo.Context) error
	ListDeliveries(ctx echo.Context, params ListDeliveriesParams) error
	ListOverdueDeliveries(ctx echo.Context) error
	GetDelivery(ctx echo.Context, id uuid.UUID) error
	AutoAssignDelivery(ctx echo.Context, id uuid.UUID) error
	AcceptDelivery(ctx echo.Context, id uuid.UUID) error
	DepartForPickup(ctx echo.Context, id uuid.UUID) error
	StartPickup(ctx echo.Context, id uuid.UUID) error
	CompleteDelivery(ctx echo.Context, id uuid.UUID) error
	CancelDelivery(ctx echo.Context, id uuid.UUID) error
	ReassignDelivery(ctx echo.Context, id uuid.UUID) error
	CreateEstimate(ctx echo.Context) error
	RateDriver(ctx echo.Context, id uuid.UUID) error
	SetDriverAvailability(ctx echo.Context, id uuid.UUID) error
}

var _ ServerInterface = (*Server)(nil)

// ServerInterfaceWrapper converts echo contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

func (w *ServerInterfaceWrapper) ListDeliveries(ctx echo.Context) error {
	var params ListDeliveriesParams

	if err := runtime.BindQueryParameter("form", true, true, "status", ctx.QueryParams(), &params.Status); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter status: %s", err))
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", ctx.QueryParams(), &params.Limit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter limit: %s", err))
	}

	return w.Handler.ListDeliveries(ctx, params)
}

// withID binds the {id} path parameter before calling op.
func withID(op func(echo.Context, uuid.UUID) error) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var id uuid.UUID
		err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &id,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Invalid format for parameter id: %s", err))
		}
		return op(ctx, id)
	}
}

// EchoRouter is satisfied by *echo.Echo and *echo.Group.
type EchoRouter interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// RegisterHandlersWithBaseURL adds every operation to router under baseURL.
func RegisterHandlersWithBaseURL(router EchoRouter, si ServerInterface, baseURL string) {
	w := ServerInterfaceWrapper{Handler: si}

	router.POST(baseURL+"/api/v1/deliveries", si.CreateDelivery)
	router.GET(baseURL+"/api/v1/deliveries", w.ListDeliveries)
	router.GET(baseURL+"/api/v1/deliveries/overdue", si.ListOverdueDeliveries)
	router.GET(baseURL+"/api/v1/deliveries/:id", withID(si.GetDelivery))
	router.POST(baseURL+"/api/v1/deliveries/:id/auto-assign", withID(si.AutoAssignDelivery))
	router.POST(baseURL+"/api/v1/deliveries/:id/accept", withID(si.AcceptDelivery))
	router.POST(baseURL+"/api/v1/deliveries/:id/depart", withID(si.DepartForPickup))
	router.POST(baseURL+"/api/v1/deliveries/:id/pickup", withID(si.StartPickup))
	router.POST(baseURL+"/api/v1/deliveries/:id/complete", withID(si.CompleteDelivery))
	router.POST(baseURL+"/api/v1/deliveries/:id/cancel", withID(si.CancelDelivery))
	router.POST(baseURL+"/api/v1/deliveries/:id/reassign", withID(si.ReassignDelivery))
	router.POST(baseURL+"/api/v1/estimates", si.CreateEstimate)
	router.POST(baseURL+"/api/v1/drivers/:id/ratings", withID(si.RateDriver))
	router.PUT(baseURL+"/api/v1/drivers/:id/availability", withID(si.SetDriverAvailability))
}

func RegisterHandlers(router EchoRouter, si ServerInterface) {
	RegisterHandlersWithBaseURL(router, si, "")
}
