package api

import (
	"fleet-route-optimizer/internal/api/handlers"
	"fleet-route-optimizer/internal/services"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Services are the application services the HTTP layer depends on.
type Services struct {
	Planner     *services.RoutePlanner
	Reoptimizer *services.IncidentReoptimizer
	Routes      *services.RouteService
	Fleet       *services.FleetService
	Traffic     *services.TrafficPredictor
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(svc Services) http.Handler {
	mux := http.NewServeMux()

	routeHandler := &handlers.RouteHandler{
		Planner:     svc.Planner,
		Reoptimizer: svc.Reoptimizer,
		Routes:      svc.Routes,
	}
	trafficHandler := &handlers.TrafficHandler{Predictor: svc.Traffic}
	fleetHandler := &handlers.FleetHandler{Fleet: svc.Fleet}

	mux.HandleFunc("GET /health", handlers.Health)

	mux.HandleFunc("GET /routes", routeHandler.List)
	mux.HandleFunc("POST /routes", routeHandler.Plan)
	mux.HandleFunc("GET /routes/{id}", routeHandler.Get)
	mux.HandleFunc("POST /routes/{id}/reoptimize", routeHandler.Reoptimize)
	mux.HandleFunc("PUT /routes/{id}/status", routeHandler.UpdateStatus)
	mux.HandleFunc("PUT /routes/{id}/deliveries/{deliveryId}/status", routeHandler.UpdateStopStatus)

	mux.HandleFunc("POST /traffic/predict", trafficHandler.Predict)

	mux.HandleFunc("GET /deliveries", fleetHandler.ListDeliveries)
	mux.HandleFunc("GET /vehicles", fleetHandler.ListVehicles)
	mux.HandleFunc("PUT /vehicles/{id}/location", fleetHandler.UpdateLocation)

	var h http.Handler = loggingMiddleware(mux)
	h = requestIDMiddleware(h)
	return otelhttp.NewHandler(h, "http.server",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
