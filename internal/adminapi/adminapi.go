// Package adminapi provides HTTP handlers for introspecting and controlling
// a running capability host: the loaded route table and descriptor cache,
// and a terminate control mirroring Host.RemoveCapability.
//
// A Handlers struct holds the dependencies a chi.Router needs, one handler
// method per route, plain json.NewEncoder(w).Encode responses, and a
// writeError helper for the uniform error shape.
package adminapi

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/ferro-labs/caphost/invocation"
)

// Host is the minimal surface Handlers needs from a *caphost.Host. Defined
// here, not imported from package caphost, to avoid an import cycle (caphost
// will mount this package's Routes from cmd/caphostd, not the reverse).
type Host interface {
	Descriptors() map[invocation.RouteKey]invocation.CapabilityDescriptor
	RemoveCapability(key invocation.RouteKey)
}

// Handlers holds the dependency Handlers.Routes needs.
type Handlers struct {
	Host Host
}

// routeInfo is the JSON shape returned for one loaded capability provider.
type routeInfo struct {
	Binding      string   `json:"binding"`
	CapabilityID string   `json:"capability_id"`
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	SupportedOps []string `json:"supported_ops"`
}

// Routes returns a chi.Router mounting the introspection surface:
//
//	GET  /routes                                  list every loaded route
//	GET  /capabilities/{binding}/{capability_id}   single route's descriptor
//	POST /routes/{binding}/{capability_id}/terminate  tear a route down
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/routes", h.listRoutes)
	r.Get("/capabilities/{binding}/{capability_id}", h.getCapability)
	r.Post("/routes/{binding}/{capability_id}/terminate", h.terminateRoute)
	return r
}

func (h *Handlers) listRoutes(w http.ResponseWriter, _ *http.Request) {
	descs := h.Host.Descriptors()

	routes := make([]routeInfo, 0, len(descs))
	for key, desc := range descs {
		routes = append(routes, toRouteInfo(key, desc))
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Binding != routes[j].Binding {
			return routes[i].Binding < routes[j].Binding
		}
		return routes[i].CapabilityID < routes[j].CapabilityID
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"data": routes,
		"summary": map[string]interface{}{
			"total_routes": len(routes),
		},
	})
}

func (h *Handlers) getCapability(w http.ResponseWriter, r *http.Request) {
	key := invocation.RouteKey{
		Binding:      chi.URLParam(r, "binding"),
		CapabilityID: chi.URLParam(r, "capability_id"),
	}

	desc, ok := h.Host.Descriptors()[key]
	if !ok {
		writeError(w, http.StatusNotFound, "no capability loaded at this route")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toRouteInfo(key, desc))
}

func (h *Handlers) terminateRoute(w http.ResponseWriter, r *http.Request) {
	key := invocation.RouteKey{
		Binding:      chi.URLParam(r, "binding"),
		CapabilityID: chi.URLParam(r, "capability_id"),
	}

	if _, ok := h.Host.Descriptors()[key]; !ok {
		writeError(w, http.StatusNotFound, "no capability loaded at this route")
		return
	}

	h.Host.RemoveCapability(key)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "terminated"})
}

func toRouteInfo(key invocation.RouteKey, desc invocation.CapabilityDescriptor) routeInfo {
	return routeInfo{
		Binding:      key.Binding,
		CapabilityID: key.CapabilityID,
		Name:         desc.Name,
		Version:      desc.Version,
		SupportedOps: desc.SupportedOps,
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
