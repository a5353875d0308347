// Package router mounts handler groups under the versioned API prefix.
package router

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar is implemented by every handler that owns API routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and group middleware, then mounts them on Setup
type Router struct {
	engine     *gin.Engine
	version    string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" prefix segment
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.version = strings.Trim(version, "/") }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to the API group only. Routes mounted directly on the
// engine, such as /health, are not affected.
func (r *Router) Use(mw ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, mw...)
	return r
}

func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup mounts every registrar in registration order and returns the API group
func (r *Router) Setup() *gin.RouterGroup {
	api := r.engine.Group(r.BasePath(), r.middleware...)
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
	return api
}

// BasePath is the API prefix, e.g. /api/v1
func (r *Router) BasePath() string {
	return "/api/" + r.version
}

func (r *Router) APIVersion() string {
	return r.version
}

// Routes lists the mounted routes under BasePath
func (r *Router) Routes() []gin.RouteInfo {
	var routes []gin.RouteInfo
	prefix := r.BasePath() + "/"
	for _, route := range r.engine.Routes() {
		if strings.HasPrefix(route.Path, prefix) {
			routes = append(routes, route)
		}
	}
	return routes
}
