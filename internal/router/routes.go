package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Route describes one mounted endpoint, for docs and the routes command.
type Route struct {
	Method  string
	Path    string
	Summary string
	Tag     string
	Module  string
	Auth    bool
}

// Doc documents a route when it is registered.
type Doc struct {
	Summary string
	// Auth puts the route behind Deps.RequireAuth.
	Auth bool
}

// Routes records the endpoints a module registers.
type Routes struct {
	group  *gin.RouterGroup
	module string
	tag    string
	auth   gin.HandlerFunc
	record *[]Route
}

func newRoutes(group *gin.RouterGroup, module, tag string, auth gin.HandlerFunc) *Routes {
	return &Routes{group: group, module: module, tag: tag, auth: auth, record: &[]Route{}}
}

func (r *Routes) Tag() string { return r.tag }

// Group returns a Routes rooted at a sub path, sharing the same record.
func (r *Routes) Group(relativePath string) *Routes {
	return &Routes{
		group:  r.group.Group(relativePath),
		module: r.module,
		tag:    r.tag,
		auth:   r.auth,
		record: r.record,
	}
}

// Recorded returns the routes registered so far.
func (r *Routes) Recorded() []Route {
	return *r.record
}

func (r *Routes) Handle(method, relativePath string, doc Doc, handlers ...gin.HandlerFunc) {
	if doc.Auth {
		if r.auth == nil {
			panic("router: route " + method + " " + relativePath + " requires auth but no auth middleware is configured")
		}
		handlers = append([]gin.HandlerFunc{r.auth}, handlers...)
	}
	r.group.Handle(method, relativePath, handlers...)
	*r.record = append(*r.record, Route{
		Method:  method,
		Path:    joinPaths(r.group.BasePath(), relativePath),
		Summary: doc.Summary,
		Tag:     r.tag,
		Module:  r.module,
		Auth:    doc.Auth,
	})
}

func (r *Routes) GET(relativePath string, doc Doc, handlers ...gin.HandlerFunc) {
	r.Handle(http.MethodGet, relativePath, doc, handlers...)
}

func (r *Routes) POST(relativePath string, doc Doc, handlers ...gin.HandlerFunc) {
	r.Handle(http.MethodPost, relativePath, doc, handlers...)
}

func (r *Routes) DELETE(relativePath string, doc Doc, handlers ...gin.HandlerFunc) {
	r.Handle(http.MethodDelete, relativePath, doc, handlers...)
}

func joinPaths(base, rel string) string {
	if rel == "" {
		return base
	}
	joined := path.Join(base, rel)
	if rel[len(rel)-1] == '/' && joined[len(joined)-1] != '/' {
		joined += "/"
	}
	return joined
}
