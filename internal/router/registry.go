package router

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"api-boilerplate/internal/health"
	"api-boilerplate/internal/service"
	"api-boilerplate/internal/storage"
)

// categoryTags maps well known app directories to hierarchical tags. The
// part before ":" is the group shown in the API docs.
var categoryTags = map[string]string{
	"authentication":   "Auth:Authentication",
	"acl":              "Auth:Access Control",
	"folders_manager":  "Data:Folders Manager",
	"group_manager":    "Data:Group Manager",
	"secure_data":      "Data:Secure Data",
	"template_manager": "Data:Template Manager",
	"static_manager":   "Utils:Static Manager",
}

// Deps is what app modules get to build their handlers.
type Deps struct {
	Logger   logrus.FieldLogger
	Users    service.UserService
	Storage  storage.Service
	Checkers []health.Checker
	// RequireAuth guards routes registered with Auth set.
	RequireAuth gin.HandlerFunc
	MaxUploadMB int64
	PartSizeMB  int64
}

// SetupFunc registers a module's routes.
type SetupFunc func(r *Routes, deps *Deps)

type Module struct {
	Name  string
	Tag   string
	Setup SetupFunc
}

var (
	mu      sync.Mutex
	modules = map[string]*Module{}
)

// Register adds the caller's package as an app module. The module name and
// its API tag come from the directory of the calling file, so an app only
// has to live under internal/apps/<name>/ and call Register from init.
func Register(setup SetupFunc) {
	if setup == nil {
		panic("router: Register called with nil setup")
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		panic("router: cannot determine caller of Register")
	}
	RegisterNamed(filepath.Base(filepath.Dir(file)), setup)
}

// RegisterNamed is Register with an explicit module directory name.
func RegisterNamed(name string, setup SetupFunc) {
	mu.Lock()
	defer mu.Unlock()

	if m, ok := modules[name]; ok {
		prev := m.Setup
		m.Setup = func(r *Routes, deps *Deps) {
			prev(r, deps)
			setup(r, deps)
		}
		return
	}
	modules[name] = &Module{Name: name, Tag: TagFor(name), Setup: setup}
}

// Modules returns registered modules sorted by name.
func Modules() []Module {
	mu.Lock()
	defer mu.Unlock()

	out := make([]Module, 0, len(modules))
	for _, m := range modules {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TagFor infers the API tag for an app directory name.
func TagFor(dir string) string {
	if tag, ok := categoryTags[dir]; ok {
		return tag
	}
	if dir == "" {
		dir = "unknown"
	}
	title := cases.Title(language.English).String(strings.ReplaceAll(dir, "_", " "))
	return "Apps:" + title
}

// Mount registers every module on engine. A module whose setup panics is
// logged and skipped, the others still mount.
func Mount(engine *gin.Engine, deps *Deps) []Route {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	var routes []Route
	for _, m := range Modules() {
		r := newRoutes(&engine.RouterGroup, m.Name, m.Tag, deps.RequireAuth)
		if err := setupModule(m, r, deps); err != nil {
			logger.WithError(err).WithField("module", m.Name).Error("skipping app module")
			continue
		}
		logger.WithFields(logrus.Fields{"module": m.Name, "routes": len(r.Recorded())}).Debug("app module mounted")
		routes = append(routes, r.Recorded()...)
	}
	return routes
}

func setupModule(m Module, r *Routes, deps *Deps) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("setup panicked: %v", rec)
		}
	}()
	m.Setup(r, deps)
	return nil
}
