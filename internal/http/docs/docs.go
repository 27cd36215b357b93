// Package docs serves the OpenAPI document built from the route registry and
// a Swagger UI page for it.
package docs

import (
	_ "embed"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"api-boilerplate/internal/router"
)

const (
	OpenAPIPath = "/openapi.json"
	UIPath      = "/docs"
)

//go:embed swagger-ui.html
var swaggerTemplate string

var ginParam = regexp.MustCompile(`[:*]([A-Za-z0-9_]+)`)

// Register mounts the OpenAPI document and the UI page.
func Register(engine *gin.Engine, title, version string, routes []router.Route) {
	doc := Build(title, version, routes)
	page := RenderUI(title, OpenAPIPath)

	engine.GET(OpenAPIPath, func(c *gin.Context) {
		c.JSON(http.StatusOK, doc)
	})
	engine.GET(UIPath, func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})
}

func RenderUI(title, openAPIURL string) string {
	page := strings.ReplaceAll(swaggerTemplate, "{{title}}", title)
	return strings.ReplaceAll(page, "{{openapi_url}}", openAPIURL)
}

// Build renders an OpenAPI 3 document. Hierarchical tags ("Group:Name") are
// also listed under x-tagGroups.
func Build(title, version string, routes []router.Route) map[string]any {
	paths := map[string]any{}
	tagSet := map[string]struct{}{}
	groups := map[string][]string{}

	for _, r := range routes {
		p, params := openAPIPath(r.Path)
		item, ok := paths[p].(map[string]any)
		if !ok {
			item = map[string]any{}
			paths[p] = item
		}

		op := map[string]any{
			"summary":     r.Summary,
			"tags":        []string{r.Tag},
			"operationId": operationID(r),
			"responses": map[string]any{
				"200": map[string]any{"description": "Successful Response"},
			},
		}
		if len(params) > 0 {
			ps := make([]map[string]any, 0, len(params))
			for _, name := range params {
				ps = append(ps, map[string]any{
					"name":     name,
					"in":       "path",
					"required": true,
					"schema":   map[string]any{"type": "string"},
				})
			}
			op["parameters"] = ps
		}
		if r.Auth {
			op["security"] = []map[string][]string{{"HTTPBearer": {}}}
		}
		item[strings.ToLower(r.Method)] = op

		if _, seen := tagSet[r.Tag]; !seen {
			tagSet[r.Tag] = struct{}{}
			group := r.Tag
			if i := strings.Index(r.Tag, ":"); i >= 0 {
				group = r.Tag[:i]
			}
			groups[group] = append(groups[group], r.Tag)
		}
	}

	tags := make([]map[string]any, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, map[string]any{"name": tag})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i]["name"].(string) < tags[j]["name"].(string) })

	groupNames := make([]string, 0, len(groups))
	for g := range groups {
		groupNames = append(groupNames, g)
	}
	sort.Strings(groupNames)
	tagGroups := make([]map[string]any, 0, len(groupNames))
	for _, g := range groupNames {
		sort.Strings(groups[g])
		tagGroups = append(tagGroups, map[string]any{"name": g, "tags": groups[g]})
	}

	return map[string]any{
		"openapi": "3.0.3",
		"info":    map[string]any{"title": title, "version": version},
		"paths":   paths,
		"tags":    tags,
		"components": map[string]any{
			"securitySchemes": map[string]any{
				"HTTPBearer": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
		"x-tagGroups": tagGroups,
	}
}

// openAPIPath converts gin's :name and *name segments to {name}.
func openAPIPath(p string) (string, []string) {
	var params []string
	out := ginParam.ReplaceAllStringFunc(p, func(m string) string {
		name := m[1:]
		params = append(params, name)
		return "{" + name + "}"
	})
	return out, params
}

func operationID(r router.Route) string {
	clean := strings.NewReplacer("/", "_", ":", "", "*", "", "{", "", "}", "").Replace(strings.Trim(r.Path, "/"))
	if clean == "" {
		clean = "root"
	}
	return strings.ToLower(r.Method) + "_" + clean
}
