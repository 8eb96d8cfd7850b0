package swagger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	app "github.com/R3E-Network/marina/internal/app"
	"github.com/R3E-Network/marina/internal/app/httpapi"
	"github.com/R3E-Network/marina/internal/config"
	"github.com/R3E-Network/marina/internal/logging"
)

func actions(t *testing.T) []httpapi.Action {
	t.Helper()
	application, err := app.New(app.Stores{}, app.Options{BcryptCost: 4}, logging.NewDiscard("app"))
	require.NoError(t, err)
	return httpapi.New(httpapi.Config{App: application, Logger: logging.NewDiscard("api")}).Actions()
}

func build(t *testing.T, opts Options) *openapi3.T {
	t.Helper()
	doc, err := Build(opts, actions(t))
	require.NoError(t, err)
	return doc
}

func encoded(t *testing.T, doc *openapi3.T) string {
	t.Helper()
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	return string(data)
}

func op(t *testing.T, doc *openapi3.T, path, method string) gjson.Result {
	t.Helper()
	item := doc.Paths.Value(path)
	require.NotNil(t, item, "missing path %s", path)
	o := item.GetOperation(method)
	require.NotNil(t, o, "missing %s %s", method, path)
	data, err := json.Marshal(o)
	require.NoError(t, err)
	return gjson.ParseBytes(data)
}

func TestBuildDocument(t *testing.T) {
	doc := build(t, Options{BasePath: "/api"})
	require.NoError(t, doc.Validate(context.Background()))
	out := encoded(t, doc)

	assert.Equal(t, Version, gjson.Get(out, "openapi").String())
	assert.Equal(t, "SOA1", gjson.Get(out, "info.title").String())
	assert.Equal(t, "4.2.0", gjson.Get(out, "info.version").String())
	assert.Equal(t, "Apache 2.0", gjson.Get(out, "info.license.name").String())
	assert.Equal(t, "bearer", gjson.Get(out, "components.securitySchemes.bearerAuth.scheme").String())

	var tags []string
	for _, tag := range gjson.Get(out, "tags.#.name").Array() {
		tags = append(tags, tag.String())
	}
	assert.Equal(t, []string{"microservice boat", "microservice user", "system"}, tags)

	require.Len(t, doc.Paths.Value("/api/boats/{id}").Operations(), 3)
	get := op(t, doc, "/api/boats/{id}", http.MethodGet)
	assert.Equal(t, "id", get.Get("parameters.0.name").String())
	assert.Equal(t, "path", get.Get("parameters.0.in").String())
	assert.True(t, get.Get("security.0.bearerAuth").Exists())
	assert.True(t, get.Get("responses.401").Exists())
	assert.True(t, get.Get("responses.404").Exists())

	del := op(t, doc, "/api/boats/{id}", http.MethodDelete)
	assert.Equal(t, "No Content", del.Get("responses.204.description").String())
	assert.False(t, del.Get("responses.204.content").Exists())
}

func TestRequestSchemasFollowValidationRules(t *testing.T) {
	doc := build(t, Options{BasePath: "/api"})

	create := op(t, doc, "/api/users", http.MethodPost)
	assert.Equal(t, "users.create", create.Get("operationId").String())
	assert.False(t, create.Get("security").Exists(), "registration is public")
	assert.True(t, create.Get("responses.201").Exists())
	assert.True(t, create.Get("responses.422").Exists())

	body := create.Get(`requestBody.content.application/json.schema`)
	assert.Equal(t, "user", body.Get("required.0").String())
	userSchema := body.Get("properties.user")
	assert.Equal(t, "email", userSchema.Get("properties.email.format").String())
	assert.Equal(t, int64(6), userSchema.Get("properties.password.minLength").Int())
	assert.Equal(t, `["email","firstname","lastname","password"]`, userSchema.Get("required").Raw)

	boat := op(t, doc, "/api/boats", http.MethodPost).Get(`requestBody.content.application/json.schema.properties.boat`)
	assert.Equal(t, "integer", boat.Get("properties.year.type").String())
	assert.Equal(t, 1970.0, boat.Get("properties.year.minimum").Float())
	assert.Equal(t, 9999.0, boat.Get("properties.year.maximum").Float())
	assert.False(t, boat.Get("properties.year.format").Exists())
	assert.Equal(t, int64(2), boat.Get("properties.make.minLength").Int())
	assert.Equal(t, int64(5), boat.Get("properties.registrationNumber.minLength").Int())
	assert.True(t, boat.Get("properties.hasTrailer.nullable").Bool())
	assert.Equal(t, `["make","model","year"]`, boat.Get("required").Raw)

	login := op(t, doc, "/api/users/login", http.MethodPost)
	assert.Len(t, login.Get("security").Array(), 2, "optional auth lists an empty requirement")

	list := op(t, doc, "/api/boats", http.MethodGet)
	assert.True(t, list.Get("responses.403").Exists())
	items := list.Get(`responses.200.content.application/json.schema`)
	assert.Equal(t, "array", items.Get("type").String())
	assert.Equal(t, "date-time", items.Get("items.properties.createdAt.format").String())

	events := op(t, doc, "/api/admin/events", http.MethodGet).Get("parameters.0")
	assert.Equal(t, "limit", events.Get("name").String())
	assert.Equal(t, "query", events.Get("in").String())
	assert.Equal(t, "integer", events.Get("schema.type").String())
}

func TestBuildWithServerURL(t *testing.T) {
	info := config.DefaultDocsInfo()
	info.Title = "Marina"
	doc := build(t, Options{Info: info, ServerURL: "http://localhost:3000/", BasePath: "/api"})
	out := encoded(t, doc)

	assert.Equal(t, "Marina", gjson.Get(out, "info.title").String())
	assert.Equal(t, "http://localhost:3000/api", gjson.Get(out, "servers.0.url").String())
	assert.NotNil(t, doc.Paths.Value("/boats/mine"))
	assert.Nil(t, doc.Paths.Value("/api/boats/mine"))
}

func TestServer(t *testing.T) {
	srv, err := NewServer(build(t, Options{BasePath: "/api"}), logging.NewDiscard("docs"))
	require.NoError(t, err)
	h := srv.Router()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, SpecPath, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, Version, gjson.Get(rr.Body.String(), "openapi").String())
	assert.NotEmpty(t, rr.Header().Get("X-Trace-ID"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<title>SOA1</title>")
	assert.Contains(t, rr.Body.String(), "SwaggerUIBundle")
	assert.Contains(t, rr.Body.String(), "openapi.json")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
