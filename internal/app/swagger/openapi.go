// Package swagger builds the OpenAPI document for the gateway actions and
// serves it together with a Swagger UI page.
package swagger

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/R3E-Network/marina/internal/app/httpapi"
	"github.com/R3E-Network/marina/internal/config"
	"github.com/R3E-Network/marina/internal/httputil"
)

// Version is the OpenAPI version emitted.
const Version = "3.0.3"

// SecurityScheme names the bearer scheme applied to authenticated actions.
const SecurityScheme = "bearerAuth"

const errorSchema = "Error"

// Options configures Build.
type Options struct {
	Info      config.DocsInfo
	ServerURL string
	BasePath  string
}

// Build describes actions as an OpenAPI document.
func Build(opts Options, actions []httpapi.Action) (*openapi3.T, error) {
	info := opts.Info
	if info.Title == "" {
		info = config.DefaultDocsInfo()
	}

	errRef, err := reflectSchema(httputil.ErrorResponse{})
	if err != nil {
		return nil, fmt.Errorf("error schema: %w", err)
	}
	b := &builder{
		errRef: &openapi3.SchemaRef{Ref: "#/components/schemas/" + errorSchema, Value: errRef.Value},
	}

	doc := &openapi3.T{
		OpenAPI: Version,
		Info:    infoObject(info),
		Paths:   openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{errorSchema: errRef},
			SecuritySchemes: openapi3.SecuritySchemes{
				SecurityScheme: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}
	if opts.ServerURL != "" {
		doc.Servers = openapi3.Servers{{URL: strings.TrimRight(opts.ServerURL, "/") + opts.BasePath}}
	}

	seen := map[string]bool{}
	for _, action := range actions {
		path := action.Path
		if len(doc.Servers) == 0 {
			path = opts.BasePath + path
		}
		op, err := b.operation(action)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", action.Name, err)
		}

		item := doc.Paths.Value(path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(path, item)
		}
		item.SetOperation(strings.ToUpper(action.Method), op)

		if action.Tag != "" && !seen[action.Tag] {
			seen[action.Tag] = true
			doc.Tags = append(doc.Tags, &openapi3.Tag{Name: action.Tag})
		}
	}
	sort.Slice(doc.Tags, func(i, j int) bool { return doc.Tags[i].Name < doc.Tags[j].Name })
	return doc, nil
}

func infoObject(info config.DocsInfo) *openapi3.Info {
	out := &openapi3.Info{
		Title:       info.Title,
		Version:     info.Version,
		Description: info.Description,
	}
	if info.License.Name != "" {
		out.License = &openapi3.License{Name: info.License.Name, URL: info.License.URL}
	}
	if c := info.Contact; c != nil {
		out.Contact = &openapi3.Contact{Name: c.Name, Email: c.Email, URL: c.URL}
	}
	return out
}

type builder struct {
	errRef *openapi3.SchemaRef
}

func (b *builder) operation(action httpapi.Action) (*openapi3.Operation, error) {
	op := &openapi3.Operation{
		OperationID: action.Name,
		Summary:     action.Summary,
		Responses:   &openapi3.Responses{},
	}
	if action.Tag != "" {
		op.Tags = []string{action.Tag}
	}

	for _, name := range action.PathParams() {
		p := openapi3.NewPathParameter(name).WithSchema(openapi3.NewStringSchema())
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: p})
	}
	for _, q := range action.Query {
		typ := q.Type
		if typ == "" {
			typ = openapi3.TypeString
		}
		p := openapi3.NewQueryParameter(q.Name).
			WithDescription(q.Description).
			WithSchema(&openapi3.Schema{Type: typ})
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{Value: p})
	}

	if action.Request != nil {
		ref, err := reflectSchema(action.Request)
		if err != nil {
			return nil, fmt.Errorf("request schema: %w", err)
		}
		body := openapi3.NewRequestBody().WithRequired(true).WithJSONSchemaRef(ref)
		op.RequestBody = &openapi3.RequestBodyRef{Value: body}
		b.fail(op, http.StatusBadRequest)
		b.fail(op, http.StatusUnprocessableEntity)
	}

	status := action.Status
	if status == 0 {
		status = http.StatusOK
	}
	ok := openapi3.NewResponse().WithDescription(http.StatusText(status))
	if action.Response != nil {
		ref, err := reflectSchema(action.Response)
		if err != nil {
			return nil, fmt.Errorf("response schema: %w", err)
		}
		ok.WithJSONSchemaRef(ref)
	}
	op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: ok})

	switch action.Auth {
	case httpapi.AuthRequired:
		op.Security = &openapi3.SecurityRequirements{
			openapi3.NewSecurityRequirement().Authenticate(SecurityScheme),
		}
		b.fail(op, http.StatusUnauthorized)
	case httpapi.AuthOptional:
		// An empty requirement marks the token as optional.
		op.Security = &openapi3.SecurityRequirements{
			openapi3.NewSecurityRequirement().Authenticate(SecurityScheme),
			openapi3.NewSecurityRequirement(),
		}
	}
	if action.Admin {
		b.fail(op, http.StatusForbidden)
	}
	if len(action.PathParams()) > 0 {
		b.fail(op, http.StatusNotFound)
	}
	return op, nil
}

func (b *builder) fail(op *openapi3.Operation, status int) {
	resp := openapi3.NewResponse().
		WithDescription(http.StatusText(status)).
		WithJSONSchemaRef(b.errRef)
	op.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
}

func reflectSchema(v interface{}) (*openapi3.SchemaRef, error) {
	return openapi3gen.NewSchemaRefForValue(v, nil,
		openapi3gen.UseAllExportedFields(),
		openapi3gen.SchemaCustomizer(customize),
	)
}

// customize applies validator rules to field schemas. On structs it also
// derives the required list and marks pointer fields nullable, since the
// field callbacks only see the dereferenced type.
func customize(_ string, t reflect.Type, tag reflect.StructTag, s *openapi3.Schema) error {
	applyRules(s, tag.Get("validate"))
	if t.Kind() != reflect.Struct || len(s.Properties) == 0 {
		return nil
	}

	var required []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, ok := jsonName(f)
		if !ok {
			continue
		}
		prop := s.Properties[name]
		if prop == nil {
			continue
		}
		if hasRule(f.Tag.Get("validate"), "required") {
			required = append(required, name)
		}
		if f.Type.Kind() == reflect.Ptr && prop.Value != nil && prop.Value.Type != openapi3.TypeObject {
			prop.Value.Nullable = true
		}
	}
	sort.Strings(required)
	s.Required = required
	return nil
}

func jsonName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	return name, true
}

func hasRule(rules, rule string) bool {
	for _, r := range strings.Split(rules, ",") {
		if key, _, _ := strings.Cut(strings.TrimSpace(r), "="); key == rule {
			return true
		}
	}
	return false
}

// applyRules maps validator rules onto the schema.
func applyRules(s *openapi3.Schema, rules string) {
	if rules == "" {
		return
	}
	for _, rule := range strings.Split(rules, ",") {
		key, arg, _ := strings.Cut(strings.TrimSpace(rule), "=")
		switch key {
		case "email":
			s.Format = "email"
		case "integer":
			s.Type = openapi3.TypeInteger
			s.Format = ""
		case "min", "max":
			n, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				continue
			}
			applyBound(s, key, n)
		}
	}
}

func applyBound(s *openapi3.Schema, key string, n float64) {
	if s.Type == openapi3.TypeString {
		length := uint64(n)
		if key == "min" {
			s.MinLength = length
		} else {
			s.MaxLength = &length
		}
		return
	}
	if key == "min" {
		s.Min = &n
	} else {
		s.Max = &n
	}
}
