package openapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/642studio/bachejoa/internal/datastore"
	"github.com/642studio/bachejoa/internal/model"
	"github.com/642studio/bachejoa/internal/reporting"
	"github.com/642studio/bachejoa/internal/service"
)

// Access is the identity a route demands before its handler runs.
type Access int

const (
	Public  Access = iota
	Session        // a signed-in user
	Admin          // a user with the admin role
)

// Operation documents one HTTP route of the API.
type Operation struct {
	Method   string
	Path     string
	ID       string
	Tag      string
	Summary  string
	Access   Access
	Denied   int           // status answered when Access is not met
	Rule     *service.Rule // fixed-window limit, nil when the route has none
	Request  string        // component schema of the JSON body
	Response string        // component schema of the success body
	Params   openapi3.Parameters
}

func rule(r service.Rule) *service.Rule { return &r }

// Operations returns every documented route in registration order.
func Operations() []Operation {
	idParam := openapi3.Parameters{
		&openapi3.ParameterRef{Value: openapi3.NewPathParameter("id").
			WithDescription("Report id.").
			WithSchema(openapi3.NewUUIDSchema())},
	}

	return []Operation{
		{Method: http.MethodGet, Path: "/healthz", ID: "healthz", Tag: "system",
			Summary: "Liveness probe", Response: "Health"},
		{Method: http.MethodGet, Path: "/readyz", ID: "readyz", Tag: "system",
			Summary: "Readiness probe (pings the store)", Response: "Health"},

		{Method: http.MethodPost, Path: "/api/auth/register", ID: "register", Tag: "auth",
			Summary: "Create an account and start a session",
			Rule:    rule(service.RuleRegister), Request: "RegisterRequest", Response: "UserEnvelope"},
		{Method: http.MethodPost, Path: "/api/auth/login", ID: "login", Tag: "auth",
			Summary: "Sign in with email or username",
			Rule:    rule(service.RuleLogin), Request: "LoginRequest", Response: "UserEnvelope"},
		{Method: http.MethodPost, Path: "/api/auth/logout", ID: "logout", Tag: "auth",
			Summary: "Revoke the current session", Response: "OKResponse"},
		{Method: http.MethodGet, Path: "/api/auth/me", ID: "me", Tag: "auth",
			Summary: "Current user and report stats, both null when anonymous", Response: "Me"},
		{Method: http.MethodPatch, Path: "/api/auth/me", ID: "update_me", Tag: "auth",
			Summary: "Choose an avatar", Access: Session, Denied: http.StatusUnauthorized,
			Rule: rule(service.RuleProfileUpdate), Request: "AvatarRequest", Response: "UserEnvelope"},
		{Method: http.MethodGet, Path: "/api/account", ID: "account", Tag: "auth",
			Summary: "Current user and their reports", Access: Session, Denied: http.StatusUnauthorized,
			Rule: rule(service.RuleAccountRead), Response: "Account"},

		{Method: http.MethodGet, Path: "/api/reports", ID: "list_reports", Tag: "reports",
			Summary: "List reports newest first", Response: "ReportPage", Params: listParameters()},
		{Method: http.MethodPost, Path: "/api/reports", ID: "create_report", Tag: "reports",
			Summary: "Pin a new report",
			Rule:    rule(service.RuleReportCreate), Request: "ReportCreate", Response: "Report"},
		{Method: http.MethodDelete, Path: "/api/reports/{id}", ID: "delete_report", Tag: "reports",
			Summary: "Delete a report", Access: Admin, Denied: http.StatusForbidden,
			Rule: rule(service.RuleReportDelete), Response: "OKResponse", Params: idParam},
		{Method: http.MethodPost, Path: "/api/reports/{id}/status", ID: "set_report_status", Tag: "reports",
			Summary: "Move a report to another stage", Access: Admin, Denied: http.StatusForbidden,
			Rule: rule(service.RuleReportStatus), Request: "ReportStatus", Response: "Report", Params: idParam},
		{Method: http.MethodPost, Path: "/api/reports/{id}/type", ID: "set_report_type", Tag: "reports",
			Summary: "Reclassify a report", Access: Admin, Denied: http.StatusForbidden,
			Rule: rule(service.RuleReportType), Request: "ReportType", Response: "Report", Params: idParam},
		{Method: http.MethodPost, Path: "/api/reports/{id}/repair", ID: "set_report_repaired", Tag: "reports",
			Summary: "Mark a report repaired or reopen it", Access: Admin, Denied: http.StatusForbidden,
			Rule: rule(service.RuleReportRepair), Request: "ReportRepair", Response: "Report", Params: idParam},
		{Method: http.MethodPost, Path: "/api/reports/{id}/photo", ID: "set_report_photo", Tag: "reports",
			Summary: "Attach a photo URL", Access: Session, Denied: http.StatusForbidden,
			Rule: rule(service.RuleReportPhoto), Request: "ReportPhoto", Response: "Report", Params: idParam},
		{Method: http.MethodPost, Path: "/api/reports/{id}/rating", ID: "rate_report", Tag: "reports",
			Summary: "Rate a repair once per device",
			Rule:    rule(service.RuleReportRating), Request: "RatingRequest", Response: "RatingSummary", Params: idParam},
		{Method: http.MethodPost, Path: "/api/reports/{id}/angry", ID: "angry_report", Tag: "reports",
			Summary: "Add an angry reaction",
			Rule:    rule(service.RuleReportAngry), Response: "AngryCount", Params: idParam},

		{Method: http.MethodPost, Path: "/api/uploads", ID: "create_upload", Tag: "uploads",
			Summary: "Presign a photo upload",
			Rule:    rule(service.RuleUploadCreate), Request: "UploadRequest", Response: "SignedUpload"},
		{Method: http.MethodPost, Path: "/api/contact", ID: "create_contact", Tag: "contact",
			Summary: "Leave a message for the team",
			Rule:    rule(service.RuleContactCreate), Request: "ContactRequest", Response: "ContactCreated"},
	}
}

// Generate builds the OpenAPI 3.1 document for the HTTP API.
func Generate(baseURL string) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "Bachejoa API",
			Description: "Citizen reports of potholes and other street problems, with accounts and abuse limits.",
			Version:     "1.0.0",
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = componentSchemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"session": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:        "apiKey",
				In:          "cookie",
				Name:        service.SessionCookieName,
				Description: "Opaque session token set by register and login.",
			},
		},
	}
	doc.Components = &components

	doc.Paths = openapi3.NewPaths()
	for _, op := range Operations() {
		item := doc.Paths.Value(op.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(op.Path, item)
		}
		item.SetOperation(op.Method, buildOperation(op))
	}
	return doc
}

func buildOperation(op Operation) *openapi3.Operation {
	o := &openapi3.Operation{
		Tags:        []string{op.Tag},
		Summary:     op.Summary,
		OperationID: op.ID,
		Parameters:  op.Params,
		Responses:   openapi3.NewResponses(),
	}

	if op.Request != "" {
		o.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(ref(op.Request)),
		}
		setError(o.Responses, http.StatusBadRequest, "Invalid payload")
	}
	if op.Access != Public {
		o.Security = &openapi3.SecurityRequirements{{"session": {}}}
		desc := "Sign-in required"
		if op.Access == Admin {
			desc = "Admin role required"
		}
		setError(o.Responses, op.Denied, desc)
	}
	if strings.Contains(op.Path, "{id}") {
		setError(o.Responses, http.StatusNotFound, "Report not found")
	}
	if op.Rule != nil {
		o.Extensions = map[string]interface{}{
			"x-rate-limit": map[string]interface{}{
				"route":  op.Rule.Route,
				"limit":  op.Rule.Limit,
				"window": op.Rule.Window.String(),
			},
		}
		setError(o.Responses, http.StatusTooManyRequests, "Rate limit exceeded; see Retry-After")
	}
	if op.ID == "create_report" {
		setError(o.Responses, http.StatusForbidden, "Anonymous report quota reached (code ANON_LIMIT_REACHED)")
	}
	if op.ID == "readyz" || op.ID == "create_upload" {
		setError(o.Responses, http.StatusServiceUnavailable, "Dependency unavailable")
	}

	okDesc := op.Summary
	o.Responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &okDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(ref(op.Response)),
		},
	})
	setError(o.Responses, http.StatusInternalServerError, "Internal server error")
	return o
}

func setError(responses *openapi3.Responses, status int, description string) {
	desc := description
	responses.Set(fmt.Sprint(status), &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(ref("ErrorResponse")),
		},
	})
}

func listParameters() openapi3.Parameters {
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("limit").
				WithDescription(fmt.Sprintf("Page size, default %d, at most %d.",
					service.DefaultReportPageSize, service.MaxReportPageSize)).
				WithSchema(openapi3.NewIntegerSchema()),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("cursor").
				WithDescription("created_at of the last report on the previous page.").
				WithSchema(openapi3.NewDateTimeSchema()),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("cursor_id").
				WithDescription("id of the last report on the previous page.").
				WithSchema(openapi3.NewStringSchema()),
		},
	}
}

// ─── Schemas ────────────────────────────────────────────────────────────────

func componentSchemas() openapi3.Schemas {
	categories := make([]string, len(reporting.Categories))
	for i, c := range reporting.Categories {
		categories[i] = c.Name
	}

	return openapi3.Schemas{
		"ErrorResponse": object(openapi3.Schemas{
			"error": str(),
			"code":  str(),
		}, "error"),
		"OKResponse": object(openapi3.Schemas{"ok": boolean()}, "ok"),
		"Health":     object(openapi3.Schemas{"status": str()}, "status"),

		"User":      tableSchema(datastore.TableUsers, model.UserColumns),
		"UserStats": object(openapi3.Schemas{"reports_total": integer(), "reports_verified": integer()}),
		"UserEnvelope": object(openapi3.Schemas{
			"user": ref("User"),
		}, "user"),
		"Me": object(openapi3.Schemas{
			"user":  nullable(ref("User")),
			"stats": nullable(ref("UserStats")),
		}, "user", "stats"),
		"Account": object(openapi3.Schemas{
			"user":    ref("User"),
			"reports": array(ref("Report")),
		}, "user", "reports"),
		"RegisterRequest": object(openapi3.Schemas{
			"username": str(),
			"email":    str(),
			"password": str(),
		}, "username", "email", "password"),
		"LoginRequest": object(openapi3.Schemas{
			"identifier": str(),
			"email":      str(),
			"password":   str(),
		}, "password"),
		"AvatarRequest": object(openapi3.Schemas{
			"avatar_key": enum(service.AvatarOptions),
		}, "avatar_key"),

		"Report": tableSchema(datastore.TableReports, model.ReportColumns),
		"ReportPage": object(openapi3.Schemas{
			"data": array(ref("Report")),
			"nextCursor": nullable(object(openapi3.Schemas{
				"cursor":    dateTime(),
				"cursor_id": str(),
			}, "cursor", "cursor_id")),
		}, "data", "nextCursor"),
		"ReportCreate": object(openapi3.Schemas{
			"lat":         number(),
			"lng":         number(),
			"type":        str(),
			"category":    enum(categories),
			"subcategory": str(),
			"status":      enum(reporting.Statuses),
			"photo_url":   str(),
		}, "lat", "lng"),
		"ReportStatus": object(openapi3.Schemas{"status": enum(reporting.Statuses)}, "status"),
		"ReportType": object(openapi3.Schemas{
			"category":    enum(categories),
			"subcategory": str(),
		}, "category", "subcategory"),
		"ReportRepair":  object(openapi3.Schemas{"repaired": boolean()}),
		"ReportPhoto":   object(openapi3.Schemas{"photo_url": str()}, "photo_url"),
		"RatingRequest": object(openapi3.Schemas{"rating": bounded(1, 5)}, "rating"),
		"RatingSummary": object(openapi3.Schemas{
			"repair_rating_avg":   number(),
			"repair_rating_count": integer(),
		}, "repair_rating_avg", "repair_rating_count"),
		"AngryCount": object(openapi3.Schemas{"angry_count": integer()}, "angry_count"),

		"UploadRequest": object(openapi3.Schemas{
			"filename":    str(),
			"contentType": str(),
			"size":        integer(),
		}, "filename", "contentType", "size"),
		"SignedUpload": object(openapi3.Schemas{
			"bucket":    str(),
			"path":      str(),
			"signedUrl": str(),
			"publicUrl": str(),
		}, "bucket", "path", "signedUrl", "publicUrl"),

		"ContactRequest": object(openapi3.Schemas{
			"name":    str(),
			"contact": str(),
			"topic":   str(),
			"message": str(),
		}, "name", "contact", "message"),
		"ContactCreated": object(openapi3.Schemas{"id": str()}, "id"),
	}
}

// tableSchema derives an object schema from the migrated table definition,
// restricted to the public columns.
func tableSchema(table string, columns []string) *openapi3.SchemaRef {
	var def model.TableSchema
	for _, t := range datastore.Tables() {
		if t.Name == table {
			def = t
			break
		}
	}
	public := make(map[string]bool, len(columns))
	for _, c := range columns {
		public[c] = true
	}

	props := openapi3.Schemas{}
	for _, col := range def.Columns {
		if !public[col.Name] {
			continue
		}
		m := MapGoType(col.GoType)
		s := &openapi3.Schema{Type: &openapi3.Types{m.Type}, Format: m.Format}
		if col.Nullable {
			s.Nullable = true
		}
		if col.MaxLength != nil && m.Type == "string" {
			ml := uint64(*col.MaxLength)
			s.MaxLength = &ml
		}
		props[col.Name] = &openapi3.SchemaRef{Value: s}
	}
	return object(props, columns...)
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func object(props openapi3.Schemas, required ...string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
	}}
}

func array(items *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: items}}
}

// nullable wraps s so that null is also accepted.
func nullable(s *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{
		Nullable: true,
		AllOf:    openapi3.SchemaRefs{s},
	}}
}

func enum(values []string) *openapi3.SchemaRef {
	s := openapi3.NewStringSchema()
	for _, v := range values {
		s.Enum = append(s.Enum, v)
	}
	return &openapi3.SchemaRef{Value: s}
}

func bounded(min, max float64) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: openapi3.NewIntegerSchema().WithMin(min).WithMax(max)}
}

func str() *openapi3.SchemaRef      { return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()} }
func dateTime() *openapi3.SchemaRef { return &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()} }
func boolean() *openapi3.SchemaRef  { return &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()} }
func number() *openapi3.SchemaRef   { return &openapi3.SchemaRef{Value: openapi3.NewFloat64Schema()} }
func integer() *openapi3.SchemaRef  { return &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()} }
