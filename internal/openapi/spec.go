package openapi

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

// Spec builds the OpenAPI 3.1 document for the keyfold API. The surface is
// fixed, so the document is assembled programmatically rather than loaded
// from a file.
func Spec() *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "keyfold API",
			Description: "Credential lifecycle and dual-mode authentication: short-lived signed tokens and long-lived opaque API keys.",
			Version:     "1.0.0",
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["apiKey"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type: "apiKey",
			In:   "header",
			Name: "X-API-Key",
		},
	}
	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: objectSchema(map[string]*openapi3.SchemaRef{
			"error": {
				Value: objectSchema(map[string]*openapi3.SchemaRef{
					"code":    schemaOf("integer"),
					"message": schemaOf("string"),
				}),
			},
		}),
	}
	doc.Components.Schemas["AuthResponse"] = &openapi3.SchemaRef{
		Value: objectSchema(map[string]*openapi3.SchemaRef{
			"token":   schemaOf("string"),
			"api_key": schemaOf("string"),
		}),
	}
	doc.Components.Schemas["RegisterRequest"] = &openapi3.SchemaRef{
		Value: objectSchema(map[string]*openapi3.SchemaRef{
			"username":  schemaOf("string"),
			"password":  schemaOf("string"),
			"auth_type": schemaOf("string"),
		}),
	}
	doc.Components.Schemas["ApiKeyRequest"] = &openapi3.SchemaRef{
		Value: objectSchema(map[string]*openapi3.SchemaRef{
			"api_key": schemaOf("string"),
		}),
	}
	doc.Components.Schemas["LoginRequest"] = &openapi3.SchemaRef{
		Value: objectSchema(map[string]*openapi3.SchemaRef{
			"username":  schemaOf("string"),
			"password":  schemaOf("string"),
			"api_key":   schemaOf("string"),
			"auth_type": schemaOf("string"),
		}),
	}

	doc.Paths = openapi3.NewPaths()
	doc.Paths.Set("/auth/register", &openapi3.PathItem{
		Post: operation("register", "Register a new principal",
			"With auth_type API_KEY the response carries a raw API key, shown exactly once; otherwise a signed token.",
			"RegisterRequest", "AuthResponse", false),
	})
	doc.Paths.Set("/auth/login", &openapi3.PathItem{
		Post: operation("login", "Authenticate and obtain a token",
			"Accepts username/password or a raw API key; the response shape is identical for both flows.",
			"LoginRequest", "AuthResponse", false),
	})
	doc.Paths.Set("/user/api-key/issue", &openapi3.PathItem{
		Post: operation("issueApiKey", "Issue a new API key",
			"Issues a fresh opaque key for the authenticated principal. Previously issued keys stay valid until their own expiry.",
			"", "AuthResponse", true),
	})
	doc.Paths.Set("/user/api-key", &openapi3.PathItem{
		Put: operation("setApiKey", "Store the principal's API key encrypted at rest",
			"The posted raw key is encrypted under the master key before it is persisted.",
			"ApiKeyRequest", "", true),
		Get: operation("getApiKey", "Reveal the principal's stored API key",
			"", "", "AuthResponse", true),
	})

	return doc
}

// Handler serves the spec at /openapi.json.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Spec())
	}
}

func schemaOf(t string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{t}}}
}

func objectSchema(props map[string]*openapi3.SchemaRef) *openapi3.Schema {
	schemas := openapi3.Schemas{}
	for name, ref := range props {
		schemas[name] = ref
	}
	return &openapi3.Schema{Type: &openapi3.Types{"object"}, Properties: schemas}
}

func operation(id, summary, description, requestSchema, responseSchema string, secured bool) *openapi3.Operation {
	op := openapi3.NewOperation()
	op.OperationID = id
	op.Summary = summary
	op.Description = description

	if requestSchema != "" {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithJSONSchemaRef(
				openapi3.NewSchemaRef("#/components/schemas/"+requestSchema, nil)),
		}
	}

	responses := openapi3.NewResponses()
	if responseSchema != "" {
		ok := openapi3.NewResponse().
			WithDescription("Success").
			WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/"+responseSchema, nil))
		responses.Set("200", &openapi3.ResponseRef{Value: ok})
	} else {
		responses.Set("200", &openapi3.ResponseRef{
			Value: openapi3.NewResponse().WithDescription("Success"),
		})
	}
	responses.Set("default", &openapi3.ResponseRef{
		Value: openapi3.NewResponse().
			WithDescription("Error").
			WithJSONSchemaRef(openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)),
	})
	op.Responses = responses

	if secured {
		op.Security = &openapi3.SecurityRequirements{
			{"apiKey": {}},
			{"bearerAuth": {}},
		}
	}
	return op
}
