// Package v1 provides the REST handlers for schema and entity management.
package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/cmdb-registry-server/internal/api/common"
	"github.com/stacklok/cmdb-registry-server/internal/model"
	"github.com/stacklok/cmdb-registry-server/internal/service"
)

// MaxBodySize bounds request payloads
const MaxBodySize = 1 << 20

// Routes holds the v1 handlers and their dependencies
type Routes struct {
	service service.RegistryService
}

// NewRoutes creates a new Routes instance with the provided service
func NewRoutes(svc service.RegistryService) *Routes {
	return &Routes{service: svc}
}

// Router creates the v1 router
func Router(svc service.RegistryService) http.Handler {
	routes := NewRoutes(svc)

	r := chi.NewRouter()
	r.Post("/schema", routes.defineSchema)
	r.Route("/schema/{name}", func(r chi.Router) {
		r.Get("/", routes.getSchema)
		r.Post("/", routes.defineNamedSchema)
		r.Post("/entity", routes.createEntity)
		r.Get("/entity/{key}", routes.getEntity)
	})

	return r
}

// defineSchema handles POST /v1/schema
func (rr *Routes) defineSchema(w http.ResponseWriter, r *http.Request) {
	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	name, _ := payload["name"].(string)
	rr.writeDefineSchema(w, r, name, payload)
}

// defineNamedSchema handles POST /v1/schema/{name}. A payload without a
// name takes the one from the URL.
func (rr *Routes) defineNamedSchema(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		writeBadRequest(w, KindBadRequest, err.Error())
		return
	}

	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	switch bodyName := payload["name"]; bodyName {
	case nil, "":
		payload["name"] = name
	case name:
	default:
		writeBadRequest(w, KindNameMismatch, "schema name in body does not match the URL")
		return
	}

	rr.writeDefineSchema(w, r, name, payload)
}

func (rr *Routes) writeDefineSchema(w http.ResponseWriter, r *http.Request, name string, payload map[string]any) {
	result, err := rr.service.DefineSchema(r.Context(), payload)
	if err != nil {
		writeServiceError(w, r, name, err)
		return
	}
	common.WriteJSONResponse(w, result, http.StatusCreated)
}

// createEntity handles POST /v1/schema/{name}/entity
func (rr *Routes) createEntity(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		writeBadRequest(w, KindBadRequest, err.Error())
		return
	}

	payload, ok := decodePayload(w, r)
	if !ok {
		return
	}

	result, err := rr.service.CreateEntity(r.Context(), name, payload)
	if err != nil {
		writeServiceError(w, r, name, err)
		return
	}
	common.WriteJSONResponse(w, result, http.StatusCreated)
}

// getSchema handles GET /v1/schema/{name}
func (rr *Routes) getSchema(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		writeBadRequest(w, KindBadRequest, err.Error())
		return
	}

	schema, err := rr.service.GetSchema(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, name, err)
		return
	}
	common.WriteJSONResponse(w, schema, http.StatusOK)
}

// getEntity handles GET /v1/schema/{name}/entity/{key}
func (rr *Routes) getEntity(w http.ResponseWriter, r *http.Request) {
	name, err := common.GetAndValidateURLParam(r, "name")
	if err != nil {
		writeBadRequest(w, KindBadRequest, err.Error())
		return
	}
	key, err := common.GetAndValidateURLParam(r, "key")
	if err != nil {
		writeBadRequest(w, KindBadRequest, err.Error())
		return
	}

	doc, err := rr.service.GetEntity(r.Context(), name, key)
	if err != nil {
		writeServiceError(w, r, name, err)
		return
	}
	common.WriteJSONResponse(w, doc, http.StatusOK)
}

// decodePayload reads a JSON object body, writing a 400 when it is not one
func decodePayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	payload, err := model.DecodeJSON(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		writeBadRequest(w, KindBadRequest, err.Error())
		return nil, false
	}
	return payload, true
}
