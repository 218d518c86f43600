package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/solatis/docupdate/internal/core/auth"
	"github.com/solatis/docupdate/internal/core/store"
	"github.com/solatis/docupdate/internal/types"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func documentID(r *http.Request) (types.DocumentID, error) {
	id, err := types.ParseDocumentID(mux.Vars(r)["id"])
	if err != nil {
		return "", fmt.Errorf("%w: document id must be a UUID", types.ErrInvalidOperation)
	}
	return id, nil
}

// HandleCreate stores the request body as a new document.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := h.decodeBody(w, r)
	if err != nil {
		h.fail(w, r, "create document", err)
		return
	}
	doc, err := h.store.Create(r.Context(), auth.TenantFromContext(r.Context()), body)
	if err != nil {
		h.fail(w, r, "create document", err)
		return
	}
	w.Header().Set("Location", "/documents/"+string(doc.ID))
	h.writeDocument(w, r, http.StatusCreated, doc)
}

// HandleList returns document summaries, ?limit= bounded.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}
	list, err := h.store.List(r.Context(), auth.TenantFromContext(r.Context()), limit)
	if err != nil {
		h.fail(w, r, "list documents", err)
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": list})
}

// HandleGet returns one document.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, "get document", err)
		return
	}
	doc, err := h.store.Get(r.Context(), auth.TenantFromContext(r.Context()), id)
	if err != nil {
		h.fail(w, r, "get document", err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, doc)
}

// HandleUpdate applies the body as an update operation, at ?path= if given.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, "update document", err)
		return
	}
	op, err := h.decodeBody(w, r)
	if err != nil {
		h.fail(w, r, "update document", err)
		return
	}
	doc, err := h.store.ApplyAtPath(r.Context(), auth.TenantFromContext(r.Context()), id, r.URL.Query().Get("path"), op)
	if err != nil {
		h.fail(w, r, "update document", err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, doc)
}

// HandleReplace overwrites a document with the request body.
func (h *Handler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, "replace document", err)
		return
	}
	body, err := h.decodeBody(w, r)
	if err != nil {
		h.fail(w, r, "replace document", err)
		return
	}
	doc, err := h.store.Replace(r.Context(), auth.TenantFromContext(r.Context()), id, body)
	if err != nil {
		h.fail(w, r, "replace document", err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, doc)
}

// HandleDelete removes a document.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, "delete document", err)
		return
	}
	if err := h.store.Delete(r.Context(), auth.TenantFromContext(r.Context()), id); err != nil {
		h.fail(w, r, "delete document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBatch merges {"operations": [...]} and applies them in one write.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		h.fail(w, r, "batch update", err)
		return
	}
	body, err := h.decodeBody(w, r)
	if err != nil {
		h.fail(w, r, "batch update", err)
		return
	}
	ops, ok := body["operations"].([]any)
	if !ok {
		WriteJSONError(w, http.StatusBadRequest, "operations must be a list")
		return
	}
	doc, err := h.store.ApplyBatch(r.Context(), auth.TenantFromContext(r.Context()), id, ops)
	if err != nil {
		h.fail(w, r, "batch update", err)
		return
	}
	h.writeDocument(w, r, http.StatusOK, doc)
}
