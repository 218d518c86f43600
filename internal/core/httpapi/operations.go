package httpapi

import (
	"net/http"

	"github.com/solatis/docupdate/internal/codec"
	"github.com/solatis/docupdate/internal/update"
)

// HandleMerge folds {"operations": [...]} into a single operation.
func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	body, err := h.decodeBody(w, r)
	if err != nil {
		h.fail(w, r, "merge operations", err)
		return
	}
	ops, ok := body["operations"].([]any)
	if !ok {
		WriteJSONError(w, http.StatusBadRequest, "operations must be a list")
		return
	}
	merged, err := update.Merge(ops...)
	if err != nil {
		h.fail(w, r, "merge operations", err)
		return
	}
	wire, err := codec.ToWire(merged.Plain())
	if err != nil {
		h.fail(w, r, "merge operations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"operation": wire})
}

// HandleApply runs {"document", "operation", "path"?} without storing
// anything and returns the updated document.
func (h *Handler) HandleApply(w http.ResponseWriter, r *http.Request) {
	body, err := h.decodeBody(w, r)
	if err != nil {
		h.fail(w, r, "apply operation", err)
		return
	}

	var updated any
	if path, _ := body["path"].(string); path != "" {
		updated, err = h.engine.UpdateAtPath(body["document"], path, body["operation"])
	} else {
		updated, err = h.engine.Update(body["document"], body["operation"])
	}
	if err != nil {
		h.fail(w, r, "apply operation", err)
		return
	}

	wire, err := codec.ToWire(updated)
	if err != nil {
		h.fail(w, r, "apply operation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"document": wire})
}
