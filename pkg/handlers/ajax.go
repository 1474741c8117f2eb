package handlers

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"sync"

	"post-reorder-backend/pkg/utils"

	"go.uber.org/zap"
)

// AjaxParams are the parameters of one ajax call, read from the query
// string and either the form body or a JSON object body.
type AjaxParams map[string]string

// Get returns the trimmed value of key.
func (p AjaxParams) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// AjaxAction handles one registered action.
type AjaxAction func(w http.ResponseWriter, r *http.Request, params AjaxParams)

// AjaxDispatcher routes POST /admin/ajax calls by their action parameter.
type AjaxDispatcher struct {
	mu      sync.RWMutex
	actions map[string]AjaxAction
	logger  *zap.Logger
}

func NewAjaxDispatcher(logger *zap.Logger) *AjaxDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AjaxDispatcher{actions: map[string]AjaxAction{}, logger: logger.Named("ajax")}
}

// Register binds an action name to its handler, replacing any earlier one.
func (d *AjaxDispatcher) Register(action string, fn AjaxAction) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actions[action] = fn
}

// ServeHTTP 按 action 参数分发
func (d *AjaxDispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	params, err := readAjaxParams(r)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	action := params.Get("action")
	if action == "" {
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, "MISSING_ACTION", "The action parameter is required", "")
		return
	}

	d.mu.RLock()
	fn, ok := d.actions[action]
	d.mu.RUnlock()
	if !ok {
		d.logger.Debug("unknown ajax action", zap.String("action", action))
		utils.WriteErrorResponseWithCode(w, http.StatusBadRequest, "UNKNOWN_ACTION",
			fmt.Sprintf("Unknown action %q", action), "")
		return
	}
	fn(w, r, params)
}

func readAjaxParams(r *http.Request) (AjaxParams, error) {
	params := AjaxParams{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body map[string]json.RawMessage
		if err := utils.ParseJSONBody(r, &body); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		for k, raw := range body {
			params[k] = jsonParam(raw)
		}
	case "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}
	return params, nil
}

// jsonParam flattens a JSON value to a parameter: strings are unquoted,
// anything else (an order array for instance) is kept as JSON text.
func jsonParam(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}
