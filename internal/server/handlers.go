package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/spf13/cast"

	"github.com/conneroisu/gorsx/internal/errors"
	"github.com/conneroisu/gorsx/internal/registry"
	"github.com/conneroisu/gorsx/internal/renderer"
	"github.com/conneroisu/gorsx/internal/version"
	"github.com/conneroisu/gorsx/pkg/component"
	"github.com/conneroisu/gorsx/pkg/node"
	"github.com/conneroisu/gorsx/pkg/render"
)

const reloadScript = `(function () {
  var scheme = location.protocol === "https:" ? "wss://" : "ws://";
  function connect() {
    var ws = new WebSocket(scheme + location.host + "/ws");
    ws.onmessage = function (e) {
      var msg = JSON.parse(e.data);
      if (msg.type === "reload") {
        location.reload();
      } else if (msg.type === "build_error") {
        var old = document.getElementById("gorsx-error-overlay");
        if (old) old.remove();
        document.body.insertAdjacentHTML("beforeend", msg.content);
      }
    };
    ws.onclose = function () { setTimeout(connect, 1000); };
  }
  connect();
})();`

const pageStyle = `body { font-family: system-ui, sans-serif; margin: 0; padding: 24px; background: #f5f5f5; }
.gorsx-list { display: grid; grid-template-columns: repeat(auto-fill, minmax(260px, 1fr)); gap: 16px; }
.gorsx-card { background: white; border: 1px solid #ddd; border-radius: 6px; padding: 12px; }
.gorsx-card a { font-weight: bold; color: #007acc; text-decoration: none; }
.gorsx-path { font-size: 12px; color: #666; }
.gorsx-props { font-size: 12px; margin: 8px 0 0; padding-left: 16px; }`

// document wraps body in a complete HTML page.
func (s *PreviewServer) document(title string, body any, overlay string) templ.Component {
	dev := s.config.Development
	page := node.Frag(
		node.Raw{HTML: "<!DOCTYPE html>"},
		node.El("html", node.Attrs("lang", "en"),
			node.El("head", nil,
				node.El("meta", node.Attrs("charset", "utf-8")),
				node.El("meta", node.Attrs("name", "viewport", "content", "width=device-width, initial-scale=1")),
				node.El("title", nil, title),
			),
			node.El("body", nil,
				body,
				node.When(dev.ErrorOverlay && overlay != "", node.Raw{HTML: overlay}),
				node.When(dev.HotReload, node.El("script", nil, node.Raw{HTML: reloadScript})),
			),
		),
	)
	return render.Component(page)
}

func (s *PreviewServer) writePage(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	templ.Handler(page,
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				s.logger.Error(r.Context(), err, "writing page", "path", r.URL.Path)
				http.Error(w, "failed to render page", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	reg, _, diagnostics := s.snapshot()

	cards := node.Map(reg.GetAll(), func(info *registry.ComponentInfo, _ int) any {
		return node.El("div", node.Attrs("class", "gorsx-card"),
			node.El("a", node.Attrs("href", "/render/"+info.Name), info.Name),
			node.El("div", node.Attrs("class", "gorsx-path"), info.FilePath),
			node.When(len(info.Schema.Props) > 0,
				node.El("ul", node.Attrs("class", "gorsx-props"),
					node.Map(info.Schema.Props, func(p component.Prop, _ int) any {
						label := p.Name
						if p.Required && !p.HasDefault {
							label += " (required)"
						}
						return node.El("li", nil, label)
					}),
				),
			),
		)
	})

	body := node.Frag(
		node.El("style", nil, node.Raw{HTML: pageStyle}),
		node.El("h1", nil, "gorsx components"),
		node.If(reg.Count() == 0,
			node.El("p", nil, "No templates found in "+strings.Join(s.config.Components.ScanPaths, ", ")),
			node.El("div", node.Attrs("class", "gorsx-list"), cards),
		),
	)
	s.writePage(w, r, http.StatusOK, s.document("gorsx", body, diagnostics.ErrorOverlay()))
}

// mockParam asks /render to fill missing required props with sample data.
const mockParam = "mock"

// queryProps turns query parameters into raw props. A repeated parameter
// becomes a list. mock is not a prop; a bare ?mock or any true value
// enables mock data.
func queryProps(r *http.Request) (props map[string]any, mock bool) {
	props = make(map[string]any)
	for k, values := range r.URL.Query() {
		if k == mockParam {
			v := values[len(values)-1]
			mock = v == "" || cast.ToBool(v)
			continue
		}
		if len(values) == 1 {
			props[k] = values[0]
			continue
		}
		props[k] = values
	}
	return props, mock
}

func (s *PreviewServer) handleRender(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	_, rend, diagnostics := s.snapshot()

	props, mock := queryProps(r)
	opts := renderer.Options{Mock: mock || s.config.Development.MockProps}
	tree, err := rend.Tree(r.Context(), name, props, opts)
	if err != nil {
		status := http.StatusUnprocessableEntity
		one := errors.NewErrorCollector()
		if failed := diagnostics.GetErrorsByComponent(name); len(failed) > 0 {
			for _, d := range failed {
				one.Add(d)
			}
		} else {
			one.AddError(err)
			if errors.HasErrorCode(err, errors.ErrCodeUnknownComponent) {
				status = http.StatusNotFound
			}
		}
		s.writePage(w, r, status, s.document(name+" - error", node.El("h1", nil, name), one.ErrorOverlay()))
		return
	}

	overlay := ""
	if diagnostics.HasErrors() {
		overlay = diagnostics.ErrorOverlay()
	}
	s.writePage(w, r, http.StatusOK, s.document(name, tree, overlay))
}

func (s *PreviewServer) handleComponents(w http.ResponseWriter, r *http.Request) {
	reg, _, _ := s.snapshot()
	writeJSON(w, http.StatusOK, reg.GetAll())
}

// HealthStatus is the body of /health.
type HealthStatus struct {
	Status     string              `json:"status"`
	Version    string              `json:"version"`
	Components int                 `json:"components"`
	Errors     []errors.Diagnostic `json:"errors,omitempty"`
}

func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	reg, _, diagnostics := s.snapshot()
	status := HealthStatus{
		Status:     "ok",
		Version:    version.GetBuildInfo().Short(),
		Components: reg.Count(),
		Errors:     diagnostics.GetErrors(),
	}
	if len(status.Errors) > 0 {
		status.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, status)
}
