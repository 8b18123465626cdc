package handlers

import (
	"errors"
	"html/template"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/variables-admin/internal/adminsvc/form"
)

var pageTmpl = template.Must(template.New("page").Funcs(template.FuncMap{
	"length": form.Length,
	"orNotSet": func(s string) string {
		if s == "" {
			return "Not set"
		}
		return s
	},
}).Parse(pageHTML))

type pageData struct {
	form.State
	Max      int
	FieldOne string
	FieldTwo string
}

func (h *Handler) PageHandler(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		State:    h.ctrl.Snapshot(),
		Max:      form.MaxInputLength,
		FieldOne: form.FieldOne,
		FieldTwo: form.FieldTwo,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		log.Errorf("Failed to render admin page: %v", err)
	}
}

// FormSubmitHandler handles the plain html form post and redirects back to
// the page, which shows the outcome from the controller state.
func (h *Handler) FormSubmitHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	for _, field := range []string{form.FieldOne, form.FieldTwo} {
		if err := h.ctrl.Edit(field, r.PostForm.Get(field)); err != nil {
			log.Errorf("error [FormSubmitHandler] edit %s: %v", field, err)
		}
	}

	if _, err := h.ctrl.Submit(detach(r)); err != nil && !errors.Is(err, form.ErrSubmitDisabled) {
		log.Infof("form submit rejected: %v", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

const pageHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Admin Panel</title>
<style>
body{font-family:system-ui,sans-serif;background:#f9fafb;margin:0;padding:2rem 1rem}
.wrap{max-width:28rem;margin:0 auto}
.card{background:#fff;border:1px solid #e5e7eb;border-radius:.5rem;padding:1.5rem;margin-bottom:1.5rem}
.row{display:flex;justify-content:space-between;padding:.5rem .75rem;border-radius:.375rem;margin-bottom:.5rem}
.one{background:#eff6ff}.two{background:#f0fdf4}
.val{font-family:monospace}
.ok{background:#dcfce7;border:1px solid #4ade80;color:#15803d;padding:.75rem;border-radius:.375rem;margin-bottom:1rem}
.err{background:#fee2e2;border:1px solid #f87171;color:#b91c1c;padding:.75rem;border-radius:.375rem;margin-bottom:1rem}
input{width:100%;box-sizing:border-box;padding:.5rem .75rem;border:1px solid #d1d5db;border-radius:.375rem}
input.invalid{border-color:#ef4444}
.fe{color:#dc2626;font-size:.875rem;margin:.25rem 0 0}
.cnt{color:#6b7280;font-size:.75rem;margin:.25rem 0 1rem}
button{width:100%;background:#2563eb;color:#fff;border:0;padding:.5rem 1rem;border-radius:.375rem}
button:disabled{opacity:.5;cursor:not-allowed}
</style>
</head>
<body>
<div class="wrap">
{{if .Loading}}
<p id="loading">Loading variables...</p>
{{else}}
<h1>Admin Panel</h1>
<p>Manage Supabase Variables</p>

<div class="card">
<h2>Current Values</h2>
<div class="row one"><span>Variable 1:</span><span class="val" id="current-1">{{orNotSet .Current.VariableOne}}</span></div>
<div class="row two"><span>Variable 2:</span><span class="val" id="current-2">{{orNotSet .Current.VariableTwo}}</span></div>
</div>

<div class="card">
<h2>Update Variables</h2>
<div class="ok" id="success"{{if not .Success}} hidden{{end}}>New record created successfully!</div>
<div class="err" id="error"{{if not .Error}} hidden{{end}}>{{.Error}}</div>

<form method="post" action="/">
<label for="{{.FieldOne}}">Variable 1</label>
<input type="text" id="{{.FieldOne}}" name="{{.FieldOne}}" value="{{.Draft.VariableOne}}" maxlength="{{.Max}}" placeholder="Введите значение"{{if index .ValidationErrors .FieldOne}} class="invalid" aria-invalid="true" aria-describedby="{{.FieldOne}}-error"{{end}}>
{{with index .ValidationErrors .FieldOne}}<p class="fe" id="variable_1-error">{{.}}</p>{{end}}
<p class="cnt"><span data-count="{{.FieldOne}}">{{length .Draft.VariableOne}}</span>/{{.Max}} characters</p>

<label for="{{.FieldTwo}}">Variable 2</label>
<input type="text" id="{{.FieldTwo}}" name="{{.FieldTwo}}" value="{{.Draft.VariableTwo}}" maxlength="{{.Max}}" placeholder="Введите значение"{{if index .ValidationErrors .FieldTwo}} class="invalid" aria-invalid="true" aria-describedby="{{.FieldTwo}}-error"{{end}}>
{{with index .ValidationErrors .FieldTwo}}<p class="fe" id="variable_2-error">{{.}}</p>{{end}}
<p class="cnt"><span data-count="{{.FieldTwo}}">{{length .Draft.VariableTwo}}</span>/{{.Max}} characters</p>

<button type="submit" id="submit"{{if not .CanSubmit}} disabled{{end}}>{{if .Submitting}}Изменяем...{{else}}Изменить{{end}}</button>
</form>
</div>
{{end}}
</div>
<script>
(function () {
  var inputs = document.querySelectorAll("input[type=text]");
  var button = document.getElementById("submit");
  var busy = {{.Submitting}};
  function refresh() {
    var empty = true;
    inputs.forEach(function (el) {
      document.querySelector("[data-count=" + el.id + "]").textContent = Array.from(el.value).length;
      if (el.value !== "") { empty = false; }
    });
    if (button) { button.disabled = busy || empty; }
  }
  inputs.forEach(function (el) { el.addEventListener("input", refresh); });

  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  var sock = new WebSocket(proto + location.host + "/v1/ws");
  sock.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    if (msg.type !== "state") { return; }
    var st = msg.data;
    if (st.loading) { return; }
    if (document.getElementById("loading")) { location.reload(); return; }
    document.getElementById("current-1").textContent = st.current.variable_1 || "Not set";
    document.getElementById("current-2").textContent = st.current.variable_2 || "Not set";
    document.getElementById("success").hidden = !st.success;
    var err = document.getElementById("error");
    err.textContent = st.error || "";
    err.hidden = !st.error;
    busy = st.submitting;
    refresh();
  };
})();
</script>
</body>
</html>
`
