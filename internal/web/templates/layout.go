// Package templates renders the HTML pages of the support log.
//
// Components live in .templ files; run `templ generate` after editing them.
// This file holds the view models and page assets they share.
package templates

// Nav identifies the active page in the top bar.
type Nav string

const (
	NavForm      Nav = "form"
	NavRecords   Nav = "records"
	NavDashboard Nav = "dashboard"
	NavSettings  Nav = "settings"
)

// Chrome is the per-request data every page shows.
type Chrome struct {
	Subject      string
	Role         string
	CanEscalate  bool
	StoreKind    string
	Banner       *Banner
	ErrorMessage string
}

// Banner is the persistent store warning.
type Banner struct {
	Message string
	Action  string
	Code    string
}

type navLink struct {
	nav   Nav
	href  string
	label string
}

// navLinks lists the top bar entries the caller may open.
func navLinks(canEscalate bool) []navLink {
	links := []navLink{{NavForm, "/", "Formulário"}}
	if canEscalate {
		links = append(links,
			navLink{NavRecords, "/records", "Registros"},
			navLink{NavDashboard, "/dashboard", "Escaladas"},
		)
	}
	return append(links, navLink{NavSettings, "/settings", "Configurações"})
}

const styles = `<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f4f5f7;color:#1f2933}
.bar{display:flex;gap:1.5rem;align-items:center;padding:.75rem 1.5rem;background:#1f2933;color:#fff}
.bar nav a{color:#cbd2d9;margin-right:1rem;text-decoration:none}.bar nav a.active{color:#fff;font-weight:600}
.who{margin-left:auto;font-size:.85rem;color:#9aa5b1}
main{padding:1.5rem;max-width:1100px;margin:auto}
.alert{margin:1rem 1.5rem;padding:.75rem 1rem;border-radius:6px}.alert.error{background:#fde8e8;color:#9b1c1c}
.alert.banner{background:#fff4e5;color:#8a4b08}.code{font-size:.75rem;opacity:.7}
.grid{display:grid;grid-template-columns:1fr 1fr;gap:1.5rem}
fieldset{border:1px solid #d9e2ec;border-radius:6px;background:#fff;padding:1rem}
label{display:block;margin:.5rem 0 .2rem;font-size:.85rem}
input,select,textarea{width:100%;box-sizing:border-box;padding:.35rem}
pre{background:#fff;border:1px solid #d9e2ec;padding:1rem;white-space:pre-wrap}
table{width:100%;border-collapse:collapse;background:#fff}th,td{padding:.4rem;border-bottom:1px solid #e4e7eb;text-align:left;font-size:.85rem}
.tabs a{margin-right:1rem}.tabs a.active{font-weight:700}
.stats span{display:inline-block;margin-right:1.5rem;font-size:1.1rem}
button{padding:.4rem .8rem;margin:.25rem .25rem 0 0}
</style>`

const script = `<script>
async function api(method, path, body) {
  const opts = {method, headers: {"Accept": "application/json"}};
  if (body !== undefined) { opts.headers["Content-Type"] = "application/json"; opts.body = JSON.stringify(body); }
  const res = await fetch(path, opts);
  const type = res.headers.get("Content-Type") || "";
  const data = type.includes("json") ? await res.json() : await res.text();
  if (!res.ok) { alert((data && data.message) ? data.message + " (" + data.code + ")" : res.statusText); throw data; }
  return data;
}
function setSummary(d) { const el = document.getElementById("summary"); if (el && d && d.summary !== undefined) el.textContent = d.summary; }
document.addEventListener("change", async (e) => {
  const t = e.target;
  if (t.dataset.field) { setSummary(await api("POST", "/api/draft/field", {name: t.dataset.field, value: t.value})); if (t.dataset.reload !== undefined) location.reload(); }
  if (t.dataset.sic) { setSummary(await api("POST", "/api/draft/sic", {value: t.dataset.sic})); }
  if (t.dataset.recordField) { await api("PATCH", "/api/records/" + t.dataset.id, {field: t.dataset.recordField, value: t.value}); }
});
document.addEventListener("click", async (e) => {
  const t = e.target.closest("[data-action]");
  if (!t) return;
  const a = t.dataset.action;
  if (a === "submit") {
    const d = await api("POST", "/api/records");
    try { await navigator.clipboard.writeText(d.clipboard); alert("Registro salvo! Resumo copiado."); } catch (_) { alert("Registro salvo!"); }
    location.reload();
  } else if (a === "clear") { await api("POST", "/api/draft/clear"); location.reload();
  } else if (a === "end-now") { await api("POST", "/api/draft/end-now"); location.reload();
  } else if (a === "copy") { await navigator.clipboard.writeText(document.getElementById("summary").textContent);
  } else if (a === "toggle") { await api("POST", "/api/records/" + t.dataset.id + "/toggle-status", {current: t.dataset.status}); location.reload();
  } else if (a === "delete") { if (confirm("Excluir este registro?")) { await api("DELETE", "/api/records/" + t.dataset.id); location.href = "/records"; }
  } else if (a === "save-settings") { await api("POST", "/api/settings", {url: document.getElementById("store-url").value, key: document.getElementById("store-key").value}); location.reload();
  } else if (a === "clear-settings") { if (confirm("Limpar configurações?")) { await api("DELETE", "/api/settings"); location.reload(); }
  } else if (a === "reload") { await api("POST", "/api/reload"); location.reload(); }
});
</script>`
