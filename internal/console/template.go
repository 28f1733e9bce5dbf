package console

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pixil98/go-park/internal/display"
)

// templateFuncs adds the park formatters to sprig's utility functions.
var templateFuncs = func() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["money"] = display.Money
	fm["count"] = display.Count
	fm["percent"] = display.Percent
	fm["clock"] = display.Clock
	return fm
}()

const statusTemplate = `{{ .Park.Name }}: year {{ .Park.Year }}, month {{ .Park.Month }}, day {{ .Park.Day }}, {{ clock .Park.Hour }}
Speed:     {{ if eq .Park.Speed 0 }}paused{{ else }}{{ .Park.Speed }}x{{ end }}
Rating:    {{ .Park.Rating }}
Cash:      {{ money .Park.Finances.Cash }} (yesterday +{{ money .Park.Finances.LastDayIncome }} / -{{ money .Park.Finances.LastDayExpense }})
Guests:    {{ count (len .Park.Guests) }}
Rides:     {{ len .Park.Rides }}
Staff:     {{ len .Park.Staff }}
Entry:     {{ money .Park.EntryPrice }}
Marketing: {{ percent .Park.Funding }}
{{- if .Multiplayer }}
Room:      {{ .Room }}
{{- end }}`

const ridesTemplate = `{{- range . }}
{{ printf "%-14s" .ID }} {{ printf "%-20s" (trunc 20 .Name) }} {{ printf "%-8s" .Status }} {{ printf "%3d" .Queue }} waiting, ~{{ .Wait }} min  {{ money .Price }}  {{ percent .Uptime }} uptime
{{- else }}
No rides have been built.
{{- end }}`

const catalogTemplate = `Buildable rides:
{{- range . }}
  {{ printf "%-9s" .Kind }} {{ printf "%-16s" .Name }} {{ money .Cost }}, {{ .Capacity }} riders, {{ money .Price }} a ride
{{- end }}`

const staffTemplate = `{{- range . }}
{{ printf "%-15s" .ID }} {{ printf "%-12s" (title (toString .Role)) }} {{ money .Wage }}/day{{ with .Task }}  {{ . }}{{ end }}
{{- else }}
Nobody works here yet.
{{- end }}`

const roomTemplate = `Connection: {{ .Status.State }}
{{- with .Status.Room }}
Room:       {{ .Name | default "(unnamed)" }} [{{ .Code }}]
{{- end }}
{{- with .Status.Players }}
Players:    {{ range $i, $p := . }}{{ if $i }}, {{ end }}{{ $p.Name | default $p.ID }}{{ if eq $p.ID $.Self.ID }} (you){{ end }}{{ end }}
{{- end }}
{{- with .Status.LastError }}
Last error: {{ . }}
{{- end }}`

const savesTemplate = `{{- range . }}
{{ printf "%-16s" .Slot }} {{ printf "%-24s" .Park }} tick {{ .Tick }}  {{ .SavedAt.Format "2006-01-02 15:04" }}
{{- else }}
No saved parks.
{{- end }}`

var templates = template.Must(
	template.New("console").Funcs(templateFuncs).Parse(`{{ define "status" }}` + statusTemplate + `{{ end }}` +
		`{{ define "rides" }}` + ridesTemplate + `{{ end }}` +
		`{{ define "catalog" }}` + catalogTemplate + `{{ end }}` +
		`{{ define "staff" }}` + staffTemplate + `{{ end }}` +
		`{{ define "room" }}` + roomTemplate + `{{ end }}` +
		`{{ define "saves" }}` + savesTemplate + `{{ end }}`),
)

// render executes one of the report templates.
func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", name, err)
	}
	return strings.TrimLeft(buf.String(), "\n"), nil
}
