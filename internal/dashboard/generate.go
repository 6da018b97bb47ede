package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"dcmetrics-sim/internal/telemetry"
)

//go:embed templates/*.tmpl
var templates embed.FS

const templateName = "grafana-dashboard.json.tmpl"

// panel is one Grafana time series per metric.
type panel struct {
	ID     int
	Title  string
	Metric string
	Unit   string
	X, Y   int
}

// grafanaUnit maps a reading unit to Grafana's unit id.
func grafanaUnit(u string) string {
	switch u {
	case telemetry.UnitPercent:
		return "percent"
	case telemetry.UnitMBPerSec:
		return "MBs"
	case telemetry.UnitCelsius:
		return "celsius"
	}
	return "none"
}

func panels() []panel {
	var out []panel
	for i, m := range telemetry.Metrics() {
		out = append(out, panel{
			ID:     i + 1,
			Title:  strings.ReplaceAll(string(m), "_", " "),
			Metric: string(m),
			Unit:   grafanaUnit(m.Unit()),
			X:      (i % 2) * 12,
			Y:      (i / 2) * 8,
		})
	}
	return out
}

// Render writes a Grafana dashboard for the GreptimeDB table to outDir.
// The datasource uid comes from GREPTIMEDB_DATASOURCE_UID.
func Render(outDir, table string) error {
	funcMap := template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
		"json": func(v any) (string, error) {
			b, err := json.Marshal(v)
			return string(b), err
		},
	}

	t, err := template.New(templateName).Funcs(funcMap).ParseFS(templates, "templates/"+templateName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	outPath := filepath.Join(outDir, strings.TrimSuffix(templateName, ".tmpl"))
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	data := struct {
		Table  string
		Panels []panel
	}{Table: table, Panels: panels()}
	if err := t.Execute(f, data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
