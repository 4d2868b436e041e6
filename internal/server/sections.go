package server

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"

	"github.com/KaramelBytes/dairyreport/internal/charts"
	"github.com/KaramelBytes/dairyreport/internal/report"
)

// Section is one block of the report page.
type Section struct {
	ID    string
	Title string
	Body  template.HTML
}

// SectionRenderer turns a report into page sections. Renderers hold no state,
// so rendering the same report twice gives the same sections.
type SectionRenderer interface {
	Render(rep *report.Report) ([]Section, error)
}

// defaultRenderers returns the page layout in display order.
func defaultRenderers(t *template.Template) []SectionRenderer {
	return []SectionRenderer{
		previewRenderer{t},
		kpiRenderer{t},
		trendsRenderer{t},
		abnormalRenderer{t},
		heatmapRenderer{t},
		relationshipRenderer{t},
	}
}

// renderSections runs every renderer in order and concatenates their output.
func renderSections(rep *report.Report, renderers []SectionRenderer) ([]Section, error) {
	var out []Section
	for _, r := range renderers {
		secs, err := r.Render(rep)
		if err != nil {
			return nil, err
		}
		out = append(out, secs...)
	}
	return out, nil
}

func execute(t *template.Template, name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

// inlineSVG drops the XML prolog so the document can sit inside HTML.
func inlineSVG(b []byte) template.HTML {
	if i := bytes.Index(b, []byte("<svg")); i > 0 {
		b = b[i:]
	}
	return template.HTML(b)
}

type previewRenderer struct{ t *template.Template }

func (r previewRenderer) Render(rep *report.Report) ([]Section, error) {
	body, err := execute(r.t, "preview", rep)
	if err != nil {
		return nil, err
	}
	return []Section{{ID: "preview", Title: fmt.Sprintf("Preview of %s", rep.Sheet), Body: body}}, nil
}

type kpiRenderer struct{ t *template.Template }

func (r kpiRenderer) Render(rep *report.Report) ([]Section, error) {
	if !rep.Derived {
		return nil, nil
	}
	body, err := execute(r.t, "kpis", rep.KPIs)
	if err != nil {
		return nil, err
	}
	return []Section{{ID: "kpis", Title: "Key Performance Indicators", Body: body}}, nil
}

type figure struct {
	SVG     template.HTML
	Caption string
	Note    string
}

// figureOf converts a chart result, turning too-few-points into a note.
func figureOf(c charts.Chart, err error) (figure, error) {
	if errors.Is(err, charts.ErrNotEnoughPoints) {
		return figure{Note: "Not enough data to draw this chart."}, nil
	}
	if err != nil {
		return figure{}, err
	}
	return figure{SVG: inlineSVG(c.SVG), Caption: c.Caption()}, nil
}

type trendsRenderer struct{ t *template.Template }

func (r trendsRenderer) Render(rep *report.Report) ([]Section, error) {
	if !rep.Derived {
		return nil, nil
	}
	var out []Section
	for _, tr := range rep.Trends {
		fig, err := figureOf(charts.Trend(tr))
		if err != nil {
			return nil, err
		}
		body, err := execute(r.t, "figure", fig)
		if err != nil {
			return nil, err
		}
		out = append(out, Section{ID: "trend-" + tr.Column, Title: tr.Title, Body: body})
	}
	return out, nil
}

type abnormalRenderer struct{ t *template.Template }

func (r abnormalRenderer) Render(rep *report.Report) ([]Section, error) {
	if !rep.Derived {
		return nil, nil
	}
	var out []Section
	for _, a := range rep.Abnormal {
		body, err := execute(r.t, "abnormal", a)
		if err != nil {
			return nil, err
		}
		out = append(out, Section{ID: "abnormal-" + a.Column, Title: a.Title, Body: body})
	}
	return out, nil
}

type heatmapRenderer struct{ t *template.Template }

func (r heatmapRenderer) Render(rep *report.Report) ([]Section, error) {
	if !rep.Derived {
		return nil, nil
	}
	fig, err := figureOf(charts.Heatmap(rep.Corr))
	if err != nil {
		return nil, err
	}
	body, err := execute(r.t, "figure", fig)
	if err != nil {
		return nil, err
	}
	return []Section{{ID: "correlations", Title: "Correlation Matrix", Body: body}}, nil
}

type relationshipRenderer struct{ t *template.Template }

func (r relationshipRenderer) Render(rep *report.Report) ([]Section, error) {
	if !rep.Derived || rep.Relationship == nil {
		return nil, nil
	}
	fig, err := figureOf(charts.Relationship(rep.Relationship))
	if err != nil {
		return nil, err
	}
	body, err := execute(r.t, "figure", fig)
	if err != nil {
		return nil, err
	}
	return []Section{{ID: "relationship", Title: rep.Relationship.Name, Body: body}}, nil
}
