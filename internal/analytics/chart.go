package analytics

import (
	"fintrack/internal/core"
)

const defaultBorderWidth = 1

// Dataset is one drawable series.
type Dataset struct {
	Label       string       `json:"label"`
	Data        []core.Money `json:"data"`
	BorderWidth int          `json:"borderWidth,omitempty"`
}

// Chart is the {labels, datasets} payload charting libraries consume.
type Chart struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

// Assemble emits one dataset per category of m, in m's category order, with
// data aligned to m's labels.
func Assemble(m Matrix) Chart {
	c := Chart{Labels: append([]string{}, m.Labels...), Datasets: make([]Dataset, 0, len(m.Categories))}
	for _, cat := range m.Categories {
		cells := m.Cells[cat]
		data := make([]core.Money, len(cells))
		for i, v := range cells {
			data[i] = core.NewMoney(v)
		}
		c.Datasets = append(c.Datasets, Dataset{Label: cat, Data: data, BorderWidth: defaultBorderWidth})
	}
	return c
}

// AssembleAggregates emits a single dataset labelled by calc whose entries
// line up with the category labels.
func AssembleAggregates(values []CategoryValue, calc CalculationType) Chart {
	c := Chart{Labels: make([]string, 0, len(values)), Datasets: []Dataset{}}
	if len(values) == 0 {
		return c
	}
	data := make([]core.Money, 0, len(values))
	for _, v := range values {
		c.Labels = append(c.Labels, v.Category)
		data = append(data, core.NewMoney(v.Value))
	}
	c.Datasets = append(c.Datasets, Dataset{Label: datasetLabel(calc), Data: data, BorderWidth: defaultBorderWidth})
	return c
}

func datasetLabel(calc CalculationType) string {
	switch calc {
	case Mean:
		return "Mean"
	case Share:
		return "Share (%)"
	default:
		return "Total"
	}
}
