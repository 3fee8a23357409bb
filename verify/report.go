package verify

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/mcengine/mc"
	"github.com/shopspring/decimal"
)

const reportDigits = 6

type reportRow struct {
	label    string
	estimate mc.PriceEstimate
}

// Report collects estimates and renders them as a table followed by the
// result of the reference check.
type Report struct {
	Title string

	rows  []reportRow
	check *Check
}

// Add appends one estimate to the report.
func (r *Report) Add(label string, est mc.PriceEstimate) {
	r.rows = append(r.rows, reportRow{label: label, estimate: est})
}

// SetCheck attaches the reference check to the report.
func (r *Report) SetCheck(c Check) {
	r.check = &c
}

// Mean returns the mean of all the estimates in the report.
func (r *Report) Mean() float64 {
	estimates := make([]mc.PriceEstimate, 0, len(r.rows))
	for _, row := range r.rows {
		estimates = append(estimates, row.estimate)
	}

	return Mean(estimates...)
}

// Write renders the report.
func (r *Report) Write(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(r.Title)
	t.AppendHeader(table.Row{"Kernel", "Stream", "Samples", "Price", "StdErr"})

	for _, row := range r.rows {
		t.AppendRow(table.Row{
			row.label,
			row.estimate.Stream,
			row.estimate.Samples,
			fixed(row.estimate.Value),
			fixed(row.estimate.StdErr),
		})
	}

	t.AppendFooter(table.Row{"Mean", "", "", fixed(r.Mean()), ""})
	t.Render()

	if r.check == nil {
		return
	}

	c := r.check
	fmt.Fprintf(w, "%s: price %s, reference %s, deviation %s, tolerance %s\n",
		c.Status(), fixed(c.Price), fixed(c.Reference),
		fixed(c.Deviation), fixed(c.Tolerance))
}

func fixed(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprint(v)
	}

	return decimal.NewFromFloat(v).StringFixed(reportDigits)
}
