// Package report renders run results: a wide CSV table with one row per KPI
// series and one column per business period, and a logged statistical
// summary of the run.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/dessentialist/growth-model/sim"
)

// Table is the wide results table: Header is "KPI" followed by the period
// labels, each row is one KPI series across the whole run.
type Table struct {
	Header []string
	Rows   [][]string
}

// Build assembles the table from per-step snapshots, in step order.
func Build(snapshots []*sim.KPISnapshot) *Table {
	t := &Table{Header: []string{"KPI"}}
	if len(snapshots) == 0 {
		return t
	}
	for _, s := range snapshots {
		t.Header = append(t.Header, s.Period)
	}

	products := sortedKeys(snapshots[0].Products)
	sectors := sortedKeys(snapshots[0].Sectors)

	for _, p := range products {
		t.addRow("Order_Basket_"+p, snapshots, func(s *sim.KPISnapshot) string {
			return f(s.Products[p].TotalDemand)
		})
		t.addRow("Order_Delivery_"+p, snapshots, func(s *sim.KPISnapshot) string {
			pk := s.Products[p]
			return f(pk.AnchorDelivery + pk.ClientDelivery)
		})
		t.addRow("Fulfillment_Ratio_"+p, snapshots, func(s *sim.KPISnapshot) string {
			return f(s.Products[p].FulfillmentRatio)
		})
		t.addRow("Client_Requirement_"+p, snapshots, func(s *sim.KPISnapshot) string {
			return f(s.Products[p].ClientRequirement)
		})
		t.addRow("Direct_Clients_"+p, snapshots, func(s *sim.KPISnapshot) string {
			return strconv.FormatInt(s.Products[p].DirectClients, 10)
		})
		t.addRow("Price_"+p, snapshots, func(s *sim.KPISnapshot) string {
			return f(s.Products[p].Price)
		})
		t.addRow("Revenue_"+p, snapshots, func(s *sim.KPISnapshot) string {
			return f(s.Products[p].Revenue)
		})
	}
	for _, sec := range sectors {
		t.addRow("Anchor_Leads_"+sec, snapshots, func(s *sim.KPISnapshot) string {
			return f(s.Sectors[sec].AnchorLeads)
		})
		t.addRow("Active_Anchor_Clients_"+sec, snapshots, func(s *sim.KPISnapshot) string {
			return strconv.Itoa(s.Sectors[sec].ActiveAnchors)
		})
		t.addRow("Active_Projects_"+sec, snapshots, func(s *sim.KPISnapshot) string {
			return strconv.Itoa(s.Sectors[sec].ActiveProjects)
		})
		t.addRow("Anchor_Revenue_"+sec, snapshots, func(s *sim.KPISnapshot) string {
			return f(s.Sectors[sec].AnchorRevenue)
		})
	}
	t.addRow("Total_Clients", snapshots, func(s *sim.KPISnapshot) string {
		return strconv.FormatInt(s.TotalClients, 10)
	})
	t.addRow("Total_Active_Anchors", snapshots, func(s *sim.KPISnapshot) string {
		return strconv.Itoa(s.TotalAnchors)
	})
	t.addRow("Total_Revenue", snapshots, func(s *sim.KPISnapshot) string {
		return f(s.TotalRevenue)
	})
	return t
}

func (t *Table) addRow(name string, snapshots []*sim.KPISnapshot, cell func(*sim.KPISnapshot) string) {
	row := make([]string, 0, len(snapshots)+1)
	row = append(row, name)
	for _, s := range snapshots {
		row = append(row, cell(s))
	}
	t.Rows = append(t.Rows, row)
}

func f(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteCSV writes the table to path.
func (t *Table) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(t.Header); err != nil {
		return fmt.Errorf("writing results header: %w", err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("writing results row %q: %w", row[0], err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing results: %w", err)
	}
	return nil
}

// LogSummary logs run-level statistics of the revenue series.
func LogSummary(snapshots []*sim.KPISnapshot) {
	if len(snapshots) == 0 {
		logrus.Warn("no steps simulated, nothing to summarize")
		return
	}
	revenue := make([]float64, len(snapshots))
	for i, s := range snapshots {
		revenue[i] = s.TotalRevenue
	}
	last := snapshots[len(snapshots)-1]
	logrus.Infof("simulated %d steps (%s..%s)", len(snapshots), snapshots[0].Period, last.Period)
	logrus.Infof("revenue per step: mean %.2f, stddev %.2f, final %.2f",
		stat.Mean(revenue, nil), stat.StdDev(revenue, nil), last.TotalRevenue)
	logrus.Infof("final state: %d direct clients, %d active anchors", last.TotalClients, last.TotalAnchors)
}
