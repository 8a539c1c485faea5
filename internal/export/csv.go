// Package export renders an already-derived view into a downloadable CSV.
// It never recomputes a value: the rows and totals it receives were built by
// the consolidation engine and therefore already reconcile.
package export

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/quantity"
	"github.com/merenda/planning-api/internal/service"
	"github.com/shopspring/decimal"
)

func write(w io.Writer, records [][]string) error {
	// Every cell is already formatted text; type detection would turn the
	// padded totals row into NaN cells.
	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
	)
	if df.Error() != nil {
		return fmt.Errorf("build dataframe: %w", df.Error())
	}
	if err := df.WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteByRequisition renders the per-requisition view.
func WriteByRequisition(w io.Writer, groups []service.RequisitionGroup, total decimal.Decimal) error {
	records := [][]string{
		{"requisicao", "escola", "grupo", "semana_consumo", "semana_abastecimento", "situacao", "produtos", "quantidade_total"},
	}
	for _, g := range groups {
		id := ""
		if g.RequisitionID != nil {
			id = fmt.Sprintf("%d", *g.RequisitionID)
		}
		records = append(records, []string{
			id, g.SchoolName, g.GroupName, g.ConsumptionWeek, g.SupplyWeek,
			g.Status, fmt.Sprintf("%d", g.ProductCount), quantity.Format(g.Total, ""),
		})
	}
	records = append(records, totalRecord(8, total))
	return write(w, records)
}

// WriteIndividual renders the flat one-row-per-item view. Substituted lines
// show the generic product and its derived quantity next to the origin side.
func WriteIndividual(w io.Writer, items []database.NeedItemRow, total decimal.Decimal) error {
	records := [][]string{
		{"escola", "grupo", "situacao", "codigo", "produto", "quantidade", "substituto", "quantidade_substituto"},
	}
	for _, item := range items {
		sub, subQty := "", ""
		if q, ok := service.GenericQuantity(item); ok {
			sub = item.SubstituteName.String
			subQty = quantity.Format(q, item.SubstituteUnit.String)
		}
		records = append(records, []string{
			item.SchoolName, item.GroupName, item.Status,
			item.OriginProductCode, item.OriginProductName,
			quantity.Format(service.EffectiveQuantity(item), item.Unit),
			sub, subQty,
		})
	}
	records = append(records, totalRecord(8, total))
	return write(w, records)
}

// WriteConsolidated renders the per-product aggregation view.
func WriteConsolidated(w io.Writer, rows []service.ConsolidatedRow, total decimal.Decimal) error {
	records := [][]string{
		{"codigo", "produto", "grupo", "situacao", "quantidade_total", "total_escolas", "total_necessidades"},
	}
	for _, row := range rows {
		records = append(records, []string{
			row.OriginProductCode, row.OriginProductName, row.GroupName, row.Status,
			quantity.Format(row.QuantityTotal, row.Unit),
			fmt.Sprintf("%d", row.TotalSchools), fmt.Sprintf("%d", row.TotalNeeds),
		})
	}
	records = append(records, totalRecord(7, total))
	return write(w, records)
}

// totalRecord builds the trailing totals row, padded to the view's width.
func totalRecord(width int, total decimal.Decimal) []string {
	rec := make([]string, width)
	rec[0] = "TOTAL"
	rec[width-1] = quantity.Format(total, "")
	return rec
}
