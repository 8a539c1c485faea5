package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/merenda/planning-api/internal/database"
	"github.com/merenda/planning-api/internal/enum"
	"github.com/merenda/planning-api/internal/service"
	"github.com/shopspring/decimal"
)

func makeNumeric(t *testing.T, val string) pgtype.Numeric {
	t.Helper()
	var n pgtype.Numeric
	if err := n.Scan(val); err != nil {
		t.Fatalf("scan numeric %q: %v", val, err)
	}
	return n
}

func TestWriteByRequisition(t *testing.T) {
	id := int64(100)
	groups := []service.RequisitionGroup{
		{
			RequisitionID:   &id,
			SchoolName:      "Escola A",
			GroupName:       "CRECHE",
			ConsumptionWeek: "2025-W30",
			SupplyWeek:      "2025-W29",
			Status:          enum.StatusGenerated,
			ProductCount:    2,
			Total:           decimal.RequireFromString("13.5"),
		},
		{
			SchoolName:      "Escola C",
			GroupName:       "FUNDAMENTAL",
			ConsumptionWeek: "2025-W30",
			SupplyWeek:      "2025-W29",
			Status:          enum.StatusCoordination,
			ProductCount:    1,
			Total:           decimal.RequireFromString("7"),
		},
	}

	var buf bytes.Buffer
	if err := WriteByRequisition(&buf, groups, decimal.RequireFromString("20.5")); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 { // header + 2 groups + total
		t.Fatalf("lines: got %d, want 4\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "requisicao,escola,grupo") {
		t.Errorf("header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "100,Escola A,CRECHE") {
		t.Errorf("group row: %q", lines[1])
	}
	if !strings.Contains(lines[1], "13,5") {
		t.Errorf("group total must use pt-BR decimals: %q", lines[1])
	}
	if !strings.HasPrefix(lines[3], "TOTAL") || !strings.Contains(lines[3], "20,5") {
		t.Errorf("total row: %q", lines[3])
	}
}

func TestWriteIndividual_SubstitutedLine(t *testing.T) {
	items := []database.NeedItemRow{
		{
			SchoolName: "Escola B", GroupName: "CRECHE", Status: enum.StatusGenerated,
			OriginProductCode: "A-001", OriginProductName: "Arroz", Unit: "KG",
			Quantity:         makeNumeric(t, "6"),
			SubstituteID:     pgtype.Int8{Int64: 99, Valid: true},
			SubstituteName:   pgtype.Text{String: "Arroz Integral", Valid: true},
			SubstituteUnit:   pgtype.Text{String: "KG", Valid: true},
			ConversionFactor: makeNumeric(t, "0.5"),
		},
	}

	var buf bytes.Buffer
	if err := WriteIndividual(&buf, items, decimal.RequireFromString("6")); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "Arroz Integral") {
		t.Errorf("expected substitute name in output:\n%s", out)
	}
	if !strings.Contains(out, "3 KG") {
		t.Errorf("expected derived generic quantity 3 KG:\n%s", out)
	}
}

func TestWriteConsolidated(t *testing.T) {
	rows := []service.ConsolidatedRow{
		{
			OriginProductCode: "A-001", OriginProductName: "Arroz", Unit: "KG",
			GroupName: "CRECHE", Status: enum.StatusGenerated,
			QuantityTotal: decimal.RequireFromString("16"),
			TotalSchools:  2, TotalNeeds: 2,
		},
	}

	var buf bytes.Buffer
	if err := WriteConsolidated(&buf, rows, decimal.RequireFromString("16")); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines: got %d, want 3\n%s", len(lines), out)
	}
	if !strings.Contains(lines[1], "16 KG") {
		t.Errorf("quantity: %q", lines[1])
	}
	if !strings.Contains(lines[1], ",2,2") {
		t.Errorf("school/needs counters: %q", lines[1])
	}
}
