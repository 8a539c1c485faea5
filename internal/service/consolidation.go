package service

import (
	"fmt"
	"sort"

	"github.com/merenda/planning-api/internal/database"
	"github.com/shopspring/decimal"
)

// The three views are pure projections over one fetched snapshot. Deriving
// them from the same slice is what makes their totals reconcile: there is
// no second dataset that could drift.

// RequisitionGroup is one row of the per-requisition ("padrao") view.
type RequisitionGroup struct {
	Key             string
	RequisitionID   *int64
	SchoolName      string
	GroupName       string
	ConsumptionWeek string
	SupplyWeek      string
	Status          string
	ProductCount    int
	Total           decimal.Decimal
	Items           []database.NeedItemRow
}

// ConsolidatedRow aggregates items by (origin product, group, status).
type ConsolidatedRow struct {
	OriginProductID   int64
	OriginProductCode string
	OriginProductName string
	Unit              string
	GroupName         string
	Status            string
	QuantityTotal     decimal.Decimal
	TotalSchools      int
	TotalNeeds        int
}

// groupKey is the canonical padrao grouping key: the requisition identity
// when present, else the (school, consumption week, group) triple legacy
// rows without a requisition id fall back to.
func groupKey(item database.NeedItemRow) string {
	if item.RequisitionID.Valid {
		return fmt.Sprintf("req:%d", item.RequisitionID.Int64)
	}
	return fmt.Sprintf("%s|%s|%s", item.SchoolName, item.ConsumptionWeek, item.GroupName)
}

// ByRequisition groups the snapshot into per-requisition rows, preserving
// first-seen order. The group's status falls back to its first item's.
func ByRequisition(items []database.NeedItemRow) []RequisitionGroup {
	index := make(map[string]int)
	var groups []RequisitionGroup

	for _, item := range items {
		key := groupKey(item)
		i, ok := index[key]
		if !ok {
			g := RequisitionGroup{
				Key:             key,
				SchoolName:      item.SchoolName,
				GroupName:       item.GroupName,
				ConsumptionWeek: item.ConsumptionWeek,
				SupplyWeek:      item.SupplyWeek,
				Status:          item.Status,
				Total:           decimal.Zero,
			}
			if item.RequisitionID.Valid {
				id := item.RequisitionID.Int64
				g.RequisitionID = &id
			}
			index[key] = len(groups)
			groups = append(groups, g)
			i = index[key]
		}
		g := &groups[i]
		g.Items = append(g.Items, item)
		g.Total = g.Total.Add(EffectiveQuantity(item))
	}

	for i := range groups {
		seen := make(map[int64]bool)
		for _, item := range groups[i].Items {
			seen[item.OriginProductID] = true
		}
		groups[i].ProductCount = len(seen)
	}
	return groups
}

// Individual is the identity view: one row per item, no aggregation. It
// exists so the caller can treat all three view modes uniformly.
func Individual(items []database.NeedItemRow) []database.NeedItemRow {
	return items
}

// Consolidated aggregates the snapshot by (origin product, group, status),
// summing effective quantities and counting distinct contributing schools.
func Consolidated(items []database.NeedItemRow) []ConsolidatedRow {
	type bucket struct {
		row     ConsolidatedRow
		schools map[int64]bool
	}
	type key struct {
		productID int64
		group     string
		status    string
	}

	buckets := make(map[key]*bucket)
	for _, item := range items {
		k := key{item.OriginProductID, item.GroupName, item.Status}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{
				row: ConsolidatedRow{
					OriginProductID:   item.OriginProductID,
					OriginProductCode: item.OriginProductCode,
					OriginProductName: item.OriginProductName,
					Unit:              item.Unit,
					GroupName:         item.GroupName,
					Status:            item.Status,
					QuantityTotal:     decimal.Zero,
				},
				schools: make(map[int64]bool),
			}
			buckets[k] = b
		}
		b.row.QuantityTotal = b.row.QuantityTotal.Add(EffectiveQuantity(item))
		b.row.TotalNeeds++
		b.schools[item.SchoolID] = true
	}

	rows := make([]ConsolidatedRow, 0, len(buckets))
	for _, b := range buckets {
		b.row.TotalSchools = len(b.schools)
		rows = append(rows, b.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OriginProductCode != rows[j].OriginProductCode {
			return rows[i].OriginProductCode < rows[j].OriginProductCode
		}
		if rows[i].GroupName != rows[j].GroupName {
			return rows[i].GroupName < rows[j].GroupName
		}
		return rows[i].Status < rows[j].Status
	})
	return rows
}

// Total sums the effective quantity over the whole snapshot. Every view's
// totals must equal this value for the same snapshot.
func Total(items []database.NeedItemRow) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(EffectiveQuantity(item))
	}
	return sum
}

// Paginate slices an already-grouped view client-side. Views whose grouping
// key differs from the fetch key can only be paginated after grouping.
// page is 1-based; limit <= 0 disables pagination.
func Paginate[T any](rows []T, page, limit int) []T {
	if limit <= 0 {
		return rows
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(rows) {
		return nil
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
