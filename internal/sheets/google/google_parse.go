package google

import (
	"strconv"
	"strings"

	"finboard/internal/core"
	ports "finboard/internal/sheets"
)

// parseRows converts a values matrix (as returned by Sheets API) into rows.
// The header and rows without a valid date or amount are skipped; the
// sheet is hand-editable so reading is best-effort.
func parseRows(values [][]interface{}) []ports.Row {
	var out []ports.Row
	for _, raw := range values {
		cols := toStrings(raw)
		date, err := core.ParseDate(safeGet(cols, 0))
		if err != nil {
			continue
		}
		amount, err := core.ParseAmount(safeGet(cols, 7))
		if err != nil {
			continue
		}
		installment, _ := strconv.Atoi(safeGet(cols, 6))
		out = append(out, ports.Row{
			Date:        date,
			Kind:        strings.ToLower(safeGet(cols, 1)),
			OwnerID:     safeGet(cols, 2),
			Reference:   safeGet(cols, 3),
			Description: safeGet(cols, 4),
			Category:    safeGet(cols, 5),
			Installment: installment,
			Amount:      amount,
		})
	}
	return out
}
