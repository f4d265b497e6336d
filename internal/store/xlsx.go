package store

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"weibo-insight-go/internal/analysis"
)

const keyNodesSheet = "key_nodes"

// KeyNodesWorkbook builds an xlsx workbook listing a task's ranked key
// spreaders, one row per user, influence first. The caller owns the file
// and must Close it.
func KeyNodesWorkbook(taskID string, nodes []analysis.KeyNode) (*excelize.File, error) {
	f := excelize.NewFile()
	idx, err := f.NewSheet(keyNodesSheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, err
	}

	header := []any{"rank", "user_name", "repost_count", "score", "task_id"}
	if err := writeXlsxRow(f, keyNodesSheet, 1, header); err != nil {
		_ = f.Close()
		return nil, err
	}
	for i, n := range nodes {
		row := []any{i + 1, n.Name, n.Count, n.Score, taskID}
		if err := writeXlsxRow(f, keyNodesSheet, i+2, row); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeXlsxRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}
