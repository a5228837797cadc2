package evaluate

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WriteText prints the report in the layout of a classification report,
// with numbers formatted for tag.
func WriteText(w io.Writer, rep Report, tag language.Tag) error {
	p := message.NewPrinter(tag)
	var err error
	printf := func(format string, args ...any) {
		if err == nil {
			_, err = p.Fprintf(w, format, args...)
		}
	}

	printf("Model Evaluation Metrics:\n")
	printf("------------------------------\n")
	printf("Accuracy: %.2f%%\n", rep.Accuracy*100)
	printf("Rows: %d scored, %d held out\n\n", rep.Test, rep.Train)

	printf("Classification Report:\n")
	printf("%14s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range rep.Classes {
		printf("%14d %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	printf("\n%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", rep.Accuracy, rep.Test)
	printf("%14s %10.2f %10.2f %10.2f %10d\n", "macro avg",
		rep.Macro.Precision, rep.Macro.Recall, rep.Macro.F1, rep.Macro.Support)
	printf("%14s %10.2f %10.2f %10.2f %10d\n\n", "weighted avg",
		rep.Weighted.Precision, rep.Weighted.Recall, rep.Weighted.F1, rep.Weighted.Support)

	printf("Confusion Matrix (rows: true, columns: predicted):\n")
	printf("%8s %8d %8d\n", "", Labels[0], Labels[1])
	for _, t := range Labels {
		printf("%8d %8d %8d\n", t, rep.Confusion[t][0], rep.Confusion[t][1])
	}
	return err
}

const (
	metricsSheet   = "Metrics"
	confusionSheet = "Confusion"
)

// WriteXLSX saves the report as a workbook with a metrics sheet and a
// confusion-matrix sheet.
func WriteXLSX(path string, rep Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", metricsSheet); err != nil {
		return fmt.Errorf("evaluate: xlsx: %w", err)
	}
	rows := [][]any{
		{"class", "precision", "recall", "f1-score", "support"},
	}
	for _, c := range rep.Classes {
		rows = append(rows, []any{strconv.Itoa(c.Label), c.Precision, c.Recall, c.F1, c.Support})
	}
	rows = append(rows,
		[]any{"accuracy", nil, nil, rep.Accuracy, rep.Test},
		[]any{"macro avg", rep.Macro.Precision, rep.Macro.Recall, rep.Macro.F1, rep.Macro.Support},
		[]any{"weighted avg", rep.Weighted.Precision, rep.Weighted.Recall, rep.Weighted.F1, rep.Weighted.Support},
	)
	if err := writeRows(f, metricsSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(confusionSheet); err != nil {
		return fmt.Errorf("evaluate: xlsx: %w", err)
	}
	cm := [][]any{
		{"true \\ predicted", Labels[0], Labels[1]},
		{Labels[0], rep.Confusion[0][0], rep.Confusion[0][1]},
		{Labels[1], rep.Confusion[1][0], rep.Confusion[1][1]},
	}
	if err := writeRows(f, confusionSheet, cm); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("evaluate: xlsx: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return fmt.Errorf("evaluate: xlsx: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("evaluate: xlsx: %w", err)
			}
		}
	}
	return nil
}
