// Package export writes stored build records to CSV and XLSX files for
// offline price analysis.
package export

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/va-pc/buildscout/internal/api"
	"github.com/va-pc/buildscout/internal/model"
)

// buildColumns defines the ordered output columns.
var buildColumns = []string{
	"ID",
	"Company",
	"Title",
	"Price",
	"Price Formatted",
	"CPU",
	"GPU",
	"RAM (GB)",
	"Case Color",
	"VK URL",
	"Our Build",
	"Parsed At",
}

// WriteCSV writes builds as a CSV file with a header row.
func WriteCSV(builds []model.Build, outputPath string) error {
	f, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(buildColumns); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	for _, b := range builds {
		if err := w.Write(buildRow(b)); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "export: flush")
	}

	return nil
}

// WriteXLSX writes builds as a single-sheet XLSX workbook.
func WriteXLSX(builds []model.Build, outputPath string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Builds")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range buildColumns {
		header.AddCell().SetString(col)
	}
	for _, b := range builds {
		row := sheet.AddRow()
		for _, cell := range buildRow(b) {
			row.AddCell().SetString(cell)
		}
	}

	if err := f.Save(outputPath); err != nil {
		return eris.Wrap(err, "export: save file")
	}

	return nil
}

func buildRow(b model.Build) []string {
	return []string{
		b.ID,
		b.Company,
		b.Title,
		strconv.FormatFloat(b.Price, 'f', -1, 64),
		api.FormatPrice(b.Price),
		b.CPU,
		b.GPU,
		b.RAM,
		string(b.CaseColor),
		b.VKURL,
		strconv.FormatBool(b.IsOurBuild),
		b.ParsedAt.Format("2006-01-02 15:04:05"),
	}
}
