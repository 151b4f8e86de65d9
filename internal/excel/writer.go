// Package excel serializes normalized records into a single-sheet xlsx
// workbook.
package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"

	"subsheet/internal/normalize"
	pkgerrs "subsheet/pkg/errors"
)

const sheetName = "Sheet1"

// filenameDateLayout renders the window bounds inside the output filename.
const filenameDateLayout = "20060102"

// headers is the fixed first row of the sheet, in column order.
var headers = []interface{}{
	"PLATFORM", "ENTITY", "DATE", "TYPE", "ID", "DESCRIPTION", "PARENT_DESCRIPTION",
}

// Filename builds the output name for one run: {subreddit}_{YYYYMMDD}_{YYYYMMDD}.xlsx.
func Filename(subreddit string, start, end time.Time) string {
	return fmt.Sprintf("%s_%s_%s.xlsx",
		subreddit,
		start.UTC().Format(filenameDateLayout),
		end.UTC().Format(filenameDateLayout))
}

// Write serializes records into a new workbook at path, header row first.
// The workbook is written to a temporary file in the target directory and
// renamed into place only after a successful save, so a failed run leaves no
// file at path.
func Write(path string, records []normalize.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return &pkgerrs.WriteError{Path: path, Err: err}
	}
	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return &pkgerrs.WriteError{Path: path, Err: err}
	}
	lastHeaderCell, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return &pkgerrs.WriteError{Path: path, Err: err}
	}
	if err := f.SetCellStyle(sheetName, "A1", lastHeaderCell, boldStyle); err != nil {
		return &pkgerrs.WriteError{Path: path, Err: err}
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return &pkgerrs.WriteError{Path: path, Err: err}
		}
		row := []interface{}{r.Platform, r.Entity, r.Date, r.Type, r.ID, r.Description, r.ParentDescription}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return &pkgerrs.WriteError{Path: path, Err: err}
		}
	}

	return save(f, path)
}

func save(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return &pkgerrs.WriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &pkgerrs.WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &pkgerrs.WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &pkgerrs.WriteError{Path: path, Err: err}
	}
	return nil
}
