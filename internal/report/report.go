// Package report renders water-level summaries as PDF documents.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"

	"FloodMonitorAPI/internal/models"
)

// MaxReadingRows caps the readings table so reports stay a few pages long.
const MaxReadingRows = 100

type Data struct {
	GeneratedAt time.Time
	Location    *time.Location
	DeviceID    string
	Hours       float64
	Threshold   int
	Stats       models.StatsResult
	Readings    []models.Reading
	Alerts      []models.AlertEvent
}

// Write renders d as a PDF into w.
func Write(w io.Writer, d Data) error {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Flood Monitoring Report", false)
	pdf.SetCreator("FloodMonitorAPI", false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Flood Monitoring Report")
	pdf.Ln(10)

	device := d.DeviceID
	if device == "" {
		device = "all devices"
	}
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", d.GeneratedAt.In(loc).Format("2006-01-02 15:04:05 MST")))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Window: last %s hours, %s", formatHours(d.Hours), device))
	pdf.Ln(6)
	pdf.Cell(0, 6, fmt.Sprintf("Alert threshold: %d%%", d.Threshold))
	pdf.Ln(10)

	writeStats(pdf, d.Stats)
	writeReadings(pdf, d.Readings, d.Threshold)
	writeAlerts(pdf, d.Alerts, loc)

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeStats(pdf *gofpdf.Fpdf, s models.StatsResult) {
	section(pdf, "Summary")

	if s.Count == 0 {
		pdf.SetFont("Arial", "", 10)
		pdf.Cell(0, 6, "No readings in this window.")
		pdf.Ln(10)
		return
	}

	rows := [][2]string{
		{"Samples", fmt.Sprintf("%d", s.Count)},
		{"Current", fmt.Sprintf("%d%%", s.Current)},
		{"Average", fmt.Sprintf("%.1f%%", s.Mean)},
		{"Maximum", fmt.Sprintf("%d%%", s.Max)},
		{"Minimum", fmt.Sprintf("%d%%", s.Min)},
		{"Std deviation", fmt.Sprintf("%.2f", s.Std)},
	}

	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.CellFormat(50, 6, row[0], "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, row[1], "1", 1, "R", false, 0, "")
	}
	pdf.Ln(6)
}

func writeReadings(pdf *gofpdf.Fpdf, readings []models.Reading, threshold int) {
	section(pdf, "Recent readings")

	if len(readings) > MaxReadingRows {
		readings = readings[:MaxReadingRows]
	}

	widths := []float64{45, 50, 25, 30, 40}
	header := []string{"Time (UTC)", "Device", "Level", "Distance", "Sensor"}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, r := range readings {
		sensor := "-"
		if r.SensorStatus != nil {
			sensor = *r.SensorStatus
		}
		distance := "-"
		if r.UltrasonicCM >= 0 {
			distance = fmt.Sprintf("%.1f cm", r.UltrasonicCM)
		}

		if r.LevelPercent >= threshold {
			pdf.SetTextColor(200, 0, 0)
		}
		pdf.CellFormat(widths[0], 6, r.TimestampISO, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, r.DeviceID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d%%", r.LevelPercent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, distance, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, sensor, "1", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(6)
}

func writeAlerts(pdf *gofpdf.Fpdf, alerts []models.AlertEvent, loc *time.Location) {
	section(pdf, "Alert history")

	pdf.SetFont("Arial", "", 9)
	if len(alerts) == 0 {
		pdf.Cell(0, 6, "No alerts triggered.")
		pdf.Ln(6)
		return
	}

	for _, a := range alerts {
		delivered := "delivered"
		if !a.Delivered {
			delivered = "NOT delivered"
		}
		line := fmt.Sprintf("%s  %s  %s at %d%% (%s)",
			a.CreatedAt.In(loc).Format("2006-01-02 15:04:05"), a.Severity, a.DeviceID, a.LevelPercent, delivered)
		pdf.Cell(0, 6, line)
		pdf.Ln(6)
	}
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(9)
}

func formatHours(h float64) string {
	if h == float64(int64(h)) {
		return fmt.Sprintf("%d", int64(h))
	}
	return fmt.Sprintf("%.2f", h)
}
