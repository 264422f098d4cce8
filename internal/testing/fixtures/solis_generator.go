package fixtures

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DateLayout is the timestamp format written by the data logger
const DateLayout = "02/01/06 15:04"

// DefaultColumns are the measurement columns of a generated log
var DefaultColumns = []string{"PAC", "UDC", "IDC", "Temp", "EToday", "T1", "T2", "T3", "T4", "T5", "Status"}

// LogSpec describes a synthetic sensor log
type LogSpec struct {
	Start    time.Time
	End      time.Time     // inclusive
	Interval time.Duration // defaults to 10 minutes

	// HeaderEvery repeats the header line every n data rows (0 = header once)
	HeaderEvery int
	// VendorEvery inserts a vendor status line every n data rows (0 = never)
	VendorEvery int
	// LF writes bare "\n" line endings instead of CRLF
	LF bool
}

// Row is one generated data row
type Row struct {
	Time   time.Time
	Fields []string
}

// Line renders the row as the logger writes it
func (r Row) Line() string {
	return r.Time.Format(DateLayout) + ";" + strings.Join(r.Fields, ";")
}

// HeaderLine returns the header written at the top of a log
func HeaderLine() string {
	return "Date;" + strings.Join(DefaultColumns, ";")
}

// VendorLine returns a line from the vendor namespace that must never be kept
func VendorLine(t time.Time) string {
	return t.Format(DateLayout) + ";Solis S6-GR1P;SN 1234567890;firmware 3.2"
}

// TestLogGenerator writes synthetic Solis-style logs
type TestLogGenerator struct {
	baseDir string
}

// NewTestLogGenerator creates a new generator writing below baseDir
func NewTestLogGenerator(baseDir string) *TestLogGenerator {
	return &TestLogGenerator{baseDir: baseDir}
}

// Rows returns the data rows described by spec, in time order
func Rows(spec LogSpec) []Row {
	interval := spec.Interval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	var rows []Row
	for t, i := spec.Start, 0; !t.After(spec.End); t, i = t.Add(interval), i+1 {
		rows = append(rows, Row{Time: t, Fields: measurement(t, i)})
	}
	return rows
}

// Lines renders spec into the lines of a log file, headers and vendor lines included
func Lines(spec LogSpec) []string {
	lines := []string{HeaderLine()}
	for i, row := range Rows(spec) {
		if spec.HeaderEvery > 0 && i > 0 && i%spec.HeaderEvery == 0 {
			lines = append(lines, HeaderLine())
		}
		if spec.VendorEvery > 0 && i%spec.VendorEvery == 0 {
			lines = append(lines, VendorLine(row.Time))
		}
		lines = append(lines, row.Line())
	}
	return lines
}

// WriteLog writes the log described by spec to name below the base directory
func (g *TestLogGenerator) WriteLog(name string, spec LogSpec) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", err
	}

	eol := "\r\n"
	if spec.LF {
		eol = "\n"
	}
	content := strings.Join(Lines(spec), eol) + eol
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFigureConfig writes a figure configuration JSON document
func (g *TestLogGenerator) WriteFigureConfig(name, content string) (string, error) {
	path := filepath.Join(g.baseDir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// TwoPanelConfig is the figure used by the end-to-end scenario
const TwoPanelConfig = `[
  {"name": "Inverter", "y_label": "W / V", "data": {"PAC": "Power", "UDC": "Voltage"}},
  {"name": "Temperature", "y_label": "°C", "data": {"Temp": "Temp"}, "y_limit": {"min": 0, "max": 80}}
]`

// measurement produces a plausible daily solar curve
func measurement(t time.Time, i int) []string {
	minutes := float64(t.Hour()*60 + t.Minute())
	sun := math.Max(0, math.Sin((minutes-360)/720*math.Pi))

	pac := math.Round(sun * 3000)
	udc := 0.0
	if sun > 0 {
		udc = 280 + math.Round(sun*120)
	}
	idc := 0.0
	if udc > 0 {
		idc = math.Round(pac/udc*10) / 10
	}
	temp := 15 + math.Round(sun*40*10)/10
	status := "Standby"
	if pac > 0 {
		status = "Generating"
	}

	return []string{
		fmt.Sprintf("%.0f", pac),
		fmt.Sprintf("%.0f", udc),
		fmt.Sprintf("%.1f", idc),
		fmt.Sprintf("%.1f", temp),
		fmt.Sprintf("%.1f", float64(i)*0.05),
		fmt.Sprintf("%.1f", 40+sun*25),
		fmt.Sprintf("%.1f", 35+sun*20),
		fmt.Sprintf("%.1f", 20+sun*5),
		fmt.Sprintf("%.1f", 18+sun*3),
		fmt.Sprintf("%.1f", 12+sun*2),
		status,
	}
}
