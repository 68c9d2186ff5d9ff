// Package output provides utilities for formatting and displaying valuation results.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/iwvelando/estimate-engine/internal/engine"
	"github.com/iwvelando/estimate-engine/internal/timeline"
	"github.com/iwvelando/estimate-engine/pkg/constants"
	"github.com/iwvelando/estimate-engine/pkg/datetime"
	"github.com/iwvelando/estimate-engine/pkg/format"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Write renders results to w in the named format.
func Write(w io.Writer, outputFormat string, results []engine.Result) error {
	switch outputFormat {
	case constants.OutputFormatPretty, "":
		return WritePretty(w, results)
	case constants.OutputFormatCSV:
		return WriteCSV(w, results)
	case constants.OutputFormatJSON:
		return WriteJSON(w, results)
	}
	return fmt.Errorf("unsupported output format %q", outputFormat)
}

// PrettyFormat outputs a human-readable rather than machine-readable report.
func PrettyFormat(results []engine.Result) error {
	return WritePretty(os.Stdout, results)
}

// CsvFormat outputs one comma-separated row per property.
func CsvFormat(results []engine.Result) error {
	return WriteCSV(os.Stdout, results)
}

// JSONFormat outputs the results as indented JSON.
func JSONFormat(results []engine.Result) error {
	return WriteJSON(os.Stdout, results)
}

// WritePretty writes the human-readable report.
func WritePretty(w io.Writer, results []engine.Result) error {
	p := message.NewPrinter(language.English)
	var buf bytes.Buffer
	for i, result := range results {
		name := result.Name
		if name == "" {
			name = fmt.Sprintf("#%d", i+1)
		}
		b := result.ValueBreakdown
		fmt.Fprintf(&buf, "--- Valuation for property %s ---\n", name)
		fmt.Fprintf(&buf, "%-22s| %s\n", "Property type", b.PropertyType)
		if b.WeightedSurface.IsPositive() {
			_, _ = p.Fprintf(&buf, "%-22s| %.2f m²\n", "Weighted surface", b.WeightedSurface.InexactFloat64())
		}
		if b.ConstructionVolume.IsPositive() {
			_, _ = p.Fprintf(&buf, "%-22s| %.2f m³\n", "Construction volume", b.ConstructionVolume.InexactFloat64())
		}

		fmt.Fprintf(&buf, "\n%-22s| Amount\n", "Line item")
		fmt.Fprintf(&buf, "%-22s| ______\n", "_________")
		for _, item := range b.LineItems {
			fmt.Fprintf(&buf, "%-22s| %s\n", item.Label, format.Currency(item.Amount))
		}

		fmt.Fprintf(&buf, "\n%-22s| %s\n", "Venal value", format.Currency(b.VenalValue))
		fmt.Fprintf(&buf, "%-22s| %s\n", "Yield value", format.Currency(b.YieldValue))
		fmt.Fprintf(&buf, "%-22s| %s\n", "Collateral value", format.Currency(b.CollateralValue))
		fmt.Fprintf(&buf, "%-22s| %s to %s\n", "Negotiation range", format.Currency(b.NegotiationLow), format.Currency(b.NegotiationHigh))

		capital := result.ExposureCapital
		fmt.Fprintf(&buf, "\n%-22s| %d/100\n", "Exposure capital", capital.Score)
		if capital.RecalibrationPauseWeeks > 0 {
			fmt.Fprintf(&buf, "%-22s| %d week(s)\n", "Recalibration pause", capital.RecalibrationPauseWeeks)
		}
		for _, alert := range capital.Alerts {
			fmt.Fprintf(&buf, "  [%s] %s\n", alert.Severity, alert.Message)
		}

		register := "standard"
		if result.IsPremiumRegister {
			register = "premium"
		}
		fmt.Fprintf(&buf, "%-22s| %s (score %d)\n", "Register", register, result.EntryPoint.Score)

		plan := result.TimelinePlan
		fmt.Fprintf(&buf, "\nTimeline: %s entry, %s mode, constraint level %d\n", plan.EntryPoint, plan.Mode, plan.ConstraintLevel)
		fmt.Fprintf(&buf, "%-13s| %-10s | %-10s | Weeks\n", "Phase", "Start", "End")
		fmt.Fprintf(&buf, "%-13s| %-10s | %-10s | _____\n", "_____", "_____", "___")
		for _, phase := range plan.Phases {
			fmt.Fprintf(&buf, "%-13s| %s | %s | %d\n", phase.Name,
				phase.StartDate.Format(datetime.DateLayout), phase.EndDate.Format(datetime.DateLayout), phase.DurationWeeks)
		}
		fmt.Fprintf(&buf, "%-22s| %s\n", "Estimated sale date", plan.EstimatedSaleDate.Format(datetime.DateLayout))
		for _, note := range plan.Adjustments {
			fmt.Fprintf(&buf, "  %s\n", note)
		}

		fmt.Fprintf(&buf, "\n%-22s| Uplift | Target value\n", "Entry point")
		for _, target := range plan.Targets {
			marker := ""
			if target.EntryPoint == plan.EntryPoint {
				marker = " *"
			}
			_, _ = p.Fprintf(&buf, "%-22s| %5.1f%% | %s\n", string(target.EntryPoint)+marker, target.UpliftPct, format.Currency(target.TargetValue))
		}

		if len(result.Warnings) > 0 {
			fmt.Fprintf(&buf, "\nWarnings:\n")
			for _, warning := range result.Warnings {
				fmt.Fprintf(&buf, "  - %s\n", warning)
			}
		}
		if i < len(results)-1 {
			fmt.Fprintf(&buf, "\n")
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

var csvHeader = []string{
	"name", "propertyType", "venalValue", "yieldValue", "collateralValue",
	"negotiationRangeLow", "negotiationRangeHigh", "exposureScore", "recalibrationPauseWeeks",
	"alerts", "premiumScore", "isPremiumRegister", "entryPoint", "mode", "constraintLevel",
	"startDate", "estimatedSaleDate", "totalWeeks",
	"targetOffMarket", "targetComingSoon", "targetPublic", "warnings",
}

// WriteCSV writes a header and one row per result.
func WriteCSV(w io.Writer, results []engine.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, result := range results {
		b := result.ValueBreakdown
		plan := result.TimelinePlan
		row := []string{
			result.Name,
			string(b.PropertyType),
			b.VenalValue.String(),
			b.YieldValue.String(),
			b.CollateralValue.String(),
			b.NegotiationLow.String(),
			b.NegotiationHigh.String(),
			strconv.Itoa(result.ExposureCapital.Score),
			strconv.Itoa(result.ExposureCapital.RecalibrationPauseWeeks),
			strconv.Itoa(len(result.ExposureCapital.Alerts)),
			strconv.Itoa(result.EntryPoint.Score),
			strconv.FormatBool(result.IsPremiumRegister),
			string(plan.EntryPoint),
			string(plan.Mode),
			strconv.Itoa(plan.ConstraintLevel),
			plan.StartDate.Format(datetime.DateLayout),
			plan.EstimatedSaleDate.Format(datetime.DateLayout),
			strconv.Itoa(plan.TotalWeeks),
			targetValue(plan, timeline.EntryOffMarket),
			targetValue(plan, timeline.EntryComingSoon),
			targetValue(plan, timeline.EntryPublic),
			strings.Join(result.Warnings, "; "),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CsvString returns the CSV rendition of results.
func CsvString(results []engine.Result) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, results); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []engine.Result) error {
	if results == nil {
		results = []engine.Result{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func targetValue(plan timeline.Plan, entry timeline.EntryPoint) string {
	if t, ok := plan.Target(entry); ok {
		return t.TargetValue.String()
	}
	return ""
}
