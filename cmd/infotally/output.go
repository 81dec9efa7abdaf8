// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tally_service "github.com/AleutianAI/infotally/services/tally"
	"github.com/AleutianAI/infotally/services/tally/snapshot"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	colorTeal  = lipgloss.Color("#20B9B4")
	colorDeep  = lipgloss.Color("#16858E")
	colorError = lipgloss.Color("#E74C3C")
	colorMuted = lipgloss.Color("#2C4A54")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorTeal).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError).Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	plainStyle  = lipgloss.NewStyle().PaddingRight(1)
)

// printer writes tables to w, styled when w is a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, styled: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *printer) title(s string) {
	if p.styled {
		s = titleStyle.Render(s)
	}
	fmt.Fprintln(p.w, s)
}

func (p *printer) note(s string) {
	if p.styled {
		s = mutedStyle.Render(s)
	}
	fmt.Fprintln(p.w, s)
}

// table writes headers and rows. Plain output is space-aligned columns
// with no border or color. Rows whose last cell starts with "error:" are
// highlighted when styled.
func (p *printer) table(headers []string, rows [][]string) {
	t := table.New().Headers(headers...).Rows(rows...)
	if !p.styled {
		t = t.Border(lipgloss.HiddenBorder()).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderRight(false).
			BorderHeader(false).
			StyleFunc(func(row, col int) lipgloss.Style { return plainStyle })
		fmt.Fprintln(p.w, t.Render())
		return
	}

	t = t.Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDeep)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row >= 0 && row < len(rows) && strings.HasPrefix(rows[row][len(rows[row])-1], "error:") {
				return errorStyle
			}
			return cellStyle
		})
	fmt.Fprintln(p.w, t.Render())
}

// report prints file results followed by variable and pair tables.
func (p *printer) report(files []fileSummary, r *tally_service.Report) {
	if len(files) > 0 {
		p.title("Files")
		rows := make([][]string, 0, len(files))
		for _, f := range files {
			status := "ok"
			if f.Error != "" {
				status = "error: " + f.Error
			}
			rows = append(rows, []string{
				filepath.Base(f.Path),
				string(f.Format),
				strconv.Itoa(f.Records),
				strconv.FormatInt(f.Accepted, 10),
				strconv.FormatInt(f.Rejected, 10),
				status,
			})
		}
		p.table([]string{"FILE", "FORMAT", "RECORDS", "ACCEPTED", "REJECTED", "STATUS"}, rows)
		fmt.Fprintln(p.w)
	}

	if len(r.Variables) > 0 {
		p.title("Variables (" + r.Basis + ")")
		rows := make([][]string, 0, len(r.Variables))
		for _, v := range r.Variables {
			rows = append(rows, []string{
				v.Name,
				v.Kind,
				strconv.FormatInt(v.Samples, 10),
				formatValue(v.Entropy),
				formatFloat(v.MaxEntropy),
				modeOf(v),
			})
		}
		p.table([]string{"NAME", "KIND", "SAMPLES", "H", "H MAX", "MODE"}, rows)
		fmt.Fprintln(p.w)
	}

	if len(r.Pairs) > 0 {
		p.title("Pairs (" + r.Basis + ")")
		rows := make([][]string, 0, len(r.Pairs))
		for _, pr := range r.Pairs {
			rows = append(rows, []string{
				pr.Name,
				pr.X + " ; " + pr.Y,
				strconv.FormatInt(pr.Samples, 10),
				formatValue(pr.EntropyX),
				formatValue(pr.EntropyY),
				formatValue(pr.JointEntropy),
				formatValue(pr.EntropyXGivenY),
				formatValue(pr.EntropyYGivenX),
				formatValue(pr.MutualInformation),
				formatValue(pr.VariationOfInformation),
			})
		}
		p.table([]string{"NAME", "X ; Y", "SAMPLES", "H(X)", "H(Y)", "H(X,Y)", "H(X|Y)", "H(Y|X)", "I(X;Y)", "VI"}, rows)
		fmt.Fprintln(p.w)
	}

	p.note("Generated " + r.GeneratedAt.Format(time.RFC3339))
}

// snapshots prints a snapshot list.
func (p *printer) snapshots(list []snapshot.Summary) {
	if len(list) == 0 {
		p.note("No snapshots stored.")
		return
	}
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{
			s.ID,
			s.Label,
			s.CreatedAt.Local().Format(time.DateTime),
			strconv.Itoa(s.Variables),
			strconv.Itoa(s.Pairs),
		})
	}
	p.table([]string{"ID", "LABEL", "CREATED", "VARIABLES", "PAIRS"}, rows)
}

// modeOf returns the label of the most frequent bin, or "-" without samples.
func modeOf(v tally_service.VariableReport) string {
	best := -1
	for i, b := range v.Bins {
		if b.Count > 0 && (best < 0 || b.Count > v.Bins[best].Count) {
			best = i
		}
	}
	if best < 0 {
		return "-"
	}
	return v.Bins[best].Label
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
