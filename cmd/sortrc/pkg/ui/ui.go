// Package ui renders sortrc's terminal output.
package ui

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/fileops"
	"github.com/walteh/sortrc/pkg/route"
	"github.com/walteh/sortrc/pkg/session"
)

// 📢 UserLogger provides user-friendly feedback on top of the event log
type UserLogger struct {
	log zerolog.Logger // for debug/error logging
	out io.Writer
}

// 🎯 NewUserLogger creates a new user logger writing to out
func NewUserLogger(ctx context.Context, out io.Writer) *UserLogger {
	return &UserLogger{
		log: *zerolog.Ctx(ctx),
		out: out,
	}
}

// 📊 LogStateChange logs a change to the overall state
func (u *UserLogger) LogStateChange(description string) {
	printer := pterm.Info.WithPrefix(pterm.Prefix{Text: "📦"})
	fmt.Fprint(u.out, printer.Sprintln(description))
	u.log.Info().Msg(description)
}

// 🔍 LogValidation logs validation results
func (u *UserLogger) LogValidation(valid bool, description string, err error) {
	if valid {
		fmt.Fprint(u.out, pterm.Success.WithPrefix(pterm.Prefix{Text: "✅"}).Sprintln(description))
		u.log.Info().Msg(description)
		return
	}
	if err != nil {
		fmt.Fprint(u.out, pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"}).Sprintln(description))
		fmt.Fprint(u.out, pterm.Error.Sprintln(err.Error()))
		u.log.Error().Err(err).Msg(description)
		return
	}
	fmt.Fprint(u.out, pterm.Warning.WithPrefix(pterm.Prefix{Text: "⚠️"}).Sprintln(description))
	u.log.Warn().Msg(description)
}

// 🧹 LogSweep summarizes a sweep
func (u *UserLogger) LogSweep(res session.SweepResult) {
	if res.Suppressed {
		fmt.Fprint(u.out, pterm.Warning.WithPrefix(pterm.Prefix{Text: "⏸️"}).Sprintln("Sweep suppressed, a paste is in progress"))
		return
	}

	outcomes := make([]route.Outcome, 0, len(res.Outcomes))
	for o := range res.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i] < outcomes[j] })

	data := pterm.TableData{{"Outcome", "Files"}}
	for _, o := range outcomes {
		data = append(data, []string{o.String(), strconv.Itoa(res.Outcomes[o])})
	}

	u.LogStateChange(fmt.Sprintf("Swept %s: %d moved in %s", res.Dir, res.Moved(), res.Duration.Round(time.Millisecond)))
	if len(outcomes) > 0 {
		u.renderTable(data)
	}
}

// 📂 RenderListing prints a directory listing as a table
func (u *UserLogger) RenderListing(dir string, entries []fileops.FileEntry) {
	fmt.Fprint(u.out, pterm.Info.WithPrefix(pterm.Prefix{Text: "📂"}).Sprintln(dir))
	if len(entries) == 0 {
		fmt.Fprintln(u.out, "  (empty)")
		return
	}
	data := pterm.TableData{{"Name", "Kind", "Size"}}
	for _, e := range entries {
		data = append(data, []string{e.Name, e.Kind.String(), e.SizeString()})
	}
	u.renderTable(data)
}

// 🏷️ Classification is one row of classify output
type Classification struct {
	Name        string
	Category    string
	Destination string
}

// 🏷️ RenderClassifications prints where each file would be sorted to
func (u *UserLogger) RenderClassifications(rows []Classification) {
	data := pterm.TableData{{"File", "Category", "Destination"}}
	for _, r := range rows {
		dest := r.Destination
		if dest == "" {
			dest = "-"
		}
		data = append(data, []string{r.Name, r.Category, dest})
	}
	u.renderTable(data)
}

// 📚 CategoryExtensions is one row of the category listing
type CategoryExtensions struct {
	Category    string
	Extensions  []string
	Destination string
}

// 📚 RenderCategories prints every category with its extensions and folder
func (u *UserLogger) RenderCategories(rows []CategoryExtensions) {
	data := pterm.TableData{{"Category", "Extensions", "Destination"}}
	for _, r := range rows {
		data = append(data, []string{r.Category, strings.Join(r.Extensions, " "), r.Destination})
	}
	u.renderTable(data)
}

func (u *UserLogger) renderTable(data pterm.TableData) {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		u.log.Error().Err(err).Msg("rendering table")
		return
	}
	fmt.Fprintln(u.out, s)
}
