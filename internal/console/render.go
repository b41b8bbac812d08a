package console

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/listing"
	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle    = lipgloss.NewStyle().Faint(true)
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("244"))
	panelStyle    = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderLeft(true).
			PaddingLeft(1).
			PaddingRight(1)
)

// View implements tea.Model.
func (model Model) View() string {
	w, h := model.size()
	if model.view.IsLoading() {
		return model.spinner.View() + " Loading users..."
	}
	if msg, failed := model.view.ErrorMessage(); failed {
		return errorStyle.Render("Error: "+msg) + "\n" + mutedStyle.Render("q quit")
	}

	drawer := model.view.DrawerState()
	tableWidth := w
	if drawer.Open {
		tableWidth = w - model.panelWidth()
	}
	lines := strings.Split(model.renderTable(tableWidth), "\n")
	for i, line := range lines {
		lines[i] = cell(line, tableWidth)
	}
	left := strings.Join(lines, "\n")
	if !drawer.Open {
		return left
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, model.renderDrawer(model.panelWidth(), h))
}

func (model Model) renderTable(width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Registered Users"))
	b.WriteString("\n")
	b.WriteString(model.search.View())
	b.WriteString("\n\n")

	fields := model.view.Fields()
	headers := make([]string, len(fields))
	for i, f := range fields {
		label := f.Label
		if f.Sortable {
			label += " " + model.view.SortIndicator(f.Key)
		}
		headers[i] = headerStyle.Render(cell(label, columnWidth(f)))
	}
	b.WriteString(strings.Join(headers, strings.Repeat(" ", columnGap)))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", max(width-1, 1))))
	b.WriteString("\n")

	rows := model.view.DisplayedRows()
	end := min(model.offset+model.visibleRows(), len(rows))
	for i := model.offset; i < end; i++ {
		line := renderRow(rows[i], fields)
		if i == model.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	for i := end - model.offset; i < model.visibleRows(); i++ {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(model.view.Summary())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("/ search  enter details  1-" + strconv.Itoa(len(fields)) + " sort  q quit"))
	return b.String()
}

func renderRow(p entity.Profile, fields listing.Fields) string {
	cells := make([]string, len(fields))
	for i, f := range fields {
		cells[i] = cell(p.Display(string(f.Key)), columnWidth(f))
	}
	return strings.Join(cells, strings.Repeat(" ", columnGap))
}

func (model Model) renderDrawer(width, height int) string {
	detail, ok := model.view.Detail()
	if !ok {
		return ""
	}
	inner := width - panelStyle.GetHorizontalFrameSize()
	var b strings.Builder
	b.WriteString(titleStyle.Render(detail.Title))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render("[esc]"))
	b.WriteString("\n\n")
	for _, line := range detail.Lines {
		b.WriteString(labelStyle.Render(line.Label))
		b.WriteString("\n")
		b.WriteString(ansi.Truncate(line.Value, inner, "…"))
		b.WriteString("\n\n")
	}
	for _, s := range detail.Sections {
		b.WriteString(labelStyle.Render(s.Title))
		b.WriteString("\n")
		b.WriteString(s.Body)
		b.WriteString("\n")
	}
	return panelStyle.Width(width - panelStyle.GetHorizontalBorderSize()).Height(height).Render(b.String())
}

// cell truncates or pads s to exactly width terminal cells.
func cell(s string, width int) string {
	s = ansi.Truncate(s, width, "…")
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
