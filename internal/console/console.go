// Package console renders the ppass terminal output: the password tree,
// the history and detail tables, and the in-place progress bar.
package console

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/fatih/color"

	"github.com/vodchella/ppass/internal/storage"
)

const timestampLayout = "02.01.2006 15:04:05"

var groupColor = color.New(color.FgBlue, color.Bold)

// FormatTimestamp renders a stored timestamp in local time for display.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(timestampLayout)
}

// RenderTree prints the group hierarchy with the live password names as
// leaves. Group labels are bracketed and colored, password names plain.
func RenderTree(out io.Writer, groups []storage.Group, entries []storage.SecretEntry) error {
	nodes := make(map[int64]*tree.Tree, len(groups))
	for _, group := range groups {
		nodes[group.ID] = tree.Root(groupLabel(group.Name))
	}

	var root *tree.Tree
	for _, group := range groups {
		if group.ParentID == nil {
			if group.ID == storage.RootGroupID {
				root = nodes[group.ID]
			}
			continue
		}
		if parent, ok := nodes[*group.ParentID]; ok {
			parent.Child(nodes[group.ID])
		}
	}
	if root == nil {
		root = tree.Root(groupLabel("/"))
	}

	for _, entry := range entries {
		node, ok := nodes[entry.GroupID]
		if !ok {
			node = root
		}
		node.Child(entry.Name)
	}

	_, err := fmt.Fprintln(out, root.String())
	return err
}

type HistoryRow struct {
	Current     bool
	Value       string
	CreatedAt   time.Time
	Login       string
	Description string
}

// RenderHistoryTable prints every stored version of a password, newest
// first, with the live version marked in the Current column.
func RenderHistoryTable(out io.Writer, rows []HistoryRow) error {
	tbl := newTable().Headers("Current", "Password", "Created at", "Login", "Description")
	for _, row := range rows {
		current := ""
		if row.Current {
			current = "[x]"
		}
		tbl.Row(current, row.Value, FormatTimestamp(row.CreatedAt), row.Login, row.Description)
	}
	_, err := fmt.Fprintln(out, tbl.String())
	return err
}

type DetailsRow struct {
	Value       string
	CreatedAt   time.Time
	Login       string
	Description string
}

// RenderDetailsTable prints the live version of a password with its
// metadata.
func RenderDetailsTable(out io.Writer, row DetailsRow) error {
	tbl := newTable().Headers("Password", "Created at", "Login", "Description")
	tbl.Row(row.Value, FormatTimestamp(row.CreatedAt), row.Login, row.Description)
	_, err := fmt.Fprintln(out, tbl.String())
	return err
}

func newTable() *table.Table {
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(int, int) lipgloss.Style { return cell })
}

func groupLabel(name string) string {
	return "[" + groupColor.Sprint(name) + "]"
}
