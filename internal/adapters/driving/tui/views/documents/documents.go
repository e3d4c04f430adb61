// Package documents provides the tenant document list view for the TUI.
package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/ragindex/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driving"
)

var (
	// ErrNoTenantService indicates that no tenant service was provided.
	ErrNoTenantService = errors.New("tenant service not available")

	// ErrNoIndexService indicates that no index service was provided.
	ErrNoIndexService = errors.New("index service not available")
)

// View lists a tenant's documents and its index state.
type View struct {
	styles        *styles.Styles
	keymap        *keymap.KeyMap
	tenantService driving.TenantService
	indexService  driving.IndexService
	tenant        domain.TenantID
	ctx           context.Context

	documents     []domain.DocumentInfo
	stats         *domain.TenantStats
	selected      int
	scrollOffset  int
	width         int
	height        int
	err           error
	notice        string
	loading       bool
	rebuilding    bool
	confirmDelete bool
}

// NewView creates a new documents view bound to one tenant.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	tenantService driving.TenantService,
	indexService driving.IndexService,
	tenant domain.TenantID,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &View{
		styles:        s,
		keymap:        km,
		tenantService: tenantService,
		indexService:  indexService,
		tenant:        tenant,
		ctx:           context.Background(),
		width:         80,
		height:        24,
	}
}

// WithContext sets the context used for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the document list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	v.confirmDelete = false
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	return func() tea.Msg {
		if v.tenantService == nil {
			return messages.DocumentsLoaded{Tenant: v.tenant, Err: ErrNoTenantService}
		}
		docs, err := v.tenantService.ListDocuments(v.ctx, v.tenant)
		if err != nil {
			return messages.DocumentsLoaded{Tenant: v.tenant, Err: err}
		}
		stats, err := v.tenantService.Stats(v.ctx, v.tenant)
		return messages.DocumentsLoaded{Tenant: v.tenant, Documents: docs, Stats: stats, Err: err}
	}
}

func (v *View) deleteDocument(name string) tea.Cmd {
	return func() tea.Msg {
		if v.tenantService == nil {
			return messages.DocumentDeleted{Name: name, Err: ErrNoTenantService}
		}
		return messages.DocumentDeleted{Name: name, Err: v.tenantService.Delete(v.ctx, v.tenant, name)}
	}
}

func (v *View) rebuild() tea.Cmd {
	return func() tea.Msg {
		if v.indexService == nil {
			return messages.RebuildCompleted{Err: ErrNoIndexService}
		}
		status, err := v.indexService.Rebuild(v.ctx, v.tenant)
		return messages.RebuildCompleted{Status: status, Err: err}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirmDelete {
			return v.handleConfirmKey(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.documents = msg.Documents
			v.stats = msg.Stats
			v.selected = min(v.selected, max(len(v.documents)-1, 0))
			v.adjustScroll()
		}
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Deleted %s, rebuilding", msg.Name)
		v.loading = true
		return v, v.loadDocuments()

	case messages.RebuildCompleted:
		v.rebuilding = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.notice = fmt.Sprintf("Rebuilt %d documents into %d chunks", msg.Status.Documents, msg.Status.Chunks)
		v.loading = true
		return v, v.loadDocuments()

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	k := msg.String()
	switch {
	case keymap.Matches(k, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(k, v.keymap.Delete):
		if len(v.documents) > 0 {
			v.confirmDelete = true
		}
	case keymap.Matches(k, v.keymap.Rebuild):
		if v.rebuilding {
			return v, nil
		}
		v.rebuilding = true
		v.err = nil
		v.notice = ""
		return v, v.rebuild()
	case keymap.Matches(k, v.keymap.Reload):
		v.loading = true
		v.err = nil
		return v, v.loadDocuments()
	case keymap.Matches(k, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}
	return v, nil
}

func (v *View) handleConfirmKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	v.confirmDelete = false
	if msg.String() != "y" || v.selected >= len(v.documents) {
		return v, nil
	}
	v.err = nil
	return v, v.deleteDocument(v.documents[v.selected].Name)
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// title, stats, notice and help
	return max(v.height-9, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents - %s (%d)", v.tenant, len(v.documents))))
	b.WriteString("\n")
	b.WriteString(v.renderStats())
	b.WriteString("\n\n")

	switch {
	case v.rebuilding:
		b.WriteString(v.styles.Warning.Render("Rebuilding index..."))
		b.WriteString("\n\n")
	case v.notice != "":
		b.WriteString(v.styles.Success.Render(v.notice))
		b.WriteString("\n\n")
	}

	if v.err != nil {
		b.WriteString(v.styles.Error.Render(fmt.Sprintf("Error: %s: %s", domain.KindOf(v.err), v.err)))
		b.WriteString("\n\n")
	}

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents uploaded for this company."))
	default:
		visible := v.visibleItemCount()
		end := min(v.scrollOffset+visible, len(v.documents))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderDocument(i, &v.documents[i]))
			b.WriteString("\n")
		}
		if len(v.documents) > visible {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]", v.scrollOffset+1, end, len(v.documents))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if v.confirmDelete && v.selected < len(v.documents) {
		b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %s? [y] yes  [any key] cancel", v.documents[v.selected].Name)))
	} else {
		b.WriteString(v.renderHelp())
	}
	return b.String()
}

func (v *View) renderStats() string {
	if v.stats == nil {
		return v.styles.Muted.Render("index: unknown")
	}
	index := "not built"
	if v.stats.IndexExists {
		index = "built"
	}
	if v.stats.InCache {
		index += ", cached"
	}
	line := fmt.Sprintf("%s  |  index %s", formatSize(v.stats.TotalSizeBytes), index)
	if lb := v.stats.LastBuild; lb != nil {
		line += fmt.Sprintf("  |  last build %s %s", lb.Outcome, lb.FinishedAt.Format(time.DateTime))
	}
	return v.styles.Muted.Render(line)
}

func (v *View) renderDocument(index int, doc *domain.DocumentInfo) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}

	nameWidth := max(v.width/2-4, 10)
	name := doc.Name
	if r := []rune(name); len(r) > nameWidth {
		name = string(r[:nameWidth-3]) + "..."
	}
	meta := fmt.Sprintf("%8s  %s", formatSize(doc.Size), doc.ModifiedAt.Format(time.DateOnly))

	if index == v.selected {
		return v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, nameWidth, name, meta))
	}
	return v.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, nameWidth, name)) +
		v.styles.Muted.Render(meta)
}

func (v *View) renderHelp() string {
	return v.styles.Help.Render("[↑/↓] navigate  [d] delete  [b] rebuild  [r] reload  [esc] back")
}

// formatSize renders a byte count with a binary unit.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.adjustScroll()
}

// Documents returns the current list of documents.
func (v *View) Documents() []domain.DocumentInfo {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// IsConfirmingDelete reports whether a delete awaits confirmation.
func (v *View) IsConfirmingDelete() bool {
	return v.confirmDelete
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
