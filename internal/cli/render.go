package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/clouddrive/drive/internal/browser"
	"github.com/clouddrive/drive/internal/constants"
	"github.com/clouddrive/drive/internal/models"
)

const modifiedLayout = "Jan 2, 2006 15:04"

// breadcrumb renders "Home" or "Home / <folder>".
func breadcrumb(bctx browser.Context) string {
	if bctx.AtRoot() {
		return constants.HomeFolderName
	}
	return constants.HomeFolderName + " / " + bctx.FolderName
}

func modified(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return "Modified " + t.Local().Format(modifiedLayout)
}

// renderResources prints items as an aligned table.
func renderResources(w io.Writer, items []models.Resource) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tMODIFIED\tID")
	for _, r := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Kind(), r.Name, modified(r.CreatedAt), r.ID)
	}
	_ = tw.Flush()
}

// renderListing prints the breadcrumb header and the current view, or the
// empty-folder hint.
func renderListing(w io.Writer, snap browser.Snapshot) {
	fmt.Fprintln(w, breadcrumb(snap.Context))
	if snap.Context.Query != "" {
		fmt.Fprintf(w, "Search: %q\n", snap.Context.Query)
	}
	fmt.Fprintln(w)

	if len(snap.View) == 0 {
		if snap.Context.Query != "" {
			fmt.Fprintln(w, "No items match your search.")
			return
		}
		fmt.Fprintln(w, "No files here yet")
		fmt.Fprintln(w, "Upload files to get started")
		return
	}
	renderResources(w, snap.View)
}

// renderFolders prints the flat folder index.
func renderFolders(w io.Writer, folders []models.Resource) {
	if len(folders) == 0 {
		fmt.Fprintln(w, "No folders yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID")
	for _, f := range folders {
		fmt.Fprintf(tw, "%s\t%s\n", f.Name, f.ID)
	}
	_ = tw.Flush()
}

// renderRecent prints the "Recent files" strip.
func renderRecent(w io.Writer, recent []models.Resource) {
	fmt.Fprintln(w, "Recent files")
	if len(recent) == 0 {
		fmt.Fprintln(w, "  (none)")
		return
	}
	for _, r := range recent {
		fmt.Fprintf(w, "  [%s] %s  %s  (%s)\n", r.Kind(), r.Name, modified(r.CreatedAt), r.ID)
	}
}
