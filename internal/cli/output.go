package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fastygo/agroflow/domain"
	"github.com/fastygo/agroflow/internal/services"
)

type printer struct {
	format string
	w      io.Writer
}

func newPrinter(opts *RootOptions, cmd *cobra.Command) printer {
	format := "text"
	if opts != nil {
		format = opts.Format
	}
	return printer{format: format, w: cmd.OutOrStdout()}
}

func (p printer) json(v interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p printer) passResult(r services.PassResult) error {
	if p.format == "json" {
		return p.json(r)
	}
	switch {
	case r.Offline:
		_, err := fmt.Fprintln(p.w, "remote unreachable; outbox left untouched")
		return err
	case r.FailedEntry != "":
		_, err := fmt.Fprintf(p.w, "synced %d, halted at %s, %d remaining\n", r.Synced, r.FailedEntry, r.Remaining)
		return err
	default:
		_, err := fmt.Fprintf(p.w, "synced %d\n", r.Synced)
		return err
	}
}

func (p printer) entries(entries []domain.OutboxEntry) error {
	if p.format == "json" {
		if entries == nil {
			entries = []domain.OutboxEntry{}
		}
		return p.json(entries)
	}
	if len(entries) == 0 {
		_, err := fmt.Fprintln(p.w, "outbox is empty")
		return err
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tENTITY\tACTION\tRECORD\tQUEUED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Seq, e.ID, e.Entity, e.Action, e.RecordID(), e.Timestamp.Local().Format(time.DateTime))
	}
	return tw.Flush()
}
