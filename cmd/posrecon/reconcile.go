package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"posrecon/internal/exporter"
	"posrecon/internal/model"
	"posrecon/internal/reconcile"
	"posrecon/internal/service/reconciler"
)

var (
	reconcileType string
	reconcileDate string
	reconcileFile string
	reconcileOut  string
	reconcileAll  bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile a ledger export against the stored POS data of a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := time.Parse(model.DateLayout, reconcileDate)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		data, err := os.ReadFile(reconcileFile)
		if err != nil {
			return err
		}

		app, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		out, err := app.Reconciler.Reconcile(reconciler.Request{
			Date:     date,
			Kind:     reconcileType,
			Filename: filepath.Base(reconcileFile),
			Data:     data,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s %s: %d dòng, %d khớp, %d lệch\n",
			out.Kind, date.Format("02/01/2006"), out.Summary.Total, out.Summary.Matched, out.Summary.Mismatched)
		printRecords(w, out.Records, reconcileAll)

		if reconcileOut != "" {
			f, err := exporter.ReconcileWorkbook(out.Kind, out.Records)
			if err != nil {
				return err
			}
			defer f.Close()
			path := reconcileOut
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, exporter.ReconcileFileName(out.Kind, date))
			}
			if err := f.SaveAs(path); err != nil {
				return err
			}
			fmt.Fprintf(w, "Đã ghi %s\n", path)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileType, "type", reconciler.KindAuto, "SanLuong, TienMat, CongNo or auto")
	reconcileCmd.Flags().StringVar(&reconcileDate, "date", "", "report date YYYY-MM-DD")
	reconcileCmd.Flags().StringVar(&reconcileFile, "file", "", "ledger export (XML spreadsheet or xlsx)")
	reconcileCmd.Flags().StringVar(&reconcileOut, "out", "", "write the result workbook to this file or directory")
	reconcileCmd.Flags().BoolVar(&reconcileAll, "all", false, "print matched rows too")
	_ = reconcileCmd.MarkFlagRequired("date")
	_ = reconcileCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(reconcileCmd)
}

func printRecords(w io.Writer, records []reconcile.Record, all bool) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHXD\tĐối tượng\tMã\tPOS\tKế toán\tGhi chú")
	for _, r := range records {
		if r.IsMatch && !all {
			continue
		}
		entity := r.Entity
		if r.CustomerName != "" {
			entity = r.CustomerName
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Store, entity, r.CustomerCode, r.POSValue, r.LedgerValue, r.Note)
	}
	_ = tw.Flush()
}
