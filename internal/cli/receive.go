package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Spok95/metalqms/internal/domain/materials"
	"github.com/Spok95/metalqms/internal/domain/receipts"
	"github.com/Spok95/metalqms/internal/workflow"
)

func newMaterialCmd() *cobra.Command {
	in := materials.NewInput{}
	var unit string

	cmd := &cobra.Command{
		Use:   "material",
		Short: "Партии металла",
	}
	add := &cobra.Command{
		Use:   "add",
		Short: "Зарегистрировать партию",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			log := newLogger(cfg, cmd.ErrOrStderr())
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			in.Unit = materials.Unit(unit)
			m, err := a.svc.CreateMaterial(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "material #%d %s %s (%s)\n", m.ID, m.Grade, m.Size, m.ExternalID)
			return nil
		},
	}
	f := add.Flags()
	f.StringVar(&in.Grade, "grade", "", "steel grade")
	f.StringVar(&in.Size, "size", "", "size")
	f.StringVar(&in.Supplier, "supplier", "", "supplier")
	f.StringVar(&in.OrderNumber, "order", "", "order number")
	f.StringVar(&in.CertificateNumber, "certificate", "", "certificate number")
	f.StringVar(&in.HeatNumber, "heat", "", "heat number")
	f.Float64Var(&in.Quantity, "qty", 0, "quantity")
	f.StringVar(&unit, "unit", string(materials.UnitKg), "unit (kg|pcs|meters)")
	f.StringVar(&in.Location, "location", "", "storage location")
	_ = add.MarkFlagRequired("grade")
	_ = add.MarkFlagRequired("size")

	var (
		gradeID  int64
		newGrade string
	)
	grade := &cobra.Command{
		Use:   "grade",
		Short: "Исправить марку партии",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			log := newLogger(cfg, cmd.ErrOrStderr())
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.svc.UpdateMaterialGrade(cmd.Context(), gradeID, newGrade)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "material #%d grade %s\n", m.ID, m.Grade)
			return nil
		},
	}
	grade.Flags().Int64Var(&gradeID, "id", 0, "material id")
	grade.Flags().StringVar(&newGrade, "grade", "", "new steel grade")
	_ = grade.MarkFlagRequired("id")
	_ = grade.MarkFlagRequired("grade")

	cmd.AddCommand(add, grade)
	return cmd
}

func newReceiveCmd() *cobra.Command {
	req := workflow.ReceiptRequest{}
	var noQC bool

	cmd := &cobra.Command{
		Use:     "receive",
		Short:   "Оформить поступление партии и создать инспекцию ОТК",
		Example: `  qms receive --material 12 --received-by 3 --doc ПН-0042`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			log := newLogger(cfg, cmd.ErrOrStderr())
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			req.AutoCreateQC = cfg.QC.AutoCreate && !noQC
			out, err := a.svc.ProcessReceipt(cmd.Context(), req)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&req.MaterialID, "material", 0, "material id")
	f.Int64Var(&req.ReceivedBy, "received-by", 0, "user id of the receiver")
	f.StringVar(&req.DocumentNumber, "doc", "", "receipt document number")
	f.StringVar(&req.Notes, "notes", "", "notes")
	f.BoolVar(&noQC, "no-qc", false, "do not create a QC inspection")
	_ = cmd.MarkFlagRequired("material")
	return cmd
}

func newReceiptsCmd() *cobra.Command {
	var (
		status string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "receipts",
		Short: "Поступления по статусу",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig(cmd)
			log := newLogger(cfg, cmd.ErrOrStderr())
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.svc.ListReceipts(cmd.Context(), receipts.Status(status), limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, "no receipts")
				return nil
			}
			for _, rc := range list {
				fmt.Fprintf(w, "#%d material #%d %s %s %s\n", rc.ID, rc.MaterialID, rc.DocumentNumber,
					rc.Status.Emoji(), rc.ReceivedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", string(receipts.StatusPendingQC), "pending_qc|in_qc|approved|rejected")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func printOutcome(w io.Writer, out *workflow.ReceiptOutcome) {
	fmt.Fprintf(w, "receipt #%d: %s\n", out.Receipt.ID, out.Receipt.Status.Title())
	switch {
	case out.Duplicate:
		fmt.Fprintf(w, "inspection #%d already exists\n", out.Inspection.ID)
	case out.InspectionCreated:
		fmt.Fprintf(w, "inspection #%d created, items: %d\n", out.Inspection.ID, len(out.Inspection.Results))
	}
	if out.Inspection != nil {
		fmt.Fprintf(w, "УЗК: %v, ППСД: %v\n", out.Inspection.RequiresUltrasonic, out.Inspection.RequiresPpsd)
	}
	for _, warn := range out.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
}
