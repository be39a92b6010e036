package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/useblocks/emfbridge/config"
	"github.com/useblocks/emfbridge/needs"
	"github.com/useblocks/emfbridge/transform"
	"github.com/useblocks/emfbridge/xmi"
)

func newExportCmd(configPath *string) *cobra.Command {
	var outputPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export Sphinx-Needs RST files back into an XMI model",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(*configPath, &config.Config{XMIOutput: outputPath})
			if err != nil {
				return err
			}
			if err := rt.cfg.ValidateExport(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runExport(rt)
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "XMI output path (overrides config)")
	return cmd
}

func runExport(rt *runtime) error {
	reader := needs.NewReader(rt.cfg.LinkOptionNames(rt.isReference)...)
	trees, err := reader.ParseGlob(rt.cfg.Docs)
	if err != nil {
		return fmt.Errorf("read documents: %w", err)
	}
	rt.log.Debug("documents parsed", "needs", len(needs.IndexByID(trees)))

	exporter, err := transform.NewExporter(rt.cfg, rt.pkg, rt.reg, rt.log)
	if err != nil {
		return err
	}
	model, err := exporter.Run(trees)
	if err != nil {
		return err
	}

	opts := xmi.SaveOptions{SortAttributes: rt.cfg.SortXMIAttributes}
	if err := xmi.Save(model, rt.cfg.XMIOutput, opts); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	rt.log.Info("wrote model", "path", rt.cfg.XMIOutput, "objects", len(model.Objects()))
	return nil
}
