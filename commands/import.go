package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/useblocks/emfbridge/config"
	"github.com/useblocks/emfbridge/needs"
	"github.com/useblocks/emfbridge/transform"
)

func newImportCmd(configPath *string) *cobra.Command {
	var (
		modelPath string
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an XMI model into Sphinx-Needs RST files",
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := &config.Config{XMI: modelPath}
			overrides.Output.Dir = outputDir
			rt, err := loadRuntime(*configPath, overrides)
			if err != nil {
				return err
			}
			if err := rt.cfg.ValidateImport(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runImport(rt)
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "XMI input path (overrides config)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "RST output directory (overrides config)")
	return cmd
}

func runImport(rt *runtime) error {
	model, err := rt.loadModel()
	if err != nil {
		return err
	}

	importer, err := transform.NewImporter(rt.cfg, rt.pkg, rt.reg, rt.log)
	if err != nil {
		return err
	}
	docs, err := importer.Run(model)
	if err != nil {
		return err
	}

	writer := needs.NewWriter()
	writer.Indent = rt.cfg.RSTIndent
	writer.ShowNestedTitle = rt.cfg.ShowNestedNeedTitle
	if rt.cfg.TemplatesDir != "" {
		templates, err := needs.LoadTemplates(rt.cfg.TemplatesDir)
		if err != nil {
			return fmt.Errorf("load templates: %w", err)
		}
		writer.Templates = templates
		rt.log.Debug("templates loaded", "dir", rt.cfg.TemplatesDir, "count", templates.Len())
	}

	if rt.cfg.Output.Dir != "" {
		if err := os.MkdirAll(rt.cfg.Output.Dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	for _, doc := range docs {
		name := docName(doc.Path)
		content, err := writer.RenderFile(name, doc.Needs)
		if err != nil {
			return fmt.Errorf("render %s: %w", doc.Path, err)
		}
		path := filepath.Join(rt.cfg.Output.Dir, doc.Path)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		rt.log.Info("wrote document", "path", path, "needs", countNeeds(doc))
	}
	return nil
}

// docName strips directory and extension for template lookup.
func docName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

func countNeeds(doc transform.Document) int {
	total := 0
	for _, n := range doc.Needs {
		n.Walk(func(*needs.Need) { total++ })
	}
	return total
}
