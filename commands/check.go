package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/useblocks/emfbridge/transform"
)

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration against the metamodel",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(*configPath, nil)
			if err != nil {
				return err
			}
			return runCheck(rt)
		},
	}
}

func runCheck(rt *runtime) error {
	// NewImporter verifies every mapped class, field and transformer name
	if _, err := transform.NewImporter(rt.cfg, rt.pkg, rt.reg, rt.log); err != nil {
		return err
	}

	var unmapped []string
	for _, class := range rt.pkg.Classes() {
		if _, ok := rt.cfg.Classes[class.Name]; !ok && !class.Abstract {
			unmapped = append(unmapped, class.Name)
		}
	}
	for _, name := range unmapped {
		rt.log.Warn("metamodel class has no mapping", "class", name)
	}

	// unmapped references lose model structure on import
	for className, m := range rt.cfg.Classes {
		class, err := rt.pkg.Class(className)
		if err != nil {
			return err
		}
		for _, ref := range class.AllReferences() {
			if _, _, ok := m.Lookup(ref.Name); !ok {
				rt.log.Warn("reference not mapped", "class", className, "field", ref.Name)
			}
		}
		for _, attr := range class.AllAttributes() {
			if attr.Name == m.ID.Field || attr.Name == m.Title.Field {
				continue
			}
			if _, _, ok := m.Lookup(attr.Name); !ok {
				rt.log.Debug("attribute not mapped", "class", className, "field", attr.Name)
			}
		}
	}

	for _, f := range rt.cfg.Output.Files {
		for _, class := range f.Types {
			if _, ok := rt.cfg.Classes[class]; !ok {
				rt.log.Warn("output file routes an unmapped class", "path", f.Path, "class", class)
			}
		}
	}

	for _, root := range rt.cfg.ModelRoots {
		if _, err := rt.pkg.Class(root); err != nil {
			return fmt.Errorf("model root: %w", err)
		}
	}

	fmt.Printf("configuration OK: %d classes mapped, %d without mapping\n",
		len(rt.cfg.Classes), len(unmapped))
	return nil
}
