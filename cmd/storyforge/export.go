package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdulachik/storyforge/internal/render"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <project>",
	Short: "Export the latest plan of a project as Markdown or HTML",
	Long: `Render the latest plan of a project. Without --out the document is written
to the project folder as Approved_Plan.md or Approved_Plan.html; use "-" for
stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "md", "Output format: md or html")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file, or - for stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	p, err := a.Load(args[0])
	if err != nil {
		return err
	}

	var doc, ext string
	switch strings.ToLower(exportFormat) {
	case "md", "markdown":
		doc, ext = render.Markdown(p.Plan), ".md"
	case "html":
		if doc, err = render.HTML(p.Plan); err != nil {
			return fmt.Errorf("render html: %w", err)
		}
		ext = ".html"
	default:
		return fmt.Errorf("unknown format %q (must be md or html)", exportFormat)
	}

	if exportOut == "-" {
		fmt.Print(doc)
		return nil
	}
	out := exportOut
	if out == "" {
		out = filepath.Join(p.Dir, "Approved_Plan"+ext)
	}
	if err := os.WriteFile(out, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("Exported %s\n", out)
	return nil
}
