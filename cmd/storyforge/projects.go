package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/abdulachik/storyforge/internal/archive"
	"github.com/abdulachik/storyforge/internal/config"
	"github.com/abdulachik/storyforge/internal/render"
	"github.com/spf13/cobra"
)

var (
	deleteYes   bool
	diffContext int
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"ls"},
	Short:   "List saved projects",
	Args:    cobra.NoArgs,
	RunE:    runProjectsList,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Print the latest plan of a project as Markdown",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

var projectsDiffCmd = &cobra.Command{
	Use:   "diff <project> [from] [to]",
	Short: "Compare two saved versions of a plan",
	Long: `Compare two versions of a project's plan. Without versions the two newest
are compared; with one version it is compared against the newest.`,
	Args: cobra.RangeArgs(1, 3),
	RunE: runProjectsDiff,
}

var projectsDeleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a project folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsDelete,
}

func init() {
	projectsDiffCmd.Flags().IntVar(&diffContext, "context", 3, "Unchanged lines shown around each change")
	projectsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")

	projectsCmd.AddCommand(projectsShowCmd, projectsDiffCmd, projectsDeleteCmd)
	rootCmd.AddCommand(projectsCmd)
}

func openArchive() (*archive.Archive, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return archive.New(cfg.StudioDir), nil
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	projects, err := a.List()
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Printf("No projects in %s\n", a.Root())
		return nil
	}

	for _, p := range projects {
		note := ""
		switch {
		case p.Corrupted:
			note = "  [corrupted: " + p.Problem + "]"
		case p.Legacy:
			note = "  [legacy]"
		}
		fmt.Printf("%-40s %-30s %s%s\n", p.Name, p.Title(), p.ModTime.Format("2006-01-02 15:04"), note)
	}
	return nil
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	p, err := a.Load(args[0])
	if err != nil {
		return err
	}
	if p.Corrupted {
		fmt.Fprintf(os.Stderr, "warning: %s is corrupted (%s)\n", p.Name, p.Problem)
	}
	fmt.Print(render.Markdown(p.Plan))
	return nil
}

func runProjectsDiff(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	dir, err := a.Resolve(args[0])
	if err != nil {
		return err
	}
	versions, err := archive.Versions(dir)
	if err != nil {
		return err
	}
	if len(versions) < 2 && len(args) < 3 {
		return fmt.Errorf("%s has %d version(s), nothing to compare", args[0], len(versions))
	}

	var from, to int
	if n := len(versions); n > 0 {
		to = versions[n-1]
		if n > 1 {
			from = versions[n-2]
		}
	}
	if len(args) > 1 {
		if from, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
	}
	if len(args) > 2 {
		if to, err = strconv.Atoi(args[2]); err != nil {
			return fmt.Errorf("invalid version %q", args[2])
		}
	}

	d, err := archive.Diff(dir, from, to)
	if err != nil {
		return err
	}
	if !d.Changed() {
		fmt.Printf("v%d and v%d are identical\n", from, to)
		return nil
	}
	added, removed := d.Stats()
	fmt.Print(d.Unified(diffContext))
	fmt.Printf("\n%d line(s) added, %d removed\n", added, removed)
	return nil
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	a, err := openArchive()
	if err != nil {
		return err
	}
	p, err := a.Load(args[0])
	if err != nil {
		return err
	}

	if !deleteYes {
		fmt.Printf("Delete %s (%s)? [y/N] ", p.Name, p.Title())
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if reply := strings.ToLower(strings.TrimSpace(answer)); reply != "y" && reply != "yes" {
			fmt.Println("Aborted")
			return nil
		}
	}
	if err := a.Delete(p.Dir); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", p.Name)
	return nil
}
